package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam0per/belgian-brewery/internal/model"
)

func rawBeer(name, brewery, abv string) model.RawRecord {
	return model.RawRecord{
		Source: "wiki",
		Kind:   model.KindBeer,
		Fields: map[string]string{
			FieldName:    name,
			FieldBrewery: brewery,
			FieldABV:     abv,
		},
	}
}

func TestBatch_AcceptsValidBeer(t *testing.T) {
	res := New().Batch([]model.RawRecord{rawBeer("Tripel Karmeliet", "Brouwerij Bosteels", "8.4")})

	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Rejected)

	rec := res.Records[0]
	assert.Equal(t, "Tripel Karmeliet", rec.Name)
	assert.Equal(t, "tripel karmeliet", rec.NameKey)
	assert.Equal(t, "brouwerij bosteels", rec.BreweryKey)
	require.NotNil(t, rec.ABV)
	assert.InDelta(t, 8.4, *rec.ABV, 1e-9)
	assert.Equal(t, 0, rec.Seq)
}

func TestBatch_RejectsEmptyName(t *testing.T) {
	res := New().Batch([]model.RawRecord{rawBeer("  ", "Bosteels", "8.4")})

	assert.Empty(t, res.Records)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "wiki", res.Rejected[0].Source)
	assert.Equal(t, "missing name", res.Rejected[0].Reason)
}

func TestBatch_RejectsInvalidABV(t *testing.T) {
	for _, abv := range []string{"-1", "250", "strong"} {
		res := New().Batch([]model.RawRecord{rawBeer("Duvel", "Duvel Moortgat", abv)})
		assert.Empty(t, res.Records, "abv=%q", abv)
		assert.Len(t, res.Rejected, 1, "abv=%q", abv)
	}
}

func TestBatch_RejectsBeerWithoutIdentifyingAttribute(t *testing.T) {
	res := New().Batch([]model.RawRecord{rawBeer("Duvel", "", "")})
	assert.Empty(t, res.Records)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "no identifying attribute", res.Rejected[0].Reason)
}

func TestBatch_RejectsBreweryWithoutAddress(t *testing.T) {
	res := New().Batch([]model.RawRecord{{
		Source: "wiki",
		Kind:   model.KindBrewery,
		Fields: map[string]string{FieldName: "Brouwerij Westmalle"},
	}})
	assert.Empty(t, res.Records)
	require.Len(t, res.Rejected, 1)
}

func TestBatch_BreweryKeepsAddressComponents(t *testing.T) {
	res := New().Batch([]model.RawRecord{{
		Source: "nominatim",
		Kind:   model.KindBrewery,
		Fields: map[string]string{
			FieldName:         "Brouwerij De Halve Maan",
			FieldStreet:       "Walplein 26",
			FieldMunicipality: "Brugge",
			FieldPostcode:     "8000",
			FieldProvince:     "West-Vlaanderen",
		},
	}})

	require.Len(t, res.Records, 1)
	addr := res.Records[0].Address
	assert.Equal(t, "Walplein 26", addr.Street)
	assert.Equal(t, "Brugge", addr.Municipality)
	assert.Equal(t, "Walplein 26, Brugge, 8000, West-Vlaanderen", addr.Text())
}

func TestBatch_SeqFollowsAcceptedOrder(t *testing.T) {
	res := New().Batch([]model.RawRecord{
		rawBeer("Duvel", "Duvel Moortgat", "8.5"),
		rawBeer("", "", ""), // rejected, does not consume a seq
		rawBeer("Orval", "Brasserie d'Orval", "6.2"),
	})

	require.Len(t, res.Records, 2)
	assert.Equal(t, 0, res.Records[0].Seq)
	assert.Equal(t, 1, res.Records[1].Seq)
}

func TestBatch_DropsOutOfRangeRatingWithoutRejecting(t *testing.T) {
	raw := rawBeer("Westvleteren 12", "Westvleteren", "10.2")
	raw.Fields[FieldRating] = "7.9" // beeradvocate scale tops at 5

	res := New().Batch([]model.RawRecord{raw})
	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].Rating)
}
