package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam0per/belgian-brewery/internal/model"
)

func brewery(id, province string) model.CanonicalEntity {
	return model.CanonicalEntity{
		ID:      id,
		Kind:    model.KindBrewery,
		Address: model.Address{Province: province},
	}
}

func beer(breweryID string, rating *float64) model.CanonicalEntity {
	return model.CanonicalEntity{
		Kind:      model.KindBeer,
		BreweryID: breweryID,
		Rating:    rating,
	}
}

func ratingOf(v float64) *float64 { return &v }

// Fixture: A and B share a province, C is alone in another, D has no
// known province. A has the most beers and the best ratings.
func fixture() ([]model.CanonicalEntity, []model.CanonicalEntity) {
	breweries := []model.CanonicalEntity{
		brewery("a", "Antwerpen"),
		brewery("b", "Antwerpen"),
		brewery("c", "Hainaut"),
		brewery("d", ""),
	}
	beers := []model.CanonicalEntity{
		beer("a", ratingOf(80)),
		beer("a", ratingOf(90)),
		beer("a", nil),
		beer("a", nil),
		beer("b", nil),
		beer("b", nil),
		beer("c", ratingOf(60)),
	}
	return breweries, beers
}

func TestScore_FullSignals(t *testing.T) {
	breweries, beers := fixture()
	records, _ := New(DefaultWeights()).Score(breweries, beers)
	require.Len(t, records, 4)

	// A: diversity 4/4, quality top of range, density 0 (most crowded
	// province, bottom of range). 0.4*1 + 0.3*1 + 0.3*0.
	a := records[0]
	assert.Equal(t, "a", a.EntityID)
	assert.InDelta(t, 0.70, a.Score, 1e-9)

	require.Len(t, a.Factors, 3)
	assert.Equal(t, FactorDiversity, a.Factors[0].Name)
	assert.Equal(t, FactorQuality, a.Factors[1].Name)
	assert.Equal(t, FactorDensity, a.Factors[2].Name)
	assert.InDelta(t, 0.4, a.Factors[0].Weight, 1e-9)
	assert.InDelta(t, 1.0, a.Factors[0].Value, 1e-9)
}

func TestScore_MissingQualityRedistributesWeight(t *testing.T) {
	breweries, beers := fixture()
	records, _ := New(DefaultWeights()).Score(breweries, beers)

	// B has no rated beers: quality weight flows to diversity and
	// density, not diversity*0.4 + density*0.3 with 0.3 lost.
	b := records[1]
	assert.Equal(t, "b", b.EntityID)
	assert.InDelta(t, (0.4/0.7)*0.5+(0.3/0.7)*0.0, b.Score, 1e-9)

	assert.InDelta(t, 0.4/0.7, b.Factors[0].Weight, 1e-9)
	assert.Zero(t, b.Factors[1].Weight, "absent factor must carry zero weight")
	assert.InDelta(t, 0.3/0.7, b.Factors[2].Weight, 1e-9)
}

func TestScore_DensityRewardsUnderservedProvince(t *testing.T) {
	breweries, beers := fixture()
	records, _ := New(DefaultWeights()).Score(breweries, beers)

	// C is the only brewery in Hainaut: density tops the range.
	c := records[2]
	assert.Equal(t, "c", c.EntityID)
	assert.InDelta(t, 1.0, c.Factors[2].Value, 1e-9)
	assert.InDelta(t, 0.4*0.25+0.3*0.0+0.3*1.0, c.Score, 1e-9)
}

func TestScore_UnknownProvinceStillScored(t *testing.T) {
	breweries, beers := fixture()
	records, regions := New(DefaultWeights()).Score(breweries, beers)

	// D has neither ratings nor a known province: only diversity
	// remains, at full redistributed weight.
	d := records[3]
	assert.Equal(t, "d", d.EntityID)
	assert.InDelta(t, 1.0, d.Factors[0].Weight, 1e-9)
	assert.Zero(t, d.Score)

	for _, r := range regions {
		assert.NotEmpty(t, r.Region)
	}
}

func TestScore_RegionRollup(t *testing.T) {
	breweries, beers := fixture()
	records, regions := New(DefaultWeights()).Score(breweries, beers)

	require.Len(t, regions, 2)
	assert.Equal(t, "Antwerpen", regions[0].Region)
	assert.Equal(t, "Hainaut", regions[1].Region)

	assert.InDelta(t, (records[0].Score+records[1].Score)/2, regions[0].Score, 1e-9)
	assert.Equal(t, 2, regions[0].BreweryCount)
	assert.Equal(t, 6, regions[0].BeerCount)

	assert.Equal(t, 1, regions[1].BreweryCount)
	assert.Equal(t, 1, regions[1].BeerCount)
}

func TestScore_Deterministic(t *testing.T) {
	breweries, beers := fixture()
	s := New(DefaultWeights())

	first, firstRegions := s.Score(breweries, beers)
	for range 5 {
		again, againRegions := s.Score(breweries, beers)
		assert.Equal(t, first, again)
		assert.Equal(t, firstRegions, againRegions)
	}
}

func TestScore_EmptyPopulation(t *testing.T) {
	records, regions := New(DefaultWeights()).Score(nil, nil)
	assert.Empty(t, records)
	assert.Empty(t, regions)
}

func TestScore_SingleBrewery(t *testing.T) {
	breweries := []model.CanonicalEntity{brewery("solo", "Namur")}
	beers := []model.CanonicalEntity{beer("solo", ratingOf(75))}

	records, regions := New(DefaultWeights()).Score(breweries, beers)
	require.Len(t, records, 1)
	// Degenerate population: every signal tops its range.
	assert.InDelta(t, 1.0, records[0].Score, 1e-9)
	require.Len(t, regions, 1)
	assert.Equal(t, "Namur", regions[0].Region)
}

func TestWeights_Validation(t *testing.T) {
	_, err := NewWeights(0.4, 0.3, 0.3)
	assert.NoError(t, err)

	_, err = NewWeights(0.5, 0.3, 0.3)
	assert.Error(t, err)

	_, err = NewWeights(-0.1, 0.6, 0.5)
	assert.Error(t, err)
}

func TestWeights_FromMap(t *testing.T) {
	w, err := NewWeightsFromMap(map[string]float64{
		FactorDiversity: 0.5,
		FactorQuality:   0.25,
		FactorDensity:   0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Diversity)

	_, err = NewWeightsFromMap(map[string]float64{"vibes": 1.0})
	assert.Error(t, err)

	w, err = NewWeightsFromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)
}
