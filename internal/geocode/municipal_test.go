package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam0per/belgian-brewery/internal/model"
)

func TestMunicipalityProvider_ByName(t *testing.T) {
	p, err := NewMunicipalityProvider()
	require.NoError(t, err)

	got, err := p.Geocode(context.Background(), model.Address{Municipality: "Westmalle"})
	require.NoError(t, err)
	assert.Equal(t, model.TierMunicipality, got.Tier)
	assert.Equal(t, "municipality_table", got.Strategy)
	assert.InDelta(t, 51.3, got.Latitude, 0.5)
	assert.InDelta(t, 4.68, got.Longitude, 0.5)
}

func TestMunicipalityProvider_NameIsCaseAndSpaceInsensitive(t *testing.T) {
	p, err := NewMunicipalityProvider()
	require.NoError(t, err)

	a, err := p.Geocode(context.Background(), model.Address{Municipality: "WESTVLETEREN"})
	require.NoError(t, err)
	b, err := p.Geocode(context.Background(), model.Address{Municipality: "  westvleteren  "})
	require.NoError(t, err)
	assert.Equal(t, a.Latitude, b.Latitude)
	assert.Equal(t, a.Longitude, b.Longitude)
}

func TestMunicipalityProvider_PostcodeFallback(t *testing.T) {
	p, err := NewMunicipalityProvider()
	require.NoError(t, err)

	got, err := p.Geocode(context.Background(), model.Address{
		Municipality: "Sint-Niepskerke", // not in the table
		Postcode:     "8000",            // Brugge
	})
	require.NoError(t, err)
	assert.Equal(t, model.TierMunicipality, got.Tier)
	assert.InDelta(t, 51.2, got.Latitude, 0.3)
}

func TestMunicipalityProvider_Unknown(t *testing.T) {
	p, err := NewMunicipalityProvider()
	require.NoError(t, err)

	_, err = p.Geocode(context.Background(), model.Address{Municipality: "Atlantis", Postcode: "0000"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMunicipalityProvider_Province(t *testing.T) {
	p, err := NewMunicipalityProvider()
	require.NoError(t, err)

	assert.Equal(t, "Antwerpen", p.Province("Westmalle"))
	assert.Equal(t, "West-Vlaanderen", p.Province("westvleteren"))
	assert.Empty(t, p.Province("Atlantis"))
}
