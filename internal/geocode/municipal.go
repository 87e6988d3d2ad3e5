package geocode

import (
	"context"
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/normalize"
)

//go:embed data/municipalities.yaml
var municipalityData []byte

type municipality struct {
	Name     string  `yaml:"name"`
	Postcode string  `yaml:"postcode"`
	Province string  `yaml:"province"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

type municipalityTable struct {
	Municipalities []municipality `yaml:"municipalities"`
}

// MunicipalityProvider resolves addresses to municipality centroids
// using the bundled reference table. Lookup tries the normalized
// municipality name first, then the postcode.
type MunicipalityProvider struct {
	byName     map[string]municipality
	byPostcode map[string]municipality
}

// NewMunicipalityProvider parses the embedded reference table.
func NewMunicipalityProvider() (*MunicipalityProvider, error) {
	var table municipalityTable
	if err := yaml.Unmarshal(municipalityData, &table); err != nil {
		return nil, eris.Wrap(err, "geocode: parse municipality table")
	}

	p := &MunicipalityProvider{
		byName:     make(map[string]municipality, len(table.Municipalities)),
		byPostcode: make(map[string]municipality, len(table.Municipalities)),
	}
	for _, m := range table.Municipalities {
		p.byName[normalize.Key(m.Name)] = m
		if _, taken := p.byPostcode[m.Postcode]; !taken {
			p.byPostcode[m.Postcode] = m
		}
	}
	return p, nil
}

// Name implements Provider.
func (p *MunicipalityProvider) Name() string { return "municipality_table" }

// Available implements Provider.
func (p *MunicipalityProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *MunicipalityProvider) Geocode(_ context.Context, addr model.Address) (*Result, error) {
	if addr.Municipality != "" {
		if m, ok := p.byName[normalize.Key(addr.Municipality)]; ok {
			return p.result(m), nil
		}
	}
	if addr.Postcode != "" {
		if m, ok := p.byPostcode[addr.Postcode]; ok {
			return p.result(m), nil
		}
	}
	return nil, ErrNotFound
}

func (p *MunicipalityProvider) result(m municipality) *Result {
	return &Result{
		Latitude:  m.Lat,
		Longitude: m.Lon,
		Tier:      model.TierMunicipality,
		Strategy:  p.Name(),
	}
}

// Province returns the province of a municipality if the table knows
// it, used to backfill region data for scoring.
func (p *MunicipalityProvider) Province(municipalityName string) string {
	if m, ok := p.byName[normalize.Key(municipalityName)]; ok {
		return m.Province
	}
	return ""
}
