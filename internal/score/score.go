package score

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Scorer computes ScoreRecords over one canonical entity set.
type Scorer struct {
	weights Weights
	log     *zap.Logger
}

// New creates a Scorer with pre-validated weights.
func New(w Weights) *Scorer {
	return &Scorer{
		weights: w,
		log:     zap.L().With(zap.String("component", "score")),
	}
}

// subScore is one raw sub-score before weighting. Absent means the
// underlying signal never existed for the brewery (e.g. no rated
// beers); its weight is redistributed across the present factors.
type subScore struct {
	value   float64
	present bool
}

// breweryInput is the per-brewery material gathered before
// normalization against the population.
type breweryInput struct {
	id         string
	province   string
	beerCount  int
	meanRating float64
	hasRating  bool
}

// Score computes one ScoreRecord per brewery and the per-province
// rollup. Records are returned in input order, region scores sorted by
// province name; both are fully determined by the input set.
func (s *Scorer) Score(breweries, beers []model.CanonicalEntity) ([]model.ScoreRecord, []model.RegionScore) {
	inputs := s.gather(breweries, beers)

	// Population statistics for normalization.
	maxBeers := 0
	provinceCounts := make(map[string]int)
	for _, in := range inputs {
		if in.beerCount > maxBeers {
			maxBeers = in.beerCount
		}
		if in.province != "" {
			provinceCounts[in.province]++
		}
	}
	ratingMin, ratingMax := populationRange(inputs, func(in breweryInput) (float64, bool) {
		return in.meanRating, in.hasRating
	})
	densityRaw := make([]float64, len(inputs))
	for i, in := range inputs {
		if in.province != "" {
			densityRaw[i] = 1.0 / float64(provinceCounts[in.province]) // 1/(1+competitors)
		}
	}
	densityMin, densityMax := rangeOf(densityRaw, func(i int) bool { return inputs[i].province != "" })

	records := make([]model.ScoreRecord, len(inputs))
	for i, in := range inputs {
		diversity := subScore{present: true}
		if maxBeers > 0 {
			diversity.value = float64(in.beerCount) / float64(maxBeers)
		}

		quality := subScore{}
		if in.hasRating {
			quality = subScore{value: minMax(in.meanRating, ratingMin, ratingMax), present: true}
		}

		density := subScore{}
		if in.province != "" {
			density = subScore{value: minMax(densityRaw[i], densityMin, densityMax), present: true}
		}

		records[i] = s.combine(in.id, diversity, quality, density)
	}

	regions := s.regions(inputs, records)
	s.log.Debug("scored breweries",
		zap.Int("breweries", len(records)),
		zap.Int("regions", len(regions)),
	)
	return records, regions
}

// combine redistributes the weight of absent sub-scores across the
// present ones, so an entity missing a signal stays comparable to one
// that has it. Factors carry the effective (post-redistribution)
// weight for explainability; absent factors appear with weight zero.
func (s *Scorer) combine(id string, diversity, quality, density subScore) model.ScoreRecord {
	subs := []subScore{diversity, quality, density}
	names := []string{FactorDiversity, FactorQuality, FactorDensity}
	base := []float64{s.weights.Diversity, s.weights.Quality, s.weights.Density}

	presentSum := 0.0
	for i, sub := range subs {
		if sub.present {
			presentSum += base[i]
		}
	}

	rec := model.ScoreRecord{EntityID: id, Factors: make([]model.Factor, len(subs))}
	for i, sub := range subs {
		f := model.Factor{Name: names[i]}
		if sub.present && presentSum > 0 {
			f.Weight = base[i] / presentSum
			f.Value = sub.value
			rec.Score += f.Weight * f.Value
		}
		rec.Factors[i] = f
	}
	return rec
}

func (s *Scorer) gather(breweries, beers []model.CanonicalEntity) []breweryInput {
	type beerAgg struct {
		count     int
		ratingSum float64
		rated     int
	}
	byBrewery := make(map[string]*beerAgg, len(breweries))
	for _, beer := range beers {
		agg := byBrewery[beer.BreweryID]
		if agg == nil {
			agg = &beerAgg{}
			byBrewery[beer.BreweryID] = agg
		}
		agg.count++
		if beer.Rating != nil {
			agg.ratingSum += *beer.Rating
			agg.rated++
		}
	}

	inputs := make([]breweryInput, len(breweries))
	for i, b := range breweries {
		in := breweryInput{id: b.ID, province: b.Address.Province}
		if agg := byBrewery[b.ID]; agg != nil {
			in.beerCount = agg.count
			if agg.rated > 0 {
				in.meanRating = agg.ratingSum / float64(agg.rated)
				in.hasRating = true
			}
		}
		inputs[i] = in
	}
	return inputs
}

// regions rolls brewery scores up per province by simple mean.
// Breweries without a known province are left out of the rollup but
// keep their own ScoreRecord. Zero-brewery provinces are omitted.
func (s *Scorer) regions(inputs []breweryInput, records []model.ScoreRecord) []model.RegionScore {
	agg := make(map[string]*model.RegionScore)
	for i, in := range inputs {
		if in.province == "" {
			continue
		}
		r := agg[in.province]
		if r == nil {
			r = &model.RegionScore{Region: in.province}
			agg[in.province] = r
		}
		r.Score += records[i].Score
		r.BreweryCount++
		r.BeerCount += in.beerCount
	}

	out := make([]model.RegionScore, 0, len(agg))
	for _, r := range agg {
		r.Score /= float64(r.BreweryCount)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// minMax scales v into [0,1] over the population range. A degenerate
// population (single distinct value) maps to 1.0 so the lone value is
// not penalized for lacking peers.
func minMax(v, min, max float64) float64 {
	if max <= min {
		return 1.0
	}
	return (v - min) / (max - min)
}

func populationRange(inputs []breweryInput, get func(breweryInput) (float64, bool)) (float64, float64) {
	min, max := 0.0, 0.0
	seen := false
	for _, in := range inputs {
		v, ok := get(in)
		if !ok {
			continue
		}
		if !seen || v < min {
			min = v
		}
		if !seen || v > max {
			max = v
		}
		seen = true
	}
	return min, max
}

func rangeOf(vals []float64, include func(i int) bool) (float64, float64) {
	min, max := 0.0, 0.0
	seen := false
	for i, v := range vals {
		if !include(i) {
			continue
		}
		if !seen || v < min {
			min = v
		}
		if !seen || v > max {
			max = v
		}
		seen = true
	}
	return min, max
}
