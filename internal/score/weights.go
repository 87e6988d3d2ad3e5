// Package score computes the opportunity score of each canonical
// brewery and the per-province rollup. Scores are derived fresh from
// the canonical entity set on every run.
package score

import (
	"math"

	"github.com/rotisserie/eris"
)

// Factor names, in the fixed order they appear in every ScoreRecord.
const (
	FactorDiversity = "beer_diversity"
	FactorQuality   = "quality_signal"
	FactorDensity   = "regional_density"
)

const weightTolerance = 1e-9

// Weights is the validated scoring configuration. The three weights
// must be non-negative and sum to 1.0; an invalid set is rejected
// before a run starts rather than producing silently skewed scores.
type Weights struct {
	Diversity float64
	Quality   float64
	Density   float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{Diversity: 0.4, Quality: 0.3, Density: 0.3}
}

// NewWeights validates a weight set.
func NewWeights(diversity, quality, density float64) (Weights, error) {
	w := Weights{Diversity: diversity, Quality: quality, Density: density}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// NewWeightsFromMap builds Weights from a factor-name keyed map, the
// shape run configuration arrives in. Unknown keys are rejected.
func NewWeightsFromMap(m map[string]float64) (Weights, error) {
	w := DefaultWeights()
	if len(m) == 0 {
		return w, nil
	}
	for name, v := range m {
		switch name {
		case FactorDiversity:
			w.Diversity = v
		case FactorQuality:
			w.Quality = v
		case FactorDensity:
			w.Density = v
		default:
			return Weights{}, eris.Errorf("score: unknown weight %q", name)
		}
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate checks non-negativity and that the weights sum to 1.0.
func (w Weights) Validate() error {
	if w.Diversity < 0 || w.Quality < 0 || w.Density < 0 {
		return eris.Errorf("score: negative weight in %+v", w)
	}
	sum := w.Diversity + w.Quality + w.Density
	if math.Abs(sum-1.0) > weightTolerance {
		return eris.Errorf("score: weights sum to %g, want 1.0", sum)
	}
	return nil
}
