package trust

import "math"

// TrustScorer aggregates per-factor scores under resolved weights into one
// bounded total.
type TrustScorer struct{}

// NewTrustScorer constructs a TrustScorer.
func NewTrustScorer() *TrustScorer {
	return &TrustScorer{}
}

// Score combines factor scores with the supplied weight mapping.
//
// A factor that was scored but carries no weight falls back to its default
// weight (defaults apply per missing factor, not only when the whole mapping
// is absent). Weights are normalized to sum to 1 when their sum is positive;
// a zero or negative sum falls back to the default weight set entirely rather
// than dividing by zero.
//
// The result is rounded to two decimals: downstream threshold comparisons
// must be reproducible, so the rounding is part of the output contract.
func (s *TrustScorer) Score(scores map[FactorName]float64, weights map[FactorName]float64) float64 {
	defaults := DefaultWeights()

	effective := make(map[FactorName]float64, len(scores))
	var sum float64
	for name := range scores {
		w, ok := weights[name]
		if !ok {
			w = defaults[name]
		}
		effective[name] = w
		sum += w
	}

	if sum <= 0 {
		effective = make(map[FactorName]float64, len(scores))
		sum = 0
		for name := range scores {
			w := defaults[name]
			effective[name] = w
			sum += w
		}
		if sum <= 0 {
			return 0
		}
	}

	var total float64
	for name, score := range scores {
		total += (effective[name] / sum) * score
	}
	return round2(total)
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
