package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustScorer(t *testing.T) {
	scorer := NewTrustScorer()

	t.Run("weighted combination with default weights", func(t *testing.T) {
		total := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 50, FactorContext: 80},
			nil,
		)
		// 0.7*50 + 0.3*80
		assert.Equal(t, 59.0, total)
	})

	t.Run("weights are normalized before combining", func(t *testing.T) {
		total := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 100, FactorContext: 0},
			map[FactorName]float64{FactorDevicePosture: 7, FactorContext: 3},
		)
		// 7/10 * 100
		assert.Equal(t, 70.0, total)
	})

	t.Run("missing weight falls back to that factor's default", func(t *testing.T) {
		total := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 100, FactorContext: 100},
			map[FactorName]float64{FactorDevicePosture: 0.7},
		)
		// context picks up default 0.3; sum normalizes to 1
		assert.Equal(t, 100.0, total)

		skewed := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 100, FactorContext: 0},
			map[FactorName]float64{FactorContext: 0.3},
		)
		assert.Equal(t, 70.0, skewed)
	})

	t.Run("zero weight sum falls back to default weight set", func(t *testing.T) {
		total := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 80, FactorContext: 0},
			map[FactorName]float64{FactorDevicePosture: 0, FactorContext: 0},
		)
		assert.Equal(t, 56.0, total)
	})

	t.Run("result has two-decimal precision", func(t *testing.T) {
		total := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 79, FactorContext: 0},
			nil,
		)
		assert.Equal(t, 55.3, total)

		thirds := scorer.Score(
			map[FactorName]float64{FactorDevicePosture: 100, FactorContext: 100},
			map[FactorName]float64{FactorDevicePosture: 1, FactorContext: 2},
		)
		assert.Equal(t, 100.0, thirds)
	})

	t.Run("effective weights sum to one", func(t *testing.T) {
		// Verified indirectly: equal scores must reproduce themselves
		// regardless of how raw weights are scaled.
		for _, scale := range []float64{0.1, 1, 3, 42} {
			total := scorer.Score(
				map[FactorName]float64{FactorDevicePosture: 64, FactorContext: 64},
				map[FactorName]float64{FactorDevicePosture: 0.7 * scale, FactorContext: 0.3 * scale},
			)
			assert.Equal(t, 64.0, total, "scale %v", scale)
		}
	})

	t.Run("output stays within bounds for bounded inputs", func(t *testing.T) {
		cases := []map[FactorName]float64{
			{FactorDevicePosture: 0, FactorContext: 0},
			{FactorDevicePosture: 100, FactorContext: 100},
			{FactorDevicePosture: 33.33, FactorContext: 66.67},
		}
		for _, scores := range cases {
			total := scorer.Score(scores, map[FactorName]float64{FactorDevicePosture: 5, FactorContext: 1})
			assert.GreaterOrEqual(t, total, 0.0)
			assert.LessOrEqual(t, total, 100.0)
		}
	})
}
