package trust

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "modzero/pkg/domain"
)

func TestPolicyResolver(t *testing.T) {
	resolver := NewPolicyResolver()

	t.Run("empty set resolves to defaults", func(t *testing.T) {
		resolved := resolver.Resolve(nil)

		assert.Nil(t, resolved.PolicyID)
		assert.Equal(t, 70.0, resolved.Threshold)
		assert.Equal(t, map[FactorName]float64{
			FactorDevicePosture: 0.7,
			FactorContext:       0.3,
		}, resolved.Weights)
	})

	t.Run("earliest created active policy wins", func(t *testing.T) {
		older := Policy{
			ID:        id.NewPolicyID(),
			Weights:   map[FactorName]float64{FactorDevicePosture: 0.5, FactorContext: 0.5},
			Threshold: 60,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		newer := Policy{
			ID:        id.NewPolicyID(),
			Weights:   map[FactorName]float64{FactorDevicePosture: 0.9, FactorContext: 0.1},
			Threshold: 90,
			CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}

		resolved := resolver.Resolve([]Policy{newer, older})

		require.NotNil(t, resolved.PolicyID)
		assert.Equal(t, older.ID, *resolved.PolicyID)
		assert.Equal(t, 60.0, resolved.Threshold)
		assert.Equal(t, older.Weights, resolved.Weights)
	})

	t.Run("equal creation times tie-break by policy id", func(t *testing.T) {
		createdAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		a := Policy{
			ID:        id.PolicyID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
			Threshold: 50,
			CreatedAt: createdAt,
		}
		b := Policy{
			ID:        id.PolicyID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
			Threshold: 80,
			CreatedAt: createdAt,
		}

		// Same winner regardless of input order
		first := resolver.Resolve([]Policy{b, a})
		second := resolver.Resolve([]Policy{a, b})

		require.NotNil(t, first.PolicyID)
		require.NotNil(t, second.PolicyID)
		assert.Equal(t, a.ID, *first.PolicyID)
		assert.Equal(t, a.ID, *second.PolicyID)
	})

	t.Run("input slice is not reordered", func(t *testing.T) {
		policies := []Policy{
			{ID: id.NewPolicyID(), CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{ID: id.NewPolicyID(), CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}
		firstBefore := policies[0].ID

		resolver.Resolve(policies)

		assert.Equal(t, firstBefore, policies[0].ID)
	})

	t.Run("returns raw weights without normalizing", func(t *testing.T) {
		p := Policy{
			ID:        id.NewPolicyID(),
			Weights:   map[FactorName]float64{FactorDevicePosture: 2, FactorContext: 6},
			Threshold: 70,
			CreatedAt: time.Now(),
		}

		resolved := resolver.Resolve([]Policy{p})

		assert.Equal(t, p.Weights, resolved.Weights)
	})
}
