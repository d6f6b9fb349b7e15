package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "modzero/pkg/domain-errors"
)

func TestRegistry(t *testing.T) {
	t.Run("default registry holds built-in factors", func(t *testing.T) {
		r := DefaultRegistry()

		_, ok := r.Lookup(FactorDevicePosture)
		assert.True(t, ok)
		_, ok = r.Lookup(FactorContext)
		assert.True(t, ok)
		assert.Equal(t, []FactorName{FactorContext, FactorDevicePosture}, r.Names())
	})

	t.Run("register is idempotent by name", func(t *testing.T) {
		r := NewRegistry()
		first := r.Register("geo_velocity", "Distance between consecutive origins")
		second := r.Register("geo_velocity", "overwritten description")

		assert.Equal(t, first, second)
		f, ok := r.Lookup("geo_velocity")
		require.True(t, ok)
		assert.Equal(t, "Distance between consecutive origins", f.Description)
	})
}

func TestRegistry_ValidateWeights(t *testing.T) {
	r := DefaultRegistry()

	t.Run("accepts registered non-negative weights", func(t *testing.T) {
		err := r.ValidateWeights(map[FactorName]float64{
			FactorDevicePosture: 0.7,
			FactorContext:       0,
		})
		assert.NoError(t, err)
	})

	t.Run("rejects unregistered factor", func(t *testing.T) {
		err := r.ValidateWeights(map[FactorName]float64{"made_up": 0.5})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		err := r.ValidateWeights(map[FactorName]float64{FactorContext: -0.1})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
