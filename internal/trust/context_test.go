package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"modzero/pkg/requestcontext"
)

// at builds a timestamp with the given hour of day.
func at(hour int) time.Time {
	return time.Date(2024, 6, 15, hour, 30, 0, 0, time.UTC)
}

func TestContextEvaluator(t *testing.T) {
	eval := NewContextEvaluator()

	t.Run("private origin during working hours scores 100", func(t *testing.T) {
		assert.Equal(t, 100.0, eval.Evaluate("192.168.1.10", at(14)))
	})

	t.Run("public origin during working hours scores 80", func(t *testing.T) {
		assert.Equal(t, 80.0, eval.Evaluate("203.0.113.7", at(14)))
	})

	t.Run("private origin off hours scores 80", func(t *testing.T) {
		assert.Equal(t, 80.0, eval.Evaluate("10.0.0.8", at(3)))
	})

	t.Run("public origin off hours scores 60", func(t *testing.T) {
		assert.Equal(t, 60.0, eval.Evaluate("203.0.113.7", at(23)))
	})

	t.Run("working hours boundaries are inclusive", func(t *testing.T) {
		assert.Equal(t, 80.0, eval.Evaluate("203.0.113.7", at(9)))
		assert.Equal(t, 80.0, eval.Evaluate("203.0.113.7", at(18)))
		assert.Equal(t, 60.0, eval.Evaluate("203.0.113.7", at(8)))
		assert.Equal(t, 60.0, eval.Evaluate("203.0.113.7", at(19)))
	})

	t.Run("undetermined sentinel is treated as non-private", func(t *testing.T) {
		assert.Equal(t, 80.0, eval.Evaluate(requestcontext.UndeterminedIP, at(14)))
	})

	t.Run("empty ip is treated as non-private", func(t *testing.T) {
		assert.Equal(t, 80.0, eval.Evaluate("", at(14)))
	})
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"10.0.0.1", true},
		{"192.168.0.1", true},
		{"172.16.5.5", true},
		// Known gap: the rest of the RFC1918 172.16.0.0/12 block is not
		// matched; the documented prefix set is the behavioral contract.
		{"172.17.0.1", false},
		{"172.31.255.255", false},
		{"8.8.8.8", false},
		{"0.0.0.0", false},
		{"::1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.private, isPrivateIP(tt.ip), tt.ip)
	}
}
