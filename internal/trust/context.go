package trust

import (
	"strings"
	"time"
)

// Context scoring constants. With these values the unclamped maximum is
// exactly 100, so the min-100 cap never binds; the cap is still applied as a
// stated invariant in case the constants change.
const (
	workingHoursScore   = 40.0
	offHoursScore       = 20.0
	privateNetworkScore = 60.0
	publicNetworkScore  = 40.0
	workingHoursStart   = 9
	workingHoursEnd     = 18
	maxContextScore     = 100.0
)

// ContextEvaluator scores the request's temporal and network origin in
// [0,100]. It has no side effects and never fails; an undetermined IP is
// treated as non-private, not as an error.
type ContextEvaluator struct{}

// NewContextEvaluator constructs a ContextEvaluator.
func NewContextEvaluator() *ContextEvaluator {
	return &ContextEvaluator{}
}

// Evaluate combines a time-of-day component with a network origin component.
// Working hours [9,18] inclusive score higher than off hours; private-range
// origins score higher than public ones.
func (e *ContextEvaluator) Evaluate(clientIP string, at time.Time) float64 {
	timeScore := offHoursScore
	if hour := at.Hour(); hour >= workingHoursStart && hour <= workingHoursEnd {
		timeScore = workingHoursScore
	}

	networkScore := publicNetworkScore
	if isPrivateIP(clientIP) {
		networkScore = privateNetworkScore
	}

	total := timeScore + networkScore
	if total > maxContextScore {
		total = maxContextScore
	}
	return total
}

// isPrivateIP is a deliberately coarse prefix match. Known gap: it covers only
// the 172.16. prefix of the RFC1918 172.16.0.0/12 block and ignores IPv6
// entirely. The 40-vs-60 score surface is a behavioral contract, so the match
// is preserved as-is rather than silently widened.
func isPrivateIP(ip string) bool {
	return strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "172.16.")
}
