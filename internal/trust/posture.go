package trust

// NeutralScore is returned when posture evidence is missing: no device
// supplied, or a device with no recorded checkpoints. Absence of evidence is
// not evidence of absence.
const NeutralScore = 50.0

// PostureEvaluator scores a device's checkpoint compliance in [0,100].
// It has no side effects and never fails; unknown states degrade to the
// neutral score.
type PostureEvaluator struct{}

// NewPostureEvaluator constructs a PostureEvaluator.
func NewPostureEvaluator() *PostureEvaluator {
	return &PostureEvaluator{}
}

// Evaluate returns 100 * passed/total over the latest checkpoint results.
// A checkpoint counts as passed only when its latest status is exactly
// CheckpointPass; fail and unknown both count against the device.
func (e *PostureEvaluator) Evaluate(hasDevice bool, checkpoints []CheckpointResult) float64 {
	if !hasDevice {
		return NeutralScore
	}
	if len(checkpoints) == 0 {
		return NeutralScore
	}

	passed := 0
	for _, cp := range checkpoints {
		if cp.Status == CheckpointPass {
			passed++
		}
	}
	return float64(passed) / float64(len(checkpoints)) * 100
}
