package trust

// reviewBandRatio defines the lower edge of the review band relative to the
// threshold. It is a fixed engine constant, not a per-policy field.
const reviewBandRatio = 0.8

// DecisionClassifier maps a total score and threshold to a tri-state
// decision. It is a pure function of its inputs; each call is independent.
type DecisionClassifier struct{}

// NewDecisionClassifier constructs a DecisionClassifier.
func NewDecisionClassifier() *DecisionClassifier {
	return &DecisionClassifier{}
}

// Classify applies the decision bands:
//
//	total >= threshold            -> allow  (threshold inclusive)
//	total >= threshold*0.8        -> review (lower boundary inclusive)
//	otherwise                     -> deny
//
// Decisions are monotonic non-decreasing in the score: deny, then review,
// then allow as the score increases.
func (c *DecisionClassifier) Classify(totalScore, threshold float64) Decision {
	switch {
	case totalScore >= threshold:
		return DecisionAllow
	case totalScore >= threshold*reviewBandRatio:
		return DecisionReview
	default:
		return DecisionDeny
	}
}
