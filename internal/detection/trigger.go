package detection

// Rule selects the detections that count as an event.
type Rule struct {
	ClassID   int
	Threshold float64
}

// Decision is the outcome of evaluating one frame's detections.
type Decision struct {
	Fired      bool
	Qualifying []Detection
}

// Matches reports whether d satisfies the rule. The threshold is exclusive.
func (r Rule) Matches(d Detection) bool {
	return d.ClassID == r.ClassID && d.Confidence > r.Threshold
}

// Evaluate returns the detections matching rule, in input order, and whether
// there was at least one.
func Evaluate(dets []Detection, rule Rule) Decision {
	var qualifying []Detection
	for _, d := range dets {
		if rule.Matches(d) {
			qualifying = append(qualifying, d)
		}
	}
	return Decision{Fired: len(qualifying) > 0, Qualifying: qualifying}
}
