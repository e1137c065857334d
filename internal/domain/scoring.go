package domain

import "fmt"

// ScoreDelta is the fixed scoring table for debate outcomes.
func ScoreDelta(outcome Outcome) int {
	switch outcome {
	case OutcomeVictory:
		return 10
	case OutcomeDefeat:
		return -5
	default:
		return 0
	}
}

// FormatDelta renders a delta with an explicit sign: +10, -5, +0.
func FormatDelta(delta int) string {
	return fmt.Sprintf("%+d", delta)
}
