// Package srs implements the spaced-repetition update rule applied to a
// card's scheduling state after each review.
package srs

import (
	"fmt"
	"math"
	"time"
)

// Grade is the reviewer's judgement of one recall attempt.
type Grade int

const (
	GradeAgain Grade = 1
	GradeHard  Grade = 2
	GradeGood  Grade = 3
	GradeEasy  Grade = 4
)

// The ease factor never drops below this floor, preventing runaway
// shortening of future intervals.
const MinEase = 1.3

// ParseGrade validates a raw grade value at the API boundary. Apply must
// never see an out-of-range grade.
func ParseGrade(n int) (Grade, error) {
	if n < int(GradeAgain) || n > int(GradeEasy) {
		return 0, fmt.Errorf("grade must be 1-4, got %d", n)
	}
	return Grade(n), nil
}

// ReviewState is the scheduling state carried by one card.
type ReviewState struct {
	Ease         float64
	IntervalDays int
	Due          time.Time
	LastReviewed time.Time
}

// Apply computes the next scheduling state from a review grade.
//
// Ease drifts up for grades above the neutral midpoint (2.5) and down
// below it, floored at MinEase. Successful recall (Good/Easy) grows the
// interval by half; failure or difficulty halves it, floored at one day so
// a card is never due immediately again. Due is the review date plus the
// new interval.
func Apply(s ReviewState, g Grade, now time.Time) ReviewState {
	ease := s.Ease
	if ease == 0 {
		ease = 2.5
	}
	ease = math.Max(MinEase, ease+(float64(g)-2.5)*0.1)

	factor := 0.5
	if g > GradeHard {
		factor = 1.5
	}
	interval := float64(s.IntervalDays) * factor
	if interval < 1 {
		interval = 1
	}
	// Round up so a successful review always moves an interval forward.
	days := int(math.Ceil(interval))

	today := dateOnly(now)
	return ReviewState{
		Ease:         ease,
		IntervalDays: days,
		Due:          today.AddDate(0, 0, days),
		LastReviewed: today,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
