// Package progress computes how much of a contract's time window has elapsed,
// expressed as a 0-100 percentage for progress-bar display.
package progress

import (
	"math"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
)

// Input carries everything the calculator looks at. Every field is optional;
// anything missing or malformed degrades to a defined numeric result instead
// of an error, so a bad payload can never break a render.
type Input struct {
	// PeriodPercent is a pre-computed percentage supplied by the server.
	// When present it is authoritative and skips all date math.
	PeriodPercent *float64

	// StartDate and EndDate are RFC3339 timestamps. Either may be empty.
	StartDate string
	EndDate   string

	// OneOff marks a single-occurrence 24-hour contract.
	OneOff bool

	Status model.ContractStatus
}

// Deadline computes the deadline progress percentage using the current time.
func Deadline(in Input) float64 {
	return DeadlineAt(in, time.Now())
}

// DeadlineAt is Deadline with an explicit clock.
//
// Priority order: server override, then one-off special cases, then the
// elapsed-over-total ratio. The result is always within [0, 100], rounded to
// two decimal places.
func DeadlineAt(in Input, now time.Time) float64 {
	if in.StartDate == "" || in.EndDate == "" {
		return 0
	}

	// Server override wins regardless of dates.
	if in.PeriodPercent != nil {
		return math.Min(100, round2(*in.PeriodPercent))
	}

	start, err := time.Parse(time.RFC3339, in.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.RFC3339, in.EndDate)
	if err != nil {
		return 0
	}

	if in.OneOff {
		switch in.Status {
		case model.StatusPending:
			return 0
		case model.StatusInProgress:
			return elapsedRatio(start, end, now)
		}
		// Other statuses fall through to the general rule.
	}

	if now.Before(start) {
		return 0
	}
	if now.After(end) {
		return 100
	}
	return elapsedRatio(start, end, now)
}

// ForContract computes the progress of a stored contract at a given time.
func ForContract(c *model.Contract, now time.Time) float64 {
	return DeadlineAt(Input{
		StartDate: c.StartDate.Format(time.RFC3339),
		EndDate:   c.EndDate.Format(time.RFC3339),
		OneOff:    c.OneOff,
		Status:    c.Status,
	}, now)
}

func elapsedRatio(start, end, now time.Time) float64 {
	total := end.Sub(start)
	if total <= 0 {
		return 0
	}
	ratio := float64(now.Sub(start)) / float64(total) * 100
	return math.Min(100, math.Max(0, round2(ratio)))
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
