// Package deviation computes baseline-relative deviation percentages for
// per-entity metric series. One abstraction covers day-over-day,
// week-over-week and goal-relative comparisons; callers pick a Rule
// instead of reimplementing the shift logic per metric.
package deviation

import (
	"time"
)

// Kind selects how the baseline value for a date is chosen.
type Kind int

const (
	// PrevDay compares against the value observed one calendar day earlier.
	PrevDay Kind = iota
	// WeekAgo compares against the value observed seven calendar days earlier.
	WeekAgo
	// StaticGoal compares every date against a fixed goal value.
	StaticGoal
)

// Rule is a baseline-selection policy.
type Rule struct {
	Kind   Kind
	Static float64 // baseline for StaticGoal
}

// offsetDays returns the calendar lookback for time-shifted rules.
func (r Rule) offsetDays() int {
	switch r.Kind {
	case PrevDay:
		return 1
	case WeekAgo:
		return 7
	}
	return 0
}

// Record is one date's deviation result. HasBaseline distinguishes "no
// prior-period value existed" from a genuine 0% deviation.
type Record struct {
	Date        time.Time
	Current     float64
	Baseline    float64
	Pct         float64
	HasBaseline bool
}

// Sample is one (date, value) observation. Callers pass the entity's
// chronologically sorted series; entities are never mixed in one call.
type Sample struct {
	Date  time.Time
	Value float64
}

// Compute evaluates the rule over a sorted single-entity series. The safe
// division contract applies throughout: a zero or absent baseline yields
// Pct 0 rather than an error, with HasBaseline carrying the distinction.
func Compute(samples []Sample, rule Rule) []Record {
	out := make([]Record, len(samples))

	var byDate map[time.Time]float64
	if offset := rule.offsetDays(); offset > 0 {
		byDate = make(map[time.Time]float64, len(samples))
		for _, s := range samples {
			byDate[s.Date] = s.Value
		}
	}

	for i, s := range samples {
		rec := Record{Date: s.Date, Current: s.Value}

		switch rule.Kind {
		case StaticGoal:
			rec.Baseline = rule.Static
			rec.HasBaseline = rule.Static != 0
		default:
			base, ok := byDate[s.Date.AddDate(0, 0, -rule.offsetDays())]
			rec.Baseline = base
			rec.HasBaseline = ok
		}

		if rec.HasBaseline && rec.Baseline != 0 {
			rec.Pct = (rec.Current - rec.Baseline) / rec.Baseline * 100
		}
		out[i] = rec
	}
	return out
}

// At returns the record for the given date, or nil.
func At(records []Record, date time.Time) *Record {
	for i := range records {
		if records[i].Date.Equal(date) {
			return &records[i]
		}
	}
	return nil
}

// ExpandingMean returns, per date, the mean of all values up to and
// including that date. Context column for impression reporting.
func ExpandingMean(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	var sum float64
	for i, s := range samples {
		sum += s.Value
		out[i] = sum / float64(i+1)
	}
	return out
}
