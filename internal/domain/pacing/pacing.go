package pacing

import (
	"time"

	"github.com/adpulse/adpulse/internal/domain/metrics"
	"github.com/adpulse/adpulse/internal/domain/series"
)

// Curve maps time progress (0..1 through the flight) to the fraction of the
// total target that should have been delivered. Strategies are added to the
// curve table, not to branch chains.
type Curve func(progress float64) float64

// asapLagFactor caps the ASAP expectation used for lag checks at a multiple
// of the even run rate. Demanding the full target on day one would flag
// every ASAP flight as lagging for its whole duration.
const asapLagFactor = 2.0

var curves = map[series.PacingStrategy]Curve{
	series.PacingEven: func(p float64) float64 { return p },
	// Front-loaded concave curve: 75% of target at the halfway mark.
	series.PacingAhead: func(p float64) float64 { return p * (2 - p) },
	series.PacingASAP:  func(p float64) float64 { return 1 },
}

var lagCurves = map[series.PacingStrategy]Curve{
	series.PacingEven:  func(p float64) float64 { return p },
	series.PacingAhead: func(p float64) float64 { return p * (2 - p) },
	series.PacingASAP: func(p float64) float64 {
		return clamp01(p * asapLagFactor)
	},
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ElapsedDays is the inclusive day count from flight start through date,
// clamped to [0, flight days].
func ElapsedDays(f series.Flight, date time.Time) int {
	if !f.Valid() {
		return 0
	}
	d := int(date.Sub(f.Start).Hours()/24) + 1
	if d < 0 {
		d = 0
	}
	if total := f.Days(); d > total {
		d = total
	}
	return d
}

// TimeProgress is elapsed days over total flight days, in [0, 1].
func TimeProgress(f series.Flight, date time.Time) float64 {
	total := f.Days()
	if total == 0 {
		return 0
	}
	return float64(ElapsedDays(f, date)) / float64(total)
}

// curveFraction resolves the strategy through the given table, defaulting
// to EVEN for anything unknown.
func curveFraction(table map[series.PacingStrategy]Curve, strategy series.PacingStrategy, progress float64) float64 {
	c, ok := table[strategy]
	if !ok {
		c = table[series.PacingEven]
	}
	return c(clamp01(progress))
}

// IdealSpend is the cumulative spend target for the entity at the given
// date under its pacing strategy. 0 for an invalid flight or budget.
func IdealSpend(e series.Entity, date time.Time) float64 {
	if e.Budget <= 0 || !e.Flight.Valid() {
		return 0
	}
	return e.Budget * curveFraction(curves, e.Pacing, TimeProgress(e.Flight, date))
}

// ImpressionGoal derives the total impression target for PG-style lag
// tracking: the declared impression budget when present, otherwise
// budget / goal CPM x 1000. ok is false when no target can be derived.
func ImpressionGoal(e series.Entity) (float64, bool) {
	if e.ImpressionBudget > 0 {
		return e.ImpressionBudget, true
	}
	if e.Budget > 0 && e.GoalType == series.GoalCPM && e.GoalValue > 0 {
		return e.Budget / e.GoalValue * 1000, true
	}
	return 0, false
}

// IdealImpressions is the cumulative impression target at the given date.
// ASAP uses the capped lag curve rather than the full-target-immediately
// spend curve.
func IdealImpressions(e series.Entity, date time.Time) (float64, bool) {
	goal, ok := ImpressionGoal(e)
	if !ok || !e.Flight.Valid() {
		return 0, false
	}
	return goal * curveFraction(lagCurves, e.Pacing, TimeProgress(e.Flight, date)), true
}

// Point is one date of pacing tracking for a single measure (spend or
// impressions) of a single entity.
type Point struct {
	Date       time.Time
	Actual     float64 // raw value for the day
	Cumulative float64 // flight-to-date actual
	Ideal      float64 // flight-to-date target
	HasIdeal   bool    // false when no target could be derived

	FTDDeviationPct float64 // (cumulative - ideal) / ideal x 100, 0 without a target

	DoDPct  float64 // vs. the immediately preceding calendar date, 0 without one
	HasPrev bool
}

// track walks an entity's sorted rows accumulating one measure. The running
// sum starts fresh here per entity; it can never bleed across entities
// because each call sees exactly one series.
func track(rows []metrics.Row, value func(metrics.Row) float64, ideal func(time.Time) (float64, bool)) []Point {
	points := make([]Point, len(rows))
	byDate := make(map[time.Time]float64, len(rows))
	var cum float64

	for i, row := range rows {
		v := value(row)
		cum += v
		byDate[row.Date] = v

		p := Point{Date: row.Date, Actual: v, Cumulative: cum}

		if target, ok := ideal(row.Date); ok {
			p.HasIdeal = true
			p.Ideal = target
			if target != 0 {
				p.FTDDeviationPct = (cum - target) / target * 100
			}
		}

		// DoD compares against the previous calendar day, not the previous
		// record: a gap in delivery must not be mistaken for a baseline.
		if prev, ok := byDate[row.Date.AddDate(0, 0, -1)]; ok {
			p.HasPrev = true
			if prev != 0 {
				p.DoDPct = (v - prev) / prev * 100
			}
		}

		points[i] = p
	}
	return points
}

// TrackSpend produces spend pacing points for one entity.
func TrackSpend(e series.Entity, rows []metrics.Row) []Point {
	return track(rows,
		func(r metrics.Row) float64 { return r.Spend },
		func(d time.Time) (float64, bool) {
			target := IdealSpend(e, d)
			return target, target > 0 || (e.Budget > 0 && e.Flight.Valid())
		})
}

// TrackImpressions produces impression delivery points for one entity.
func TrackImpressions(e series.Entity, rows []metrics.Row) []Point {
	return track(rows,
		func(r metrics.Row) float64 { return r.Impressions },
		func(d time.Time) (float64, bool) { return IdealImpressions(e, d) })
}

// At returns the point for the given date, or nil.
func At(points []Point, date time.Time) *Point {
	for i := range points {
		if points[i].Date.Equal(date) {
			return &points[i]
		}
	}
	return nil
}
