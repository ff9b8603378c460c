package pacing

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/adpulse/adpulse/internal/domain/metrics"
	"github.com/adpulse/adpulse/internal/domain/series"
)

func day(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

func tenDayFlight() series.Flight {
	return series.Flight{Start: day(1), End: day(10)}
}

func approx(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", msg, got, want)
	}
}

func TestTimeProgress(t *testing.T) {
	f := tenDayFlight()

	approx(t, TimeProgress(f, day(1)), 0.1, "progress on day 1")
	approx(t, TimeProgress(f, day(5)), 0.5, "progress on day 5")
	approx(t, TimeProgress(f, day(10)), 1.0, "progress on day 10")

	t.Run("clamped_outside_flight", func(t *testing.T) {
		approx(t, TimeProgress(f, day(15)), 1.0, "progress after flight end")
		before := time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)
		approx(t, TimeProgress(f, before), 0, "progress before flight start")
	})

	t.Run("invalid_flight", func(t *testing.T) {
		approx(t, TimeProgress(series.Flight{}, day(5)), 0, "progress without flight")
	})
}

func TestIdealSpend(t *testing.T) {
	ent := series.Entity{Budget: 1000, Flight: tenDayFlight()}

	t.Run("even_linear", func(t *testing.T) {
		ent.Pacing = series.PacingEven
		approx(t, IdealSpend(ent, day(2)), 200, "even ideal on day 2")
		approx(t, IdealSpend(ent, day(10)), 1000, "even ideal at flight end")
	})

	t.Run("ahead_front_loaded", func(t *testing.T) {
		ent.Pacing = series.PacingAhead
		// p(2-p): 75% of budget at the halfway mark.
		approx(t, IdealSpend(ent, day(5)), 750, "ahead ideal at halfway")
		approx(t, IdealSpend(ent, day(10)), 1000, "ahead ideal at flight end")
	})

	t.Run("asap_full_target_immediately", func(t *testing.T) {
		ent.Pacing = series.PacingASAP
		approx(t, IdealSpend(ent, day(1)), 1000, "asap ideal on day 1")
	})

	t.Run("no_budget_no_target", func(t *testing.T) {
		approx(t, IdealSpend(series.Entity{Flight: tenDayFlight()}, day(5)), 0, "ideal without budget")
	})
}

func TestImpressionGoal(t *testing.T) {
	t.Run("declared_budget_wins", func(t *testing.T) {
		goal, ok := ImpressionGoal(series.Entity{ImpressionBudget: 500000, Budget: 1000, GoalType: series.GoalCPM, GoalValue: 5})
		if !ok || goal != 500000 {
			t.Errorf("goal = %v ok = %v, want 500000 true", goal, ok)
		}
	})

	t.Run("derived_from_cpm_goal", func(t *testing.T) {
		goal, ok := ImpressionGoal(series.Entity{Budget: 1000, GoalType: series.GoalCPM, GoalValue: 5})
		if !ok || goal != 200000 {
			t.Errorf("goal = %v ok = %v, want 200000 true", goal, ok)
		}
	})

	t.Run("non_cpm_goal_underivable", func(t *testing.T) {
		if _, ok := ImpressionGoal(series.Entity{Budget: 1000, GoalType: series.GoalCPC, GoalValue: 2}); ok {
			t.Error("CPC goal should not derive an impression target")
		}
	})
}

func TestIdealImpressionsASAPCapped(t *testing.T) {
	ent := series.Entity{
		ImpressionBudget: 200000,
		Pacing:           series.PacingASAP,
		Flight:           tenDayFlight(),
	}

	// The lag expectation runs at twice the even rate, capped at the goal.
	got, ok := IdealImpressions(ent, day(3))
	if !ok {
		t.Fatal("expected a derivable target")
	}
	approx(t, got, 120000, "asap lag target at p=0.3")

	got, _ = IdealImpressions(ent, day(8))
	approx(t, got, 200000, "asap lag target capped at goal")
}

func metricRows(vals map[int]float64) []metrics.Row {
	days := make([]int, 0, len(vals))
	for d := range vals {
		days = append(days, d)
	}
	sort.Ints(days)
	rows := make([]metrics.Row, len(days))
	for i, d := range days {
		rows[i] = metrics.Row{DailyRecord: series.DailyRecord{Date: day(d), Spend: vals[d]}}
	}
	return rows
}

func TestTrackSpend(t *testing.T) {
	ent := series.Entity{Budget: 1000, Pacing: series.PacingEven, Flight: tenDayFlight()}

	t.Run("cumulative_and_deviation", func(t *testing.T) {
		pts := TrackSpend(ent, metricRows(map[int]float64{1: 100, 2: 130}))

		p := At(pts, day(2))
		if p == nil {
			t.Fatal("no point for day 2")
		}
		approx(t, p.Cumulative, 230, "cumulative on day 2")
		approx(t, p.Ideal, 200, "ideal on day 2")
		approx(t, p.FTDDeviationPct, 15, "FTD deviation on day 2")
		if !p.HasPrev {
			t.Error("day 2 should have a prior-day baseline")
		}
		approx(t, p.DoDPct, 30, "DoD on day 2")
	})

	t.Run("first_day_has_no_baseline", func(t *testing.T) {
		pts := TrackSpend(ent, metricRows(map[int]float64{1: 100}))
		if pts[0].HasPrev {
			t.Error("first day must not claim a DoD baseline")
		}
		if pts[0].DoDPct != 0 {
			t.Errorf("first-day DoD = %v, want 0", pts[0].DoDPct)
		}
	})

	t.Run("gap_is_not_a_baseline", func(t *testing.T) {
		pts := TrackSpend(ent, metricRows(map[int]float64{1: 100, 3: 150}))
		p := At(pts, day(3))
		if p.HasPrev {
			t.Error("a record two days back must not serve as a DoD baseline")
		}
		approx(t, p.Cumulative, 250, "cumulative still accumulates across the gap")
	})

	t.Run("no_target_without_flight", func(t *testing.T) {
		bare := series.Entity{Budget: 1000}
		pts := TrackSpend(bare, metricRows(map[int]float64{1: 100}))
		if pts[0].HasIdeal {
			t.Error("no ideal without a valid flight window")
		}
	})
}

func TestTrackImpressions(t *testing.T) {
	ent := series.Entity{
		Budget:    1000,
		GoalType:  series.GoalCPM,
		GoalValue: 5,
		Pacing:    series.PacingEven,
		Flight:    tenDayFlight(),
	}

	rows := []metrics.Row{
		{DailyRecord: series.DailyRecord{Date: day(1), Impressions: 10000}},
		{DailyRecord: series.DailyRecord{Date: day(2), Impressions: 20000}},
	}
	pts := TrackImpressions(ent, rows)

	p := At(pts, day(2))
	if p == nil || !p.HasIdeal {
		t.Fatal("expected a derivable impression target on day 2")
	}
	approx(t, p.Cumulative, 30000, "cumulative impressions")
	// Goal 200000 over 10 days, even: 40000 by day 2.
	approx(t, p.Ideal, 40000, "ideal impressions on day 2")
	approx(t, p.FTDDeviationPct, -25, "impression lag on day 2")
}

func TestAt(t *testing.T) {
	pts := []Point{{Date: day(1)}, {Date: day(2)}}
	if At(pts, day(2)) == nil {
		t.Error("At should find day 2")
	}
	if At(pts, day(3)) != nil {
		t.Error("At should return nil for an absent date")
	}
}
