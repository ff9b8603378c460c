package deviation

import (
	"math"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestComputePrevDay(t *testing.T) {
	samples := []Sample{
		{Date: day(1), Value: 100},
		{Date: day(2), Value: 130},
		{Date: day(4), Value: 90},
	}
	recs := Compute(samples, Rule{Kind: PrevDay})

	t.Run("first_day_no_baseline", func(t *testing.T) {
		if recs[0].HasBaseline {
			t.Error("day 1 must not have a baseline")
		}
		if recs[0].Pct != 0 {
			t.Errorf("day 1 Pct = %v, want 0", recs[0].Pct)
		}
	})

	t.Run("consecutive_day", func(t *testing.T) {
		rec := At(recs, day(2))
		if rec == nil || !rec.HasBaseline {
			t.Fatal("day 2 should have a prior-day baseline")
		}
		if math.Abs(rec.Pct-30) > 1e-9 {
			t.Errorf("day 2 Pct = %v, want 30", rec.Pct)
		}
	})

	t.Run("gap_breaks_baseline", func(t *testing.T) {
		rec := At(recs, day(4))
		if rec.HasBaseline {
			t.Error("day 4 has no day-3 record; a gap must not supply a baseline")
		}
	})
}

func TestComputeWeekAgo(t *testing.T) {
	samples := []Sample{
		{Date: day(1), Value: 200},
		{Date: day(8), Value: 150},
	}
	recs := Compute(samples, Rule{Kind: WeekAgo})

	rec := At(recs, day(8))
	if rec == nil || !rec.HasBaseline {
		t.Fatal("day 8 should see day 1 as its weekly baseline")
	}
	if math.Abs(rec.Pct-(-25)) > 1e-9 {
		t.Errorf("WoW Pct = %v, want -25", rec.Pct)
	}
}

func TestComputeStaticGoal(t *testing.T) {
	samples := []Sample{{Date: day(1), Value: 6}}

	t.Run("against_goal", func(t *testing.T) {
		recs := Compute(samples, Rule{Kind: StaticGoal, Static: 5})
		if !recs[0].HasBaseline {
			t.Fatal("a nonzero goal is a baseline")
		}
		if math.Abs(recs[0].Pct-20) > 1e-9 {
			t.Errorf("Pct = %v, want 20", recs[0].Pct)
		}
	})

	t.Run("zero_goal_is_no_baseline", func(t *testing.T) {
		recs := Compute(samples, Rule{Kind: StaticGoal, Static: 0})
		if recs[0].HasBaseline {
			t.Error("a zero goal must not count as a baseline")
		}
		if recs[0].Pct != 0 {
			t.Errorf("Pct = %v, want 0", recs[0].Pct)
		}
	})
}

func TestZeroBaselineYieldsZeroPct(t *testing.T) {
	samples := []Sample{
		{Date: day(1), Value: 0},
		{Date: day(2), Value: 500},
	}
	recs := Compute(samples, Rule{Kind: PrevDay})

	rec := At(recs, day(2))
	if !rec.HasBaseline {
		t.Fatal("day 2 has a prior-day record")
	}
	if rec.Pct != 0 {
		t.Errorf("Pct against a zero baseline = %v, want 0", rec.Pct)
	}
}

func TestExpandingMean(t *testing.T) {
	samples := []Sample{
		{Date: day(1), Value: 100},
		{Date: day(2), Value: 200},
		{Date: day(3), Value: 300},
	}
	means := ExpandingMean(samples)

	want := []float64{100, 150, 200}
	for i := range want {
		if math.Abs(means[i]-want[i]) > 1e-9 {
			t.Errorf("mean[%d] = %v, want %v", i, means[i], want[i])
		}
	}
}
