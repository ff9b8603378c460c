// Package alerts maps deviation and lag figures to operator-facing status
// labels. Classification is a pure threshold lookup; every label carries
// the numeric magnitude that tripped it.
package alerts

import (
	"fmt"
	"math"

	"github.com/adpulse/adpulse/internal/domain/series"
)

// Status is the categorical result for one (entity, date, check). The OK
// sentinel marks a healthy signal; anything else is an alert description.
type Status string

// OK is the healthy sentinel shared by every check.
const OK Status = "OK"

// IsOK reports whether the status is the healthy sentinel.
func (s Status) IsOK() bool { return s == OK }

// Thresholds is the alert threshold table. All values are percentage
// magnitudes; the sign convention (over vs. under) lives in the classifier,
// not the config. Every threshold is configuration with one canonical
// default; teams tune the lag threshold per deal type.
type Thresholds struct {
	SpendFTDPct       float64 `yaml:"spend_ftd_pct"`       // pacing deviation, both directions
	SpendSpikePct     float64 `yaml:"spend_spike_pct"`     // DoD spend increase only
	ImpressionDoDPct  float64 `yaml:"impression_dod_pct"`  // both directions
	ImpressionWoWPct  float64 `yaml:"impression_wow_pct"`  // both directions
	KPISpikePct       float64 `yaml:"kpi_spike_pct"`       // CPM/CPC/VTR DoD, both directions
	CPMGoalPct        float64 `yaml:"cpm_goal_pct"`        // over goal only
	VTRGoalPct        float64 `yaml:"vtr_goal_pct"`        // under goal only
	ImpressionLagPct  float64 `yaml:"impression_lag_pct"`  // FTD lag, under only
	ASAPUnderspendPct float64 `yaml:"asap_underspend_pct"` // ASAP flights, under only
	DailyImprGoalPct  float64 `yaml:"daily_impr_goal_pct"` // daily goal deviation, both directions
}

// DefaultThresholds is the canonical threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpendFTDPct:       20,
		SpendSpikePct:     25,
		ImpressionDoDPct:  20,
		ImpressionWoWPct:  20,
		KPISpikePct:       20,
		CPMGoalPct:        15,
		VTRGoalPct:        15,
		ImpressionLagPct:  10,
		ASAPUnderspendPct: 20,
		DailyImprGoalPct:  20,
	}
}

// SpendPacing classifies a flight-to-date spend deviation. ASAP flights are
// expected to run hot, so only underspend is ever flagged for them.
func (t Thresholds) SpendPacing(strategy series.PacingStrategy, devPct float64, hasIdeal bool) Status {
	if !hasIdeal {
		return OK
	}
	if strategy == series.PacingASAP {
		if devPct < -t.ASAPUnderspendPct {
			return Status(fmt.Sprintf("Underspending (ASAP) by %.1f%%", math.Abs(devPct)))
		}
		return OK
	}
	if devPct > t.SpendFTDPct {
		return Status(fmt.Sprintf("Overspending by %.1f%%", devPct))
	}
	if devPct < -t.SpendFTDPct {
		return Status(fmt.Sprintf("Underspending by %.1f%%", math.Abs(devPct)))
	}
	return OK
}

// SpendSpike flags a day-over-day spend increase. A missing prior day is a
// healthy first-day condition, not an alert.
func (t Thresholds) SpendSpike(dodPct float64, hasPrev bool) Status {
	if !hasPrev {
		return OK
	}
	if dodPct > t.SpendSpikePct {
		return Status(fmt.Sprintf("DoD Spend Spike +%.1f%%", dodPct))
	}
	return OK
}

// ImpressionDoD flags day-over-day impression deviation in either direction.
func (t Thresholds) ImpressionDoD(pct float64, hasBaseline bool) Status {
	if !hasBaseline || math.Abs(pct) <= t.ImpressionDoDPct {
		return OK
	}
	if pct > 0 {
		return Status(fmt.Sprintf("Impressions up %.1f%% DoD", pct))
	}
	return Status(fmt.Sprintf("Impressions down %.1f%% DoD", math.Abs(pct)))
}

// ImpressionWoW flags week-over-week impression deviation in either direction.
func (t Thresholds) ImpressionWoW(pct float64, hasBaseline bool) Status {
	if !hasBaseline || math.Abs(pct) <= t.ImpressionWoWPct {
		return OK
	}
	if pct > 0 {
		return Status(fmt.Sprintf("Impressions up %.1f%% WoW", pct))
	}
	return Status(fmt.Sprintf("Impressions down %.1f%% WoW", math.Abs(pct)))
}

// KPISpike flags a day-over-day swing in a named KPI (CPM, CPC, VTR).
func (t Thresholds) KPISpike(metric string, pct float64, hasBaseline bool) Status {
	if !hasBaseline || math.Abs(pct) <= t.KPISpikePct {
		return OK
	}
	return Status(fmt.Sprintf("%s Spike %+.1f%% DoD", metric, pct))
}

// GoalDeviation classifies flight-to-date achieved KPI against the declared
// goal. Direction depends on the goal type: a cost KPI alarms high, a rate
// KPI alarms low. Goal types without a direction rule never alert here.
func (t Thresholds) GoalDeviation(goal series.GoalType, pct float64, hasBaseline bool) Status {
	if !hasBaseline {
		return OK
	}
	switch goal {
	case series.GoalCPM:
		if pct > t.CPMGoalPct {
			return Status(fmt.Sprintf("High CPM Alert: %.1f%% over goal", pct))
		}
	case series.GoalVTR:
		if pct < -t.VTRGoalPct {
			return Status(fmt.Sprintf("Low VTR Alert: %.1f%% under goal", math.Abs(pct)))
		}
	}
	return OK
}

// ImpressionLag classifies flight-to-date impression delivery against the
// derived PG target. Only under-delivery is an alert.
func (t Thresholds) ImpressionLag(lagPct float64, hasTarget bool) Status {
	if !hasTarget {
		return OK
	}
	if lagPct < -t.ImpressionLagPct {
		return Status(fmt.Sprintf("PG Lag: under-delivering by %.1f%%", math.Abs(lagPct)))
	}
	return OK
}

// DailyImpressionGoal classifies a single day's impressions against the
// daily run-rate goal.
func (t Thresholds) DailyImpressionGoal(pct float64, hasGoal bool) Status {
	if !hasGoal || math.Abs(pct) <= t.DailyImprGoalPct {
		return OK
	}
	if pct > 0 {
		return Status(fmt.Sprintf("Daily delivery %.1f%% over goal", pct))
	}
	return Status(fmt.Sprintf("Daily delivery %.1f%% under goal", math.Abs(pct)))
}

// Worst returns the first non-OK status in order, or OK. Used where one
// column aggregates several checks.
func Worst(statuses ...Status) Status {
	for _, s := range statuses {
		if !s.IsOK() {
			return s
		}
	}
	return OK
}
