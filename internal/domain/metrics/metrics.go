package metrics

import (
	"github.com/adpulse/adpulse/internal/domain/series"
)

// SafeDiv divides num by den, returning 0 on a zero denominator. Every
// derived ratio in the engine goes through this so a day with no
// impressions or clicks can never produce Inf/NaN.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// CPM is cost per thousand impressions.
func CPM(spend, impressions float64) float64 {
	return SafeDiv(spend, impressions) * 1000
}

// CPC is cost per click.
func CPC(spend, clicks float64) float64 {
	return SafeDiv(spend, clicks)
}

// CPV is cost per completed view.
func CPV(spend, views float64) float64 {
	return SafeDiv(spend, views)
}

// CTR is the click-through rate as a percentage.
func CTR(clicks, impressions float64) float64 {
	return SafeDiv(clicks, impressions) * 100
}

// VTR is the completed-view rate as a percentage.
func VTR(views, impressions float64) float64 {
	return SafeDiv(views, impressions) * 100
}

// Row is a daily record annotated with its derived metrics. A pure function
// of the single record; no cross-row state.
type Row struct {
	series.DailyRecord
	CPM         float64
	CPC         float64
	CPV         float64
	CTR         float64
	VTR         float64
	AchievedKPI float64
}

// kpiFormulas dispatches achieved-KPI selection by goal type. New goal
// types are added here, not in branch chains.
var kpiFormulas = map[series.GoalType]func(r series.DailyRecord) float64{
	series.GoalCPM: func(r series.DailyRecord) float64 { return CPM(r.Spend, r.Impressions) },
	series.GoalCPC: func(r series.DailyRecord) float64 { return CPC(r.Spend, r.Clicks) },
	series.GoalCPV: func(r series.DailyRecord) float64 { return CPV(r.Spend, r.Views) },
	series.GoalVTR: func(r series.DailyRecord) float64 { return VTR(r.Views, r.Impressions) },
}

// AchievedKPI computes the KPI the entity is bought against for one record.
// Unrecognized goal types yield 0.
func AchievedKPI(goal series.GoalType, r series.DailyRecord) float64 {
	if f, ok := kpiFormulas[goal]; ok {
		return f(r)
	}
	return 0
}

// Compute derives per-row metrics for a whole entity series.
func Compute(es series.EntitySeries) []Row {
	rows := make([]Row, len(es.Records))
	for i, rec := range es.Records {
		rows[i] = Row{
			DailyRecord: rec,
			CPM:         CPM(rec.Spend, rec.Impressions),
			CPC:         CPC(rec.Spend, rec.Clicks),
			CPV:         CPV(rec.Spend, rec.Views),
			CTR:         CTR(rec.Clicks, rec.Impressions),
			VTR:         VTR(rec.Views, rec.Impressions),
			AchievedKPI: AchievedKPI(es.Entity.GoalType, rec),
		}
	}
	return rows
}
