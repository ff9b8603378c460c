// Package pipeline runs the full anomaly pass for one target date:
// preparation output -> derived metrics -> pacing and deviation tracking ->
// alert classification -> scorecard. The run is a pure function of
// (dataset, target date, config); identical inputs produce identical
// scorecards.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adpulse/adpulse/internal/domain/alerts"
	"github.com/adpulse/adpulse/internal/domain/deviation"
	"github.com/adpulse/adpulse/internal/domain/metrics"
	"github.com/adpulse/adpulse/internal/domain/pacing"
	"github.com/adpulse/adpulse/internal/domain/series"
)

// Canonical alert column names, in report order.
const (
	ColSpend      = "Spend Alert"
	ColImpression = "Impression Alert"
	ColKPI        = "KPI Alert"
	ColGoal       = "Goal Alert"
	ColDealHealth = "Deal Health"
)

// AlertColumns is the ordered column list every scorecard row carries.
var AlertColumns = []string{ColSpend, ColImpression, ColKPI, ColGoal, ColDealHealth}

// Config parameterizes a run.
type Config struct {
	Thresholds alerts.Thresholds
}

// Row is one entity's scorecard for the target date: the alert status per
// column plus the figures behind them for operator context.
type Row struct {
	Entity string
	Parent string
	Date   time.Time

	Spend          float64
	Impressions    float64
	CumSpend       float64
	IdealSpend     float64
	SpendFTDPct    float64
	AvgImpressions float64 // expanding mean through the target date
	AchievedKPIFTD float64
	GoalValue      float64

	SpendAlert      alerts.Status
	ImpressionAlert alerts.Status
	KPIAlert        alerts.Status
	GoalAlert       alerts.Status
	DealHealth      alerts.Status
}

// Statuses returns the row's alert columns in canonical order.
func (r Row) Statuses() []alerts.Status {
	return []alerts.Status{r.SpendAlert, r.ImpressionAlert, r.KPIAlert, r.GoalAlert, r.DealHealth}
}

// Healthy reports whether every column is the OK sentinel.
func (r Row) Healthy() bool {
	for _, s := range r.Statuses() {
		if !s.IsOK() {
			return false
		}
	}
	return true
}

// Scorecard is the output of one run. NoData distinguishes "the target date
// had no rows at all" from "every entity was healthy" (Rows all OK).
type Scorecard struct {
	RunID      string
	TargetDate time.Time
	NoData     bool
	Rows       []Row
}

// Run evaluates every entity in the dataset for the target date. Entities
// without a record on that date are skipped; a dataset with no record on
// the date at all yields NoData.
func Run(ds *series.Dataset, target time.Time, cfg Config) *Scorecard {
	target = time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	card := &Scorecard{
		RunID:      uuid.NewString(),
		TargetDate: target,
	}

	for i := range ds.Entities {
		if row, ok := evaluateEntity(ds.Entities[i], target, cfg.Thresholds); ok {
			card.Rows = append(card.Rows, row)
		}
	}

	if len(card.Rows) == 0 && !ds.HasDate(target) {
		card.NoData = true
		log.Warn().Str("target_date", target.Format("2006-01-02")).Msg("No delivery rows for target date")
		return card
	}

	alerting := 0
	for _, r := range card.Rows {
		if !r.Healthy() {
			alerting++
		}
	}
	log.Info().
		Str("run_id", card.RunID).
		Str("target_date", target.Format("2006-01-02")).
		Int("entities", len(card.Rows)).
		Int("alerting", alerting).
		Msg("Scorecard computed")

	return card
}

// evaluateEntity computes all checks for one entity at the target date.
// All cumulative and shift math stays inside this call, so series can never
// bleed across entities.
func evaluateEntity(es series.EntitySeries, target time.Time, th alerts.Thresholds) (Row, bool) {
	rows := metrics.Compute(es)

	var targetRow *metrics.Row
	targetIdx := -1
	for i := range rows {
		if rows[i].Date.Equal(target) {
			targetRow = &rows[i]
			targetIdx = i
			break
		}
	}
	if targetRow == nil {
		return Row{}, false
	}

	ent := es.Entity
	out := Row{
		Entity:      ent.Name,
		Parent:      ent.Parent,
		Date:        target,
		Spend:       targetRow.Spend,
		Impressions: targetRow.Impressions,
		GoalValue:   ent.GoalValue,
	}

	// Spend: FTD pacing deviation plus DoD spike.
	spendPts := pacing.TrackSpend(ent, rows)
	if p := pacing.At(spendPts, target); p != nil {
		out.CumSpend = p.Cumulative
		out.IdealSpend = p.Ideal
		out.SpendFTDPct = p.FTDDeviationPct
		out.SpendAlert = alerts.Worst(
			th.SpendPacing(ent.Pacing, p.FTDDeviationPct, p.HasIdeal),
			th.SpendSpike(p.DoDPct, p.HasPrev),
		)
	} else {
		out.SpendAlert = alerts.OK
	}

	// Impressions: DoD, WoW, and the daily run-rate goal.
	imprSamples := samplesOf(rows, func(r metrics.Row) float64 { return r.Impressions })
	imprDoD := deviation.Compute(imprSamples, deviation.Rule{Kind: deviation.PrevDay})
	imprWoW := deviation.Compute(imprSamples, deviation.Rule{Kind: deviation.WeekAgo})
	out.AvgImpressions = deviation.ExpandingMean(imprSamples)[targetIdx]

	dodStatus, wowStatus := alerts.OK, alerts.OK
	if rec := deviation.At(imprDoD, target); rec != nil {
		dodStatus = th.ImpressionDoD(rec.Pct, rec.HasBaseline)
	}
	if rec := deviation.At(imprWoW, target); rec != nil {
		wowStatus = th.ImpressionWoW(rec.Pct, rec.HasBaseline)
	}
	out.ImpressionAlert = alerts.Worst(dodStatus, wowStatus, dailyGoalStatus(ent, targetRow.Impressions, th))

	// KPI swings: DoD deviation per derived metric.
	out.KPIAlert = alerts.Worst(
		kpiSpikeStatus(rows, target, "CPM", func(r metrics.Row) float64 { return r.CPM }, th),
		kpiSpikeStatus(rows, target, "CPC", func(r metrics.Row) float64 { return r.CPC }, th),
		kpiSpikeStatus(rows, target, "VTR", func(r metrics.Row) float64 { return r.VTR }, th),
	)

	// Goal: flight-to-date achieved KPI vs. the static goal value.
	ftdKPI, hasKPI := ftdAchievedKPI(ent, rows, targetIdx)
	out.AchievedKPIFTD = ftdKPI
	goalRecs := deviation.Compute(
		[]deviation.Sample{{Date: target, Value: ftdKPI}},
		deviation.Rule{Kind: deviation.StaticGoal, Static: ent.GoalValue},
	)
	out.GoalAlert = th.GoalDeviation(ent.GoalType, goalRecs[0].Pct, goalRecs[0].HasBaseline && hasKPI)

	// Deal health: PG impression lag against the derived target.
	imprPts := pacing.TrackImpressions(ent, rows)
	out.DealHealth = alerts.OK
	if p := pacing.At(imprPts, target); p != nil {
		out.DealHealth = th.ImpressionLag(p.FTDDeviationPct, p.HasIdeal)
	}

	return out, true
}

func samplesOf(rows []metrics.Row, value func(metrics.Row) float64) []deviation.Sample {
	out := make([]deviation.Sample, len(rows))
	for i, r := range rows {
		out[i] = deviation.Sample{Date: r.Date, Value: value(r)}
	}
	return out
}

func kpiSpikeStatus(rows []metrics.Row, target time.Time, name string, value func(metrics.Row) float64, th alerts.Thresholds) alerts.Status {
	recs := deviation.Compute(samplesOf(rows, value), deviation.Rule{Kind: deviation.PrevDay})
	if rec := deviation.At(recs, target); rec != nil {
		return th.KPISpike(name, rec.Pct, rec.HasBaseline)
	}
	return alerts.OK
}

// dailyGoalStatus checks one day's impressions against the flat daily slice
// of the derived impression goal.
func dailyGoalStatus(ent series.Entity, actual float64, th alerts.Thresholds) alerts.Status {
	goal, ok := pacing.ImpressionGoal(ent)
	days := ent.Flight.Days()
	if !ok || days == 0 {
		return th.DailyImpressionGoal(0, false)
	}
	daily := goal / float64(days)
	if daily == 0 {
		return th.DailyImpressionGoal(0, false)
	}
	return th.DailyImpressionGoal((actual-daily)/daily*100, true)
}

// ftdAchievedKPI computes the achieved KPI over cumulative flight-to-date
// totals through the target index.
func ftdAchievedKPI(ent series.Entity, rows []metrics.Row, targetIdx int) (float64, bool) {
	var cum series.DailyRecord
	for i := 0; i <= targetIdx; i++ {
		cum.Spend += rows[i].Spend
		cum.Impressions += rows[i].Impressions
		cum.Clicks += rows[i].Clicks
		cum.Views += rows[i].Views
	}
	if ent.GoalType == series.GoalUnknown {
		return 0, false
	}
	return metrics.AchievedKPI(ent.GoalType, cum), true
}
