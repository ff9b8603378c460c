package report

import (
	"fmt"
	"strings"

	"github.com/adpulse/adpulse/internal/application/pipeline"
)

// promptPreamble is the fixed analysis instruction prepended to the
// serialized alert table for the narrative-summary collaborator.
const promptPreamble = `You are a digital advertising delivery analyst. The table below lists
campaign entities flagged by an automated anomaly scan for a single day.
Columns are pipe-delimited; the alert columns contain either OK or a
description with the deviation magnitude.

For each parent entity provide:
1. A one-line diagnosis of the most likely root cause.
2. The recommended operator action, ordered by urgency.
3. Any alerts that look like data artifacts rather than real issues.

Alert table:
`

// RenderTable serializes the scorecard's alerting rows as pipe-delimited
// text: a header, then one line per row. Healthy rows are omitted; an
// entirely healthy scorecard yields "".
func RenderTable(card *pipeline.Scorecard) string {
	var lines []string
	for _, row := range card.Rows {
		if row.Healthy() {
			continue
		}
		fields := []string{
			row.Date.Format("2006-01-02"),
			row.Parent,
			row.Entity,
			fmt.Sprintf("%.2f", row.Spend),
			fmt.Sprintf("%.0f", row.Impressions),
			fmt.Sprintf("%.2f", row.CumSpend),
			fmt.Sprintf("%.2f", row.IdealSpend),
		}
		for _, s := range row.Statuses() {
			fields = append(fields, string(s))
		}
		lines = append(lines, strings.Join(fields, "|"))
	}
	if len(lines) == 0 {
		return ""
	}

	header := append([]string{
		"Date", "Parent", "Entity", "Spend", "Impressions", "FTD Spend", "FTD Ideal",
	}, pipeline.AlertColumns...)
	return strings.Join(append([]string{strings.Join(header, "|")}, lines...), "\n") + "\n"
}

// BuildPrompt concatenates the fixed preamble with the serialized alert
// table. "" when there is nothing to analyze.
func BuildPrompt(card *pipeline.Scorecard) string {
	table := RenderTable(card)
	if table == "" {
		return ""
	}
	return promptPreamble + table
}
