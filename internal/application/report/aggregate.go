// Package report turns a scorecard into the shapes its consumers need:
// the aggregated non-OK alert groups, the HTML email fragment, and the
// delimited-text serialization fed to the narrative-summary collaborator.
package report

import (
	"github.com/adpulse/adpulse/internal/application/pipeline"
	"github.com/adpulse/adpulse/internal/domain/alerts"
)

// Item is one tripped alert: which entity, which check, what it said.
type Item struct {
	Entity string
	Column string
	Status alerts.Status
}

// Group collects the tripped alerts under one parent entity.
type Group struct {
	Parent string
	Items  []Item
}

// Aggregate keeps only rows with at least one non-OK column and groups
// them by parent entity, preserving the scorecard's deterministic order.
// An empty result means nothing needs reporting.
func Aggregate(card *pipeline.Scorecard) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, row := range card.Rows {
		if row.Healthy() {
			continue
		}
		parent := row.Parent
		if parent == "" {
			parent = row.Entity
		}

		gi, ok := index[parent]
		if !ok {
			gi = len(groups)
			index[parent] = gi
			groups = append(groups, Group{Parent: parent})
		}

		statuses := row.Statuses()
		for ci, col := range pipeline.AlertColumns {
			if statuses[ci].IsOK() {
				continue
			}
			groups[gi].Items = append(groups[gi].Items, Item{
				Entity: row.Entity,
				Column: col,
				Status: statuses[ci],
			})
		}
	}
	return groups
}
