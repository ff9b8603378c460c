// Package csvsource reads delivery-history CSV exports into raw records.
// Source systems disagree on header spelling ("Insertion Order Name" vs
// "Insertion_Order_Name", "Spends" vs "spend"), so each field resolves
// through an alias list against normalized header names.
package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/adpulse/adpulse/internal/domain/series"
)

// Field identifies one raw-record field to bind.
type Field string

const (
	FieldName        Field = "name"
	FieldParent      Field = "parent"
	FieldDate        Field = "date"
	FieldSpend       Field = "spend"
	FieldImpressions Field = "impressions"
	FieldClicks      Field = "clicks"
	FieldViews       Field = "views"
	FieldBudget      Field = "budget"
	FieldImprBudget  Field = "impr_budget"
	FieldFlightStart Field = "flight_start"
	FieldFlightEnd   Field = "flight_end"
	FieldPacing      Field = "pacing"
	FieldGoalType    Field = "goal_type"
	FieldGoalValue   Field = "goal_value"
)

// Schema binds fields to header aliases for one export format.
type Schema struct {
	Name    string
	Aliases map[Field][]string
}

// IOSchema matches insertion-order level exports.
func IOSchema() Schema {
	return Schema{
		Name: "io",
		Aliases: map[Field][]string{
			FieldName:        {"insertion order name", "insertion_order_name", "io_id", "io name"},
			FieldDate:        {"date"},
			FieldSpend:       {"spends", "spend"},
			FieldImpressions: {"impressions"},
			FieldClicks:      {"clicks"},
			FieldViews:       {"complete views (video)", "complete_views", "completed views"},
			FieldBudget:      {"planned budget", "planned_budget"},
			FieldImprBudget:  {"io_impr_budget", "impression budget"},
			FieldFlightStart: {"io start date", "io_start_date"},
			FieldFlightEnd:   {"io end date", "io_end_date"},
			FieldPacing:      {"io_pacing", "io pacing", "pacing"},
			FieldGoalType:    {"insertion_order_goal_type", "io_goal_type", "goal type"},
			FieldGoalValue:   {"insertion_order_goal_value(kpi)", "insertion_order_goal_value", "io_goal_value", "goal value"},
		},
	}
}

// LISchema matches line-item level exports, which nest under an IO.
func LISchema() Schema {
	return Schema{
		Name: "li",
		Aliases: map[Field][]string{
			FieldName:        {"line_item_name", "line item name"},
			FieldParent:      {"insertion_order_name", "insertion order name"},
			FieldDate:        {"date"},
			FieldSpend:       {"li_spends", "spends", "spend"},
			FieldImpressions: {"impressions"},
			FieldClicks:      {"clicks"},
			FieldViews:       {"complete views (video)", "complete_views", "completed views"},
			FieldBudget:      {"io_planned_budget", "planned budget", "planned_budget"},
			FieldImprBudget:  {"impression budget"},
			FieldFlightStart: {"line_item_start_date", "li start date"},
			FieldFlightEnd:   {"line_item_end_date", "li end date"},
			FieldPacing:      {"li_pacing", "io_pacing", "pacing"},
			FieldGoalType:    {"insertion_order_goal_type", "goal type"},
			FieldGoalValue:   {"insertion_order_goal_value", "insertion_order_goal_value(kpi)", "goal value"},
		},
	}
}

// SchemaByName resolves a schema flag value.
func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "io", "":
		return IOSchema(), nil
	case "li":
		return LISchema(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q (want io or li)", name)
	}
}

// normalizeHeader collapses spelling variance: lower case, trimmed,
// underscores folded to spaces.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "_", " ")
	return strings.Join(strings.Fields(h), " ")
}

// bind maps each field to a column index. Only the entity name and date
// are mandatory; any other missing column reads as empty and coerces to 0
// downstream.
func (s Schema) bind(header []string) (map[Field]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}

	cols := make(map[Field]int)
	for field, aliases := range s.Aliases {
		for _, alias := range aliases {
			if i, ok := index[normalizeHeader(alias)]; ok {
				cols[field] = i
				break
			}
		}
	}

	if _, ok := cols[FieldName]; !ok {
		return nil, fmt.Errorf("schema %s: no entity name column found in header", s.Name)
	}
	if _, ok := cols[FieldDate]; !ok {
		return nil, fmt.Errorf("schema %s: no date column found in header", s.Name)
	}
	return cols, nil
}

// Read parses a CSV stream into raw records with the given schema.
func Read(r io.Reader, schema Schema) ([]series.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := schema.bind(header)
	if err != nil {
		return nil, err
	}

	get := func(row []string, f Field) string {
		i, ok := cols[f]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []series.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One malformed line must not abort the batch.
			log.Warn().Err(err).Msg("Skipping malformed CSV line")
			continue
		}
		out = append(out, series.RawRecord{
			Name:        get(row, FieldName),
			Parent:      get(row, FieldParent),
			Date:        get(row, FieldDate),
			Spend:       get(row, FieldSpend),
			Impressions: get(row, FieldImpressions),
			Clicks:      get(row, FieldClicks),
			Views:       get(row, FieldViews),
			Budget:      get(row, FieldBudget),
			ImprBudget:  get(row, FieldImprBudget),
			FlightStart: get(row, FieldFlightStart),
			FlightEnd:   get(row, FieldFlightEnd),
			Pacing:      get(row, FieldPacing),
			GoalType:    get(row, FieldGoalType),
			GoalValue:   get(row, FieldGoalValue),
		})
	}
	return out, nil
}

// ReadFile opens and parses a CSV file.
func ReadFile(path string, schema Schema) ([]series.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Str("schema", schema.Name).Int("rows", len(records)).Msg("CSV source loaded")
	return records, nil
}
