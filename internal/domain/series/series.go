package series

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// GoalType identifies the KPI an entity is bought against.
type GoalType string

const (
	GoalCPM     GoalType = "CPM"
	GoalCPC     GoalType = "CPC"
	GoalCPV     GoalType = "CPV"
	GoalVTR     GoalType = "VTR"
	GoalUnknown GoalType = ""
)

// PacingStrategy is the intended spend-delivery curve over a flight window.
type PacingStrategy string

const (
	PacingEven  PacingStrategy = "EVEN"
	PacingAhead PacingStrategy = "AHEAD"
	PacingASAP  PacingStrategy = "ASAP"
)

// Flight is an inclusive delivery window. A zero Start or End marks an
// unparseable or missing flight date.
type Flight struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether both boundaries parsed and the window is not inverted.
func (f Flight) Valid() bool {
	return !f.Start.IsZero() && !f.End.IsZero() && !f.End.Before(f.Start)
}

// Days returns the inclusive flight-day count, 0 for an invalid window.
func (f Flight) Days() int {
	if !f.Valid() {
		return 0
	}
	return int(f.End.Sub(f.Start).Hours()/24) + 1
}

// Entity is a delivery unit: an Insertion Order or one of its Line Items.
type Entity struct {
	Name             string
	Parent           string // owning IO for line items, empty at IO level
	Budget           float64
	ImpressionBudget float64
	Pacing           PacingStrategy
	Flight           Flight
	GoalType         GoalType
	GoalValue        float64
}

// DailyRecord is one day of observed delivery for an entity. Exactly one
// record exists per (entity, date) after preparation.
type DailyRecord struct {
	Date        time.Time
	Spend       float64
	Impressions float64
	Clicks      float64
	Views       float64
}

// EntitySeries is an entity with its chronologically ascending records.
type EntitySeries struct {
	Entity  Entity
	Records []DailyRecord
}

// Dataset is the prepared input table: entities sorted by name, each with a
// sorted, one-row-per-day series.
type Dataset struct {
	Entities []EntitySeries
}

// Lookup returns the series for the named entity, or nil.
func (d *Dataset) Lookup(name string) *EntitySeries {
	for i := range d.Entities {
		if d.Entities[i].Entity.Name == name {
			return &d.Entities[i]
		}
	}
	return nil
}

// HasDate reports whether any entity has a record on the given date.
func (d *Dataset) HasDate(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	for i := range d.Entities {
		for _, r := range d.Entities[i].Records {
			if r.Date.Equal(day) {
				return true
			}
		}
	}
	return false
}

// RawRecord is one untyped input row as delivered by a source adapter.
// Every field is a string; Prepare owns all coercion.
type RawRecord struct {
	Name        string
	Parent      string
	Date        string
	Spend       string
	Impressions string
	Clicks      string
	Views       string
	Budget      string
	ImprBudget  string
	FlightStart string
	FlightEnd   string
	Pacing      string
	GoalType    string
	GoalValue   string
}

// Stats accounts for what preparation had to repair or discard.
type Stats struct {
	Rows        int // input rows seen
	Dropped     int // rows discarded for an unparseable identity key
	BadNumerics int // numeric fields coerced to 0
	BadDates    int // non-key date fields left as the zero sentinel
}

// dateLayouts are tried in order. US slash-dates are the dominant source
// format, ISO the canonical one.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02T15:04:05Z07:00",
}

// ParseDate coerces a date string to a UTC midnight time. The zero time is
// the sentinel for an unparseable value.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// parseNumber coerces a numeric string, tolerating currency commas.
// Unparseable values yield 0 with ok=false.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePacing maps a pacing string to a strategy. Unrecognized values fall
// back to EVEN so a typo in one row never aborts a run.
func ParsePacing(s string) PacingStrategy {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(l, "ahead"):
		return PacingAhead
	case strings.Contains(l, "asap"):
		return PacingASAP
	case strings.Contains(l, "even"), l == "":
		return PacingEven
	default:
		log.Warn().Str("pacing", s).Msg("Unrecognized pacing strategy, treating as EVEN")
		return PacingEven
	}
}

// ParseGoalType maps a goal-type string to a GoalType. Unrecognized values
// yield GoalUnknown; the metric calculator resolves that to a 0 achieved KPI.
func ParseGoalType(s string) GoalType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CPM":
		return GoalCPM
	case "CPC":
		return GoalCPC
	case "CPV":
		return GoalCPV
	case "VTR":
		return GoalVTR
	default:
		return GoalUnknown
	}
}

// Prepare turns raw source rows into a Dataset ready for shift/cumulative
// math: identity-keyed rows only, numerics coerced, one aggregated row per
// (entity, date), records ascending by date, entities ascending by name.
// Rows without a parseable entity name or date are dropped and counted,
// never fatal.
func Prepare(raw []RawRecord) (*Dataset, Stats) {
	stats := Stats{Rows: len(raw)}

	type dayKey struct {
		name string
		date time.Time
	}
	entities := make(map[string]*Entity)
	attrDates := make(map[string]time.Time)
	days := make(map[dayKey]*DailyRecord)

	countNum := func(s string) float64 {
		v, ok := parseNumber(s)
		if !ok && strings.TrimSpace(s) != "" {
			stats.BadNumerics++
		}
		return v
	}

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		date := ParseDate(r.Date)
		if name == "" || date.IsZero() {
			stats.Dropped++
			log.Warn().Str("entity", r.Name).Str("date", r.Date).Msg("Dropping row with unparseable identity key")
			continue
		}

		ent, seen := entities[name]
		if !seen {
			start := ParseDate(r.FlightStart)
			end := ParseDate(r.FlightEnd)
			if start.IsZero() && strings.TrimSpace(r.FlightStart) != "" {
				stats.BadDates++
			}
			if end.IsZero() && strings.TrimSpace(r.FlightEnd) != "" {
				stats.BadDates++
			}
			ent = &Entity{
				Name:             name,
				Parent:           strings.TrimSpace(r.Parent),
				Budget:           countNum(r.Budget),
				ImpressionBudget: countNum(r.ImprBudget),
				Pacing:           ParsePacing(r.Pacing),
				Flight:           Flight{Start: start, End: end},
				GoalType:         ParseGoalType(r.GoalType),
				GoalValue:        countNum(r.GoalValue),
			}
			entities[name] = ent
			attrDates[name] = date
		} else if !date.Before(attrDates[name]) {
			// Settings can change mid-flight (budget revisions, paused
			// pacing); the latest-dated row's attributes win.
			ent.Parent = strings.TrimSpace(r.Parent)
			ent.Budget, _ = parseNumber(r.Budget)
			ent.ImpressionBudget, _ = parseNumber(r.ImprBudget)
			ent.Pacing = ParsePacing(r.Pacing)
			ent.Flight = Flight{Start: ParseDate(r.FlightStart), End: ParseDate(r.FlightEnd)}
			ent.GoalType = ParseGoalType(r.GoalType)
			ent.GoalValue, _ = parseNumber(r.GoalValue)
			attrDates[name] = date
		}

		// Same-day rows (e.g. one per placement) are summed so shift and
		// cumulative steps always see one row per (entity, date).
		key := dayKey{name: name, date: date}
		rec, ok := days[key]
		if !ok {
			rec = &DailyRecord{Date: date}
			days[key] = rec
		}
		rec.Spend += countNum(r.Spend)
		rec.Impressions += countNum(r.Impressions)
		rec.Clicks += countNum(r.Clicks)
		rec.Views += countNum(r.Views)
	}

	byEntity := make(map[string][]DailyRecord, len(entities))
	for key, rec := range days {
		byEntity[key.name] = append(byEntity[key.name], *rec)
	}

	ds := &Dataset{Entities: make([]EntitySeries, 0, len(entities))}
	for name, ent := range entities {
		recs := byEntity[name]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
		ds.Entities = append(ds.Entities, EntitySeries{Entity: *ent, Records: recs})
	}
	sort.Slice(ds.Entities, func(i, j int) bool {
		return ds.Entities[i].Entity.Name < ds.Entities[j].Entity.Name
	})

	if stats.Dropped > 0 || stats.BadNumerics > 0 {
		log.Warn().
			Int("rows", stats.Rows).
			Int("dropped", stats.Dropped).
			Int("bad_numerics", stats.BadNumerics).
			Msg("Dataset prepared with repairs")
	}

	return ds, stats
}
