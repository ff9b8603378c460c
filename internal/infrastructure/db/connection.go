package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/adpulse/adpulse/internal/domain/series"
)

// Manager owns the connection pool for the delivery-history store.
type Manager struct {
	db     *sqlx.DB
	config Config
}

// NewManager opens and verifies a pooled connection. A disabled config
// yields a manager with no connection; callers check IsEnabled.
func NewManager(config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{config: config}, nil
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Manager{db: db, config: config}, nil
}

// IsEnabled reports whether a live connection is available.
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled && m.db != nil
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// deliveryRow maps one row of the delivery table. Everything is selected
// as text; the preparation layer owns all coercion, exactly as it does for
// CSV sources.
type deliveryRow struct {
	Name        string `db:"entity_name"`
	Parent      string `db:"parent_name"`
	Date        string `db:"record_date"`
	Spend       string `db:"spend"`
	Impressions string `db:"impressions"`
	Clicks      string `db:"clicks"`
	Views       string `db:"completed_views"`
	Budget      string `db:"planned_budget"`
	ImprBudget  string `db:"impression_budget"`
	FlightStart string `db:"flight_start"`
	FlightEnd   string `db:"flight_end"`
	Pacing      string `db:"pacing"`
	GoalType    string `db:"goal_type"`
	GoalValue   string `db:"goal_value"`
}

// FetchRecords loads raw delivery rows up to and including the target
// date. History before the date is required for every shift and
// cumulative computation downstream.
func (m *Manager) FetchRecords(ctx context.Context, through time.Time) ([]series.RawRecord, error) {
	if !m.IsEnabled() {
		return nil, fmt.Errorf("database source is not enabled")
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT entity_name,
		       COALESCE(parent_name, '') AS parent_name,
		       record_date::text,
		       spend::text, impressions::text, clicks::text, completed_views::text,
		       planned_budget::text,
		       COALESCE(impression_budget, 0)::text AS impression_budget,
		       flight_start::text, flight_end::text,
		       pacing, goal_type, goal_value::text
		FROM %s
		WHERE record_date <= $1
		ORDER BY entity_name, record_date`, m.config.Table)

	var rows []deliveryRow
	if err := m.db.SelectContext(ctx, &rows, query, through.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to fetch delivery rows: %w", err)
	}

	out := make([]series.RawRecord, len(rows))
	for i, r := range rows {
		out[i] = series.RawRecord{
			Name:        r.Name,
			Parent:      r.Parent,
			Date:        r.Date,
			Spend:       r.Spend,
			Impressions: r.Impressions,
			Clicks:      r.Clicks,
			Views:       r.Views,
			Budget:      r.Budget,
			ImprBudget:  r.ImprBudget,
			FlightStart: r.FlightStart,
			FlightEnd:   r.FlightEnd,
			Pacing:      r.Pacing,
			GoalType:    r.GoalType,
			GoalValue:   r.GoalValue,
		}
	}
	return out, nil
}
