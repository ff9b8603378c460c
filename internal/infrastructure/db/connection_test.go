package db

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func mockManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	cfg := DefaultConfig()
	cfg.Enabled = true
	return &Manager{db: sqlx.NewDb(mockDB, "sqlmock"), config: cfg}, mock
}

func TestNewManagerDisabled(t *testing.T) {
	mgr, err := NewManager(DefaultConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if mgr.IsEnabled() {
		t.Error("disabled config should not report enabled")
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Close on a disabled manager: %v", err)
	}
}

func TestNewManagerEnabledWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	if _, err := NewManager(cfg); err == nil {
		t.Error("enabled config without a DSN should error")
	}
}

func TestFetchRecordsDisabled(t *testing.T) {
	mgr := &Manager{config: DefaultConfig()}
	if _, err := mgr.FetchRecords(context.Background(), time.Now()); err == nil {
		t.Error("fetch on a disabled manager should error")
	}
}

func TestFetchRecordsMapsRows(t *testing.T) {
	mgr, mock := mockManager(t)

	cols := []string{
		"entity_name", "parent_name", "record_date",
		"spend", "impressions", "clicks", "completed_views",
		"planned_budget", "impression_budget",
		"flight_start", "flight_end", "pacing", "goal_type", "goal_value",
	}
	mock.ExpectQuery("SELECT entity_name").
		WithArgs("2025-04-02").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("LI-1", "IO-1", "2025-04-01",
				"200.50", "50000", "120", "20000",
				"10000", "0",
				"2025-04-01", "2025-04-30", "EVEN", "CPM", "5").
			AddRow("LI-1", "IO-1", "2025-04-02",
				"180.00", "45000", "100", "18000",
				"10000", "0",
				"2025-04-01", "2025-04-30", "EVEN", "CPM", "5"))

	through := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	recs, err := mgr.FetchRecords(context.Background(), through)
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	r := recs[0]
	if r.Name != "LI-1" || r.Parent != "IO-1" || r.Date != "2025-04-01" {
		t.Errorf("identity fields = %+v", r)
	}
	if r.Spend != "200.50" || r.Impressions != "50000" || r.Views != "20000" {
		t.Errorf("measure fields = %+v", r)
	}
	if r.Budget != "10000" || r.Pacing != "EVEN" || r.GoalType != "CPM" || r.GoalValue != "5" {
		t.Errorf("entity fields = %+v", r)
	}
	if r.FlightStart != "2025-04-01" || r.FlightEnd != "2025-04-30" {
		t.Errorf("flight fields = %s..%s", r.FlightStart, r.FlightEnd)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFetchRecordsQueryError(t *testing.T) {
	mgr, mock := mockManager(t)
	mock.ExpectQuery("SELECT entity_name").WillReturnError(context.DeadlineExceeded)

	if _, err := mgr.FetchRecords(context.Background(), time.Now()); err == nil {
		t.Error("a failing query should surface as an error")
	}
}
