package main

import (
	"testing"
	"time"
)

func TestEmailSubject(t *testing.T) {
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	got := emailSubject("Daily Delivery Scorecards", date)
	want := "Daily Delivery Scorecards - 2025-04-02"
	if got != want {
		t.Errorf("emailSubject = %q, want %q", got, want)
	}
}

func TestResolveTargetDate(t *testing.T) {
	cmd := newScanCmd()

	t.Run("explicit_date", func(t *testing.T) {
		if err := cmd.Flags().Set("date", "2025-04-02"); err != nil {
			t.Fatal(err)
		}
		got, err := resolveTargetDate(cmd)
		if err != nil {
			t.Fatalf("resolveTargetDate: %v", err)
		}
		want := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("date = %v, want %v", got, want)
		}
	})

	t.Run("unparseable_date", func(t *testing.T) {
		if err := cmd.Flags().Set("date", "02-04-2025x"); err != nil {
			t.Fatal(err)
		}
		if _, err := resolveTargetDate(cmd); err == nil {
			t.Error("garbage date should error")
		}
	})
}
