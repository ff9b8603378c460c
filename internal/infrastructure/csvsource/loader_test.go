package csvsource

import (
	"strings"
	"testing"
)

func TestSchemaByName(t *testing.T) {
	if s, err := SchemaByName("io"); err != nil || s.Name != "io" {
		t.Errorf("SchemaByName(io) = %v, %v", s.Name, err)
	}
	if s, err := SchemaByName(" LI "); err != nil || s.Name != "li" {
		t.Errorf("SchemaByName(LI) = %v, %v", s.Name, err)
	}
	if s, err := SchemaByName(""); err != nil || s.Name != "io" {
		t.Errorf("empty schema flag should default to io, got %v, %v", s.Name, err)
	}
	if _, err := SchemaByName("placement"); err == nil {
		t.Error("unknown schema should error")
	}
}

func TestReadIOSchema(t *testing.T) {
	csv := strings.Join([]string{
		"Insertion Order Name,Date,Spends,Impressions,Clicks,Complete Views (Video),Planned Budget,IO Start Date,IO End Date,IO_Pacing,Insertion_Order_Goal_Type,Insertion_Order_Goal_Value(KPI)",
		`IO-1,2025-04-01,"1,250.00",50000,120,20000,10000,2025-04-01,2025-04-30,EVEN,CPM,5`,
		"IO-1,2025-04-02,900,30000,80,15000,10000,2025-04-01,2025-04-30,EVEN,CPM,5",
	}, "\n")

	recs, err := Read(strings.NewReader(csv), IOSchema())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	r := recs[0]
	if r.Name != "IO-1" || r.Date != "2025-04-01" || r.Spend != "1,250.00" {
		t.Errorf("record 0 = %+v", r)
	}
	if r.Budget != "10000" || r.Pacing != "EVEN" || r.GoalType != "CPM" || r.GoalValue != "5" {
		t.Errorf("record 0 entity fields = %+v", r)
	}
	if r.FlightStart != "2025-04-01" || r.FlightEnd != "2025-04-30" {
		t.Errorf("record 0 flight = %s..%s", r.FlightStart, r.FlightEnd)
	}
	if r.Parent != "" {
		t.Errorf("IO-level record should have no parent, got %q", r.Parent)
	}
}

func TestReadLISchema(t *testing.T) {
	csv := strings.Join([]string{
		"Line_Item_Name,Insertion_Order_Name,Date,LI_Spends,Impressions,Line_Item_Start_Date,Line_Item_End_Date,LI_Pacing",
		"LI-1,IO-1,2025-04-01,300,12000,2025-04-01,2025-04-15,ASAP",
	}, "\n")

	recs, err := Read(strings.NewReader(csv), LISchema())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	r := recs[0]
	if r.Name != "LI-1" || r.Parent != "IO-1" || r.Spend != "300" || r.Pacing != "ASAP" {
		t.Errorf("record = %+v", r)
	}
}

func TestReadHeaderVariants(t *testing.T) {
	// Underscore and case variance resolves to the same columns.
	csv := strings.Join([]string{
		"insertion_order_name,DATE,spend,impressions",
		"IO-1,2025-04-01,100,5000",
	}, "\n")

	recs, err := Read(strings.NewReader(csv), IOSchema())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if recs[0].Name != "IO-1" || recs[0].Spend != "100" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestReadMissingMandatoryColumn(t *testing.T) {
	csv := "Spends,Impressions\n100,5000\n"
	if _, err := Read(strings.NewReader(csv), IOSchema()); err == nil {
		t.Error("a header without an entity name column should error")
	}

	csv = "Insertion Order Name,Spends\nIO-1,100\n"
	if _, err := Read(strings.NewReader(csv), IOSchema()); err == nil {
		t.Error("a header without a date column should error")
	}
}

func TestReadShortRow(t *testing.T) {
	// A truncated line reads as empty for the missing columns rather than
	// aborting the batch.
	csv := strings.Join([]string{
		"Insertion Order Name,Date,Spends,Impressions",
		"IO-1,2025-04-01",
		"IO-2,2025-04-01,100,5000",
	}, "\n")

	recs, err := Read(strings.NewReader(csv), IOSchema())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Spend != "" {
		t.Errorf("missing column should read empty, got %q", recs[0].Spend)
	}
	if recs[1].Spend != "100" {
		t.Errorf("full row spend = %q", recs[1].Spend)
	}
}
