package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/adpulse/adpulse/internal/application/pipeline"
	"github.com/adpulse/adpulse/internal/application/report"
	"github.com/adpulse/adpulse/internal/config"
	"github.com/adpulse/adpulse/internal/domain/series"
	"github.com/adpulse/adpulse/internal/infrastructure/csvsource"
	"github.com/adpulse/adpulse/internal/infrastructure/db"
	"github.com/adpulse/adpulse/internal/infrastructure/dedupe"
	"github.com/adpulse/adpulse/internal/infrastructure/llm"
	"github.com/adpulse/adpulse/internal/infrastructure/mailer"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan delivery history for anomalies on a target date",
		Long: `Run the full anomaly pass for one date: pacing deviation, DoD/WoW
deviation, KPI spikes, goal deviation and PG impression lag, classified
against the configured thresholds.

Example usage:
  adpulse scan --input Data.csv --date 2025-04-02
  adpulse scan --input LI_Data.csv --schema li --date 2025-04-02 --email
  adpulse scan --source postgres --date 2025-04-02 --ai-summary`,
		RunE: runScan,
	}

	cmd.Flags().String("input", "", "Path to delivery CSV (required for csv source)")
	cmd.Flags().String("schema", "io", "CSV schema: io or li")
	cmd.Flags().String("source", "csv", "Input source: csv or postgres")
	cmd.Flags().String("date", "", "Target date (YYYY-MM-DD, default: yesterday)")
	cmd.Flags().String("format", "table", "Output format: table or json")
	cmd.Flags().Bool("email", false, "Email the scorecard when alerts fired")
	cmd.Flags().Bool("ai-summary", false, "Request a Gemini narrative diagnosis")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	target, err := resolveTargetDate(cmd)
	if err != nil {
		return err
	}

	raw, err := loadRecords(ctx, cmd, cfg, target)
	if err != nil {
		return err
	}

	ds, stats := series.Prepare(raw)
	card := pipeline.Run(ds, target, pipeline.Config{Thresholds: cfg.Thresholds})

	if card.NoData {
		fmt.Printf("No delivery data for %s (%d rows scanned, %d dropped)\n",
			target.Format("2006-01-02"), stats.Rows, stats.Dropped)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	if err := printScorecard(card, format); err != nil {
		return err
	}

	groups := report.Aggregate(card)
	if len(groups) == 0 {
		fmt.Println("\nAll entities healthy. Nothing to report.")
		return nil
	}

	if wantEmail, _ := cmd.Flags().GetBool("email"); wantEmail {
		if err := sendEmail(ctx, cfg, card, groups); err != nil {
			log.Error().Err(err).Msg("Email delivery failed")
		}
	}

	if wantAI, _ := cmd.Flags().GetBool("ai-summary"); wantAI {
		if err := aiSummary(ctx, cfg, card); err != nil {
			log.Error().Err(err).Msg("AI summary failed")
		}
	}

	return nil
}

// resolveTargetDate defaults to yesterday: delivery exports land with a
// one-day lag.
func resolveTargetDate(cmd *cobra.Command) (time.Time, error) {
	dateStr, _ := cmd.Flags().GetString("date")
	if dateStr == "" {
		y := time.Now().UTC().AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t := series.ParseDate(dateStr)
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("unparseable date %q", dateStr)
	}
	return t, nil
}

func loadRecords(ctx context.Context, cmd *cobra.Command, cfg *config.AppConfig, target time.Time) ([]series.RawRecord, error) {
	source, _ := cmd.Flags().GetString("source")
	switch source {
	case "csv", "":
		input, _ := cmd.Flags().GetString("input")
		if input == "" {
			return nil, fmt.Errorf("--input is required for the csv source")
		}
		schemaName, _ := cmd.Flags().GetString("schema")
		schema, err := csvsource.SchemaByName(schemaName)
		if err != nil {
			return nil, err
		}
		return csvsource.ReadFile(input, schema)

	case "postgres":
		mgr, err := db.NewManager(cfg.Database)
		if err != nil {
			return nil, err
		}
		defer mgr.Close()
		return mgr.FetchRecords(ctx, target)

	default:
		return nil, fmt.Errorf("unknown source %q (want csv or postgres)", source)
	}
}

func printScorecard(card *pipeline.Scorecard, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(card)

	case "table", "":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Entity\tSpend\tFTD Spend\tFTD Ideal\t%s\t%s\t%s\t%s\t%s\n",
			pipeline.ColSpend, pipeline.ColImpression, pipeline.ColKPI, pipeline.ColGoal, pipeline.ColDealHealth)
		for _, row := range card.Rows {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
				row.Entity, row.Spend, row.CumSpend, row.IdealSpend,
				row.SpendAlert, row.ImpressionAlert, row.KPIAlert, row.GoalAlert, row.DealHealth)
		}
		return w.Flush()

	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}

// sendEmail renders and ships the scorecard, skipping alerts already
// notified within the dedup TTL.
func sendEmail(ctx context.Context, cfg *config.AppConfig, card *pipeline.Scorecard, groups []report.Group) error {
	store := dedupe.New(cfg.Redis.Addr, cfg.Redis.DB)
	ttl := time.Duration(cfg.Report.DedupTTLHours) * time.Hour

	fresh := make([]report.Group, 0, len(groups))
	for _, g := range groups {
		var items []report.Item
		for _, item := range g.Items {
			if !store.Seen(ctx, dedupe.Key(card.TargetDate, item.Entity, item.Column)) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			fresh = append(fresh, report.Group{Parent: g.Parent, Items: items})
		}
	}
	if len(fresh) == 0 {
		log.Info().Msg("All alerts already notified, skipping email")
		return nil
	}

	html, err := report.RenderHTML(fresh)
	if err != nil {
		return err
	}
	subject := emailSubject(cfg.Report.Subject, card.TargetDate)
	if err := mailer.New(cfg.SMTP).SendHTML(subject, html, report.RenderTable(card)); err != nil {
		return err
	}

	for _, g := range fresh {
		for _, item := range g.Items {
			store.Mark(ctx, dedupe.Key(card.TargetDate, item.Entity, item.Column), ttl)
		}
	}
	return nil
}

func emailSubject(base string, date time.Time) string {
	return fmt.Sprintf("%s - %s", base, date.Format("2006-01-02"))
}

func aiSummary(ctx context.Context, cfg *config.AppConfig, card *pipeline.Scorecard) error {
	prompt := report.BuildPrompt(card)
	if prompt == "" {
		return nil
	}

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	summary, err := client.Summarize(ctx, prompt)
	path := client.StoreArtifact(card.RunID, prompt, summary, err)
	if err != nil {
		return err
	}

	fmt.Printf("\n--- Narrative diagnosis ---\n%s\n", summary)
	if path != "" {
		log.Info().Str("artifact", path).Msg("LLM response stored")
	}
	return nil
}
