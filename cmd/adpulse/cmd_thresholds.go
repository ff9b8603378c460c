package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adpulse/adpulse/internal/config"
)

func newThresholdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds",
		Short: "Print the effective alert thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			th := cfg.Thresholds
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "Threshold\tValue")
			fmt.Fprintf(w, "Spend FTD deviation\t%.1f%%\n", th.SpendFTDPct)
			fmt.Fprintf(w, "Spend DoD spike\t%.1f%%\n", th.SpendSpikePct)
			fmt.Fprintf(w, "Impressions DoD\t%.1f%%\n", th.ImpressionDoDPct)
			fmt.Fprintf(w, "Impressions WoW\t%.1f%%\n", th.ImpressionWoWPct)
			fmt.Fprintf(w, "KPI DoD spike\t%.1f%%\n", th.KPISpikePct)
			fmt.Fprintf(w, "CPM over goal\t%.1f%%\n", th.CPMGoalPct)
			fmt.Fprintf(w, "VTR under goal\t%.1f%%\n", th.VTRGoalPct)
			fmt.Fprintf(w, "PG impression lag\t%.1f%%\n", th.ImpressionLagPct)
			fmt.Fprintf(w, "ASAP underspend\t%.1f%%\n", th.ASAPUnderspendPct)
			fmt.Fprintf(w, "Daily impression goal\t%.1f%%\n", th.DailyImprGoalPct)
			return w.Flush()
		},
	}
}
