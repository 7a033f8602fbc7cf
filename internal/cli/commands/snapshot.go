package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/adpulse-labs/adpulse/internal/engine"
	"github.com/adpulse-labs/adpulse/pkg/core"
)

func newSnapshotCmd() *cobra.Command {
	var (
		weekStart      string
		clientID       string
		force          bool
		concurrency    int
		includeResults bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Generate weekly performance snapshots",
		Long: `Generate weekly performance snapshots for active clients.

The batch summary is written to stdout as JSON; logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Verbose)

			start, err := parseWeekStart(weekStart)
			if err != nil {
				return err
			}

			eng, err := engine.New(engine.Config{
				Driver: cfg.Driver,
				DSN:    cfg.DSN,
				Logger: logger,
				UserID: cfg.UserID,
			})
			if err != nil {
				return err
			}
			defer eng.Close()

			result, err := eng.Run(cmd.Context(), core.BatchParams{
				WeekStart:      start,
				ClientID:       clientID,
				Force:          force,
				Concurrency:    concurrency,
				IncludeResults: includeResults || cfg.Verbose,
			})
			if err != nil {
				return err
			}

			if cfg.Verbose {
				renderResultsTable(result)
			}
			if !includeResults {
				result.Results = nil
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode batch result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&weekStart, "week-start", "", "Monday of the target week, YYYY-MM-DD")
	cmd.Flags().StringVar(&clientID, "client-id", "", "process a single client")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate snapshots that already exist")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of clients processed in parallel")
	cmd.Flags().BoolVar(&includeResults, "results", false, "include per-client results in the JSON output")
	_ = cmd.MarkFlagRequired("week-start")

	return cmd
}

// parseWeekStart parses the mandatory week start date.
func parseWeekStart(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, core.NewValidationError("INVALID_WEEK_START",
			"week-start must be formatted YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

// renderResultsTable prints the per-client outcomes to stderr so stdout
// stays machine readable.
func renderResultsTable(result *core.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stderr)
	t.AppendHeader(table.Row{"Client", "Status", "Snapshot", "Anomalies", "Flags", "Duration"})
	for _, r := range result.Results {
		t.AppendRow(table.Row{
			r.ClientName,
			r.Status,
			r.SnapshotID,
			r.Anomalies,
			len(r.Flags),
			fmt.Sprintf("%dms", r.DurationMS),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "total",
		fmt.Sprintf("%dms", result.DurationMS)})
	t.Render()
}
