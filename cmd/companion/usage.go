package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hoc_companion/internal/ledger"
)

var usageSince string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarise the local usage ledger per model",
	Long: `Summarise the local usage ledger per model.

Examples:
  companion usage
  companion usage --since 2025-01-01T00:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().StringVar(&usageSince, "since", "", "RFC 3339 start of the window (default 30 days ago)")
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return fmt.Errorf("the usage ledger is disabled (LEDGER_ENABLED=false)")
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	if usageSince != "" {
		if since, err = time.Parse(time.RFC3339, usageSince); err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
	}

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	summary, err := l.Summary(cmd.Context(), since)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Usage since %s\n\n", since.Format(time.RFC3339))
	fmt.Fprintln(w, "MODEL\tREQUESTS\tINPUT\tOUTPUT\tTOTAL\tCOST (USD)")
	for _, s := range summary {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.6f\n",
			s.ModelName, s.Requests, s.InputTokens, s.OutputTokens, s.TotalTokens, s.CostUSD)
	}
	return w.Flush()
}
