package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hoc_companion/internal/pricing"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported models and their prices per 1M tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tINPUT\tOUTPUT\tCACHED INPUT\tDESCRIPTION")
		for _, m := range pricing.Models() {
			cachedInput := "-"
			if m.CachedInputPerMillion != nil {
				cachedInput = fmt.Sprintf("$%.3f", *m.CachedInputPerMillion)
			}
			fmt.Fprintf(w, "%s\t$%.3f\t$%.3f\t%s\t%s\n",
				m.Model, m.InputPerMillion, m.OutputPerMillion, cachedInput, m.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
