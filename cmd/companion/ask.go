package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hoc_companion/internal/agent"
	"hoc_companion/internal/httpapi"
	"hoc_companion/internal/pricing"
	"hoc_companion/internal/storage"
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Answer one question and print the JSON response",
	Long: `Answer one question without starting the server. The output has the
same shape as a POST /chat response. Billing and the usage ledger are not
touched.

Examples:
  companion ask "Hoeveel assets heeft project Zomer 2024?"
  companion ask --model gpt-4.1-mini "Welke campagnes draaiden in 2023?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askModel string

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "override OPENAI_MODEL for this question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if askModel != "" {
		if !pricing.IsKnown(askModel) {
			return fmt.Errorf("%w: %q (see 'companion models')", pricing.ErrUnknownModel, askModel)
		}
		cfg.OpenAI.Model = askModel
	}

	db, err := storage.NewDB(storage.DBConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	pipeline, provider, err := agent.NewFromConfig(cfg, db, nil, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.OpenAI.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OpenAI.RequestTimeout)
		defer cancel()
	}

	resp, err := pipeline.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(httpapi.ChatResponse{
		Answer:   resp.Result.Answer,
		SQLUsed:  resp.Result.SQLUsed,
		RowCount: resp.Result.RowCount,
		Usage:    resp.Usage,
	})
}
