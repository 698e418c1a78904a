package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/insight/internal/app"
	"github.com/bobmcallan/insight/internal/common"
)

var (
	configPath string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "insight",
		Short: "Chat with a company's investor-relations documents",
		Long: `Insight fetches a listed company's latest earnings-call transcripts,
quarterly reports and slide decks, stores them, and answers questions
about them with a language model.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to insight.toml (default: $INSIGHT_CONFIG or config/insight.toml)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(
		versionCmd(),
		companiesCmd(),
		acquireCmd(),
		askCmd(),
		chatCmd(),
		serveCmd(),
		mcpCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadApp initializes the application from the --config flag.
func loadApp(overrides ...func(*common.Config)) (*app.App, error) {
	a, err := app.NewApp(configPath, overrides...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
