// Package cli provides the recall command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// skipBootstrap marks commands that run without a wired App.
const skipBootstrap = "recall.skip-bootstrap"

var (
	configPath string
	verbose    bool
	ephemeral  bool

	// app is wired by bootstrap, or injected by tests.
	app *App

	// ownsApp is true when bootstrap created app and Execute must close it.
	ownsApp bool
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Semantic memory for a markdown vault",
	Long: `Recall indexes a directory of markdown notes into a vector store and
answers natural-language queries with the most relevant passages.

It also records conversation turns, distils them into daily memory notes
once enough have accumulated, and runs proactive heartbeat checks against
a checklist kept in the vault.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: ~/.recall/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep the index and conversation history in memory only")
}

// Execute runs the root command and releases the app afterwards.
func Execute(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if app != nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	cfg, err := file.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Verbose && !verbose {
		logger.SetVerbose(true)
	}

	a, err := NewApp(cfg, AppOptions{
		Ephemeral:     ephemeral,
		Notifications: cmd.OutOrStdout(),
		Logger:        logger.L(),
	})
	if err != nil {
		return err
	}
	app = a
	ownsApp = true
	return nil
}

func closeApp() {
	if app == nil || !ownsApp {
		return
	}
	if err := app.Close(); err != nil {
		logger.Warn("close: %v", err)
	}
	app = nil
	ownsApp = false
}

// errNoApp is returned when a command runs before bootstrap.
var errNoApp = errors.New("recall is not initialised")

func currentApp() (*App, error) {
	if app == nil {
		return nil, errNoApp
	}
	return app, nil
}
