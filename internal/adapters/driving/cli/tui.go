package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui"
)

var (
	// stdoutIsTerminal reports whether the TUI has a terminal to draw on.
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

	// runTUIProgram blocks until the TUI exits.
	runTUIProgram = (*tui.App).Run
)

var errNotTerminal = errors.New("tui needs an interactive terminal (try 'recall search' instead)")

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface for the vault.

Search asks the vault in plain language and opens matching documents.
Documents lists every vault file with its index state and can re-index one.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Search / Actions
  Esc      - Back
  ?        - Help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !stdoutIsTerminal() {
		return errNotTerminal
	}

	a, err := currentApp()
	if err != nil {
		return err
	}

	ports := &tui.Ports{
		Search:    a.Search,
		Documents: a.Documents,
		Index:     a.Index,
	}

	vault := a.Config.VaultPath
	if a.Vault != nil {
		vault = a.Vault.Root()
	}

	app, err := tui.NewApp(cmd.Context(), ports, vault)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := runTUIProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
