package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var rememberLabel string

var rememberCmd = &cobra.Command{
	Use:   "remember <text>",
	Short: "Save a memory to the vault",
	Long: `Appends the text to the manual memory note for --label and re-indexes it.
The note is still written when the embedding service is unavailable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberLabel, "label", "l", "", "memory label (default: notes)")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}

	path, err := a.Index.Remember(cmd.Context(), rememberLabel, strings.Join(args, " "))
	if err != nil {
		if path != "" && errors.Is(err, domain.ErrEmbeddingUnavailable) {
			cmd.Printf("Saved to %s (not indexed: embedding service unavailable)\n", path)
			return nil
		}
		return fmt.Errorf("remember: %w", err)
	}
	cmd.Printf("Saved to %s\n", path)
	return nil
}
