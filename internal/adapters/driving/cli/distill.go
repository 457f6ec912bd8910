package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var distillScope string

var distillCmd = &cobra.Command{
	Use:   "distill",
	Short: "Distil pending conversation turns into the vault",
	Long: `Checks how many turns were recorded since the last distillation and, once
the configured threshold is reached, asks the agent for a summary that is
appended to today's memory note and re-indexed.

Without --scope every scope with recorded turns is checked.`,
	Args: cobra.NoArgs,
	RunE: runDistill,
}

func init() {
	distillCmd.Flags().StringVarP(&distillScope, "scope", "s", "", "only check this conversation scope")
	rootCmd.AddCommand(distillCmd)
}

func runDistill(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if distillScope == "" {
		n, err := a.Distill.RunAll(ctx)
		if err != nil {
			return fmt.Errorf("distill: %w", err)
		}
		cmd.Printf("Distilled %d scopes\n", n)
		return nil
	}

	out, err := a.Distill.Run(ctx, distillScope)
	if err != nil {
		return fmt.Errorf("distill %s: %w", distillScope, err)
	}
	if !out.Distilled {
		cmd.Printf("%s: %d pending turns, threshold is %d\n", distillScope, out.Pending, a.Config.Distill.Threshold)
		return nil
	}
	cmd.Printf("%s: distilled %d turns into %s\n", distillScope, out.Pending, out.Document)
	if !out.Indexed {
		cmd.Println("  not indexed: embedding service unavailable")
	}
	return nil
}
