package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index vault documents",
	Long: `Chunks and embeds vault documents into the vector store.

Without arguments every vault document modified since it was last indexed is
re-indexed and documents that no longer exist are dropped. --force re-indexes
every document, which is needed after changing the embedding model or chunk
size. With arguments only the named vault-relative paths are re-indexed; a path
that no longer exists has its chunks removed.`,
	Example: `  recall index
  recall index --force
  recall index memories/2026-10-18.md`,
	RunE: runIndex,
}

var indexForce bool

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index unchanged documents too")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		index := a.Index.IndexVault
		if indexForce {
			index = a.Index.RebuildVault
		}
		stats, err := index(ctx)
		if err != nil {
			return fmt.Errorf("index vault: %w", err)
		}
		cmd.Printf("Indexed %d documents (%d chunks", stats.Documents, stats.Chunks)
		if stats.Unchanged > 0 {
			cmd.Printf(", %d unchanged", stats.Unchanged)
		}
		if stats.Removed > 0 {
			cmd.Printf(", %d removed", stats.Removed)
		}
		cmd.Println(")")
		return nil
	}

	for _, path := range args {
		n, err := a.Index.IndexDocument(ctx, path)
		if err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		if n == 0 {
			cmd.Printf("%s: removed from index\n", path)
			continue
		}
		cmd.Printf("%s: %d chunks\n", path, n)
	}
	return nil
}
