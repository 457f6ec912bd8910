package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault, index and scheduler state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	docs, err := a.Documents.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	indexed := 0
	for _, d := range docs {
		if d.Indexed {
			indexed++
		}
	}

	cmd.Println("Vault")
	cmd.Printf("  Path:      %s\n", a.Config.VaultPath)
	cmd.Printf("  Documents: %d (%d indexed)\n", len(docs), indexed)
	cmd.Println()
	cmd.Println("Services")
	cmd.Printf("  Embedding: %s\n", configured(a.Config.Embedding.IsConfigured(),
		fmt.Sprintf("%s %s", a.Config.Embedding.Provider, a.Config.Embedding.Model)))
	cmd.Printf("  Agent:     %s\n", configured(a.Config.Agent.IsConfigured(), a.Config.Agent.Model))
	for _, w := range a.Warnings {
		cmd.Printf("  Warning:   %s\n", w)
	}

	if a.Schedules == nil {
		return nil
	}
	tasks, err := a.Schedules.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	cmd.Println()
	cmd.Println("Scheduled tasks")
	if len(tasks) == 0 {
		cmd.Println("  none yet (run 'recall serve')")
		return nil
	}
	for _, t := range tasks {
		cmd.Printf("  %s every %s\n", t.Name, t.Interval)
		if !t.LastRun.IsZero() {
			cmd.Printf("    Last run: %s\n", t.LastRun.Local().Format("2006-01-02 15:04:05"))
		}
		if !t.NextRun.IsZero() {
			cmd.Printf("    Next run: %s\n", t.NextRun.Local().Format("2006-01-02 15:04:05"))
		}
		if t.LastError != "" {
			cmd.Printf("    Error:    %s\n", t.LastError)
		}
		history, err := a.Schedules.GetTaskHistory(ctx, t.ID, 1)
		if err != nil {
			return fmt.Errorf("task history %s: %w", t.ID, err)
		}
		if len(history) > 0 && history[0].Success {
			cmd.Printf("    Handled:  %d items in %s\n", history[0].ItemsProcessed, history[0].Duration())
		}
	}
	return nil
}

func configured(ok bool, detail string) string {
	if !ok {
		return "not configured"
	}
	return detail
}
