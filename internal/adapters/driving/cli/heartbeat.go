package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var heartbeatLogLimit int

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Proactive checklist checks",
}

var heartbeatRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one heartbeat check now",
	Long: `Evaluates the vault checklist with the agent and delivers the result unless
it is empty, outside the active hours, or identical to a notification
delivered in the last 24 hours.`,
	Args: cobra.NoArgs,
	RunE: runHeartbeat,
}

var heartbeatLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show evaluated heartbeat notifications",
	Args:  cobra.NoArgs,
	RunE:  runHeartbeatLog,
}

func init() {
	heartbeatLogCmd.Flags().IntVarP(&heartbeatLogLimit, "limit", "n", 20, "number of records to show")
	heartbeatCmd.AddCommand(heartbeatRunCmd)
	heartbeatCmd.AddCommand(heartbeatLogCmd)
	rootCmd.AddCommand(heartbeatCmd)
}

func runHeartbeat(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}

	out, err := a.Heartbeat.Tick(cmd.Context())
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}

	switch out.Status {
	case domain.HeartbeatInactive:
		cmd.Println("Outside active hours, nothing checked.")
	case domain.HeartbeatNoChecks:
		cmd.Printf("Checklist %s is empty.\n", a.Config.Heartbeat.Checklist)
	case domain.HeartbeatNothing:
		cmd.Println("Nothing to report.")
	case domain.HeartbeatDuplicate:
		cmd.Println("Suppressed: already delivered in the last 24 hours.")
	default:
		cmd.Printf("Heartbeat %s\n", out.Status)
	}
	return nil
}

func runHeartbeatLog(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}
	if a.HeartbeatRecords == nil {
		return errors.New("heartbeat log not available")
	}

	records, err := a.HeartbeatRecords(cmd.Context())
	if err != nil {
		return fmt.Errorf("read heartbeat log: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No heartbeat notifications recorded.")
		return nil
	}
	if heartbeatLogLimit > 0 && len(records) > heartbeatLogLimit {
		records = records[len(records)-heartbeatLogLimit:]
	}

	for _, r := range records {
		state := "delivered"
		if !r.Delivered {
			state = "ok"
		}
		cmd.Printf("%s  %-10s  %s  %s\n",
			r.Timestamp.UTC().Format("2006-01-02 15:04"), state, shortHash(r.ContentHash), firstLine(r.Content))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
