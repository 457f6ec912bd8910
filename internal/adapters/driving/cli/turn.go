package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driving/mcp"
	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	turnScope string
	turnRole  string
	turnLimit int
)

var turnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Record and list conversation turns",
}

var turnAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Record a conversation turn",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTurnAdd,
}

var turnListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent turns of a scope",
	Args:  cobra.NoArgs,
	RunE:  runTurnList,
}

func init() {
	turnCmd.PersistentFlags().StringVarP(&turnScope, "scope", "s", mcp.DefaultScope, "conversation scope")
	turnAddCmd.Flags().StringVarP(&turnRole, "role", "r", string(domain.RoleUser), "author of the turn (user or assistant)")
	turnListCmd.Flags().IntVarP(&turnLimit, "limit", "n", 10, "number of turns to show")

	turnCmd.AddCommand(turnAddCmd)
	turnCmd.AddCommand(turnListCmd)
	rootCmd.AddCommand(turnCmd)
}

func runTurnAdd(cmd *cobra.Command, args []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}

	turn, err := a.Conversations.AddTurn(cmd.Context(), domain.ConversationTurn{
		Scope:   turnScope,
		Role:    domain.Role(turnRole),
		Content: strings.Join(args, " "),
	})
	if err != nil {
		return fmt.Errorf("add turn: %w", err)
	}
	cmd.Printf("Recorded turn %d in %s\n", turn.ID, turn.Scope)
	return nil
}

func runTurnList(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}

	turns, err := a.Conversations.Recent(cmd.Context(), turnScope, turnLimit)
	if err != nil {
		return fmt.Errorf("list turns: %w", err)
	}
	cmd.Println(mcp.FormatTurns(turns))
	return nil
}
