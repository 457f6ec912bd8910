package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driven/ai"
	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// doctorValidator pings the AI services. Replaced in tests.
var doctorValidator driven.AIConfigValidator = ai.NewConfigValidator()

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, storage and AI services",
	Long: `Loads the configuration, checks the vault and database can be opened and
pings the embedding and agent services with the configured credentials.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	problems := 0
	report := func(name string, err error) {
		if err != nil {
			problems++
			cmd.Printf("  %-10s FAIL  %v\n", name, err)
			return
		}
		cmd.Printf("  %-10s ok\n", name)
	}
	skip := func(name, reason string) {
		cmd.Printf("  %-10s skip  %s\n", name, reason)
	}

	cmd.Println("Checks:")
	cfg, err := file.Load(configPath)
	report("config", err)
	if err != nil {
		return fmt.Errorf("doctor found %d problem(s)", problems)
	}

	report("vault", checkDir(cfg.VaultPath))
	if ephemeral {
		skip("database", "ephemeral mode")
	} else {
		report("database", checkDatabase(cfg.DataDir))
	}

	if cfg.Embedding.IsConfigured() {
		report("embedding", doctorValidator.ValidateEmbedding(&cfg.Embedding))
	} else {
		skip("embedding", "no API key; indexing and search are disabled")
	}
	if cfg.Agent.IsConfigured() {
		report("agent", doctorValidator.ValidateAgent(&cfg.Agent))
	} else {
		skip("agent", "no API key; distillation and heartbeats are disabled")
	}

	if problems > 0 {
		return fmt.Errorf("doctor found %d problem(s)", problems)
	}
	cmd.Println()
	cmd.Println("All checks passed.")
	return nil
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidConfig, path)
	}
	return nil
}

func checkDatabase(dataDir string) error {
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return err
	}
	return store.Close()
}
