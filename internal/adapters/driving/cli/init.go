package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	initVault string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an empty vault",
	Long: `Writes a config file with the default settings next to a data directory
and a vault directory, and creates an empty heartbeat checklist in the vault.

API keys are never written to the config file. Set them in the environment
or in a .env file next to the config:

  VOYAGE_API_KEY or OPENAI_API_KEY   embeddings
  ANTHROPIC_API_KEY                  distillation and heartbeats`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runInit,
}

func init() {
	initCmd.Flags().StringVar(&initVault, "vault", "", "vault directory (default: vault next to the config)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		p, err := file.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	base := filepath.Dir(path)
	cfg := domain.DefaultConfig()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.VaultPath = filepath.Join(base, "vault")
	if initVault != "" {
		abs, err := filepath.Abs(initVault)
		if err != nil {
			return fmt.Errorf("resolve vault path: %w", err)
		}
		cfg.VaultPath = abs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := file.Save(path, cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.VaultPath, 0755); err != nil {
		return fmt.Errorf("create vault: %w", err)
	}

	checklist := filepath.Join(cfg.VaultPath, filepath.FromSlash(cfg.Heartbeat.Checklist))
	if _, err := os.Stat(checklist); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(checklist, nil, 0644); err != nil {
			return fmt.Errorf("create checklist: %w", err)
		}
	}

	cmd.Printf("Wrote %s\n", path)
	cmd.Printf("  Vault:     %s\n", cfg.VaultPath)
	cmd.Printf("  Data:      %s\n", cfg.DataDir)
	cmd.Printf("  Checklist: %s\n", checklist)
	cmd.Println()
	cmd.Println("Set your API keys, then run 'recall doctor' and 'recall index'.")
	return nil
}
