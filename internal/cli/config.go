package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys for ~/.hack/config.yaml.
const (
	ConfigKeyFollowBackend   = "follow_backend"
	ConfigKeySnapshotBackend = "snapshot_backend"
	ConfigKeyLokiURL         = "loki_url"
)

var configKeys = []string{
	ConfigKeyFollowBackend,
	ConfigKeySnapshotBackend,
	ConfigKeyLokiURL,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `Get and set hack CLI configuration values stored in ~/.hack/config.yaml.`,
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in ~/.hack/config.yaml.

Available keys:
  follow-backend      Default backend for live tailing (compose or loki).
  snapshot-backend    Default backend for bounded queries (compose or loki).
  loki-url            Loki base URL used when the project does not name one.

Examples:
  hack config set follow-backend loki`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			// Normalize key names: allow dashes in CLI, store with underscores
			viperKey := normalizeConfigKey(key)
			if !knownConfigKey(viperKey) {
				return fmt.Errorf("unknown configuration key %q\n\nAvailable keys:\n  follow-backend\n  snapshot-backend\n  loki-url", key)
			}

			switch viperKey {
			case ConfigKeyFollowBackend, ConfigKeySnapshotBackend:
				if value != "compose" && value != "loki" {
					return fmt.Errorf("%s must be either compose or loki", key)
				}
			}

			viper.Set(viperKey, value)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("Set %s = %s\n", key, value)
			return nil
		},
	}

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value from ~/.hack/config.yaml.

Examples:
  hack config get follow-backend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			viperKey := normalizeConfigKey(key)

			value := viper.GetString(viperKey)
			if value == "" {
				fmt.Printf("%s is not set\n", key)
			} else {
				fmt.Println(value)
			}
			return nil
		},
	}

	return cmd
}

func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  `List all configuration values from ~/.hack/config.yaml.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Configuration:")
			found := false
			for _, key := range configKeys {
				if value := viper.GetString(key); value != "" {
					fmt.Printf("  %s = %s\n", strings.ReplaceAll(key, "_", "-"), value)
					found = true
				}
			}
			if !found {
				fmt.Println("  (no values set)")
			}
			return nil
		},
	}

	return cmd
}

func normalizeConfigKey(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

func knownConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

// writeConfig persists the current viper state to ~/.hack/config.yaml,
// creating the directory on first use.
func writeConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, ".hack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return viper.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}
