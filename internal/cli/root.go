// Package cli implements the hack CLI commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Import log backends to register them via init()
	_ "github.com/hack-cli/hack/pkg/logs/compose"
	_ "github.com/hack-cli/hack/pkg/logs/loki"
)

var (
	cfgFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hack",
	Short: "Local development environments without the ceremony",
	Long: `hack orchestrates local development environments and gives every
service one canonical log stream, whether the logs come from the
docker compose subprocess or from a Loki log index.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hack/config.yaml)")

	viper.SetEnvPrefix("HACK")
	viper.AutomaticEnv()
	viper.SetDefault("loki_ready_timeout_ms", 800)

	// Add subcommands
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.hack")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// Read config file if it exists
	_ = viper.ReadInConfig()
}
