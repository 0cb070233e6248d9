// Command penpath runs the writing-practice backend.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aimd54/penpath/internal/config"
	"github.com/aimd54/penpath/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "penpath",
	Short: "Gamified writing practice backend",
	Long: `penpath serves writing challenges, scores responses with a text-generation
provider and tracks XP and career levels for every writer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside local development.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedLevelsCmd)
}

// loadConfig reads the configuration and builds the logger it describes.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
