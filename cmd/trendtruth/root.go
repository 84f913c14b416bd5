package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trendtruth/trendtruth/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

var flagEnvFile string

var rootCmd = &cobra.Command{
	Use:           "trendtruth",
	Short:         "Trend aggregation and credibility scoring",
	Long:          "trendtruth collects trending stories from Reddit, Hacker News, Google News and X, checks them against trusted news coverage and rates how likely each one is to be fabricated.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "environment file loaded before configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trendtruth %s (commit: %s)\n", version, commit)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// loadConfig reads the optional env file, loads configuration and sets up logging
func loadConfig(jsonLogs bool) (*config.Config, error) {
	if err := godotenv.Load(flagEnvFile); err != nil {
		logrus.Debugf("No env file at %s, using environment variables", flagEnvFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	if jsonLogs {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	return cfg, nil
}
