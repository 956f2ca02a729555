package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/codeedge/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codetutor",
	Short: "CodeEdge coding tutor backend",
	Long: `codetutor serves the CodeEdge tutor API: LLM-generated coding problems,
tutoring answers with per-user history, progress tracking and sandboxed
code execution.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")
}

// loadConfig loads the env file, reads configuration and installs the JSON
// logger at the configured level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Info("No .env file found, using environment variables", "path", envFile)
	}
	return cfg, nil
}
