package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/codeedge/internal/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file.py>",
	Short: "Execute a Python file through the configured code runner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			cfg.Runner.Backend = backend
		}

		source, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exec, err := runner.New(ctx, cfg.Runner)
		if err != nil {
			return err
		}
		return runFile(ctx, exec, string(source), cmd)
	},
}

func runFile(ctx context.Context, exec runner.Executor, source string, cmd *cobra.Command) error {
	res, err := exec.Execute(ctx, source)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("program failed: %s", res.Error)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("backend", "", "Override CODE_RUNNER (docker or process)")
}
