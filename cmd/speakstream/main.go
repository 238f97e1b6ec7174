package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/config"
	"github.com/ent0n29/speakstream/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "speakstream",
	Short: "Conversational assistant that speaks its replies while streaming them as text",
	Long: "speakstream answers typed or spoken questions, reads the reply aloud chunk by chunk\n" +
		"and streams it word by word to the browser. A newer question always supersedes the\n" +
		"reply that is still being spoken or streamed.",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, sayCmd, perfCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "speakstream: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime reads configuration and builds the process logger.
func loadRuntime() (config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger init failed: %w", err)
	}
	return cfg, logger, nil
}
