// Package main provides the CLI entry point for contextcore, the
// conversation-compaction and hybrid-memory-retrieval engine behind a
// long-running coding assistant session.
//
// # Basic Usage
//
// Compact a conversation transcript:
//
//	contextcore compact --config contextcore.yaml --input transcript.json
//
// Index files into the hybrid retrieval store:
//
//	contextcore index --config contextcore.yaml ./docs
//
// Search the retrieval store:
//
//	contextcore search --config contextcore.yaml "how does compaction work"
//
// # Environment Variables
//
//   - CONTEXTCORE_CONFIG: path to configuration file (default: contextcore.yaml)
//   - CONTEXTCORE_MODEL_API_KEY: API key for the language model provider
//   - CONTEXTCORE_EMBEDDING_API_KEY: API key for the embedding provider
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contextcore",
		Short:   "Conversation compaction and hybrid memory retrieval for long-running assistant sessions",
		Version: version,
	}
	cmd.AddCommand(
		buildCompactCmd(),
		buildIndexCmd(),
		buildSearchCmd(),
	)
	return cmd
}

// defaultConfigPath returns CONTEXTCORE_CONFIG if set, else "contextcore.yaml"
// in the current directory.
func defaultConfigPath() string {
	if v := os.Getenv("CONTEXTCORE_CONFIG"); v != "" {
		return v
	}
	return "contextcore.yaml"
}
