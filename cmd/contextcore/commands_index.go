package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/contextcore/internal/chunking"
	"github.com/haasonsaas/contextcore/internal/config"
	"github.com/haasonsaas/contextcore/internal/embeddings"
	"github.com/haasonsaas/contextcore/internal/embeddings/openai"
	"github.com/haasonsaas/contextcore/internal/retrieval/sqlitechunks"
	"github.com/spf13/cobra"
)

func buildIndexCmd() *cobra.Command {
	var (
		configPath string
		source     string
	)
	cmd := &cobra.Command{
		Use:   "index <path> [path...]",
		Short: "Chunk and embed files into the hybrid retrieval store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, configPath, source, args)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&source, "source", "cli", "Source label attached to every indexed chunk")
	return cmd
}

func runIndex(cmd *cobra.Command, configPath, source string, paths []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	provider, err := openai.New(openai.Config{
		APIKey:  cfg.Model.EmbeddingAPIKey,
		BaseURL: cfg.Model.EmbeddingBaseURL,
		Model:   cfg.Model.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("index: embedding provider: %w", err)
	}

	store, err := sqlitechunks.Open(cfg.Retrieval.StorePath)
	if err != nil {
		return fmt.Errorf("index: open store: %w", err)
	}
	defer store.Close()

	ix := &embeddings.Indexer{Provider: provider, Store: store}
	splitter := chunking.NewRecursiveCharacterTextSplitter(chunking.DefaultConfig())

	files, err := collectFiles(paths)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	var total int
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("index: read %s: %w", path, err)
		}
		text := string(data)
		chunks := splitter.Split(text)
		if len(chunks) == 0 {
			continue
		}
		inputs := chunking.ToIndexInputs(path, source, text, chunks)
		indexed, err := ix.IndexAll(cmd.Context(), inputs)
		if err != nil {
			return fmt.Errorf("index: %s: %w", path, err)
		}
		total += len(indexed)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %d files\n", total, len(files))
	return nil
}

// collectFiles expands paths into a flat list of regular files, walking
// directories recursively.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
