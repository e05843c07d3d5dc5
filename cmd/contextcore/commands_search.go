package main

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/contextcore/internal/config"
	"github.com/haasonsaas/contextcore/internal/embeddings/openai"
	"github.com/haasonsaas/contextcore/internal/retrieval"
	"github.com/haasonsaas/contextcore/internal/retrieval/sqlitechunks"
	"github.com/spf13/cobra"
)

func buildSearchCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		model      string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid vector+keyword search against the retrieval store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, configPath, limit, model, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&model, "model", "", "Embedding model filter (defaults to the embedding provider's name, the tag the index command stores)")
	return cmd
}

func runSearch(cmd *cobra.Command, configPath string, limit int, modelFilter, query string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	provider, err := openai.New(openai.Config{
		APIKey:  cfg.Model.EmbeddingAPIKey,
		BaseURL: cfg.Model.EmbeddingBaseURL,
		Model:   cfg.Model.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("search: embedding provider: %w", err)
	}

	store, err := sqlitechunks.Open(cfg.Retrieval.StorePath)
	if err != nil {
		return fmt.Errorf("search: open store: %w", err)
	}
	defer store.Close()

	embedding, err := provider.Embed(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search: embed query: %w", err)
	}

	if modelFilter == "" {
		modelFilter = provider.Name()
	}
	vectorWeight, textWeight := cfg.Retrieval.ResolveWeights()

	results, err := retrieval.Search(cmd.Context(), store, retrieval.SearchInput{
		QueryText:      query,
		QueryEmbedding: embedding,
		Limit:          limit,
		Filter:         retrieval.SearchFilter{Model: modelFilter},
		VectorWeight:   vectorWeight,
		TextWeight:     textWeight,
		Recency:        cfg.Retrieval.Recency.ResolveRecency(),
		DynamicCut:     cfg.Retrieval.ResolveDynamicThreshold(),
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("search: marshal results: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(append(out, '\n'))
	return err
}
