package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/haasonsaas/contextcore/internal/compaction"
	"github.com/haasonsaas/contextcore/internal/config"
	"github.com/haasonsaas/contextcore/internal/llmclient"
	"github.com/spf13/cobra"
)

// transcriptMessage is the on-disk JSON shape a transcript file's messages
// are read from, translated into compaction.Message via toMessage.
type transcriptMessage struct {
	Role       string `json:"role"`
	Text       string `json:"text"`
	ID         string `json:"id,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
}

func (t transcriptMessage) toMessage() *compaction.Message {
	return &compaction.Message{
		Role:       compaction.Role(t.Role),
		Content:    compaction.TextContent(t.Text),
		ID:         t.ID,
		ToolCallID: t.ToolCallID,
		ToolName:   t.ToolName,
		IsError:    t.IsError,
	}
}

// transcriptFile is the on-disk shape of a compaction input file: the
// messages up for summarization, the turn-prefix messages of a split turn
// (summarized separately), and whatever the caller already knows about
// prior compaction.
type transcriptFile struct {
	MessagesToSummarize []transcriptMessage `json:"messagesToSummarize"`
	TurnPrefixMessages  []transcriptMessage `json:"turnPrefixMessages,omitempty"`
	IsSplitTurn         bool                `json:"isSplitTurn,omitempty"`
	PreviousSummary     string              `json:"previousSummary,omitempty"`
	FirstKeptEntryID    string              `json:"firstKeptEntryId,omitempty"`
	CustomInstructions  string              `json:"customInstructions,omitempty"`
	StrategyHint        string              `json:"strategyHint,omitempty"`
}

func buildCompactCmd() *cobra.Command {
	var (
		configPath string
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Run the compaction engine over a conversation transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd, configPath, inputPath, outputPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a transcript JSON file")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the resulting artifact JSON to file (default: stdout)")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	return cmd
}

func runCompact(cmd *cobra.Command, configPath, inputPath, outputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("compact: read input: %w", err)
	}
	var tf transcriptFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return fmt.Errorf("compact: parse input: %w", err)
	}

	req := compaction.CompactionRequest{
		MessagesToSummarize: toMessages(tf.MessagesToSummarize),
		TurnPrefixMessages:  toMessages(tf.TurnPrefixMessages),
		IsSplitTurn:         tf.IsSplitTurn,
		PreviousSummary:     tf.PreviousSummary,
		HasPreviousSummary:  tf.PreviousSummary != "",
		FirstKeptEntryID:    tf.FirstKeptEntryID,
		CustomInstructions:  tf.CustomInstructions,
		StrategyHint:        compaction.StrategyHint(tf.StrategyHint),
	}

	client := llmclient.NewAnthropicClient(llmclient.Config{
		APIKey:       cfg.Model.APIKey,
		BaseURL:      cfg.Model.BaseURL,
		DefaultModel: cfg.Model.DefaultModel,
	})

	orch := compaction.NewOrchestrator(client, slog.Default())
	orch.Registry.Set("cli", cfg.Compaction.ResolveKnobs())

	artifact := orch.HandleBeforeCompact(cmd.Context(), compaction.BeforeCompactEvent{
		Request:            req,
		CustomInstructions: tf.CustomInstructions,
	}, compaction.BeforeCompactContext{
		Model: cfg.Model.DefaultModel,
		GetAPIKey: func(model string) (string, bool) {
			return cfg.Model.APIKey, cfg.Model.APIKey != ""
		},
		SessionManagerID: "cli",
	})

	out, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("compact: marshal artifact: %w", err)
	}
	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(outputPath, append(out, '\n'), 0o644)
}

func toMessages(in []transcriptMessage) []*compaction.Message {
	if len(in) == 0 {
		return nil
	}
	out := make([]*compaction.Message, len(in))
	for i, m := range in {
		out[i] = m.toMessage()
	}
	return out
}
