// Package llmclient adapts Anthropic's Claude API to the compaction
// engine's single-shot ModelClient interface. It follows the
// retry and error-classification patterns of the agent package's streaming
// AnthropicProvider, collapsed to one non-streaming completion per call
// since compaction's staged summarizer never needs token-by-token chunks.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"

	"github.com/haasonsaas/contextcore/internal/compaction"
)

// AnthropicClient implements compaction.ModelClient against Claude models.
// It is safe for concurrent use; each Complete call is independent.
type AnthropicClient struct {
	client       anthropic.Client
	defaultModel string
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Config configures an AnthropicClient.
type Config struct {
	// APIKey authenticates with the Anthropic API. Required unless overridden
	// per-request via CompletionRequest.APIKey.
	APIKey string
	// BaseURL overrides the default Anthropic API endpoint.
	BaseURL string
	// DefaultModel is used when a request doesn't specify one.
	DefaultModel string
	// MaxRetries bounds retry attempts for transient failures. Default: 3.
	MaxRetries int
	// InitialDelay is the base retry delay. Default: 500ms.
	InitialDelay time.Duration
	// MaxDelay caps the retry delay. Default: 10s.
	MaxDelay time.Duration
}

// NewAnthropicClient builds an AnthropicClient from cfg, applying defaults
// for unset optional fields.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	opts := []option.RequestOption{}
	if strings.TrimSpace(cfg.APIKey) != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
	}
}

// Complete sends req's rendered prompt to Claude and returns the assembled
// text response, retrying transient failures with exponential backoff.
func (c *AnthropicClient) Complete(ctx context.Context, req compaction.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxResponseTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := c.client
	if req.APIKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(req.APIKey))
	}

	prompt := renderPrompt(req)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialDelay
	bo.MaxInterval = c.maxDelay

	op := func() (string, error) {
		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(fmt.Errorf("llmclient: %w", compaction.ErrCancelled))
			}
			if !isRetryable(err) {
				return "", backoff.Permanent(fmt.Errorf("%w: %w", compaction.ErrModelCallFailed, err))
			}
			return "", fmt.Errorf("%w: %w", compaction.ErrModelCallFailed, err)
		}
		return extractText(msg), nil
	}

	text, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(c.maxRetries+1)))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("llmclient: %w", compaction.ErrCancelled)
		}
		return "", err
	}
	return text, nil
}

func extractText(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if text := block.AsText(); text.Text != "" {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

// renderPrompt builds the single-turn prompt the staged summarizer expects:
// instructions, prior-stage summary (if any), and the segment's transcript,
// in that order. Instructions and PreviousSummary are embedded verbatim.
func renderPrompt(req compaction.CompletionRequest) string {
	var b strings.Builder
	b.WriteString(req.Instructions)
	if req.PreviousSummary != "" {
		b.WriteString("\n\n## Previous summary\n")
		b.WriteString(req.PreviousSummary)
	}
	b.WriteString("\n\n## Conversation segment\n")
	for _, m := range req.Segment {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content.ExtractText())
		b.WriteString("\n")
	}
	return b.String()
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 409, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	msg := err.Error()
	for _, needle := range []string{"timeout", "deadline exceeded", "connection reset", "connection refused", "rate_limit"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
