// Package config loads contextcore's configuration surface: compaction
// knobs, hybrid-retrieval scoring knobs, and model/provider settings. It
// follows the nexus config package's include-resolving YAML/JSON5 loader
// and its pointer-optional-override-then-clamp pattern for translating raw
// config into runtime settings.
package config

import (
	"fmt"
	"os"

	"github.com/haasonsaas/contextcore/internal/compaction"
	"github.com/haasonsaas/contextcore/internal/retrieval"
)

// Config is the root configuration structure for contextcore.
type Config struct {
	Compaction CompactionConfig `yaml:"compaction"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Model      ModelConfig      `yaml:"model"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CompactionConfig configures the conversation compaction engine (C1-C6,
// C10). Pointer fields are optional overrides; unset fields fall back to
// compaction.Registry's own defaults.
type CompactionConfig struct {
	MaxHistoryShare        *float64 `yaml:"max_history_share"`
	ContextWindowTokens    *int     `yaml:"context_window_tokens"`
	RecentTurnsPreserve    *int     `yaml:"recent_turns_preserve"`
	QualityGuardEnabled    *bool    `yaml:"quality_guard_enabled"`
	QualityGuardMaxRetries *int     `yaml:"quality_guard_max_retries"`
}

// RetrievalConfig configures the hybrid memory retrieval engine (C7-C9).
type RetrievalConfig struct {
	VectorWeight     *float64      `yaml:"vector_weight"`
	TextWeight       *float64      `yaml:"text_weight"`
	DynamicThreshold *bool         `yaml:"dynamic_threshold"`
	Recency          RecencyConfig `yaml:"recency"`
	StorePath        string        `yaml:"store_path"`
}

// RecencyConfig configures C8's recency-penalty decay.
type RecencyConfig struct {
	Enabled    *bool    `yaml:"enabled"`
	Lambda     *float64 `yaml:"lambda"`
	WindowDays *int     `yaml:"window_days"`
}

// ModelConfig configures the language model and embedding provider used by
// the compaction and retrieval engines.
type ModelConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	DefaultModel     string `yaml:"default_model"`
	BaseURL          string `yaml:"base_url"`
	EmbeddingModel   string `yaml:"embedding_model"`
	EmbeddingAPIKey  string `yaml:"embedding_api_key"`
	EmbeddingBaseURL string `yaml:"embedding_base_url"`
}

// LoggingConfig holds the logging settings read from the config file. The
// CLI does not apply them: it always logs JSON at info level to stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads path (YAML or JSON5, with $include support) and resolves
// environment-variable overrides for secrets that shouldn't live in a
// checked-in config file.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment secrets and quick overrides win over
// whatever is checked into the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONTEXTCORE_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("CONTEXTCORE_EMBEDDING_API_KEY"); v != "" {
		cfg.Model.EmbeddingAPIKey = v
	}
	if v := os.Getenv("CONTEXTCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ResolveKnobs converts CompactionConfig into a compaction.SafeguardRuntime
// for registration with a compaction.Registry. Unset fields stay nil so the
// registry's own defaulting and clamping (resolveKnobs) applies.
func (c CompactionConfig) ResolveKnobs() *compaction.SafeguardRuntime {
	return &compaction.SafeguardRuntime{
		ContextWindowTokens:    c.ContextWindowTokens,
		RecentTurnsPreserve:    c.RecentTurnsPreserve,
		QualityGuardEnabled:    c.QualityGuardEnabled,
		QualityGuardMaxRetries: c.QualityGuardMaxRetries,
		MaxHistoryShare:        c.MaxHistoryShare,
	}
}

// ResolveRecency converts RecencyConfig into a retrieval.RecencyConfig.
func (r RecencyConfig) ResolveRecency() retrieval.RecencyConfig {
	out := retrieval.RecencyConfig{Lambda: 0.08, WindowDays: 14}
	if r.Enabled != nil {
		out.Enabled = *r.Enabled
	}
	if r.Lambda != nil {
		out.Lambda = clampFloat(*r.Lambda, 0, 1)
	}
	if r.WindowDays != nil {
		out.WindowDays = clampInt(*r.WindowDays, 1, 365)
	}
	return out
}

// ResolveWeights returns the (vector, text) score-fusion weights, defaulting
// to an even 0.5/0.5 split when unset.
func (r RetrievalConfig) ResolveWeights() (vector, text float64) {
	vector, text = 0.5, 0.5
	if r.VectorWeight != nil {
		vector = clampFloat(*r.VectorWeight, 0, 1)
	}
	if r.TextWeight != nil {
		text = clampFloat(*r.TextWeight, 0, 1)
	}
	return vector, text
}

// ResolveDynamicThreshold reports whether C9's dynamic relevance threshold
// is enabled, defaulting to on.
func (r RetrievalConfig) ResolveDynamicThreshold() bool {
	if r.DynamicThreshold == nil {
		return true
	}
	return *r.DynamicThreshold
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
