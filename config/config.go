// Package config provides configuration loading and management for Planforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planforge/planforge/model"
	"github.com/planforge/planforge/plan"
)

// Config represents the complete Planforge configuration.
type Config struct {
	Workflow WorkflowConfig `yaml:"workflow"`
	Models   ModelsConfig   `yaml:"models"`
	Research ResearchConfig `yaml:"research"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// WorkflowConfig tunes the planning loop and analysis fan-out.
type WorkflowConfig struct {
	// ScoreThreshold is the minimum critique score that accepts a plan.
	// A score equal to the threshold is accepted.
	ScoreThreshold float64 `yaml:"score_threshold"`

	// MaxRetries bounds regeneration attempts after the initial draft.
	MaxRetries int `yaml:"max_retries"`

	// MaxConcurrency bounds parallel topic analyses.
	MaxConcurrency int `yaml:"max_concurrency"`

	// TopicLimit caps how many topics are analyzed (0 = all). Useful for
	// cheap debugging runs.
	TopicLimit int `yaml:"topic_limit"`

	// CallTimeout bounds each LLM call.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// ModelsConfig configures LLM endpoints per role.
type ModelsConfig struct {
	// Endpoint is the OpenAI-compatible API endpoint.
	Endpoint string `yaml:"endpoint"`

	// Provider names the wire protocol (ollama, anthropic).
	Provider string `yaml:"provider"`

	// Reason is the model used for planning and critique.
	Reason string `yaml:"reason"`

	// General is the model used for analysis and as fallback.
	General string `yaml:"general"`

	// Temperature controls critique randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
}

// ResearchConfig configures reference-material gathering for analyses.
type ResearchConfig struct {
	// SourceURLs lists reference pages fetched once per run and shared
	// across topic analyses. Empty disables research enrichment.
	SourceURLs []string `yaml:"source_urls"`

	// FetchTimeout bounds each page fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// StoreConfig configures artifact persistence.
type StoreConfig struct {
	// Dir is the base directory for run artifacts.
	Dir string `yaml:"dir"`
}

// NATSConfig configures event publishing.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr is the address for the /metrics listener (empty =
	// disabled).
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			ScoreThreshold: 7,
			MaxRetries:     3,
			MaxConcurrency: 4,
			TopicLimit:     0,
			CallTimeout:    3 * time.Minute,
		},
		Models: ModelsConfig{
			Endpoint:    "http://localhost:11434/v1",
			Provider:    "ollama",
			Reason:      "qwen3:8b",
			General:     "granite3.3:8b",
			Temperature: 0.3,
		},
		Research: ResearchConfig{
			FetchTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Dir: ".planforge",
		},
		NATS:    NATSConfig{URL: ""},
		Metrics: MetricsConfig{ListenAddr: ""},
	}
}

// Validate checks that the configuration is valid. It fails fast so a bad
// threshold or worker count never reaches a running workflow.
func (c *Config) Validate() error {
	if c.Workflow.ScoreThreshold < plan.ScoreMin || c.Workflow.ScoreThreshold > plan.ScoreMax {
		return fmt.Errorf("workflow.score_threshold must be between %g and %g", plan.ScoreMin, plan.ScoreMax)
	}
	if c.Workflow.MaxRetries < 1 {
		return fmt.Errorf("workflow.max_retries must be positive")
	}
	if c.Workflow.MaxConcurrency < 1 {
		return fmt.Errorf("workflow.max_concurrency must be positive")
	}
	if c.Workflow.TopicLimit < 0 {
		return fmt.Errorf("workflow.topic_limit must not be negative")
	}
	if c.Workflow.CallTimeout <= 0 {
		return fmt.Errorf("workflow.call_timeout must be positive")
	}
	if c.Models.Endpoint == "" {
		return fmt.Errorf("models.endpoint is required")
	}
	if c.Models.Reason == "" {
		return fmt.Errorf("models.reason is required")
	}
	if c.Models.General == "" {
		return fmt.Errorf("models.general is required")
	}
	if c.Models.Temperature < 0 || c.Models.Temperature > 1 {
		return fmt.Errorf("models.temperature must be between 0 and 1")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	return nil
}

// Registry builds a model registry from the configured endpoints: the
// reason model serves planning and critique, the general model serves
// analysis, and each falls back to the other.
func (c *Config) Registry() *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityPlanning: {
				Preferred: []string{"reason"},
				Fallback:  []string{"general"},
			},
			model.CapabilityReviewing: {
				Preferred: []string{"reason"},
				Fallback:  []string{"general"},
			},
			model.CapabilityAnalysis: {
				Preferred: []string{"general"},
				Fallback:  []string{"reason"},
			},
			model.CapabilityFast: {
				Preferred: []string{"general"},
			},
		},
		map[string]*model.EndpointConfig{
			"reason": {
				Provider: c.Models.Provider,
				URL:      c.Models.Endpoint,
				Model:    c.Models.Reason,
			},
			"general": {
				Provider: c.Models.Provider,
				URL:      c.Models.Endpoint,
				Model:    c.Models.General,
			},
		},
	)
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Workflow
	if other.Workflow.ScoreThreshold != 0 {
		c.Workflow.ScoreThreshold = other.Workflow.ScoreThreshold
	}
	if other.Workflow.MaxRetries != 0 {
		c.Workflow.MaxRetries = other.Workflow.MaxRetries
	}
	if other.Workflow.MaxConcurrency != 0 {
		c.Workflow.MaxConcurrency = other.Workflow.MaxConcurrency
	}
	if other.Workflow.TopicLimit != 0 {
		c.Workflow.TopicLimit = other.Workflow.TopicLimit
	}
	if other.Workflow.CallTimeout != 0 {
		c.Workflow.CallTimeout = other.Workflow.CallTimeout
	}

	// Models
	if other.Models.Endpoint != "" {
		c.Models.Endpoint = other.Models.Endpoint
	}
	if other.Models.Provider != "" {
		c.Models.Provider = other.Models.Provider
	}
	if other.Models.Reason != "" {
		c.Models.Reason = other.Models.Reason
	}
	if other.Models.General != "" {
		c.Models.General = other.Models.General
	}
	if other.Models.Temperature != 0 {
		c.Models.Temperature = other.Models.Temperature
	}

	// Research
	if len(other.Research.SourceURLs) > 0 {
		c.Research.SourceURLs = other.Research.SourceURLs
	}
	if other.Research.FetchTimeout != 0 {
		c.Research.FetchTimeout = other.Research.FetchTimeout
	}

	// Store
	if other.Store.Dir != "" {
		c.Store.Dir = other.Store.Dir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Metrics
	if other.Metrics.ListenAddr != "" {
		c.Metrics.ListenAddr = other.Metrics.ListenAddr
	}
}
