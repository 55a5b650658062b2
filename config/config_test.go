package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/config"
	"github.com/planforge/planforge/model"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7.0, cfg.Workflow.ScoreThreshold)
	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
	assert.Equal(t, 4, cfg.Workflow.MaxConcurrency)
	assert.Equal(t, "qwen3:8b", cfg.Models.Reason)
	assert.Equal(t, "granite3.3:8b", cfg.Models.General)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold too low", func(c *config.Config) { c.Workflow.ScoreThreshold = 0 }},
		{"threshold too high", func(c *config.Config) { c.Workflow.ScoreThreshold = 11 }},
		{"zero retries", func(c *config.Config) { c.Workflow.MaxRetries = 0 }},
		{"negative concurrency", func(c *config.Config) { c.Workflow.MaxConcurrency = -1 }},
		{"negative topic limit", func(c *config.Config) { c.Workflow.TopicLimit = -1 }},
		{"zero call timeout", func(c *config.Config) { c.Workflow.CallTimeout = 0 }},
		{"missing endpoint", func(c *config.Config) { c.Models.Endpoint = "" }},
		{"missing reason model", func(c *config.Config) { c.Models.Reason = "" }},
		{"missing general model", func(c *config.Config) { c.Models.General = "" }},
		{"temperature out of range", func(c *config.Config) { c.Models.Temperature = 1.5 }},
		{"missing store dir", func(c *config.Config) { c.Store.Dir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planforge.yaml")
	content := `
workflow:
  score_threshold: 8
  max_retries: 5
  call_timeout: 90s
models:
  reason: llama3:70b
nats:
  url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// File values override defaults; unset fields keep defaults.
	assert.Equal(t, 8.0, cfg.Workflow.ScoreThreshold)
	assert.Equal(t, 5, cfg.Workflow.MaxRetries)
	assert.Equal(t, 90*time.Second, cfg.Workflow.CallTimeout)
	assert.Equal(t, "llama3:70b", cfg.Models.Reason)
	assert.Equal(t, "granite3.3:8b", cfg.Models.General)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestConfig_LoadFromFile_Missing(t *testing.T) {
	_, err := config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Workflow.ScoreThreshold = 9
	cfg.Research.SourceURLs = []string{"https://example.com/market-report"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9.0, loaded.Workflow.ScoreThreshold)
	assert.Equal(t, cfg.Research.SourceURLs, loaded.Research.SourceURLs)
}

func TestConfig_Merge(t *testing.T) {
	base := config.DefaultConfig()
	base.Merge(&config.Config{
		Workflow: config.WorkflowConfig{ScoreThreshold: 8.5, TopicLimit: 3},
		Models:   config.ModelsConfig{Reason: "custom-model"},
		NATS:     config.NATSConfig{URL: "nats://broker:4222"},
	})

	assert.Equal(t, 8.5, base.Workflow.ScoreThreshold)
	assert.Equal(t, 3, base.Workflow.TopicLimit)
	assert.Equal(t, "custom-model", base.Models.Reason)
	assert.Equal(t, "nats://broker:4222", base.NATS.URL)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, base.Workflow.MaxRetries)
	assert.Equal(t, "granite3.3:8b", base.Models.General)

	base.Merge(nil)
	assert.Equal(t, 8.5, base.Workflow.ScoreThreshold)
}

func TestConfig_Registry(t *testing.T) {
	cfg := config.DefaultConfig()
	r := cfg.Registry()

	assert.Equal(t, "reason", r.Resolve(model.CapabilityPlanning))
	assert.Equal(t, "reason", r.Resolve(model.CapabilityReviewing))
	assert.Equal(t, "general", r.Resolve(model.CapabilityAnalysis))

	ep := r.GetEndpoint("reason")
	require.NotNil(t, ep)
	assert.Equal(t, "qwen3:8b", ep.Model)
	assert.Equal(t, "ollama", ep.Provider)
	assert.Equal(t, cfg.Models.Endpoint, ep.URL)
}
