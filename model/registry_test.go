package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/model"
)

func TestRegistry_Resolve(t *testing.T) {
	r := model.NewDefaultRegistry()

	assert.Equal(t, "qwen-reason", r.Resolve(model.CapabilityPlanning))
	assert.Equal(t, "qwen-reason", r.Resolve(model.CapabilityReviewing))
	assert.Equal(t, "granite-general", r.Resolve(model.CapabilityAnalysis))

	// Unknown capability falls back to the default model.
	assert.Equal(t, "granite-general", r.Resolve(model.Capability("unknown")))
}

func TestRegistry_GetFallbackChain(t *testing.T) {
	r := model.NewDefaultRegistry()

	chain := r.GetFallbackChain(model.CapabilityPlanning)
	assert.Equal(t, []string{"qwen-reason", "granite-general"}, chain)

	chain = r.GetFallbackChain(model.Capability("unknown"))
	assert.Equal(t, []string{"granite-general"}, chain)
}

func TestRegistry_GetEndpoint(t *testing.T) {
	r := model.NewDefaultRegistry()

	ep := r.GetEndpoint("qwen-reason")
	require.NotNil(t, ep)
	assert.Equal(t, "ollama", ep.Provider)
	assert.Equal(t, "qwen3:8b", ep.Model)

	assert.Nil(t, r.GetEndpoint("nonexistent"))
}

func TestRegistry_CircuitBreaker(t *testing.T) {
	r := model.NewDefaultRegistry()
	r.SetHealthConfig(model.HealthConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  10 * time.Millisecond,
	})

	// Below threshold stays available.
	r.MarkEndpointFailure("qwen-reason")
	assert.True(t, r.IsEndpointAvailable("qwen-reason"))

	// At threshold the circuit opens.
	r.MarkEndpointFailure("qwen-reason")
	assert.False(t, r.IsEndpointAvailable("qwen-reason"))

	health := r.GetEndpointHealth("qwen-reason")
	require.NotNil(t, health)
	assert.True(t, health.CircuitOpen)
	assert.Equal(t, 2, health.FailureCount)

	// Half-open after the recovery timeout.
	time.Sleep(15 * time.Millisecond)
	assert.True(t, r.IsEndpointAvailable("qwen-reason"))

	// Success closes the circuit and resets the failure count.
	r.MarkEndpointSuccess("qwen-reason")
	health = r.GetEndpointHealth("qwen-reason")
	assert.False(t, health.CircuitOpen)
	assert.Equal(t, 0, health.FailureCount)
}

func TestRegistry_GetAvailableFallbackChain(t *testing.T) {
	r := model.NewDefaultRegistry()
	r.SetHealthConfig(model.HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
	})

	// Trip the preferred endpoint; the chain skips it.
	r.MarkEndpointFailure("qwen-reason")
	chain := r.GetAvailableFallbackChain(model.CapabilityPlanning)
	assert.Equal(t, []string{"granite-general"}, chain)

	// With everything tripped the full chain comes back.
	r.MarkEndpointFailure("granite-general")
	chain = r.GetAvailableFallbackChain(model.CapabilityPlanning)
	assert.Equal(t, []string{"qwen-reason", "granite-general"}, chain)
}

func TestParseCapability(t *testing.T) {
	assert.Equal(t, model.CapabilityPlanning, model.ParseCapability("planning"))
	assert.Equal(t, model.Capability(""), model.ParseCapability("nonsense"))
}

func TestRegistry_UnknownEndpointIsAvailable(t *testing.T) {
	r := model.NewDefaultRegistry()
	assert.True(t, r.IsEndpointAvailable("never-seen"))
	assert.Nil(t, r.GetEndpointHealth("never-seen"))
}
