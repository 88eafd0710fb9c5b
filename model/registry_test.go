package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapability(t *testing.T) {
	tests := []struct {
		input string
		want  Capability
	}{
		{"suggesting", CapabilitySuggesting},
		{"describing", CapabilityDescribing},
		{"messaging", CapabilityMessaging},
		{"critiquing", CapabilityCritiquing},
		{"fast", CapabilityFast},
		{"planning", ""},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseCapability(tc.input), "input %q", tc.input)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, "claude-sonnet", r.Resolve(CapabilityMessaging))
	assert.Equal(t, "claude-haiku", r.Resolve(CapabilityFast))

	chain := r.GetFallbackChain(CapabilityCritiquing)
	require.NotEmpty(t, chain)
	assert.Equal(t, "claude-sonnet", chain[0])
	assert.Contains(t, chain, "qwen")

	ep := r.GetEndpoint("qwen")
	require.NotNil(t, ep)
	assert.Equal(t, "ollama", ep.Provider)

	assert.Nil(t, r.GetEndpoint("nope"))
}

func TestRegistry_UnknownCapabilityFallsBackToDefault(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, "claude-haiku", r.Resolve(Capability("unknown")))
	assert.Equal(t, []string{"claude-haiku"}, r.GetFallbackChain(Capability("unknown")))
}

func TestNewRegistry_FromConfig(t *testing.T) {
	cfg := &RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"messaging": {Preferred: []string{"local"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"local": {Provider: "ollama", URL: "http://localhost:11434/v1", Model: "llama3.2"},
		},
		DefaultModel: "local",
	}

	r := NewRegistry(cfg)
	assert.Equal(t, "local", r.Resolve(CapabilityMessaging))
	assert.Equal(t, "local", r.Resolve(CapabilityFast))
	require.NotNil(t, r.GetEndpoint("local"))
}

func TestNewRegistry_NilConfigUsesDefaults(t *testing.T) {
	r := NewRegistry(nil)
	assert.NotEmpty(t, r.ListEndpoints())
}

func TestRegistry_Merge(t *testing.T) {
	r := NewDefaultRegistry()
	r.Merge(&RegistryConfig{
		Endpoints: map[string]*EndpointConfig{
			"claude-sonnet": {Provider: "anthropic", Model: "claude-sonnet-4-20250514", MaxTokens: 100000},
			"extra":         {Provider: "openai", Model: "gpt-4o-mini"},
		},
		DefaultModel: "extra",
	})

	ep := r.GetEndpoint("claude-sonnet")
	require.NotNil(t, ep)
	assert.Equal(t, 100000, ep.MaxTokens)
	require.NotNil(t, r.GetEndpoint("extra"))
	assert.Equal(t, "extra", r.Resolve(Capability("unknown")))
}

func TestEndpointHealth_CircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	assert.True(t, r.IsEndpointAvailable("claude-sonnet"))

	r.MarkEndpointFailure("claude-sonnet")
	assert.True(t, r.IsEndpointAvailable("claude-sonnet"), "below threshold")

	r.MarkEndpointFailure("claude-sonnet")
	assert.False(t, r.IsEndpointAvailable("claude-sonnet"), "circuit open")

	health := r.GetEndpointHealth("claude-sonnet")
	require.NotNil(t, health)
	assert.True(t, health.CircuitOpen)
	assert.Equal(t, 2, health.FailureCount)

	r.MarkEndpointSuccess("claude-sonnet")
	assert.True(t, r.IsEndpointAvailable("claude-sonnet"), "circuit closed on success")
}

func TestEndpointHealth_RecoveryTimeout(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Millisecond})

	r.MarkEndpointFailure("qwen")
	assert.Eventually(t, func() bool {
		return r.IsEndpointAvailable("qwen")
	}, time.Second, 5*time.Millisecond, "half-open after recovery timeout")
}

func TestAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	full := r.GetFallbackChain(CapabilityMessaging)
	r.MarkEndpointFailure("claude-sonnet")

	chain := r.GetAvailableFallbackChain(CapabilityMessaging)
	assert.NotContains(t, chain, "claude-sonnet")
	assert.Less(t, len(chain), len(full))

	// All endpoints down: the full chain comes back.
	for _, name := range full {
		r.MarkEndpointFailure(name)
	}
	assert.Equal(t, full, r.GetAvailableFallbackChain(CapabilityMessaging))
}
