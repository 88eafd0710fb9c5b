// Package llm implements the synthesis oracle: a provider-agnostic LLM
// client with retry and fallback support, driven by the model.Registry's
// capability-based selection.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rbagg/ProjectAlignment/model"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines a completion request.
type Request struct {
	// Capability names the semantic capability ("suggesting", "messaging",
	// "critiquing", ...). The registry resolves it to available models.
	Capability string

	// Messages is the chat history to send.
	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default, 0 is
	// deterministic.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int
}

// TokenUsage represents token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the completion result.
type Response struct {
	// RequestID uniquely identifies this call for log correlation.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the actual model that was used.
	Model string

	// Usage contains token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Observation summarizes one finished oracle call for metrics hooks.
type Observation struct {
	Capability string
	Model      string
	Provider   string
	Duration   time.Duration
	Err        error
}

// Client is a provider-agnostic oracle client with retry and fallback.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
	observer    func(Observation)

	// callLog optionally persists finished calls. Nil disables recording.
	callLog *CallLog
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) { client.httpClient = c }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) { client.retryConfig = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) { client.logger = logger }
}

// WithObserver registers a hook invoked once per finished call, success or
// failure. Used to feed metrics.
func WithObserver(fn func(Observation)) ClientOption {
	return func(client *Client) { client.observer = fn }
}

// WithCallLog enables persistence of finished calls.
func WithCallLog(log *CallLog) ClientOption {
	return func(client *Client) { client.callLog = log }
}

// NewClient creates an oracle client backed by the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for slow completions
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete sends a completion request, handling retry and fallback logic.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	requestID := uuid.New().String()
	startedAt := time.Now()

	capVal := model.ParseCapability(req.Capability)
	if capVal == "" {
		capVal = model.CapabilityFast
	}
	chain := c.registry.GetAvailableFallbackChain(capVal)
	if len(chain) == 0 {
		return nil, fmt.Errorf("no models configured for capability %s", req.Capability)
	}

	var lastErr error
	for _, modelName := range chain {
		endpoint := c.registry.GetEndpoint(modelName)
		if endpoint == nil {
			c.logger.Debug("no endpoint for model, skipping", "model", modelName)
			continue
		}
		if !c.registry.IsEndpointAvailable(modelName) {
			c.logger.Debug("endpoint circuit open, skipping", "model", modelName)
			continue
		}

		resp, err := c.tryEndpointWithRetry(ctx, endpoint, modelName, req)
		if err == nil {
			resp.RequestID = requestID
			c.observe(Observation{
				Capability: req.Capability,
				Model:      modelName,
				Provider:   endpoint.Provider,
				Duration:   time.Since(startedAt),
			})
			c.recordCall(ctx, &CallRecord{
				RequestID:    requestID,
				Capability:   req.Capability,
				Model:        resp.Model,
				Provider:     endpoint.Provider,
				Messages:     req.Messages,
				Response:     resp.Content,
				Usage:        resp.Usage,
				FinishReason: resp.FinishReason,
				StartedAt:    startedAt,
				CompletedAt:  time.Now(),
			})
			return resp, nil
		}

		lastErr = err
		c.logger.Warn("endpoint failed, trying fallback",
			"model", modelName,
			"provider", endpoint.Provider,
			"error", err)

		if IsFatal(err) {
			c.logger.Warn("fatal error, not trying fallbacks", "error", err)
			c.observe(Observation{
				Capability: req.Capability,
				Model:      modelName,
				Provider:   endpoint.Provider,
				Duration:   time.Since(startedAt),
				Err:        err,
			})
			c.recordCall(ctx, &CallRecord{
				RequestID:   requestID,
				Capability:  req.Capability,
				Model:       modelName,
				Provider:    endpoint.Provider,
				Messages:    req.Messages,
				Error:       err.Error(),
				StartedAt:   startedAt,
				CompletedAt: time.Now(),
			})
			return nil, err
		}
	}

	c.observe(Observation{
		Capability: req.Capability,
		Duration:   time.Since(startedAt),
		Err:        lastErr,
	})
	c.recordCall(ctx, &CallRecord{
		RequestID:   requestID,
		Capability:  req.Capability,
		Messages:    req.Messages,
		Error:       fmt.Sprintf("all endpoints failed: %v", lastErr),
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	})
	return nil, fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
}

// Bind returns an Oracle-shaped view of the client fixed to one capability.
// Bound.Synthesize sends a single user message and returns the raw content.
func (c *Client) Bind(capability model.Capability) *Bound {
	return &Bound{client: c, capability: capability}
}

// Bound adapts the client to the one-prompt oracle interface the analysis
// and generation packages consume.
type Bound struct {
	client     *Client
	capability model.Capability
}

// Synthesize sends a single-prompt completion and returns the content.
func (b *Bound) Synthesize(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Complete(ctx, Request{
		Capability: b.capability.String(),
		Messages:   []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *Client) observe(o Observation) {
	if c.observer != nil {
		c.observer(o)
	}
}

// recordCall stores a call record if the call log is configured. Failures
// are logged but never affect the call itself.
func (c *Client) recordCall(ctx context.Context, record *CallRecord) {
	if c.callLog == nil {
		return
	}
	if err := c.callLog.Store(ctx, record); err != nil {
		c.logger.Warn("failed to record oracle call",
			"request_id", record.RequestID,
			"capability", record.Capability,
			"error", err)
	}
}

// tryEndpointWithRetry attempts a request against one endpoint with retry.
func (c *Client) tryEndpointWithRetry(ctx context.Context, ep *model.EndpointConfig, modelName string, req Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(modelName)
			return resp, nil
		}

		lastErr = err

		if IsFatal(err) {
			// Fatal errors usually mean config issues, not endpoint health.
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	c.registry.MarkEndpointFailure(modelName)
	return nil, lastErr
}

// calculateBackoff computes exponential backoff with jitter. Jitter prevents
// thundering herd when multiple clients retry simultaneously.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// doRequest executes a single HTTP request against an endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.BuildURL(ep.URL)

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("sending oracle request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("oracle API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return NewFatalError(err)
	case statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
