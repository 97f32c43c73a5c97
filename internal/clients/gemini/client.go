// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
)

const (
	DefaultModel        = "gemini-2.0-flash"
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 5 * time.Second
)

// ErrRetriesExhausted is returned when the rate-limit retry budget runs out.
var ErrRetriesExhausted = errors.New("max retries exceeded for AI generation")

// Client implements the GeminiClient interface. All LLM calls in the
// pipeline route through it; rate-limit responses are retried with bounded
// exponential backoff, other errors propagate immediately.
type Client struct {
	client       *genai.Client
	model        string
	maxRetries   int
	initialDelay time.Duration
	logger       *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithRetry sets the retry budget and backoff base for rate-limit errors
func WithRetry(maxRetries int, initialDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:       genaiClient,
		model:        DefaultModel,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		logger:       common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GenerateContent generates AI content from a prompt, retrying rate-limit
// errors with exponential backoff.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return generateWithRetry(ctx, c.logger, c.maxRetries, c.initialDelay, func(ctx context.Context) (string, error) {
		return c.generateOnce(ctx, prompt)
	})
}

// generateOnce performs a single generation call.
func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}

	return extractTextFromResponse(result)
}

// generateFn is one attempt at a generation call.
type generateFn func(ctx context.Context) (string, error)

// generateWithRetry runs fn, retrying rate-limit errors with delay
// initialDelay * 2^attempt up to maxRetries attempts. Non-rate-limit errors
// propagate immediately; exhausting the budget returns ErrRetriesExhausted.
func generateWithRetry(ctx context.Context, logger *common.Logger, maxRetries int, initialDelay time.Duration, fn generateFn) (string, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		if !isRateLimited(err) {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		if attempt == maxRetries {
			break
		}

		delay := backoffDelay(initialDelay, attempt)
		logger.Warn().
			Int("attempt", attempt+1).
			Int("max", maxRetries).
			Dur("delay", delay).
			Msg("Rate limit hit, backing off")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", ErrRetriesExhausted
}

// backoffDelay returns initialDelay * 2^attempt.
func backoffDelay(initialDelay time.Duration, attempt int) time.Duration {
	return initialDelay * time.Duration(1<<uint(attempt))
}

// isRateLimited reports whether an error is a rate-limit signal.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	// Some transports surface 429s as plain errors
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// Ensure Client implements GeminiClient
var _ interfaces.GeminiClient = (*Client)(nil)
