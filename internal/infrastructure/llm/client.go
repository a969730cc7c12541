// Package llm is the outbound adapter for an OpenAI-compatible
// chat-completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/infrastructure/monitoring"
	"github.com/chatling/v2/internal/ports/outbound"
)

// Config holds the endpoint settings. Backoff is a constant delay applied
// between attempts, not an exponential schedule: the upstream rate limiter
// resets on a fixed window, so doubling waits buys nothing.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	Backoff           time.Duration
	RequestsPerMinute int
	Burst             int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	return c
}

// Client implements outbound.ChatCompleter with a bounded retry loop
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *monitoring.Metrics

	// sleep is swapped out in tests to observe backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a chat-completions client
func NewClient(config Config, metrics *monitoring.Metrics, logger *zap.Logger) *Client {
	config = config.withDefaults()
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.Burst),
		logger:  logger,
		metrics: metrics,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// attemptError classifies one failed attempt for retry accounting
type attemptError struct {
	rateLimited bool
	err         error
}

// Complete performs one chat completion with up to MaxRetries attempts.
// Every failure mode retries after the flat backoff; when the budget runs
// out the last failure decides between a rate-limited and a network error.
func (c *Client) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	start := time.Now()
	content, err := c.complete(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if apperrors.GetCode(err) == apperrors.CodeRateLimited {
			outcome = "rate_limited"
		}
	}
	if c.metrics != nil {
		c.metrics.LLMRequestsTotal.WithLabelValues(outcome).Inc()
		c.metrics.LLMRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	return content, err
}

func (c *Client) complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", apperrors.NewInternalError("marshal completion request").WithCause(err)
	}

	var last attemptError
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", apperrors.NewNetworkFailureError(c.config.BaseURL, err)
		}

		content, attemptErr := c.attempt(ctx, body)
		if attemptErr == nil {
			return content, nil
		}
		last = *attemptErr

		reason := "network"
		if attemptErr.rateLimited {
			reason = "rate_limited"
		}
		c.logger.Warn("chat completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.config.MaxRetries),
			zap.String("reason", reason),
			zap.Error(attemptErr.err))
		if c.metrics != nil && attempt < c.config.MaxRetries {
			c.metrics.LLMRetriesTotal.WithLabelValues(reason).Inc()
		}

		if attempt < c.config.MaxRetries {
			if err := c.sleep(ctx, c.config.Backoff); err != nil {
				return "", apperrors.NewNetworkFailureError(c.config.BaseURL, err)
			}
		}
	}

	if last.rateLimited {
		return "", apperrors.NewRateLimitedError(c.config.BaseURL)
	}
	return "", apperrors.NewNetworkFailureError(c.config.BaseURL, last.err)
}

func (c *Client) buildRequest(req outbound.CompletionRequest) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: tutoring.RoleSystem, Content: req.SystemPrompt})
	}
	for _, turn := range req.Messages {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	return chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// attempt performs a single HTTP round trip. An HTTP 200 with an empty body
// or empty content is a failure like any other: the caller needs text, and
// "" is indistinguishable from a broken upstream.
func (c *Client) attempt(ctx context.Context, body []byte) (string, *attemptError) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &attemptError{err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &attemptError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return "", &attemptError{rateLimited: true, err: fmt.Errorf("upstream returned 429")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", &attemptError{err: fmt.Errorf("upstream returned status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &attemptError{err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", &attemptError{err: fmt.Errorf("upstream returned an empty body")}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &attemptError{err: fmt.Errorf("decode upstream response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &attemptError{err: fmt.Errorf("upstream error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &attemptError{err: fmt.Errorf("upstream response carried no content")}
	}
	return parsed.Choices[0].Message.Content, nil
}
