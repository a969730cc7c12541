package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/outbound"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

// newTestClient wires a client against a test server with an instant,
// counted sleep so backoff behavior is observable without real waiting.
func newTestClient(t *testing.T, url string, sleeps *int32) *Client {
	t.Helper()
	client := NewClient(Config{
		BaseURL:           url,
		APIKey:            "test-key",
		Model:             "test-model",
		MaxRetries:        3,
		Backoff:           2 * time.Second,
		RequestsPerMinute: 6000,
		Burst:             100,
	}, nil, zaptest.NewLogger(t))
	client.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, 2*time.Second, d)
		atomic.AddInt32(sleeps, 1)
		return nil
	}
	return client
}

func testRequest() outbound.CompletionRequest {
	return outbound.CompletionRequest{
		SystemPrompt: "You are a test assistant.",
		Messages:     []tutoring.Turn{{Role: tutoring.RoleUser, Content: "hello"}},
		MaxTokens:    100,
		Temperature:  0.1,
	}
}

func TestCompleteSuccess(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		messages := req["messages"].([]interface{})
		first := messages[0].(map[string]interface{})
		assert.Equal(t, "system", first["role"])

		fmt.Fprint(w, completionBody("hi there"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	content, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi there", content)
	assert.Equal(t, int32(0), atomic.LoadInt32(&sleeps))
}

func TestCompleteRetriesThroughRateLimiting(t *testing.T) {
	var sleeps int32
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("finally"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	content, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "finally", content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	// Two failures, two flat backoff sleeps, none after the success
	assert.Equal(t, int32(2), atomic.LoadInt32(&sleeps))
}

func TestCompleteRateLimitBudgetExhausted(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRateLimited, apperrors.GetCode(err))
	// No sleep after the final attempt
	assert.Equal(t, int32(2), atomic.LoadInt32(&sleeps))
}

func TestCompleteEmptyBodyIsFailure(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetworkFailure, apperrors.GetCode(err))
}

func TestCompleteEmptyContentIsFailure(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(""))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetworkFailure, apperrors.GetCode(err))
}

func TestCompleteRecoversAfterServerError(t *testing.T) {
	var sleeps int32
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, completionBody("recovered"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	content, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sleeps))
}

func TestCompleteServerUnreachable(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	client := newTestClient(t, srv.URL, &sleeps)
	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetworkFailure, apperrors.GetCode(err))
}

func TestCompleteUpstreamErrorPayload(t *testing.T) {
	var sleeps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"message": "model overloaded", "type": "server_error"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &sleeps)
	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetworkFailure, apperrors.GetCode(err))
}

func TestCompleteContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:           srv.URL,
		Model:             "test-model",
		MaxRetries:        3,
		Backoff:           time.Second,
		RequestsPerMinute: 6000,
		Burst:             100,
	}, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := client.Complete(ctx, testRequest())
	require.Error(t, err)
}
