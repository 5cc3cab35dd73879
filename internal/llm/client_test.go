package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return 0 },
	}
}

func newTestClient(serverURL string) *Client {
	c := NewClient("test-key", "test-model")
	c.BaseURL = serverURL
	c.Retry = noBackoff()
	return c
}

func completionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func TestComplete_Success(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 0.001)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.InDelta(t, 0.9, req.TopP, 0.001)
		assert.InDelta(t, 0.5, req.FrequencyPenalty, 0.001)
		assert.InDelta(t, 0.5, req.PresencePenalty, 0.001)

		w.Write(completionBody("Here is some **advice**"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "Here is some advice", result.Text, "Response should be markdown-stripped")
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_RetriesExhaustedOnRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, 3, result.Attempts, "Client should attempt exactly MaxAttempts calls")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Contains(t, result.Text, "I apologize", "Degraded result keeps the conversation going")
}

func TestComplete_SucceedsOnSecondAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completionBody("second time lucky"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "second time lucky", result.Text)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_NoRetryOnPermanentError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "Non-429 errors must not be retried")
}

func TestComplete_RetriesOnTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from the first attempt

	client := newTestClient(server.URL)
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, 3, result.Attempts, "Transport failures are transient and retried")
}

func TestComplete_MissingAPIKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.APIKey = ""
	result := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "Missing credentials must fail before any network call")
}

func TestDefaultRetryPolicy_Backoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
}
