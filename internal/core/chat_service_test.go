package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewiithcherry/ASHAAIBOT/internal/llm"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

func newTestChatService(t *testing.T, handler http.HandlerFunc) (*ChatService, store.ConversationStore) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := llm.NewClient("test-key", "test-model")
	client.BaseURL = server.URL
	client.Retry = llm.RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return 0 }}

	conversations := store.NewFileConversationStore(filepath.Join(t.TempDir(), "conversation_memory.json"), 0)
	return NewChatService(conversations, nil, client), conversations
}

func respondWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}
}

func TestChatService_RespondPersistsBothTurns(t *testing.T) {
	service, conversations := newTestChatService(t, respondWith("You could start with a skills audit."))

	result := service.Respond(context.Background(), "conv-1", "How do I switch careers?")

	assert.Equal(t, llm.StatusSuccess, result.Status)
	assert.Equal(t, "conv-1", result.ConversationID)
	assert.Equal(t, "You could start with a skills audit.", result.Response)

	messages := conversations.Messages("conv-1")
	require.Len(t, messages, 2)
	assert.Equal(t, store.RoleUser, messages[0].Role)
	assert.Equal(t, "How do I switch careers?", messages[0].Content, "The raw query is persisted, not the rendered turn")
	assert.Equal(t, store.RoleAssistant, messages[1].Role)
	require.Len(t, result.History, 2, "Result history mirrors the retained conversation")
}

func TestChatService_RespondGeneratesConversationID(t *testing.T) {
	service, _ := newTestChatService(t, respondWith("hello"))

	result := service.Respond(context.Background(), "", "hi")

	assert.NotEmpty(t, result.ConversationID, "A fresh conversation gets an id assigned")
	assert.Len(t, service.History(result.ConversationID), 2)
}

func TestChatService_RespondDegradesOnUpstreamFailure(t *testing.T) {
	service, conversations := newTestChatService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	result := service.Respond(context.Background(), "conv-1", "hello")

	assert.Equal(t, llm.StatusError, result.Status)
	assert.Contains(t, result.Response, "I apologize")

	messages := conversations.Messages("conv-1")
	require.Len(t, messages, 2, "Degraded replies are retained like normal turns")
	assert.Equal(t, result.Response, messages[1].Content)
}

func TestChatService_SecondTurnCarriesHistory(t *testing.T) {
	var sawMessages [][]string
	service, _ := newTestChatService(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.ChatMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		var roles []string
		for _, m := range req.Messages {
			roles = append(roles, m.Role)
		}
		sawMessages = append(sawMessages, roles)
		respondWith("ok")(w, r)
	})

	service.Respond(context.Background(), "conv-1", "first question")
	service.Respond(context.Background(), "conv-1", "second question")

	require.Len(t, sawMessages, 2)
	assert.Equal(t, []string{store.RoleSystem, store.RoleUser}, sawMessages[0], "First turn gets the system instruction")
	assert.Equal(t, []string{store.RoleUser, store.RoleAssistant, store.RoleUser}, sawMessages[1], "Later turns carry history, no system instruction")
}

func TestChatService_Summarize(t *testing.T) {
	var gotTemperature float64
	service, conversations := newTestChatService(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotTemperature = req["temperature"].(float64)
		respondWith("We discussed interview preparation.")(w, r)
	})

	conversations.Append("conv-1", store.RoleUser, "interview tips?", nil)
	conversations.Append("conv-1", store.RoleAssistant, "practice aloud", nil)

	result := service.Summarize(context.Background(), "conv-1")

	assert.Equal(t, llm.StatusSuccess, result.Status)
	assert.Equal(t, "We discussed interview preparation.", result.Text)
	assert.InDelta(t, 0.3, gotTemperature, 0.001, "Summaries use a lower temperature than chat turns")
}
