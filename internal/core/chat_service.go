package core

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/codewiithcherry/ASHAAIBOT/internal/llm"
	"github.com/codewiithcherry/ASHAAIBOT/internal/rag"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

// recentContextMessages is how many retained messages are rendered into
// the recent-context block of the final user turn.
const recentContextMessages = 5

// ChatService orchestrates one chat turn: load context and knowledge,
// compose the prompt, call the completion API, persist both turns.
type ChatService struct {
	conversations store.ConversationStore
	retriever     *rag.Retriever // nil when no embedding backend is configured
	client        *llm.Client
}

func NewChatService(conversations store.ConversationStore, retriever *rag.Retriever, client *llm.Client) *ChatService {
	return &ChatService{
		conversations: conversations,
		retriever:     retriever,
		client:        client,
	}
}

// ChatResult always carries a normal-shaped response; backend failures
// surface only through Status and apologetic response text.
type ChatResult struct {
	ConversationID string
	Response       string
	History        []store.Message
	Status         string
}

func (s *ChatService) Respond(ctx context.Context, conversationID, userInput string) *ChatResult {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	history := s.conversations.Messages(conversationID)
	recentContext := s.conversations.RecentContext(conversationID, recentContextMessages)

	knowledge := ""
	if s.retriever != nil {
		knowledge = s.retriever.Context(ctx, userInput, rag.DefaultNumSnippets)
	}

	messages := ComposeMessages(history, renderUserTurn(recentContext, knowledge, userInput))
	result := s.client.Complete(ctx, messages)

	// The raw query and the (possibly apologetic) reply are both
	// retained, matching what the caller sees.
	if _, err := s.conversations.Append(conversationID, store.RoleUser, userInput, nil); err != nil {
		log.Printf("Failed to store user message for conversation %s: %v", conversationID, err)
	}
	if _, err := s.conversations.Append(conversationID, store.RoleAssistant, result.Text, nil); err != nil {
		log.Printf("Failed to store assistant message for conversation %s: %v", conversationID, err)
	}

	return &ChatResult{
		ConversationID: conversationID,
		Response:       result.Text,
		History:        s.conversations.Messages(conversationID),
		Status:         result.Status,
	}
}

// History returns the retained messages for a conversation.
func (s *ChatService) History(conversationID string) []store.Message {
	return s.conversations.Messages(conversationID)
}

// Summarize asks the model for a recap of the retained conversation,
// with a lower temperature than regular chat turns.
func (s *ChatService) Summarize(ctx context.Context, conversationID string) llm.Result {
	history := s.conversations.Messages(conversationID)
	messages := ComposeMessages(history, summaryRequest)

	params := s.client.Params
	params.Temperature = 0.3
	return s.client.CompleteWith(ctx, messages, params)
}
