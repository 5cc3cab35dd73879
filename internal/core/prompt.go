package core

import (
	"fmt"

	"github.com/codewiithcherry/ASHAAIBOT/internal/llm"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

const systemInstruction = "You are ASHA, an AI career assistant. " +
	"Your role is to provide expert career guidance and support. You should: " +
	"1. Be friendly and professional in your responses. " +
	"2. Provide clear, actionable advice. " +
	"3. Ask relevant follow-up questions when needed. " +
	"4. Maintain context throughout the conversation. " +
	"5. Offer specific examples and resources when appropriate. " +
	"6. Be empathetic and understanding of career challenges. " +
	"7. Help with job search strategies, resume building, and interview preparation. " +
	"Always maintain a professional, empathetic, and solution-oriented approach while focusing on the user's career goals and aspirations. " +
	"IMPORTANT: Do not use markdown formatting, asterisks, or special characters in your responses. Use plain text only."

const summaryRequest = "Please provide a comprehensive summary of our conversation, including: " +
	"1. Key career-related topics discussed. " +
	"2. Important decisions or insights shared. " +
	"3. Action items or next steps identified. " +
	"4. Any specific resources or recommendations mentioned."

// ComposeMessages turns the retained history plus the new user turn into
// the ordered message list for the completion API. The persona
// instruction is attached only when this is the very first turn; later
// turns rely on the model honoring it across the multi-turn list.
func ComposeMessages(history []store.Message, userContent string) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: store.RoleUser, Content: userContent})

	if len(messages) == 1 {
		messages = append([]llm.ChatMessage{{Role: store.RoleSystem, Content: systemInstruction}}, messages...)
	}
	return messages
}

// renderUserTurn embeds the recent conversation context and retrieved
// knowledge into the final user turn. The raw query is what gets
// persisted; this rendering exists only for the completion call.
func renderUserTurn(recentContext, knowledge, query string) string {
	if recentContext == "" && knowledge == "" {
		return query
	}
	return fmt.Sprintf(
		"Previous conversation:\n%s\n\nRelevant knowledge:\n%s\n\nUser query: %s\n\nPlease provide a comprehensive and helpful response based on the conversation context and relevant knowledge.",
		recentContext, knowledge, query)
}
