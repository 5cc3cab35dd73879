package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxHistory is the number of messages retained per conversation.
const DefaultMaxHistory = 10

var ErrUserExists = errors.New("user already exists")

// UserStore persists registered users keyed by email.
type UserStore interface {
	Get(email string) (*User, error)
	Create(user User) error
}

// SessionStore is an append-only record of scheduled mentor sessions.
type SessionStore interface {
	Append(session Session) error
	All() []Session
}

// ConversationStore keeps the retained message window per conversation.
// Reads degrade to empty results on missing or corrupt backing data;
// only writes surface errors.
type ConversationStore interface {
	Append(conversationID, role, content string, metadata map[string]any) (Message, error)
	Messages(conversationID string) []Message
	RecentContext(conversationID string, k int) string
}

// readJSONFile loads the whole backing document. A missing file or a
// parse failure yields the zero value so callers see "no data".
func readJSONFile(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read %s: %v", path, err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Failed to parse %s, treating as empty: %v", path, err)
	}
}

func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FileUserStore does whole-file read-modify-write on a JSON map keyed by
// email. No locking: concurrent writers can lose updates, acceptable only
// under single-process, low-concurrency operation.
type FileUserStore struct {
	path string
}

func NewFileUserStore(path string) *FileUserStore {
	return &FileUserStore{path: path}
}

func (s *FileUserStore) load() map[string]User {
	users := make(map[string]User)
	readJSONFile(s.path, &users)
	return users
}

func (s *FileUserStore) Get(email string) (*User, error) {
	users := s.load()
	user, ok := users[email]
	if !ok {
		return nil, nil // User not found
	}
	return &user, nil
}

func (s *FileUserStore) Create(user User) error {
	users := s.load()
	if _, ok := users[user.Email]; ok {
		return ErrUserExists
	}
	users[user.Email] = user
	return writeJSONFile(s.path, users)
}

type sessionsDocument struct {
	Sessions []Session `json:"sessions"`
}

// FileSessionStore appends sessions to a JSON list. Same whole-file
// read-modify-write caveats as FileUserStore.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Append(session Session) error {
	var doc sessionsDocument
	readJSONFile(s.path, &doc)
	doc.Sessions = append(doc.Sessions, session)
	return writeJSONFile(s.path, doc)
}

func (s *FileSessionStore) All() []Session {
	var doc sessionsDocument
	readJSONFile(s.path, &doc)
	if doc.Sessions == nil {
		return []Session{}
	}
	return doc.Sessions
}

type conversationsDocument struct {
	Conversations []Conversation `json:"conversations"`
}

// FileConversationStore persists every conversation in a single JSON
// document and trims each conversation to the last maxHistory messages
// on append.
type FileConversationStore struct {
	path       string
	maxHistory int
}

func NewFileConversationStore(path string, maxHistory int) *FileConversationStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &FileConversationStore{path: path, maxHistory: maxHistory}
}

func (s *FileConversationStore) load() conversationsDocument {
	var doc conversationsDocument
	readJSONFile(s.path, &doc)
	return doc
}

func (s *FileConversationStore) Append(conversationID, role, content string, metadata map[string]any) (Message, error) {
	doc := s.load()

	message := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	idx := -1
	for i := range doc.Conversations {
		if doc.Conversations[i].ID == conversationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		doc.Conversations = append(doc.Conversations, Conversation{ID: conversationID})
		idx = len(doc.Conversations) - 1
	}

	conv := &doc.Conversations[idx]
	conv.Messages = append(conv.Messages, message)
	if len(conv.Messages) > s.maxHistory {
		conv.Messages = conv.Messages[len(conv.Messages)-s.maxHistory:]
	}

	if err := writeJSONFile(s.path, doc); err != nil {
		return Message{}, err
	}
	return message, nil
}

func (s *FileConversationStore) Messages(conversationID string) []Message {
	doc := s.load()
	for i := range doc.Conversations {
		if doc.Conversations[i].ID == conversationID {
			return doc.Conversations[i].Messages
		}
	}
	return []Message{}
}

func (s *FileConversationStore) RecentContext(conversationID string, k int) string {
	messages := s.Messages(conversationID)
	if k > 0 && len(messages) > k {
		messages = messages[len(messages)-k:]
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
