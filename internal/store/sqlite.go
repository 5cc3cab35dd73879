package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// EmbedFunc produces a vector embedding for a piece of text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// KnowledgeIndex persists knowledge documents and their embeddings.
type KnowledgeIndex struct {
	db *sql.DB
}

func NewKnowledgeIndex(dataSourceName string) (*KnowledgeIndex, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	index := &KnowledgeIndex{db: db}
	if err = index.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return index, nil
}

func (x *KnowledgeIndex) Close() error {
	return x.db.Close()
}

func (x *KnowledgeIndex) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS knowledge_documents (
        id TEXT PRIMARY KEY, -- content hash
        content TEXT NOT NULL,
        source TEXT NOT NULL DEFAULT 'unknown',
        type TEXT NOT NULL DEFAULT 'text',
        embedding_json TEXT -- Storing as JSON string of []float32
    );
    `
	_, err := x.db.Exec(schema)
	return err
}

// DocumentID derives a stable id from the document content, so
// re-ingesting the same document updates it in place instead of
// creating a duplicate.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func (x *KnowledgeIndex) Upsert(docs []KnowledgeDocument) error {
	stmt, err := x.db.Prepare("INSERT OR REPLACE INTO knowledge_documents (id, content, source, type, embedding_json) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	for i := range docs {
		doc := &docs[i]
		if doc.ID == "" {
			doc.ID = DocumentID(doc.Content)
		}
		if doc.Source == "" {
			doc.Source = "unknown"
		}
		if doc.Type == "" {
			doc.Type = "text"
		}

		embeddingJSON, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for document %s: %w", doc.ID, err)
		}
		if _, err := stmt.Exec(doc.ID, doc.Content, doc.Source, doc.Type, string(embeddingJSON)); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (x *KnowledgeIndex) All() ([]KnowledgeDocument, error) {
	rows, err := x.db.Query("SELECT id, content, source, type, embedding_json FROM knowledge_documents")
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge documents: %w", err)
	}
	defer rows.Close()

	var docs []KnowledgeDocument
	for rows.Next() {
		var doc KnowledgeDocument
		var embeddingJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &doc.Type, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge document: %w", err)
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &doc.Embedding); err != nil {
				log.Printf("Warning: failed to unmarshal embedding for document %s (content: %.50s...): %v. Embedding will be empty.", doc.ID, doc.Content, err)
				doc.Embedding = nil
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type ingestEntry struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Type    string `json:"type"`
}

// IngestFromFile reads a JSON array of knowledge documents, generates
// embeddings and upserts them into the index.
func (x *KnowledgeIndex) IngestFromFile(ctx context.Context, filePath string, embed EmbedFunc) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read data file %s: %w", filePath, err)
	}

	var entries []ingestEntry
	if err := json.Unmarshal(contentBytes, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse data file %s: %w", filePath, err)
	}
	if len(entries) == 0 {
		log.Println("No documents found in data file.")
		return 0, nil
	}

	log.Printf("Read %d documents from %s. Now embedding (this may take a while)...", len(entries), filePath)

	ticker := time.NewTicker(40 * time.Millisecond) // delay to not hit rate limit (1500/min)
	defer ticker.Stop()

	count := 0
	for i, entry := range entries {
		if entry.Content == "" {
			log.Printf("Skipping document %d with empty content.", i+1)
			continue
		}
		<-ticker.C

		embedding, err := embed(ctx, entry.Content)
		if err != nil {
			log.Printf("Failed to generate embedding for document %d (\"%.50s...\"): %v. Skipping.", i+1, entry.Content, err)
			continue
		}

		doc := KnowledgeDocument{
			Content:   entry.Content,
			Source:    entry.Source,
			Type:      entry.Type,
			Embedding: embedding,
		}
		if err := x.Upsert([]KnowledgeDocument{doc}); err != nil {
			log.Printf("Failed to store document %d: %v. Skipping.", i+1, err)
			continue
		}
		count++
		if count%10 == 0 || count == len(entries) {
			log.Printf("Ingested %d/%d documents...", count, len(entries))
		}
	}
	log.Printf("Successfully ingested %d documents.", count)
	return count, nil
}
