package rag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/codewiithcherry/ASHAAIBOT/internal/llm"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

// DefaultNumSnippets is how many knowledge snippets go into a prompt.
const DefaultNumSnippets = 3

// Snippet is a retrieved knowledge fragment with its similarity score.
type Snippet struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Type    string  `json:"type"`
	Score   float32 `json:"score"`
}

// Retriever ranks ingested knowledge documents against a query by
// cosine similarity of their embeddings. Documents are cached in memory
// at startup.
type Retriever struct {
	embedder llm.Embedder
	docs     []store.KnowledgeDocument
}

func NewRetriever(index *store.KnowledgeIndex, embedder llm.Embedder) (*Retriever, error) {
	docs, err := index.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge documents for retriever: %w", err)
	}
	if len(docs) == 0 {
		log.Println("Warning: retriever initialized with no knowledge documents. Ensure data has been ingested with the current embedding model.")
	} else {
		log.Printf("Retriever initialized with %d knowledge documents.", len(docs))
	}

	return &Retriever{embedder: embedder, docs: docs}, nil
}

// Search returns up to k snippets ranked by similarity to the query.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if len(r.docs) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultNumSnippets
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	scored := make([]Snippet, 0, len(r.docs))
	for _, doc := range r.docs {
		if len(doc.Embedding) == 0 {
			log.Printf("Skipping document %s due to missing embedding.", doc.ID)
			continue
		}
		similarity, err := CosineSimilarity(queryEmbedding, doc.Embedding)
		if err != nil {
			log.Printf("Error calculating similarity for document %s: %v. Skipping.", doc.ID, err)
			continue
		}
		scored = append(scored, Snippet{
			Content: doc.Content,
			Source:  doc.Source,
			Type:    doc.Type,
			Score:   similarity,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Context concatenates the top-k snippet contents for prompt inclusion.
// Retrieval failures degrade to an empty context, never an error.
func (r *Retriever) Context(ctx context.Context, query string, k int) string {
	snippets, err := r.Search(ctx, query, k)
	if err != nil {
		log.Printf("Failed to retrieve knowledge context, proceeding without it: %v", err)
		return ""
	}
	if len(snippets) == 0 {
		return ""
	}

	contents := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		contents = append(contents, snippet.Content)
	}
	return strings.TrimSpace(strings.Join(contents, "\n"))
}
