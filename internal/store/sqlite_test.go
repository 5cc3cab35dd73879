package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *KnowledgeIndex {
	t.Helper()
	index, err := NewKnowledgeIndex(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID("same content"), DocumentID("same content"))
	assert.NotEqual(t, DocumentID("one"), DocumentID("two"))
}

func TestKnowledgeIndex_UpsertAndAll(t *testing.T) {
	index := newTestIndex(t)

	docs := []KnowledgeDocument{
		{Content: "Negotiating a salary offer", Source: "career-guide", Type: "text", Embedding: []float32{0.1, 0.2}},
		{Content: "Preparing for a technical interview", Embedding: []float32{0.3, 0.4}},
	}
	require.NoError(t, index.Upsert(docs))

	loaded, err := index.All()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byContent := map[string]KnowledgeDocument{}
	for _, doc := range loaded {
		byContent[doc.Content] = doc
	}

	guide := byContent["Negotiating a salary offer"]
	assert.Equal(t, DocumentID(guide.Content), guide.ID)
	assert.Equal(t, "career-guide", guide.Source)
	assert.Equal(t, []float32{0.1, 0.2}, guide.Embedding)

	prep := byContent["Preparing for a technical interview"]
	assert.Equal(t, "unknown", prep.Source, "Missing source defaults")
	assert.Equal(t, "text", prep.Type, "Missing type defaults")
}

func TestKnowledgeIndex_ReingestDoesNotDuplicate(t *testing.T) {
	index := newTestIndex(t)

	doc := KnowledgeDocument{Content: "Resume structure basics", Embedding: []float32{1, 0}}
	require.NoError(t, index.Upsert([]KnowledgeDocument{doc}))
	require.NoError(t, index.Upsert([]KnowledgeDocument{doc}))

	loaded, err := index.All()
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "Content-stable ids must make re-ingestion an upsert")
}

func TestKnowledgeIndex_IngestFromFile(t *testing.T) {
	index := newTestIndex(t)

	entries := []map[string]string{
		{"content": "Networking tips for career changers", "source": "blog", "type": "text"},
		{"content": "", "source": "blog", "type": "text"}, // skipped
		{"content": "Common behavioral interview questions", "source": "faq", "type": "text"},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "knowledge.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text)), 1}, nil
	}

	count, err := index.IngestFromFile(context.Background(), path, embed)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "Empty documents are skipped")

	loaded, err := index.All()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
