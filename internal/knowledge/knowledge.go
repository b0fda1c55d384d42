// Package knowledge stores embedded chapter chunks in PostgreSQL with
// pgvector and retrieves them by semantic similarity for chat grounding.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/sabaqhq/sabaq/internal/log"
)

// Document is one embeddable chunk of a chapter, typically a section
// under a single heading.
type Document struct {
	ID        string
	ContentID string
	Heading   string
	Content   string
	CreatedAt time.Time
}

// Result pairs a retrieved document with its cosine similarity to the
// query, in [0, 1].
type Result struct {
	Document   Document
	Similarity float32
}

// Querier defines the database operations the store needs. The
// interface is consumer-defined so tests can supply an in-memory
// implementation.
type Querier interface {
	UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error
	SearchDocuments(ctx context.Context, embedding pgvector.Vector, contentID string, limit int32) ([]Result, error)
	DeleteByContentID(ctx context.Context, contentID string) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)
}

// VectorDimension is the embedding width of the knowledge_documents
// schema. gemini-embedding-001 outputs 3072 dimensions by default but
// supports truncation via OutputDimensionality (Matryoshka
// Representation Learning), so every embed request asks for this width.
const VectorDimension int32 = 768

// searchTimeout bounds a single retrieval, embedding included.
const searchTimeout = 10 * time.Second

// Store manages knowledge documents. Safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store over the given querier and embedder.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}

	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds the document content and upserts it.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" || doc.Content == "" {
		return errors.New("document id and content are required")
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document %q: %w", doc.ID, err)
	}

	if err := s.queries.UpsertDocument(ctx, doc, embedding); err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("indexed document",
		"id", doc.ID,
		"content_id", doc.ContentID,
		"bytes", len(doc.Content))
	return nil
}

// SearchOption configures Search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK      int32
	contentID string
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) { c.topK = k }
}

// WithContentID restricts retrieval to chunks of one chapter.
func WithContentID(contentID string) SearchOption {
	return func(c *searchConfig) { c.contentID = contentID }
}

// Search returns the documents most similar to query, best first.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := searchConfig{topK: 5}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", cfg.topK)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.queries.SearchDocuments(ctx, embedding, cfg.contentID, cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}

// Invalidate removes every chunk of a chapter, typically before a
// re-index after the chapter changed.
func (s *Store) Invalidate(ctx context.Context, contentID string) (int64, error) {
	n, err := s.queries.DeleteByContentID(ctx, contentID)
	if err != nil {
		return 0, fmt.Errorf("delete documents for %q: %w", contentID, err)
	}

	s.logger.Info("removed indexed chunks", "content_id", contentID, "count", n)
	return n, nil
}

// Count returns the total number of indexed documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}

	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
