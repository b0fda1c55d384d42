package knowledge

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/sabaqhq/sabaq/internal/log"
)

type storedDoc struct {
	doc       Document
	embedding pgvector.Vector
}

type mockQuerier struct {
	docs    map[string]storedDoc
	failErr error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{docs: make(map[string]storedDoc)}
}

func (m *mockQuerier) UpsertDocument(_ context.Context, doc Document, embedding pgvector.Vector) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.docs[doc.ID] = storedDoc{doc: doc, embedding: embedding}
	return nil
}

func (m *mockQuerier) SearchDocuments(_ context.Context, embedding pgvector.Vector, contentID string, limit int32) ([]Result, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var results []Result
	for _, s := range m.docs {
		if contentID != "" && s.doc.ContentID != contentID {
			continue
		}
		results = append(results, Result{
			Document:   s.doc,
			Similarity: cosine(embedding.Slice(), s.embedding.Slice()),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if int32(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *mockQuerier) DeleteByContentID(_ context.Context, contentID string) (int64, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	var n int64
	for id, s := range m.docs {
		if s.doc.ContentID == contentID {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *mockQuerier) CountDocuments(_ context.Context) (int64, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	return int64(len(m.docs)), nil
}

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot // test vectors are unit-length
}

// keywordEmbedder maps known keywords to fixed unit vectors so
// similarity ordering is deterministic without a live model. It records
// the Options of the last request so tests can check the dimension cap.
type keywordEmbedder struct {
	lastOptions any
}

func (*keywordEmbedder) Name() string { return "test-embedder" }

func (*keywordEmbedder) Register(api.Registry) {}

func (e *keywordEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.lastOptions = req.Options
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: embedText(text),
		})
	}
	return resp, nil
}

func embedText(text string) []float32 {
	v := make([]float32, 3)
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "kinematic"):
		v[0] = 1
	case strings.Contains(lower, "sensor"):
		v[1] = 1
	default:
		v[2] = 1
	}
	return v
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing-embedder" }

func (failingEmbedder) Register(api.Registry) {}

func (failingEmbedder) Embed(context.Context, *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return nil, errors.New("embedder offline")
}

func TestAddAndSearch(t *testing.T) {
	q := newMockQuerier()
	s := New(q, &keywordEmbedder{}, log.NewNop())
	ctx := context.Background()

	docs := []Document{
		{ID: "ch1:0000", ContentID: "chapter-01", Heading: "Kinematics", Content: "Forward kinematics maps joints to pose."},
		{ID: "ch2:0000", ContentID: "chapter-02", Heading: "Sensors", Content: "A sensor measures the environment."},
	}
	for _, d := range docs {
		if err := s.Add(ctx, d); err != nil {
			t.Fatalf("Add(%s): %v", d.ID, err)
		}
	}

	results, err := s.Search(ctx, "what is forward kinematics?", WithTopK(1))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Document.ID != "ch1:0000" {
		t.Errorf("top result = %s, want the kinematics chunk", results[0].Document.ID)
	}
	if results[0].Similarity <= 0 {
		t.Errorf("Similarity = %f", results[0].Similarity)
	}
}

func TestSearchContentIDFilter(t *testing.T) {
	q := newMockQuerier()
	s := New(q, &keywordEmbedder{}, log.NewNop())
	ctx := context.Background()

	_ = s.Add(ctx, Document{ID: "a", ContentID: "chapter-01", Content: "kinematics"})
	_ = s.Add(ctx, Document{ID: "b", ContentID: "chapter-02", Content: "kinematics again"})

	results, err := s.Search(ctx, "kinematics", WithContentID("chapter-02"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "b" {
		t.Errorf("results = %+v, want only chapter-02 chunks", results)
	}
}

func TestAddValidation(t *testing.T) {
	s := New(newMockQuerier(), &keywordEmbedder{}, log.NewNop())

	if err := s.Add(context.Background(), Document{ID: "", Content: "x"}); err == nil {
		t.Error("expected error for missing ID")
	}
	if err := s.Add(context.Background(), Document{ID: "x", Content: ""}); err == nil {
		t.Error("expected error for missing content")
	}
}

func TestEmbedRequestsSchemaDimension(t *testing.T) {
	emb := &keywordEmbedder{}
	s := New(newMockQuerier(), emb, log.NewNop())
	ctx := context.Background()

	if err := s.Add(ctx, Document{ID: "d", ContentID: "chapter-01", Content: "kinematics"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cfg, ok := emb.lastOptions.(*genai.EmbedContentConfig)
	if !ok {
		t.Fatalf("embed options = %T, want *genai.EmbedContentConfig", emb.lastOptions)
	}
	if cfg.OutputDimensionality == nil || *cfg.OutputDimensionality != VectorDimension {
		t.Errorf("OutputDimensionality = %v, want %d", cfg.OutputDimensionality, VectorDimension)
	}

	emb.lastOptions = nil
	if _, err := s.Search(ctx, "kinematics"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	cfg, ok = emb.lastOptions.(*genai.EmbedContentConfig)
	if !ok || cfg.OutputDimensionality == nil || *cfg.OutputDimensionality != VectorDimension {
		t.Errorf("query embed did not cap dimensions: %+v", emb.lastOptions)
	}
}

func TestEmbedderFailure(t *testing.T) {
	s := New(newMockQuerier(), failingEmbedder{}, log.NewNop())
	ctx := context.Background()

	if err := s.Add(ctx, Document{ID: "d", Content: "x"}); err == nil {
		t.Error("Add must fail when embedding fails")
	}
	if _, err := s.Search(ctx, "query"); err == nil {
		t.Error("Search must fail when embedding fails")
	}
}

func TestInvalidateAndCount(t *testing.T) {
	q := newMockQuerier()
	s := New(q, &keywordEmbedder{}, log.NewNop())
	ctx := context.Background()

	_ = s.Add(ctx, Document{ID: "a", ContentID: "chapter-01", Content: "one"})
	_ = s.Add(ctx, Document{ID: "b", ContentID: "chapter-01", Content: "two"})
	_ = s.Add(ctx, Document{ID: "c", ContentID: "chapter-02", Content: "three"})

	n, err := s.Invalidate(ctx, "chapter-01")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 2 {
		t.Errorf("Invalidate removed %d, want 2", n)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestChunkChapter(t *testing.T) {
	text := "Preamble text.\n\n# Motors\n\nHow motors work.\n\n## Control\n\nPID loops.\n"

	docs := ChunkChapter("chapter-03", text)
	if len(docs) != 3 {
		t.Fatalf("got %d chunks, want 3: %+v", len(docs), docs)
	}

	if docs[0].Heading != "" || docs[1].Heading != "Motors" || docs[2].Heading != "Control" {
		t.Errorf("headings = %q, %q, %q", docs[0].Heading, docs[1].Heading, docs[2].Heading)
	}
	for i, d := range docs {
		if d.ContentID != "chapter-03" {
			t.Errorf("chunk %d ContentID = %q", i, d.ContentID)
		}
		if !strings.HasPrefix(d.ID, "chapter-03:") {
			t.Errorf("chunk %d ID = %q", i, d.ID)
		}
	}
}

func TestChunkChapterSplitsLargeSections(t *testing.T) {
	para := strings.Repeat("word ", 500) // ~2.5 KiB
	var sb strings.Builder
	sb.WriteString("# Big\n\n")
	for i := 0; i < 8; i++ {
		sb.WriteString(para)
		sb.WriteString("\n\n")
	}

	docs := ChunkChapter("chapter-04", sb.String())
	if len(docs) < 2 {
		t.Fatalf("oversized section not split: %d chunks", len(docs))
	}
	for i, d := range docs {
		if len(d.Content) > maxChunkBytes {
			t.Errorf("chunk %d is %d bytes, exceeds limit", i, len(d.Content))
		}
		if d.Heading != "Big" {
			t.Errorf("chunk %d lost its heading: %q", i, d.Heading)
		}
	}
}
