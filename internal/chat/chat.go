// Package chat answers learner questions about the textbook using
// retrieval-augmented generation: relevant chapter chunks are fetched
// from the knowledge store and handed to the model as grounding.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sabaqhq/sabaq/internal/knowledge"
	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
)

const (
	// defaultTopK is how many chunks ground an answer.
	defaultTopK = 4

	// retrievalTimeout bounds the knowledge search; an answer without
	// grounding beats no answer.
	retrievalTimeout = 5 * time.Second

	// fallbackAnswer is returned when the model produces nothing usable.
	fallbackAnswer = "I could not generate an answer right now. Please try rephrasing your question or ask again later."
)

// ErrEmptyQuestion indicates a blank question.
var ErrEmptyQuestion = errors.New("empty question")

// Retriever fetches chapter chunks relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (llm.Result, error)
}

// Question is one learner query. ContentID optionally scopes
// retrieval to a single chapter.
type Question struct {
	Text      string `json:"question"`
	ContentID string `json:"content_id,omitempty"`
}

// Source identifies a chunk that grounded an answer.
type Source struct {
	ContentID  string  `json:"content_id"`
	Heading    string  `json:"heading,omitempty"`
	Similarity float32 `json:"similarity"`
}

// Answer is the generated response with its grounding.
type Answer struct {
	Text         string   `json:"answer"`
	Sources      []Source `json:"sources"`
	Provider     string   `json:"provider_used,omitempty"`
	FallbackUsed bool     `json:"fallback_used"`
}

// Config wires a Service.
type Config struct {
	Retriever Retriever
	Gateway   Generator
	Logger    log.Logger
	TopK      int32
}

// Service answers questions. Safe for concurrent use.
type Service struct {
	retriever Retriever
	gateway   Generator
	logger    log.Logger
	topK      int32
}

// New builds a Service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("chat: retriever is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("chat: gateway is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}

	return &Service{
		retriever: cfg.Retriever,
		gateway:   cfg.Gateway,
		logger:    cfg.Logger,
		topK:      cfg.TopK,
	}, nil
}

// Ask answers one question. Retrieval failures degrade to an
// ungrounded answer; generation failures degrade to a fixed fallback
// message. Only invalid input is an error.
func (s *Service) Ask(ctx context.Context, q Question) (Answer, error) {
	question := strings.TrimSpace(q.Text)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	results := s.retrieve(ctx, question, q.ContentID)

	gen, err := s.gateway.Complete(ctx, s.prompt(question, results))
	if err != nil {
		s.logger.Error("chat generation failed", "error", err)
		return Answer{
			Text:         fallbackAnswer,
			Sources:      sources(results),
			FallbackUsed: true,
		}, nil
	}

	return Answer{
		Text:         gen.Text,
		Sources:      sources(results),
		Provider:     gen.Provider,
		FallbackUsed: gen.FallbackUsed,
	}, nil
}

func (s *Service) retrieve(ctx context.Context, question, contentID string) []knowledge.Result {
	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	opts := []knowledge.SearchOption{knowledge.WithTopK(s.topK)}
	if contentID != "" {
		opts = append(opts, knowledge.WithContentID(contentID))
	}

	results, err := s.retriever.Search(ctx, question, opts...)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without grounding", "error", err)
		return nil
	}
	return results
}

func (s *Service) prompt(question string, results []knowledge.Result) string {
	var sb strings.Builder

	sb.WriteString("You are a teaching assistant for a Physical AI and Robotics textbook.\n")
	sb.WriteString("Answer the student's question using the textbook excerpts below. ")
	sb.WriteString("If the excerpts do not cover the question, say so and answer from general robotics knowledge, noting that the textbook does not cover it.\n\n")

	if len(results) == 0 {
		sb.WriteString("No relevant textbook excerpts were found.\n")
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "--- Excerpt %d (chapter %s", i+1, r.Document.ContentID)
		if r.Document.Heading != "" {
			fmt.Fprintf(&sb, ", section %q", r.Document.Heading)
		}
		sb.WriteString(") ---\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer in clear, student-friendly markdown. Keep code identifiers and technical terms in English.\n")

	return sb.String()
}

func sources(results []knowledge.Result) []Source {
	out := make([]Source, 0, len(results))
	for _, r := range results {
		out = append(out, Source{
			ContentID:  r.Document.ContentID,
			Heading:    r.Document.Heading,
			Similarity: r.Similarity,
		})
	}
	return out
}
