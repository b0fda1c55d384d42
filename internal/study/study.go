// Package study generates learning aids from textbook content: chapter
// summaries, quizzes and code explanations. Each aid is one constrained
// prompt through the LLM gateway followed by structural parsing of the
// reply, so callers get typed records instead of raw model text.
package study

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
)

// Validation sentinels. These surface as 400 at the API.
var (
	// ErrEmptyText indicates the text to summarize or quiz over is blank.
	ErrEmptyText = errors.New("study: text is required")

	// ErrEmptyCode indicates the code to explain is blank.
	ErrEmptyCode = errors.New("study: code is required")

	// ErrInvalidSummaryType indicates an unknown summary type.
	ErrInvalidSummaryType = errors.New("study: invalid summary type")

	// ErrInvalidQuestionCount indicates a question count outside 1..20.
	ErrInvalidQuestionCount = errors.New("study: question count must be 1-20")

	// ErrInvalidDifficulty indicates an unknown quiz difficulty.
	ErrInvalidDifficulty = errors.New("study: invalid difficulty")

	// ErrInvalidLevel indicates an unknown explanation level.
	ErrInvalidLevel = errors.New("study: invalid explanation level")
)

// Generator produces text from a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (llm.Result, error)
}

// Service builds study aids. Safe for concurrent use.
type Service struct {
	gateway Generator
	logger  log.Logger
}

// New creates a study service over the given gateway.
func New(gateway Generator, logger log.Logger) (*Service, error) {
	if gateway == nil {
		return nil, errors.New("study: gateway is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{gateway: gateway, logger: logger}, nil
}

// SummaryRequest asks for a summary of chapter or section text.
type SummaryRequest struct {
	Text string `json:"text"`

	// Type is concise, balanced or detailed. Empty means balanced.
	Type string `json:"summary_type"`

	// FocusArea optionally narrows the summary to one topic.
	FocusArea string `json:"focus_area"`
}

// Summary is a parsed summarization result.
type Summary struct {
	Summary          string   `json:"summary"`
	KeyPoints        []string `json:"key_points"`
	WordCount        int      `json:"word_count"`
	OriginalWords    int      `json:"original_words"`
	CompressionRatio float64  `json:"compression_ratio"`
	Provider         string   `json:"provider"`
	FallbackUsed     bool     `json:"fallback_used"`
}

var summaryTypes = map[string]string{
	"concise":  "Write a tight summary of at most 3 sentences.",
	"balanced": "Write a summary of one or two paragraphs covering the main ideas.",
	"detailed": "Write a thorough summary that keeps every major concept, in several paragraphs.",
}

// Summarize condenses text and extracts up to five key points.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (Summary, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Summary{}, ErrEmptyText
	}
	kind := req.Type
	if kind == "" {
		kind = "balanced"
	}
	instruction, ok := summaryTypes[kind]
	if !ok {
		return Summary{}, fmt.Errorf("%w: %q", ErrInvalidSummaryType, req.Type)
	}

	gen, err := s.gateway.Complete(ctx, buildSummaryPrompt(req.Text, instruction, req.FocusArea))
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	sum := parseSummary(gen.Text, wordCount(req.Text))
	sum.Provider = gen.Provider
	sum.FallbackUsed = gen.FallbackUsed

	s.logger.Debug("summary generated",
		"type", kind,
		"words", sum.WordCount,
		"provider", gen.Provider)
	return sum, nil
}

// QuizRequest asks for quiz questions over content.
type QuizRequest struct {
	Content string `json:"content"`

	// QuestionCount is 1-20. Zero means 5.
	QuestionCount int `json:"question_count"`

	// Difficulty is beginner, intermediate, advanced or mixed.
	// Empty means mixed.
	Difficulty string `json:"difficulty"`

	// QuestionTypes defaults to multiple_choice and true_false.
	QuestionTypes []string `json:"question_types"`
}

// Question is one quiz item.
type Question struct {
	ID            int      `json:"id"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
}

// Quiz is a parsed quiz with per-difficulty counts and a time estimate.
type Quiz struct {
	Questions              []Question     `json:"questions"`
	TotalQuestions         int            `json:"total_questions"`
	DifficultyDistribution map[string]int `json:"difficulty_distribution"`
	EstimatedMinutes       int            `json:"estimated_time_minutes"`
	Provider               string         `json:"provider"`
	FallbackUsed           bool           `json:"fallback_used"`
}

var quizDifficulties = map[string]bool{
	"beginner": true, "intermediate": true, "advanced": true, "mixed": true,
}

// GenerateQuiz produces questions from content. The model is asked for
// JSON; a non-JSON reply falls back to a line-oriented parse so callers
// always get at least one question.
func (s *Service) GenerateQuiz(ctx context.Context, req QuizRequest) (Quiz, error) {
	if strings.TrimSpace(req.Content) == "" {
		return Quiz{}, ErrEmptyText
	}
	count := req.QuestionCount
	if count == 0 {
		count = 5
	}
	if count < 1 || count > 20 {
		return Quiz{}, fmt.Errorf("%w: got %d", ErrInvalidQuestionCount, req.QuestionCount)
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "mixed"
	}
	if !quizDifficulties[difficulty] {
		return Quiz{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, req.Difficulty)
	}
	types := req.QuestionTypes
	if len(types) == 0 {
		types = []string{"multiple_choice", "true_false"}
	}

	gen, err := s.gateway.Complete(ctx, buildQuizPrompt(req.Content, count, difficulty, types))
	if err != nil {
		return Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	quiz := parseQuiz(gen.Text, difficulty)
	quiz.Provider = gen.Provider
	quiz.FallbackUsed = gen.FallbackUsed

	s.logger.Debug("quiz generated",
		"questions", quiz.TotalQuestions,
		"difficulty", difficulty,
		"provider", gen.Provider)
	return quiz, nil
}

// ExplainRequest asks for an explanation of a code snippet.
type ExplainRequest struct {
	Code string `json:"code"`

	// Language of the snippet. Empty means python.
	Language string `json:"language"`

	// Level is beginner, intermediate or advanced. Empty means
	// intermediate.
	Level string `json:"explanation_level"`

	// Context optionally names where the snippet comes from.
	Context string `json:"context"`
}

// LineNote explains one line of the snippet.
type LineNote struct {
	LineNumber  int    `json:"line_number"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// Concept is a named idea the snippet relies on.
type Concept struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

// Modification is a suggested variation of the snippet.
type Modification struct {
	Description string `json:"description"`
	ExampleCode string `json:"example_code,omitempty"`
}

// Explanation is a parsed code explanation.
type Explanation struct {
	Overview      string         `json:"overview"`
	LineByLine    []LineNote     `json:"line_by_line"`
	KeyConcepts   []Concept      `json:"key_concepts"`
	Pitfalls      []string       `json:"common_pitfalls"`
	Modifications []Modification `json:"suggested_modifications"`
	Provider      string         `json:"provider"`
	FallbackUsed  bool           `json:"fallback_used"`
}

var explainLevels = map[string]bool{
	"beginner": true, "intermediate": true, "advanced": true,
}

// ExplainCode explains a snippet section by section.
func (s *Service) ExplainCode(ctx context.Context, req ExplainRequest) (Explanation, error) {
	if strings.TrimSpace(req.Code) == "" {
		return Explanation{}, ErrEmptyCode
	}
	language := req.Language
	if language == "" {
		language = "python"
	}
	level := req.Level
	if level == "" {
		level = "intermediate"
	}
	if !explainLevels[level] {
		return Explanation{}, fmt.Errorf("%w: %q", ErrInvalidLevel, req.Level)
	}

	gen, err := s.gateway.Complete(ctx, buildExplainPrompt(req.Code, language, level, req.Context))
	if err != nil {
		return Explanation{}, fmt.Errorf("explain code: %w", err)
	}

	exp := parseExplanation(gen.Text)
	exp.Provider = gen.Provider
	exp.FallbackUsed = gen.FallbackUsed

	s.logger.Debug("code explained",
		"language", language,
		"level", level,
		"provider", gen.Provider)
	return exp, nil
}

func buildSummaryPrompt(text, instruction, focus string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert at summarizing robotics and AI textbook content.\n\n")
	sb.WriteString(instruction)
	sb.WriteString("\n")
	if focus != "" {
		fmt.Fprintf(&sb, "Focus on: %s.\n", focus)
	}
	sb.WriteString("\nAfter the summary, add a section titled \"Key Points\" with 3-5 bullet points.\n")
	sb.WriteString("\n---\n\nCONTENT:\n\n")
	sb.WriteString(text)
	return sb.String()
}

func buildQuizPrompt(content string, count int, difficulty string, types []string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert at writing assessment questions for a robotics textbook.\n\n")
	fmt.Fprintf(&sb, "Write %d quiz questions of difficulty %q from the content below.\n", count, difficulty)
	fmt.Fprintf(&sb, "Allowed question types: %s.\n\n", strings.Join(types, ", "))
	sb.WriteString("Each question is a JSON object with fields: id, type, difficulty, question, options, correct_answer, explanation, topic.\n")
	sb.WriteString("Return ONLY a valid JSON array of questions with no additional text.\n")
	sb.WriteString("\n---\n\nCONTENT:\n\n")
	sb.WriteString(content)
	return sb.String()
}

func buildExplainPrompt(code, language, level, context string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert robotics programming instructor.\n\n")
	fmt.Fprintf(&sb, "Explain the following %s code for a %s learner.\n", language, level)
	if context != "" {
		fmt.Fprintf(&sb, "Context: %s.\n", context)
	}
	sb.WriteString("\nStructure the answer with these markdown sections:\n")
	sb.WriteString("## Overview\n")
	sb.WriteString("## Line by Line (entries like \"Line 3: `code` - explanation\")\n")
	sb.WriteString("## Key Concepts (bulleted, \"Concept: explanation\")\n")
	sb.WriteString("## Common Pitfalls (bulleted)\n")
	sb.WriteString("## Suggested Modifications (bulleted, with fenced example code)\n")
	sb.WriteString("\n---\n\nCODE:\n\n```")
	sb.WriteString(language)
	sb.WriteString("\n")
	sb.WriteString(code)
	sb.WriteString("\n```\n")
	return sb.String()
}

// wordCount counts whitespace-separated words.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
