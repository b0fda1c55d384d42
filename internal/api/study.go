package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
	"github.com/sabaqhq/sabaq/internal/study"
)

// studyService is the slice of the study service the handlers need.
type studyService interface {
	Summarize(ctx context.Context, req study.SummaryRequest) (study.Summary, error)
	GenerateQuiz(ctx context.Context, req study.QuizRequest) (study.Quiz, error)
	ExplainCode(ctx context.Context, req study.ExplainRequest) (study.Explanation, error)
}

type studyHandler struct {
	service studyService
	logger  log.Logger
}

func (h *studyHandler) summarize(w http.ResponseWriter, r *http.Request) {
	var req study.SummaryRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	sum, err := h.service.Summarize(r.Context(), req)
	if err != nil {
		h.writeStudyError(w, "summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, sum, h.logger)
}

func (h *studyHandler) quiz(w http.ResponseWriter, r *http.Request) {
	var req study.QuizRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	quiz, err := h.service.GenerateQuiz(r.Context(), req)
	if err != nil {
		h.writeStudyError(w, "generate quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz, h.logger)
}

func (h *studyHandler) explainCode(w http.ResponseWriter, r *http.Request) {
	var req study.ExplainRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	exp, err := h.service.ExplainCode(r.Context(), req)
	if err != nil {
		h.writeStudyError(w, "explain code", err)
		return
	}
	writeJSON(w, http.StatusOK, exp, h.logger)
}

// writeStudyError maps study errors to status codes. Validation
// sentinels are caller mistakes; a dead gateway is a 503 because these
// endpoints have no original content to fall back to.
func (h *studyHandler) writeStudyError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, study.ErrEmptyText),
		errors.Is(err, study.ErrEmptyCode),
		errors.Is(err, study.ErrInvalidSummaryType),
		errors.Is(err, study.ErrInvalidQuestionCount),
		errors.Is(err, study.ErrInvalidDifficulty),
		errors.Is(err, study.ErrInvalidLevel):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
	case errors.Is(err, llm.ErrUnavailable):
		h.logger.Error("study generation unavailable", "op", op, "error", err)
		writeError(w, http.StatusServiceUnavailable, "llm_unavailable", "no provider available", h.logger)
	default:
		h.logger.Error("study generation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "study_failed", "failed to generate study aid", h.logger)
	}
}
