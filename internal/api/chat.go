package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sabaqhq/sabaq/internal/chat"
	"github.com/sabaqhq/sabaq/internal/log"
)

// askService is the slice of the chat service the handler needs.
type askService interface {
	Ask(ctx context.Context, q chat.Question) (chat.Answer, error)
}

type chatHandler struct {
	service askService
	logger  log.Logger
}

func (h *chatHandler) ask(w http.ResponseWriter, r *http.Request) {
	var q chat.Question
	if !decodeBody(w, r, &q, h.logger) {
		return
	}

	answer, err := h.service.Ask(r.Context(), q)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
			return
		}
		h.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat_failed", "failed to answer question", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, answer, h.logger)
}
