package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sabaqhq/sabaq/internal/cache"
	"github.com/sabaqhq/sabaq/internal/log"
)

// cacheAdmin is the slice of the cache store the handler needs.
type cacheAdmin interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Invalidate(ctx context.Context, contentID string) (int64, error)
}

type cacheHandler struct {
	store  cacheAdmin
	logger log.Logger
}

func (h *cacheHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("cache stats failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "cache_unavailable", "cache is unavailable", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats, h.logger)
}

type invalidateResponse struct {
	ContentID   string `json:"content_id"`
	Invalidated int64  `json:"invalidated"`
}

// invalidate drops every cached variant of one chapter. Used by
// content editors after publishing a chapter revision.
func (h *cacheHandler) invalidate(w http.ResponseWriter, r *http.Request) {
	contentID := r.PathValue("content_id")
	if contentID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content_id is required", h.logger)
		return
	}

	n, err := h.store.Invalidate(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "cache_unavailable", "cache is unavailable", h.logger)
			return
		}
		h.logger.Error("cache invalidation failed", "content_id", contentID, "error", err)
		writeError(w, http.StatusInternalServerError, "invalidate_failed", "failed to invalidate cache", h.logger)
		return
	}

	h.logger.Info("cache invalidated", "content_id", contentID, "entries", n)
	writeJSON(w, http.StatusOK, invalidateResponse{ContentID: contentID, Invalidated: n}, h.logger)
}
