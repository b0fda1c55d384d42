package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sabaqhq/sabaq/internal/content"
	"github.com/sabaqhq/sabaq/internal/log"
	"github.com/sabaqhq/sabaq/internal/transform"
)

// maxBodyBytes caps request bodies well above any legitimate chapter.
const maxBodyBytes = 1 << 20

// pipelineRunner is the slice of the transformation pipeline the
// handlers need.
type pipelineRunner interface {
	Run(ctx context.Context, req transform.Request) (transform.Result, error)
}

type transformHandler struct {
	pipeline pipelineRunner
	logger   log.Logger
}

type translateRequest struct {
	ContentID      string `json:"content_id"`
	TargetLanguage string `json:"target_language"`
	SourceContent  string `json:"source_content,omitempty"`
}

type translateResponse struct {
	ContentID          string             `json:"content_id"`
	TargetLanguage     string             `json:"target_language"`
	TransformedContent string             `json:"transformed_content"`
	Cached             bool               `json:"cached"`
	Metadata           transform.Metadata `json:"metadata"`
}

func (h *transformHandler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.ContentID == "" || req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content_id and target_language are required", h.logger)
		return
	}

	result, err := h.pipeline.Run(r.Context(), transform.Request{
		ContentID:      req.ContentID,
		Kind:           transform.KindTranslation,
		TargetLanguage: strings.ToLower(req.TargetLanguage),
		SourceOverride: req.SourceContent,
	})
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		ContentID:          result.ContentID,
		TargetLanguage:     strings.ToLower(req.TargetLanguage),
		TransformedContent: result.Content,
		Cached:             result.Cached,
		Metadata:           result.Metadata,
	}, h.logger)
}

type personalizeRequest struct {
	ContentID string `json:"content_id"`
}

type personalizeResponse struct {
	ContentID          string             `json:"content_id"`
	VariantID          string             `json:"variant_id"`
	TransformedContent string             `json:"transformed_content"`
	Cached             bool               `json:"cached"`
	Metadata           transform.Metadata `json:"metadata"`
}

func (h *transformHandler) personalize(w http.ResponseWriter, r *http.Request) {
	var req personalizeRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.ContentID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content_id is required", h.logger)
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "profile claims required", h.logger)
		return
	}

	result, err := h.pipeline.Run(r.Context(), transform.Request{
		ContentID: req.ContentID,
		Kind:      transform.KindPersonalization,
		Profile:   claims.Profile(),
	})
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, personalizeResponse{
		ContentID:          result.ContentID,
		VariantID:          result.VariantID,
		TransformedContent: result.Content,
		Cached:             result.Cached,
		Metadata:           result.Metadata,
	}, h.logger)
}

// writeRunError maps pipeline errors to HTTP statuses. Generation and
// cache failures never reach here; the pipeline degrades those to 200
// responses with fallback flags.
func (h *transformHandler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrInvalidID):
		writeError(w, http.StatusNotFound, "content_not_found", "unknown content id", h.logger)
	case errors.Is(err, transform.ErrContentTooLarge):
		writeError(w, http.StatusUnprocessableEntity, "content_too_large", err.Error(), h.logger)
	case errors.Is(err, transform.ErrMissingLanguage),
		errors.Is(err, transform.ErrMissingProfile),
		errors.Is(err, transform.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
	default:
		h.logger.Error("transformation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "transform_failed", "transformation failed", h.logger)
	}
}

// decodeBody decodes a JSON body with a size cap. Returns false after
// writing the error response when decoding fails.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
		return false
	}
	return true
}
