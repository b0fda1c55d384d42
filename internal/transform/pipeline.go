package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sabaqhq/sabaq/internal/cache"
	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
)

// Cache is the write-through result cache the pipeline consults before
// generating. A lookup miss is cache.ErrNotFound; an outage is
// cache.ErrUnavailable and is treated as a miss.
type Cache interface {
	Get(ctx context.Context, cacheKey string) (*cache.Entry, error)
	Put(ctx context.Context, e cache.Entry) error
}

// Source loads chapter text by content ID.
type Source interface {
	Load(contentID string) (string, error)
}

// Generator produces text from a prompt, reporting which provider
// answered and whether fallback occurred.
type Generator interface {
	Complete(ctx context.Context, prompt string) (llm.Result, error)
}

// Pipeline runs transformation requests through the
// hash, cache lookup, prompt, generate, validate, cache write sequence.
type Pipeline struct {
	cache   Cache
	source  Source
	gateway Generator
	prompts PromptBuilder
	logger  log.Logger
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(c Cache, src Source, gw Generator, prompts PromptBuilder, logger log.Logger) (*Pipeline, error) {
	if c == nil || src == nil || gw == nil {
		return nil, errors.New("transform: cache, source and generator are required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Pipeline{
		cache:   c,
		source:  src,
		gateway: gw,
		prompts: prompts,
		logger:  logger,
	}, nil
}

// Run executes one transformation request.
//
// Errors are returned only for caller mistakes (invalid request, unknown
// content, oversized source). Generation and cache failures degrade: on a
// cache outage the pipeline generates as if on a miss, and on generation
// failure the result carries the original source with FallbackUsed set.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if err := req.validate(); err != nil {
		return Result{}, err
	}

	source := req.SourceOverride
	if source == "" {
		var err error
		source, err = p.source.Load(req.ContentID)
		if err != nil {
			return Result{}, fmt.Errorf("load %s: %w", req.ContentID, err)
		}
	}

	variant := p.variant(req)
	key := DeriveKey(req.ContentID, req.Kind, source, variant)

	logger := p.logger.With(
		"content_id", req.ContentID,
		"kind", string(req.Kind),
		"cache_key", key.CacheKey[:12])

	if entry := p.lookup(ctx, logger, key.CacheKey); entry != nil {
		logger.Debug("cache hit")
		return p.result(req, key, entry.Content, true, Metadata{
			Provider: entry.Provider,
		}, start), nil
	}

	prompt, err := p.prompts.Build(req, source)
	if err != nil {
		return Result{}, err
	}

	gen, err := p.gateway.Complete(ctx, prompt)
	if err != nil {
		logger.Error("generation failed, serving original content", "error", err)
		return p.result(req, key, source, false, Metadata{
			FallbackUsed:   true,
			FallbackReason: err.Error(),
		}, start), nil
	}

	meta := Metadata{
		Provider:       gen.Provider,
		FallbackUsed:   gen.FallbackUsed,
		FallbackReason: gen.FallbackReason,
	}
	for _, v := range Validate(source, gen.Text) {
		meta.ValidationWarnings = append(meta.ValidationWarnings, v.String())
	}
	if len(meta.ValidationWarnings) > 0 {
		logger.Warn("output structure diverges from source",
			"warnings", strings.Join(meta.ValidationWarnings, "; "))
	}

	p.store(ctx, logger, cache.Entry{
		CacheKey:    key.CacheKey,
		ContentID:   req.ContentID,
		Kind:        string(req.Kind),
		SourceHash:  key.SourceHash,
		VariantHash: key.VariantHash,
		Content:     gen.Text,
		Provider:    gen.Provider,
	})

	logger.Info("transformation complete",
		"provider", gen.Provider,
		"fallback", gen.FallbackUsed,
		"duration", time.Since(start))

	return p.result(req, key, gen.Text, false, meta, start), nil
}

// variant returns the canonical variant string for the request kind.
func (p *Pipeline) variant(req Request) string {
	if req.Kind == KindTranslation {
		return strings.ToLower(req.TargetLanguage)
	}
	return req.Profile.Canonical()
}

// lookup returns the cached entry or nil. A storage outage is logged
// and treated as a miss so requests keep working without the cache.
func (p *Pipeline) lookup(ctx context.Context, logger log.Logger, cacheKey string) *cache.Entry {
	entry, err := p.cache.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("cache lookup failed, generating without cache", "error", err)
		}
		return nil
	}
	return entry
}

// store writes the entry through to the cache, best effort.
func (p *Pipeline) store(ctx context.Context, logger log.Logger, e cache.Entry) {
	if err := p.cache.Put(ctx, e); err != nil {
		logger.Warn("cache write failed", "error", err)
	}
}

func (p *Pipeline) result(req Request, key Key, content string, cached bool, meta Metadata, start time.Time) Result {
	meta.ProcessingTime = time.Since(start)
	meta.ProcessingTimeMS = meta.ProcessingTime.Milliseconds()
	meta.CacheKey = key.CacheKey
	meta.VariantHash = key.VariantHash
	if meta.ValidationWarnings == nil {
		meta.ValidationWarnings = []string{}
	}

	res := Result{
		ContentID: req.ContentID,
		Kind:      req.Kind,
		Content:   content,
		Cached:    cached,
		Metadata:  meta,
	}
	if req.Kind == KindPersonalization {
		res.VariantID = VariantID(req.ContentID, key.VariantHash)
	}
	return res
}
