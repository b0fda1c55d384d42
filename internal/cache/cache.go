// Package cache persists transformation results in PostgreSQL.
//
// Entries are immutable: created on cache miss, never updated in place, and
// deleted wholesale when a chapter's source changes. The unique cache_key
// constraint makes concurrent duplicate writes a benign race (first writer
// wins, the second insert is a no-op).
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sabaqhq/sabaq/internal/log"
)

var (
	// ErrNotFound indicates no entry exists for the cache key.
	ErrNotFound = errors.New("cache entry not found")

	// ErrUnavailable indicates the backing store could not be reached.
	// Callers treat this as "proceed without cache", never as a hard failure.
	ErrUnavailable = errors.New("cache storage unavailable")
)

// SchemaVersion is stamped on new entries so a future format change can
// invalidate old rows without a migration.
const SchemaVersion = 1

// Entry is one stored transformation result.
type Entry struct {
	CacheKey      string
	ContentID     string
	Kind          string
	SourceHash    string
	VariantHash   string
	Content       string
	Provider      string
	SchemaVersion int
	CreatedAt     time.Time
}

// Stats summarizes cache contents for observability.
type Stats struct {
	Count              int64     `json:"total_cached"`
	DistinctContentIDs int64     `json:"distinct_content_ids"`
	ApproxSizeBytes    int64     `json:"approx_size_bytes"`
	LastCreatedAt      time.Time `json:"last_updated"`
}

// Querier defines the database operations the store needs.
// Following Go best practices the interface is defined by the consumer, not
// the provider; production code uses the pgx implementation in pgx.go, tests
// use a mock.
type Querier interface {
	GetEntry(ctx context.Context, cacheKey string) (Entry, error)
	InsertEntry(ctx context.Context, e Entry) error
	DeleteByContentID(ctx context.Context, contentID string) (int64, error)
	EntryStats(ctx context.Context) (Stats, error)
}

// Store manages transformation cache entries.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// New creates a Store over the given querier.
func New(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// Get returns the entry for cacheKey, ErrNotFound on miss, or ErrUnavailable
// (wrapping the driver error) when the store cannot be reached.
func (s *Store) Get(ctx context.Context, cacheKey string) (*Entry, error) {
	e, err := s.querier.GetEntry(ctx, cacheKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.logger.Debug("cache hit", "cache_key", cacheKey, "content_id", e.ContentID)
	return &e, nil
}

// Put inserts an entry. Duplicate keys are silently ignored: under a
// concurrent miss both requests compute the same content, so the first
// writer's row is as good as the second's.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if err := s.querier.InsertEntry(ctx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.logger.Debug("cache store",
		"cache_key", e.CacheKey,
		"content_id", e.ContentID,
		"kind", e.Kind,
		"bytes", len(e.Content),
	)
	return nil
}

// Invalidate deletes every entry for a chapter. Used when the source content
// is known to have changed. Returns the number of rows removed.
func (s *Store) Invalidate(ctx context.Context, contentID string) (int64, error) {
	n, err := s.querier.DeleteByContentID(ctx, contentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.logger.Info("cache invalidated", "content_id", contentID, "entries", n)
	return n, nil
}

// Stats returns cache-wide metrics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st, err := s.querier.EntryStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return st, nil
}
