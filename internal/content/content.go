// Package content loads chapter source text for the transformation pipeline.
//
// Chapters are plain markdown files named <content-id>.md under the docs
// directory. The store treats them as immutable external content: it never
// writes, and a changed file simply produces a different source hash upstream.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/sabaqhq/sabaq/internal/log"
)

var (
	// ErrNotFound indicates the content ID does not resolve to a chapter file.
	ErrNotFound = errors.New("content not found")

	// ErrInvalidID indicates the content ID is not a valid chapter slug.
	ErrInvalidID = errors.New("invalid content id")
)

// idPattern restricts content IDs to flat slugs ("chapter-01", "appendix-a").
// Rejecting separators and dots keeps path traversal out entirely.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Store reads chapter markdown from a filesystem.
//
// Store is safe for concurrent use.
type Store struct {
	fsys   fs.FS
	logger log.Logger
}

// New creates a Store over the given filesystem (normally os.DirFS(docsDir)).
func New(fsys fs.FS, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{fsys: fsys, logger: logger}
}

// Load returns the markdown source for a chapter.
// Unknown IDs return ErrNotFound; malformed IDs return ErrInvalidID.
func (s *Store) Load(contentID string) (string, error) {
	if !idPattern.MatchString(contentID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, contentID)
	}

	data, err := fs.ReadFile(s.fsys, contentID+".md")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, contentID)
		}
		return "", fmt.Errorf("reading chapter %q: %w", contentID, err)
	}

	s.logger.Debug("loaded chapter", "content_id", contentID, "bytes", len(data))
	return string(data), nil
}

// List returns the IDs of all chapters in the docs directory, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing chapters: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id, ok := strings.CutSuffix(name, ".md")
		if !ok || !idPattern.MatchString(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
