package knowledge

import (
	"fmt"
	"strings"

	"github.com/sabaqhq/sabaq/internal/markdown"
)

// maxChunkBytes splits oversized sections so a single chunk stays
// within typical embedder input limits.
const maxChunkBytes = 8 * 1024

// ChunkChapter splits chapter text into embeddable documents, one per
// heading section. Sections larger than maxChunkBytes are split on
// paragraph boundaries, each part keeping the section heading.
func ChunkChapter(contentID, text string) []Document {
	var docs []Document
	seq := 0

	for _, section := range markdown.Sections(text) {
		for _, part := range splitSection(section.Content) {
			docs = append(docs, Document{
				ID:        fmt.Sprintf("%s:%04d", contentID, seq),
				ContentID: contentID,
				Heading:   section.Heading,
				Content:   part,
			})
			seq++
		}
	}
	return docs
}

// splitSection breaks content into pieces of at most maxChunkBytes,
// cutting only at blank lines. A single paragraph longer than the
// limit is kept whole rather than cut mid-sentence.
func splitSection(content string) []string {
	if len(content) <= maxChunkBytes {
		if strings.TrimSpace(content) == "" {
			return nil
		}
		return []string{content}
	}

	var parts []string
	var current strings.Builder
	for _, para := range strings.Split(content, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChunkBytes {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}
	return parts
}
