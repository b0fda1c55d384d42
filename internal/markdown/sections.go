package markdown

import (
	"regexp"
	"strings"
)

// Section is a contiguous slice of a document under one heading. Text
// before the first heading becomes a section with an empty heading.
type Section struct {
	// Heading is the heading text without the leading '#' markers.
	Heading string

	// Level is the heading level (1-6), 0 for the preamble section.
	Level int

	// Content is the section body including its heading line.
	Content string
}

// headingPattern matches ATX headings at the start of a line, allowing
// 0-3 spaces of indentation per CommonMark.
var headingPattern = regexp.MustCompile(`(?m)^[ ]{0,3}(#{1,6})[ \t]+(.*)$`)

// Sections splits text at ATX headings, skipping heading-like lines
// inside fenced code blocks. Roughly one section per chapter topic,
// which is the chunking unit for retrieval indexing.
func Sections(text string) []Section {
	fences := fencedRanges(text)

	type cut struct {
		offset  int
		level   int
		heading string
	}
	var cuts []cut
	for _, m := range headingPattern.FindAllStringSubmatchIndex(text, -1) {
		if insideFence(m[0], fences) {
			continue
		}
		cuts = append(cuts, cut{
			offset:  m[0],
			level:   m[3] - m[2],
			heading: strings.TrimRight(text[m[4]:m[5]], " \t#"),
		})
	}

	var sections []Section
	if len(cuts) == 0 || cuts[0].offset > 0 {
		end := len(text)
		if len(cuts) > 0 {
			end = cuts[0].offset
		}
		preamble := text[:end]
		if strings.TrimSpace(preamble) != "" {
			sections = append(sections, Section{Content: preamble})
		}
	}

	for i, c := range cuts {
		end := len(text)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		sections = append(sections, Section{
			Heading: c.heading,
			Level:   c.level,
			Content: text[c.offset:end],
		})
	}

	return sections
}
