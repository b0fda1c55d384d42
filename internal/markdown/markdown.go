// Package markdown extracts the structural skeleton of a markdown document:
// fenced code blocks, heading levels, math delimiters and links.
//
// The transformation pipeline compares the skeletons of source and output to
// detect structure the model dropped or mangled. Headings, links and fenced
// blocks come from the goldmark AST; math delimiters are counted textually
// outside fenced regions because CommonMark has no math syntax.
package markdown

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// Structure is the order-preserving structural skeleton of a document.
type Structure struct {
	// CodeBlocks holds the verbatim content of each fenced code block,
	// in document order.
	CodeBlocks []string

	// Headings holds heading levels (1-6) in document order.
	Headings []int

	// Links counts inline links, autolinks and images.
	Links int

	// MathDelimiters counts '$' characters outside fenced code blocks.
	// Inline spans contribute 2, display blocks 4.
	MathDelimiters int
}

var parser = goldmark.New()

// Scan parses text and returns its structural skeleton.
func Scan(text string) Structure {
	source := []byte(text)
	doc := parser.Parser().Parse(gtext.NewReader(source))

	var st Structure
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			st.CodeBlocks = append(st.CodeBlocks, blockContent(node, source))
		case *ast.CodeBlock:
			// Indented code blocks count as code too; the prompt forbids
			// restructuring them into fences.
			st.CodeBlocks = append(st.CodeBlocks, blockContent(node, source))
		case *ast.Heading:
			st.Headings = append(st.Headings, node.Level)
		case *ast.Link, *ast.AutoLink, *ast.Image:
			st.Links++
		}
		return ast.WalkContinue, nil
	})

	st.MathDelimiters = countMathDelimiters(text)
	return st
}

// blockContent reassembles the raw lines of a code block node.
func blockContent(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(source[seg.Start:seg.Stop])
	}
	return buf.String()
}

// fencePattern matches fenced code block delimiters (``` or ~~~) at the start
// of a line, allowing 0-3 spaces of indentation per CommonMark.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// fencedRanges returns byte offset ranges [start, end) of fenced code blocks.
// Opening and closing fences are paired: the closing fence must use the same
// character and be at least as long as the opening fence.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen int
	var openStart int
	inFence := false

	for _, match := range matches {
		fenceChars := text[match[2]:match[3]]
		char := fenceChars[0]
		fenceLen := len(fenceChars)

		if !inFence {
			openChar = char
			openLen = fenceLen
			openStart = match[0]
			inFence = true
		} else if char == openChar && fenceLen >= openLen {
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
		// Different char or shorter fence inside an open block: literal text.
	}

	if inFence {
		// Unclosed fence runs to EOF.
		ranges = append(ranges, [2]int{openStart, len(text)})
	}
	return ranges
}

// countMathDelimiters counts '$' characters that fall outside fenced code.
func countMathDelimiters(text string) int {
	ranges := fencedRanges(text)
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			continue
		}
		if insideFence(i, ranges) {
			continue
		}
		count++
	}
	return count
}

// insideFence reports whether byte offset pos falls inside any fenced range.
func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}
