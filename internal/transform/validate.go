package transform

import (
	"fmt"

	"github.com/sabaqhq/sabaq/internal/markdown"
)

// Violation describes one structural difference between source and output.
// Violations never block a response; they are logged and attached to the
// result metadata.
type Violation struct {
	Check  string // "code_blocks", "math", "headings", "links"
	Detail string
}

func (v Violation) String() string {
	return v.Check + ": " + v.Detail
}

// Validate compares the structural skeletons of source and transformed output.
// An empty slice means the output preserved every checked structure.
func Validate(source, output string) []Violation {
	src := markdown.Scan(source)
	out := markdown.Scan(output)

	var vs []Violation

	if len(src.CodeBlocks) != len(out.CodeBlocks) {
		vs = append(vs, Violation{
			Check:  "code_blocks",
			Detail: fmt.Sprintf("source has %d fenced code blocks, output has %d", len(src.CodeBlocks), len(out.CodeBlocks)),
		})
	} else {
		for i := range src.CodeBlocks {
			if src.CodeBlocks[i] != out.CodeBlocks[i] {
				vs = append(vs, Violation{
					Check:  "code_blocks",
					Detail: fmt.Sprintf("code block %d was modified; blocks must be copied verbatim", i+1),
				})
			}
		}
	}

	if src.MathDelimiters != out.MathDelimiters {
		vs = append(vs, Violation{
			Check:  "math",
			Detail: fmt.Sprintf("source has %d math delimiters, output has %d", src.MathDelimiters, out.MathDelimiters),
		})
	}

	if !equalInts(src.Headings, out.Headings) {
		vs = append(vs, Violation{
			Check:  "headings",
			Detail: fmt.Sprintf("heading structure changed: source levels %v, output levels %v", src.Headings, out.Headings),
		})
	}

	if src.Links != out.Links {
		vs = append(vs, Violation{
			Check:  "links",
			Detail: fmt.Sprintf("source has %d links, output has %d", src.Links, out.Links),
		})
	}

	return vs
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
