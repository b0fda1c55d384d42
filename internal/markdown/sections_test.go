package markdown

import (
	"strings"
	"testing"
)

func TestSections(t *testing.T) {
	text := "Intro paragraph before any heading.\n\n" +
		"# Kinematics\n\nBody one.\n\n" +
		"## Forward\n\nBody two.\n\n" +
		"```bash\n# not a heading\necho hi\n```\n\n" +
		"## Inverse ##\n\nBody three.\n"

	sections := Sections(text)
	if len(sections) != 4 {
		t.Fatalf("got %d sections, want 4: %+v", len(sections), sections)
	}

	if sections[0].Level != 0 || sections[0].Heading != "" {
		t.Errorf("preamble = %+v", sections[0])
	}

	want := []struct {
		heading string
		level   int
	}{
		{"Kinematics", 1},
		{"Forward", 2},
		{"Inverse", 2},
	}
	for i, w := range want {
		s := sections[i+1]
		if s.Heading != w.heading || s.Level != w.level {
			t.Errorf("section %d = (%q, %d), want (%q, %d)", i+1, s.Heading, s.Level, w.heading, w.level)
		}
	}

	// The fenced comment must stay inside the Forward section.
	if got := sections[2].Content; !strings.Contains(got, "# not a heading") {
		t.Errorf("fence content split out of its section: %q", got)
	}
}

func TestSectionsNoHeadings(t *testing.T) {
	sections := Sections("just prose, no structure\n")
	if len(sections) != 1 || sections[0].Level != 0 {
		t.Fatalf("sections = %+v", sections)
	}
}

func TestSectionsEmpty(t *testing.T) {
	if sections := Sections("   \n"); len(sections) != 0 {
		t.Errorf("blank document produced sections: %+v", sections)
	}
}

func TestSectionsReassemble(t *testing.T) {
	text := "# A\n\none\n\n## B\n\ntwo\n"
	var joined string
	for _, s := range Sections(text) {
		joined += s.Content
	}
	if joined != text {
		t.Errorf("sections do not cover the document:\n%q\n%q", joined, text)
	}
}
