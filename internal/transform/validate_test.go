package transform

import "testing"

const validateSource = "# Robot Arms\n\n" +
	"Intro with a [link](https://example.com).\n\n" +
	"## Control\n\n" +
	"```python\nkp = 1.2\n```\n\n" +
	"Torque is $\\tau = I\\alpha$.\n"

func TestValidateCleanOutput(t *testing.T) {
	// A faithful translation keeps every structural element.
	output := "# روبوٹ بازو\n\n" +
		"تعارف [لنک](https://example.com) کے ساتھ۔\n\n" +
		"## کنٹرول\n\n" +
		"```python\nkp = 1.2\n```\n\n" +
		"ٹارک $\\tau = I\\alpha$ ہے۔\n"

	if vs := Validate(validateSource, output); len(vs) != 0 {
		t.Errorf("Validate returned violations for a faithful output: %v", vs)
	}
}

func TestValidateIdentity(t *testing.T) {
	if vs := Validate(validateSource, validateSource); len(vs) != 0 {
		t.Errorf("identity transform flagged: %v", vs)
	}
}

func TestValidateViolations(t *testing.T) {
	tests := []struct {
		name   string
		output string
		check  string
	}{
		{
			name:   "dropped code block",
			output: "# h\n\n[link](https://example.com)\n\n## c\n\n$\\tau = I\\alpha$\n",
			check:  "code_blocks",
		},
		{
			name:   "modified code block",
			output: "# h\n\n[a](https://example.com)\n\n## c\n\n```python\nkp = 9.9\n```\n\n$x$ and $y$\n",
			check:  "code_blocks",
		},
		{
			name:   "dropped math",
			output: "# h\n\n[a](https://example.com)\n\n## c\n\n```python\nkp = 1.2\n```\n\nno math\n",
			check:  "math",
		},
		{
			name:   "flattened headings",
			output: "# h\n\n[a](https://example.com)\n\n# c\n\n```python\nkp = 1.2\n```\n\n$x$ and $y$\n",
			check:  "headings",
		},
		{
			name:   "dropped link",
			output: "# h\n\nplain text\n\n## c\n\n```python\nkp = 1.2\n```\n\n$x$ and $y$\n",
			check:  "links",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := Validate(validateSource, tt.output)
			for _, v := range vs {
				if v.Check == tt.check {
					return
				}
			}
			t.Errorf("expected a %q violation, got %v", tt.check, vs)
		})
	}
}
