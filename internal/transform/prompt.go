package transform

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed glossary.json
var glossaryJSON []byte

// glossaryFile is the embedded list of technical terms the translation prompt
// instructs the model never to translate.
type glossaryFile struct {
	Categories map[string][]string `json:"categories"`
}

// glossaryTerms is the flattened, deduplicated, sorted term list. Sorting
// keeps the prompt deterministic for a given build.
var glossaryTerms = loadGlossary()

func loadGlossary() []string {
	var gf glossaryFile
	if err := json.Unmarshal(glossaryJSON, &gf); err != nil {
		panic(fmt.Sprintf("parsing embedded glossary: %v", err))
	}

	seen := make(map[string]struct{})
	var terms []string
	for _, list := range gf.Categories {
		for _, term := range list {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	return terms
}

// GlossaryTerms returns a copy of the embedded glossary term list.
func GlossaryTerms() []string {
	out := make([]string, len(glossaryTerms))
	copy(out, glossaryTerms)
	return out
}

// PromptBuilder constructs constrained model instructions for both
// transformation kinds. It is a pure function of its inputs: no I/O, no
// randomness, so prompts can be asserted in tests without a live model.
type PromptBuilder struct {
	// MaxSourceBytes bounds the source text; longer content returns
	// ErrContentTooLarge rather than being silently truncated.
	MaxSourceBytes int
}

// Build returns the prompt for req over the given source text.
func (b PromptBuilder) Build(req Request, source string) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	if b.MaxSourceBytes > 0 && len(source) > b.MaxSourceBytes {
		return "", fmt.Errorf("%w: source is %d bytes, limit is %d",
			ErrContentTooLarge, len(source), b.MaxSourceBytes)
	}

	switch req.Kind {
	case KindTranslation:
		return b.buildTranslation(req.TargetLanguage, source), nil
	case KindPersonalization:
		return b.buildPersonalization(*req.Profile, source), nil
	default:
		return "", ErrUnknownKind
	}
}

func (b PromptBuilder) buildTranslation(language, source string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert technical translator specializing in robotics and AI educational content.\n\n")
	fmt.Fprintf(&sb, "Translate the following English textbook chapter to %s. Follow these CRITICAL RULES:\n\n", titleCase(language))

	sb.WriteString("1. PRESERVATION RULES (NEVER TRANSLATE THESE):\n")
	fmt.Fprintf(&sb, "   - Technical terms: %s\n", strings.Join(glossaryTerms, ", "))
	sb.WriteString("   - Fenced code blocks (```...```): copy them byte-for-byte\n")
	sb.WriteString("   - LaTeX equations ($...$ and $$...$$)\n")
	sb.WriteString("   - Function names, variable names, file paths, URLs\n")
	sb.WriteString("   - Acronyms and programming language names\n\n")

	sb.WriteString("2. FORMATTING RULES:\n")
	sb.WriteString("   - Keep the markdown structure isomorphic to the source: same headers at the same levels, same lists, same tables\n")
	sb.WriteString("   - Preserve links [text](url): translate the text, keep the URL\n")
	sb.WriteString("   - Preserve images ![alt](url): translate the alt text, keep the URL\n")
	sb.WriteString("   - Maintain spacing and indentation\n\n")

	sb.WriteString("3. TRANSLATION QUALITY:\n")
	fmt.Fprintf(&sb, "   - Use natural, fluent %s suitable for technical education, not word-by-word literal translation\n", titleCase(language))
	sb.WriteString("   - Keep code comments and unit measurements in English\n")
	sb.WriteString("   - Maintain an academic tone\n\n")

	sb.WriteString("IMPORTANT: Return ONLY the translated markdown. No preamble, notes or metadata.\n")
	sb.WriteString("\n---\n\nCONTENT TO TRANSLATE:\n\n")
	sb.WriteString(source)
	sb.WriteString("\n\n---\n\nTRANSLATED MARKDOWN:\n")

	return sb.String()
}

func (b PromptBuilder) buildPersonalization(p Profile, source string) string {
	d := p.withDefaults()
	var sb strings.Builder

	sb.WriteString("You are an expert educational content adapter for a Physical AI and Robotics textbook.\n\n")
	sb.WriteString("Learner profile:\n")
	fmt.Fprintf(&sb, "- Programming experience: %s\n", d.ProgrammingExperience)
	fmt.Fprintf(&sb, "- Robotics experience: %s\n", d.RoboticsExperience)
	fmt.Fprintf(&sb, "- Hardware availability: %s\n\n", d.HardwareAvailability)

	ts := p.Transformations()
	fmt.Fprintf(&sb, "Transformations to apply: %s\n\nGuidelines:\n", strings.Join(ts, ", "))
	for _, t := range ts {
		for _, line := range directiveLines[t] {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nImportant:\n")
	sb.WriteString("- Preserve ALL code blocks exactly as-is (only add comments when add-code-comments applies)\n")
	sb.WriteString("- Keep all URLs, links, image references and equations intact\n")
	sb.WriteString("- Keep the chapter structure: same headings at the same levels\n")
	sb.WriteString("- Do NOT translate technical terms (ROS, URDF, ZMP, ...)\n\n")

	sb.WriteString("Original chapter:\n\n")
	sb.WriteString(source)
	sb.WriteString("\n\nReturn ONLY the transformed chapter content in markdown format. Do not add any preamble or explanation.\n")

	return sb.String()
}

// directiveLines maps each transformation directive to its prompt guidelines.
var directiveLines = map[string][]string{
	"beginner-simplify": {
		"Simplify technical language and mathematical notation",
		"Add step-by-step explanations for complex concepts",
		"Include analogies and real-world examples",
	},
	"add-code-comments": {
		"Add detailed inline comments to all code examples explaining each step",
	},
	"advanced-depth": {
		"Add algorithmic complexity analysis",
		"Include optimization techniques and best practices",
	},
	"add-optimizations": {
		"Provide production deployment considerations",
	},
	"add-context": {
		"Introduce robotics concepts before relying on them",
	},
	"add-visual-aids": {
		"Describe what diagrams or visualizations would clarify each concept",
	},
	"practical-tips": {
		"Add hands-on tips for working with physical hardware",
	},
	"debugging-guides": {
		"Add short debugging checklists for the hardware procedures shown",
	},
	"jetson-specific": {
		"Append a deployment note for Jetson devices, including CUDA considerations and power management",
	},
	"cloud-deployment": {
		"Append a cloud deployment note (AWS/Azure) with rough cost and scaling considerations",
	},
	"simulator-alternatives": {
		"For hardware examples, point to free simulator alternatives (Gazebo, Webots)",
	},
}

// titleCase capitalizes the first rune of a language tag for prose use
// ("urdu" -> "Urdu").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
