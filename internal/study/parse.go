package study

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	bulletPattern   = regexp.MustCompile(`^[-*•]\s*`)
	numberedPattern = regexp.MustCompile(`^\d+[.)]\s*`)

	// lineNotePattern matches entries like "Line 3: `cmd.linear.x = 0.5` - sets speed".
	lineNotePattern = regexp.MustCompile("(?i)^(?:line\\s+)?(\\d+)[:.)]\\s*`?([^`]+?)`?\\s*[-:]\\s*(.+)$")
)

// parseSummary splits a reply into summary prose and the bulleted key
// points after a "Key Points"/"Key Takeaways" heading. Replies without
// that section fall back to the last sentences of the prose.
func parseSummary(reply string, originalWords int) Summary {
	var summaryLines, keyPoints []string
	inKeyPoints := false

	for _, line := range strings.Split(reply, "\n") {
		stripped := strings.TrimSpace(line)
		lower := strings.ToLower(stripped)

		if strings.Contains(lower, "key") &&
			(strings.Contains(lower, "point") || strings.Contains(lower, "takeaway")) {
			inKeyPoints = true
			continue
		}

		if inKeyPoints {
			if item := listItem(stripped); item != "" {
				keyPoints = append(keyPoints, item)
			}
		} else if stripped != "" && !strings.HasPrefix(stripped, "#") {
			summaryLines = append(summaryLines, stripped)
		}
	}

	summary := strings.Join(summaryLines, " ")
	if len(keyPoints) == 0 && summary != "" {
		for _, s := range lastSentences(summary, 5) {
			keyPoints = append(keyPoints, s)
		}
	}
	if len(keyPoints) > 5 {
		keyPoints = keyPoints[:5]
	}

	words := wordCount(summary)
	ratio := 0.0
	if words > 0 {
		ratio = math.Round(float64(originalWords)/float64(words)*100) / 100
	}

	return Summary{
		Summary:          summary,
		KeyPoints:        keyPoints,
		WordCount:        words,
		OriginalWords:    originalWords,
		CompressionRatio: ratio,
	}
}

// parseQuiz extracts the JSON question array from a reply, tolerating
// surrounding prose. A reply with no parseable JSON goes through the
// line-oriented fallback so the endpoint never returns zero questions.
func parseQuiz(reply, difficulty string) Quiz {
	questions := parseQuestionJSON(reply)
	if len(questions) == 0 {
		questions = parseQuestionText(reply, difficulty)
	}

	dist := make(map[string]int)
	for i := range questions {
		if questions[i].ID == 0 {
			questions[i].ID = i + 1
		}
		d := questions[i].Difficulty
		if d == "" {
			d = "unknown"
		}
		dist[d]++
	}

	return Quiz{
		Questions:              questions,
		TotalQuestions:         len(questions),
		DifficultyDistribution: dist,
		EstimatedMinutes:       int(float64(len(questions)) * 1.5),
	}
}

func parseQuestionJSON(reply string) []Question {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start == -1 || end <= start {
		return nil
	}

	var questions []Question
	if err := json.Unmarshal([]byte(reply[start:end+1]), &questions); err != nil {
		return nil
	}
	return questions
}

// parseQuestionText recovers questions from a numbered-list reply:
// "1. question", options "A) ...", then "Answer:" and "Explanation:".
func parseQuestionText(reply, difficulty string) []Question {
	var questions []Question
	var current *Question

	optionPattern := regexp.MustCompile(`^[A-Da-d][.)]\s*`)

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		switch {
		case numberedPattern.MatchString(line):
			if current != nil {
				questions = append(questions, *current)
			}
			current = &Question{
				ID:         len(questions) + 1,
				Type:       "multiple_choice",
				Difficulty: difficulty,
				Question:   numberedPattern.ReplaceAllString(line, ""),
				Topic:      "General",
			}
		case current != nil && optionPattern.MatchString(line):
			current.Options = append(current.Options, optionPattern.ReplaceAllString(line, ""))
		case current != nil && strings.HasPrefix(lower, "answer:"):
			current.CorrectAnswer = strings.TrimSpace(line[len("answer:"):])
		case current != nil && strings.HasPrefix(lower, "explanation:"):
			current.Explanation = strings.TrimSpace(line[len("explanation:"):])
		}
	}
	if current != nil {
		questions = append(questions, *current)
	}

	if len(questions) == 0 {
		explanation := reply
		if len(explanation) > 500 {
			explanation = explanation[:500]
		}
		questions = []Question{{
			ID:            1,
			Type:          "short_answer",
			Difficulty:    difficulty,
			Question:      "Generated from content",
			CorrectAnswer: "See explanation",
			Explanation:   explanation,
			Topic:         "General",
		}}
	}
	return questions
}

// explanation section identifiers, matched against heading lines.
const (
	secOverview = iota
	secLineByLine
	secConcepts
	secPitfalls
	secModifications
)

// parseExplanation walks the reply and routes each line to the section
// announced by the last heading seen. Unrecognized headings keep the
// current section.
func parseExplanation(reply string) Explanation {
	var exp Explanation
	section := secOverview
	var overview []string
	var conceptLines, pitfallLines, modLines []string

	for _, line := range strings.Split(reply, "\n") {
		stripped := strings.TrimSpace(line)

		if next, ok := explanationSection(stripped); ok {
			section = next
			continue
		}
		if stripped == "" && section != secModifications {
			continue
		}

		switch section {
		case secOverview:
			overview = append(overview, stripped)
		case secLineByLine:
			if m := lineNotePattern.FindStringSubmatch(stripped); m != nil {
				n, _ := strconv.Atoi(m[1])
				exp.LineByLine = append(exp.LineByLine, LineNote{
					LineNumber:  n,
					Code:        strings.TrimSpace(m[2]),
					Explanation: strings.TrimSpace(m[3]),
				})
			}
		case secConcepts:
			conceptLines = append(conceptLines, stripped)
		case secPitfalls:
			pitfallLines = append(pitfallLines, stripped)
		case secModifications:
			modLines = append(modLines, line)
		}
	}

	exp.Overview = strings.Join(overview, " ")
	exp.KeyConcepts = parseConcepts(conceptLines)
	for _, l := range pitfallLines {
		if item := listItem(l); item != "" {
			exp.Pitfalls = append(exp.Pitfalls, item)
		}
	}
	exp.Modifications = parseModifications(modLines)
	return exp
}

// explanationSection classifies a heading line. Only lines starting
// with "#" or "**" count as headings; keyword text in prose does not
// switch sections.
func explanationSection(line string) (int, bool) {
	if !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "**") {
		return 0, false
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "overview"):
		return secOverview, true
	case strings.Contains(lower, "line") && strings.Contains(lower, "by"):
		return secLineByLine, true
	case strings.Contains(lower, "key concept"):
		return secConcepts, true
	case strings.Contains(lower, "pitfall"):
		return secPitfalls, true
	case strings.Contains(lower, "modification") || strings.Contains(lower, "variation"):
		return secModifications, true
	}
	return 0, false
}

// parseConcepts turns "- Name: explanation" bullets into concepts;
// continuation lines extend the previous explanation.
func parseConcepts(lines []string) []Concept {
	var concepts []Concept
	for _, line := range lines {
		if item := listItem(line); item != "" {
			name, explanation, found := strings.Cut(item, ":")
			c := Concept{Concept: strings.TrimSpace(name)}
			if found {
				c.Explanation = strings.TrimSpace(explanation)
			}
			concepts = append(concepts, c)
		} else if len(concepts) > 0 {
			last := &concepts[len(concepts)-1]
			if last.Explanation != "" {
				last.Explanation += " "
			}
			last.Explanation += line
		}
	}
	return concepts
}

// parseModifications pairs each bullet with the fenced code block that
// follows it, if any.
func parseModifications(lines []string) []Modification {
	var mods []Modification
	var current *Modification
	var codeLines []string
	inCode := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "```") {
			if inCode && current != nil {
				current.ExampleCode = strings.Join(codeLines, "\n")
				codeLines = nil
			}
			inCode = !inCode
			continue
		}
		if inCode {
			codeLines = append(codeLines, line)
			continue
		}
		if item := listItem(stripped); item != "" {
			if current != nil {
				mods = append(mods, *current)
			}
			current = &Modification{Description: item}
		}
	}
	if current != nil {
		mods = append(mods, *current)
	}
	return mods
}

// listItem strips bullet or number markers; non-list lines return "".
func listItem(line string) string {
	switch {
	case bulletPattern.MatchString(line):
		return strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
	case numberedPattern.MatchString(line):
		return strings.TrimSpace(numberedPattern.ReplaceAllString(line, ""))
	}
	return ""
}

// lastSentences returns up to n trailing sentences of text.
func lastSentences(text string, n int) []string {
	parts := regexp.MustCompile(`[.!?]+`).Split(text, -1)
	var sentences []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) > n {
		sentences = sentences[len(sentences)-n:]
	}
	return sentences
}
