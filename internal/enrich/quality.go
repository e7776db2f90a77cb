package enrich

import "strings"

// Assessment is a heuristic judgment of analysis text quality, scored
// 0.0 to 1.0. Scores below the publishing gate keep the analysis out
// of Notion.
type Assessment struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// AssessAnalysis scores an analysis produced by the model. It starts
// from a perfect score and deducts for structural defects.
func AssessAnalysis(content string) Assessment {
	text := strings.TrimSpace(content)
	if text == "" {
		return Assessment{Score: 0, Issues: []string{"empty_content"}}
	}

	score := 1.0
	issues := make([]string, 0, 6)

	lines := strings.Split(text, "\n")
	total := 0
	bullets := 0
	headings := 0
	paragraphs := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		total++
		switch {
		case strings.HasPrefix(line, "#"):
			headings++
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			bullets++
		default:
			paragraphs++
		}
	}

	if total > 0 && float64(bullets)/float64(total) > 0.7 {
		score -= 0.2
		issues = append(issues, "list_heavy")
	}
	if headings == 0 {
		score -= 0.25
		issues = append(issues, "no_section_headings")
	}
	if paragraphs == 0 {
		score -= 0.2
		issues = append(issues, "no_prose")
	}
	if len(text) < 200 {
		score -= 0.3
		issues = append(issues, "too_short")
	}

	lower := strings.ToLower(text)
	refusals := []string{
		"i cannot", "i'm unable", "as an ai", "i apologize",
	}
	for _, token := range refusals {
		if strings.Contains(lower, token) {
			score -= 0.5
			issues = append(issues, "refusal_text")
			break
		}
	}

	placeholders := []string{
		"tbd", "placeholder", "[insert", "lorem ipsum",
	}
	for _, token := range placeholders {
		if strings.Contains(lower, token) {
			score -= 0.3
			issues = append(issues, "placeholder_text")
			break
		}
	}

	if score < 0 {
		score = 0
	}
	return Assessment{Score: score, Issues: issues}
}
