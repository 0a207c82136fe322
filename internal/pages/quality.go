package pages

import (
	"strings"

	"coursegen/internal/course"
)

// MinQualityScore is the score below which generated pages are discarded.
const MinQualityScore = 0.55

const minPageWords = 40

type pageQuality struct {
	Score  float64
	Issues []string
}

func assessPageQuality(p course.Page) pageQuality {
	text := strings.TrimSpace(p.Content)
	if text == "" {
		return pageQuality{Score: 0, Issues: []string{"empty_content"}}
	}

	score := 1.0
	issues := make([]string, 0, 4)

	if len(strings.Fields(text)) < minPageWords {
		score -= 0.3
		issues = append(issues, "too_short")
	}

	lower := strings.ToLower(text)
	placeholders := []string{
		"lorem ipsum", "tbd", "placeholder", "insert content", "as an ai", "i cannot",
	}
	for _, token := range placeholders {
		if strings.Contains(lower, token) {
			score -= 0.5
			issues = append(issues, "instructional_or_placeholder_text")
			break
		}
	}

	if strings.TrimSpace(p.KeyTakeaway) == "" {
		score -= 0.1
		issues = append(issues, "missing_key_takeaway")
	}

	if score < 0 {
		score = 0
	}
	return pageQuality{Score: score, Issues: issues}
}

// checkGenerated validates writer output against the page plan. It returns
// the list of problems; an empty list means the pages are usable. Numbering
// is not checked here: alignTitles renumbers pages before this runs.
func checkGenerated(plan Plan, got []course.Page) []string {
	var problems []string
	if len(got) != len(plan.Pages) {
		problems = append(problems, "page_count_mismatch")
		return problems
	}
	for _, p := range got {
		if q := assessPageQuality(p); q.Score < MinQualityScore {
			problems = append(problems, q.Issues...)
		}
	}
	return problems
}
