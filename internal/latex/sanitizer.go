package latex

import (
	"github.com/dlclark/regexp2"
)

const (
	// DelimiterThreshold is the confidence at which \( \) and \[ \] are
	// rewritten to dollar delimiters.
	DelimiterThreshold = 0.5
	// AggressiveThreshold is the confidence at which escape-damage repairs run.
	AggressiveThreshold = 0.85
)

// Fix counts how often one rule fired.
type Fix struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// Result is the outcome of a sanitize pass.
type Result struct {
	Text    string `json:"text"`
	Changes int    `json:"changes"`
	Applied []Fix  `json:"applied,omitempty"`
}

// Changed reports whether any rule rewrote the input.
func (r Result) Changed() bool { return r.Changes > 0 }

// Segment is one math span, delimiters included. Start and End are rune
// offsets into the scanned string.
type Segment struct {
	Start   int
	End     int
	Display bool
	Text    string
}

var segmentPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile(
		`(?<!\\)\$\$[\s\S]+?\$\$`+
			`|(?<!\\)\\\[[\s\S]+?\\\]`+
			`|(?<!\\)\\\(.+?\\\)`+
			`|(?<![\\$])\$(?![\s$\d])[^$\n]*?[^\s$\\]\$(?!\d)`,
		regexp2.None)
	re.MatchTimeout = matchTimeout
	return re
}()

// FindMathSegments returns math spans in order of appearance. Inline
// dollars need non-space text on both inner sides, and neither an opening
// dollar followed by a digit nor a closing one followed by a digit counts,
// so "$5 and $10" is not math.
func FindMathSegments(s string) []Segment {
	var out []Segment
	m, err := segmentPattern.FindStringMatch(s)
	for err == nil && m != nil {
		text := m.String()
		out = append(out, Segment{
			Start:   m.Index,
			End:     m.Index + m.Length,
			Display: len(text) >= 2 && (text[:2] == "$$" || text[:2] == `\[`),
			Text:    text,
		})
		m, err = segmentPattern.FindNextMatch(m)
	}
	return out
}

// HasMath reports whether s contains at least one math span.
func HasMath(s string) bool {
	ok, err := segmentPattern.MatchString(s)
	return err == nil && ok
}

// Sanitize applies the core repair rules in order. It is idempotent and
// leaves well-formed LaTeX untouched.
func Sanitize(s string) Result {
	res := Result{Text: s}
	res.run(coreRules)
	return res
}

// maxNormalizePasses caps the fixed-point loop in Normalize.
const maxNormalizePasses = 8

// Normalize is Sanitize scaled by detection confidence: escape-damage repair
// runs first at or above AggressiveThreshold, delimiter rewriting runs last
// at or above DelimiterThreshold. A delimiter rewrite or a collapsed
// backslash can expose text another rule matches, so the passes repeat
// until one changes nothing.
func Normalize(s string, confidence float64) Result {
	res := Result{Text: s}
	for i := 0; i < maxNormalizePasses; i++ {
		before := res.Changes
		if confidence >= AggressiveThreshold {
			res.run(aggressiveRules)
		}
		res.run(coreRules)
		if confidence >= DelimiterThreshold {
			res.run(delimiterRules)
		}
		if res.Changes == before {
			break
		}
	}
	return res
}

func (res *Result) run(rules []Rule) {
	for _, r := range rules {
		var n int
		res.Text, n = r.apply(res.Text)
		if n == 0 {
			continue
		}
		res.Changes += n
		res.addFix(r, n)
	}
}

// addFix merges repeat firings of a rule into one audit entry.
func (res *Result) addFix(r Rule, n int) {
	for i := range res.Applied {
		if res.Applied[i].Rule == r.Name {
			res.Applied[i].Count += n
			return
		}
	}
	res.Applied = append(res.Applied, Fix{Rule: r.Name, Description: r.Description, Count: n})
}
