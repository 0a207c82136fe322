package latex

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Rule is one rewrite in the sanitizer pipeline.
type Rule struct {
	Name        string
	Pattern     string
	Replacement string
	Description string

	re *regexp2.Regexp
}

const matchTimeout = 2 * time.Second

// notCommandTail rejects matches glued to a preceding letter, digit,
// underscore or backslash, so "\frac" and "fraction" are never touched.
const notCommandTail = `(?<![A-Za-z0-9_\\])`

// notLetterTail rejects matches glued to a preceding letter or backslash.
const notLetterTail = `(?<![A-Za-z\\])`

var greekLetters = []string{
	"varepsilon", "vartheta", "varsigma", "varphi", "varrho", "varpi",
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
	"iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi", "rho",
	"sigma", "tau", "upsilon", "phi", "chi", "psi", "omega",
	"Gamma", "Delta", "Theta", "Lambda", "Xi", "Pi", "Sigma", "Upsilon",
	"Phi", "Psi", "Omega",
}

// coreRules run in order on every Sanitize call.
var coreRules = compileRules([]Rule{
	{
		Name:        "rac-prefix",
		Pattern:     `(?:\x0C|` + notCommandTail + `)rac(?=\{)`,
		Replacement: `\frac`,
		Description: `restore "\frac" truncated to "rac" (also when "\f" was decoded as a form feed)`,
	},
	{
		Name:        "bare-frac",
		Pattern:     notCommandTail + `frac(?=\{)`,
		Replacement: `\frac`,
		Description: `add missing backslash to "frac{"`,
	},
	{
		Name:        "qrt-prefix",
		Pattern:     notCommandTail + `qrt(?=[\{\[])`,
		Replacement: `\sqrt`,
		Description: `restore "\sqrt" truncated to "qrt"`,
	},
	{
		Name:        "bare-sqrt",
		Pattern:     notCommandTail + `sqrt(?=[\{\[])`,
		Replacement: `\sqrt`,
		Description: `add missing backslash to "sqrt{"`,
	},
	{
		Name:        "bare-sum",
		Pattern:     notCommandTail + `sum(?=_\{)`,
		Replacement: `\sum`,
		Description: `add missing backslash to "sum_{"`,
	},
	{
		Name:        "bare-int",
		Pattern:     notCommandTail + `int(?=_\{)`,
		Replacement: `\int`,
		Description: `add missing backslash to "int_{"`,
	},
	{
		Name:        "bare-lim",
		Pattern:     notCommandTail + `lim(?=_\{)`,
		Replacement: `\lim`,
		Description: `add missing backslash to "lim_{"`,
	},
	{
		Name:        "bare-greek",
		Pattern:     `(?<!\\)\b(` + strings.Join(greekLetters, "|") + `)\b`,
		Replacement: `\$1`,
		Description: "add missing backslash to Greek letter names at word boundaries",
	},
	{
		Name:        "bare-infty",
		Pattern:     notLetterTail + `infty(?![A-Za-z])`,
		Replacement: `\infty`,
		Description: `add missing backslash to "infty"`,
	},
})

// knownCommands are the command names the aggressive pass recognises after
// doubled backslashes or JSON control-escape damage.
var knownCommands = append([]string{
	"frac", "dfrac", "sqrt", "sum", "int", "lim", "infty", "times", "cdot",
	"div", "pm", "leq", "geq", "neq", "approx", "left", "right", "text",
}, greekLetters...)

// aggressiveRules run before the core rules when confidence is high. The
// escape repairs come first so a restored command is visible to the
// backslash collapse.
var aggressiveRules = compileRules([]Rule{
	{
		Name:        "tab-escape",
		Pattern:     `\t(?=(?:imes|heta|au|ext|an)(?![A-Za-z]))`,
		Replacement: `\t`,
		Description: `repair "\t" decoded as a tab in \times, \theta, \tau, \text, \tan`,
	},
	{
		Name:        "backspace-escape",
		Pattern:     `\x08(?=(?:eta|egin|ar|inom)(?![A-Za-z]))`,
		Replacement: `\b`,
		Description: `repair "\b" decoded as a backspace in \beta, \begin, \bar, \binom`,
	},
	{
		Name:        "carriage-return-escape",
		Pattern:     `\r(?=(?:ho|ight|angle)(?![A-Za-z]))`,
		Replacement: `\r`,
		Description: `repair "\r" decoded as a carriage return in \rho, \right, \rangle`,
	},
	{
		Name:        "doubled-backslash",
		Pattern:     `\\{2,}(?=(?:` + strings.Join(knownCommands, "|") + `)(?![A-Za-z]))`,
		Replacement: `\`,
		Description: "collapse over-escaped backslashes before known commands",
	},
})

// delimiterRules rewrite \( \) and \[ \] to dollar delimiters.
var delimiterRules = compileRules([]Rule{
	{
		Name:        "display-brackets",
		Pattern:     `(?<!\\)\\\[([\s\S]+?)(?<!\\)\\\]`,
		Replacement: `$$$$$1$$$$`,
		Description: `rewrite \[...\] as $$...$$`,
	},
	{
		Name:        "inline-parens",
		Pattern:     `(?<!\\)\\\((.+?)(?<!\\)\\\)`,
		Replacement: `$$$1$$`,
		Description: `rewrite \(...\) as $...$`,
	},
})

func compileRules(rules []Rule) []Rule {
	for i := range rules {
		re := regexp2.MustCompile(rules[i].Pattern, regexp2.None)
		re.MatchTimeout = matchTimeout
		rules[i].re = re
	}
	return rules
}

// Rules returns the core rule list in application order.
func Rules() []Rule {
	return append([]Rule(nil), coreRules...)
}

// count returns the number of non-overlapping matches of r in s.
func (r Rule) count(s string) int {
	n := 0
	m, err := r.re.FindStringMatch(s)
	for err == nil && m != nil {
		n++
		m, err = r.re.FindNextMatch(m)
	}
	return n
}

// apply rewrites s and reports how many matches were replaced. A regex
// timeout leaves s unchanged.
func (r Rule) apply(s string) (string, int) {
	n := r.count(s)
	if n == 0 {
		return s, 0
	}
	out, err := r.re.Replace(s, r.Replacement, -1, -1)
	if err != nil {
		return s, 0
	}
	return out, n
}
