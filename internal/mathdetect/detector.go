package mathdetect

import (
	"math"
	"time"

	"coursegen/internal/latex"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// Tier thresholds and weights.
const (
	StrongBase = 0.7
	StrongStep = 0.1
	StrongCap  = 0.95

	MediumMin  = 2
	MediumBase = 0.5
	MediumStep = 0.1
	MediumCap  = 0.8

	// MediumWithWeak applies when one medium indicator is backed by weak ones.
	MediumWithWeak = 0.6

	WeakOnlyMin        = 4
	WeakOnlyConfidence = 0.4
)

// Tier names an indicator group.
type Tier string

const (
	Strong Tier = "strong"
	Medium Tier = "medium"
	Weak   Tier = "weak"
)

// Hit is one indicator that matched.
type Hit struct {
	Tier  Tier   `json:"tier"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Indicators are the raw per-tier match counts behind a classification.
type Indicators struct {
	Strong int   `json:"strong"`
	Medium int   `json:"medium"`
	Weak   int   `json:"weak"`
	Hits   []Hit `json:"hits,omitempty"`
}

// Result classifies a text block.
type Result struct {
	HasMath    bool       `json:"hasMath"`
	Confidence float64    `json:"confidence"`
	Indicators Indicators `json:"indicators"`
}

type indicator struct {
	tier  Tier
	name  string
	re    *regexp2.Regexp
	count func(string) int
}

func pattern(tier Tier, name, expr string) indicator {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = matchTimeout
	return indicator{tier: tier, name: name, re: re}
}

const matchTimeout = 2 * time.Second

var indicators = []indicator{
	{tier: Strong, name: "math_delimiters", count: func(s string) int { return len(latex.FindMathSegments(s)) }},
	pattern(Strong, "latex_command", `\\[A-Za-z]+\s*\{`),
	pattern(Strong, "math_symbol", `[∑∫∏√∞≤≥≠≈±×÷∂∇∈∉⊂⊃⊆∪∩⇒⇔∀∃]`),

	pattern(Medium, "arithmetic", `\d+(?:\.\d+)?\s*[+*/×÷^=-]\s*\(?\d+(?:\.\d+)?`),
	pattern(Medium, "assignment", `(?<![A-Za-z])[A-Za-z]\s*=\s*[-(\dA-Za-z]`),
	pattern(Medium, "math_function", `(?<![A-Za-z])(?:sin|cos|tan|cot|sec|log|ln|exp|sqrt|max|min|gcd|lcm)\s*\(`),
	pattern(Medium, "math_keyword", `(?i)(?<![A-Za-z])(?:equations?|formulas?|formulae|theorems?|derivatives?|integrals?|polynomials?|quadratic|logarithms?|exponents?|coefficients?|hypotenuse|variance|matrix|matrices)(?![A-Za-z])`),

	pattern(Weak, "unit", `\d(?:\.\d+)?\s?(?:mm|cm|km|kg|mg|ml|mol|m/s|km/h|kHz|MHz|Hz|kW|Pa|°C|°F|%|m|s|g|N|J|W|V)(?![A-Za-z])`),
	pattern(Weak, "script", `(?<![A-Za-z])[A-Za-z]_(?:\d|\{)|[A-Za-z0-9)]\^(?:\d|\{|-?[A-Za-z](?![A-Za-z]))|[²³¹⁰⁴⁵⁶⁷⁸⁹₀₁₂₃₄₅₆₇₈₉]`),
}

// Detect classifies text. The text is NFC-normalized first so decomposed
// symbols match their composed forms.
func Detect(text string) Result {
	text = norm.NFC.String(text)

	var ind Indicators
	for _, in := range indicators {
		n := in.matches(text)
		if n == 0 {
			continue
		}
		ind.Hits = append(ind.Hits, Hit{Tier: in.tier, Name: in.name, Count: n})
		switch in.tier {
		case Strong:
			ind.Strong += n
		case Medium:
			ind.Medium += n
		case Weak:
			ind.Weak += n
		}
	}

	conf := Score(ind)
	return Result{HasMath: conf > 0, Confidence: conf, Indicators: ind}
}

// Score maps indicator counts to a confidence rounded to two decimals.
func Score(ind Indicators) float64 {
	var conf float64
	switch {
	case ind.Strong > 0:
		conf = math.Min(StrongCap, StrongBase+StrongStep*float64(ind.Strong))
	case ind.Medium >= MediumMin:
		conf = math.Min(MediumCap, MediumBase+MediumStep*float64(ind.Medium))
	case ind.Medium >= 1 && ind.Weak >= 1:
		conf = MediumWithWeak
	case ind.Weak >= WeakOnlyMin:
		conf = WeakOnlyConfidence
	}
	return math.Round(conf*100) / 100
}

func (in indicator) matches(s string) int {
	if in.count != nil {
		return in.count(s)
	}
	n := 0
	m, err := in.re.FindStringMatch(s)
	for err == nil && m != nil {
		n++
		m, err = in.re.FindNextMatch(m)
	}
	return n
}
