package render

import (
	"coursegen/internal/latex"
	"coursegen/internal/mathdetect"
)

// Strategy is how much math preprocessing a block receives before rendering.
type Strategy string

const (
	Plain       Strategy = "plain"
	MinimalMath Strategy = "minimal-math"
	SafeMath    Strategy = "safe-math"
	FullMath    Strategy = "full-math"
)

const (
	// SafeMathThreshold is the lowest confidence handled as safe-math.
	SafeMathThreshold = 0.5
	// FullMathThreshold is the lowest confidence handled as full-math.
	FullMathThreshold = 0.9
	// MinimalConfidence is the fixed confidence minimal-math sanitizes with.
	MinimalConfidence = 0.3
)

// SelectStrategy maps a detection result to a strategy.
func SelectStrategy(det mathdetect.Result) Strategy {
	switch {
	case !det.HasMath:
		return Plain
	case det.Confidence < SafeMathThreshold:
		return MinimalMath
	case det.Confidence < FullMathThreshold:
		return SafeMath
	default:
		return FullMath
	}
}

// Preprocess names the text transform applied before a renderer runs.
type Preprocess string

const (
	// Raw passes the original text through.
	Raw Preprocess = "raw"
	// Core applies the core sanitizer rules only.
	Core Preprocess = "sanitize"
	// Fixed normalizes with MinimalConfidence.
	Fixed Preprocess = "normalize-fixed"
	// Measured normalizes with the detected confidence.
	Measured Preprocess = "normalize-measured"
)

func (p Preprocess) apply(text string, det mathdetect.Result) string {
	switch p {
	case Core:
		return latex.Sanitize(text).Text
	case Fixed:
		return latex.Normalize(text, MinimalConfidence).Text
	case Measured:
		return latex.Normalize(text, det.Confidence).Text
	default:
		return text
	}
}

// Step is one entry of a fallback chain.
type Step struct {
	Renderer   string
	Preprocess Preprocess
}

// Chain returns the ordered fallback chain for a strategy. primary picks the
// first math renderer ("mathml" or "katex"); anything else means the strategy
// default. The last step always renders the original text as plain text.
func Chain(s Strategy, primary string) []Step {
	final := Step{Renderer: PlainTextName, Preprocess: Raw}

	switch s {
	case Plain:
		return []Step{{Renderer: MarkdownName, Preprocess: Raw}, final}
	case MinimalMath:
		first, second := KatexName, MathMLName
		if primary == MathMLName {
			first, second = second, first
		}
		return []Step{
			{Renderer: first, Preprocess: Fixed},
			{Renderer: second, Preprocess: Raw},
			final,
		}
	default:
		first, second := MathMLName, KatexName
		if primary == KatexName {
			first, second = second, first
		}
		return []Step{
			{Renderer: first, Preprocess: Measured},
			{Renderer: second, Preprocess: Core},
			final,
		}
	}
}
