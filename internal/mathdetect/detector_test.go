package mathdetect

import (
	"strings"
	"testing"
)

func TestDetect_InlineMathIsStrong(t *testing.T) {
	res := Detect("The value is $x^2+y^2=r^2$")
	if !res.HasMath {
		t.Fatalf("expected math, got %+v", res)
	}
	if res.Confidence < 0.7 {
		t.Fatalf("expected confidence >= 0.7, got %f", res.Confidence)
	}
	if res.Indicators.Strong < 1 {
		t.Fatalf("expected a strong indicator, got %+v", res.Indicators)
	}
	if !hasHit(res, "math_delimiters") {
		t.Fatalf("expected math_delimiters hit, got %+v", res.Indicators.Hits)
	}
}

func TestDetect_TimeOfDayIsNotMath(t *testing.T) {
	res := Detect("The meeting is at 5pm")
	if res.HasMath || res.Confidence != 0 {
		t.Fatalf("expected no math, got %+v", res)
	}
}

func TestDetect_Tiers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "medium only", text: "Use the quadratic formula: x = 3", want: 0.8},
		{name: "medium with weak", text: "The rod is 5 cm long and the ratio 3/4 matters", want: 0.6},
		{name: "weak only", text: "Distances: 5 km, 10 km, 3 kg and 20%", want: 0.4},
		{name: "too few weak", text: "It weighs 5 kg and costs 20%", want: 0},
		{name: "strong capped", text: "$a$ and $b$ and $c$", want: 0.95},
		{name: "latex command", text: `Recall \frac{a}{b} from before`, want: 0.8},
		{name: "prose", text: "Ratios compare two quantities of the same kind.", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Detect(tt.text)
			if res.Confidence != tt.want {
				t.Fatalf("confidence = %v, want %v (indicators %+v)", res.Confidence, tt.want, res.Indicators)
			}
			if res.HasMath != (tt.want > 0) {
				t.Fatalf("hasMath = %v with confidence %v", res.HasMath, res.Confidence)
			}
		})
	}
}

func TestDetect_MonotonicInStrongIndicators(t *testing.T) {
	text := "Solve x = 2 in 5 cm"
	prev := Detect(text).Confidence
	for i := 0; i < 6; i++ {
		text += " and $y_" + strings.Repeat("1", i+1) + "$"
		got := Detect(text).Confidence
		if got < prev {
			t.Fatalf("confidence dropped from %v to %v after %d strong additions", prev, got, i+1)
		}
		prev = got
	}
}

func TestDetect_NormalizesComposedSymbols(t *testing.T) {
	res := Detect("x =\u0338 y")
	if res.Indicators.Strong != 1 || !hasHit(res, "math_symbol") {
		t.Fatalf("expected decomposed not-equal sign to count as strong, got %+v", res.Indicators)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		ind  Indicators
		want float64
	}{
		{Indicators{Strong: 1}, 0.8},
		{Indicators{Strong: 2, Medium: 9}, 0.9},
		{Indicators{Strong: 7}, StrongCap},
		{Indicators{Medium: 2}, 0.7},
		{Indicators{Medium: 5}, MediumCap},
		{Indicators{Medium: 1, Weak: 2}, MediumWithWeak},
		{Indicators{Medium: 1}, 0},
		{Indicators{Weak: 4}, WeakOnlyConfidence},
		{Indicators{Weak: 3}, 0},
	}
	for _, tt := range tests {
		if got := Score(tt.ind); got != tt.want {
			t.Fatalf("Score(%+v) = %v, want %v", tt.ind, got, tt.want)
		}
	}
}

func hasHit(res Result, name string) bool {
	for _, h := range res.Indicators.Hits {
		if h.Name == name {
			return true
		}
	}
	return false
}
