package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"coursegen/internal/latex"

	"github.com/wyatt915/treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

const (
	MarkdownName  = "markdown"
	KatexName     = "katex"
	MathMLName    = "mathml"
	PlainTextName = "plaintext"
)

var (
	// ErrMathError means a backend could not typeset a math span.
	ErrMathError = errors.New("math render error")
	// ErrRenderPanic wraps a panic recovered from a backend.
	ErrRenderPanic = errors.New("renderer panicked")
	// ErrEmptyOutput is returned when a backend produced no markup.
	ErrEmptyOutput = errors.New("renderer produced no output")
)

// Renderer turns markdown with optional math into HTML.
type Renderer interface {
	Name() string
	Render(src string) (string, error)
}

// MarkdownRenderer renders GFM without any math handling.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r *MarkdownRenderer) Name() string { return MarkdownName }

func (r *MarkdownRenderer) Render(src string) (string, error) {
	return convert(r.md, src)
}

// MathMLRenderer typesets math server-side as MathML. It is the slower,
// more permissive backend. Spans are lifted out before markdown rendering
// and typeset one by one.
type MathMLRenderer struct {
	md goldmark.Markdown
}

func NewMathMLRenderer() *MathMLRenderer {
	return &MathMLRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r *MathMLRenderer) Name() string { return MathMLName }

func (r *MathMLRenderer) Render(src string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("%w: %v", ErrRenderPanic, p)
		}
	}()

	// A document holds equation state, so each call gets its own.
	doc := treeblood.NewDocument(nil, false)
	doc.PrintOneLine = true
	out, err = renderWithMath(r.md, src, func(seg latex.Segment, tex string) (string, error) {
		style := doc.TextStyle
		if seg.Display {
			style = doc.DisplayStyle
		}
		mml, err := style(tex)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrMathError, tex, err)
		}
		return strings.TrimSpace(mml), nil
	})
	if err != nil {
		return "", err
	}
	if n := Inspect(out).Errors; n > 0 {
		return "", fmt.Errorf("%w: %d merror element(s) in MathML output", ErrMathError, n)
	}
	return out, nil
}

// KatexRenderer is the fast, strict backend. Math spans are re-emitted as
// spans for client-side KaTeX. Spans with unbalanced braces are rejected.
type KatexRenderer struct {
	md goldmark.Markdown
}

func NewKatexRenderer() *KatexRenderer {
	return &KatexRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r *KatexRenderer) Name() string { return KatexName }

func (r *KatexRenderer) Render(src string) (string, error) {
	return renderWithMath(r.md, src, func(seg latex.Segment, tex string) (string, error) {
		if err := checkBraces(tex); err != nil {
			return "", err
		}
		class, left, right := "math math-inline", `\(`, `\)`
		if seg.Display {
			class, left, right = "math math-display", `\[`, `\]`
		}
		return fmt.Sprintf(`<span class="%s">%s%s%s</span>`, class, left, html.EscapeString(tex), right), nil
	})
}

// renderWithMath swaps every math span for a placeholder, renders the rest
// as markdown, then puts typeset spans back, so markdown never mangles TeX.
func renderWithMath(md goldmark.Markdown, src string, typeset func(seg latex.Segment, tex string) (string, error)) (string, error) {
	segs := latex.FindMathSegments(src)
	runes := []rune(src)

	var b strings.Builder
	spans := make([]string, len(segs))
	prev := 0
	for i, seg := range segs {
		span, err := typeset(seg, stripDelimiters(seg))
		if err != nil {
			return "", err
		}
		spans[i] = span
		b.WriteString(string(runes[prev:seg.Start]))
		b.WriteString(placeholder(i))
		prev = seg.End
	}
	b.WriteString(string(runes[prev:]))

	out, err := convert(md, b.String())
	if err != nil {
		return "", err
	}
	for i := len(spans) - 1; i >= 0; i-- {
		ph := placeholder(i)
		if !strings.Contains(out, ph) {
			return "", fmt.Errorf("%w: math span %d lost during markdown rendering", ErrMathError, i)
		}
		out = strings.ReplaceAll(out, ph, spans[i])
	}
	return out, nil
}

// PlainTextRenderer shows the text verbatim. It never fails.
type PlainTextRenderer struct{}

func (PlainTextRenderer) Name() string { return PlainTextName }

func (PlainTextRenderer) Render(src string) (string, error) {
	return `<pre class="raw-content">` + html.EscapeString(src) + `</pre>`, nil
}

func convert(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrEmptyOutput
	}
	return buf.String(), nil
}

// placeholder encodes i with the letters A-P and terminates with Z, so no
// placeholder is a prefix of another and markdown treats it as a plain word.
func placeholder(i int) string {
	var code []byte
	for {
		code = append(code, byte('A'+i%16))
		i /= 16
		if i == 0 {
			break
		}
	}
	return "MATHSPAN" + string(code) + "Z"
}

func stripDelimiters(seg latex.Segment) string {
	t := seg.Text
	switch {
	case strings.HasPrefix(t, "$$"), strings.HasPrefix(t, `\[`), strings.HasPrefix(t, `\(`):
		return t[2 : len(t)-2]
	default:
		return t[1 : len(t)-1]
	}
}

func checkBraces(tex string) error {
	depth := 0
	escaped := false
	for _, r := range tex {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected '}' in %q", ErrMathError, tex)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unclosed '{' in %q", ErrMathError, tex)
	}
	return nil
}
