package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coursegen/internal/mathdetect"

	"github.com/sirupsen/logrus"
)

// DefaultStepTimeout bounds a single chain step.
const DefaultStepTimeout = 5 * time.Second

// ErrRenderTimeout means a backend did not return within the step timeout.
var ErrRenderTimeout = errors.New("renderer timed out")

// Attempt records one step of a fallback chain.
type Attempt struct {
	Renderer   string     `json:"renderer"`
	Preprocess Preprocess `json:"preprocess"`
	Error      string     `json:"error,omitempty"`
}

// Output is the rendered block plus how it was produced.
type Output struct {
	HTML      string            `json:"html"`
	Strategy  Strategy          `json:"strategy"`
	Renderer  string            `json:"renderer"`
	Fallback  bool              `json:"fallback"`
	Attempts  []Attempt         `json:"attempts"`
	Detection mathdetect.Result `json:"detection"`
}

// Selector detects math, picks a strategy and walks its fallback chain.
// It keeps no state between calls.
type Selector struct {
	Primary string
	Timeout time.Duration
	Log     logrus.FieldLogger

	renderers map[string]Renderer
}

// Option configures a Selector.
type Option func(*Selector)

// WithRenderer registers r under its name, replacing any built-in backend.
func WithRenderer(r Renderer) Option {
	return func(s *Selector) { s.renderers[r.Name()] = r }
}

// WithPrimary sets the first math backend ("mathml" or "katex").
func WithPrimary(name string) Option {
	return func(s *Selector) { s.Primary = name }
}

// WithTimeout bounds each chain step. A step that runs longer counts as a
// failed attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Selector) { s.Timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Selector) { s.Log = l }
}

func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		Timeout: DefaultStepTimeout,
		Log:     logrus.StandardLogger(),
		renderers: map[string]Renderer{
			MarkdownName:  NewMarkdownRenderer(),
			KatexName:     NewKatexRenderer(),
			MathMLName:    NewMathMLRenderer(),
			PlainTextName: PlainTextRenderer{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render detects math in text and renders it.
func (s *Selector) Render(text string) Output {
	return s.RenderDetected(text, mathdetect.Detect(text))
}

// RenderDetected renders text for an existing detection result. Every
// failure is logged and the next step tried; when the chain is exhausted
// the original text is shown verbatim, so the HTML is never blank.
func (s *Selector) RenderDetected(text string, det mathdetect.Result) Output {
	out := Output{Strategy: SelectStrategy(det), Detection: det}

	for i, step := range Chain(out.Strategy, s.Primary) {
		attempt := Attempt{Renderer: step.Renderer, Preprocess: step.Preprocess}

		r, ok := s.renderers[step.Renderer]
		if !ok {
			attempt.Error = fmt.Sprintf("renderer %q is not registered", step.Renderer)
			out.Attempts = append(out.Attempts, attempt)
			continue
		}

		rendered, err := renderWithin(r, step.Preprocess.apply(text, det), s.Timeout)
		if err == nil {
			out.Attempts = append(out.Attempts, attempt)
			out.HTML = rendered
			out.Renderer = r.Name()
			out.Fallback = i > 0
			return out
		}

		attempt.Error = err.Error()
		out.Attempts = append(out.Attempts, attempt)
		s.logger().WithFields(logrus.Fields{
			"strategy":   out.Strategy,
			"renderer":   step.Renderer,
			"preprocess": step.Preprocess,
			"confidence": det.Confidence,
		}).WithError(err).Warn("render attempt failed, trying next fallback")
	}

	html, _ := PlainTextRenderer{}.Render(text)
	out.HTML = html
	out.Renderer = PlainTextName
	out.Fallback = true
	s.logger().WithField("strategy", out.Strategy).Error("all renderers failed, showing raw content")
	return out
}

func (s *Selector) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

type renderResult struct {
	out string
	err error
}

// renderWithin runs r on its own goroutine. A backend stuck past d is
// abandoned; its goroutine finishes into a buffered channel nobody reads.
func renderWithin(r Renderer, src string, d time.Duration) (string, error) {
	if d <= 0 {
		return tryRender(r, src)
	}
	done := make(chan renderResult, 1)
	go func() {
		out, err := tryRender(r, src)
		done <- renderResult{out, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.out, res.err
	case <-timer.C:
		return "", fmt.Errorf("%w: %s after %v", ErrRenderTimeout, r.Name(), d)
	}
}

func tryRender(r Renderer, src string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("%w: %s: %v", ErrRenderPanic, r.Name(), p)
		}
	}()
	out, err = r.Render(src)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyOutput
	}
	return out, err
}
