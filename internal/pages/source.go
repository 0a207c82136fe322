package pages

import (
	"context"
	"fmt"
	"strings"

	"coursegen/internal/course"
	"coursegen/internal/knowledge"

	"github.com/sirupsen/logrus"
)

// Source produces the page set for one subsection.
type Source interface {
	Pages(ctx context.Context, in Input, path string) ([]course.Page, Trace)
}

// Trace records how a page set was produced.
type Trace struct {
	UsedLLM      bool
	UsedFallback bool
	Reason       string
}

// TemplateSource is the pure template path.
type TemplateSource struct{}

func (TemplateSource) Pages(_ context.Context, in Input, _ string) ([]course.Page, Trace) {
	return Synthesize(in), Trace{}
}

// WriterSource asks an LLM writer for the page bodies, following the page
// plan for the input's level, and falls back to the templates when the
// writer fails or returns unusable pages.
type WriterSource struct {
	Writer knowledge.PageWriter
	Log    logrus.FieldLogger
}

func NewWriterSource(w knowledge.PageWriter) *WriterSource {
	return &WriterSource{Writer: w, Log: logrus.StandardLogger()}
}

func (s *WriterSource) Pages(ctx context.Context, in Input, path string) ([]course.Page, Trace) {
	if s == nil || s.Writer == nil {
		return Synthesize(in), Trace{UsedFallback: true, Reason: "no_writer"}
	}

	plan := PlanForLevel(in.Level)
	req := knowledge.PageRequest{
		Title:         in.Title,
		HierarchyPath: path,
		ModuleContext: in.ModuleContext,
		ExamType:      in.ExamType,
		Level:         in.Level,
		PageTitles:    plan.Titles(),
	}

	got, err := s.Writer.WritePages(ctx, req)
	if err != nil {
		s.logger().WithError(err).WithField("subsection", path).Warn("page writer failed, using template pages")
		return Synthesize(in), Trace{UsedLLM: true, UsedFallback: true, Reason: err.Error()}
	}

	got = alignTitles(plan, got, in)
	if problems := checkGenerated(plan, got); len(problems) > 0 {
		reason := strings.Join(problems, ",")
		s.logger().WithFields(logrus.Fields{
			"subsection": path,
			"problems":   reason,
		}).Warn("generated pages rejected, using template pages")
		return Synthesize(in), Trace{UsedLLM: true, UsedFallback: true, Reason: reason}
	}
	return got, Trace{UsedLLM: true}
}

func (s *WriterSource) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// alignTitles pins page titles to the plan when the writer returned the right
// number of pages, so titles stay a function of the level alone.
func alignTitles(plan Plan, got []course.Page, in Input) []course.Page {
	if len(got) != len(plan.Pages) {
		return got
	}
	out := make([]course.Page, len(got))
	for i, p := range got {
		p.PageNumber = i + 1
		p.PageTitle = plan.Pages[i].Title
		if strings.TrimSpace(p.KeyTakeaway) == "" {
			p.KeyTakeaway = interpolate(plan.Pages[i].KeyTakeaway, in)
		}
		out[i] = p
	}
	return out
}

// Describe is a short human label for a trace.
func (t Trace) Describe() string {
	switch {
	case t.UsedLLM && !t.UsedFallback:
		return "llm"
	case t.UsedFallback:
		return fmt.Sprintf("template (fallback: %s)", t.Reason)
	default:
		return "template"
	}
}
