package pages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coursegen/internal/course"
	"coursegen/internal/knowledge"
	"coursegen/internal/outline"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_TopLevel(t *testing.T) {
	pages := Synthesize(Input{Title: "Ratios", ModuleContext: "Arithmetic", ExamType: "CAT", Level: 3})
	require.Len(t, pages, 8)
	assert.Equal(t, "Introduction & Foundation", pages[0].PageTitle)
	assert.Equal(t, "Core Concepts & Theory – Part 1", pages[1].PageTitle)
	assert.Equal(t, "Core Concepts & Theory – Part 2", pages[2].PageTitle)
	assert.Equal(t, "Key Takeaways & Exam Readiness", pages[7].PageTitle)

	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Contains(t, p.Content, "Ratios")
		assert.NotContains(t, p.Content, "{{")
		assert.NotEmpty(t, p.KeyTakeaway)
	}
	assert.Contains(t, pages[0].Content, "Arithmetic")
	assert.Contains(t, pages[0].Content, "CAT")
}

func TestSynthesize_NestedSkipsFormulasAndApplications(t *testing.T) {
	for _, level := range []int{4, 5, 6, 9} {
		pages := Synthesize(Input{Title: "Direct Proportion", Level: level})
		require.Len(t, pages, 6, "level %d", level)
		for _, p := range pages {
			assert.NotEqual(t, "Formulas & Key Relationships", p.PageTitle)
			assert.NotEqual(t, "Applications & Problem Solving", p.PageTitle)
		}
		assert.Equal(t, "Introduction & Foundation", pages[0].PageTitle)
		assert.Equal(t, "Key Takeaways & Exam Readiness", pages[5].PageTitle)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	in := Input{Title: "Percentages", ModuleContext: "Arithmetic", ExamType: "GMAT", Level: 4}
	assert.Equal(t, Synthesize(in), Synthesize(in))

	other := Synthesize(Input{Title: "Averages", Level: 4})
	assert.Equal(t, PlanForLevel(4).Titles(), titlesOf(other))
}

func TestSynthesize_EmptyTitleStillProducesPages(t *testing.T) {
	in := Input{Level: 3}
	pages := Synthesize(in)
	assert.Len(t, pages, 8)
	assert.ErrorIs(t, in.Validate(), ErrMissingTitle)
	assert.ErrorIs(t, Input{Title: "   "}.Validate(), ErrMissingTitle)
	assert.NoError(t, Input{Title: "Ratios"}.Validate())
}

func TestBuildSubsection(t *testing.T) {
	entries := outline.Flatten(outline.Parse("### Ratios\n#### Direct Proportion\n#### Inverse Proportion"))
	require.Len(t, entries, 3)

	top := BuildSubsection(entries[0], "Arithmetic", "CAT")
	assert.Equal(t, "Ratios", top.Title)
	assert.Equal(t, 3, top.HierarchyLevel)
	assert.Equal(t, "Ratios", top.HierarchyPath)
	assert.Equal(t, course.Intermediate, top.Difficulty)
	assert.True(t, top.HasChildren)
	assert.Equal(t, 2, top.ChildrenCount)
	assert.Len(t, top.Pages, 8)
	assert.Equal(t, "40-56 minutes", top.EstimatedTime)
	require.NoError(t, top.Validate())

	child := BuildSubsection(entries[1], "Arithmetic", "CAT")
	assert.Equal(t, "Ratios > Direct Proportion", child.HierarchyPath)
	assert.Equal(t, course.Advanced, child.Difficulty)
	assert.False(t, child.HasChildren)
	assert.Len(t, child.Pages, 6)
	require.NoError(t, child.Validate())
}

type fakeWriter struct {
	pages []course.Page
	err   error
	calls int
	last  knowledge.PageRequest
}

func (f *fakeWriter) WritePages(_ context.Context, req knowledge.PageRequest) ([]course.Page, error) {
	f.calls++
	f.last = req
	return f.pages, f.err
}

func goodPages(n int) []course.Page {
	body := strings.Repeat("Ratios compare two quantities of the same kind. ", 10)
	out := make([]course.Page, n)
	for i := range out {
		out[i] = course.Page{PageNumber: i + 1, PageTitle: "Renamed", Content: body, KeyTakeaway: "Compare like with like."}
	}
	return out
}

func TestWriterSource_UsesWriterPages(t *testing.T) {
	w := &fakeWriter{pages: goodPages(6)}
	src := NewWriterSource(w)

	in := Input{Title: "Direct Proportion", ModuleContext: "Arithmetic", ExamType: "CAT", Level: 4}
	got, trace := src.Pages(context.Background(), in, "Ratios > Direct Proportion")
	require.Len(t, got, 6)
	assert.True(t, trace.UsedLLM)
	assert.False(t, trace.UsedFallback)
	assert.Equal(t, "llm", trace.Describe())

	assert.Equal(t, PlanForLevel(4).Titles(), titlesOf(got), "titles follow the plan")
	assert.Equal(t, PlanForLevel(4).Titles(), w.last.PageTitles)
	assert.Equal(t, "Ratios > Direct Proportion", w.last.HierarchyPath)
}

func TestWriterSource_RenumbersWriterPages(t *testing.T) {
	pages := goodPages(8)
	for i := range pages {
		pages[i].PageNumber = 0
	}
	pages[5].PageNumber = 42

	got, trace := NewWriterSource(&fakeWriter{pages: pages}).Pages(context.Background(), Input{Title: "Ratios", Level: 3}, "Ratios")
	require.Len(t, got, 8)
	assert.False(t, trace.UsedFallback)
	for i, p := range got {
		assert.Equal(t, i+1, p.PageNumber)
	}
	assert.Zero(t, pages[0].PageNumber, "writer output is not modified")
}

func TestWriterSource_FallsBack(t *testing.T) {
	short := goodPages(8)
	short[2].Content = "TBD"

	tests := []struct {
		name   string
		writer *fakeWriter
		reason string
	}{
		{name: "writer error", writer: &fakeWriter{err: errors.New("quota exceeded")}, reason: "quota exceeded"},
		{name: "wrong page count", writer: &fakeWriter{pages: goodPages(3)}, reason: "page_count_mismatch"},
		{name: "placeholder page", writer: &fakeWriter{pages: short}, reason: "instructional_or_placeholder_text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()
			src := &WriterSource{Writer: tt.writer, Log: logger}

			in := Input{Title: "Ratios", Level: 3}
			got, trace := src.Pages(context.Background(), in, "Ratios")
			assert.Equal(t, Synthesize(in), got)
			assert.True(t, trace.UsedFallback)
			assert.Contains(t, trace.Reason, tt.reason)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		})
	}
}

func TestWriterSource_NilWriter(t *testing.T) {
	var src *WriterSource
	got, trace := src.Pages(context.Background(), Input{Title: "x", Level: 3}, "x")
	assert.Len(t, got, 8)
	assert.Equal(t, "no_writer", trace.Reason)
}

func TestTemplateSource(t *testing.T) {
	got, trace := TemplateSource{}.Pages(context.Background(), Input{Title: "x", Level: 5}, "x")
	assert.Len(t, got, 6)
	assert.Equal(t, "template", trace.Describe())
}

func titlesOf(pages []course.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.PageTitle
	}
	return out
}
