package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"coursegen/internal/course"
	"coursegen/internal/latex"
	"coursegen/internal/outline"
	"coursegen/internal/pages"
	"coursegen/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds RegenerateCourse when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Options tune a regeneration run.
type Options struct {
	// Force rebuilds subsections whose hierarchy path already exists.
	Force bool
	// Strict fails the module on a blank heading title instead of skipping it.
	Strict bool
	// DryRun computes results without writing them back.
	DryRun bool
	// Concurrency bounds the number of modules rebuilt at once.
	Concurrency int
}

// Result is the outcome of rebuilding one module.
type Result struct {
	Subsections []course.Subsection
	Kept        int
	Created     int
	Dropped     int
	Skipped     int
	UsedLLM     int
	Fallbacks   int
	LatexFixes  int
}

// Regenerator rebuilds module subsections from their markdown outline.
type Regenerator struct {
	Store  storage.ModuleStore
	Source pages.Source
	Log    logrus.FieldLogger
}

func NewRegenerator(store storage.ModuleStore, source pages.Source) *Regenerator {
	if source == nil {
		source = pages.TemplateSource{}
	}
	return &Regenerator{Store: store, Source: source, Log: logrus.StandardLogger()}
}

// Rebuild parses the module content and returns the updated subsection list.
// It does not modify m.
func (r *Regenerator) Rebuild(ctx context.Context, m *course.Module, opts Options) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("module is nil")
	}
	return r.RebuildTree(ctx, m, outline.Parse(m.Content), opts)
}

// RebuildTree is Rebuild over an already parsed outline. Existing
// subsections whose hierarchy path survives are kept whole unless
// opts.Force is set; only their child counts follow the new outline. New
// paths get fresh pages and vanished paths are dropped.
func (r *Regenerator) RebuildTree(ctx context.Context, m *course.Module, roots []*outline.Node, opts Options) (*Result, error) {
	existing := make(map[string]course.Subsection, len(m.Subsections))
	for _, sub := range m.Subsections {
		if _, dup := existing[sub.HierarchyPath]; !dup {
			existing[sub.HierarchyPath] = sub
		}
	}

	res := &Result{Subsections: []course.Subsection{}}
	moduleContext := m.ModuleContext()
	emitted := map[string]bool{}
	log := r.logger().WithField("module", m.ID)

	for _, entry := range outline.Flatten(roots) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := entry.PathString()
		in := pages.InputFor(entry, moduleContext, m.ExamType)
		if err := in.Validate(); err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("module %s: heading at level %d: %w", m.ID, entry.Node.Level, err)
			}
			log.WithField("level", entry.Node.Level).Warn("skipping heading with blank title")
			res.Skipped++
			continue
		}
		if emitted[path] {
			log.WithField("subsection", path).Warn("skipping duplicate hierarchy path")
			res.Skipped++
			continue
		}
		emitted[path] = true

		if old, ok := existing[path]; ok && !opts.Force {
			old.HasChildren = len(entry.Node.Children) > 0
			old.ChildrenCount = len(entry.Node.Children)
			res.Subsections = append(res.Subsections, old)
			res.Kept++
			continue
		}

		got, trace := r.source().Pages(ctx, in, path)
		if trace.UsedLLM && !trace.UsedFallback {
			res.UsedLLM++
		}
		if trace.UsedFallback && trace.Reason != "no_writer" {
			res.Fallbacks++
		}
		res.Subsections = append(res.Subsections, pages.NewSubsection(entry, got))
		res.Created++
	}

	for path := range existing {
		if !emitted[path] {
			res.Dropped++
		}
	}

	for i := range res.Subsections {
		res.LatexFixes += sanitizePages(&res.Subsections[i])
	}
	return res, nil
}

// RegenerateCourse rebuilds every module of a course with bounded
// parallelism and writes changed modules back. A failing module is
// recorded in the report and does not stop the others.
func (r *Regenerator) RegenerateCourse(ctx context.Context, courseID string, opts Options, report *Report) error {
	if r.Store == nil {
		return fmt.Errorf("regenerator has no store")
	}

	stage := report.BeginStage("load_modules")
	modules, err := r.Store.ListModules(ctx, courseID)
	report.EndStage(stage, map[string]float64{"modules": float64(len(modules))}, err)
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var failed atomic.Int32
	stage = report.BeginStage("rebuild_modules")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, m := range modules {
		g.Go(func() error {
			metric := r.regenerateModule(gctx, m, opts, report)
			if metric.Error != "" {
				failed.Add(1)
			}
			report.AddModule(metric)
			return gctx.Err()
		})
	}
	err = g.Wait()
	report.EndStage(stage, map[string]float64{
		"modules": float64(len(modules)),
		"failed":  float64(failed.Load()),
	}, err)
	if err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d modules failed to regenerate", n, len(modules))
	}
	return nil
}

func (r *Regenerator) regenerateModule(ctx context.Context, m *course.Module, opts Options, report *Report) ModuleMetric {
	metric := ModuleMetric{ModuleID: m.ID, Title: m.Title}

	res, err := r.Rebuild(ctx, m, opts)
	if err != nil {
		metric.Error = err.Error()
		severity := "warning"
		if errors.Is(err, pages.ErrMissingTitle) {
			severity = "critical"
		}
		report.AddSignal("rebuild_failed", "rebuild_modules", m.ID, severity, err.Error())
		return metric
	}

	metric.Subsections = len(res.Subsections)
	metric.Kept, metric.Created, metric.Dropped, metric.Skipped = res.Kept, res.Created, res.Dropped, res.Skipped
	metric.UsedLLM, metric.Fallbacks, metric.LatexFixes = res.UsedLLM, res.Fallbacks, res.LatexFixes
	if res.Fallbacks > 0 {
		report.AddSignal("llm_fallback", "rebuild_modules", m.ID, "info",
			fmt.Sprintf("%d subsection(s) used template pages after the writer failed", res.Fallbacks))
	}
	if res.Skipped > 0 {
		report.AddSignal("headings_skipped", "rebuild_modules", m.ID, "warning",
			fmt.Sprintf("%d heading(s) skipped", res.Skipped))
	}

	if opts.DryRun || (res.Created == 0 && res.Dropped == 0 && res.LatexFixes == 0 && sameStructure(m.Subsections, res.Subsections)) {
		return metric
	}

	updated := *m
	updated.Subsections = res.Subsections
	if err := r.Store.SaveModule(ctx, &updated); err != nil {
		metric.Error = fmt.Sprintf("save failed: %v", err)
		report.AddSignal("save_failed", "rebuild_modules", m.ID, "critical", err.Error())
		return metric
	}
	metric.Saved = true
	r.logger().WithFields(logrus.Fields{
		"module":  m.ID,
		"created": res.Created,
		"kept":    res.Kept,
		"dropped": res.Dropped,
	}).Info("module regenerated")
	return metric
}

func (r *Regenerator) source() pages.Source {
	if r.Source == nil {
		return pages.TemplateSource{}
	}
	return r.Source
}

func (r *Regenerator) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// sanitizePages runs the LaTeX sanitizer over every page of sub and returns
// the number of fixes applied.
func sanitizePages(sub *course.Subsection) int {
	pagesCopy := make([]course.Page, len(sub.Pages))
	copy(pagesCopy, sub.Pages)

	total := 0
	for i := range pagesCopy {
		p := &pagesCopy[i]
		for _, field := range []*string{&p.PageTitle, &p.Content, &p.KeyTakeaway} {
			res := latex.Sanitize(*field)
			*field = res.Text
			total += res.Changes
		}
	}
	sub.Pages = pagesCopy
	return total
}

func sameStructure(before, after []course.Subsection) bool {
	if len(before) != len(after) {
		return false
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.HierarchyPath != a.HierarchyPath || b.HasChildren != a.HasChildren || b.ChildrenCount != a.ChildrenCount {
			return false
		}
	}
	return true
}
