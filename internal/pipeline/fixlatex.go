package pipeline

import (
	"context"
	"fmt"

	"coursegen/internal/course"
	"coursegen/internal/latex"
	"coursegen/internal/storage"

	"github.com/sirupsen/logrus"
)

// ModuleFix is what the LaTeX maintenance pass did to one module.
type ModuleFix struct {
	ModuleID string         `json:"module_id"`
	Changes  int            `json:"changes"`
	Fields   map[string]int `json:"fields,omitempty"`
}

// LatexFixer re-sanitizes stored modules in place.
type LatexFixer struct {
	Store storage.ModuleStore
	Log   logrus.FieldLogger
}

func NewLatexFixer(store storage.ModuleStore) *LatexFixer {
	return &LatexFixer{Store: store, Log: logrus.StandardLogger()}
}

// FixAll sanitizes every module of a course and writes back the changed ones
// in a single transaction unless dryRun is set. Only modules with at least
// one fix are returned. Running it twice is a no-op the second time.
func (f *LatexFixer) FixAll(ctx context.Context, courseID string, dryRun bool, report *Report) ([]ModuleFix, error) {
	stage := report.BeginStage("fix_latex")
	fixes, changed, err := f.scan(ctx, courseID)
	if err == nil && !dryRun && len(changed) > 0 {
		err = f.Store.SaveModules(ctx, changed)
		if err != nil {
			err = fmt.Errorf("failed to save sanitized modules: %w", err)
		}
	}

	total := 0
	for _, fx := range fixes {
		total += fx.Changes
		report.AddModule(ModuleMetric{ModuleID: fx.ModuleID, LatexFixes: fx.Changes, Saved: !dryRun && err == nil})
	}
	report.EndStage(stage, map[string]float64{
		"modules_changed": float64(len(fixes)),
		"fixes":           float64(total),
	}, err)
	if err != nil {
		return nil, err
	}

	f.logger().WithFields(logrus.Fields{
		"course":  courseID,
		"modules": len(fixes),
		"fixes":   total,
		"dry_run": dryRun,
	}).Info("latex maintenance pass finished")
	return fixes, nil
}

func (f *LatexFixer) scan(ctx context.Context, courseID string) ([]ModuleFix, []*course.Module, error) {
	if f.Store == nil {
		return nil, nil, fmt.Errorf("latex fixer has no store")
	}
	modules, err := f.Store.ListModules(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list modules: %w", err)
	}

	var (
		fixes   []ModuleFix
		changed []*course.Module
	)
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		res := latex.SanitizeModule(m)
		if res.Changes == 0 {
			continue
		}
		fixes = append(fixes, ModuleFix{ModuleID: m.ID, Changes: res.Changes, Fields: res.Fields})
		changed = append(changed, m)
	}
	return fixes, changed, nil
}

func (f *LatexFixer) logger() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}
