package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type ReportSignal struct {
	Code     string `json:"code"`
	Stage    string `json:"stage"`
	Module   string `json:"module,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type ModuleMetric struct {
	ModuleID    string `json:"module_id"`
	Title       string `json:"title"`
	Subsections int    `json:"subsections"`
	Kept        int    `json:"kept"`
	Created     int    `json:"created"`
	Dropped     int    `json:"dropped"`
	Skipped     int    `json:"skipped"`
	UsedLLM     int    `json:"used_llm"`
	Fallbacks   int    `json:"fallbacks"`
	LatexFixes  int    `json:"latex_fixes"`
	Saved       bool   `json:"saved"`
	Error       string `json:"error,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	ModuleCount       int            `json:"module_count"`
	FailedStages      int            `json:"failed_stages"`
	FailedModules     int            `json:"failed_modules"`
	Created           int            `json:"created"`
	Kept              int            `json:"kept"`
	Dropped           int            `json:"dropped"`
	LatexFixes        int            `json:"latex_fixes"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report collects stage timings, per-module metrics and signals for one
// pipeline run. It is safe for concurrent use.
type Report struct {
	Version     string         `json:"version"`
	Mode        string         `json:"mode"`
	CourseID    string         `json:"course_id,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Stages      []StageMetric  `json:"stages"`
	Modules     []ModuleMetric `json:"modules,omitempty"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`

	mu sync.Mutex
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport(mode, courseID string) *Report {
	return &Report{
		Version:     "v1",
		Mode:        mode,
		CourseID:    courseID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Modules:     []ModuleMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) EndStage(h StageHandle, counters map[string]float64, err error) {
	if r == nil || h.name == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	r.mu.Lock()
	r.Stages = append(r.Stages, m)
	r.mu.Unlock()
}

func (r *Report) AddSignal(code, stage, module, severity, message string) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Module:   strings.TrimSpace(module),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.mu.Lock()
	r.Signals = append(r.Signals, s)
	r.mu.Unlock()
}

func (r *Report) AddModule(m ModuleMetric) {
	if r == nil || strings.TrimSpace(m.ModuleID) == "" {
		return
	}
	r.mu.Lock()
	r.Modules = append(r.Modules, m)
	r.mu.Unlock()
}

// Finalize orders modules and signals and fills the summary. Module order
// from a parallel run is not meaningful, so modules are sorted by ID.
func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	sort.Slice(r.Modules, func(i, j int) bool { return r.Modules[i].ModuleID < r.Modules[j].ModuleID })
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Module == r.Signals[j].Module {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Module < r.Signals[j].Module
		}
		return pi > pj
	})

	summary := ReportSummary{
		StageCount:  len(r.Stages),
		ModuleCount: len(r.Modules),
		SignalsBySeverity: map[string]int{
			"critical": 0,
			"warning":  0,
			"info":     0,
		},
	}
	for _, s := range r.Signals {
		summary.SignalsBySeverity[s.Severity]++
	}
	for _, st := range r.Stages {
		if st.Status != "ok" {
			summary.FailedStages++
		}
	}
	for _, m := range r.Modules {
		if m.Error != "" {
			summary.FailedModules++
		}
		summary.Created += m.Created
		summary.Kept += m.Kept
		summary.Dropped += m.Dropped
		summary.LatexFixes += m.LatexFixes
	}
	r.Summary = summary
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
