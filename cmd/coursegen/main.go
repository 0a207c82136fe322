package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursegen/internal/config"
	"coursegen/internal/course"
	"coursegen/internal/knowledge"
	"coursegen/internal/latex"
	"coursegen/internal/mathdetect"
	"coursegen/internal/outline"
	"coursegen/internal/pages"
	"coursegen/internal/pipeline"
	"coursegen/internal/render"
	"coursegen/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "coursegen",
		Short: "Build paged course content from module outlines",
	}
	dbPath     string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the course database (SQLite); defaults to store.path from config")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	importCmd.Flags().String("id", "", "Module ID (defaults to the file name)")
	importCmd.Flags().String("course", "", "Course ID the module belongs to")
	importCmd.Flags().String("title", "", "Module title (defaults to the file name)")
	importCmd.Flags().String("exam", "", "Target exam, used in page text")
	importCmd.Flags().String("summary", "", "One-line module summary")
	importCmd.Flags().Bool("force", false, "Rebuild subsections that already exist")

	synthesizeCmd.Flags().String("title", "", "Module title used as page context")
	synthesizeCmd.Flags().String("exam", "", "Target exam, used in page text")

	sanitizeCmd.Flags().Float64("confidence", -1, "Normalize with this detection confidence instead of plain sanitizing")
	renderCmd.Flags().Bool("json", false, "Print strategy, attempts and detection as JSON")

	regenerateCmd.Flags().String("course", "", "Course ID to regenerate (required)")
	regenerateCmd.Flags().Bool("force", false, "Rebuild subsections that already exist")
	regenerateCmd.Flags().Bool("dry-run", false, "Compute results without saving")
	regenerateCmd.Flags().Int("concurrency", pipeline.DefaultConcurrency, "Modules rebuilt in parallel")
	regenerateCmd.Flags().String("report", "", "Write a JSON run report to this path")
	_ = regenerateCmd.MarkFlagRequired("course")

	fixLatexCmd.Flags().String("course", "", "Course ID to fix (required)")
	fixLatexCmd.Flags().Bool("dry-run", false, "Report fixes without saving")
	fixLatexCmd.Flags().String("report", "", "Write a JSON run report to this path")
	_ = fixLatexCmd.MarkFlagRequired("course")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(fixLatexCmd)
	rootCmd.AddCommand(deleteCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ConfigureLogger(); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg
}

// initStore initializes the SQLite store.
func initStore(cfg *config.Config) *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return store
}

// initSource picks the page source. LLM pages are opt-in; any setup problem
// falls back to the templates.
func initSource(ctx context.Context, cfg *config.Config) pages.Source {
	if !cfg.Synth.UseLLM {
		return pages.TemplateSource{}
	}
	w, err := knowledge.NewPageWriter(ctx, knowledge.WriterOptions{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		fmt.Printf("⚠️  LLM page writer unavailable, using templates: %v\n", err)
		return pages.TemplateSource{}
	}
	fmt.Printf("🧠 Writing pages with %s\n", cfg.AI.Provider)
	return pages.NewWriterSource(w)
}

// readInput reads a file argument, or stdin for "-".
func readInput(arg string) string {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		log.Fatalf("Failed to read %s: %v", arg, err)
	}
	return string(data)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

var importCmd = &cobra.Command{
	Use:   "import <file.md>",
	Short: "Store a module from markdown and build its subsections",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		content := readInput(args[0])

		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			id = baseName(args[0])
		}
		force, _ := cmd.Flags().GetBool("force")

		store := initStore(cfg)
		defer store.Close()

		m, err := store.GetModule(ctx, id)
		switch {
		case err == nil:
			fmt.Printf("🔄 Updating existing module %s\n", id)
		case errors.Is(err, storage.ErrNotFound):
			m = &course.Module{ID: id, Title: baseName(args[0])}
		default:
			log.Fatalf("Failed to load module %s: %v", id, err)
		}
		m.Content = content
		for flag, dst := range map[string]*string{"course": &m.CourseID, "title": &m.Title, "exam": &m.ExamType, "summary": &m.Summary} {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				*dst = v
			}
		}

		fmt.Printf("📂 Building subsections for %q\n", m.Title)
		regen := pipeline.NewRegenerator(store, initSource(ctx, cfg))
		res, err := regen.Rebuild(ctx, m, pipeline.Options{Force: force, Strict: cfg.Synth.Strict})
		if err != nil {
			log.Fatalf("Failed to build subsections: %v", err)
		}
		m.Subsections = res.Subsections

		fmt.Println("💾 Saving to local database...")
		if err := store.SaveModule(ctx, m); err != nil {
			log.Fatalf("Failed to save module: %v", err)
		}
		fmt.Printf("✅ Module %s: %d subsections (%d new, %d kept, %d dropped, %d LaTeX fixes)\n",
			m.ID, len(res.Subsections), res.Created, res.Kept, res.Dropped, res.LatexFixes)
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <file.md>",
	Short: "Print the heading outline of a module",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roots := outline.Parse(readInput(args[0]))
		if len(roots) == 0 {
			fmt.Println("⚠️  No level 3+ headings found.")
			return
		}
		outline.Walk(roots, func(n *outline.Node, path []string) {
			indent := strings.Repeat("  ", len(path)-1)
			children := ""
			if len(n.Children) > 0 {
				children = fmt.Sprintf(" (%d)", len(n.Children))
			}
			fmt.Printf("%s- [h%d] %s%s\n", indent, n.Level, n.Text, children)
		})
		fmt.Printf("📊 %d headings\n", outline.Count(roots))
	},
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <file.md>",
	Short: "Print the generated subsections of a module as JSON without saving",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = baseName(args[0])
		}
		exam, _ := cmd.Flags().GetString("exam")
		m := &course.Module{ID: baseName(args[0]), Title: title, ExamType: exam, Content: readInput(args[0])}

		res, err := pipeline.NewRegenerator(nil, initSource(ctx, cfg)).Rebuild(ctx, m, pipeline.Options{Strict: cfg.Synth.Strict})
		if err != nil {
			log.Fatalf("Failed to synthesize: %v", err)
		}
		printJSON(res.Subsections)
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect <text|->",
	Short: "Classify how much math a text block contains",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := args[0]
		if text == "-" {
			text = readInput("-")
		}
		res := mathdetect.Detect(text)
		printJSON(struct {
			mathdetect.Result
			Strategy render.Strategy `json:"strategy"`
		}{res, render.SelectStrategy(res)})
	},
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize <file|->",
	Short: "Repair malformed LaTeX and print the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := readInput(args[0])
		conf, _ := cmd.Flags().GetFloat64("confidence")

		var res latex.Result
		if conf >= 0 {
			res = latex.Normalize(text, conf)
		} else {
			res = latex.Sanitize(text)
		}
		fmt.Print(res.Text)
		for _, f := range res.Applied {
			fmt.Fprintf(os.Stderr, "🔧 %s x%d: %s\n", f.Rule, f.Count, f.Description)
		}
		fmt.Fprintf(os.Stderr, "✅ %d changes\n", res.Changes)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <file|->",
	Short: "Render markdown with math to HTML using the fallback chain",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		asJSON, _ := cmd.Flags().GetBool("json")

		out := render.NewSelector(render.WithPrimary(cfg.Render.Primary)).Render(readInput(args[0]))
		if asJSON {
			printJSON(out)
			return
		}
		fmt.Println(out.HTML)
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rebuild subsections for every module of a course",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		courseID, _ := cmd.Flags().GetString("course")
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		reportPath, _ := cmd.Flags().GetString("report")

		store := initStore(cfg)
		defer store.Close()

		fmt.Printf("🚀 Regenerating course %s...\n", courseID)
		start := time.Now()
		report := pipeline.NewReport("regenerate", courseID)
		regen := pipeline.NewRegenerator(store, initSource(ctx, cfg))
		runErr := regen.RegenerateCourse(ctx, courseID, pipeline.Options{
			Force:       force,
			Strict:      cfg.Synth.Strict,
			DryRun:      dryRun,
			Concurrency: concurrency,
		}, report)

		report.Finalize()
		s := report.Summary
		fmt.Printf("📊 %d modules in %v: %d subsections new, %d kept, %d dropped, %d LaTeX fixes\n",
			s.ModuleCount, time.Since(start), s.Created, s.Kept, s.Dropped, s.LatexFixes)
		for _, sig := range report.Signals {
			fmt.Printf("  -> [%s] %s %s: %s\n", sig.Severity, sig.Module, sig.Code, sig.Message)
		}
		saveReport(report, reportPath)

		if runErr != nil {
			log.Fatalf("Regeneration failed: %v", runErr)
		}
		if dryRun {
			fmt.Println("✅ Dry run complete, nothing saved.")
			return
		}
		fmt.Println("✅ Regeneration complete.")
	},
}

var fixLatexCmd = &cobra.Command{
	Use:   "fix-latex",
	Short: "Re-sanitize LaTeX in every stored module of a course",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		courseID, _ := cmd.Flags().GetString("course")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		reportPath, _ := cmd.Flags().GetString("report")

		store := initStore(cfg)
		defer store.Close()

		fmt.Printf("🔍 Scanning course %s for malformed LaTeX...\n", courseID)
		report := pipeline.NewReport("fix-latex", courseID)
		fixes, err := pipeline.NewLatexFixer(store).FixAll(ctx, courseID, dryRun, report)
		saveReport(report, reportPath)
		if err != nil {
			log.Fatalf("LaTeX fix failed: %v", err)
		}

		total := 0
		for _, f := range fixes {
			total += f.Changes
			fmt.Printf("  -> %s: %d fixes\n", f.ModuleID, f.Changes)
		}
		if dryRun {
			fmt.Printf("✅ Dry run: %d fixes in %d modules, nothing saved.\n", total, len(fixes))
			return
		}
		fmt.Printf("✅ Applied %d fixes in %d modules.\n", total, len(fixes))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <module-id>",
	Short: "Remove a stored module",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		if err := store.DeleteModule(context.Background(), args[0]); err != nil {
			log.Fatalf("Failed to delete module: %v", err)
		}
		fmt.Printf("🗑️  Deleted module %s\n", args[0])
	},
}

func saveReport(report *pipeline.Report, path string) {
	if path == "" {
		return
	}
	if err := report.Save(path); err != nil {
		log.Printf("⚠️ Failed to save report: %v", err)
		return
	}
	fmt.Printf("📝 Report written to %s\n", path)
}
