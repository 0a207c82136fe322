package knowledge

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the prompts sent to page writers.
type PromptBuilder struct{}

const mathInstruction = "\n**MATH FORMATTING**: Write all mathematics in LaTeX between `$...$` (inline) or `$$...$$` (display). Always keep the leading backslash on commands such as `\\frac`, `\\sqrt`, `\\alpha`.\n"

func (pb *PromptBuilder) BuildPagesPrompt(req PageRequest) string {
	var sb strings.Builder
	sb.WriteString("Role: Expert Educator & Exam Coach. Task: Write study pages for one course subsection.\n")
	sb.WriteString(mathInstruction)

	sb.WriteString("\n==================================================================\n")
	sb.WriteString("### CONTEXT\n")
	sb.WriteString("==================================================================\n")
	fmt.Fprintf(&sb, "- Subsection: %s\n", req.Title)
	if path := strings.TrimSpace(req.HierarchyPath); path != "" && path != req.Title {
		fmt.Fprintf(&sb, "- Location in module: %s\n", path)
	}
	fmt.Fprintf(&sb, "- Module: %s\n", req.ModuleContext)
	fmt.Fprintf(&sb, "- Exam / subject: %s\n", req.ExamType)
	fmt.Fprintf(&sb, "- Hierarchy level: %d\n", req.Level)

	sb.WriteString("\n==================================================================\n")
	sb.WriteString("### PAGE OUTLINE\n")
	sb.WriteString("==================================================================\n")
	for i, title := range req.PageTitles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
	}

	sb.WriteString("\n**INSTRUCTION**:\n")
	fmt.Fprintf(&sb, "Return exactly %d pages, one per outline entry, in the same order and with the same titles.\n", len(req.PageTitles))
	sb.WriteString("Each page body is markdown (250-400 words) with headings, short paragraphs and worked examples where relevant.\n")
	sb.WriteString("Respond with a JSON array only, no prose and no code fences:\n")
	sb.WriteString(`[{"pageNumber": 1, "pageTitle": "...", "content": "...", "keyTakeaway": "..."}]`)
	sb.WriteString("\n")
	return sb.String()
}
