package pages

import "strings"

// PageTemplate is one row of the page plan. Body and KeyTakeaway may contain
// the placeholders {{title}}, {{module}} and {{exam}}.
type PageTemplate struct {
	Key          string
	Title        string
	Body         string
	KeyTakeaway  string
	TopLevelOnly bool
}

// Plan is the ordered page plan for one hierarchy tier.
type Plan struct {
	Tier  string
	Pages []PageTemplate
}

// TopLevel is the shallowest outline level; it receives the full plan.
const TopLevel = 3

var pageTemplates = []PageTemplate{
	{
		Key:   "introduction",
		Title: "Introduction & Foundation",
		Body: `## {{title}}: Introduction & Foundation

**{{title}}** is part of *{{module}}* and appears regularly in {{exam}} papers.
This page sets up the vocabulary and the mental model you will rely on for the rest of the topic.

### What you will learn
- The basic definitions behind {{title}}
- Where {{title}} fits within {{module}}
- Why {{exam}} examiners keep returning to it

### Starting point
Before working through problems, make sure you can state each definition in your own words
and recognise the common notation used for {{title}}.`,
		KeyTakeaway: "{{title}} builds on a small set of definitions; learn them precisely before moving on.",
	},
	{
		Key:   "core-theory-1",
		Title: "Core Concepts & Theory – Part 1",
		Body: `## {{title}}: Core Concepts (Part 1)

This page covers the first half of the theory behind **{{title}}**.

### Fundamental principles
1. Identify the quantities involved and how they are related.
2. Express the relationship in a clean, general form.
3. Check the relationship against a simple worked example.

### Worked illustration
Take a small example from {{module}} and trace each step explicitly.
Writing down every intermediate result keeps errors visible.`,
		KeyTakeaway: "Master the fundamental principles of {{title}} on simple cases first.",
	},
	{
		Key:   "core-theory-2",
		Title: "Core Concepts & Theory – Part 2",
		Body: `## {{title}}: Core Concepts (Part 2)

Building on Part 1, this page extends **{{title}}** to the harder variants seen in {{exam}}.

### Extensions
- Combining {{title}} with related ideas from {{module}}
- Handling special and boundary cases
- Recognising when a problem is really a disguised {{title}} question

### Connecting ideas
Summarise Part 1 and Part 2 together in a single diagram or table of relationships.`,
		KeyTakeaway: "Extend {{title}} carefully: most hard questions are combinations of simple rules.",
	},
	{
		Key:   "formulas",
		Title: "Formulas & Key Relationships",
		Body: `## {{title}}: Formulas & Key Relationships

Collect every formula used in **{{title}}** in one place.

| Relationship | When to use it |
|---|---|
| Definition form | Direct substitution problems |
| Rearranged form | Solving for an unknown |
| Combined form | Multi-step {{exam}} questions |

### Memorisation tips
Derive each formula once from the definitions; a derived formula is easier to recall under exam pressure.`,
		KeyTakeaway: "Know each {{title}} formula and the situation that calls for it.",
		TopLevelOnly: true,
	},
	{
		Key:   "applications",
		Title: "Applications & Problem Solving",
		Body: `## {{title}}: Applications & Problem Solving

Apply **{{title}}** to realistic problems drawn from {{module}}.

### Problem-solving framework
1. Read the question and list the given data.
2. Decide which {{title}} relationship applies.
3. Solve step by step, keeping units and signs consistent.
4. Sanity-check the answer against the question.

### Practice
Attempt three problems of increasing difficulty before checking any solutions.`,
		KeyTakeaway: "A fixed problem-solving routine makes {{title}} questions predictable.",
		TopLevelOnly: true,
	},
	{
		Key:   "exam-strategies",
		Title: "Exam Strategies & Shortcuts",
		Body: `## {{title}}: Exam Strategies & Shortcuts

Strategies for answering **{{title}}** questions quickly and accurately in {{exam}}.

### Time management
- Spot the question type within the first reading.
- Use estimation to eliminate impossible options.
- Leave lengthy calculations for a second pass.

### Shortcuts
Memorise the patterns that appear repeatedly and the quick checks that confirm an answer.`,
		KeyTakeaway: "Speed on {{title}} comes from pattern recognition, not from rushing.",
	},
	{
		Key:   "common-traps",
		Title: "Common Traps & Mistakes",
		Body: `## {{title}}: Common Traps & Mistakes

The errors candidates make most often with **{{title}}** in {{exam}}.

### Frequent mistakes
- Misreading what the question actually asks for
- Mixing up similar-looking definitions
- Dropping a sign, unit or condition mid-solution

### How to avoid them
Re-read the final line of the question before answering and verify the result independently.`,
		KeyTakeaway: "Most lost marks on {{title}} are avoidable: check the question and the units.",
	},
	{
		Key:   "key-takeaways",
		Title: "Key Takeaways & Exam Readiness",
		Body: `## {{title}}: Key Takeaways & Exam Readiness

A final checklist for **{{title}}** within {{module}}.

### Checklist
- [ ] I can state every definition from memory
- [ ] I can solve standard problems without notes
- [ ] I know the traps examiners set for {{title}}

### Next steps
Revisit any unchecked item, then attempt a timed set of {{exam}} questions on {{title}}.`,
		KeyTakeaway: "You are exam-ready on {{title}} when every checklist item is ticked.",
	},
}

// PlanForLevel returns the page plan for an outline level. Level TopLevel
// receives every template; deeper levels skip the top-level-only pages.
func PlanForLevel(level int) Plan {
	if level <= TopLevel {
		return Plan{Tier: "top-level", Pages: append([]PageTemplate(nil), pageTemplates...)}
	}
	reduced := make([]PageTemplate, 0, len(pageTemplates))
	for _, t := range pageTemplates {
		if t.TopLevelOnly {
			continue
		}
		reduced = append(reduced, t)
	}
	return Plan{Tier: "nested", Pages: reduced}
}

// Titles returns the page titles in plan order.
func (p Plan) Titles() []string {
	titles := make([]string, len(p.Pages))
	for i, t := range p.Pages {
		titles[i] = t.Title
	}
	return titles
}

func interpolate(tmpl string, in Input) string {
	r := strings.NewReplacer(
		"{{title}}", in.Title,
		"{{module}}", in.ModuleContext,
		"{{exam}}", in.ExamType,
	)
	return r.Replace(tmpl)
}
