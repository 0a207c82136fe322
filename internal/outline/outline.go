// Package outline folds the heading lines of a module's markdown into a
// nested outline. Levels 1 and 2 are module/document titles and are not part
// of the outline.
package outline

import (
	"bufio"
	"strings"

	"coursegen/internal/course"
)

// MinLevel is the shallowest heading level that takes part in the outline.
const MinLevel = 3

// Heading is a single heading occurrence in document order.
type Heading struct {
	Level int
	Text  string
	Raw   string
	Line  int
}

// Node is a heading together with its nested sub-headings.
// Children always have a strictly greater Level than their parent.
type Node struct {
	Level    int
	Text     string
	Raw      string
	Children []*Node
}

// Entry is a node visited during Flatten with its breadcrumb.
type Entry struct {
	Node *Node
	Path []string
}

// PathString returns the breadcrumb joined with " > ".
func (e Entry) PathString() string {
	return course.JoinPath(e.Path)
}

// Parse extracts level>=3 headings from markdown and folds them into a tree.
func Parse(markdown string) []*Node {
	return BuildTree(ExtractHeadings(markdown))
}

// ExtractHeadings scans markdown line by line and returns every heading of
// level >= MinLevel. Headings inside fenced code blocks and heading markers
// without text are skipped.
func ExtractHeadings(markdown string) []Heading {
	var headings []Heading
	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inFence := false
	fenceMarker := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if marker := fenceOf(trimmed); marker != "" {
			if !inFence {
				inFence = true
				fenceMarker = marker
			} else if strings.HasPrefix(trimmed, fenceMarker) {
				inFence = false
				fenceMarker = ""
			}
			continue
		}
		if inFence {
			continue
		}

		level, text, ok := parseHeadingLine(trimmed)
		if !ok || level < MinLevel {
			continue
		}
		headings = append(headings, Heading{Level: level, Text: text, Raw: line, Line: lineNo})
	}
	return headings
}

// BuildTree folds a flat heading list into a forest using an explicit stack
// of open nodes: scopes at or below the current depth are closed before the
// heading is attached to the remaining top (or becomes a root).
func BuildTree(flat []Heading) []*Node {
	var roots []*Node
	var stack []*Node

	for _, h := range flat {
		node := &Node{Level: h.Level, Text: h.Text, Raw: h.Raw}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
		stack = append(stack, node)
	}
	return roots
}

// Walk visits every node depth-first in document order. path includes the
// node's own title as its last element.
func Walk(roots []*Node, fn func(n *Node, path []string)) {
	var visit func(n *Node, parents []string)
	visit = func(n *Node, parents []string) {
		path := append(append([]string(nil), parents...), n.Text)
		fn(n, path)
		for _, c := range n.Children {
			visit(c, path)
		}
	}
	for _, r := range roots {
		visit(r, nil)
	}
}

// Flatten returns the depth-first sequence of nodes with their breadcrumbs.
func Flatten(roots []*Node) []Entry {
	var entries []Entry
	Walk(roots, func(n *Node, path []string) {
		entries = append(entries, Entry{Node: n, Path: path})
	})
	return entries
}

// Count returns the total number of nodes in the forest.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node, []string) { total++ })
	return total
}

func parseHeadingLine(trimmed string) (int, string, bool) {
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == len(trimmed) {
		// Only '#' characters.
		return 0, "", false
	}
	if trimmed[level] != ' ' && trimmed[level] != '\t' {
		return 0, "", false
	}

	text := strings.TrimSpace(trimmed[level:])
	// Optional closing sequence: "### Title ###"
	if stripped := strings.TrimRight(text, "#"); stripped != text {
		if stripped == "" || strings.HasSuffix(stripped, " ") || strings.HasSuffix(stripped, "\t") {
			text = strings.TrimSpace(stripped)
		}
	}
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

func fenceOf(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}
