package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SiblingsAndChild(t *testing.T) {
	roots := Parse("### A\n#### A1\n### B")
	require.Len(t, roots, 2)

	assert.Equal(t, "A", roots[0].Text)
	assert.Equal(t, "B", roots[1].Text)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "A1", roots[0].Children[0].Text)
	assert.Empty(t, roots[1].Children)
}

func TestExtractHeadings_IgnoresShallowAndMalformed(t *testing.T) {
	md := `# Course
## Module 1
###
### Ratios ###
Some body text.
#### Direct Proportion
####NoSpace
#####
` + "```python\n### not a heading\n```\n" + `### Percentages`

	headings := ExtractHeadings(md)
	require.Len(t, headings, 3)
	assert.Equal(t, Heading{Level: 3, Text: "Ratios", Raw: "### Ratios ###", Line: 4}, headings[0])
	assert.Equal(t, 4, headings[1].Level)
	assert.Equal(t, "Direct Proportion", headings[1].Text)
	assert.Equal(t, "Percentages", headings[2].Text)
}

func TestBuildTree_DeepJumpAndReturn(t *testing.T) {
	flat := []Heading{
		{Level: 3, Text: "A"},
		{Level: 5, Text: "A-deep"},
		{Level: 4, Text: "A2"},
		{Level: 4, Text: "A3"},
		{Level: 3, Text: "B"},
		{Level: 6, Text: "B-deep"},
	}
	roots := BuildTree(flat)
	require.Len(t, roots, 2)

	a := roots[0]
	require.Len(t, a.Children, 3)
	assert.Equal(t, []string{"A-deep", "A2", "A3"}, []string{a.Children[0].Text, a.Children[1].Text, a.Children[2].Text})
	require.Len(t, roots[1].Children, 1)
	assert.Equal(t, "B-deep", roots[1].Children[0].Text)
}

func TestBuildTree_HeadingsWithoutBodyBecomeNodes(t *testing.T) {
	roots := Parse("### Empty One\n### Empty Two\n")
	require.Len(t, roots, 2)
	assert.Empty(t, roots[0].Children)
}

func TestBuildTree_Invariants(t *testing.T) {
	md := `### Algebra
#### Linear Equations
##### One Variable
##### Two Variables
#### Quadratics
### Geometry
##### Circles
#### Triangles
### Statistics`

	flat := ExtractHeadings(md)
	roots := BuildTree(flat)

	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.Children {
			assert.Greater(t, c.Level, n.Level, "child %q of %q", c.Text, n.Text)
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}

	var order []string
	Walk(roots, func(n *Node, _ []string) { order = append(order, n.Text) })
	want := make([]string, 0, len(flat))
	for _, h := range flat {
		want = append(want, h.Text)
	}
	assert.Equal(t, want, order)
	assert.Equal(t, len(flat), Count(roots))
}

func TestFlatten_Breadcrumbs(t *testing.T) {
	entries := Flatten(Parse("### A\n#### A1\n##### A1a\n### B"))
	require.Len(t, entries, 4)

	assert.Equal(t, "A", entries[0].PathString())
	assert.Equal(t, "A > A1", entries[1].PathString())
	assert.Equal(t, "A > A1 > A1a", entries[2].PathString())
	assert.Equal(t, "B", entries[3].PathString())
}

func TestParse_EmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("# Title\n\nno outline here"))
}
