package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsection_Validate(t *testing.T) {
	s := Subsection{Title: "Ratios", Pages: []Page{{PageNumber: 1}, {PageNumber: 2}}}
	require.NoError(t, s.Validate())

	s.Pages[1].PageNumber = 3
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ratios")
}

func TestRenumber(t *testing.T) {
	pages := Renumber([]Page{{PageNumber: 4}, {PageNumber: 0}, {PageNumber: 9}})
	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
	}
}

func TestModule_SubsectionByPath(t *testing.T) {
	m := &Module{Subsections: []Subsection{
		{Title: "A", HierarchyPath: "A"},
		{Title: "A1", HierarchyPath: JoinPath([]string{"A", "A1"})},
	}}

	s, ok := m.SubsectionByPath("A > A1")
	require.True(t, ok)
	assert.Equal(t, "A1", s.Title)

	_, ok = m.SubsectionByPath("B")
	assert.False(t, ok)
}

func TestModule_ModuleContext(t *testing.T) {
	m := &Module{Title: "Arithmetic"}
	assert.Equal(t, "Arithmetic", m.ModuleContext())

	m.Summary = "ratios and proportions"
	assert.Equal(t, "Arithmetic: ratios and proportions", m.ModuleContext())

	var nilModule *Module
	assert.Equal(t, "", nilModule.ModuleContext())
}
