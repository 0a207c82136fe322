package latex

import (
	"coursegen/internal/course"
)

// ModuleFixes summarises a SanitizeModule pass.
type ModuleFixes struct {
	Changes int            `json:"changes"`
	Fields  map[string]int `json:"fields,omitempty"`
}

// SanitizeModule rewrites every text field of m in place: module content and
// summary plus each page's title, content and key takeaway. Subsection
// titles and paths are left alone because paths are identity keys.
func SanitizeModule(m *course.Module) ModuleFixes {
	fixes := ModuleFixes{Fields: map[string]int{}}
	if m == nil {
		return fixes
	}

	fix := func(field string, s *string) {
		res := Sanitize(*s)
		if res.Changes == 0 {
			return
		}
		*s = res.Text
		fixes.Changes += res.Changes
		fixes.Fields[field] += res.Changes
	}

	fix("content", &m.Content)
	fix("summary", &m.Summary)
	for i := range m.Subsections {
		sub := &m.Subsections[i]
		for j := range sub.Pages {
			p := &sub.Pages[j]
			fix("pageTitle", &p.PageTitle)
			fix("content", &p.Content)
			fix("keyTakeaway", &p.KeyTakeaway)
		}
	}
	return fixes
}
