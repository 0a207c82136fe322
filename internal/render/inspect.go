package render

import (
	"strings"

	"golang.org/x/net/html"
)

// Summary describes the math content of rendered markup.
type Summary struct {
	MathElements int `json:"mathElements"`
	KatexSpans   int `json:"katexSpans"`
	Errors       int `json:"errors"`
}

// Inspect parses rendered HTML, MathML foreign elements included, and
// counts its math nodes.
func Inspect(fragment string) Summary {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return Summary{}
	}
	var s Summary
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "math":
				s.MathElements++
			case "merror":
				s.Errors++
			case "span":
				if hasClass(node, "math") {
					s.KatexSpans++
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return s
}

func hasClass(node *html.Node, class string) bool {
	for _, a := range node.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
