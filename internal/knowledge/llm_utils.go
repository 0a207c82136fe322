package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"coursegen/internal/course"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const pagesSchemaURL = "https://coursegen.dev/schemas/pages.json"

const pagesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["pageTitle", "content"],
    "properties": {
      "pageNumber": {"type": "integer", "minimum": 1},
      "pageTitle": {"type": "string", "minLength": 1},
      "content": {"type": "string", "minLength": 1},
      "keyTakeaway": {"type": "string"}
    }
  }
}`

var (
	pagesSchemaOnce     sync.Once
	pagesSchemaCompiled *jsonschema.Schema
	pagesSchemaErr      error
)

func cleanMarkdownOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```markdown") {
		text = strings.TrimPrefix(text, "```markdown")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func cleanJSONOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	} else {
		text = cleanMarkdownOutput(text)
	}
	text = strings.TrimSpace(text)
	// Drop any chatter around the outermost JSON value.
	if start := strings.IndexAny(text, "[{"); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndexAny(text, "]}"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}
	return text
}

func compiledPagesSchema() (*jsonschema.Schema, error) {
	pagesSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(pagesSchemaURL, strings.NewReader(pagesSchema)); err != nil {
			pagesSchemaErr = err
			return
		}
		pagesSchemaCompiled, pagesSchemaErr = compiler.Compile(pagesSchemaURL)
	})
	return pagesSchemaCompiled, pagesSchemaErr
}

// parsePagesJSON decodes an LLM response into pages. Both a bare array and an
// object wrapping it under "pages" are accepted.
func parsePagesJSON(raw string) ([]course.Page, error) {
	text := cleanJSONOutput(raw)
	if text == "" {
		return nil, fmt.Errorf("empty page response")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("page response is not valid JSON: %w", err)
	}
	if obj, ok := doc.(map[string]interface{}); ok {
		inner, ok := obj["pages"]
		if !ok {
			return nil, fmt.Errorf("page response object has no \"pages\" field")
		}
		doc = inner
	}

	schema, err := compiledPagesSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile page schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("page response schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var pages []course.Page
	if err := json.Unmarshal(normalized, &pages); err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Content = cleanMarkdownOutput(pages[i].Content)
	}
	return course.Renumber(pages), nil
}
