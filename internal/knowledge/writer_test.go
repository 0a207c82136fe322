package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoPagesJSON = `[{"pageNumber": 1, "pageTitle": "Intro", "content": "Ratios compare $a$ and $b$.", "keyTakeaway": "Compare"},
{"pageNumber": 7, "pageTitle": "Traps", "content": "Watch the units.", "keyTakeaway": "Units"}]`

func TestParsePagesJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "bare array", input: twoPagesJSON},
		{name: "json fence", input: "```json\n" + twoPagesJSON + "\n```"},
		{name: "wrapped object", input: `{"pages": ` + twoPagesJSON + `}`},
		{name: "leading chatter", input: "Here you go:\n" + twoPagesJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := parsePagesJSON(tt.input)
			require.NoError(t, err)
			require.Len(t, pages, 2)
			assert.Equal(t, 1, pages[0].PageNumber)
			assert.Equal(t, 2, pages[1].PageNumber, "page numbers are renumbered")
			assert.Equal(t, "Traps", pages[1].PageTitle)
		})
	}
}

func TestParsePagesJSON_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "not json", input: "I cannot help with that."},
		{name: "empty array", input: "[]"},
		{name: "missing content", input: `[{"pageTitle": "Intro"}]`},
		{name: "object without pages", input: `{"items": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePagesJSON(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestOpenAIWriter_WritePages(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		gotPrompt = req.Messages[0].Content

		resp := openAIChatResponse{Choices: []struct {
			Message openAIChatMessage `json:"message"`
		}{{Message: openAIChatMessage{Role: "assistant", Content: twoPagesJSON}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	writer := NewOpenAIWriter("test-key", "gpt-test", srv.URL, 0)
	pages, err := writer.WritePages(context.Background(), PageRequest{
		Title:         "Ratios",
		HierarchyPath: "Arithmetic > Ratios",
		ModuleContext: "Arithmetic",
		ExamType:      "CAT",
		Level:         4,
		PageTitles:    []string{"Intro", "Traps"},
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	assert.Contains(t, gotPrompt, "Subsection: Ratios")
	assert.Contains(t, gotPrompt, "Location in module: Arithmetic > Ratios")
	assert.Contains(t, gotPrompt, "Return exactly 2 pages")
}

func TestOpenAIWriter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	writer := NewOpenAIWriter("k", "m", srv.URL+"/v1", 0)
	_, err := writer.WritePages(context.Background(), PageRequest{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIWriter_RequiresKey(t *testing.T) {
	writer := NewOpenAIWriter("", "m", "", 0)
	_, err := writer.WritePages(context.Background(), PageRequest{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestOllamaWriter_WritePages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: twoPagesJSON, Done: true})
	}))
	defer srv.Close()

	writer := NewOllamaWriter("llama3", srv.URL, 0)
	pages, err := writer.WritePages(context.Background(), PageRequest{Title: "Ratios"})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestNewPageWriter(t *testing.T) {
	ctx := context.Background()

	w, err := NewPageWriter(ctx, WriterOptions{Provider: "OpenAI", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIWriter{}, w)

	w, err = NewPageWriter(ctx, WriterOptions{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaWriter{}, w)

	_, err = NewPageWriter(ctx, WriterOptions{Provider: "gemini"})
	require.Error(t, err)

	_, err = NewPageWriter(ctx, WriterOptions{Provider: "bard"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}

func TestPromptBuilder_ListsOutline(t *testing.T) {
	pb := &PromptBuilder{}
	prompt := pb.BuildPagesPrompt(PageRequest{Title: "Ratios", PageTitles: []string{"A", "B", "C"}})
	assert.Contains(t, prompt, "1. A\n2. B\n3. C\n")
	assert.NotContains(t, prompt, "Location in module")
}
