package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coursegen/internal/course"
)

// OllamaWriter implements PageWriter against a local Ollama server.
type OllamaWriter struct {
	client        *http.Client
	model         string
	endpoint      string
	promptBuilder *PromptBuilder
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaWriter(model, baseURL string, timeout time.Duration) *OllamaWriter {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/generate") {
		url += "/api/generate"
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &OllamaWriter{
		client: &http.Client{
			Timeout: timeout,
		},
		model:         model,
		endpoint:      url,
		promptBuilder: &PromptBuilder{},
	}
}

func (w *OllamaWriter) WritePages(ctx context.Context, req PageRequest) ([]course.Page, error) {
	if strings.TrimSpace(w.model) == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  w.model,
		Prompt: w.promptBuilder.BuildPagesPrompt(req),
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama generate request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return parsePagesJSON(parsed.Response)
}
