package knowledge

import (
	"context"
	"fmt"

	"coursegen/internal/course"

	"google.golang.org/genai"
)

// GeminiWriter implements PageWriter using Gemini text generation.
type GeminiWriter struct {
	client        *genai.Client
	model         string
	promptBuilder *PromptBuilder
}

func NewGeminiWriter(ctx context.Context, apiKey string, modelName string) (*GeminiWriter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}
	return &GeminiWriter{
		client:        client,
		model:         modelName,
		promptBuilder: &PromptBuilder{},
	}, nil
}

func (w *GeminiWriter) WritePages(ctx context.Context, req PageRequest) ([]course.Page, error) {
	prompt := w.promptBuilder.BuildPagesPrompt(req)
	text, err := w.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parsePagesJSON(text)
}

func (w *GeminiWriter) generate(ctx context.Context, prompt string) (string, error) {
	contents := genai.Text(prompt)
	resp, err := w.client.Models.GenerateContent(ctx, w.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
