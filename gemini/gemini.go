// Package gemini implements the AI collaborators using Google Gemini.
package gemini

import (
	"context"

	"github.com/fwojciec/larder"
	"google.golang.org/genai"
)

// Model is the Gemini model used for ranking and selector proposals.
const Model = "gemini-2.5-flash"

// NewClient creates a Gemini API client for apiKey.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, larder.Errorf(larder.EINVALID, "gemini API key required")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// generate sends a single-turn prompt and returns the response text.
func generate(ctx context.Context, client *genai.Client, model, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if client == nil {
		return "", larder.Errorf(larder.EUNAVAILABLE, "gemini client not configured")
	}

	result, err := client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		config,
	)
	if err != nil {
		return "", larder.Errorf(larder.EUNAVAILABLE, "gemini: %v", err)
	}
	if result == nil {
		return "", larder.Errorf(larder.EINTERNAL, "gemini returned nil result")
	}
	return result.Text(), nil
}

func jsonConfig(system string, schema *genai.Schema) *genai.GenerateContentConfig {
	temp := float32(0.1)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}
