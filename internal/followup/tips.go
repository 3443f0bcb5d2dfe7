package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TipSource produces a short wellness tip to append to a follow-up message.
// Implementations must be safe to skip: callers fall back to no tip on error.
type TipSource interface {
	WellnessTip(ctx context.Context, visitReason string) (string, error)
}

// GeminiTipSource generates wellness tips with Google's Gemini API.
type GeminiTipSource struct {
	client  *genai.Client
	modelID string
}

// NewGeminiTipSource creates a Gemini-backed tip source.
func NewGeminiTipSource(ctx context.Context, apiKey, modelID string) (*GeminiTipSource, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("followup: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("followup: create gemini client: %w", err)
	}
	return &GeminiTipSource{client: client, modelID: modelID}, nil
}

// WellnessTip asks the model for one short, general wellness tip related to
// the visit reason. The output is a single sentence suitable for SMS.
func (g *GeminiTipSource) WellnessTip(ctx context.Context, visitReason string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(60)
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		"You write one short, friendly, general wellness tip for a patient recovering after a medical visit. " +
			"One sentence, no medical advice, no diagnosis, no medication names.",
	))

	prompt := "Write a wellness tip for a patient who recently visited a doctor."
	if strings.TrimSpace(visitReason) != "" {
		prompt = fmt.Sprintf("Write a wellness tip for a patient who recently visited a doctor about: %s", visitReason)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("followup: gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("followup: gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	tip := strings.TrimSpace(b.String())
	if tip == "" {
		return "", errors.New("followup: gemini returned empty tip")
	}
	return tip, nil
}

// Close releases the underlying API client.
func (g *GeminiTipSource) Close() error {
	return g.client.Close()
}
