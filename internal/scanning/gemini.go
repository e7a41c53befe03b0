package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/finsight/internal/ocr"
)

// Gemini is an OCR worker backed by Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    ocr.Config
	prompt string
}

// NewGeminiLoader returns a loader that connects to Gemini and checks the
// model is available
func NewGeminiLoader(apiKey string, modelName string) ocr.Loader {
	return func(ctx context.Context, cfg ocr.Config) (ocr.Worker, error) {
		return NewGemini(ctx, apiKey, modelName, cfg)
	}
}

// NewGemini creates a new Gemini worker
func NewGemini(ctx context.Context, apiKey string, modelName string, cfg ocr.Config) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	if _, err := model.Info(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("loading gemini model %s: %w", modelName, err)
	}

	return &Gemini{
		client: client,
		model:  model,
		cfg:    cfg,
		prompt: transcriptionPrompt(cfg),
	}, nil
}

// Recognize transcribes a receipt image
func (g *Gemini) Recognize(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects just the format suffix; everything is PNG after toPNG
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(g.prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return cleanTranscript(responseText.String(), g.cfg.Whitelist)
}

// Terminate closes the Gemini client
func (g *Gemini) Terminate() error {
	return g.client.Close()
}
