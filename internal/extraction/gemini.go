package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client:  client,
		model:   model,
		timeout: 60 * time.Second,
	}, nil
}

// ExtractImage reads line items from a photo or PDF
func (g *Gemini) ExtractImage(ctx context.Context, data []byte, contentType string) ([]LineItem, error) {
	pngData, err := toPNG(data, contentType)
	if err != nil {
		return nil, err
	}
	// genai.ImageData takes the format suffix, not the full MIME type
	return g.generate(ctx, genai.ImageData("png", pngData), genai.Text(imagePrompt))
}

// ExtractAudio reads line items from a dictation recording
func (g *Gemini) ExtractAudio(ctx context.Context, data []byte, contentType string) ([]LineItem, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	mimeType, err := audioMIME(contentType)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(audioPrompt))
}

// ExtractText reads line items from pasted text
func (g *Gemini) ExtractText(ctx context.Context, text string) ([]LineItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return g.generate(ctx, genai.Text(textMessage(text)))
}

func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) ([]LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	items, err := parseItemsJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing gemini response: %w", err)
	}
	return items, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
