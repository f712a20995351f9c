package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const ollamaSystemPrompt = "You are an expert at reading sales sheets, invoices and sales notes and turning them into structured line items."

// Ollama implements the Extractor interface against a local Ollama server.
// Ollama vision models cannot listen, so ExtractAudio is unsupported.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Extractor instance.
// Vision models with decent OCR work best for photos, e.g. qwen2.5vl or llava:1.6.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "qwen2.5vl"
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // local vision models are slow
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ExtractImage reads line items from a photo or PDF
func (o *Ollama) ExtractImage(ctx context.Context, data []byte, contentType string) ([]LineItem, error) {
	pngData, err := toPNG(data, contentType)
	if err != nil {
		return nil, err
	}
	return o.chat(ctx, ollamaMessage{
		Role:    "user",
		Content: imagePrompt,
		Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
	})
}

// ExtractAudio always fails with ErrUnsupportedMedia
func (o *Ollama) ExtractAudio(_ context.Context, _ []byte, contentType string) ([]LineItem, error) {
	return nil, fmt.Errorf("%w: ollama cannot transcribe %s", ErrUnsupportedMedia, contentType)
}

// ExtractText reads line items from pasted text
func (o *Ollama) ExtractText(ctx context.Context, text string) ([]LineItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return o.chat(ctx, ollamaMessage{Role: "user", Content: textMessage(text)})
}

func (o *Ollama) chat(ctx context.Context, msg ollamaMessage) ([]LineItem, error) {
	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{Role: "system", Content: ollamaSystemPrompt},
			msg,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	items, err := parseItemsJSON(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama response: %w", err)
	}
	return items, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
