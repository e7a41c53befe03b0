package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/zombor/finsight/internal/ocr"
)

// Ollama is an OCR worker backed by a local Ollama vision model
type Ollama struct {
	baseURL    string
	model      string
	cfg        ocr.Config
	prompt     string
	client     *http.Client
	attempts   uint
	retryDelay time.Duration
}

// NewOllamaLoader returns a loader that checks the model is pulled and loads
// it into memory.
// Recommended models for receipt transcription:
//   - llava:1.6 (best balance of accuracy and speed)
//   - qwen2-vl:7b (good OCR capabilities)
//   - llava-phi3 (smaller, faster, but less accurate)
func NewOllamaLoader(baseURL string, modelName string) ocr.Loader {
	return func(ctx context.Context, cfg ocr.Config) (ocr.Worker, error) {
		o := newOllama(baseURL, modelName, cfg)
		if err := o.load(ctx); err != nil {
			return nil, err
		}
		return o, nil
	}
}

func newOllama(baseURL string, modelName string, cfg ocr.Config) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		cfg:     cfg,
		prompt:  transcriptionPrompt(cfg),
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow
		},
		attempts:   3,
		retryDelay: 2 * time.Second,
	}
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaShowRequest struct {
	Model string `json:"model"`
}

// ollamaGenerateRequest without a prompt only loads or unloads the model
type ollamaGenerateRequest struct {
	Model     string `json:"model"`
	KeepAlive any    `json:"keep_alive"`
}

// statusError is a non-200 response from Ollama
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama API error (status %d): %s", e.code, e.body)
}

// retryable reports whether a failed call is worth repeating
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// post sends a JSON request, retrying transport errors and 5xx responses
func (o *Ollama) post(ctx context.Context, path string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := o.baseURL + path
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := o.client.Do(req)
			if err != nil {
				return fmt.Errorf("calling ollama API: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return &statusError{code: resp.StatusCode, body: string(b)}
			}
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		},
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying ollama request", "path", path, "attempt", n+1, "error", err)
		}),
		retry.Attempts(o.attempts),
		retry.Delay(o.retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// load checks the model exists and asks Ollama to keep it in memory
func (o *Ollama) load(ctx context.Context) error {
	if err := o.post(ctx, "/api/show", ollamaShowRequest{Model: o.model}, nil); err != nil {
		return fmt.Errorf("checking ollama model %s: %w", o.model, err)
	}
	if err := o.post(ctx, "/api/generate", ollamaGenerateRequest{Model: o.model, KeepAlive: "30m"}, nil); err != nil {
		return fmt.Errorf("loading ollama model %s: %w", o.model, err)
	}
	return nil
}

// Recognize transcribes a receipt image
func (o *Ollama) Recognize(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading receipts and invoices. You must carefully read all text in images and copy it exactly.",
			},
			{
				Role:    "user",
				Content: o.prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
		Options: map[string]any{"temperature": 0},
	}

	var chatResp ollamaChatResponse
	if err := o.post(ctx, "/api/chat", reqBody, &chatResp); err != nil {
		return "", err
	}

	return cleanTranscript(chatResp.Message.Content, o.cfg.Whitelist)
}

// Terminate unloads the model from Ollama's memory
func (o *Ollama) Terminate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.post(ctx, "/api/generate", ollamaGenerateRequest{Model: o.model, KeepAlive: 0}, nil); err != nil {
		return fmt.Errorf("unloading ollama model %s: %w", o.model, err)
	}
	return nil
}
