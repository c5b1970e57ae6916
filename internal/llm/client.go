package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical/pdf-transcriber/internal/config"
	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

// maxErrorBody caps how much of a failed response is copied into the error
const maxErrorBody = 4096

// Client sends page images to an OpenAI-compatible chat completions endpoint
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	prompt     string
	httpClient *http.Client
	onChunk    func(pageNumber int, chunk string)
	logger     *observability.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents one streamed completion chunk
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Delta        Delta  `json:"delta"`
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message delta in streaming response
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithChunkHandler registers a callback for text as it streams in
func WithChunkHandler(fn func(pageNumber int, chunk string)) Option {
	return func(c *Client) { c.onChunk = fn }
}

// WithLogger sets the client logger
func WithLogger(logger *observability.Logger) Option {
	return func(c *Client) { c.logger = logger.WithComponent("llm") }
}

// NewClient creates a new model client from the run configuration
func NewClient(cfg *config.Config, opts ...Option) *Client {
	model := cfg.ModelName
	if model == "" {
		model = config.DefaultModel
	}
	baseURL := cfg.LLM.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	prompt := cfg.LLM.Prompt
	if prompt == "" {
		prompt = config.DefaultPrompt
	}

	c := &Client{
		apiKey:     cfg.Credential,
		model:      model,
		baseURL:    baseURL,
		prompt:     prompt,
		httpClient: &http.Client{Timeout: cfg.LLM.Timeout},
		logger:     observability.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the inference target name
func (c *Client) Model() string {
	return c.model
}

// Extract sends one page image with the fixed instruction and returns the model's text
func (c *Client) Extract(ctx context.Context, image domain.PageImage) (string, error) {
	req, err := c.buildRequest(image.ImagePath)
	if err != nil {
		return "", domain.APIError("Failed to build request", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.APIError("Failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", domain.APIError("Failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	c.logger.Debug().
		Int("page", image.PageNumber).
		Str("model", c.model).
		Int("request_bytes", len(body)).
		Msg("Sending page to model")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.APIError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", domain.APIError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))), nil)
	}

	text, err := c.parseStream(resp.Body, image.PageNumber)
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Int("page", image.PageNumber).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Model response complete")

	return text, nil
}

// buildRequest constructs the API request with the image
func (c *Client) buildRequest(imagePath string) (*Request, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	imageURL := "data:" + mimeType(imagePath) + ";base64," + base64.StdEncoding.EncodeToString(imageData)

	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: c.prompt,
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL: imageURL,
				},
			},
		},
	}

	return &Request{
		Model:    c.model,
		Messages: []Message{msg},
		Stream:   true,
	}, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// parseStream collects the Server-Sent Events stream into one string
func (c *Client) parseStream(body io.Reader, pageNumber int) (string, error) {
	parser := NewStreamParser(body)

	var text strings.Builder
	err := parser.ParseAll(func(chunk string) {
		text.WriteString(chunk)
		if c.onChunk != nil {
			c.onChunk(pageNumber, chunk)
		}
	})
	if err != nil {
		return "", domain.APIError("Failed to parse stream", err)
	}
	return text.String(), nil
}
