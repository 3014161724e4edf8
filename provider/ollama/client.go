// Package ollama runs recognition and chat against a local Ollama server,
// typically with a vision model such as llava.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"glucoplate"
	"glucoplate/provider"
	"glucoplate/recognition"
)

type options struct {
	Temperature   float32 `json:"temperature,omitempty"`
	TopP          float32 `json:"top_p,omitempty"`
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int32   `json:"num_predict,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient glucoplate.HTTPClient
	options    options
	parser     recognition.Parser
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   glucoplate.HTTPClient
	MaxTokens    int32
	Temperature  float32
	TopP         float32
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseEndpoint == "" {
		return nil, fmt.Errorf("ollama: base endpoint is required")
	}
	if opts.ModelID == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        4096,
			NumPredict:    opts.MaxTokens,
		},
		parser: recognition.ArrayParser{},
	}, nil
}

func (c *Client) Name() string { return "ollama" }

type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message    wireMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
}

// Recognize attaches the raw image to the user message and expects a bare
// JSON array back.
func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	msgs := []wireMessage{
		{Role: "system", Content: provider.RecognitionPrompt(req.Language, provider.ArrayFormat)},
		{Role: "user", Content: provider.RecognitionUserText, Images: []string{req.Image.Base64()}},
	}

	text, err := c.chat(ctx, msgs)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Parse(text)
	if err != nil {
		slog.Warn("PROVIDER_OLLAMA: Unparseable recognition reply", "model", c.model, "content_length", len(text))
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return items, nil
}

func (c *Client) Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error) {
	return c.chat(ctx, []wireMessage{
		{Role: "system", Content: provider.ChatPrompt(lang)},
		{Role: "user", Content: message},
	})
}

func (c *Client) chat(ctx context.Context, msgs []wireMessage) (string, error) {
	slog.Info("PROVIDER_OLLAMA: Invoked", "model", c.model, "messages_len", len(msgs))

	reqBytes, err := json.Marshal(wireRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
		Options:  c.options,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &glucoplate.ProviderStatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("ollama: %w: %v", recognition.ErrMalformedResponse, err)
	}

	content := strings.TrimSpace(wr.Message.Content)
	slog.Info("PROVIDER_OLLAMA: Response received", "done_reason", wr.DoneReason, "content_length", len(content))
	return content, nil
}
