// Package openai talks to any OpenAI-compatible /chat/completions endpoint.
// OpenAI itself and Perplexity are both served by it.
package openai

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
	Temperature      float32 `json:"temperature,omitempty"`
	TopP             float32 `json:"top_p,omitempty"`
	MaxTokens        int32   `json:"max_tokens,omitempty"`
	FrequencyPenalty float32 `json:"frequency_penalty,omitempty"`
}

type Client struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	httpClient glucoplate.HTTPClient
	options    options

	// jsonMode requests response_format json_object and the {"foods"} contract.
	jsonMode bool
	parser   recognition.Parser
	format   string
}

type ClientOpts struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	HTTPClient  glucoplate.HTTPClient
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

func (o ClientOpts) validate() error {
	switch {
	case o.APIKey == "":
		return fmt.Errorf("%s: api key is required", o.Name)
	case o.BaseURL == "":
		return fmt.Errorf("%s: base url is required", o.Name)
	case o.Model == "":
		return fmt.Errorf("%s: model is required", o.Name)
	}
	return nil
}

func newClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{
		name:       opts.Name,
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: opts.HTTPClient,
		options: options{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			MaxTokens:   opts.MaxTokens,
		},
	}
}

// NewOpenAI builds a client that uses JSON mode and expects {"foods": [...]}.
func NewOpenAI(opts ClientOpts) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "openai"
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := newClient(opts)
	c.jsonMode = true
	c.parser = recognition.FoodsObjectParser{}
	c.format = provider.FoodsObjectFormat
	return c, nil
}

// NewPerplexity builds a client that expects a bare JSON array and damps
// repetition the way the Perplexity API recommends.
func NewPerplexity(opts ClientOpts) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "perplexity"
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := newClient(opts)
	c.options.FrequencyPenalty = 1
	c.parser = recognition.ArrayParser{}
	c.format = provider.ArrayFormat
	return c, nil
}

func (c *Client) Name() string { return c.name }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireRequest struct {
	Model          string          `json:"model"`
	Messages       []wireMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	options
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Recognize sends the image as a data URI and parses the food list out of the reply.
func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	msgs := []wireMessage{
		{Role: "system", Content: provider.RecognitionPrompt(req.Language, c.format)},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: provider.RecognitionUserText},
			{Type: "image_url", ImageURL: &imageURL{URL: req.Image.DataURI()}},
		}},
	}

	text, err := c.complete(ctx, msgs, c.jsonMode)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Parse(text)
	if err != nil {
		slog.Warn("PROVIDER_OPENAI: Unparseable recognition reply", "provider", c.name, "content_length", len(text))
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return items, nil
}

// Answer returns the model's reply to a chat message.
func (c *Client) Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error) {
	msgs := []wireMessage{
		{Role: "system", Content: provider.ChatPrompt(lang)},
		{Role: "user", Content: message},
	}
	return c.complete(ctx, msgs, false)
}

func (c *Client) complete(ctx context.Context, msgs []wireMessage, jsonMode bool) (string, error) {
	slog.Info("PROVIDER_OPENAI: Invoked", "provider", c.name, "model", c.model, "messages_len", len(msgs))

	reqBody := wireRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
		options:  c.options,
	}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &glucoplate.ProviderStatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.name, recognition.ErrMalformedResponse, err)
	}
	if len(wr.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", c.name, recognition.ErrMalformedResponse)
	}

	content := strings.TrimSpace(wr.Choices[0].Message.Content)
	slog.Info("PROVIDER_OPENAI: Response received",
		"provider", c.name,
		"finish_reason", wr.Choices[0].FinishReason,
		"content_length", len(content),
	)
	return content, nil
}
