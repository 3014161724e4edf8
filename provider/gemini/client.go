// Package gemini adapts Google's Gemini models to the recognition and chat
// provider interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"glucoplate"
	"glucoplate/provider"
	"glucoplate/recognition"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	defaultModel       = "gemini-1.5-flash"
	defaultMaxTokens   = 500
	defaultTemperature = 0.2
	defaultTopP        = 0.95
)

// generator is the slice of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Options struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	vision generator
	text   generator
	closer func() error
	parser recognition.Parser
}

// NewClient dials Gemini with an API key. Close releases the connection.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	vision := configure(gc.GenerativeModel(opts.Model), opts)
	vision.ResponseMIMEType = "application/json"
	text := configure(gc.GenerativeModel(opts.Model), opts)

	return &Client{vision: vision, text: text, closer: gc.Close, parser: recognition.ArrayParser{}}, nil
}

func configure(m *genai.GenerativeModel, opts Options) *genai.GenerativeModel {
	m.SetTemperature(opts.Temperature)
	m.SetTopP(opts.TopP)
	m.SetMaxOutputTokens(opts.MaxTokens)
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}
	return m
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	slog.Info("PROVIDER_GEMINI: Recognize invoked", "image_bytes", len(req.Image.Data), "mime_type", req.Image.MIMEType)

	resp, err := c.vision.GenerateContent(ctx,
		genai.Text(provider.RecognitionPrompt(req.Language, provider.ArrayFormat)),
		genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
	)
	if err != nil {
		return nil, wrapError(err)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return items, nil
}

func (c *Client) Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error) {
	slog.Info("PROVIDER_GEMINI: Answer invoked", "message_length", len(message), "language", lang)

	resp, err := c.text.GenerateContent(ctx, genai.Text(provider.ChatPrompt(lang)+"\n\n"+message))
	if err != nil {
		return "", wrapError(err)
	}
	return textFromResponse(resp)
}

// textFromResponse joins the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w: no candidates", recognition.ErrMalformedResponse)
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	if b.Len() == 0 {
		if cand.FinishReason == genai.FinishReasonSafety {
			return "", fmt.Errorf("gemini: %w: blocked by safety filters", recognition.ErrMalformedResponse)
		}
		return "", fmt.Errorf("gemini: %w: empty response", recognition.ErrMalformedResponse)
	}
	return strings.TrimSpace(b.String()), nil
}

// wrapError surfaces HTTP status codes so the recognizer can decide on retries.
func wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &glucoplate.ProviderStatusError{Provider: "gemini", StatusCode: gerr.Code, Body: gerr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}
