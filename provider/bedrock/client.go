// Package bedrock runs recognition and chat through the Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"glucoplate"
	"glucoplate/provider"
	"glucoplate/recognition"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// defaultModelID is an inference profile ID, not a foundation model ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A recognition reply is a short JSON object and a chat reply is at most
	// three sentences.
	defaultMaxTokens = 500

	defaultTemperature = 0.2

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	brc    bedrockRuntimeClient
	opts   LLMOptions
	parser recognition.Parser
}

func NewClient(brc bedrockRuntimeClient, opts LLMOptions) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
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
	return &Client{
		brc:    brc,
		opts:   opts,
		parser: recognition.FoodsObjectParser{},
	}
}

func (c *Client) Name() string { return "bedrock" }

func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	format, err := imageFormat(req.Image.MIMEType)
	if err != nil {
		return nil, err
	}

	msg := types.Message{
		Role: types.ConversationRoleUser,
		Content: []types.ContentBlock{
			&types.ContentBlockMemberImage{Value: types.ImageBlock{
				Format: format,
				Source: &types.ImageSourceMemberBytes{Value: req.Image.Data},
			}},
			&types.ContentBlockMemberText{Value: provider.RecognitionUserText},
		},
	}

	text, err := c.converse(ctx, provider.RecognitionPrompt(req.Language, provider.FoodsObjectFormat), msg)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", err)
	}
	return items, nil
}

func (c *Client) Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error) {
	msg := types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: message}},
	}
	return c.converse(ctx, provider.ChatPrompt(lang), msg)
}

func (c *Client) converse(ctx context.Context, system string, msg types.Message) (string, error) {
	slog.Info("PROVIDER_BEDROCK: Invoked", "model_id", c.opts.ModelID, "blocks", len(msg.Content))

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.opts.ModelID),
		System:   []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: []types.Message{msg},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}
	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("PROVIDER_BEDROCK: Converse failed", "error", err)
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			return "", &glucoplate.ProviderStatusError{Provider: "bedrock", StatusCode: re.HTTPStatusCode(), Body: re.Error()}
		}
		return "", fmt.Errorf("bedrock: %w", err)
	}

	if out.Usage != nil {
		slog.Info("PROVIDER_BEDROCK: Converse succeeded",
			"stop_reason", out.StopReason,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}

	switch out.StopReason {
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return "", fmt.Errorf("bedrock: %w: blocked by safety filters", recognition.ErrMalformedResponse)
	case types.StopReasonMaxTokens:
		slog.Warn("PROVIDER_BEDROCK: Model hit MaxTokens limit; reply may be truncated")
	}

	text := textFromOutput(out)
	if text == "" {
		return "", fmt.Errorf("bedrock: %w: empty response", recognition.ErrMalformedResponse)
	}
	return text, nil
}

// textFromOutput joins the assistant's text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func imageFormat(mimeType string) (types.ImageFormat, error) {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, nil
	case "image/png":
		return types.ImageFormatPng, nil
	case "image/gif":
		return types.ImageFormatGif, nil
	case "image/webp":
		return types.ImageFormatWebp, nil
	default:
		return "", fmt.Errorf("bedrock: %w: unsupported image type %q", recognition.ErrMalformedResponse, mimeType)
	}
}
