// Package setup turns environment configuration into the providers, catalog
// and notifier the entry points run with.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"glucoplate"
	"glucoplate/catalog"
	"glucoplate/catalog/storage"
	"glucoplate/chat"
	"glucoplate/provider/bedrock"
	"glucoplate/provider/gemini"
	"glucoplate/provider/mock"
	"glucoplate/provider/ollama"
	"glucoplate/provider/openai"
	"glucoplate/provider/rekognition"
	"glucoplate/recognition"
	"glucoplate/slack"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWS loads the default AWS configuration once and shares it.
type AWS struct {
	once sync.Once
	cfg  aws.Config
	err  error
	load func(ctx context.Context) (aws.Config, error)
}

func NewAWS() *AWS {
	return &AWS{load: func(ctx context.Context) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	}}
}

func (a *AWS) Config(ctx context.Context) (aws.Config, error) {
	a.once.Do(func() {
		a.cfg, a.err = a.load(ctx)
		if a.err != nil {
			a.err = fmt.Errorf("failed to load AWS config: %w", a.err)
		}
	})
	return a.cfg, a.err
}

// Providers holds the configured backends in priority order.
type Providers struct {
	Recognition []recognition.Provider
	Chat        []chat.Provider
	closers     []func() error
}

// Close releases any long-lived provider connections.
func (p *Providers) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// provider is anything that can serve both roles. The vision-only
// Rekognition client is handled separately.
type provider interface {
	recognition.Provider
	chat.Provider
}

// BuildProviders creates the providers named in the recognition and chat
// lists. Names without credentials are skipped with a warning. When no
// recognition or chat backend is left, the mock provider takes over so the
// service still answers.
func BuildProviders(ctx context.Context, rc glucoplate.RecognitionConfig, cc glucoplate.ChatConfig, pc glucoplate.ProviderConfig, awsCfg *AWS) (*Providers, error) {
	out := &Providers{}
	built := make(map[string]provider)

	get := func(name string) (provider, error) {
		if p, ok := built[name]; ok {
			return p, nil
		}
		p, closer, err := newProvider(ctx, name, pc, awsCfg)
		if err != nil || p == nil {
			return nil, err
		}
		built[name] = p
		if closer != nil {
			out.closers = append(out.closers, closer)
		}
		return p, nil
	}

	for _, name := range normalizeNames(rc.Providers) {
		if name == "rekognition" {
			cfg, err := awsCfg.Config(ctx)
			if err != nil {
				slog.Warn("SETUP: Skipping rekognition", "error", err)
				continue
			}
			out.Recognition = append(out.Recognition, rekognition.NewClient(
				awsrekognition.NewFromConfig(cfg),
				rekognition.Options{MaxLabels: rc.RekognitionMaxLabels, MinConfidence: rc.RekognitionMinConfidence},
			))
			continue
		}

		p, err := get(name)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out.Recognition = append(out.Recognition, p)
		}
	}

	for _, name := range normalizeNames(cc.Providers) {
		if name == "knowledge" {
			out.Chat = append(out.Chat, chat.NewKnowledgeBase(chat.SeedQA))
			continue
		}
		p, err := get(name)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out.Chat = append(out.Chat, p)
		}
	}

	if len(out.Recognition) == 0 {
		slog.Warn("SETUP: No recognition provider configured; using mock")
		out.Recognition = append(out.Recognition, mock.NewClient())
	}
	if !hasAnswering(out.Chat) {
		slog.Warn("SETUP: No chat provider configured; using mock")
		out.Chat = append(out.Chat, mock.NewClient())
	}

	slog.Info("SETUP: Providers ready",
		"recognition", providerNames(out.Recognition),
		"chat", chatNames(out.Chat),
	)
	return out, nil
}

// newProvider returns a nil provider without error when the credentials for
// name are absent.
func newProvider(ctx context.Context, name string, pc glucoplate.ProviderConfig, awsCfg *AWS) (provider, func() error, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	switch name {
	case "mock":
		return mock.NewClient(), nil, nil

	case "openai":
		if pc.OpenAIAPIKey == "" {
			slog.Warn("SETUP: Skipping openai; OPENAI_API_KEY not set")
			return nil, nil, nil
		}
		c, err := openai.NewOpenAI(openai.ClientOpts{
			BaseURL:     pc.OpenAIBaseURL,
			APIKey:      pc.OpenAIAPIKey,
			Model:       pc.OpenAIModel,
			HTTPClient:  httpClient,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			TopP:        pc.TopP,
		})
		return c, nil, err

	case "perplexity":
		if pc.PerplexityAPIKey == "" {
			slog.Warn("SETUP: Skipping perplexity; PERPLEXITY_API_KEY not set")
			return nil, nil, nil
		}
		c, err := openai.NewPerplexity(openai.ClientOpts{
			BaseURL:     pc.PerplexityURL,
			APIKey:      pc.PerplexityAPIKey,
			Model:       pc.PerplexityModel,
			HTTPClient:  httpClient,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			TopP:        pc.TopP,
		})
		return c, nil, err

	case "gemini":
		if pc.GeminiAPIKey == "" {
			slog.Warn("SETUP: Skipping gemini; GEMINI_API_KEY not set")
			return nil, nil, nil
		}
		c, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:      pc.GeminiAPIKey,
			Model:       pc.GeminiModel,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			TopP:        pc.TopP,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	case "ollama":
		if pc.OllamaBaseURL == "" {
			slog.Warn("SETUP: Skipping ollama; OLLAMA_BASE_URL not set")
			return nil, nil, nil
		}
		c, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: pc.OllamaBaseURL,
			ModelID:      pc.OllamaModel,
			// Local vision models are slow on CPU.
			HTTPClient:  &http.Client{Timeout: 2 * time.Minute},
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			TopP:        pc.TopP,
		})
		return c, nil, err

	case "bedrock":
		cfg, err := awsCfg.Config(ctx)
		if err != nil {
			slog.Warn("SETUP: Skipping bedrock", "error", err)
			return nil, nil, nil
		}
		return bedrock.NewClient(bedrockruntime.NewFromConfig(cfg), bedrock.LLMOptions{
			ModelID:     pc.BedrockModelID,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			TopP:        pc.TopP,
		}), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q", name)
	}
}

func normalizeNames(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// hasAnswering reports whether any provider besides the knowledge base can answer.
func hasAnswering(ps []chat.Provider) bool {
	for _, p := range ps {
		if p.Name() != "knowledge" {
			return true
		}
	}
	return false
}

func providerNames(ps []recognition.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func chatNames(ps []chat.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

// LoadCatalog reads the catalog from S3 when a bucket is configured, then
// from a local file, and otherwise falls back to the embedded seed.
func LoadCatalog(ctx context.Context, cfg glucoplate.CatalogConfig, awsCfg *AWS) (*catalog.Catalog, error) {
	switch {
	case cfg.S3Bucket != "":
		ac, err := awsCfg.Config(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("SETUP: Loading catalog from S3", "bucket", cfg.S3Bucket, "key", cfg.S3Key)
		return catalog.Load(ctx, storage.NewS3Source(s3.NewFromConfig(ac), cfg.S3Bucket, cfg.S3Key))
	case cfg.Path != "":
		slog.Info("SETUP: Loading catalog from file", "path", cfg.Path)
		return catalog.Load(ctx, storage.NewFileSource(cfg.Path))
	default:
		slog.Info("SETUP: Loading embedded catalog")
		return catalog.Seed(ctx)
	}
}

// NewNotifier returns nil when no webhook is configured.
func NewNotifier(cfg glucoplate.NotifyConfig) glucoplate.Notifier {
	if cfg.SlackWebhookURL == "" {
		return nil
	}
	return slack.NewClient(cfg.SlackWebhookURL, cfg.SlackChannel, &http.Client{Timeout: 10 * time.Second})
}

// NewRecognitionLogger picks the run logger for a long-running process. A
// configured path gets one JSON line appended per run. The returned cleanup
// closes the file and is always safe to call.
func NewRecognitionLogger(cfg glucoplate.RecognitionConfig) (glucoplate.RecognitionLogger, func() error, error) {
	switch {
	case cfg.RunLogToStdout:
		return glucoplate.NewStdoutRecognitionLogger(), func() error { return nil }, nil
	case cfg.RunLogPath != "":
		logFile, err := openLogFile(cfg.RunLogPath, os.O_APPEND)
		if err != nil {
			return nil, func() error { return err }, err
		}
		return glucoplate.NewJSONLinesRecognitionLogger(logFile), logFile.Close, nil
	default:
		return glucoplate.NewNoOpRecognitionLogger(), func() error { return nil }, nil
	}
}

// NewFileRecognitionLogger buffers a single session's runs and writes them
// to path as one document when cleanup is called.
func NewFileRecognitionLogger(path string) (glucoplate.RecognitionLogger, func() error, error) {
	logFile, err := openLogFile(path, os.O_TRUNC)
	if err != nil {
		return nil, func() error { return err }, err
	}

	logger := glucoplate.NewFileRecognitionLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

func openLogFile(path string, mode int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logFile, nil
}
