package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/catalog/storage"
	"glucoplate/internal/setup"
	"glucoplate/recognition"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
)

// Params selects what to analyze: an inline image, an image in S3, or a
// list of catalog IDs.
type Params struct {
	ImageBase64 string `json:"imageBase64,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
	S3Bucket    string `json:"s3Bucket,omitempty"`
	S3Key       string `json:"s3Key,omitempty"`
	FoodIDs     []int  `json:"foodIds,omitempty"`
	Language    string `json:"language,omitempty"`
}

type Results struct {
	Output glucoplate.FoodAnalysisResponse `json:"output"`
}

type config struct {
	Log         glucoplate.LogConfig
	Catalog     glucoplate.CatalogConfig
	Recognition glucoplate.RecognitionConfig
	Chat        glucoplate.ChatConfig
	Providers   glucoplate.ProviderConfig
	Notify      glucoplate.NotifyConfig
}

func main() {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	glucoplate.NewLogger(cfg.Log)

	fn := func(ctx context.Context, params Params) (Results, error) {
		tracerProvider, meterProvider, otelShutdown, err := glucoplate.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		awsCfg := setup.NewAWS()
		foods, err := setup.LoadCatalog(ctx, cfg.Catalog, awsCfg)
		if err != nil {
			slog.Error("SETUP: Failed to load catalog", "error", err)
			return Results{}, err
		}

		providers, err := setup.BuildProviders(ctx, cfg.Recognition, cfg.Chat, cfg.Providers, awsCfg)
		if err != nil {
			slog.Error("SETUP: Failed to build providers", "error", err)
			return Results{}, err
		}
		defer providers.Close() // nolint: errcheck

		policy := glucoplate.DefaultFallbackPolicy()
		recognizer := recognition.NewInstrumentedRecognizer(
			providers.Recognition,
			recognition.OptionsFromConfig(cfg.Recognition, policy, glucoplate.NewStdoutRecognitionLogger()),
			tracerProvider.Tracer(glucoplate.TracerNameRecognition),
			meterProvider.Meter(glucoplate.TracerNameRecognition),
		)
		svc := analysis.NewService(recognizer, foods, analysis.Options{Policy: policy, Notifier: setup.NewNotifier(cfg.Notify)})

		lang := glucoplate.ParseLanguage(params.Language, glucoplate.ParseLanguage(cfg.Recognition.DefaultLanguage, glucoplate.Arabic))

		if len(params.FoodIDs) > 0 {
			out, err := svc.AnalyzeManual(ctx, params.FoodIDs, lang)
			if err != nil {
				slog.Error("RESULT: Manual analysis failed", "error", err)
				return Results{}, err
			}
			return Results{Output: out}, nil
		}

		img, err := loadImage(ctx, params, s3Images(awsCfg))
		if err != nil {
			return Results{}, err
		}

		out, err := svc.AnalyzeImage(ctx, img, lang)
		if err != nil {
			slog.Error("RESULT: Image analysis failed", "error", err)
			return Results{}, err
		}
		return Results{Output: out}, nil
	}

	lambda.Start(fn)
}

// imageSource opens the S3 object holding an uploaded image.
type imageSource func(ctx context.Context, bucket, key string) (storage.Source, error)

func s3Images(awsCfg *setup.AWS) imageSource {
	return func(ctx context.Context, bucket, key string) (storage.Source, error) {
		ac, err := awsCfg.Config(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Source(s3.NewFromConfig(ac), bucket, key), nil
	}
}

func loadImage(ctx context.Context, params Params, images imageSource) (*recognition.Image, error) {
	switch {
	case params.ImageBase64 != "":
		data, err := base64.StdEncoding.DecodeString(params.ImageBase64)
		if err != nil {
			return nil, glucoplate.NewValidationError("imageBase64", "Image is not valid base64")
		}
		return recognition.NewImage(data, params.MIMEType), nil

	case params.S3Bucket != "" && params.S3Key != "":
		src, err := images(ctx, params.S3Bucket, params.S3Key)
		if err != nil {
			return nil, err
		}
		data, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image: %w", err)
		}
		slog.Info("SETUP: Image loaded from S3", "bucket", params.S3Bucket, "key", params.S3Key, "bytes", len(data))
		return recognition.NewImage(data, params.MIMEType), nil

	default:
		return nil, glucoplate.NewValidationError("image", "No image provided")
	}
}
