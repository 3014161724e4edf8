package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/internal/setup"
	"glucoplate/recognition"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	Log         glucoplate.LogConfig
	Catalog     glucoplate.CatalogConfig
	Recognition glucoplate.RecognitionConfig
	Chat        glucoplate.ChatConfig
	Providers   glucoplate.ProviderConfig
}

func main() {
	var (
		foodIDs = flag.String("foods", "", "comma separated catalog IDs to analyze instead of an image")
		lang    = flag.String("lang", "", "reply language: ar or en")
		debug   = flag.Bool("debug", false, "dump the full result")
	)
	flag.Parse()

	ctx := context.Background()

	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	glucoplate.NewLogger(cfg.Log)

	tracerProvider, meterProvider, otelShutdown, err := glucoplate.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
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
		return
	}

	providers, err := setup.BuildProviders(ctx, cfg.Recognition, cfg.Chat, cfg.Providers, awsCfg)
	if err != nil {
		slog.Error("SETUP: Failed to build providers", "error", err)
		return
	}
	defer providers.Close() // nolint: errcheck

	logPath := cfg.Recognition.RunLogPath
	if logPath == "" {
		logPath = glucoplate.NewRunLogFilePath(strings.Join(providerNames(providers.Recognition), "-"))
	}
	runLogger, cleanup, err := setup.NewFileRecognitionLogger(logPath)
	if err != nil {
		slog.Error("SETUP: Failed to create recognition logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("Failed to flush recognition log", "error", err)
		}
	}()

	policy := glucoplate.DefaultFallbackPolicy()
	tracer := tracerProvider.Tracer(glucoplate.TracerNameRecognition)
	recognizer := recognition.NewInstrumentedRecognizer(
		providers.Recognition,
		recognition.OptionsFromConfig(cfg.Recognition, policy, runLogger),
		tracer,
		meterProvider.Meter(glucoplate.TracerNameRecognition),
	)
	svc := analysis.NewService(recognizer, foods, analysis.Options{Policy: policy})

	language := glucoplate.ParseLanguage(*lang, glucoplate.ParseLanguage(cfg.Recognition.DefaultLanguage, glucoplate.Arabic))

	ctx, span := tracer.Start(ctx, "analyze", trace.WithAttributes(
		attribute.StringSlice("providers", providerNames(providers.Recognition)),
		attribute.String("language", string(language)),
	))
	defer span.End()

	var result glucoplate.FoodAnalysisResponse
	if *foodIDs != "" {
		ids, err := parseIDs(*foodIDs)
		if err != nil {
			slog.Error("RESULT: Invalid -foods", "error", err)
			return
		}
		result, err = svc.AnalyzeManual(ctx, ids, language)
		if err != nil {
			slog.Error("RESULT: Error analyzing foods", "error", err)
			return
		}
	} else {
		if flag.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "usage: analyze [-lang ar|en] [-debug] <image-file> | -foods 1,2,3")
			os.Exit(2)
		}
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			slog.Error("RESULT: Failed to read image", "error", err)
			return
		}
		result, err = svc.AnalyzeImage(ctx, recognition.NewImage(data, ""), language)
		if err != nil {
			slog.Error("RESULT: Error analyzing image", "error", err)
			return
		}
	}

	if *debug {
		glucoplate.Dump(result)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("RESULT: Failed to encode result", "error", err)
		return
	}
	fmt.Println(string(out))
	slog.Info("RESULT: Analysis complete", "overall", result.DiabetesSuitability.Overall, "log", logPath)
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad food id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func providerNames(ps []recognition.Provider) []string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name())
	}
	return names
}
