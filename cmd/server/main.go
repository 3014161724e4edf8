package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/auth"
	"glucoplate/chat"
	"glucoplate/httpapi"
	"glucoplate/internal/setup"
	"glucoplate/recognition"
	"glucoplate/store"

	"github.com/gin-gonic/gin"
	"github.com/joeshaw/envdecode"
)

type config struct {
	Server      glucoplate.ServerConfig
	Auth        glucoplate.AuthConfig
	Log         glucoplate.LogConfig
	Catalog     glucoplate.CatalogConfig
	Recognition glucoplate.RecognitionConfig
	Chat        glucoplate.ChatConfig
	Providers   glucoplate.ProviderConfig
	Notify      glucoplate.NotifyConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	glucoplate.NewLogger(cfg.Log)
	gin.SetMode(cfg.Server.GinMode)

	tracerProvider, meterProvider, otelShutdown, err := glucoplate.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
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
	defer func() {
		if err := providers.Close(); err != nil {
			slog.Error("SETUP: Failed to close providers", "error", err)
		}
	}()

	runLogger, cleanup, err := setup.NewRecognitionLogger(cfg.Recognition)
	if err != nil {
		slog.Error("SETUP: Failed to create recognition logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush recognition log", "error", err)
		}
	}()

	policy := glucoplate.DefaultFallbackPolicy()
	recognizer := recognition.NewInstrumentedRecognizer(
		providers.Recognition,
		recognition.OptionsFromConfig(cfg.Recognition, policy, runLogger),
		tracerProvider.Tracer(glucoplate.TracerNameRecognition),
		meterProvider.Meter(glucoplate.TracerNameRecognition),
	)

	mem := store.NewMemory()
	router := httpapi.NewRouter(httpapi.Deps{
		Auth:     auth.NewService(mem.Users(), auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL)),
		Foods:    foods,
		Analyzer: analysis.NewService(recognizer, foods, analysis.Options{Policy: policy, Notifier: setup.NewNotifier(cfg.Notify)}),
		Chat: chat.NewOrchestrator(providers.Chat, chat.Options{
			Timeout: cfg.Chat.ProviderTimeout,
			Policy:  policy,
		}),
		Users:           mem.Users(),
		MealLogs:        mem.MealLogs(),
		Chats:           mem.Chats(),
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		DefaultLanguage: glucoplate.Language(cfg.Recognition.DefaultLanguage),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SETUP: Listening", "addr", cfg.Server.Addr, "foods", foods.Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("SETUP: Server failed", "error", err)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("SETUP: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("SETUP: Graceful shutdown failed", "error", err)
	}
}
