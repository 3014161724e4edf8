// Package recognition fans an image out to every configured vision provider
// and merges whatever they agree on into one list of foods.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"glucoplate"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Provider is a single vision backend.
type Provider interface {
	Name() string
	Recognize(ctx context.Context, req Request) ([]glucoplate.RecognizedItem, error)
}

// Outcome tags how a provider attempt ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeParseError   Outcome = "parse_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeStatusError  Outcome = "status_error"
	OutcomePanic        Outcome = "panic"
)

// Classify maps a provider error onto an Outcome.
func Classify(err error) Outcome {
	var statusErr *glucoplate.ProviderStatusError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeParseError
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.As(err, &statusErr):
		if statusErr.Retryable() {
			return OutcomeNetworkError
		}
		return OutcomeStatusError
	default:
		return OutcomeNetworkError
	}
}

// ProviderResult is the record of one provider's part in a run.
type ProviderResult struct {
	Provider string
	Outcome  Outcome
	Attempts int
	Items    []glucoplate.RecognizedItem
	Err      error
	Duration time.Duration
}

// Options configures a Recognizer. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxItems   int
	Policy     glucoplate.FallbackPolicy
	Logger     glucoplate.RecognitionLogger
}

// DefaultOptions mirrors the RECOGNITION_* configuration defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:    10 * time.Second,
		MaxRetries: 1,
		RetryDelay: 500 * time.Millisecond,
		MaxItems:   DefaultMaxItems,
		Policy:     glucoplate.DefaultFallbackPolicy(),
		Logger:     &glucoplate.NoOpRecognitionLogger{},
	}
}

// OptionsFromConfig converts environment configuration into Options.
func OptionsFromConfig(cfg glucoplate.RecognitionConfig, policy glucoplate.FallbackPolicy, logger glucoplate.RecognitionLogger) Options {
	policy.UsePlaceholders = cfg.UsePlaceholders
	return Options{
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		MaxItems:   cfg.MaxItems,
		Policy:     policy,
		Logger:     logger,
	}
}

// Recognizer queries every provider concurrently. One slow or failing
// provider never blocks or fails the others.
type Recognizer struct {
	providers []Provider
	opts      Options

	// onResult is invoked once per provider after its final attempt.
	onResult func(ctx context.Context, res ProviderResult)
}

// NewRecognizer initializes a recognizer over the given providers.
func NewRecognizer(providers []Provider, opts Options) *Recognizer {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxItems <= 0 || opts.MaxItems > DefaultMaxItems {
		opts.MaxItems = def.MaxItems
	}
	if opts.Policy.Apologies == nil {
		opts.Policy = def.Policy
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	return &Recognizer{providers: providers, opts: opts}
}

// Providers returns the configured provider names in order.
func (r *Recognizer) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Recognize runs every provider against the image and merges the results.
// A run where every provider fails yields an empty list, or the placeholder
// foods when the fallback policy asks for them.
func (r *Recognizer) Recognize(ctx context.Context, req Request) ([]glucoplate.RecognizedItem, error) {
	ctx, span := otel.Tracer(glucoplate.TracerNameRecognition).Start(ctx, "Recognizer.Recognize")
	defer span.End()

	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, glucoplate.NewValidationError("image", "No image provided")
	}

	start := time.Now()
	slog.Info("RECOGNIZER: Starting run", "providers", len(r.providers), "image_bytes", len(req.Image.Data))

	results := make([]ProviderResult, len(r.providers))
	var g errgroup.Group
	for i, p := range r.providers {
		g.Go(func() error {
			results[i] = r.runProvider(ctx, p, req)
			if r.onResult != nil {
				r.onResult(ctx, results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var lists [][]glucoplate.RecognizedItem
	run := glucoplate.RunLog{Timestamp: start, ImageBytes: len(req.Image.Data)}
	for _, res := range results {
		entry := glucoplate.ProviderAttemptLog{
			Provider:   res.Provider,
			Outcome:    string(res.Outcome),
			Attempts:   res.Attempts,
			Items:      res.Items,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		run.Providers = append(run.Providers, entry)

		span.AddEvent("Provider finished", trace.WithAttributes(
			attribute.String("provider", res.Provider),
			attribute.String("outcome", string(res.Outcome)),
			attribute.Int("items", len(res.Items)),
		))

		if res.Outcome == OutcomeSuccess {
			lists = append(lists, res.Items)
		}
	}

	merged := Merge(lists, r.opts.MaxItems)
	if len(lists) == 0 {
		slog.Warn("RECOGNIZER: All providers failed", "providers", len(r.providers))
		if r.opts.Policy.UsePlaceholders {
			merged = append([]glucoplate.RecognizedItem(nil), r.opts.Policy.PlaceholderFoods...)
		}
	}

	run.Merged = merged
	run.DurationMS = time.Since(start).Milliseconds()
	if err := r.opts.Logger.LogRun(run); err != nil {
		slog.Error("RECOGNIZER: Failed to log run", "error", err)
	}

	slog.Info("RECOGNIZER: Run complete", "succeeded", len(lists), "items", len(merged), "duration_ms", run.DurationMS)
	return merged, nil
}

// runProvider bounds a provider by the per-provider timeout and retries
// transport failures. Parse errors and client-side status errors are final.
func (r *Recognizer) runProvider(ctx context.Context, p Provider, req Request) (res ProviderResult) {
	res.Provider = p.Name()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res.Outcome = OutcomePanic
			res.Err = fmt.Errorf("provider %s panicked: %v", res.Provider, rec)
			res.Items = nil
		}
		res.Duration = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	for {
		res.Attempts++
		items, err := attempt(ctx, p, req)
		if err == nil {
			res.Outcome, res.Items, res.Err = OutcomeSuccess, items, nil
			return res
		}

		if ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		res.Outcome, res.Err = Classify(err), err
		slog.Warn("RECOGNIZER: Provider attempt failed",
			"provider", res.Provider,
			"attempt", res.Attempts,
			"outcome", res.Outcome,
			"error", err,
		)

		if res.Outcome != OutcomeNetworkError || res.Attempts > r.opts.MaxRetries {
			return res
		}

		select {
		case <-ctx.Done():
			res.Outcome, res.Err = Classify(ctx.Err()), fmt.Errorf("%w: %w", ctx.Err(), err)
			return res
		case <-time.After(r.opts.RetryDelay):
		}
	}
}

// attempt runs one call in its own goroutine so a provider that ignores ctx
// cannot hold the run past its deadline. A panic is re-raised on the caller.
func attempt(ctx context.Context, p Provider, req Request) ([]glucoplate.RecognizedItem, error) {
	type result struct {
		items    []glucoplate.RecognizedItem
		err      error
		panicked any
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{panicked: rec}
			}
		}()
		items, err := p.Recognize(ctx, req)
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		if r.panicked != nil {
			panic(r.panicked)
		}
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
