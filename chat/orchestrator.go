// Package chat answers nutrition questions by trying a prioritized list of
// providers until one produces a usable reply.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"glucoplate"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Provider is a single chat backend.
type Provider interface {
	Name() string
	Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error)
}

type Options struct {
	Timeout time.Duration
	Policy  glucoplate.FallbackPolicy
}

// Reply is the answer together with the provider that produced it. Provider
// is empty when the apology was used.
type Reply struct {
	Text     string
	Provider string
	Language glucoplate.Language
}

// Orchestrator tries providers in order. The first non-empty answer wins.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
	policy    glucoplate.FallbackPolicy
}

func NewOrchestrator(providers []Provider, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Policy.Apologies == nil {
		opts.Policy = glucoplate.DefaultFallbackPolicy()
	}
	return &Orchestrator{providers: providers, timeout: opts.Timeout, policy: opts.Policy}
}

// Chat returns an answer in lang. It never returns an empty string.
func (o *Orchestrator) Chat(ctx context.Context, message string, lang glucoplate.Language) string {
	return o.Respond(ctx, message, lang).Text
}

// Respond is Chat with the answering provider attached. An unset language
// is detected from the message.
func (o *Orchestrator) Respond(ctx context.Context, message string, lang glucoplate.Language) Reply {
	ctx, span := otel.Tracer(glucoplate.TracerNameChat).Start(ctx, "Orchestrator.Respond")
	defer span.End()

	if lang != glucoplate.Arabic && lang != glucoplate.English {
		lang = glucoplate.DetectLanguage(message)
	}

	for _, p := range o.providers {
		answer, err := o.try(ctx, p, message, lang)
		if err != nil {
			slog.Warn("CHAT: Provider failed", "provider", p.Name(), "error", err)
			span.AddEvent("Provider failed", trace.WithAttributes(
				attribute.String("provider", p.Name()),
				attribute.String("error", err.Error()),
			))
			continue
		}

		answer = strings.TrimSpace(answer)
		if answer == "" {
			slog.Warn("CHAT: Provider returned empty answer", "provider", p.Name())
			continue
		}

		slog.Info("CHAT: Answered", "provider", p.Name(), "language", lang, "answer_length", len(answer))
		span.SetAttributes(attribute.String("provider", p.Name()))
		return Reply{Text: answer, Provider: p.Name(), Language: lang}
	}

	slog.Warn("CHAT: All providers failed; returning apology", "providers", len(o.providers), "language", lang)
	span.AddEvent("Apology returned")
	return Reply{Text: o.policy.Apology(lang), Language: lang}
}

func (o *Orchestrator) try(ctx context.Context, p Provider, message string, lang glucoplate.Language) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		answer string
		err    error
	}
	// Buffered so a provider that ignores ctx can still finish and exit.
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("provider %s panicked: %v", p.Name(), rec)}
			}
		}()
		answer, err := p.Answer(ctx, message, lang)
		done <- result{answer: answer, err: err}
	}()

	select {
	case r := <-done:
		return r.answer, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
