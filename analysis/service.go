// Package analysis runs the meal pipeline: recognize the foods on a plate,
// resolve them against the catalog, total their nutrients and grade the
// result for diabetes suitability.
package analysis

import (
	"context"
	"log/slog"
	"strings"

	"glucoplate"
	"glucoplate/nutrition"
	"glucoplate/recognition"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recognizer is satisfied by recognition.Recognizer and its instrumented variant.
type Recognizer interface {
	Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error)
}

// Catalog is the subset of catalog.Catalog the pipeline reads.
type Catalog interface {
	nutrition.Lookup
	Get(id int) (glucoplate.FoodRecord, bool)
}

type Options struct {
	Policy glucoplate.FallbackPolicy
	// Notifier receives an alert for every analysis graded avoid. Optional.
	Notifier glucoplate.Notifier
}

type Service struct {
	recognizer Recognizer
	catalog    Catalog
	engine     *nutrition.Engine
	policy     glucoplate.FallbackPolicy
	notifier   glucoplate.Notifier
}

func NewService(recognizer Recognizer, catalog Catalog, opts Options) *Service {
	if opts.Policy.Apologies == nil {
		opts.Policy = glucoplate.DefaultFallbackPolicy()
	}
	return &Service{
		recognizer: recognizer,
		catalog:    catalog,
		engine:     nutrition.NewEngine(catalog, opts.Policy),
		policy:     opts.Policy,
		notifier:   opts.Notifier,
	}
}

type userKey struct{}

// WithUserID tags ctx with the caller so alerts can name them.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}

// AnalyzeImage recognizes the foods in img and grades them. Names the
// catalog cannot resolve stay in the verdict but add nothing to the totals.
func (s *Service) AnalyzeImage(ctx context.Context, img *recognition.Image, lang glucoplate.Language) (glucoplate.FoodAnalysisResponse, error) {
	ctx, span := otel.Tracer(glucoplate.TracerNameAnalysis).Start(ctx, "Service.AnalyzeImage")
	defer span.End()

	if img == nil || len(img.Data) == 0 {
		return glucoplate.FoodAnalysisResponse{}, glucoplate.NewValidationError("image", "No image provided")
	}
	lang = glucoplate.ParseLanguage(string(lang), glucoplate.Arabic)

	items, err := s.recognizer.Recognize(ctx, recognition.Request{Image: img, Language: lang})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition failed")
		return glucoplate.FoodAnalysisResponse{}, err
	}
	if items == nil {
		items = []glucoplate.RecognizedItem{}
	}

	names := make([]string, 0, len(items))
	var records []glucoplate.FoodRecord
	seen := make(map[int]bool)
	misses := 0
	for _, item := range items {
		names = append(names, item.Name)
		record, ok := s.catalog.Resolve(item.Name)
		if !ok {
			misses++
			continue
		}
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true
		records = append(records, record)
	}

	resp := glucoplate.FoodAnalysisResponse{
		RecognizedFoods: items,
		NutritionInfo:   nutrition.AggregateWithPolicy(records, s.policy),
	}
	resp.DiabetesSuitability = s.engine.Evaluate(names, resp.NutritionInfo, lang)

	span.SetAttributes(
		attribute.Int("recognized", len(items)),
		attribute.Int("resolved", len(records)),
		attribute.Int("unresolved", misses),
		attribute.String("overall", string(resp.DiabetesSuitability.Overall)),
	)
	slog.Info("ANALYSIS: Image analyzed",
		"recognized", len(items),
		"resolved", len(records),
		"overall", resp.DiabetesSuitability.Overall,
	)

	s.alert(ctx, "image", resp, lang)
	return resp, nil
}

// AnalyzeManual grades a meal the user assembled from catalog IDs. Unknown
// and repeated IDs are skipped.
func (s *Service) AnalyzeManual(ctx context.Context, foodIDs []int, lang glucoplate.Language) (glucoplate.FoodAnalysisResponse, error) {
	ctx, span := otel.Tracer(glucoplate.TracerNameAnalysis).Start(ctx, "Service.AnalyzeManual")
	defer span.End()

	if len(foodIDs) == 0 {
		return glucoplate.FoodAnalysisResponse{}, glucoplate.NewValidationError("foodIds", "No foods selected")
	}
	lang = glucoplate.ParseLanguage(string(lang), glucoplate.Arabic)

	var records []glucoplate.FoodRecord
	seen := make(map[int]bool)
	for _, id := range foodIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if record, ok := s.catalog.Get(id); ok {
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return glucoplate.FoodAnalysisResponse{}, glucoplate.NewNotFoundError("No valid foods found")
	}

	items := make([]glucoplate.RecognizedItem, 0, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		items = append(items, glucoplate.RecognizedItem{Name: r.Name, Confidence: 1.0})
		names = append(names, r.Name)
	}

	resp := glucoplate.FoodAnalysisResponse{
		RecognizedFoods: items,
		NutritionInfo:   nutrition.Aggregate(records),
	}
	resp.DiabetesSuitability = s.engine.Evaluate(names, resp.NutritionInfo, lang)

	span.SetAttributes(
		attribute.Int("requested", len(foodIDs)),
		attribute.Int("resolved", len(records)),
		attribute.String("overall", string(resp.DiabetesSuitability.Overall)),
	)
	slog.Info("ANALYSIS: Manual selection analyzed", "foods", len(records), "overall", resp.DiabetesSuitability.Overall)

	s.alert(ctx, "manual", resp, lang)
	return resp, nil
}

// LogSummary totals a meal log with each entry scaled by its amount.
type LogSummary struct {
	Entries int                           `json:"entries"`
	Totals  glucoplate.NutritionTotals    `json:"totals"`
	Verdict glucoplate.SuitabilityVerdict `json:"verdict"`
}

// SummarizeLog grades everything in entries as one intake. Entries whose
// food is no longer in the catalog are ignored.
func (s *Service) SummarizeLog(ctx context.Context, entries []glucoplate.MealLogEntry, lang glucoplate.Language) LogSummary {
	_, span := otel.Tracer(glucoplate.TracerNameAnalysis).Start(ctx, "Service.SummarizeLog",
		trace.WithAttributes(attribute.Int("entries", len(entries))))
	defer span.End()

	lang = glucoplate.ParseLanguage(string(lang), glucoplate.Arabic)

	portions := make([]nutrition.Portion, 0, len(entries))
	var names []string
	named := make(map[string]bool)
	for _, e := range entries {
		record, ok := s.catalog.Get(e.FoodID)
		if !ok {
			continue
		}
		portions = append(portions, nutrition.Portion{Record: record, AmountGrams: e.AmountGrams})
		if !named[record.Name] {
			named[record.Name] = true
			names = append(names, record.Name)
		}
	}

	totals := nutrition.AggregatePortions(portions)
	return LogSummary{
		Entries: len(portions),
		Totals:  totals,
		Verdict: s.engine.Evaluate(names, totals, lang),
	}
}

func (s *Service) alert(ctx context.Context, source string, resp glucoplate.FoodAnalysisResponse, lang glucoplate.Language) {
	if s.notifier == nil || resp.DiabetesSuitability.Overall != glucoplate.Avoid {
		return
	}

	alert := glucoplate.MealAlert{
		UserID:   userIDFrom(ctx),
		Source:   source,
		Foods:    resp.RecognizedFoods,
		Totals:   resp.NutritionInfo,
		Verdict:  resp.DiabetesSuitability,
		Language: lang,
	}
	if err := s.notifier.NotifyMealAlert(ctx, alert); err != nil {
		slog.Error("ANALYSIS: Failed to send meal alert", "source", source, "error", err)
		return
	}
	slog.Debug("ANALYSIS: Meal alert sent", "source", source, "foods", strings.Join(foodNames(resp.RecognizedFoods), ","))
}

func foodNames(items []glucoplate.RecognizedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
