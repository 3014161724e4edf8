package nutrition

import (
	"fmt"
	"strings"

	"glucoplate"
)

// Lookup resolves a free-text food name to a catalog record.
type Lookup interface {
	Resolve(name string) (glucoplate.FoodRecord, bool)
}

// threshold escalates the overall verdict when metric exceeds a limit.
type threshold struct {
	metric   string
	value    func(glucoplate.NutritionTotals) float64
	moderate float64
	avoid    float64
}

var thresholds = []threshold{
	{metric: "sugar", value: func(t glucoplate.NutritionTotals) float64 { return t.Sugar }, moderate: 10, avoid: 15},
	{metric: "carbs", value: func(t glucoplate.NutritionTotals) float64 { return t.Carbs }, moderate: 45, avoid: 60},
	{metric: "glycemicIndex", value: func(t glucoplate.NutritionTotals) float64 { return float64(t.GlycemicIndex) }, moderate: 55, avoid: 70},
}

// Engine grades meals against the catalog.
type Engine struct {
	lookup Lookup
	policy glucoplate.FallbackPolicy
}

func NewEngine(lookup Lookup, policy glucoplate.FallbackPolicy) *Engine {
	return &Engine{lookup: lookup, policy: policy}
}

// Evaluate never fails: unknown foods degrade to moderate with a disclaimer,
// and aggregate thresholds only ever make the overall verdict more severe.
func (e *Engine) Evaluate(foodNames []string, totals glucoplate.NutritionTotals, lang glucoplate.Language) glucoplate.SuitabilityVerdict {
	verdict := glucoplate.SuitabilityVerdict{
		Overall: glucoplate.Safe,
		Details: make(map[string]glucoplate.FoodDetail, len(foodNames)),
	}

	for _, name := range foodNames {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, seen := verdict.Details[key]; seen {
			continue
		}

		detail := e.detailFor(key, lang)
		verdict.Details[key] = detail
		verdict.Overall = glucoplate.Worse(verdict.Overall, detail.Suitability)
	}

	for _, th := range thresholds {
		v := th.value(totals)
		switch {
		case v > th.avoid:
			verdict.Overall = glucoplate.Avoid
			verdict.Flags = append(verdict.Flags, glucoplate.ThresholdFlag{Metric: th.metric, Value: v, Limit: th.avoid, Level: glucoplate.Avoid})
		case v > th.moderate:
			verdict.Overall = glucoplate.Worse(verdict.Overall, glucoplate.Moderate)
			verdict.Flags = append(verdict.Flags, glucoplate.ThresholdFlag{Metric: th.metric, Value: v, Limit: th.moderate, Level: glucoplate.Moderate})
		}
	}

	return verdict
}

func (e *Engine) detailFor(name string, lang glucoplate.Language) glucoplate.FoodDetail {
	var (
		record glucoplate.FoodRecord
		ok     bool
	)
	if e.lookup != nil {
		record, ok = e.lookup.Resolve(name)
	}
	if !ok {
		return glucoplate.FoodDetail{
			Suitability: glucoplate.Moderate,
			Reason:      fmt.Sprintf(e.policy.NoDataReasonFormat(lang), name),
		}
	}

	tag := record.Suitability
	if !tag.IsValid() {
		tag = glucoplate.Moderate
	}
	return glucoplate.FoodDetail{
		Suitability: tag,
		Reason:      Reason(record, tag, lang),
		Matched:     true,
	}
}
