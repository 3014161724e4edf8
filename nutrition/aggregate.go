// Package nutrition aggregates catalog records into meal totals and grades
// meals for diabetes suitability.
package nutrition

import (
	"math"

	"glucoplate"
)

// Aggregate sums nutrients across records and averages the glycemic index,
// rounded to the nearest integer. A missing index counts as zero. Empty input
// yields zero totals with NoData set.
func Aggregate(records []glucoplate.FoodRecord) glucoplate.NutritionTotals {
	if len(records) == 0 {
		return glucoplate.NutritionTotals{NoData: true}
	}

	var t glucoplate.NutritionTotals
	giSum := 0
	for _, r := range records {
		t.Calories += r.Calories
		t.Carbs += r.Carbs
		t.Protein += r.Protein
		t.Fat += r.Fat
		t.Sugar += r.Sugar
		giSum += r.GlycemicIndex
	}
	t.GlycemicIndex = int(math.Round(float64(giSum) / float64(len(records))))
	return t
}

// AggregateWithPolicy behaves like Aggregate but substitutes the policy's
// placeholder totals for empty input when the policy asks for them.
func AggregateWithPolicy(records []glucoplate.FoodRecord, policy glucoplate.FallbackPolicy) glucoplate.NutritionTotals {
	if len(records) == 0 && policy.UsePlaceholders {
		return policy.PlaceholderTotals
	}
	return Aggregate(records)
}

// Portion is a catalog record eaten in a given amount.
type Portion struct {
	Record      glucoplate.FoodRecord
	AmountGrams float64
}

// AggregatePortions scales each record by amount/100 before summing. The
// glycemic index is weighted by the carbohydrate each portion contributes,
// falling back to a plain mean when no portion carries carbs.
func AggregatePortions(portions []Portion) glucoplate.NutritionTotals {
	if len(portions) == 0 {
		return glucoplate.NutritionTotals{NoData: true}
	}

	var t glucoplate.NutritionTotals
	var giWeighted, carbWeight float64
	giSum := 0
	for _, p := range portions {
		amount := p.AmountGrams
		if amount <= 0 {
			amount = glucoplate.DefaultAmountGrams
		}
		f := amount / 100
		carbs := p.Record.Carbs * f

		t.Calories += p.Record.Calories * f
		t.Carbs += carbs
		t.Protein += p.Record.Protein * f
		t.Fat += p.Record.Fat * f
		t.Sugar += p.Record.Sugar * f

		giWeighted += float64(p.Record.GlycemicIndex) * carbs
		carbWeight += carbs
		giSum += p.Record.GlycemicIndex
	}

	if carbWeight > 0 {
		t.GlycemicIndex = int(math.Round(giWeighted / carbWeight))
	} else {
		t.GlycemicIndex = int(math.Round(float64(giSum) / float64(len(portions))))
	}

	t.Calories = round1(t.Calories)
	t.Carbs = round1(t.Carbs)
	t.Protein = round1(t.Protein)
	t.Fat = round1(t.Fat)
	t.Sugar = round1(t.Sugar)
	return t
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
