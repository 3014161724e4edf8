package glucoplate

// FallbackPolicy centralizes what the orchestrators answer with when
// providers or the catalog come up empty.
type FallbackPolicy struct {
	Apologies    map[Language]string
	NoDataReason map[Language]string

	// UsePlaceholders makes recognition and aggregation return the
	// placeholder values below instead of empty results.
	UsePlaceholders   bool
	PlaceholderTotals NutritionTotals
	PlaceholderFoods  []RecognizedItem
}

func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Apologies: map[Language]string{
			Arabic:  "عذراً، حدث خطأ في الاتصال. يرجى المحاولة مرة أخرى لاحقاً.",
			English: "Sorry, there was a connection error. Please try again later.",
		},
		NoDataReason: map[Language]string{
			Arabic:  "لا تتوفر بيانات غذائية عن %s. يعامل كطعام معتدل؛ تناوله بكميات صغيرة وراقب مستوى السكر بعد تناوله.",
			English: "No nutrition data is available for %s. Treated as moderate; eat small portions and check your blood sugar afterwards.",
		},
		PlaceholderTotals: NutritionTotals{
			Calories:      450,
			Carbs:         48,
			Protein:       35,
			Fat:           12,
			Sugar:         3,
			GlycemicIndex: 52,
		},
		PlaceholderFoods: []RecognizedItem{
			{Name: "أرز بسمتي", Confidence: 0.98},
			{Name: "صدر دجاج مشوي", Confidence: 0.92},
			{Name: "خضروات مشكلة", Confidence: 0.85},
		},
	}
}

// Apology returns the localized apology, defaulting to English.
func (p FallbackPolicy) Apology(lang Language) string {
	if s, ok := p.Apologies[lang]; ok && s != "" {
		return s
	}
	if s, ok := p.Apologies[English]; ok && s != "" {
		return s
	}
	return "Sorry, there was a connection error. Please try again later."
}

// NoDataReasonFormat returns a format string taking the food name.
func (p FallbackPolicy) NoDataReasonFormat(lang Language) string {
	if s, ok := p.NoDataReason[lang]; ok && s != "" {
		return s
	}
	return "No nutrition data is available for %s."
}
