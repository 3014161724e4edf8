package glucoplate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorse(t *testing.T) {
	tests := []struct {
		a, b Suitability
		want Suitability
	}{
		{Safe, Safe, Safe},
		{Safe, Moderate, Moderate},
		{Moderate, Safe, Moderate},
		{Moderate, Avoid, Avoid},
		{Avoid, Safe, Avoid},
		{Avoid, Moderate, Avoid},
	}

	for _, tt := range tests {
		t.Run(string(tt.a)+"_"+string(tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Worse(tt.a, tt.b))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Language
	}{
		{name: "english question", text: "Can I eat fruits?", want: English},
		{name: "arabic question", text: "هل يمكنني تناول الفاكهة؟", want: Arabic},
		{name: "mixed text", text: "Is أرز ok?", want: Arabic},
		{name: "empty", text: "", want: English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, Arabic, ParseLanguage("AR", English))
	assert.Equal(t, English, ParseLanguage(" en ", Arabic))
	assert.Equal(t, Arabic, ParseLanguage("fr", Arabic))
	assert.Equal(t, English, ParseLanguage("", English))
}

func TestErrors(t *testing.T) {
	verr := NewValidationError("foodIds", "No foods selected")
	assert.True(t, errors.Is(verr, ErrValidation))
	assert.Equal(t, "No foods selected", verr.Error())

	nerr := NewNotFoundError("No valid foods found")
	assert.True(t, errors.Is(nerr, ErrNotFound))
	assert.Equal(t, "No valid foods found", nerr.Error())
}

func TestFallbackPolicy(t *testing.T) {
	p := DefaultFallbackPolicy()

	assert.Equal(t, "Sorry, there was a connection error. Please try again later.", p.Apology(English))
	assert.Equal(t, "عذراً، حدث خطأ في الاتصال. يرجى المحاولة مرة أخرى لاحقاً.", p.Apology(Arabic))
	assert.Equal(t, p.Apology(English), p.Apology(Language("fr")))
	assert.False(t, p.UsePlaceholders)

	empty := FallbackPolicy{}
	assert.NotEmpty(t, empty.Apology(Arabic))
	assert.Contains(t, empty.NoDataReasonFormat(English), "%s")
}

func TestSdump(t *testing.T) {
	out := Sdump(map[string]int{"sugar": 19, "carbs": 25}, &FoodRecord{ID: 7, Name: "تفاح"})

	assert.Contains(t, out, "types_test.go:")
	assert.Less(t, strings.Index(out, `"carbs"`), strings.Index(out, `"sugar"`))
	assert.Contains(t, out, "تفاح")
	assert.NotContains(t, out, "0xc")
}
