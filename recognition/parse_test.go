package recognition

import (
	"testing"

	"glucoplate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsers(t *testing.T) {
	tests := []struct {
		name    string
		parser  Parser
		input   string
		want    []glucoplate.RecognizedItem
		wantErr bool
	}{
		{
			name:   "foods object",
			parser: FoodsObjectParser{},
			input:  `{"foods":[{"name":"Apple","confidence":0.9}]}`,
			want:   []glucoplate.RecognizedItem{{Name: "Apple", Confidence: 0.9}},
		},
		{
			name:   "foods object inside json fence",
			parser: FoodsObjectParser{},
			input:  "Here you go:\n```json\n{\"foods\":[{\"name\":\"Rice\",\"confidence\":\"0.75\"}]}\n```",
			want:   []glucoplate.RecognizedItem{{Name: "Rice", Confidence: 0.75}},
		},
		{
			name:   "foods object falls back to bare array",
			parser: FoodsObjectParser{},
			input:  `[{"name":"Dates","confidence":0.6}]`,
			want:   []glucoplate.RecognizedItem{{Name: "Dates", Confidence: 0.6}},
		},
		{
			name:   "array with prose around it",
			parser: ArrayParser{},
			input:  `I can see: [{"name":"خبز أسمر","confidence":0.85},{"name":"جبن","confidence":70}] in the photo.`,
			want:   []glucoplate.RecognizedItem{{Name: "خبز أسمر", Confidence: 0.85}, {Name: "جبن", Confidence: 0.7}},
		},
		{
			name:   "array of plain strings gets default confidence",
			parser: ArrayParser{},
			input:  `["Apple", "  ", "Banana"]`,
			want:   []glucoplate.RecognizedItem{{Name: "Apple", Confidence: DefaultConfidence}, {Name: "Banana", Confidence: DefaultConfidence}},
		},
		{
			name:   "valid empty array means nothing recognized",
			parser: ArrayParser{},
			input:  `[]`,
			want:   []glucoplate.RecognizedItem{},
		},
		{
			name:   "lenient first array under any key",
			parser: LenientParser{},
			input:  `{"note":"ok","items":[{"food":"Hummus","confidence":0.4}],"other":[{"name":"x"}]}`,
			want:   []glucoplate.RecognizedItem{{Name: "Hummus", Confidence: 0.4}},
		},
		{
			name:   "lenient regex scrape of broken json",
			parser: LenientParser{},
			input:  `{"foods": [{"name": "Lentils", "confidence": 0.9}, {"name": "Onion"`,
			want:   []glucoplate.RecognizedItem{{Name: "Lentils", Confidence: DefaultConfidence}, {Name: "Onion", Confidence: DefaultConfidence}},
		},
		{
			name:   "lenient single object keeps its confidence",
			parser: ArrayParser{},
			input:  "```json\n{\"name\":\"Apple\",\"confidence\":0.9}\n```",
			want:   []glucoplate.RecognizedItem{{Name: "Apple", Confidence: 0.9}},
		},
		{
			name:    "lenient object without a name is not an item",
			parser:  LenientParser{},
			input:   `{"error":"rate limited"}`,
			wantErr: true,
		},
		{
			name:   "confidence above 100 clamps to one",
			parser: ArrayParser{},
			input:  `[{"name":"Egg","confidence":250}]`,
			want:   []glucoplate.RecognizedItem{{Name: "Egg", Confidence: 1}},
		},
		{
			name:    "prose only",
			parser:  FoodsObjectParser{},
			input:   "Sorry, I cannot identify any food in this image.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser.Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Name, got[i].Name)
				assert.InDelta(t, tt.want[i].Confidence, got[i].Confidence, 1e-9)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Run("braces inside strings are ignored", func(t *testing.T) {
		got := ExtractJSON(`prefix {"name":"a } b","x":{"y":1}} suffix`)
		require.NotEmpty(t, got)
		assert.Equal(t, `{"name":"a } b","x":{"y":1}}`, got[0])
	})

	t.Run("fence wins over inline braces", func(t *testing.T) {
		got := ExtractJSON("{bad}\n```json\n[1]\n```")
		require.NotEmpty(t, got)
		assert.Equal(t, "[1]", got[0])
	})

	t.Run("unbalanced yields only raw text", func(t *testing.T) {
		got := ExtractJSON(`{"a":`)
		assert.Equal(t, []string{`{"a":`}, got)
	})
}
