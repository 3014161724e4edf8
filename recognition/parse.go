package recognition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"glucoplate"
)

// DefaultConfidence is assigned when a provider omits or garbles a confidence.
const DefaultConfidence = 0.8

var ErrMalformedResponse = errors.New("malformed provider response")

// Parser turns provider text into recognized items.
type Parser interface {
	Parse(text string) ([]glucoplate.RecognizedItem, error)
}

// FoodsObjectParser expects {"foods": [{"name": ..., "confidence": ...}]}.
type FoodsObjectParser struct{}

func (FoodsObjectParser) Parse(text string) ([]glucoplate.RecognizedItem, error) {
	for _, candidate := range ExtractJSON(text) {
		var doc struct {
			Foods *[]wireItem `json:"foods"`
		}
		if err := json.Unmarshal([]byte(candidate), &doc); err == nil && doc.Foods != nil {
			return normalizeItems(*doc.Foods), nil
		}
	}
	return LenientParser{}.Parse(text)
}

// ArrayParser expects a bare JSON array of items.
type ArrayParser struct{}

func (ArrayParser) Parse(text string) ([]glucoplate.RecognizedItem, error) {
	for _, candidate := range ExtractJSON(text) {
		var items []wireItem
		if err := json.Unmarshal([]byte(candidate), &items); err == nil {
			return normalizeItems(items), nil
		}
	}
	return LenientParser{}.Parse(text)
}

// LenientParser is the last resort for responses that match no typed
// contract. It accepts a direct array, a "foods" array, or the first array
// under any key, and finally scrapes "name": "..." pairs out of the raw text.
type LenientParser struct{}

var namePattern = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)

func (LenientParser) Parse(text string) ([]glucoplate.RecognizedItem, error) {
	for _, candidate := range ExtractJSON(text) {
		if items, ok := lenientDecode([]byte(candidate)); ok {
			return normalizeItems(items), nil
		}
	}

	matches := namePattern.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		items := make([]wireItem, 0, len(matches))
		for _, m := range matches {
			items = append(items, wireItem{Name: m[1]})
		}
		return normalizeItems(items), nil
	}

	return nil, fmt.Errorf("%w: no food list found", ErrMalformedResponse)
}

func lenientDecode(data []byte) ([]wireItem, bool) {
	var items []wireItem
	if err := json.Unmarshal(data, &items); err == nil {
		return items, true
	}

	var doc struct {
		Foods []wireItem `json:"foods"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Foods != nil {
		return doc.Foods, true
	}

	// Walk the object in document order and take the first array value.
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			continue
		}
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return items, true
		}
	}

	// A lone item object is a one-item list.
	var single wireItem
	if err := json.Unmarshal(data, &single); err == nil && strings.TrimSpace(single.Name) != "" {
		return []wireItem{single}, true
	}
	return nil, false
}

// wireItem accepts a bare string or an object with name/food and a numeric
// or string confidence.
type wireItem struct {
	Name       string
	Confidence float64
	hasConf    bool
}

func (w *wireItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		w.Name = s
		return nil
	}

	var obj struct {
		Name       string          `json:"name"`
		Food       string          `json:"food"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	w.Name = obj.Name
	if w.Name == "" {
		w.Name = obj.Food
	}
	w.Confidence, w.hasConf = parseConfidence(obj.Confidence)
	return nil
}

func parseConfidence(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	return f, true
}

func normalizeItems(items []wireItem) []glucoplate.RecognizedItem {
	out := make([]glucoplate.RecognizedItem, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		out = append(out, glucoplate.RecognizedItem{Name: name, Confidence: clampConfidence(it.Confidence, it.hasConf)})
	}
	return out
}

// clampConfidence maps percentages onto 0..1 and replaces missing, zero or
// negative values with DefaultConfidence.
func clampConfidence(c float64, ok bool) float64 {
	switch {
	case !ok || math.IsNaN(c) || c <= 0:
		return DefaultConfidence
	case c > 1 && c <= 100:
		return c / 100
	case c > 1:
		return 1
	default:
		return c
	}
}

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFence  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
)

// ExtractJSON returns the JSON candidates found in text, most specific first:
// a ```json fence, any fence, the first balanced object, the first balanced
// array, then the trimmed text itself.
func ExtractJSON(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	if m := jsonFence.FindStringSubmatch(text); m != nil {
		add(m[1])
	}
	if m := anyFence.FindStringSubmatch(text); m != nil {
		add(m[1])
	}
	add(balanced(text, '{', '}'))
	add(balanced(text, '[', ']'))
	add(strings.NewReplacer("```json", "", "```", "").Replace(text))
	return out
}

// balanced returns the first open..close span in s whose delimiters match,
// ignoring delimiters inside JSON strings.
func balanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
