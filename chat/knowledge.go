package chat

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"glucoplate"
)

var ErrNoAnswer = errors.New("no matching answer")

// SeedQA is the built-in question bank.
var SeedQA = []glucoplate.QAPair{
	{
		Language: glucoplate.Arabic,
		Question: "هل يمكنني تناول الفاكهة؟",
		Answer:   "نعم، يمكنك تناول الفاكهة، لكن باعتدال وحساب الكربوهيدرات. فاكهة مثل التوت والتفاح والكمثرى تعتبر خيارات جيدة لأنها منخفضة المؤشر الجلايسيمي.",
	},
	{
		Language: glucoplate.Arabic,
		Question: "ما هي الأطعمة التي تساعد في خفض نسبة السكر؟",
		Answer:   "الأطعمة الغنية بالألياف مثل الخضروات الورقية، والحبوب الكاملة، والبقوليات، والمكسرات يمكن أن تساعد في استقرار نسبة السكر في الدم. كذلك البروتينات الخالية من الدهون والدهون الصحية.",
	},
	{
		Language: glucoplate.Arabic,
		Question: "كم حصة من الكربوهيدرات يمكنني تناولها يومياً؟",
		Answer:   "يختلف ذلك حسب الفرد، لكن بشكل عام، يوصى بتناول 45-60 جرام من الكربوهيدرات في كل وجبة رئيسية و15-20 جرام في الوجبات الخفيفة. يفضل استشارة أخصائي التغذية لخطة غذائية مخصصة.",
	},
	{
		Language: glucoplate.English,
		Question: "Can I eat fruits?",
		Answer:   "Yes, you can eat fruits, but in moderation and counting the carbohydrates. Fruits like berries, apples, and pears are good choices as they have a lower glycemic index.",
	},
	{
		Language: glucoplate.English,
		Question: "What foods help lower blood sugar?",
		Answer:   "Foods rich in fiber such as leafy greens, whole grains, legumes, and nuts can help stabilize blood sugar. Lean proteins and healthy fats are also beneficial.",
	},
	{
		Language: glucoplate.English,
		Question: "How many carb servings can I have daily?",
		Answer:   "This varies by individual, but generally, it's recommended to have 45-60 grams of carbohydrates per main meal and 15-20 grams for snacks. It's best to consult with a nutritionist for a personalized meal plan.",
	},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "i": true, "is": true, "are": true, "do": true, "does": true,
	"can": true, "what": true, "how": true, "which": true, "my": true, "me": true, "to": true, "of": true,
	"in": true, "for": true, "and": true, "or": true, "with": true, "have": true, "many": true, "much": true,
	"هل": true, "ما": true, "هي": true, "هو": true, "في": true, "من": true, "على": true, "كم": true,
	"التي": true, "الذي": true, "أن": true, "او": true, "أو": true, "و": true,
}

const (
	minSharedTerms = 2
	minOverlap     = 0.5
)

type entry struct {
	pair  glucoplate.QAPair
	norm  string
	terms map[string]bool
}

// KnowledgeBase answers from a fixed set of question and answer pairs. It is
// meant to sit last in the provider list.
type KnowledgeBase struct {
	entries []entry
}

func NewKnowledgeBase(pairs []glucoplate.QAPair) *KnowledgeBase {
	kb := &KnowledgeBase{}
	for _, p := range pairs {
		kb.entries = append(kb.entries, entry{pair: p, norm: normalize(p.Question), terms: terms(p.Question)})
	}
	return kb
}

func (kb *KnowledgeBase) Name() string { return "knowledge" }

// Answer matches the normalized message exactly, or picks the question in
// the same language that shares the most terms with it.
func (kb *KnowledgeBase) Answer(_ context.Context, message string, lang glucoplate.Language) (string, error) {
	norm := normalize(message)
	if norm == "" {
		return "", ErrNoAnswer
	}

	for _, e := range kb.entries {
		if e.pair.Language == lang && e.norm == norm {
			return e.pair.Answer, nil
		}
	}

	query := terms(message)
	best, bestScore := -1, 0.0
	for i, e := range kb.entries {
		if e.pair.Language != lang {
			continue
		}
		shared := 0
		for t := range query {
			if e.terms[t] {
				shared++
			}
		}
		if shared < minSharedTerms {
			continue
		}
		score := float64(shared) / float64(max(len(query), len(e.terms)))
		if score >= minOverlap && score > bestScore {
			best, bestScore = i, score
		}
	}

	if best == -1 {
		return "", ErrNoAnswer
	}
	return kb.entries[best].pair.Answer, nil
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// terms returns the content words of s. English plurals are folded by
// dropping a trailing "s".
func terms(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(normalize(s)) {
		if stopWords[w] {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = strings.TrimSuffix(w, "s")
		}
		out[w] = true
	}
	return out
}
