package glucoplate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier delivers alerts about high-risk meals to an out-of-band channel.
type Notifier interface {
	NotifyMealAlert(ctx context.Context, alert MealAlert) error
}

// Suitability is a coarse diabetes-appropriateness classification.
type Suitability string

const (
	Safe     Suitability = "safe"
	Moderate Suitability = "moderate"
	Avoid    Suitability = "avoid"
)

func (s Suitability) severity() int {
	switch s {
	case Safe:
		return 0
	case Avoid:
		return 2
	default:
		return 1
	}
}

// IsValid reports whether s is one of the three known tags.
func (s Suitability) IsValid() bool {
	return s == Safe || s == Moderate || s == Avoid
}

// Worse returns the more severe of a and b.
func Worse(a, b Suitability) Suitability {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

type Language string

const (
	Arabic  Language = "ar"
	English Language = "en"
)

// DetectLanguage returns Arabic when text holds any rune from the Arabic block.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			return Arabic
		}
	}
	return English
}

// ParseLanguage maps "ar"/"en" (any case) to a Language, or returns fallback.
func ParseLanguage(s string, fallback Language) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Arabic:
		return Arabic
	case English:
		return English
	default:
		return fallback
	}
}

// FoodRecord is a catalog entry. Nutrients are per 100g serving.
type FoodRecord struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	AlternateName string      `json:"alternateName"`
	Calories      float64     `json:"calories"`
	Carbs         float64     `json:"carbs"`
	Protein       float64     `json:"protein"`
	Fat           float64     `json:"fat"`
	Sugar         float64     `json:"sugar"`
	GlycemicIndex int         `json:"glycemicIndex"`
	Suitability   Suitability `json:"suitability"`
	Category      string      `json:"category,omitempty"`
}

// RecognizedItem is a single food detected by a provider.
type RecognizedItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// NutritionTotals is the aggregate of a set of food records. NoData is set
// when nothing contributed to the totals.
type NutritionTotals struct {
	Calories      float64 `json:"calories"`
	Carbs         float64 `json:"carbs"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Sugar         float64 `json:"sugar"`
	GlycemicIndex int     `json:"glycemicIndex"`
	NoData        bool    `json:"noData,omitempty"`
}

type FoodDetail struct {
	Suitability Suitability `json:"suitability"`
	Reason      string      `json:"reason"`
	Matched     bool        `json:"matched"`
}

// ThresholdFlag records an aggregate limit that escalated the overall verdict.
type ThresholdFlag struct {
	Metric string      `json:"metric"`
	Value  float64     `json:"value"`
	Limit  float64     `json:"limit"`
	Level  Suitability `json:"level"`
}

type SuitabilityVerdict struct {
	Overall Suitability           `json:"overall"`
	Details map[string]FoodDetail `json:"details"`
	Flags   []ThresholdFlag       `json:"flags,omitempty"`
}

type FoodAnalysisResponse struct {
	RecognizedFoods     []RecognizedItem   `json:"recognizedFoods"`
	NutritionInfo       NutritionTotals    `json:"nutritionInfo"`
	DiabetesSuitability SuitabilityVerdict `json:"diabetesSuitability"`
}

// DefaultAmountGrams is used when a meal log entry omits its amount.
const DefaultAmountGrams = 100

type MealLogEntry struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	FoodID      int       `json:"foodId"`
	AmountGrams float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes,omitempty"`
}

type ChatExchange struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	MessageText string    `json:"message"`
	IsFromUser  bool      `json:"isUser"`
	Timestamp   time.Time `json:"timestamp"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Age          *int      `json:"age,omitempty"`
	DiabetesType string    `json:"diabetesType"`
	Preferences  string    `json:"preferences,omitempty"`
	Language     Language  `json:"language"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QAPair is a curated question and answer used by the chat knowledge base.
type QAPair struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Language Language `json:"language"`
}

// MealAlert describes an analysis whose overall verdict is avoid.
type MealAlert struct {
	UserID   uuid.UUID          `json:"userId,omitempty"`
	Source   string             `json:"source"`
	Foods    []RecognizedItem   `json:"foods"`
	Totals   NutritionTotals    `json:"totals"`
	Verdict  SuitabilityVerdict `json:"verdict"`
	Language Language           `json:"language"`
}
