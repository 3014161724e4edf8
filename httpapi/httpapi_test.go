package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/auth"
	"glucoplate/catalog"
	"glucoplate/chat"
	"glucoplate/recognition"
	"glucoplate/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRecognizer struct {
	items []glucoplate.RecognizedItem
}

func (s stubRecognizer) Recognize(context.Context, recognition.Request) ([]glucoplate.RecognizedItem, error) {
	return s.items, nil
}

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Answer(_ context.Context, message string, lang glucoplate.Language) (string, error) {
	return fmt.Sprintf("[%s] %s", lang, message), nil
}

type testServer struct {
	router *gin.Engine
	deps   Deps
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()

	foods, err := catalog.New([]glucoplate.FoodRecord{
		{ID: 3, Name: "تفاح", AlternateName: "Apple", Calories: 95, Carbs: 25, Sugar: 19, GlycemicIndex: 38, Suitability: glucoplate.Moderate, Category: "fruits"},
		{ID: 4, Name: "صدر دجاج مشوي", AlternateName: "Grilled Chicken Breast", Calories: 165, Protein: 31, Fat: 3, Suitability: glucoplate.Safe, Category: "proteins"},
		{ID: 6, Name: "أرز أبيض", AlternateName: "White Rice", Calories: 130, Carbs: 28, Protein: 2.7, Fat: 0.3, Sugar: 0.1, GlycemicIndex: 73, Suitability: glucoplate.Avoid, Category: "grains"},
	})
	require.NoError(t, err)

	mem := store.NewMemory()
	rec := stubRecognizer{items: []glucoplate.RecognizedItem{{Name: "Apple", Confidence: 0.9}}}

	deps := Deps{
		Auth:           auth.NewService(mem.Users(), auth.NewJWTManager("test-secret-at-least-32-chars-long!!", "glucoplate-test", time.Hour)),
		Foods:          foods,
		Analyzer:       analysis.NewService(rec, foods, analysis.Options{}),
		Chat:           chat.NewOrchestrator([]chat.Provider{echoProvider{}}, chat.Options{}),
		Users:          mem.Users(),
		MealLogs:       mem.MealLogs(),
		Chats:          mem.Chats(),
		MaxUploadBytes: maxUpload,
	}
	return &testServer{router: NewRouter(deps), deps: deps}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Token string          `json:"token"`
		User  glucoplate.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 0)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "sara"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required", message(t, rec))

	token := s.login(t, "sara")

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "sara", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, "sara", profile["username"])
	assert.NotContains(t, profile, "passwordHash")

	rec = s.do(t, http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/foods", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a bad token is rejected even on public routes")

	rec = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", message(t, rec))

	rec = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "anonymous logout still succeeds")
}

func TestAuth_StaleTokens(t *testing.T) {
	s := newTestServer(t, 0)

	stale := auth.NewJWTManager("test-secret-at-least-32-chars-long!!", "glucoplate-test", -time.Minute)
	expired, err := stale.GenerateAccessToken(uuid.New(), "ghost")
	require.NoError(t, err)

	revoked := s.login(t, "huda")
	rec := s.do(t, http.MethodPost, "/api/auth/logout", revoked, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"revoked", revoked},
		{"malformed", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/logout", tt.token, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Logged out successfully", message(t, rec))

			rec = s.do(t, http.MethodPost, "/api/auth/login", tt.token, map[string]string{"username": "huda", "password": "password1"})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = s.do(t, http.MethodGet, "/api/foods", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.login(t, "omar")

	rec := s.do(t, http.MethodPatch, "/api/user/profile", token, map[string]any{"age": 51, "language": "en", "diabetesType": "type1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[glucoplate.User](t, rec)
	require.NotNil(t, user.Age)
	assert.Equal(t, 51, *user.Age)
	assert.Equal(t, glucoplate.English, user.Language)
	assert.Equal(t, "type1", user.DiabetesType)
	assert.Equal(t, "omar", user.Name, "untouched fields are preserved")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown diabetes type", map[string]any{"diabetesType": "type9"}},
		{"bad language", map[string]any{"language": "fr"}},
		{"negative age", map[string]any{"age": -1}},
		{"blank name", map[string]any{"name": "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPatch, "/api/user/profile", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFoods(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/api/foods", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]glucoplate.FoodRecord](t, rec), 3)

	rec = s.do(t, http.MethodGet, "/api/foods?q=rice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]glucoplate.FoodRecord](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, 6, found[0].ID)

	rec = s.do(t, http.MethodGet, "/api/foods?q=pizza", "", nil)
	assert.JSONEq(t, "[]", rec.Body.String())

	tests := []struct {
		path     string
		wantCode int
		wantMsg  string
	}{
		{"/api/foods/4", http.StatusOK, ""},
		{"/api/foods/abc", http.StatusBadRequest, "Invalid food ID"},
		{"/api/foods/999", http.StatusNotFound, "Food not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, message(t, rec))
			}
		})
	}
}

func TestAnalyzeManual(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodPost, "/api/analyze/manual", "", map[string]any{"foodIds": []int{6, 4}, "language": "en"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[glucoplate.FoodAnalysisResponse](t, rec)
	assert.Len(t, resp.RecognizedFoods, 2)
	assert.Equal(t, glucoplate.Avoid, resp.DiabetesSuitability.Overall)
	assert.InDelta(t, 295, resp.NutritionInfo.Calories, 1e-9)

	rec = s.do(t, http.MethodPost, "/api/analyze/manual", "", map[string]any{"foodIds": []int{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No foods selected", message(t, rec))

	rec = s.do(t, http.MethodPost, "/api/analyze/manual", "", map[string]any{"foodIds": []int{999}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No valid foods found", message(t, rec))
}

func multipartImage(t *testing.T, data []byte, language string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="plate.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if language != "" {
		require.NoError(t, w.WriteField("language", language))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAnalyzeImage(t *testing.T) {
	tests := []struct {
		name      string
		maxUpload int64
		data      []byte
		wantCode  int
	}{
		{name: "recognized plate", maxUpload: 1 << 20, data: []byte("\xff\xd8\xff\xe0 plate bytes"), wantCode: http.StatusOK},
		{name: "missing file", maxUpload: 1 << 20, data: nil, wantCode: http.StatusBadRequest},
		{name: "over the limit", maxUpload: 8, data: bytes.Repeat([]byte("x"), 64), wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.maxUpload)
			body, contentType := multipartImage(t, tt.data, "en")

			req := httptest.NewRequest(http.MethodPost, "/api/analyze/image", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			resp := decode[glucoplate.FoodAnalysisResponse](t, rec)
			require.Len(t, resp.RecognizedFoods, 1)
			assert.Equal(t, "Apple", resp.RecognizedFoods[0].Name)
			assert.Equal(t, glucoplate.Avoid, resp.DiabetesSuitability.Overall, "19g of sugar crosses the avoid limit")
			assert.Equal(t, glucoplate.Moderate, resp.DiabetesSuitability.Details["Apple"].Suitability)
			assert.True(t, resp.DiabetesSuitability.Details["Apple"].Matched)
		})
	}
}

func TestMealLogs(t *testing.T) {
	s := newTestServer(t, 0)
	owner := s.login(t, "owner")
	other := s.login(t, "other")

	rec := s.do(t, http.MethodPost, "/api/meal-logs", "", map[string]any{"foods": []any{map[string]any{"foodId": 4}}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/meal-logs", owner, map[string]any{"foods": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No foods provided", message(t, rec))

	rec = s.do(t, http.MethodPost, "/api/meal-logs", owner, map[string]any{"foods": []any{map[string]any{"foodId": 999}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/meal-logs", owner, map[string]any{"foods": []any{
		map[string]any{"foodId": 6, "amount": 200},
		map[string]any{"foodId": 4, "notes": "dinner"},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[[]glucoplate.MealLogEntry](t, rec)
	require.Len(t, created, 2)
	assert.Equal(t, float64(glucoplate.DefaultAmountGrams), created[1].AmountGrams)

	rec = s.do(t, http.MethodGet, "/api/meal-logs", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Entries []mealLogView       `json:"entries"`
		Summary analysis.LogSummary `json:"summary"`
	}](t, rec)
	require.Len(t, list.Entries, 2)
	require.NotNil(t, list.Entries[0].Food)
	assert.Equal(t, 4, list.Entries[0].Food.ID, "newest first")
	assert.Equal(t, 2, list.Summary.Entries)
	assert.InDelta(t, 56, list.Summary.Totals.Carbs, 1e-9)
	assert.Equal(t, glucoplate.Avoid, list.Summary.Verdict.Overall)

	rec = s.do(t, http.MethodGet, "/api/meal-logs", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Entries []mealLogView `json:"entries"`
	}](t, rec).Entries)

	target := created[0].ID.String()
	tests := []struct {
		name     string
		token    string
		id       string
		wantCode int
	}{
		{"invalid id", owner, "42", http.StatusBadRequest},
		{"not the owner", other, target, http.StatusForbidden},
		{"missing", owner, uuid.NewString(), http.StatusNotFound},
		{"owner deletes", owner, target, http.StatusOK},
		{"already gone", owner, target, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodDelete, "/api/meal-logs/"+tt.id, tt.token, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestChat(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodPost, "/api/chat", "", map[string]string{"message": "ما هو المؤشر الجلايسيمي؟"})
	require.Equal(t, http.StatusOK, rec.Code)
	anon := decode[map[string]string](t, rec)
	assert.Equal(t, "ar", anon["language"])
	assert.Equal(t, "echo", anon["provider"])
	assert.Contains(t, anon["answer"], "[ar]")

	rec = s.do(t, http.MethodPost, "/api/chat", "", map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := s.login(t, "layla")
	rec = s.do(t, http.MethodPost, "/api/chat", token, map[string]string{"message": "Is rice ok?", "language": "ar"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["answer"], "[ar]", "explicit language overrides detection")

	rec = s.do(t, http.MethodGet, "/api/chat/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]glucoplate.ChatExchange](t, rec)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsFromUser)
	assert.Equal(t, "Is rice ok?", history[0].MessageText)
	assert.False(t, history[1].IsFromUser)

	rec = s.do(t, http.MethodGet, "/api/chat/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", glucoplate.NewValidationError("x", "Bad x"), http.StatusBadRequest, "Bad x"},
		{"wrapped validation", fmt.Errorf("create: %w", glucoplate.NewValidationError("x", "Bad x")), http.StatusBadRequest, "Bad x"},
		{"unauthorized", fmt.Errorf("%w: nope", glucoplate.ErrUnauthorized), http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", glucoplate.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"not found message", glucoplate.NewNotFoundError("Food not found"), http.StatusNotFound, "Food not found"},
		{"conflict", glucoplate.ErrAlreadyExists, http.StatusConflict, "Already exists"},
		{"internal hidden", fmt.Errorf("db password is hunter2"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := statusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
