// Package httpapi exposes the analysis pipeline, meal log, chat and profile
// operations over HTTP using gin.
package httpapi

import (
	"context"
	"net/http"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/auth"
	"glucoplate/chat"
	"glucoplate/recognition"
	"glucoplate/store"

	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
	Logout(token string)
	Authenticate(ctx context.Context, token string) (glucoplate.User, error)
}

type FoodCatalog interface {
	All() []glucoplate.FoodRecord
	Get(id int) (glucoplate.FoodRecord, bool)
	Search(query string) []glucoplate.FoodRecord
}

type Analyzer interface {
	AnalyzeImage(ctx context.Context, img *recognition.Image, lang glucoplate.Language) (glucoplate.FoodAnalysisResponse, error)
	AnalyzeManual(ctx context.Context, foodIDs []int, lang glucoplate.Language) (glucoplate.FoodAnalysisResponse, error)
	SummarizeLog(ctx context.Context, entries []glucoplate.MealLogEntry, lang glucoplate.Language) analysis.LogSummary
}

type Responder interface {
	Respond(ctx context.Context, message string, lang glucoplate.Language) chat.Reply
}

// Deps holds everything the handlers call into.
type Deps struct {
	Auth     Authenticator
	Foods    FoodCatalog
	Analyzer Analyzer
	Chat     Responder
	Users    store.UserRepository
	MealLogs store.MealLogRepository
	Chats    store.ChatRepository

	MaxUploadBytes  int64
	DefaultLanguage glucoplate.Language
}

type handler struct {
	Deps
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(deps Deps) *gin.Engine {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 5 << 20
	}
	deps.DefaultLanguage = glucoplate.ParseLanguage(string(deps.DefaultLanguage), glucoplate.Arabic)
	h := &handler{Deps: deps}

	r := gin.New()
	r.Use(recovery(), tracing(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Login and logout must work with a stale token still in the header.
	session := r.Group("/api/auth")
	{
		session.POST("/login", h.login)
		session.POST("/logout", h.logout)
	}

	api := r.Group("/api")
	api.Use(authenticate(deps.Auth))
	{
		api.GET("/foods", h.listFoods)
		api.GET("/foods/:id", h.getFood)

		api.POST("/analyze/image", h.analyzeImage)
		api.POST("/analyze/manual", h.analyzeManual)

		api.POST("/chat", h.chat)
	}

	private := api.Group("")
	private.Use(requireAuth())
	{
		private.GET("/user/profile", h.getProfile)
		private.PATCH("/user/profile", h.updateProfile)

		private.GET("/meal-logs", h.listMealLogs)
		private.POST("/meal-logs", h.createMealLogs)
		private.DELETE("/meal-logs/:id", h.deleteMealLog)

		private.GET("/chat/history", h.chatHistory)
	}

	return r
}

// language picks the request's language, then the caller's preference, then
// the server default.
func (h *handler) language(c *gin.Context, requested string) glucoplate.Language {
	fallback := h.DefaultLanguage
	if user, ok := currentUser(c); ok && user.Language != "" {
		fallback = user.Language
	}
	return glucoplate.ParseLanguage(requested, fallback)
}
