package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"glucoplate"
	"glucoplate/analysis"
	"glucoplate/recognition"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *handler) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, glucoplate.NewValidationError("body", "Username and password are required"))
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) logout(c *gin.Context) {
	if token := bearerToken(c.GetHeader("Authorization")); token != "" && h.Auth != nil {
		h.Auth.Logout(token)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *handler) getProfile(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, user)
}

var diabetesTypes = map[string]bool{
	"type1":       true,
	"type2":       true,
	"gestational": true,
	"prediabetes": true,
	"none":        true,
}

func (h *handler) updateProfile(c *gin.Context) {
	var body struct {
		Name         *string `json:"name"`
		Age          *int    `json:"age"`
		DiabetesType *string `json:"diabetesType"`
		Preferences  *string `json:"preferences"`
		Language     *string `json:"language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, glucoplate.NewValidationError("body", "Invalid profile"))
		return
	}

	user, _ := currentUser(c)
	var fieldErrs []glucoplate.FieldError

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			fieldErrs = append(fieldErrs, glucoplate.FieldError{Field: "name", Message: "Name cannot be empty"})
		}
		user.Name = name
	}
	if body.Age != nil {
		if *body.Age < 0 || *body.Age > 130 {
			fieldErrs = append(fieldErrs, glucoplate.FieldError{Field: "age", Message: "Age must be between 0 and 130"})
		}
		user.Age = body.Age
	}
	if body.DiabetesType != nil {
		if !diabetesTypes[*body.DiabetesType] {
			fieldErrs = append(fieldErrs, glucoplate.FieldError{Field: "diabetesType", Message: "Unknown diabetes type"})
		}
		user.DiabetesType = *body.DiabetesType
	}
	if body.Preferences != nil {
		user.Preferences = *body.Preferences
	}
	if body.Language != nil {
		lang := glucoplate.ParseLanguage(*body.Language, "")
		if lang == "" {
			fieldErrs = append(fieldErrs, glucoplate.FieldError{Field: "language", Message: "Language must be ar or en"})
		}
		user.Language = lang
	}
	if len(fieldErrs) > 0 {
		abortWithError(c, &glucoplate.ValidationError{Errors: fieldErrs})
		return
	}

	updated, err := h.Users.Update(c.Request.Context(), user)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) listFoods(c *gin.Context) {
	foods := h.Foods.Search(c.Query("q"))
	if foods == nil {
		foods = []glucoplate.FoodRecord{}
	}
	c.JSON(http.StatusOK, foods)
}

func (h *handler) getFood(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, glucoplate.NewValidationError("id", "Invalid food ID"))
		return
	}

	food, ok := h.Foods.Get(id)
	if !ok {
		abortWithError(c, glucoplate.NewNotFoundError("Food not found"))
		return
	}
	c.JSON(http.StatusOK, food)
}

func (h *handler) analyzeImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, glucoplate.NewValidationError("image", "Image exceeds the upload limit"))
			return
		}
		abortWithError(c, glucoplate.NewValidationError("image", "No image file provided"))
		return
	}
	defer file.Close()

	if header.Size > h.MaxUploadBytes {
		abortWithError(c, glucoplate.NewValidationError("image", "Image exceeds the upload limit"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		abortWithError(c, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		abortWithError(c, glucoplate.NewValidationError("image", "Image exceeds the upload limit"))
		return
	}

	img := recognition.NewImage(data, header.Header.Get("Content-Type"))
	resp, err := h.Analyzer.AnalyzeImage(c.Request.Context(), img, h.language(c, c.PostForm("language")))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) analyzeManual(c *gin.Context) {
	var body struct {
		FoodIDs  []int  `json:"foodIds"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, glucoplate.NewValidationError("foodIds", "No foods selected"))
		return
	}

	resp, err := h.Analyzer.AnalyzeManual(c.Request.Context(), body.FoodIDs, h.language(c, body.Language))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type mealLogView struct {
	glucoplate.MealLogEntry
	Food *glucoplate.FoodRecord `json:"food"`
}

func (h *handler) listMealLogs(c *gin.Context) {
	user, _ := currentUser(c)
	ctx := c.Request.Context()

	entries, err := h.MealLogs.ListByUser(ctx, user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	views := make([]mealLogView, 0, len(entries))
	for _, e := range entries {
		v := mealLogView{MealLogEntry: e}
		if food, ok := h.Foods.Get(e.FoodID); ok {
			v.Food = &food
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": views,
		"summary": h.Analyzer.SummarizeLog(ctx, entries, h.language(c, c.Query("language"))),
	})
}

func (h *handler) createMealLogs(c *gin.Context) {
	var body struct {
		Foods []struct {
			FoodID int     `json:"foodId"`
			Amount float64 `json:"amount"`
			Notes  string  `json:"notes"`
		} `json:"foods"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Foods) == 0 {
		abortWithError(c, glucoplate.NewValidationError("foods", "No foods provided"))
		return
	}

	for _, f := range body.Foods {
		if _, ok := h.Foods.Get(f.FoodID); !ok {
			abortWithError(c, glucoplate.NewValidationError("foods", fmt.Sprintf("Unknown food ID %d", f.FoodID)))
			return
		}
		if f.Amount < 0 {
			abortWithError(c, glucoplate.NewValidationError("amount", "Amount cannot be negative"))
			return
		}
	}

	user, _ := currentUser(c)
	created := make([]glucoplate.MealLogEntry, 0, len(body.Foods))
	for _, f := range body.Foods {
		entry, err := h.MealLogs.Create(c.Request.Context(), glucoplate.MealLogEntry{
			UserID:      user.ID,
			FoodID:      f.FoodID,
			AmountGrams: f.Amount,
			Notes:       f.Notes,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		created = append(created, entry)
	}

	c.JSON(http.StatusCreated, created)
}

func (h *handler) deleteMealLog(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, glucoplate.NewValidationError("id", "Invalid log ID"))
		return
	}

	user, _ := currentUser(c)
	if err := h.MealLogs.Delete(c.Request.Context(), id, user.ID); err != nil {
		if errors.Is(err, glucoplate.ErrNotFound) {
			err = glucoplate.NewNotFoundError("Meal log not found")
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal log deleted successfully"})
}

func (h *handler) chat(c *gin.Context) {
	var body struct {
		Message  string `json:"message"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		abortWithError(c, glucoplate.NewValidationError("message", "Message is required"))
		return
	}

	// Only an explicit language overrides detection.
	lang := glucoplate.ParseLanguage(body.Language, "")
	ctx := c.Request.Context()
	user, authed := currentUser(c)

	if authed {
		if _, err := h.Chats.Create(ctx, glucoplate.ChatExchange{UserID: user.ID, MessageText: body.Message, IsFromUser: true}); err != nil {
			abortWithError(c, err)
			return
		}
	}

	reply := h.Chat.Respond(ctx, body.Message, lang)

	if authed {
		if _, err := h.Chats.Create(ctx, glucoplate.ChatExchange{UserID: user.ID, MessageText: reply.Text}); err != nil {
			slog.Error("CHAT: Failed to store reply", "user_id", user.ID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":   reply.Text,
		"language": reply.Language,
		"provider": reply.Provider,
	})
}

func (h *handler) chatHistory(c *gin.Context) {
	user, _ := currentUser(c)
	history, err := h.Chats.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if history == nil {
		history = []glucoplate.ChatExchange{}
	}
	c.JSON(http.StatusOK, history)
}

var _ Analyzer = (*analysis.Service)(nil)
