package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"glucoplate"
	"glucoplate/analysis"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const userKey = "user"

// authenticate resolves a Bearer token into the caller. A missing header
// leaves the request anonymous; a bad token is rejected.
func authenticate(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" || authn == nil {
			c.Next()
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			slog.Debug("AUTH: Rejected token", "path", c.FullPath(), "error", err)
			abortWithError(c, fmt.Errorf("%w: invalid token", glucoplate.ErrUnauthorized))
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(analysis.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			abortWithError(c, fmt.Errorf("%w: authentication required", glucoplate.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func currentUser(c *gin.Context) (glucoplate.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return glucoplate.User{}, false
	}
	user, ok := v.(glucoplate.User)
	return user, ok
}

func tracing() gin.HandlerFunc {
	tracer := otel.Tracer(glucoplate.TracerNameHTTP)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if user, ok := currentUser(c); ok {
			attrs = append(attrs, "user_id", user.ID.String())
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			slog.Error("HTTP: Request", attrs...)
			return
		}
		slog.Info("HTTP: Request", attrs...)
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("HTTP: Panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// abortWithError maps domain errors onto status codes. Messages of
// unexpected errors are never returned to the client.
func abortWithError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("HTTP: Handler failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func statusFor(err error) (int, string) {
	var (
		validation *glucoplate.ValidationError
		notFound   *glucoplate.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, glucoplate.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, glucoplate.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, glucoplate.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Message
	case errors.Is(err, glucoplate.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, glucoplate.ErrAlreadyExists):
		return http.StatusConflict, "Already exists"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
