package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/auth"
)

type contextKey string

const (
	userIDKey       contextKey = "userID"
	requestScopeKey contextKey = "requestScope"
)

// requestScope lets inner middleware report facts back to the access log.
type requestScope struct {
	userID string
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			scope := &requestScope{}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestScopeKey, scope)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if scope.userID != "" {
				fields = append(fields, zap.String("user_id", scope.userID))
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.writeError(w, r, apperr.Unauthorized("authorization header is required"))
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			h.writeError(w, r, apperr.Unauthorized("authorization header must be a bearer token"))
			return
		}

		userID, err := auth.ValidateJWT(strings.TrimSpace(tokenString))
		if err != nil {
			h.logger.Debug("rejected token", zap.Error(err))
			h.writeError(w, r, apperr.Unauthorized("invalid token"))
			return
		}

		if scope, ok := r.Context().Value(requestScopeKey).(*requestScope); ok {
			scope.userID = userID
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
