package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", apiHandler.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiHandler.JWTAuthMiddleware)

		r.Post("/chat/message", apiHandler.PostMessageHandler)

		r.Get("/chats", apiHandler.ListChatsHandler)
		r.Post("/chats", apiHandler.CreateChatHandler)
		r.Patch("/chats/{chatID}", apiHandler.RenameChatHandler)
		r.Delete("/chats/{chatID}", apiHandler.DeleteChatHandler)
		r.Get("/chats/{chatID}/messages", apiHandler.ListMessagesHandler)

		r.Get("/word-pairs", apiHandler.ListWordPairsHandler)
		r.Delete("/word-pairs/{wordPairID}", apiHandler.DeleteWordPairHandler)

		r.Get("/profile", apiHandler.GetProfileHandler)
		r.Put("/profile/target-language", apiHandler.UpdateTargetLanguageHandler)

		r.Post("/random-phrase", apiHandler.RandomPhraseHandler)
		r.Post("/pronunciation-tips", apiHandler.PronunciationTipsHandler)
	})

	return r
}
