package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/core"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Chats         *core.ChatService
	Vocabulary    *core.VocabularyService
	Profiles      *core.ProfileService
	Phrases       *core.PhraseService
	Pronunciation *core.PronunciationService
	Health        Pinger
}

type APIHandler struct {
	chatService          *core.ChatService
	vocabularyService    *core.VocabularyService
	profileService       *core.ProfileService
	phraseService        *core.PhraseService
	pronunciationService *core.PronunciationService
	health               Pinger
	logger               *zap.Logger
}

func NewAPIHandler(s Services, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		chatService:          s.Chats,
		vocabularyService:    s.Vocabulary,
		profileService:       s.Profiles,
		phraseService:        s.Phrases,
		pronunciationService: s.Pronunciation,
		health:               s.Health,
		logger:               logger.Named("api"),
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type PostMessageRequest struct {
	ChatID  *string `json:"chat_id"`
	Message string  `json:"message"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := decodeBody(r, w, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	// A client that hangs up must not leave a turn half stored.
	ctx := context.WithoutCancel(r.Context())
	msg, err := h.chatService.PostMessage(ctx, userIDFrom(r.Context()), req.ChatID, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type CreateChatRequest struct {
	Title *string `json:"title"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	// The body is optional.
	if r.ContentLength != 0 {
		if err := decodeBody(r, w, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	chat, err := h.chatService.CreateChat(r.Context(), userIDFrom(r.Context()), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.GetChats(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

type RenameChatRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) RenameChatHandler(w http.ResponseWriter, r *http.Request) {
	var req RenameChatRequest
	if err := decodeBody(r, w, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	chat, err := h.chatService.RenameChat(r.Context(), chi.URLParam(r, "chatID"), userIDFrom(r.Context()), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.DeleteChat(r.Context(), chi.URLParam(r, "chatID"), userIDFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatService.GetMessages(r.Context(), chi.URLParam(r, "chatID"), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *APIHandler) ListWordPairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.vocabularyService.ListWordPairs(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (h *APIHandler) DeleteWordPairHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.vocabularyService.DeleteWordPair(r.Context(), chi.URLParam(r, "wordPairID"), userIDFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type TargetLanguageRequest struct {
	TargetLanguage string `json:"target_language"`
}

type TargetLanguageResponse struct {
	Success        bool    `json:"success"`
	TargetLanguage *string `json:"target_language"`
}

func (h *APIHandler) UpdateTargetLanguageHandler(w http.ResponseWriter, r *http.Request) {
	var req TargetLanguageRequest
	if err := decodeBody(r, w, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.profileService.SetTargetLanguage(r.Context(), userIDFrom(r.Context()), req.TargetLanguage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TargetLanguageResponse{Success: true, TargetLanguage: profile.TargetLanguage})
}

type RandomPhraseRequest struct {
	Words []string `json:"words"`
}

func (h *APIHandler) RandomPhraseHandler(w http.ResponseWriter, r *http.Request) {
	var req RandomPhraseRequest
	if err := decodeBody(r, w, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	phrase, err := h.phraseService.RandomPhrase(r.Context(), userIDFrom(r.Context()), req.Words)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phrase)
}

type PronunciationRequest struct {
	Word string `json:"word"`
}

func (h *APIHandler) PronunciationTipsHandler(w http.ResponseWriter, r *http.Request) {
	var req PronunciationRequest
	if err := decodeBody(r, w, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tips, err := h.pronunciationService.Tips(r.Context(), userIDFrom(r.Context()), req.Word)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tips)
}
