package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/store"
	"lingotutor.io/smart-tutor/internal/tutor"
)

const maxTitleLength = 80

type ChatService struct {
	dbStore      *store.SQLiteStore
	tutor        *tutor.Tutor
	profiles     *ProfileService
	vocabulary   *VocabularyService
	llm          tutor.Generator // For title generation
	prompts      *tutor.Prompts
	historyLimit int
	logger       *zap.Logger

	titles sync.WaitGroup
}

func NewChatService(db *store.SQLiteStore, t *tutor.Tutor, profiles *ProfileService, vocabulary *VocabularyService,
	llm tutor.Generator, prompts *tutor.Prompts, historyLimit int, logger *zap.Logger) *ChatService {
	return &ChatService{
		dbStore:      db,
		tutor:        t,
		profiles:     profiles,
		vocabulary:   vocabulary,
		llm:          llm,
		prompts:      prompts,
		historyLimit: historyLimit,
		logger:       logger.Named("chat"),
	}
}

// Close waits for background title generation to finish.
func (s *ChatService) Close() {
	s.titles.Wait()
}

func (s *ChatService) CreateChat(ctx context.Context, userID string, title *string) (*store.Chat, error) {
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			title = nil
		} else {
			title = &trimmed
		}
	}
	chat, err := s.dbStore.CreateChat(ctx, userID, title)
	if err != nil {
		return nil, apperr.Persistence("create chat", err)
	}
	return chat, nil
}

func (s *ChatService) GetChats(ctx context.Context, userID string) ([]store.Chat, error) {
	chats, err := s.dbStore.GetChatsByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("list chats", err)
	}
	return chats, nil
}

func (s *ChatService) RenameChat(ctx context.Context, chatID, userID, title string) (*store.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperr.Validation("title cannot be longer than %d characters", maxTitleLength)
	}
	if err := s.dbStore.UpdateChatTitle(ctx, chatID, userID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("chat")
		}
		return nil, apperr.Persistence("rename chat", err)
	}
	return s.getOwnedChat(ctx, chatID, userID)
}

func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	if err := s.dbStore.DeleteChat(ctx, chatID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("chat")
		}
		return apperr.Persistence("delete chat", err)
	}
	return nil
}

func (s *ChatService) GetMessages(ctx context.Context, chatID, userID string) ([]store.Message, error) {
	if _, err := s.getOwnedChat(ctx, chatID, userID); err != nil {
		return nil, err
	}
	messages, err := s.dbStore.GetMessagesByChatID(ctx, chatID)
	if err != nil {
		return nil, apperr.Persistence("list messages", err)
	}
	return messages, nil
}

// PostMessage runs one chat turn: it stores the learner's message, asks the
// tutor for a response and stores that too. A nil chatID starts a new chat.
// If a write fails after the chat was created, the empty chat is kept.
func (s *ChatService) PostMessage(ctx context.Context, userID string, chatID *string, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message cannot be empty")
	}

	var chat *store.Chat
	var err error
	if chatID == nil || strings.TrimSpace(*chatID) == "" {
		chat, err = s.CreateChat(ctx, userID, nil)
	} else {
		chat, err = s.getOwnedChat(ctx, *chatID, userID)
	}
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("user_id", userID), zap.String("chat_id", chat.ID))

	// History is read before the new turn is stored so it holds prior turns only.
	history, err := s.dbStore.GetLastNMessagesByChatID(ctx, chat.ID, s.historyLimit)
	if err != nil {
		log.Warn("failed to load chat history, proceeding without it", zap.Error(err))
		history = nil
	}

	userMsg := store.Message{ChatID: chat.ID, Role: tutor.RoleUser, Content: tutor.NewText(text)}
	if err := s.dbStore.AppendMessage(ctx, &userMsg); err != nil {
		return nil, apperr.Persistence("store user message", err)
	}

	turn := tutor.Turn{
		UserID:     userID,
		Message:    text,
		History:    toHistory(history),
		Profile:    s.profiles.TutorProfile(ctx, userID),
		KnownWords: s.vocabulary.KnownWords(ctx, userID),
	}
	resp, err := s.tutor.Respond(ctx, turn)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Persistence("produce tutor response", err)
	}

	modelMsg := store.Message{ChatID: chat.ID, Role: tutor.RoleAssistant, Content: resp}
	if err := s.dbStore.AppendMessage(ctx, &modelMsg); err != nil {
		return nil, apperr.Persistence("store assistant message", err)
	}
	log.Info("chat turn completed", zap.String("response_type", string(resp.Type())))

	if chat.Title == nil || *chat.Title == "" {
		s.titles.Add(1)
		go func() {
			defer s.titles.Done()
			s.generateAndSaveChatTitle(context.WithoutCancel(ctx), chat.ID, userID, text)
		}()
	}
	return &modelMsg, nil
}

func (s *ChatService) getOwnedChat(ctx context.Context, chatID, userID string) (*store.Chat, error) {
	chat, err := s.dbStore.GetChatByID(ctx, chatID, userID)
	if err != nil {
		return nil, apperr.Persistence("load chat", err)
	}
	if chat == nil {
		return nil, apperr.NotFound("chat")
	}
	return chat, nil
}

func (s *ChatService) generateAndSaveChatTitle(ctx context.Context, chatID, userID, basisContent string) {
	log := s.logger.With(zap.String("chat_id", chatID))

	req, err := s.prompts.Title.Request(tutor.PromptData{Message: basisContent}, nil, nil)
	if err != nil {
		log.Error("failed to render title prompt", zap.Error(err))
		return
	}
	title, err := s.llm.Generate(ctx, req)
	if err != nil {
		log.Warn("failed to generate title", zap.Error(err))
		return
	}
	title = strings.Trim(title, "\"'\n\r\t .")
	if title == "" {
		return
	}
	title = truncateRunes(title, maxTitleLength)

	// A rename that raced ahead of us wins.
	chat, err := s.dbStore.GetChatByID(ctx, chatID, userID)
	if err != nil || chat == nil || (chat.Title != nil && *chat.Title != "") {
		return
	}
	if err := s.dbStore.UpdateChatTitle(ctx, chatID, userID, title); err != nil {
		log.Warn("failed to save generated title", zap.String("title", title), zap.Error(err))
		return
	}
	log.Debug("generated chat title", zap.String("title", title))
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func toHistory(messages []store.Message) []tutor.HistoryEntry {
	out := make([]tutor.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, tutor.HistoryEntry{Role: m.Role, Text: m.Content.Content()})
	}
	return out
}
