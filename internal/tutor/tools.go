package tutor

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
)

const ToolSaveWordPair = "save_word_pair"

const (
	ArgSourceWord      = "source_word"
	ArgTranslatedWord  = "translated_word"
	ArgContextSentence = "context_sentence"
)

type WordPairInput struct {
	UserID          string
	SourceWord      string
	TranslatedWord  string
	ContextSentence string
}

// WordPairStore persists word pairs idempotently on (user, source, translation).
type WordPairStore interface {
	SaveWordPair(ctx context.Context, in WordPairInput) (id string, created bool, err error)
}

type ToolResult struct {
	Call           ToolCall
	WordPairID     string
	SourceWord     string
	TranslatedWord string
	Created        bool
}

// Executor runs tool calls requested by specialists. It never talks to the LLM.
type Executor struct {
	store  WordPairStore
	logger *zap.Logger
}

func NewExecutor(store WordPairStore, logger *zap.Logger) *Executor {
	return &Executor{store: store, logger: logger.Named("tools")}
}

func SaveWordPairCall(source, translated, example string) ToolCall {
	args := map[string]string{
		ArgSourceWord:     source,
		ArgTranslatedWord: translated,
	}
	if example != "" {
		args[ArgContextSentence] = example
	}
	return ToolCall{Name: ToolSaveWordPair, Arguments: args}
}

// Execute validates and runs one call on behalf of userID. Bad arguments come
// back as validation errors; storage failures as persistence errors.
func (e *Executor) Execute(ctx context.Context, userID string, call ToolCall) (ToolResult, error) {
	if call.Name != ToolSaveWordPair {
		return ToolResult{}, apperr.Validation("unknown tool %q", call.Name)
	}

	in := WordPairInput{
		UserID:          strings.TrimSpace(userID),
		SourceWord:      strings.TrimSpace(call.Arguments[ArgSourceWord]),
		TranslatedWord:  strings.TrimSpace(call.Arguments[ArgTranslatedWord]),
		ContextSentence: strings.TrimSpace(call.Arguments[ArgContextSentence]),
	}
	switch {
	case in.UserID == "":
		return ToolResult{}, apperr.Validation("save_word_pair requires an owner")
	case in.SourceWord == "":
		return ToolResult{}, apperr.Validation("save_word_pair requires a source word")
	case in.TranslatedWord == "":
		return ToolResult{}, apperr.Validation("save_word_pair requires a translated word")
	}

	id, created, err := e.store.SaveWordPair(ctx, in)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return ToolResult{}, err
		}
		return ToolResult{}, apperr.Persistence("save word pair", err)
	}

	e.logger.Info("word pair saved",
		zap.String("user_id", in.UserID),
		zap.String("word_pair_id", id),
		zap.Bool("created", created))

	return ToolResult{
		Call:           call,
		WordPairID:     id,
		SourceWord:     in.SourceWord,
		TranslatedWord: in.TranslatedWord,
		Created:        created,
	}, nil
}
