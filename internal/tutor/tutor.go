// Package tutor routes a learner's chat message to a specialist, runs any
// tool the specialist asks for and returns the typed response envelope.
package tutor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
)

const codeInvalidToolCall = "invalid_tool_call"

type Tutor struct {
	router   *Router
	executor *Executor
	logger   *zap.Logger
}

// New wires the default specialists for every routed intent.
func New(gen Generator, prompts *Prompts, store WordPairStore, logger *zap.Logger) (*Tutor, error) {
	router, err := NewRouter(gen, prompts, map[Intent]Specialist{
		IntentTranslation: NewTranslationSpecialist(gen, prompts, logger),
		IntentVocabulary:  NewVocabularySpecialist(gen, prompts, logger),
		IntentGeneral:     NewGeneralSpecialist(gen, prompts, logger),
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Tutor{router: router, executor: NewExecutor(store, logger), logger: logger.Named("tutor")}, nil
}

// Respond produces the assistant response for one turn. It fails only on
// empty input (validation) or when a requested tool could not persist.
func (t *Tutor) Respond(ctx context.Context, turn Turn) (Response, error) {
	draft, err := t.router.Route(ctx, turn)
	if err != nil {
		return Response{}, err
	}
	if len(draft.ToolCalls) == 0 {
		return draft.Response, nil
	}
	if draft.Finisher == nil {
		return Response{}, fmt.Errorf("draft requested %d tool calls without a finisher", len(draft.ToolCalls))
	}

	results := make([]ToolResult, 0, len(draft.ToolCalls))
	for _, call := range draft.ToolCalls {
		res, err := t.executor.Execute(ctx, turn.UserID, call)
		if err != nil {
			if apperr.Is(err, apperr.KindValidation) {
				t.logger.Warn("rejected tool call", zap.String("tool", call.Name), zap.Error(err))
				e, _ := apperr.As(err)
				return NewError("I couldn't save that: "+e.Public()+".", codeInvalidToolCall, draft.ToolCalls...), nil
			}
			return Response{}, err
		}
		results = append(results, res)
	}
	return draft.Finisher.FinishTools(draft, results)
}
