package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTextSpecialists(t *testing.T) {
	prompts := mustPrompts(t)
	gen := &fakeGenerator{reply: `{"content":"Dzień dobry! (JEN DOB-ri)"}`}

	for name, s := range map[string]Specialist{
		"translation": NewTranslationSpecialist(gen, prompts, zap.NewNop()),
		"general":     NewGeneralSpecialist(gen, prompts, zap.NewNop()),
	} {
		t.Run(name, func(t *testing.T) {
			draft := s.Handle(context.Background(), Turn{Message: "good morning", Profile: Profile{TargetLanguage: "polish"}})
			assert.Equal(t, TypeText, draft.Response.Type())
			assert.Equal(t, "Dzień dobry! (JEN DOB-ri)", draft.Response.Content())
			assert.Empty(t, draft.ToolCalls)
		})
	}

	last := gen.requests[len(gen.requests)-1]
	assert.Contains(t, last.Instruction, "polish")
	assert.Contains(t, last.Prompt, "good morning")
}

func TestSpecialistFailuresAreDeterministic(t *testing.T) {
	prompts := mustPrompts(t)
	cases := map[string]*fakeGenerator{
		"call error":    {replyErr: errUpstream},
		"garbage":       {reply: "sure! here you go"},
		"empty content": {reply: `{"content":"  "}`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			for _, s := range []Specialist{
				NewTranslationSpecialist(gen, prompts, zap.NewNop()),
				NewVocabularySpecialist(gen, prompts, zap.NewNop()),
			} {
				draft := s.Handle(context.Background(), Turn{Message: "x"})
				assert.Equal(t, TypeError, draft.Response.Type())
				assert.Equal(t, prompts.Unavailable(), draft.Response.Content())
				assert.Equal(t, ErrorDetail{Code: codeGenerationFailed}, draft.Response.Data())
			}
		})
	}
}

func TestVocabularySuggestion(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n" + `{"action":"suggest","content":"Try this one:","word":"krzesło","translation":"chair","example":"Kot siedzi na krześle."}` + "\n```"}
	s := NewVocabularySpecialist(gen, mustPrompts(t), zap.NewNop())

	draft := s.Handle(context.Background(), Turn{Message: "Give me a furniture word", KnownWords: []KnownWord{{"kot", "cat"}}})
	assert.Equal(t, TypeWordSuggestion, draft.Response.Type())
	assert.Equal(t, WordSuggestion{Word: "krzesło", Translation: "chair", Example: "Kot siedzi na krześle."}, draft.Response.Data())
	assert.Empty(t, draft.ToolCalls, "suggestions are saved only after the learner confirms")
	assert.Contains(t, gen.requests[0].Prompt, "kot = cat")
}

func TestVocabularyIncompleteSuggestionFallsBackToText(t *testing.T) {
	gen := &fakeGenerator{reply: `{"action":"suggest","content":"Maybe learn 'stół'?","word":"stół"}`}
	s := NewVocabularySpecialist(gen, mustPrompts(t), zap.NewNop())

	draft := s.Handle(context.Background(), Turn{Message: "word please"})
	assert.Equal(t, TypeText, draft.Response.Type())
	assert.Equal(t, "Maybe learn 'stół'?", draft.Response.Content())
}

func TestVocabularySaveRequestsTool(t *testing.T) {
	gen := &fakeGenerator{reply: `{"action":"save","content":"Saving it.","word":" kot ","translation":"cat","example":"Kot siedzi na krześle."}`}
	s := NewVocabularySpecialist(gen, mustPrompts(t), zap.NewNop())

	draft := s.Handle(context.Background(), Turn{Message: `Save "kot" → "cat"`})
	require.Len(t, draft.ToolCalls, 1)
	assert.Equal(t, SaveWordPairCall("kot", "cat", "Kot siedzi na krześle."), draft.ToolCalls[0])
	assert.Same(t, s, draft.Finisher)
}

func TestVocabularyFinishTools(t *testing.T) {
	s := NewVocabularySpecialist(&fakeGenerator{}, mustPrompts(t), zap.NewNop())
	call := SaveWordPairCall("kot", "cat", "")

	created, err := s.FinishTools(Draft{}, []ToolResult{{Call: call, WordPairID: "wp-1", SourceWord: "kot", TranslatedWord: "cat", Created: true}})
	require.NoError(t, err)
	assert.Equal(t, TypeSaveConfirmation, created.Type())
	assert.Equal(t, SaveConfirmation{WordPairID: "wp-1", SourceWord: "kot", TranslatedWord: "cat"}, created.Data())
	assert.Equal(t, []ToolCall{call}, created.ToolCalls())

	existing, err := s.FinishTools(Draft{}, []ToolResult{{Call: call, WordPairID: "wp-1", SourceWord: "kot", TranslatedWord: "cat"}})
	require.NoError(t, err)
	assert.Contains(t, existing.Content(), "already")
	assert.True(t, existing.Data().(SaveConfirmation).AlreadySaved)

	_, err = s.FinishTools(Draft{}, nil)
	assert.Error(t, err)
}
