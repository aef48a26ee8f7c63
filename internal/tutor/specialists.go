package tutor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const codeGenerationFailed = "generation_failed"

// Specialist produces the response for one intent.
type Specialist interface {
	Handle(ctx context.Context, turn Turn) Draft
}

// ToolFinisher turns executed tool results into the final response.
type ToolFinisher interface {
	FinishTools(draft Draft, results []ToolResult) (Response, error)
}

// Draft is a specialist's answer before any requested tools have run.
type Draft struct {
	Response Response
	// ToolCalls are requested, not yet executed.
	ToolCalls []ToolCall
	Finisher  ToolFinisher
}

func final(r Response) Draft { return Draft{Response: r} }

var contentSchema = &Schema{
	Type: SchemaObject,
	Properties: map[string]*Schema{
		"content": stringField("The reply shown to the learner."),
	},
	Required: []string{"content"},
}

type contentOutput struct {
	Content string `json:"content"`
}

// textSpecialist answers with plain text from a single prompt. Translation
// and general conversation differ only in the prompt.
type textSpecialist struct {
	name    string
	gen     Generator
	prompt  Prompt
	prompts *Prompts
	logger  *zap.Logger
}

func NewTranslationSpecialist(gen Generator, prompts *Prompts, logger *zap.Logger) Specialist {
	return &textSpecialist{name: "translation", gen: gen, prompt: prompts.Translation, prompts: prompts, logger: logger.Named("translation")}
}

func NewGeneralSpecialist(gen Generator, prompts *Prompts, logger *zap.Logger) Specialist {
	return &textSpecialist{name: "general", gen: gen, prompt: prompts.General, prompts: prompts, logger: logger.Named("general")}
}

func (s *textSpecialist) Handle(ctx context.Context, turn Turn) Draft {
	var out contentOutput
	if err := generateInto(ctx, s.gen, s.prompt, turn, contentSchema, &out); err != nil {
		s.logger.Error("generation failed", zap.String("user_id", turn.UserID), zap.Error(err))
		return final(NewError(s.prompts.Unavailable(), codeGenerationFailed))
	}
	return final(NewText(out.Content))
}

const (
	actionSave    = "save"
	actionSuggest = "suggest"
	actionExplain = "explain"
)

var vocabularySchema = &Schema{
	Type: SchemaObject,
	Properties: map[string]*Schema{
		"action":      enumField("What to do with this message.", actionSave, actionSuggest, actionExplain),
		"content":     stringField("The reply shown to the learner."),
		"word":        stringField("Word to save or suggest, empty for explain."),
		"translation": stringField("Translation of word, empty for explain."),
		"example":     stringField("Example sentence using the word, may be empty."),
	},
	Required: []string{"action", "content"},
}

type vocabularyOutput struct {
	Action      string `json:"action"`
	Content     string `json:"content"`
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

// VocabularySpecialist suggests words worth learning and turns explicit save
// requests into save_word_pair tool calls.
type VocabularySpecialist struct {
	gen     Generator
	prompts *Prompts
	logger  *zap.Logger
}

func NewVocabularySpecialist(gen Generator, prompts *Prompts, logger *zap.Logger) *VocabularySpecialist {
	return &VocabularySpecialist{gen: gen, prompts: prompts, logger: logger.Named("vocabulary")}
}

func (s *VocabularySpecialist) Handle(ctx context.Context, turn Turn) Draft {
	var out vocabularyOutput
	if err := generateInto(ctx, s.gen, s.prompts.Vocabulary, turn, vocabularySchema, &out); err != nil {
		s.logger.Error("generation failed", zap.String("user_id", turn.UserID), zap.Error(err))
		return final(NewError(s.prompts.Unavailable(), codeGenerationFailed))
	}

	switch out.Action {
	case actionSave:
		call := SaveWordPairCall(strings.TrimSpace(out.Word), strings.TrimSpace(out.Translation), strings.TrimSpace(out.Example))
		return Draft{Response: NewText(out.Content), ToolCalls: []ToolCall{call}, Finisher: s}
	case actionSuggest:
		resp, err := NewWordSuggestion(out.Content, WordSuggestion{
			Word:        out.Word,
			Translation: out.Translation,
			Example:     out.Example,
		})
		if err != nil {
			// An incomplete suggestion is still a useful answer.
			s.logger.Warn("incomplete word suggestion, answering as text", zap.Error(err))
			return final(NewText(out.Content))
		}
		return final(resp)
	default:
		return final(NewText(out.Content))
	}
}

// FinishTools confirms the saved pair. Only the first save is reported; the
// specialist never requests more than one.
func (s *VocabularySpecialist) FinishTools(draft Draft, results []ToolResult) (Response, error) {
	if len(results) == 0 {
		return Response{}, fmt.Errorf("no tool results to confirm")
	}
	r := results[0]
	calls := make([]ToolCall, 0, len(results))
	for _, res := range results {
		calls = append(calls, res.Call)
	}

	content := fmt.Sprintf("Done! I've added '%s → %s' to your flashcard deck.", r.SourceWord, r.TranslatedWord)
	if !r.Created {
		content = fmt.Sprintf("'%s → %s' is already in your flashcard deck.", r.SourceWord, r.TranslatedWord)
	}
	return NewSaveConfirmation(content, SaveConfirmation{
		WordPairID:     r.WordPairID,
		SourceWord:     r.SourceWord,
		TranslatedWord: r.TranslatedWord,
		AlreadySaved:   !r.Created,
	}, calls)
}

func generateInto(ctx context.Context, gen Generator, prompt Prompt, turn Turn, schema *Schema, out any) error {
	req, err := prompt.Request(PromptData{
		TargetLanguage: turn.Profile.TargetLanguage,
		Context:        turn.Profile.Context,
		Message:        turn.Message,
		KnownWords:     turn.KnownWords,
	}, turn.History, schema)
	if err != nil {
		return err
	}
	raw, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := DecodeJSON(raw, out); err != nil {
		return err
	}
	if c, ok := out.(interface{ reply() string }); ok && strings.TrimSpace(c.reply()) == "" {
		return fmt.Errorf("model returned empty content")
	}
	return nil
}

func (o *contentOutput) reply() string    { return o.Content }
func (o *vocabularyOutput) reply() string { return o.Content }
