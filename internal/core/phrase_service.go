package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/tutor"
)

const maxPhraseWords = 20

var phraseSchema = &tutor.Schema{
	Type: tutor.SchemaObject,
	Properties: map[string]*tutor.Schema{
		"phrase":             {Type: tutor.SchemaString, Description: "The phrase in English."},
		"phrase_target_lang": {Type: tutor.SchemaString, Description: "The phrase in the target language, or empty."},
		"words_used": {
			Type:        tutor.SchemaArray,
			Description: "The given words that appear in the phrase.",
			Items:       &tutor.Schema{Type: tutor.SchemaString},
		},
	},
	Required: []string{"phrase", "words_used"},
}

type Phrase struct {
	Phrase           string   `json:"phrase"`
	PhraseTargetLang string   `json:"phrase_target_lang"`
	TargetLanguage   *string  `json:"target_language"`
	WordsUsed        []string `json:"words_used"`
}

type PhraseService struct {
	llm      tutor.Generator
	prompts  *tutor.Prompts
	profiles *ProfileService
	logger   *zap.Logger
}

func NewPhraseService(llm tutor.Generator, prompts *tutor.Prompts, profiles *ProfileService, logger *zap.Logger) *PhraseService {
	return &PhraseService{llm: llm, prompts: prompts, profiles: profiles, logger: logger.Named("phrase")}
}

// RandomPhrase writes a short phrase using the given words, translated into
// the learner's target language when one is set.
func (s *PhraseService) RandomPhrase(ctx context.Context, userID string, words []string) (*Phrase, error) {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperr.Validation("words cannot be empty")
	}
	if len(cleaned) > maxPhraseWords {
		return nil, apperr.Validation("at most %d words are allowed", maxPhraseWords)
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	data := tutor.PromptData{Message: strings.Join(cleaned, ", ")}
	if profile.TargetLanguage != nil {
		data.TargetLanguage = displayLanguage(*profile.TargetLanguage)
	} else {
		data.TargetLanguage = "none"
	}
	if profile.Context != nil {
		data.Context = *profile.Context
	}

	req, err := s.prompts.Phrase.Request(data, nil, phraseSchema)
	if err != nil {
		return nil, apperr.Upstream("could not build the phrase request", err)
	}
	raw, err := s.llm.Generate(ctx, req)
	if err != nil {
		s.logger.Error("phrase generation failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperr.Upstream("could not generate a phrase", err)
	}
	var out Phrase
	if err := tutor.DecodeJSON(raw, &out); err != nil {
		return nil, apperr.Upstream("could not generate a phrase", err)
	}
	out.Phrase = strings.TrimSpace(out.Phrase)
	if out.Phrase == "" {
		return nil, apperr.Upstream("could not generate a phrase", nil)
	}
	if profile.TargetLanguage == nil {
		out.PhraseTargetLang = ""
	}
	if out.WordsUsed == nil {
		out.WordsUsed = []string{}
	}
	out.TargetLanguage = profile.TargetLanguage
	return &out, nil
}
