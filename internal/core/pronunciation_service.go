package core

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/store"
	"lingotutor.io/smart-tutor/internal/tutor"
)

const maxPronunciationWordLength = 64

var pronunciationSchema = &tutor.Schema{
	Type: tutor.SchemaObject,
	Properties: map[string]*tutor.Schema{
		"phonetic_transcription": {Type: tutor.SchemaString, Description: "IPA transcription."},
		"syllables":              stringList("The word split into syllables."),
		"pronunciation_tips":     stringList("Practical tips for sounds that are hard for English speakers."),
		"memory_aids":            stringList("Mnemonics or sound-alike English words."),
		"common_mistakes":        stringList("Typical learner mistakes."),
	},
	Required: []string{"phonetic_transcription", "syllables", "pronunciation_tips"},
}

func stringList(desc string) *tutor.Schema {
	return &tutor.Schema{Type: tutor.SchemaArray, Description: desc, Items: &tutor.Schema{Type: tutor.SchemaString}}
}

// PronunciationService serves pronunciation tips from a per-user cache,
// generating them on a miss. Concurrent misses for the same word share one
// generation.
type PronunciationService struct {
	dbStore  *store.SQLiteStore
	llm      tutor.Generator
	prompts  *tutor.Prompts
	profiles *ProfileService
	inflight singleflight.Group
	logger   *zap.Logger
}

func NewPronunciationService(db *store.SQLiteStore, llm tutor.Generator, prompts *tutor.Prompts, profiles *ProfileService, logger *zap.Logger) *PronunciationService {
	return &PronunciationService{dbStore: db, llm: llm, prompts: prompts, profiles: profiles, logger: logger.Named("pronunciation")}
}

func (s *PronunciationService) Tips(ctx context.Context, userID, word string) (*store.PronunciationTips, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, apperr.Validation("word cannot be empty")
	}
	if utf8.RuneCountInString(word) > maxPronunciationWordLength {
		return nil, apperr.Validation("word cannot be longer than %d characters", maxPronunciationWordLength)
	}
	key := strings.ToLower(word)

	cached, err := s.dbStore.GetPronunciationTips(ctx, userID, key)
	if err != nil {
		s.logger.Warn("pronunciation cache read failed", zap.String("user_id", userID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	// The shared call outlives any single caller's request.
	shared := context.WithoutCancel(ctx)
	v, err, coalesced := s.inflight.Do(userID+"\x00"+key, func() (any, error) {
		return s.generate(shared, userID, word, key)
	})
	if err != nil {
		return nil, err
	}
	if coalesced {
		s.logger.Debug("pronunciation request coalesced", zap.String("word", key))
	}
	return v.(*store.PronunciationTips), nil
}

func (s *PronunciationService) generate(ctx context.Context, userID, word, key string) (*store.PronunciationTips, error) {
	req, err := s.prompts.Pronunciation.Request(tutor.PromptData{
		TargetLanguage: s.profiles.TutorProfile(ctx, userID).TargetLanguage,
		Message:        word,
	}, nil, pronunciationSchema)
	if err != nil {
		return nil, apperr.Upstream("could not build the pronunciation request", err)
	}
	raw, err := s.llm.Generate(ctx, req)
	if err != nil {
		s.logger.Error("pronunciation generation failed", zap.String("word", key), zap.Error(err))
		return nil, apperr.Upstream("could not generate pronunciation tips", err)
	}
	var tips store.PronunciationTips
	if err := tutor.DecodeJSON(raw, &tips); err != nil {
		return nil, apperr.Upstream("could not generate pronunciation tips", err)
	}
	tips.Word = word
	for _, list := range []*[]string{&tips.Syllables, &tips.PronunciationTips, &tips.MemoryAids, &tips.CommonMistakes} {
		if *list == nil {
			*list = []string{}
		}
	}

	if err := s.dbStore.SavePronunciationTips(ctx, userID, key, &tips); err != nil {
		s.logger.Warn("pronunciation cache write failed", zap.String("word", key), zap.Error(err))
	}
	return &tips, nil
}
