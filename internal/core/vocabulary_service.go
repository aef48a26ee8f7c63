package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/store"
	"lingotutor.io/smart-tutor/internal/tutor"
)

// knownWordsLimit caps how many saved pairs are shown to the vocabulary
// specialist as context.
const knownWordsLimit = 20

type VocabularyService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewVocabularyService(db *store.SQLiteStore, logger *zap.Logger) *VocabularyService {
	return &VocabularyService{dbStore: db, logger: logger.Named("vocabulary")}
}

func (s *VocabularyService) ListWordPairs(ctx context.Context, userID string) ([]store.WordPair, error) {
	pairs, err := s.dbStore.GetWordPairsByUserID(ctx, userID, 0)
	if err != nil {
		return nil, apperr.Persistence("list word pairs", err)
	}
	return pairs, nil
}

func (s *VocabularyService) DeleteWordPair(ctx context.Context, id, userID string) error {
	if err := s.dbStore.DeleteWordPair(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("word pair")
		}
		return apperr.Persistence("delete word pair", err)
	}
	return nil
}

// KnownWords returns the learner's most recently saved pairs. A lookup
// failure yields no context rather than failing the turn.
func (s *VocabularyService) KnownWords(ctx context.Context, userID string) []tutor.KnownWord {
	pairs, err := s.dbStore.GetWordPairsByUserID(ctx, userID, knownWordsLimit)
	if err != nil {
		s.logger.Warn("failed to load known words, proceeding without them", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	known := make([]tutor.KnownWord, 0, len(pairs))
	for _, p := range pairs {
		known = append(known, tutor.KnownWord{SourceWord: p.SourceWord, TranslatedWord: p.TranslatedWord})
	}
	return known
}
