package core

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
	"lingotutor.io/smart-tutor/internal/store"
	"lingotutor.io/smart-tutor/internal/tutor"
)

// SupportedLanguages are the target languages a learner can pick.
var SupportedLanguages = []string{"polish", "belarusian", "italian"}

type ProfileService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewProfileService(db *store.SQLiteStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{dbStore: db, logger: logger.Named("profile")}
}

// GetProfile returns the learner's profile, creating an empty one on first use.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*store.Profile, error) {
	p, err := s.dbStore.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("load profile", err)
	}
	return p, nil
}

func (s *ProfileService) SetTargetLanguage(ctx context.Context, userID, language string) (*store.Profile, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if !slices.Contains(SupportedLanguages, language) {
		return nil, apperr.Validation("target_language must be one of: %s", strings.Join(SupportedLanguages, ", "))
	}
	p, err := s.dbStore.UpdateTargetLanguage(ctx, userID, language)
	if err != nil {
		return nil, apperr.Persistence("update target language", err)
	}
	s.logger.Info("target language updated", zap.String("user_id", userID), zap.String("target_language", language))
	return p, nil
}

// TutorProfile is the profile as prompt context. Lookup failures give an
// empty profile so the turn still runs with defaults.
func (s *ProfileService) TutorProfile(ctx context.Context, userID string) tutor.Profile {
	p, err := s.dbStore.GetOrCreateProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load profile, using defaults", zap.String("user_id", userID), zap.Error(err))
		return tutor.Profile{}
	}
	var out tutor.Profile
	if p.TargetLanguage != nil {
		out.TargetLanguage = displayLanguage(*p.TargetLanguage)
	}
	if p.Context != nil {
		out.Context = strings.TrimSpace(*p.Context)
	}
	return out
}

func displayLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	return strings.ToUpper(lang[:1]) + lang[1:]
}
