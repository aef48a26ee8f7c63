package store

import (
	"time"

	"lingotutor.io/smart-tutor/internal/tutor"
)

type Profile struct {
	ID             string    `json:"id"`
	Context        *string   `json:"context"`         // Nullable
	TargetLanguage *string   `json:"target_language"` // Nullable
	CreatedAt      time.Time `json:"created_at"`
}

type Chat struct {
	ID        string    `json:"id"` // UUID
	UserID    string    `json:"user_id"`
	Title     *string   `json:"title"` // Nullable
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        string         `json:"id"` // UUID
	ChatID    string         `json:"chat_id"`
	Role      tutor.Role     `json:"role"`
	Content   tutor.Response `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

type WordPair struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SourceWord      string    `json:"source_word"`
	TranslatedWord  string    `json:"translated_word"`
	ContextSentence *string   `json:"context_sentence"` // Nullable
	CreatedAt       time.Time `json:"created_at"`
}

type PronunciationTips struct {
	Word                  string   `json:"word"`
	PhoneticTranscription string   `json:"phonetic_transcription"`
	Syllables             []string `json:"syllables"`
	PronunciationTips     []string `json:"pronunciation_tips"`
	MemoryAids            []string `json:"memory_aids"`
	CommonMistakes        []string `json:"common_mistakes"`
}
