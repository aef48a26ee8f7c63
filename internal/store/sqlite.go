package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"lingotutor.io/smart-tutor/internal/tutor"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

const dsnDefaults = "_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", withDefaults(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func withDefaults(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + dsnDefaults
	}
	return dsn + "?" + dsnDefaults
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        id TEXT PRIMARY KEY, -- auth subject
        context TEXT,
        target_language TEXT CHECK (target_language IN ('polish', 'belarusian', 'italian')),
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_chats_user_updated ON chats (user_id, updated_at);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
        content TEXT NOT NULL, -- JSON response envelope
        created_at DATETIME NOT NULL,
        FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
    );
    CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at);

    CREATE TABLE IF NOT EXISTS word_pairs (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        source_word TEXT NOT NULL,
        translated_word TEXT NOT NULL,
        context_sentence TEXT,
        created_at DATETIME NOT NULL,
        UNIQUE (user_id, source_word, translated_word)
    );

    CREATE TABLE IF NOT EXISTS pronunciation_tips (
        user_id TEXT NOT NULL,
        word TEXT NOT NULL,
        tips_json TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (user_id, word)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Profile methods
func (s *SQLiteStore) GetOrCreateProfile(ctx context.Context, userID string) (*Profile, error) {
	_, err := s.db.ExecContext(ctx, "INSERT INTO profiles (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return s.getProfile(ctx, userID)
}

func (s *SQLiteStore) UpdateTargetLanguage(ctx context.Context, userID, targetLanguage string) (*Profile, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO profiles (id, target_language, created_at) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET target_language = excluded.target_language`,
		userID, targetLanguage, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update target language: %w", err)
	}
	return s.getProfile(ctx, userID)
}

func (s *SQLiteStore) getProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	var userContext, lang sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT id, context, target_language, created_at FROM profiles WHERE id = ?", userID).
		Scan(&p.ID, &userContext, &lang, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Context = nullableString(userContext)
	p.TargetLanguage = nullableString(lang)
	return &p, nil
}

// Chat methods
func (s *SQLiteStore) CreateChat(ctx context.Context, userID string, title *string) (*Chat, error) {
	chat := &Chat{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: time.Now().UTC()}
	chat.UpdatedAt = chat.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin chat insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chat insert: %w", err)
	}
	return chat, nil
}

func (s *SQLiteStore) GetChatByID(ctx context.Context, chatID, userID string) (*Chat, error) {
	var chat Chat
	var title sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?", chatID, userID).
		Scan(&chat.ID, &chat.UserID, &title, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	chat.Title = nullableString(title)
	return &chat, nil
}

func (s *SQLiteStore) GetChatsByUserID(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, title, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		var title sql.NullString
		if err := rows.Scan(&chat.ID, &chat.UserID, &title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chat.Title = nullableString(title)
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, chatID, userID, title string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE chats SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		title, time.Now().UTC(), chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute chat title update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat removes the chat and its messages together.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin chat delete: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id IN (SELECT id FROM chats WHERE id = ? AND user_id = ?)", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Message methods

// AppendMessage inserts msg and bumps the chat's updated_at in one
// transaction. ID and CreatedAt are assigned here.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encode message content: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin message insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		id, msg.ChatID, string(msg.Role), string(content), now)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", now, msg.ChatID)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message insert: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetMessagesByChatID(ctx context.Context, chatID string) ([]Message, error) {
	return s.queryMessages(ctx, "SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC", chatID)
}

// GetLastNMessagesByChatID returns the newest n messages, oldest first.
func (s *SQLiteStore) GetLastNMessagesByChatID(ctx context.Context, chatID string, n int) ([]Message, error) {
	query := `
        SELECT id, chat_id, role, content, created_at
        FROM messages
        WHERE chat_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
	messages, err := s.queryMessages(ctx, query, chatID, n)
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var role, content string
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = tutor.Role(role)
		if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to decode content of message %s: %w", msg.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// WordPair methods

// SaveWordPair inserts the pair unless (user, source, translation) already
// exists, in which case the existing id is returned with created=false.
func (s *SQLiteStore) SaveWordPair(ctx context.Context, in tutor.WordPairInput) (string, bool, error) {
	var example *string
	if in.ContextSentence != "" {
		example = &in.ContextSentence
	}

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO word_pairs (id, user_id, source_word, translated_word, context_sentence, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id, source_word, translated_word) DO NOTHING`,
		id, in.UserID, in.SourceWord, in.TranslatedWord, example, time.Now().UTC())
	if err != nil {
		return "", false, fmt.Errorf("failed to execute word pair insert: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 1 {
		return id, true, nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx, "SELECT id FROM word_pairs WHERE user_id = ? AND source_word = ? AND translated_word = ?",
		in.UserID, in.SourceWord, in.TranslatedWord).Scan(&existing)
	if err != nil {
		return "", false, fmt.Errorf("failed to load existing word pair: %w", err)
	}
	return existing, false, nil
}

// GetWordPairsByUserID lists the user's pairs, newest first. limit <= 0 means all.
func (s *SQLiteStore) GetWordPairsByUserID(ctx context.Context, userID string, limit int) ([]WordPair, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, source_word, translated_word, context_sentence, created_at
        FROM word_pairs WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query word pairs: %w", err)
	}
	defer rows.Close()

	pairs := []WordPair{}
	for rows.Next() {
		var wp WordPair
		var example sql.NullString
		if err := rows.Scan(&wp.ID, &wp.UserID, &wp.SourceWord, &wp.TranslatedWord, &example, &wp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan word pair row: %w", err)
		}
		wp.ContextSentence = nullableString(example)
		pairs = append(pairs, wp)
	}
	return pairs, rows.Err()
}

func (s *SQLiteStore) DeleteWordPair(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM word_pairs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete word pair: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Pronunciation cache methods
func (s *SQLiteStore) GetPronunciationTips(ctx context.Context, userID, word string) (*PronunciationTips, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT tips_json FROM pronunciation_tips WHERE user_id = ? AND word = ?", userID, word).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get pronunciation tips: %w", err)
	}
	var tips PronunciationTips
	if err := json.Unmarshal([]byte(raw), &tips); err != nil {
		return nil, fmt.Errorf("failed to decode pronunciation tips: %w", err)
	}
	return &tips, nil
}

func (s *SQLiteStore) SavePronunciationTips(ctx context.Context, userID, word string, tips *PronunciationTips) error {
	raw, err := json.Marshal(tips)
	if err != nil {
		return fmt.Errorf("failed to encode pronunciation tips: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO pronunciation_tips (user_id, word, tips_json, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id, word) DO UPDATE SET tips_json = excluded.tips_json`,
		userID, word, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save pronunciation tips: %w", err)
	}
	return nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
