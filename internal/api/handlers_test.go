package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	routerMarker        = "router of a language tutor"
	translationMarker   = "precise translator"
	vocabularyMarker    = "vocabulary coach"
	phraseMarker        = "short, natural phrases"
	pronunciationMarker = "pronunciation expert"
)

type envelope struct {
	ResponseType string          `json:"response_type"`
	Content      string          `json:"content"`
	Data         json.RawMessage `json:"data"`
	ToolCalls    []struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	} `json:"tool_calls"`
}

type messageJSON struct {
	ID      string          `json:"id"`
	ChatID  string          `json:"chat_id"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/api/chats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostMessageRejectsEmptyText(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "u1", http.MethodPost, "/api/chat/message", map[string]any{"chat_id": nil, "message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = s.do(t, "u1", http.MethodPost, "/api/chat/message", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.gen.count())
}

func TestPostMessageRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(routerMarker, `{"intent":"translation","decline":""}`)
	s.gen.set(translationMarker, `{"content":"Dzień dobry!"}`)

	rec := s.do(t, "u1", http.MethodPost, "/api/chat/message", map[string]any{"chat_id": nil, "message": "Good morning in Polish?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	posted := decode[messageJSON](t, rec)
	assert.Equal(t, "assistant", posted.Role)
	env := decode[struct{ Content envelope }](t, rec).Content
	assert.Equal(t, "text", env.ResponseType)
	assert.Equal(t, "Dzień dobry!", env.Content)
	assert.NotNil(t, env.ToolCalls)

	rec = s.do(t, "u1", http.MethodGet, "/api/chats/"+posted.ChatID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]messageJSON](t, rec)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, posted.ID, messages[1].ID)
	assert.JSONEq(t, string(posted.Content), string(messages[1].Content))

	rec = s.do(t, "u2", http.MethodGet, "/api/chats/"+posted.ChatID+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestSaveWordPairThroughChat(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(routerMarker, `{"intent":"vocabulary","decline":""}`)
	s.gen.set(vocabularyMarker, `{"action":"save","content":"Saving.","word":"kot","translation":"cat","example":"Kot siedzi na krześle."}`)
	body := map[string]any{"chat_id": nil, "message": `Save "kot" → "cat" to my list.`}

	var ids []string
	for i := 0; i < 2; i++ {
		rec := s.do(t, "u1", http.MethodPost, "/api/chat/message", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		env := decode[struct{ Content envelope }](t, rec).Content
		require.Equal(t, "save_confirmation", env.ResponseType)
		require.Len(t, env.ToolCalls, 1)
		assert.Equal(t, "save_word_pair", env.ToolCalls[0].Name)
		var data struct {
			WordPairID string `json:"word_pair_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		ids = append(ids, data.WordPairID)
	}
	assert.Equal(t, ids[0], ids[1])

	rec := s.do(t, "u1", http.MethodGet, "/api/word-pairs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pairs := decode[[]struct {
		ID             string `json:"id"`
		SourceWord     string `json:"source_word"`
		TranslatedWord string `json:"translated_word"`
	}](t, rec)
	require.Len(t, pairs, 1)
	assert.Equal(t, ids[0], pairs[0].ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, "u2", http.MethodDelete, "/api/word-pairs/"+ids[0], nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, "u1", http.MethodDelete, "/api/word-pairs/"+ids[0], nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "u1", http.MethodDelete, "/api/word-pairs/"+ids[0], nil).Code)
}

func TestChatCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "u1", http.MethodPost, "/api/chats", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	type chatJSON struct {
		ID    string  `json:"id"`
		Title *string `json:"title"`
	}
	untitled := decode[chatJSON](t, rec)
	assert.Nil(t, untitled.Title)

	rec = s.do(t, "u1", http.MethodPost, "/api/chats/", map[string]string{"title": "Verbs"})
	require.Equal(t, http.StatusCreated, rec.Code)
	titled := decode[chatJSON](t, rec)

	rec = s.do(t, "u1", http.MethodPatch, "/api/chats/"+untitled.ID, map[string]string{"title": "Greetings"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Greetings", *decode[chatJSON](t, rec).Title)

	rec = s.do(t, "u1", http.MethodPatch, "/api/chats/"+untitled.ID, map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "u1", http.MethodGet, "/api/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chats := decode[[]chatJSON](t, rec)
	got := make([]string, 0, len(chats))
	for _, c := range chats {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff([]string{untitled.ID, titled.ID}, got); diff != "" {
		t.Errorf("chat order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, http.StatusNoContent, s.do(t, "u1", http.MethodDelete, "/api/chats/"+titled.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "u1", http.MethodGet, "/api/chats/"+titled.ID+"/messages", nil).Code)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "u1", http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", decode[struct {
		ID string `json:"id"`
	}](t, rec).ID)

	rec = s.do(t, "u1", http.MethodPut, "/api/profile/target-language", map[string]string{"target_language": "klingon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "u1", http.MethodPut, "/api/profile/target-language", map[string]string{"target_language": "belarusian"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"target_language":"belarusian"}`, rec.Body.String())
}

func TestRandomPhraseEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "u1", http.MethodPost, "/api/random-phrase", map[string]any{"words": []string{"cat"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", errorCode(t, rec))

	s.gen.set(phraseMarker, `{"phrase":"The cat naps.","phrase_target_lang":"","words_used":["cat"]}`)
	rec = s.do(t, "u1", http.MethodPost, "/api/random-phrase", map[string]any{"words": []string{"cat"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"phrase":"The cat naps.","phrase_target_lang":"","target_language":null,"words_used":["cat"]}`, rec.Body.String())
}

func TestPronunciationTipsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(pronunciationMarker, `{"phonetic_transcription":"/ˈɡrat.t͡sje/","syllables":["gra","zie"],"pronunciation_tips":["Roll the r"],"memory_aids":[],"common_mistakes":[]}`)

	for i := 0; i < 2; i++ {
		rec := s.do(t, "u1", http.MethodPost, "/api/pronunciation-tips", map[string]string{"word": "grazie"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "grazie", decode[struct {
			Word string `json:"word"`
		}](t, rec).Word)
	}
	assert.Equal(t, 1, s.gen.count(), "the second request is served from cache")

	rec := s.do(t, "u1", http.MethodPost, "/api/pronunciation-tips", map[string]string{"word": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/message", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, http.StatusBadRequest)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
