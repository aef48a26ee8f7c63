package tutor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseJSONShape(t *testing.T) {
	suggestion, err := NewWordSuggestion("Worth learning:", WordSuggestion{Word: "kot", Translation: "cat", Example: "Kot śpi."})
	require.NoError(t, err)
	confirmation, err := NewSaveConfirmation("Saved.", SaveConfirmation{WordPairID: "wp-1", SourceWord: "kot", TranslatedWord: "cat"},
		[]ToolCall{SaveWordPairCall("kot", "cat", "")})
	require.NoError(t, err)

	cases := []struct {
		name string
		resp Response
		want string
	}{
		{"text", NewText("Dzień dobry"),
			`{"response_type":"text","content":"Dzień dobry","tool_calls":[]}`},
		{"word_suggestion", suggestion,
			`{"response_type":"word_suggestion","content":"Worth learning:","data":{"word":"kot","translation":"cat","example":"Kot śpi."},"tool_calls":[]}`},
		{"save_confirmation", confirmation,
			`{"response_type":"save_confirmation","content":"Saved.","data":{"word_pair_id":"wp-1","source_word":"kot","translated_word":"cat","already_saved":false},"tool_calls":[{"name":"save_word_pair","arguments":{"source_word":"kot","translated_word":"cat"}}]}`},
		{"error", NewError("Try again.", "generation_failed"),
			`{"response_type":"error","content":"Try again.","data":{"code":"generation_failed"},"tool_calls":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))

			var back Response
			require.NoError(t, json.Unmarshal(b, &back))
			again, err := json.Marshal(back)
			require.NoError(t, err)
			assert.Equal(t, string(b), string(again))
		})
	}
}

func TestWordSuggestionRequiresData(t *testing.T) {
	_, err := NewWordSuggestion("hm", WordSuggestion{Word: "  ", Translation: "cat"})
	assert.Error(t, err)

	var r Response
	assert.Error(t, json.Unmarshal([]byte(`{"response_type":"word_suggestion","content":"x"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"response_type":"word_suggestion","content":"x","data":{"word":"kot"}}`), &r))
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var r Response
	err := json.Unmarshal([]byte(`{"response_type":"audio","content":"x"}`), &r)
	assert.ErrorContains(t, err, "unknown response_type")
}

func TestTextIgnoresData(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"response_type":"text","content":"hi","data":{"word":"kot"}}`), &r))
	assert.Equal(t, TypeText, r.Type())
	assert.Nil(t, r.Data())
}

func TestZeroResponseDoesNotMarshal(t *testing.T) {
	_, err := json.Marshal(Response{})
	assert.Error(t, err)
}

func TestToolCallsAreCopied(t *testing.T) {
	resp := NewError("bad", "invalid_tool_call", SaveWordPairCall("a", "b", ""))
	calls := resp.ToolCalls()
	calls[0].Name = "mutated"
	assert.Equal(t, ToolSaveWordPair, resp.ToolCalls()[0].Name)
}
