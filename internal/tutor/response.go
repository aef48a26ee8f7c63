package tutor

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ResponseType string

const (
	TypeText             ResponseType = "text"
	TypeWordSuggestion   ResponseType = "word_suggestion"
	TypeSaveConfirmation ResponseType = "save_confirmation"
	TypeError            ResponseType = "error"
)

func (t ResponseType) Valid() bool {
	switch t {
	case TypeText, TypeWordSuggestion, TypeSaveConfirmation, TypeError:
		return true
	}
	return false
}

// ToolCall records one tool invocation performed while producing a response.
type ToolCall struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// Data is the variant payload attached to a Response. Each response type
// accepts exactly one Data implementation (or none, for text).
type Data interface {
	responseType() ResponseType
}

type WordSuggestion struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example,omitempty"`
}

func (WordSuggestion) responseType() ResponseType { return TypeWordSuggestion }

type SaveConfirmation struct {
	WordPairID     string `json:"word_pair_id"`
	SourceWord     string `json:"source_word"`
	TranslatedWord string `json:"translated_word"`
	AlreadySaved   bool   `json:"already_saved"`
}

func (SaveConfirmation) responseType() ResponseType { return TypeSaveConfirmation }

type ErrorDetail struct {
	Code string `json:"code"`
}

func (ErrorDetail) responseType() ResponseType { return TypeError }

// Response is the structured content of one tutor turn. The zero value is not
// usable; build one with NewText, NewWordSuggestion, NewSaveConfirmation or
// NewError so the variant always matches its response type.
type Response struct {
	kind      ResponseType
	content   string
	data      Data
	toolCalls []ToolCall
}

func (r Response) Type() ResponseType    { return r.kind }
func (r Response) Content() string       { return r.content }
func (r Response) Data() Data            { return r.data }
func (r Response) ToolCalls() []ToolCall { return append([]ToolCall(nil), r.toolCalls...) }

func NewText(content string) Response {
	return Response{kind: TypeText, content: content}
}

func NewWordSuggestion(content string, s WordSuggestion) (Response, error) {
	s.Word = strings.TrimSpace(s.Word)
	s.Translation = strings.TrimSpace(s.Translation)
	s.Example = strings.TrimSpace(s.Example)
	if s.Word == "" || s.Translation == "" {
		return Response{}, fmt.Errorf("word suggestion requires both word and translation")
	}
	return Response{kind: TypeWordSuggestion, content: content, data: s}, nil
}

func NewSaveConfirmation(content string, c SaveConfirmation, calls []ToolCall) (Response, error) {
	if c.WordPairID == "" {
		return Response{}, fmt.Errorf("save confirmation requires a word pair id")
	}
	return Response{kind: TypeSaveConfirmation, content: content, data: c, toolCalls: calls}, nil
}

func NewError(content, code string, calls ...ToolCall) Response {
	return Response{kind: TypeError, content: content, data: ErrorDetail{Code: code}, toolCalls: calls}
}

// Validate checks the invariants a decoded or constructed response must hold.
func (r Response) Validate() error {
	if !r.kind.Valid() {
		return fmt.Errorf("unknown response_type %q", r.kind)
	}
	if r.data != nil && r.data.responseType() != r.kind {
		return fmt.Errorf("data of type %s attached to %s response", r.data.responseType(), r.kind)
	}
	if r.kind == TypeWordSuggestion {
		s, ok := r.data.(WordSuggestion)
		if !ok || s.Word == "" || s.Translation == "" {
			return fmt.Errorf("word_suggestion requires data with word and translation")
		}
	}
	return nil
}

type wireResponse struct {
	ResponseType ResponseType    `json:"response_type"`
	Content      string          `json:"content"`
	Data         json.RawMessage `json:"data,omitempty"`
	ToolCalls    []ToolCall      `json:"tool_calls"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	w := wireResponse{
		ResponseType: r.kind,
		Content:      r.content,
		ToolCalls:    r.toolCalls,
	}
	if w.ToolCalls == nil {
		w.ToolCalls = []ToolCall{}
	}
	if r.data != nil {
		raw, err := json.Marshal(r.data)
		if err != nil {
			return nil, err
		}
		w.Data = raw
	}
	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var w wireResponse
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	out := Response{kind: w.ResponseType, content: w.Content, toolCalls: w.ToolCalls}
	hasData := len(w.Data) > 0 && string(w.Data) != "null"
	switch w.ResponseType {
	case TypeText:
		// data is not part of a text response
	case TypeWordSuggestion:
		var s WordSuggestion
		if !hasData {
			return fmt.Errorf("word_suggestion response is missing data")
		}
		if err := json.Unmarshal(w.Data, &s); err != nil {
			return fmt.Errorf("decode word_suggestion data: %w", err)
		}
		out.data = s
	case TypeSaveConfirmation:
		if hasData {
			var c SaveConfirmation
			if err := json.Unmarshal(w.Data, &c); err != nil {
				return fmt.Errorf("decode save_confirmation data: %w", err)
			}
			out.data = c
		}
	case TypeError:
		if hasData {
			var d ErrorDetail
			if err := json.Unmarshal(w.Data, &d); err != nil {
				return fmt.Errorf("decode error data: %w", err)
			}
			out.data = d
		}
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}
