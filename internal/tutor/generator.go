package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Generator is a single blocking LLM call. Implementations bound the call
// with their own timeout.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type GenerationRequest struct {
	// Instruction is the system instruction for the call.
	Instruction string
	History     []HistoryEntry
	Prompt      string
	// Schema, when set, asks the provider for JSON matching it.
	Schema *Schema
}

type SchemaType string

const (
	SchemaObject  SchemaType = "object"
	SchemaString  SchemaType = "string"
	SchemaArray   SchemaType = "array"
	SchemaBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral subset of JSON Schema.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// String renders the schema as JSON for providers that only take it as prompt text.
func (s *Schema) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b)
}

func stringField(desc string) *Schema {
	return &Schema{Type: SchemaString, Description: desc}
}

func enumField(desc string, values ...string) *Schema {
	return &Schema{Type: SchemaString, Description: desc, Enum: values}
}

// DecodeJSON parses model output into v, tolerating markdown code fences.
func DecodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop the fence info string ("json", "JSON", "jsonc", ...).
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		} else {
			s = strings.TrimLeftFunc(s, unicode.IsLetter)
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("unparseable model output: %w", err)
	}
	return nil
}
