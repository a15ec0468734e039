// Package llm provides text completion against hosted language models.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the provider produced no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
	// ErrNoJSON is returned when a response contains no JSON object.
	ErrNoJSON = errors.New("llm response contains no JSON object")
)

// Request is a single completion request.
type Request struct {
	Prompt string
	// System is an optional system instruction.
	System      string
	Temperature float64
	MaxTokens   int
	// Schema, when set, asks the provider for JSON matching the schema.
	Schema *Schema
}

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// Schema is the subset of JSON Schema understood by every provider.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	MinItems    *int64             `json:"minItems,omitempty"`
	MaxItems    *int64             `json:"maxItems,omitempty"`
}

// Schema types.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// String renders the schema as JSON, for embedding in prompts.
func (s *Schema) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ExtractJSON returns the text between the first '{' and the last '}' of s.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// DecodeJSON extracts the JSON object from a response and unmarshals it into v.
func DecodeJSON(s string, v any) error {
	raw, err := ExtractJSON(s)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}
