package rag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("handler: %w", backend(OpQuery, errors.New("timeout")))
	if !errors.Is(err, ErrBackend) || errors.Is(err, ErrNotReady) {
		t.Errorf("kind matching broken: %v", err)
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Op != OpQuery || rerr.Kind != KindBackend {
		t.Fatalf("As = %+v", rerr)
	}
	if err.Error() != "handler: rag query: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{notReady(OpQuery, nil), MsgQueryNotReady},
		{notReady(OpSimilar, nil), MsgSimilarNotReady},
		{backend(OpQuery, errors.New("boom")), "Error processing your query: boom"},
		{backend(OpSimilar, errors.New("boom")), "Error in similarity search: boom"},
		{invalid(OpCreate, ErrEmptyTranscript), ErrEmptyTranscript.Error()},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{KindNotReady: "not_ready", KindInvalidInput: "invalid_input", KindBackend: "backend"} {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
