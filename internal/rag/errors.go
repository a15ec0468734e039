package rag

import (
	"errors"
	"fmt"
)

// Kind classifies a RAG failure.
type Kind int

const (
	// KindNotReady means the session has no index to serve the call.
	KindNotReady Kind = iota + 1
	// KindInvalidInput means the caller passed an unusable argument.
	KindInvalidInput
	// KindBackend means the embedder, LLM or an index failed.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not_ready"
	case KindInvalidInput:
		return "invalid_input"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. ErrNotReady, ErrInvalidInput and ErrBackend match any
// *Error of that kind.
var (
	ErrNotReady        = errors.New("no vector database for this session")
	ErrInvalidInput    = errors.New("invalid input")
	ErrBackend         = errors.New("backend failure")
	ErrEmptyTranscript = errors.New("transcript is empty")
	ErrSessionClosed   = errors.New("session is closed")
)

// Operation names carried by Error.Op.
const (
	OpCreate  = "create_vector_database"
	OpQuery   = "query"
	OpSimilar = "similar_chunks"
	OpUpdate  = "update_parameters"
)

// Error is the error type returned by Session operations.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rag %s: %s", e.Op, e.kindSentinel())
	}
	return fmt.Sprintf("rag %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.kindSentinel()
}

func (e *Error) kindSentinel() error {
	switch e.Kind {
	case KindNotReady:
		return ErrNotReady
	case KindInvalidInput:
		return ErrInvalidInput
	case KindBackend:
		return ErrBackend
	default:
		return nil
	}
}

// User-facing messages.
const (
	MsgQueryNotReady   = "No video content available for querying. Please analyze a video first."
	MsgSimilarNotReady = "No video content available for similarity search."
	MsgNoSimilar       = "No similar content found."
)

// UserMessage renders the error the way the API and CLI show it to users.
func (e *Error) UserMessage() string {
	switch {
	case e.Kind == KindNotReady && e.Op == OpQuery:
		return MsgQueryNotReady
	case e.Kind == KindNotReady && e.Op == OpSimilar:
		return MsgSimilarNotReady
	case e.Kind == KindBackend && e.Op == OpQuery:
		return "Error processing your query: " + causeText(e)
	case e.Kind == KindBackend && e.Op == OpSimilar:
		return "Error in similarity search: " + causeText(e)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Error()
	}
}

func causeText(e *Error) string {
	if e.Err == nil {
		return e.kindSentinel().Error()
	}
	return e.Err.Error()
}

// UserMessage returns err's user-facing message, or err.Error() for non-RAG errors.
func UserMessage(err error) string {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.UserMessage()
	}
	return err.Error()
}

func notReady(op string, cause error) *Error { return &Error{Op: op, Kind: KindNotReady, Err: cause} }

func invalid(op string, cause error) *Error { return &Error{Op: op, Kind: KindInvalidInput, Err: cause} }

func backend(op string, cause error) *Error { return &Error{Op: op, Kind: KindBackend, Err: cause} }
