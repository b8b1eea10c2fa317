package chatkit

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage         = errors.New("message must have content or an attachment")
	ErrReactionExists       = errors.New("reaction already exists")
	ErrInactiveConversation = errors.New("conversation is not the active one")
	ErrSubscriptionClosed   = errors.New("subscription closed")
	ErrStoreStopped         = errors.New("store stopped")
)

// ValidationError is returned before any remote call is issued.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FetchError is returned when history could not be loaded after retries.
type FetchError struct {
	ConversationID string
	Attempts       int
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch conversation %s after %d attempt(s): %v", e.ConversationID, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError is returned when the remote write behind an optimistic send
// failed. Draft holds what the composer should offer for resubmission.
type SendError struct {
	ConversationID string
	Draft          Draft
	Err            error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("unable to send message to %s: %v", e.ConversationID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// DecodeError is returned when a backend response does not match the
// expected schema.
type DecodeError struct {
	Entity string
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	if len(e.Field) > 0 {
		return fmt.Sprintf("unable to decode %s.%s: %v", e.Entity, e.Field, e.Err)
	}
	return fmt.Sprintf("unable to decode %s: %v", e.Entity, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError carries a non-2xx response from the remote backend.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if len(e.Code) > 0 {
		return fmt.Sprintf("backend responded %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}
