package chat

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	ErrKindNoMessages ErrorKind = iota
	ErrKindSystemPromptNotFound
	ErrKindToolCallNotFound
	ErrKindLastMessageFromAssistant
	ErrKindRoleAlternation
	ErrKindProtocolViolation
	ErrKindOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNoMessages:
		return "no-messages"
	case ErrKindSystemPromptNotFound:
		return "system-prompt-not-found"
	case ErrKindToolCallNotFound:
		return "tool-call-not-found"
	case ErrKindLastMessageFromAssistant:
		return "last-message-from-assistant"
	case ErrKindRoleAlternation:
		return "role-alternation"
	case ErrKindProtocolViolation:
		return "protocol-violation"
	}

	return "other"
}

// ChatError tags an error with the conversation condition that produced
// it, so callers can branch on Kind without string matching.
type ChatError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func Errorf(kind ErrorKind, format string, a ...any) *ChatError {
	return &ChatError{
		Kind:    kind,
		Message: fmt.Sprintf(format, a...),
	}
}

func Wrap(kind ErrorKind, err error, format string, a ...any) *ChatError {
	return &ChatError{
		Kind:    kind,
		Message: fmt.Sprintf(format, a...),
		Err:     err,
	}
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, a ChatError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var chatErr *ChatError
	return errors.As(err, &chatErr) && chatErr.Kind == kind
}
