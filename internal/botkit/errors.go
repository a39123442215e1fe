package botkit

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks; the typed errors below match them.
var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrProtocol       = errors.New("protocol violation")
	ErrEncoding       = errors.New("encoding failed")
)

// InvalidMessageError reports a message variant built without a mandatory
// field, or with a field that breaks the variant's contract.
type InvalidMessageError struct {
	Type   string
	Field  string
	Reason string
}

func (e *InvalidMessageError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("botkit: invalid %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("botkit: invalid %s: %s %s", e.Type, e.Field, e.Reason)
}

func (e *InvalidMessageError) Is(target error) bool { return target == ErrInvalidMessage }

func invalid(typ, field, reason string) *InvalidMessageError {
	return &InvalidMessageError{Type: typ, Field: field, Reason: reason}
}

// ProtocolError reports an unrecognized or misplaced variant. Index is the
// position in the sequence, or -1 when the error is not positional.
type ProtocolError struct {
	Index  int
	Type   string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("botkit: protocol violation: %s", e.Reason)
	}
	if e.Type == "" {
		return fmt.Sprintf("botkit: protocol violation at message %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("botkit: protocol violation at message %d (%s): %s", e.Index, e.Type, e.Reason)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// EncodingError reports a value that cannot be reduced to JSON. Path is the
// JSON path of the offending value, rooted at "$".
type EncodingError struct {
	Path   string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("botkit: cannot encode %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("botkit: cannot encode %s: %s", e.Path, e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// reasonOf flattens a nested validation error into a reason for its parent.
func reasonOf(err error) string {
	var ime *InvalidMessageError
	if errors.As(err, &ime) {
		if ime.Field == "" {
			return ime.Reason
		}
		return ime.Field + " " + ime.Reason
	}
	return err.Error()
}
