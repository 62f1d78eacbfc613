package extract

import (
	"errors"
	"fmt"
)

// Sentinel errors for extraction failures. Use errors.Is to branch on them.
var (
	// ErrNoValidStructuredOutput indicates no fenced block of the requested kind
	// could be parsed.
	ErrNoValidStructuredOutput = errors.New("no valid structured output")

	// ErrSchemaViolation indicates a block parsed but did not satisfy the schema.
	ErrSchemaViolation = errors.New("schema violation")
)

// Error carries the text that failed extraction for diagnostics.
// For ErrSchemaViolation Raw is the offending JSON block; otherwise it is the
// full model response.
type Error struct {
	Kind  error
	Raw   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func noValid(raw string, cause error) *Error {
	return &Error{Kind: ErrNoValidStructuredOutput, Raw: raw, Cause: cause}
}

// RawText returns the diagnostic text attached to an extraction error, if any.
func RawText(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Raw, true
	}
	return "", false
}
