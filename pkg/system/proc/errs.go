package proc

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors. Every failure returned by ParseStat is a *ParseError whose
// Kind is one of these.
var (
	// ErrMissingField indicates the line ended before the named field.
	ErrMissingField = errors.New("proc: missing field")

	// ErrMalformedInteger indicates the token is not a decimal integer of the
	// field's signedness.
	ErrMalformedInteger = errors.New("proc: malformed integer")

	// ErrRange indicates a valid integer that does not fit the field's width.
	ErrRange = errors.New("proc: value out of range")

	// ErrInvalidState indicates the state token is absent or not one character.
	ErrInvalidState = errors.New("proc: invalid state")

	// ErrPIDMismatch indicates the pid in the line is not the one requested.
	ErrPIDMismatch = errors.New("proc: pid mismatch")
)

// Read errors. These never come out of ParseStat.
var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty.
	ErrNoStat = errors.New("proc: empty stat")

	// ErrNoProcess indicates the process (or thread) does not exist or exited
	// while being read.
	ErrNoProcess = errors.New("proc: no such process")

	// ErrPermission indicates the stat file could not be opened or read for
	// lack of privileges.
	ErrPermission = errors.New("proc: permission denied")

	// ErrStatTooLong indicates the stat line exceeded Config.MaxLineBytes.
	ErrStatTooLong = errors.New("proc: stat line too long")
)

// ParseError identifies the field a stat line failed on.
type ParseError struct {
	Field string // schema name, e.g. "exit_code"
	Kind  error  // ErrMissingField, ErrMalformedInteger, ErrRange, ErrInvalidState or ErrPIDMismatch
	Token string // offending token, empty when the field is missing
	Err   error  // underlying strconv error, if any
}

func (e *ParseError) Error() string {
	switch {
	case e.Token == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%v: %s: %q: %v", e.Kind, e.Field, e.Token, e.Err)
	default:
		return fmt.Sprintf("%v: %s: %q", e.Kind, e.Field, e.Token)
	}
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsParseError reports whether err came from parsing rather than reading.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func missingField(name string) error {
	return &ParseError{Field: name, Kind: ErrMissingField}
}

// tokens are substrings of the caller's line; clone so the error does not pin it.
func badToken(name string, kind error, tok string, err error) error {
	return &ParseError{Field: name, Kind: kind, Token: strings.Clone(tok), Err: err}
}
