package proc

import (
	"strings"
	"unicode/utf8"
)

// ParseStat parses one line of /proc/<pid>/stat:
//
//	pid (comm) state ppid pgrp session ... env_end exit_code
//
// comm may contain spaces, parentheses and newlines. No field after it can
// contain ')', so comm runs from the '(' right after the pid to the last ')'
// on the line. The remaining fields are consumed in order from statSchema;
// tokens after exit_code are ignored so newer kernels keep parsing.
//
// expectedPID is a sanity check: when it is positive and differs from the
// line's pid, ParseStat fails with ErrPIDMismatch. Pass 0 to skip it.
//
// On failure the error is a *ParseError naming the field; no partially
// filled record is ever returned. The line is only read, never retained.
func ParseStat(expectedPID int, line string) (ProcessStat, error) {
	var s ProcessStat

	tok, rest := nextToken(line)
	if tok == "" {
		return ProcessStat{}, missingField("pid")
	}
	if err := pidField.parse(&s, tok); err != nil {
		return ProcessStat{}, err
	}
	if expectedPID > 0 && int(s.PID) != expectedPID {
		return ProcessStat{}, badToken("pid", ErrPIDMismatch, tok, nil)
	}

	// the pid is followed by exactly " ("
	if !strings.HasPrefix(rest, " (") {
		return ProcessStat{}, missingField("comm")
	}
	rest = rest[2:]
	closing := strings.LastIndexByte(rest, ')')
	if closing < 0 {
		return ProcessStat{}, missingField("comm")
	}
	s.Comm = strings.Clone(rest[:closing])
	rest = rest[closing+1:]

	// exactly one space, then a one character token
	if rest == "" || rest[0] != ' ' {
		return ProcessStat{}, &ParseError{Field: "state", Kind: ErrInvalidState}
	}
	tok, rest = cutToken(rest[1:])
	if utf8.RuneCountInString(tok) != 1 {
		return ProcessStat{}, badToken("state", ErrInvalidState, tok, nil)
	}
	// a multi-byte character is still one state, just not a known one
	s.State = stateOf(tok[0])

	for i := range statSchema {
		f := &statSchema[i]
		tok, rest = nextToken(rest)
		if tok == "" {
			return ProcessStat{}, missingField(f.name)
		}
		if err := f.parse(&s, tok); err != nil {
			return ProcessStat{}, err
		}
	}
	return s, nil
}

// nextToken skips leading whitespace and cuts the following token.
func nextToken(s string) (tok, rest string) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return cutToken(s[i:])
}

// cutToken returns the bytes before the first whitespace and what follows.
func cutToken(s string) (tok, rest string) {
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
