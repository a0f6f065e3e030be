package parser

import (
	"fmt"
	"strings"
)

// Error is a single parse error.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
}

// Errors is a list of parse errors. A statement with errors is never
// returned.
type Errors []*Error

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	}

	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d parse errors: %s", len(e), strings.Join(msgs, "; "))
}

func (e *Errors) add(pos int, format string, args ...interface{}) {
	*e = append(*e, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// err returns nil for an empty list.
func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
