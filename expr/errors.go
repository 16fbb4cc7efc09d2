package expr

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax    = errors.New("syntax error")
	ErrReference = errors.New("reference error")
	ErrType      = errors.New("type error")
	ErrRange     = errors.New("range error")
)

// Error locates a failure inside an expression source.
type Error struct {
	Kind   error
	Msg    string
	Source string
	Pos    int
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v: %s (at %d in %q)", e.Kind, e.Msg, e.Pos, e.Source)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func syntaxError(src string, pos int, msg string) error {
	return &Error{Kind: ErrSyntax, Msg: msg, Source: src, Pos: pos}
}

func referenceError(name string) error {
	return &Error{Kind: ErrReference, Msg: name + " is not defined"}
}

func typeErrorf(format string, args ...any) error {
	return &Error{Kind: ErrType, Msg: fmt.Sprintf(format, args...)}
}

func rangeErrorf(format string, args ...any) error {
	return &Error{Kind: ErrRange, Msg: fmt.Sprintf(format, args...)}
}

// Thrown carries a value raised by a throw statement.
type Thrown struct {
	Value any
}

func (t *Thrown) Error() string {
	return "uncaught " + ToString(t.Value)
}
