package runtime

import (
	"fmt"
	"treelox/internal/span"
)

// ErrorKind classifies a runtime error.
type ErrorKind int

const (
	KindType      ErrorKind = iota // operand or callee of the wrong kind, wrong arity
	KindUndefined                  // undefined variable or property
	KindResource                   // call depth exhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindType:
		return "type error"
	case KindUndefined:
		return "undefined name"
	case KindResource:
		return "resource exhausted"
	default:
		return "unknown"
	}
}

// RuntimeError is the single error that terminates a program at run time.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Span    span.Span
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

func runtimeErr(s span.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: KindType, Message: fmt.Sprintf(format, args...), Span: s}
}

func undefinedErr(s span.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: KindUndefined, Message: fmt.Sprintf(format, args...), Span: s}
}

func stackOverflow(s span.Span) *RuntimeError {
	return &RuntimeError{Kind: KindResource, Message: "Stack overflow.", Span: s}
}
