// Package lox wires the scanner, parser, resolver and interpreter into a
// single pipeline for the command-line driver and the REPL.
package lox

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/lexer"
	"treelox/internal/parser"
	"treelox/internal/resolver"
	"treelox/internal/runtime"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 64
	ExitCompile = 65
	ExitRuntime = 70
	ExitIO      = 74
)

// Stage names the pipeline phase that failed.
type Stage int

const (
	StageLexical Stage = iota
	StageSyntax
	StageResolution
	StageRuntime
)

func (s Stage) String() string {
	switch s {
	case StageLexical:
		return "lexical"
	case StageSyntax:
		return "syntax"
	case StageResolution:
		return "resolution"
	case StageRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Failure is returned when a program does not run to completion. Compile
// stages fill Diagnostics; the runtime stage fills Err.
type Failure struct {
	Stage       Stage
	Diagnostics diag.List
	Err         error
}

func (f *Failure) Error() string {
	if f.Stage == StageRuntime {
		return f.Err.Error()
	}
	return f.Diagnostics.Error()
}

func (f *Failure) Unwrap() error {
	if f.Err != nil {
		return f.Err
	}
	return f.Diagnostics
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var f *Failure
	if errors.As(err, &f) {
		if f.Stage == StageRuntime {
			return ExitRuntime
		}
		return ExitCompile
	}
	return ExitRuntime
}

// Option configures a run or a session.
type Option func(*options)

type options struct {
	filename string
	maxDepth int
	echo     bool
	logger   *slog.Logger
}

// WithMaxDepth bounds nested calls.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithLogger routes resolver and interpreter tracing to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEcho prints the value of top-level expression statements.
func WithEcho() Option {
	return func(o *options) { o.echo = true }
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: runtime.DefaultMaxCallDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Compile scans and parses source. Lexical errors take precedence over the
// syntax errors they cause.
func Compile(source, name string) (*ast.Program, error) {
	tokens, lexDiags := lexer.New(source, name).Tokenize()
	prog, parseDiags := parser.New(tokens).ParseProgram()
	if diag.List(lexDiags).HasErrors() {
		all := append(diag.List(lexDiags), parseDiags...)
		return nil, &Failure{Stage: StageLexical, Diagnostics: all}
	}
	if diag.List(parseDiags).HasErrors() {
		return nil, &Failure{Stage: StageSyntax, Diagnostics: parseDiags}
	}
	return prog, nil
}

// Run compiles, resolves and executes source, writing print output to w.
func Run(source, name string, w io.Writer, opts ...Option) error {
	s := NewSession(w, opts...)
	return s.Eval(source, name)
}

// ============================================================
// Session
// ============================================================

// Session keeps globals and resolved distances across Eval calls, so a
// REPL can feed it one line at a time.
type Session struct {
	interp *runtime.Interpreter
	res    *resolver.Resolver
	logger *slog.Logger
}

// NewSession creates a session writing print output to w.
func NewSession(w io.Writer, opts ...Option) *Session {
	o := buildOptions(opts)
	iopts := []runtime.Option{
		runtime.WithMaxDepth(o.maxDepth),
		runtime.WithLogger(o.logger),
	}
	if o.echo {
		iopts = append(iopts, runtime.WithEcho())
	}
	return &Session{
		interp: runtime.NewInterpreter(w, iopts...),
		res:    resolver.New(o.logger),
		logger: o.logger,
	}
}

// Eval runs one chunk of source against the session's globals. A failed
// chunk leaves earlier definitions in place.
func (s *Session) Eval(source, name string) error {
	prog, err := Compile(source, name)
	if err != nil {
		return err
	}
	locals, diags := s.res.Resolve(prog)
	if diag.List(diags).HasErrors() {
		return &Failure{Stage: StageResolution, Diagnostics: diags}
	}
	if err := s.interp.Run(prog, locals); err != nil {
		s.logger.Debug("runtime failure", "source", name, "err", err)
		return &Failure{Stage: StageRuntime, Err: fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

// Globals exposes the session's global frame.
func (s *Session) Globals() *runtime.Environment {
	return s.interp.Globals()
}
