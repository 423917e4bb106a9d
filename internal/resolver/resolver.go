// Package resolver performs static scope analysis over a parsed program.
//
// For every variable reference it records how many enclosing scopes lie
// between the reference and the declaration; references with no local
// declaration are left out and looked up in the global environment at run
// time. Scope misuse (this/super/return/break in the wrong place, reading a
// local in its own initializer, duplicate locals) is reported as E3xxx
// diagnostics.
package resolver

import (
	"io"
	"log/slog"
	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/span"
)

// Locals maps a variable-reference node (*ast.Variable, *ast.Assign,
// *ast.This or *ast.Super) to its scope distance.
type Locals map[ast.Expr]int

// Distance returns the recorded distance for expr. ok is false when expr
// refers to a global.
func (l Locals) Distance(expr ast.Expr) (dist int, ok bool) {
	dist, ok = l[expr]
	return dist, ok
}

// Merge copies every entry of other into l.
func (l Locals) Merge(other Locals) {
	for k, v := range other {
		l[k] = v
	}
}

type functionKind int

const (
	fnNone functionKind = iota
	fnFunction
	fnMethod
	fnInitializer
)

type classKind int

const (
	classNone classKind = iota
	classPlain
	classSub
)

// scope maps a name to whether its initializer has finished resolving.
type scope map[string]bool

// Resolver walks an AST once and produces Locals plus diagnostics.
type Resolver struct {
	scopes    []scope
	locals    Locals
	diags     []diag.Diagnostic
	function  functionKind
	class     classKind
	loopDepth int
	logger    *slog.Logger
}

// New creates a resolver that logs to logger. A nil logger discards output.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{locals: make(Locals), logger: logger}
}

// Resolve is shorthand for New(nil).Resolve(prog).
func Resolve(prog *ast.Program) (Locals, []diag.Diagnostic) {
	return New(nil).Resolve(prog)
}

// Resolve analyzes prog. Every diagnostic is collected; the returned Locals
// are only meaningful when no error was reported. A Resolver may be reused;
// each call starts from empty results.
func (r *Resolver) Resolve(prog *ast.Program) (Locals, []diag.Diagnostic) {
	r.locals = make(Locals)
	r.diags = nil
	r.scopes = nil
	r.resolveStmts(prog.Stmts)
	r.logger.Debug("resolved program",
		slog.Int("statements", len(prog.Stmts)),
		slog.Int("locals", len(r.locals)),
		slog.Int("diagnostics", len(r.diags)))
	return r.locals, r.diags
}

// ============================================================
// Scope management
// ============================================================

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, scope{})
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare adds name to the innermost scope as not yet initialized. Globals
// are not tracked.
func (r *Resolver) declare(name ast.Ident) {
	if len(r.scopes) == 0 {
		return
	}
	sc := r.scopes[len(r.scopes)-1]
	if _, exists := sc[name.Name]; exists {
		r.error("E3002", name.Span, "Already a variable with this name in this scope.")
	}
	sc[name.Name] = false
}

func (r *Resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = true
}

// resolveLocal records the distance from the innermost scope to the scope
// declaring name. Nothing is recorded when no scope declares it.
func (r *Resolver) resolveLocal(expr ast.Expr, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) error(code string, s span.Span, msg string) {
	r.diags = append(r.diags, diag.Errorf(code, s, "%s", msg))
}

// ============================================================
// Statements
// ============================================================

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Block:
		r.beginScope()
		r.resolveStmts(s.Stmts)
		r.endScope()

	case *ast.Var:
		r.declare(s.Name)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name.Name)

	case *ast.Function:
		r.declare(s.Name)
		r.define(s.Name.Name)
		r.resolveFunction(s, fnFunction)

	case *ast.Class:
		r.resolveClass(s)

	case *ast.Expression:
		r.resolveExpr(s.Expr)

	case *ast.Print:
		r.resolveExpr(s.Expr)

	case *ast.If:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ast.While:
		r.resolveExpr(s.Condition)
		r.loopDepth++
		r.resolveStmt(s.Body)
		r.loopDepth--

	case *ast.Return:
		if r.function == fnNone {
			r.error("E3003", s.Span, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.function == fnInitializer {
				r.error("E3004", s.Span, "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}

	case *ast.Break:
		if r.loopDepth == 0 {
			r.error("E3009", s.Span, "Can't use 'break' outside of a loop.")
		}
	}
}

// resolveFunction resolves a function body in a fresh scope holding its
// parameters. Loops do not extend into nested functions.
func (r *Resolver) resolveFunction(fn *ast.Function, kind functionKind) {
	enclosingFn, enclosingLoops := r.function, r.loopDepth
	r.function, r.loopDepth = kind, 0
	defer func() { r.function, r.loopDepth = enclosingFn, enclosingLoops }()

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param.Name)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

// resolveClass lays scopes out the way the interpreter builds environments:
// an optional scope holding "super" encloses a scope holding "this", which
// encloses each method's parameter scope.
func (r *Resolver) resolveClass(c *ast.Class) {
	enclosingClass := r.class
	r.class = classPlain
	defer func() { r.class = enclosingClass }()

	r.declare(c.Name)
	r.define(c.Name.Name)

	if c.Superclass != nil {
		if c.Superclass.Name == c.Name.Name {
			r.error("E3008", c.Superclass.Span, "A class can't inherit from itself.")
		}
		r.class = classSub
		r.resolveExpr(c.Superclass)

		r.beginScope()
		r.scopes[len(r.scopes)-1]["super"] = true
		defer r.endScope()
	}

	r.beginScope()
	r.scopes[len(r.scopes)-1]["this"] = true

	for _, method := range c.Methods {
		kind := fnMethod
		if method.Name.Name == "init" {
			kind = fnInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()

	r.logger.Debug("resolved class",
		slog.String("name", c.Name.Name),
		slog.Bool("subclass", c.Superclass != nil),
		slog.Int("methods", len(c.Methods)))
}

// ============================================================
// Expressions
// ============================================================

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if initialized, ok := r.scopes[len(r.scopes)-1][e.Name]; ok && !initialized {
				r.error("E3001", e.Span, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name)

	case *ast.Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name.Name)

	case *ast.Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.Unary:
		r.resolveExpr(e.Operand)

	case *ast.Grouping:
		r.resolveExpr(e.Inner)

	case *ast.Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}

	case *ast.Get:
		r.resolveExpr(e.Object)

	case *ast.Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *ast.This:
		if r.class == classNone {
			r.error("E3005", e.Span, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, "this")

	case *ast.Super:
		switch r.class {
		case classNone:
			r.error("E3006", e.Span, "Can't use 'super' outside of a class.")
			return
		case classPlain:
			r.error("E3007", e.Span, "Can't use 'super' in a class with no superclass.")
			return
		}
		r.resolveLocal(e, "super")

	case *ast.Literal:
		// nothing to resolve
	}
}
