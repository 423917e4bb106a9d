// Package ast defines the abstract syntax tree consumed by the resolver and
// the interpreter.
//
// Every node is a pointer; node identity is what the resolver keys its
// distance table on, so the tree must not be copied after resolution.
package ast

import (
	"treelox/internal/span"
	"treelox/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// Ident is a declared name together with where it was written.
type Ident struct {
	Name string
	Span span.Span
}

// ============================================================
// Program (AST root)
// ============================================================

// Program is a parsed source unit: a file or one REPL entry.
type Program struct {
	NodeBase
	Stmts []Stmt
}

// ============================================================
// Expressions
// ============================================================

// Literal is nil, true/false, a number or a string. Value holds nil, bool,
// float64 or string.
type Literal struct {
	ExprBase
	Value any
}

// Variable is a read of a named variable.
type Variable struct {
	ExprBase
	Name string
}

// Assign is `name = value`.
type Assign struct {
	ExprBase
	Name  Ident
	Value Expr
}

// Unary is `!x` or `-x`.
type Unary struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// Binary is an arithmetic, comparison or equality operation.
type Binary struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Logical is a short-circuiting `and` / `or`.
type Logical struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Call is `callee(args)`. Paren is the closing parenthesis, used to report
// call errors.
type Call struct {
	ExprBase
	Callee Expr
	Paren  span.Span
	Args   []Expr
}

// Get is property access: `object.name`.
type Get struct {
	ExprBase
	Object Expr
	Name   Ident
}

// Set is property assignment: `object.name = value`.
type Set struct {
	ExprBase
	Object Expr
	Name   Ident
	Value  Expr
}

// This is the `this` keyword.
type This struct {
	ExprBase
}

// Super is `super.method`.
type Super struct {
	ExprBase
	Method Ident
}

// Grouping is a parenthesized expression.
type Grouping struct {
	ExprBase
	Inner Expr
}

// ============================================================
// Statements
// ============================================================

// Expression wraps an expression used as a statement.
type Expression struct {
	StmtBase
	Expr Expr
}

// Print is `print expr;`.
type Print struct {
	StmtBase
	Expr Expr
}

// Var is `var name = init;`. Init may be nil.
type Var struct {
	StmtBase
	Name Ident
	Init Expr
}

// Block is `{ ... }`.
type Block struct {
	StmtBase
	Stmts []Stmt
}

// If is `if (cond) then else otherwise`. Else may be nil.
type If struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt
}

// While is `while (cond) body`. The parser also lowers `for` loops to it.
type While struct {
	StmtBase
	Condition Expr
	Body      Stmt
}

// Function is a named function declaration or a class method.
type Function struct {
	StmtBase
	Name   Ident
	Params []Ident
	Body   []Stmt
}

// Return is `return;` or `return value;`. Value may be nil.
type Return struct {
	StmtBase
	Value Expr
}

// Break is `break;`.
type Break struct {
	StmtBase
}

// Class is `class Name < Superclass { methods }`. Superclass may be nil.
type Class struct {
	StmtBase
	Name       Ident
	Superclass *Variable
	Methods    []*Function
}
