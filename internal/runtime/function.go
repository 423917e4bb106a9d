package runtime

import (
	"fmt"
	"treelox/internal/ast"
)

// Callable is implemented by every value that can appear before `(`.
type Callable interface {
	Value
	// Arity is the number of arguments the call must supply.
	Arity() int
}

// FuncVal is a user-defined function or method together with the
// environment it closes over.
//
// A bound method is a FuncVal whose closure is a one-binding frame holding
// `this`, enclosing the method's original closure.
type FuncVal struct {
	Decl    *ast.Function
	Closure *Environment
	IsInit  bool // class initializer: calls always yield `this`
}

func (v *FuncVal) TypeName() string { return "function" }
func (v *FuncVal) String() string   { return fmt.Sprintf("<fn %s>", v.Decl.Name.Name) }
func (v *FuncVal) Arity() int       { return len(v.Decl.Params) }

// Name returns the declared function name.
func (v *FuncVal) Name() string { return v.Decl.Name.Name }

// Bind returns a copy of the method whose `this` is inst.
func (v *FuncVal) Bind(inst *InstanceVal) *FuncVal {
	env := NewEnvironment(v.Closure)
	env.Define("this", inst)
	return &FuncVal{Decl: v.Decl, Closure: env, IsInit: v.IsInit}
}

// BuiltinFn is the Go signature for native functions. Arity has been checked
// before it is called.
type BuiltinFn func(args []Value) (Value, error)

// BuiltinVal is a native function implemented in Go.
type BuiltinVal struct {
	Name   string
	Params int
	Fn     BuiltinFn
}

func (v *BuiltinVal) TypeName() string { return "function" }
func (v *BuiltinVal) String() string   { return fmt.Sprintf("<native fn %s>", v.Name) }
func (v *BuiltinVal) Arity() int       { return v.Params }
