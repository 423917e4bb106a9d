package runtime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"treelox/internal/ast"
	"treelox/internal/resolver"
	"treelox/internal/span"
	"treelox/internal/token"
)

// DefaultMaxCallDepth bounds nested calls unless WithMaxDepth says otherwise.
const DefaultMaxCallDepth = 100_000

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
	SigBreak             // break from loop
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks a resolved AST and executes it.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  resolver.Locals
	output  io.Writer
	logger  *slog.Logger

	echo     bool
	depth    int
	maxDepth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithEcho makes top-level expression statements print their value, as a
// REPL does.
func WithEcho() Option {
	return func(i *Interpreter) { i.echo = true }
}

// WithMaxDepth sets the maximum number of nested calls. Values below 1 are
// ignored.
func WithMaxDepth(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewInterpreter creates an interpreter whose global frame holds the native
// functions. print output goes to output.
func NewInterpreter(output io.Writer, opts ...Option) *Interpreter {
	globals := NewEnvironment(nil)
	RegisterBuiltins(globals)
	i := &Interpreter{
		globals:  globals,
		env:      globals,
		locals:   make(resolver.Locals),
		output:   output,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes a resolved program. locals is added to the distances of
// earlier runs, so one interpreter can execute a REPL session line by line.
// The first runtime error stops execution and is returned as a
// *RuntimeError.
func (i *Interpreter) Run(prog *ast.Program, locals resolver.Locals) error {
	i.locals.Merge(locals)
	i.env = i.globals
	i.depth = 0

	for _, stmt := range prog.Stmts {
		if exprStmt, ok := stmt.(*ast.Expression); ok && i.echo {
			val, err := i.evalExpr(exprStmt.Expr)
			if err != nil {
				return err
			}
			fmt.Fprintln(i.output, val.String())
			continue
		}

		result, err := i.execStmt(stmt)
		if err != nil {
			return err
		}
		switch result.Signal {
		case SigReturn:
			return runtimeErr(stmt.GetSpan(), "Can't return from top-level code.")
		case SigBreak:
			return runtimeErr(stmt.GetSpan(), "Can't use 'break' outside of a loop.")
		}
	}
	return nil
}

// Globals returns the global frame.
func (i *Interpreter) Globals() *Environment {
	return i.globals
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.Expression:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.Print:
		val, err := i.evalExpr(s.Expr)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.Var:
		var val Value = NilVal{}
		if s.Init != nil {
			v, err := i.evalExpr(s.Init)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		i.env.Define(s.Name.Name, val)
		return resultNone, nil

	case *ast.Block:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.If:
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if IsTruthy(cond) {
			return i.execStmt(s.Then)
		}
		if s.Else != nil {
			return i.execStmt(s.Else)
		}
		return resultNone, nil

	case *ast.While:
		return i.execWhile(s)

	case *ast.Function:
		i.env.Define(s.Name.Name, &FuncVal{Decl: s, Closure: i.env})
		return resultNone, nil

	case *ast.Return:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.Break:
		return ExecResult{Signal: SigBreak}, nil

	case *ast.Class:
		return i.execClass(s)

	default:
		return resultNone, runtimeErr(stmt.GetSpan(), "unhandled statement type: %T", stmt)
	}
}

func (i *Interpreter) execWhile(s *ast.While) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			break
		}

		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigBreak {
			break
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

// execBlock runs stmts in blockEnv and restores the previous environment on
// every exit path.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

// execClass builds a class in two phases: the name is declared first so
// methods can refer to it, then finalized with the finished class.
func (i *Interpreter) execClass(s *ast.Class) (ExecResult, error) {
	var superclass *ClassVal
	if s.Superclass != nil {
		val, err := i.lookupVariable(s.Superclass, s.Superclass.Name, s.Superclass.Span)
		if err != nil {
			return resultNone, err
		}
		cls, ok := val.(*ClassVal)
		if !ok {
			return resultNone, runtimeErr(s.Superclass.Span, "Superclass must be a class.")
		}
		superclass = cls
	}

	i.env.Declare(s.Name.Name)

	methodEnv := i.env
	if superclass != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", superclass)
	}

	methods := make(map[string]*FuncVal, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Name] = &FuncVal{
			Decl:    m,
			Closure: methodEnv,
			IsInit:  m.Name.Name == "init",
		}
	}

	cls := &ClassVal{Name: s.Name.Name, Superclass: superclass, Methods: methods}
	if err := i.env.Finalize(s.Name.Name, cls); err != nil {
		return resultNone, runtimeErr(s.Name.Span, "%s", err)
	}

	i.logger.Debug("define class",
		slog.String("name", cls.Name),
		slog.Bool("subclass", superclass != nil),
		slog.Int("methods", len(methods)))
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return literalValue(e.Value), nil
	case *ast.Grouping:
		return i.evalExpr(e.Inner)
	case *ast.Variable:
		return i.lookupVariable(e, e.Name, e.Span)
	case *ast.Assign:
		return i.evalAssign(e)
	case *ast.Unary:
		return i.evalUnary(e)
	case *ast.Binary:
		return i.evalBinary(e)
	case *ast.Logical:
		return i.evalLogical(e)
	case *ast.Call:
		return i.evalCall(e)
	case *ast.Get:
		return i.evalGet(e)
	case *ast.Set:
		return i.evalSet(e)
	case *ast.This:
		return i.lookupVariable(e, "this", e.Span)
	case *ast.Super:
		return i.evalSuper(e)
	default:
		return nil, runtimeErr(expr.GetSpan(), "unhandled expression type: %T", expr)
	}
}

func literalValue(v any) Value {
	switch val := v.(type) {
	case bool:
		return BoolVal(val)
	case float64:
		return NumberVal(val)
	case string:
		return StringVal(val)
	default:
		return NilVal{}
	}
}

// lookupVariable reads a local through its resolved distance, or a global
// when the resolver recorded none.
func (i *Interpreter) lookupVariable(expr ast.Expr, name string, s span.Span) (Value, error) {
	var val Value
	var err error
	if dist, ok := i.locals.Distance(expr); ok {
		val, err = i.env.GetAt(dist, name)
	} else {
		val, err = i.globals.GetGlobal(name)
	}
	if errors.Is(err, ErrUndefined) {
		return nil, undefinedErr(s, "Undefined variable '%s'.", name)
	}
	return val, err
}

func (i *Interpreter) evalAssign(e *ast.Assign) (Value, error) {
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}

	if dist, ok := i.locals.Distance(e); ok {
		err = i.env.AssignAt(dist, e.Name.Name, val)
	} else {
		err = i.globals.AssignGlobal(e.Name.Name, val)
	}
	if errors.Is(err, ErrUndefined) {
		return nil, undefinedErr(e.Name.Span, "Undefined variable '%s'.", e.Name.Name)
	}
	return val, err
}

func (i *Interpreter) evalUnary(e *ast.Unary) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(e.GetSpan(), "Operand must be a number.")
		}
		return -n, nil
	default:
		return nil, runtimeErr(e.GetSpan(), "unknown unary operator: %s", e.Op)
	}
}

func (i *Interpreter) evalBinary(e *ast.Binary) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	// Equality works for all kinds
	switch e.Op {
	case token.EQUAL_EQUAL:
		return BoolVal(valuesEqual(left, right)), nil
	case token.BANG_EQUAL:
		return BoolVal(!valuesEqual(left, right)), nil
	}

	// + also concatenates two strings
	if e.Op == token.PLUS {
		if ls, ok := left.(StringVal); ok {
			if rs, ok := right.(StringVal); ok {
				return ls + rs, nil
			}
		}
		ln, lok := left.(NumberVal)
		rn, rok := right.(NumberVal)
		if !lok || !rok {
			return nil, runtimeErr(e.GetSpan(), "Operands must be two numbers or two strings.")
		}
		return ln + rn, nil
	}

	ln, lok := left.(NumberVal)
	rn, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(e.GetSpan(), "Operands must be numbers.")
	}

	switch e.Op {
	case token.MINUS:
		return ln - rn, nil
	case token.STAR:
		return ln * rn, nil
	case token.SLASH:
		// IEEE-754: x/0 is ±Infinity, 0/0 is NaN
		return ln / rn, nil
	case token.LESS:
		return BoolVal(ln < rn), nil
	case token.LESS_EQUAL:
		return BoolVal(ln <= rn), nil
	case token.GREATER:
		return BoolVal(ln > rn), nil
	case token.GREATER_EQUAL:
		return BoolVal(ln >= rn), nil
	default:
		return nil, runtimeErr(e.GetSpan(), "unknown binary operator: %s", e.Op)
	}
}

// evalLogical returns whichever operand decided the result.
func (i *Interpreter) evalLogical(e *ast.Logical) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op == token.KW_OR {
		if IsTruthy(left) {
			return left, nil // short-circuit
		}
		return i.evalExpr(e.Right)
	}
	// AND
	if !IsTruthy(left) {
		return left, nil // short-circuit
	}
	return i.evalExpr(e.Right)
}

// ============================================================
// Calls
// ============================================================

func (i *Interpreter) evalCall(e *ast.Call) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	return i.callValue(callee, args, e.Paren)
}

func (i *Interpreter) callValue(callee Value, args []Value, s span.Span) (Value, error) {
	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(s, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErr(s, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	switch fn := fn.(type) {
	case *FuncVal:
		return i.callFunc(fn, args, s)
	case *ClassVal:
		return i.instantiate(fn, args, s)
	case *BuiltinVal:
		val, err := fn.Fn(args)
		if err != nil {
			var rtErr *RuntimeError
			if errors.As(err, &rtErr) {
				if rtErr.Span == (span.Span{}) {
					rtErr.Span = s
				}
				return nil, rtErr
			}
			return nil, runtimeErr(s, "%s", err)
		}
		return val, nil
	default:
		return nil, runtimeErr(s, "Can only call functions and classes.")
	}
}

// callFunc runs fn's body in a fresh frame enclosed by fn's closure.
func (i *Interpreter) callFunc(fn *FuncVal, args []Value, s span.Span) (Value, error) {
	if i.depth >= i.maxDepth {
		i.logger.Debug("call depth exhausted",
			slog.String("function", fn.Name()),
			slog.Int("depth", i.depth))
		return nil, stackOverflow(s)
	}
	i.depth++
	defer func() { i.depth-- }()

	funcEnv := NewEnvironment(fn.Closure)
	for idx, param := range fn.Decl.Params {
		funcEnv.Define(param.Name, args[idx])
	}

	result, err := i.execBlock(fn.Decl.Body, funcEnv)
	if err != nil {
		return nil, err
	}

	// an initializer yields its instance, even after a bare `return;`
	if fn.IsInit {
		return fn.Closure.GetAt(0, "this")
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

func (i *Interpreter) instantiate(cls *ClassVal, args []Value, s span.Span) (Value, error) {
	inst := NewInstance(cls)
	if init := cls.FindMethod("init"); init != nil {
		if _, err := i.callFunc(init.Bind(inst), args, s); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// ============================================================
// Properties
// ============================================================

func (i *Interpreter) evalGet(e *ast.Get) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name.Span, "Only instances have properties.")
	}
	val, ok := inst.Get(e.Name.Name)
	if !ok {
		return nil, undefinedErr(e.Name.Span, "Undefined property '%s'.", e.Name.Name)
	}
	return val, nil
}

func (i *Interpreter) evalSet(e *ast.Set) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name.Span, "Only instances have fields.")
	}
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name.Name, val)
	return val, nil
}

// evalSuper finds the method on the superclass recorded for this class and
// binds it to the current `this`, which lives one frame closer than `super`.
func (i *Interpreter) evalSuper(e *ast.Super) (Value, error) {
	dist, ok := i.locals.Distance(e)
	if !ok {
		return nil, runtimeErr(e.Span, "Can't use 'super' outside of a class.")
	}

	superVal, err := i.env.GetAt(dist, "super")
	if err != nil {
		return nil, undefinedErr(e.Span, "Undefined variable 'super'.")
	}
	superclass, ok := superVal.(*ClassVal)
	if !ok {
		return nil, runtimeErr(e.Span, "Superclass must be a class.")
	}

	thisVal, err := i.env.GetAt(dist-1, "this")
	if err != nil {
		return nil, undefinedErr(e.Span, "Undefined variable 'this'.")
	}
	inst, ok := thisVal.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Span, "Only instances have properties.")
	}

	method := superclass.FindMethod(e.Method.Name)
	if method == nil {
		return nil, undefinedErr(e.Method.Span, "Undefined property '%s'.", e.Method.Name)
	}
	return method.Bind(inst), nil
}
