package runtime

import (
	"errors"
	"fmt"
)

// ErrUndefined is returned (wrapped) when a name has no binding.
var ErrUndefined = errors.New("undefined variable")

// ErrNotDeclared is returned by Finalize for a name that was never declared
// in the frame.
var ErrNotDeclared = errors.New("binding was not declared")

// Environment is one frame of the lexical scope chain. Frames are shared by
// pointer between blocks, calls and closures; a write through one holder is
// seen by all of them.
type Environment struct {
	values    map[string]Value
	pending   map[string]struct{} // declared, not yet finalized
	enclosing *Environment
}

// NewEnvironment creates a frame enclosed by enclosing (nil for the global
// frame).
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{
		values:    make(map[string]Value),
		enclosing: enclosing,
	}
}

// Enclosing returns the parent frame, or nil for the global frame.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this frame, replacing any existing binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
	delete(e.pending, name)
}

// Declare creates a binding for name that holds nil until Finalize is
// called. Class declarations use it so that methods can refer to the class
// by name.
func (e *Environment) Declare(name string) {
	e.values[name] = NilVal{}
	if e.pending == nil {
		e.pending = make(map[string]struct{})
	}
	e.pending[name] = struct{}{}
}

// Finalize sets the value of a binding previously created by Declare in
// this frame.
func (e *Environment) Finalize(name string, value Value) error {
	if _, ok := e.pending[name]; !ok {
		return fmt.Errorf("finalize '%s': %w", name, ErrNotDeclared)
	}
	delete(e.pending, name)
	e.values[name] = value
	return nil
}

// Get looks name up in this frame only.
func (e *Environment) Get(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// ancestor follows distance enclosing links. It returns nil if the chain is
// shorter than distance.
func (e *Environment) ancestor(distance int) *Environment {
	env := e
	for hop := 0; hop < distance && env != nil; hop++ {
		env = env.enclosing
	}
	return env
}

func (e *Environment) root() *Environment {
	env := e
	for env.enclosing != nil {
		env = env.enclosing
	}
	return env
}

// GetAt reads name from the frame distance hops up the chain.
func (e *Environment) GetAt(distance int, name string) (Value, error) {
	if env := e.ancestor(distance); env != nil {
		if v, ok := env.values[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w '%s'", ErrUndefined, name)
}

// GetGlobal reads name from the global frame.
func (e *Environment) GetGlobal(name string) (Value, error) {
	return e.root().GetAt(0, name)
}

// AssignAt overwrites an existing binding distance hops up the chain.
// Assignment never creates a binding.
func (e *Environment) AssignAt(distance int, name string, value Value) error {
	env := e.ancestor(distance)
	if env == nil {
		return fmt.Errorf("%w '%s'", ErrUndefined, name)
	}
	if _, ok := env.values[name]; !ok {
		return fmt.Errorf("%w '%s'", ErrUndefined, name)
	}
	env.values[name] = value
	return nil
}

// AssignGlobal overwrites an existing binding in the global frame.
func (e *Environment) AssignGlobal(name string, value Value) error {
	return e.root().AssignAt(0, name, value)
}
