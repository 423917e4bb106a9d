package runtime

import (
	"errors"
	"testing"
)

func TestEnvironmentDefineAndGetAt(t *testing.T) {
	global := NewEnvironment(nil)
	outer := NewEnvironment(global)
	inner := NewEnvironment(outer)

	global.Define("g", NumberVal(1))
	outer.Define("o", NumberVal(2))
	inner.Define("i", NumberVal(3))

	for _, tt := range []struct {
		dist int
		name string
		want Value
	}{
		{0, "i", NumberVal(3)},
		{1, "o", NumberVal(2)},
		{2, "g", NumberVal(1)},
	} {
		got, err := inner.GetAt(tt.dist, tt.name)
		if err != nil {
			t.Fatalf("GetAt(%d, %q): %v", tt.dist, tt.name, err)
		}
		if got != tt.want {
			t.Errorf("GetAt(%d, %q) = %v, want %v", tt.dist, tt.name, got, tt.want)
		}
	}

	if _, err := inner.GetAt(0, "o"); !errors.Is(err, ErrUndefined) {
		t.Errorf("expected ErrUndefined for wrong distance, got %v", err)
	}
	if _, err := inner.GetAt(5, "g"); !errors.Is(err, ErrUndefined) {
		t.Errorf("expected ErrUndefined past the root, got %v", err)
	}
}

func TestEnvironmentDefineOverwrites(t *testing.T) {
	env := NewEnvironment(nil)
	env.Define("a", NumberVal(1))
	env.Define("a", StringVal("two"))
	if got, _ := env.Get("a"); got != StringVal("two") {
		t.Errorf("expected redefinition to overwrite, got %v", got)
	}
}

func TestEnvironmentGlobal(t *testing.T) {
	global := NewEnvironment(nil)
	inner := NewEnvironment(NewEnvironment(global))
	global.Define("g", BoolVal(true))

	got, err := inner.GetGlobal("g")
	if err != nil || got != BoolVal(true) {
		t.Fatalf("GetGlobal = %v, %v", got, err)
	}
	if err := inner.AssignGlobal("g", BoolVal(false)); err != nil {
		t.Fatalf("AssignGlobal: %v", err)
	}
	if got, _ := global.Get("g"); got != BoolVal(false) {
		t.Errorf("expected global to be updated, got %v", got)
	}
	if _, err := inner.GetGlobal("missing"); !errors.Is(err, ErrUndefined) {
		t.Errorf("expected ErrUndefined, got %v", err)
	}
}

func TestEnvironmentAssignNeverDeclares(t *testing.T) {
	outer := NewEnvironment(nil)
	inner := NewEnvironment(outer)
	outer.Define("x", NumberVal(1))

	if err := inner.AssignAt(1, "x", NumberVal(5)); err != nil {
		t.Fatalf("AssignAt: %v", err)
	}
	if got, _ := outer.Get("x"); got != NumberVal(5) {
		t.Errorf("expected outer x = 5, got %v", got)
	}

	if err := inner.AssignAt(0, "x", NumberVal(9)); !errors.Is(err, ErrUndefined) {
		t.Errorf("expected ErrUndefined, got %v", err)
	}
	if _, ok := inner.Get("x"); ok {
		t.Error("assignment must not create a binding")
	}
}

func TestEnvironmentSharedMutation(t *testing.T) {
	shared := NewEnvironment(nil)
	shared.Define("v", NumberVal(0))
	a := NewEnvironment(shared)
	b := NewEnvironment(shared)

	if err := a.AssignAt(1, "v", NumberVal(42)); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetAt(1, "v")
	if err != nil || got != NumberVal(42) {
		t.Errorf("expected write through one child to be visible via the other, got %v, %v", got, err)
	}
}

func TestEnvironmentDeclareFinalize(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("C")

	if got, _ := env.Get("C"); got != (NilVal{}) {
		t.Errorf("expected declared binding to hold nil, got %v", got)
	}

	cls := &ClassVal{Name: "C"}
	if err := env.Finalize("C", cls); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got, _ := env.Get("C"); got != Value(cls) {
		t.Errorf("expected finalized class, got %v", got)
	}

	if err := env.Finalize("C", cls); !errors.Is(err, ErrNotDeclared) {
		t.Errorf("expected second Finalize to fail with ErrNotDeclared, got %v", err)
	}
	if err := env.Finalize("never", cls); !errors.Is(err, ErrNotDeclared) {
		t.Errorf("expected ErrNotDeclared, got %v", err)
	}
}
