package ast

import (
	"testing"
	"treelox/internal/token"
)

func TestSprintExpression(t *testing.T) {
	// -123 * (45.67)
	expr := &Binary{
		Op: token.STAR,
		Left: &Unary{
			Op:      token.MINUS,
			Operand: &Literal{Value: 123.0},
		},
		Right: &Grouping{Inner: &Literal{Value: 45.67}},
	}

	got := Sprint(expr)
	want := "(* (- 123) (group 45.67))"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSprintStatements(t *testing.T) {
	prog := &Program{Stmts: []Stmt{
		&Var{Name: Ident{Name: "a"}, Init: &Literal{Value: "hi"}},
		&Print{Expr: &Call{
			Callee: &Get{Object: &This{}, Name: Ident{Name: "greet"}},
			Args:   []Expr{&Variable{Name: "a"}, &Literal{Value: nil}},
		}},
		&Class{
			Name:       Ident{Name: "B"},
			Superclass: &Variable{Name: "A"},
			Methods: []*Function{{
				Name:   Ident{Name: "m"},
				Params: []Ident{{Name: "x"}},
				Body:   []Stmt{&Return{Value: &Super{Method: Ident{Name: "m"}}}},
			}},
		},
	}}

	got := Sprint(prog)
	want := "(var a \"hi\")\n" +
		"(print (call (get this greet) a nil))\n" +
		"(class B < A (method m (x) (return super.m)))"
	if got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestNodeToMapKinds(t *testing.T) {
	stmt := &If{
		Condition: &Logical{Op: token.KW_AND, Left: &Literal{Value: true}, Right: &Literal{Value: false}},
		Then:      &Break{},
	}

	got := NodeToMap(stmt)
	if got["kind"] != "If" {
		t.Fatalf("expected kind If, got %v", got["kind"])
	}
	if _, ok := got["else"]; ok {
		t.Errorf("expected no else branch in %v", got)
	}
	cond := got["condition"].(map[string]interface{})
	if cond["kind"] != "Logical" || cond["op"] != "and" {
		t.Errorf("unexpected condition map: %v", cond)
	}
}
