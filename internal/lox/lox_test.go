package lox

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"treelox/internal/runtime"
)

func expectStage(t *testing.T, source string, stage Stage, code string) *Failure {
	t.Helper()
	var buf bytes.Buffer
	err := Run(source, "test.lox", &buf)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	if f.Stage != stage {
		t.Fatalf("expected %s failure, got %s: %v", stage, f.Stage, err)
	}
	if code != "" && !strings.Contains(err.Error(), code) {
		t.Errorf("expected %s in %q", code, err.Error())
	}
	return f
}

func TestRunPrints(t *testing.T) {
	var buf bytes.Buffer
	if err := Run("var a = 1; print a + 2;", "ok.lox", &buf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.String() != "3\n" {
		t.Errorf("expected 3, got %q", buf.String())
	}
}

func TestRunLexicalFailure(t *testing.T) {
	f := expectStage(t, `print "open;`, StageLexical, "E1")
	if len(f.Diagnostics) == 0 {
		t.Error("expected diagnostics")
	}
	if ExitCode(f) != ExitCompile {
		t.Errorf("expected exit %d, got %d", ExitCompile, ExitCode(f))
	}
}

func TestRunSyntaxFailure(t *testing.T) {
	expectStage(t, "print 1 +;", StageSyntax, "E2002")
}

func TestRunResolutionFailure(t *testing.T) {
	f := expectStage(t, "return 1;", StageResolution, "E3")
	if ExitCode(f) != ExitCompile {
		t.Errorf("expected exit %d, got %d", ExitCompile, ExitCode(f))
	}
}

func TestRunRuntimeFailure(t *testing.T) {
	f := expectStage(t, `print 1 + "a";`, StageRuntime, "")
	var rtErr *runtime.RuntimeError
	if !errors.As(f, &rtErr) {
		t.Fatalf("expected wrapped *RuntimeError, got %v", f.Err)
	}
	if rtErr.Kind != runtime.KindType {
		t.Errorf("expected type error, got %s", rtErr.Kind)
	}
	if ExitCode(f) != ExitRuntime {
		t.Errorf("expected exit %d, got %d", ExitRuntime, ExitCode(f))
	}
}

func TestRunMaxDepth(t *testing.T) {
	var buf bytes.Buffer
	err := Run("fun f() { f(); } f();", "deep.lox", &buf, WithMaxDepth(32))
	var rtErr *runtime.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Kind != runtime.KindResource {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestExitCodeNil(t *testing.T) {
	if ExitCode(nil) != ExitOK {
		t.Error("expected 0 for nil")
	}
}

func TestSessionKeepsGlobals(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(&buf, WithEcho())

	for _, line := range []string{
		"var count = 0;",
		"fun bump() { count = count + 1; return count; }",
		"bump();",
		"bump();",
	} {
		if err := s.Eval(line, "repl"); err != nil {
			t.Fatalf("Eval(%q): %v", line, err)
		}
	}
	if buf.String() != "1\n2\n" {
		t.Errorf("expected echoed 1 and 2, got %q", buf.String())
	}
}

func TestSessionSurvivesErrors(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(&buf)

	if err := s.Eval("var x = 10;", "repl"); err != nil {
		t.Fatal(err)
	}
	if err := s.Eval("print undefinedName;", "repl"); err == nil {
		t.Fatal("expected runtime error")
	}
	if err := s.Eval("print x +;", "repl"); err == nil {
		t.Fatal("expected syntax error")
	}
	if err := s.Eval("print x;", "repl"); err != nil {
		t.Fatalf("session should survive earlier failures: %v", err)
	}
	if buf.String() != "10\n" {
		t.Errorf("expected 10, got %q", buf.String())
	}
	if _, ok := s.Globals().Get("x"); !ok {
		t.Error("expected x in globals")
	}
}

func TestSessionClosureAcrossLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(&buf)
	lines := []string{
		"fun counter() { var n = 0; fun inc() { n = n + 1; print n; } return inc; }",
		"var c = counter();",
		"c(); c();",
	}
	for _, line := range lines {
		if err := s.Eval(line, "repl"); err != nil {
			t.Fatalf("Eval(%q): %v", line, err)
		}
	}
	if buf.String() != "1\n2\n" {
		t.Errorf("expected 1 2, got %q", buf.String())
	}
}
