package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"treelox/internal/diag"
	"treelox/internal/lexer"
	"treelox/internal/parser"
	"treelox/internal/resolver"
)

// runSource lexes, parses, resolves and executes source code, returning
// captured stdout and any error. Compile-time diagnostics come back as a
// diag.List.
func runSource(source string, opts ...Option) (string, error) {
	var diags diag.List
	tokens, lexDiags := lexer.New(source, "test.lox").Tokenize()
	diags = append(diags, lexDiags...)
	prog, parseDiags := parser.New(tokens).ParseProgram()
	diags = append(diags, parseDiags...)
	if diags.HasErrors() {
		return "", diags
	}
	locals, resolveDiags := resolver.Resolve(prog)
	if len(resolveDiags) > 0 {
		return "", diag.List(resolveDiags)
	}

	var buf bytes.Buffer
	interp := NewInterpreter(&buf, opts...)
	err := interp.Run(prog, locals)
	return buf.String(), err
}

func expectOutput(t *testing.T, source, expected string) {
	t.Helper()
	out, err := runSource(source)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimRight(out, "\n") != strings.TrimRight(expected, "\n") {
		t.Errorf("output mismatch:\nexpected: %q\ngot:      %q", expected, out)
	}
}

func expectError(t *testing.T, source, contains string) *RuntimeError {
	t.Helper()
	_, err := runSource(source)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("expected error containing %q, got: %v", contains, err)
	}
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	return rtErr
}

// ---- Values and operators ----

func TestPrintLiterals(t *testing.T) {
	expectOutput(t, `print 42; print 2.5; print "hello"; print true; print nil;`,
		"42\n2.5\nhello\ntrue\nnil\n")
}

func TestArithmetic(t *testing.T) {
	expectOutput(t, `print 1 + 2 * 3;`, "7\n")
	expectOutput(t, `print (1 + 2) * 3;`, "9\n")
	expectOutput(t, `print 10 / 4;`, "2.5\n")
	expectOutput(t, `print -3 - -1;`, "-2\n")
	expectOutput(t, `print 0.1 + 0.2 == 0.3;`, "false\n")
}

func TestLargeNumberOutput(t *testing.T) {
	expectOutput(t, `print 100000000000000000000;`, "100000000000000000000\n")
	expectOutput(t, `print 1000000000000000000000 * 1000;`, "1e+24\n")
	expectOutput(t, `print -1000000000000000000000;`, "-1e+21\n")
	expectOutput(t, `print 0.000001;`, "0.000001\n")
}

func TestDivisionByZero(t *testing.T) {
	expectOutput(t, `print 1 / 0; print -1 / 0; print 0 / 0;`, "Infinity\n-Infinity\nNaN\n")
	expectOutput(t, `var n = 0 / 0; print n == n;`, "false\n")
}

func TestStringConcatenation(t *testing.T) {
	expectOutput(t, `print "foo" + "bar";`, "foobar\n")
	expectError(t, `print "a" + 1;`, "Operands must be two numbers or two strings.")
}

func TestComparison(t *testing.T) {
	expectOutput(t, `print 1 < 2; print 2 <= 2; print 3 > 4; print 4 >= 5;`, "true\ntrue\nfalse\nfalse\n")
	rtErr := expectError(t, `print "a" < "b";`, "Operands must be numbers.")
	if rtErr.Kind != KindType {
		t.Errorf("expected type error, got %s", rtErr.Kind)
	}
}

func TestUnary(t *testing.T) {
	expectOutput(t, `print !nil; print !0; print !!"";`, "true\nfalse\ntrue\n")
	expectError(t, `print -"x";`, "Operand must be a number.")
}

func TestEquality(t *testing.T) {
	expectOutput(t, `print nil == nil; print 1 == 1; print "a" == "a"; print true != false;`,
		"true\ntrue\ntrue\ntrue\n")
	// cross-kind equality is false, never an error
	expectOutput(t, `print 1 == "1"; print nil == false; print 0 == false;`, "false\nfalse\nfalse\n")
	// functions, classes and instances compare by identity
	expectOutput(t, `
fun f() {}
class A {}
var a = A();
print f == f;
print A == A;
print a == a;
print a == A();`, "true\ntrue\ntrue\nfalse\n")
}

func TestLogicalOperatorsReturnOperand(t *testing.T) {
	expectOutput(t, `print nil or "default"; print "x" or "y"; print 0 and "second"; print false and boom;`,
		"default\nx\nsecond\nfalse\n")
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, `
if (0) print "zero";
if ("") print "empty";
if (nil) print "nil"; else print "nil is falsy";
if (false) print "false"; else print "false is falsy";`,
		"zero\nempty\nnil is falsy\nfalse is falsy\n")
}

// ---- Variables and scope ----

func TestShadowing(t *testing.T) {
	expectOutput(t, `var a = 1; { var a = 2; print a; } print a;`, "2\n1\n")
}

func TestBlockAssignsOuter(t *testing.T) {
	expectOutput(t, `var a = 1; { a = 2; { a = a + 1; } } print a;`, "3\n")
}

func TestAssignmentIsExpression(t *testing.T) {
	expectOutput(t, `var a; var b; a = b = 5; print a; print b;`, "5\n5\n")
}

func TestUninitializedVarIsNil(t *testing.T) {
	expectOutput(t, `var a; print a;`, "nil\n")
}

func TestGlobalForwardReference(t *testing.T) {
	expectOutput(t, `fun f() { return g(); } fun g() { return "g"; } print f();`, "g\n")
}

func TestUndefinedVariable(t *testing.T) {
	rtErr := expectError(t, `print missing;`, "Undefined variable 'missing'.")
	if rtErr.Kind != KindUndefined {
		t.Errorf("expected undefined-name error, got %s", rtErr.Kind)
	}
	expectError(t, `missing = 1;`, "Undefined variable 'missing'.")
}

func TestClosureCapturesEnvironmentNotValue(t *testing.T) {
	expectOutput(t, `
var a = "global";
{
  fun show() { print a; }
  show();
  var a = "block";
  show();
}`, "global\nglobal\n")
}

// ---- Control flow ----

func TestWhileAndFor(t *testing.T) {
	expectOutput(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`, "0\n1\n2\n")
	expectOutput(t, `for (var i = 0; i < 3; i = i + 1) print i;`, "0\n1\n2\n")
}

func TestBreak(t *testing.T) {
	expectOutput(t, `
for (var i = 0; ; i = i + 1) {
  if (i == 2) break;
  print i;
}
var j = 0;
while (true) {
  j = j + 1;
  if (j > 3) { break; }
}
print j;`, "0\n1\n4\n")
}

func TestBreakInnermostLoopOnly(t *testing.T) {
	expectOutput(t, `
for (var i = 0; i < 2; i = i + 1) {
  for (var j = 0; j < 5; j = j + 1) {
    if (j == 1) break;
    print str(i) + ":" + str(j);
  }
}`, "0:0\n1:0\n")
}

// ---- Functions ----

func TestFunctionCall(t *testing.T) {
	expectOutput(t, `fun add(a, b) { return a + b; } print add(1, 2);`, "3\n")
}

func TestFunctionWithoutReturnYieldsNil(t *testing.T) {
	expectOutput(t, `fun f() {} print f(); fun g() { return; } print g();`, "nil\nnil\n")
}

func TestReturnFromNestedLoop(t *testing.T) {
	expectOutput(t, `
fun find() {
  for (var i = 0; i < 10; i = i + 1) {
    while (true) {
      if (i == 3) return i;
      break;
    }
  }
  return -1;
}
print find();`, "3\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);`, "610\n")
}

func TestClosureCounterIndependence(t *testing.T) {
	expectOutput(t, `
fun make() {
  var i = 0;
  fun inc() { i = i + 1; print i; }
  return inc;
}
var c1 = make();
var c2 = make();
c1();
c1();
c2();`, "1\n2\n1\n")
}

func TestClosuresShareFrame(t *testing.T) {
	expectOutput(t, `
var get;
var set;
fun pair() {
  var v = "old";
  fun g() { return v; }
  fun s(x) { v = x; }
  get = g;
  set = s;
}
pair();
set("new");
print get();`, "new\n")
}

func TestArityMismatch(t *testing.T) {
	rtErr := expectError(t, `fun f(a, b) {} f(1);`, "Expected 2 arguments but got 1.")
	if rtErr.Kind != KindType {
		t.Errorf("expected type error, got %s", rtErr.Kind)
	}
}

func TestCallNonCallable(t *testing.T) {
	rtErr := expectError(t, `var x = 1; x();`, "Can only call functions and classes.")
	if rtErr.Kind != KindType {
		t.Errorf("expected type error, got %s", rtErr.Kind)
	}
	expectError(t, `"str"();`, "Can only call functions and classes.")
}

func TestFunctionPrinting(t *testing.T) {
	expectOutput(t, `fun f() {} print f; print clock; class A { m() {} } print A; print A(); print A().m;`,
		"<fn f>\n<native fn clock>\nA\nA instance\n<fn m>\n")
}

func TestStackOverflow(t *testing.T) {
	_, err := runSource(`fun f() { f(); } f();`, WithMaxDepth(64))
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if rtErr.Kind != KindResource || rtErr.Message != "Stack overflow." {
		t.Errorf("expected stack overflow, got %s: %s", rtErr.Kind, rtErr.Message)
	}
}

func TestDeepRecursionAtDefaultDepth(t *testing.T) {
	expectOutput(t, `
fun count(n) {
  if (n == 0) return 0;
  return 1 + count(n - 1);
}
print count(5000);`, "5000\n")
}

func TestRunawayRecursionAtDefaultDepth(t *testing.T) {
	_, err := runSource(`fun f() { f(); } f();`)
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Kind != KindResource {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestCallDepthLimitAllowsDeepRecursion(t *testing.T) {
	_, err := runSource(`fun down(n) { if (n == 0) return 0; return down(n - 1); } print down(60);`, WithMaxDepth(64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRuntimeErrorStopsProgram(t *testing.T) {
	out, err := runSource(`print "before"; print nil + 1; print "after";`)
	if err == nil {
		t.Fatal("expected runtime error")
	}
	if out != "before\n" {
		t.Errorf("expected output to stop at the error, got %q", out)
	}
}

func TestRuntimeErrorPosition(t *testing.T) {
	rtErr := expectError(t, "var a = 1;\nprint a + \"x\";", "Operands must be two numbers or two strings.")
	if rtErr.Span.Start.Line != 2 {
		t.Errorf("expected error on line 2, got %s", rtErr.Span.Start)
	}
	if !strings.HasPrefix(rtErr.Error(), "runtime error at 2:") {
		t.Errorf("unexpected error text %q", rtErr.Error())
	}
}

// ---- Classes ----

func TestClassFieldsAndMethods(t *testing.T) {
	expectOutput(t, `
class Point {
  init(x, y) { this.x = x; this.y = y; }
  sum() { return this.x + this.y; }
}
var p = Point(1, 2);
print p.sum();
p.x = 10;
print p.sum();`, "3\n12\n")
}

func TestInheritanceAndSuper(t *testing.T) {
	expectOutput(t, `
class A { greet() { print "A"; } }
class B < A { greet() { super.greet(); print "B"; } }
B().greet();`, "A\nB\n")
}

func TestSuperBindsCurrentInstance(t *testing.T) {
	expectOutput(t, `
class A { name() { return this.n; } }
class B < A { name() { return "B:" + super.name(); } }
class C < B {}
var c = C();
c.n = "c";
print c.name();`, "B:c\n")
}

func TestSuperSkipsOverriddenMethod(t *testing.T) {
	expectOutput(t, `
class A { method() { print "A method"; } }
class B < A {
  method() { print "B method"; }
  test() { super.method(); }
}
class C < B {}
C().test();`, "A method\n")
}

func TestInheritedInitializer(t *testing.T) {
	expectOutput(t, `
class A { init(v) { this.v = v; } }
class B < A {}
print B(7).v;`, "7\n")
	expectError(t, `class A { init(v) {} } class B < A {} B();`, "Expected 1 arguments but got 0.")
}

func TestFieldShadowsMethod(t *testing.T) {
	expectOutput(t, `
class A { greet() { return "method"; } }
var a = A();
a.greet = "x";
print a.greet;`, "x\n")
}

func TestInitAlwaysReturnsInstance(t *testing.T) {
	expectOutput(t, `
class A {
  init(flag) {
    this.before = "set";
    if (flag) return;
    this.after = "also set";
  }
}
var a = A(true);
print a.before;
print hasfield(a, "after");
print a.init(false) == a;
print a.after;`, "set\nfalse\ntrue\nalso set\n")
}

func TestBoundMethodKeepsThis(t *testing.T) {
	expectOutput(t, `
class Counter {
  init() { this.n = 0; }
  inc() { this.n = this.n + 1; return this.n; }
}
var c = Counter();
var f = c.inc;
f();
f();
print c.n;`, "2\n")
}

func TestMethodsReferToClassByName(t *testing.T) {
	expectOutput(t, `
class Node {
  make() { return Node(); }
}
print Node().make();`, "Node instance\n")
}

func TestPropertyErrors(t *testing.T) {
	rtErr := expectError(t, `class A {} print A().nope;`, "Undefined property 'nope'.")
	if rtErr.Kind != KindUndefined {
		t.Errorf("expected undefined-name error, got %s", rtErr.Kind)
	}
	expectError(t, `var x = 1; print x.y;`, "Only instances have properties.")
	expectError(t, `var x = "s"; x.y = 1;`, "Only instances have fields.")
	expectError(t, `class A < B {} class B {}`, "Undefined variable 'B'.")
	expectError(t, `var NotClass = 1; class A < NotClass {}`, "Superclass must be a class.")
	expectError(t, `class A {} class B < A { m() { return super.missing; } } B().m();`, "Undefined property 'missing'.")
}

// ---- Natives ----

func TestNatives(t *testing.T) {
	expectOutput(t, `
print type(1);
print type("s");
print type(nil);
print type(clock);
print len("héllo");
print str(3) + "!";
print clock() > 0;`, "number\nstring\nnil\nfunction\n5\n3!\ntrue\n")
}

func TestFieldNatives(t *testing.T) {
	expectOutput(t, `
class A {}
class B < A {}
var b = B();
setfield(b, "x", 1);
print getfield(b, "x");
print hasfield(b, "x");
delfield(b, "x");
print hasfield(b, "x");
print isinstance(b, A);
print isinstance(A(), B);
print isinstance(1, A);`, "1\ntrue\nfalse\ntrue\nfalse\nfalse\n")
	expectError(t, `len(1);`, "len() expects a string")
	rtErr := expectError(t, `class A {} getfield(A(), "x");`, "Undefined property 'x'.")
	if rtErr.Kind != KindUndefined || rtErr.Span.Start.Line != 1 {
		t.Errorf("unexpected native error: %s at %s", rtErr.Kind, rtErr.Span.Start)
	}
}

// ---- REPL echo ----

func TestEchoPrintsExpressionStatements(t *testing.T) {
	out, err := runSource(`1 + 2; var a = "x"; a; print "p";`, WithEcho())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "3\nx\np\n" {
		t.Errorf("unexpected echo output %q", out)
	}

	out, _ = runSource(`1 + 2;`)
	if out != "" {
		t.Errorf("expected no echo without WithEcho, got %q", out)
	}
}

func TestRunAcrossSessions(t *testing.T) {
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)

	for _, line := range []string{
		`var count = 0;`,
		`fun bump() { count = count + 1; return count; }`,
		`{ var local = bump(); print local; }`,
		`print bump();`,
	} {
		tokens, _ := lexer.New(line, "repl").Tokenize()
		prog, diags := parser.New(tokens).ParseProgram()
		if len(diags) > 0 {
			t.Fatalf("parse errors: %v", diags)
		}
		locals, diags := resolver.Resolve(prog)
		if len(diags) > 0 {
			t.Fatalf("resolve errors: %v", diags)
		}
		if err := interp.Run(prog, locals); err != nil {
			t.Fatalf("runtime error: %v", err)
		}
	}
	if buf.String() != "1\n2\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
