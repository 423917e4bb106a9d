package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/lox"
	"treelox/internal/resolver"
	"treelox/internal/token"
)

// ---- ANSI colors ----

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// palette applies ANSI colours when on is set.
type palette struct {
	on bool
}

func (p palette) wrap(color, s string) string {
	if !p.on {
		return s
	}
	return color + s + colorReset
}

// ---- output helpers ----

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}

func printDiagsText(w io.Writer, diags []diag.Diagnostic, p palette) {
	for _, d := range diags {
		fmt.Fprintln(w, p.wrap(colorRed, d.String()))
	}
}

// printFailure reports a pipeline error: diagnostics one per line, a
// runtime error as a single line.
func printFailure(w io.Writer, err error, p palette) {
	var f *lox.Failure
	if errors.As(err, &f) && f.Stage != lox.StageRuntime {
		printDiagsText(w, f.Diagnostics, p)
		return
	}
	fmt.Fprintln(w, p.wrap(colorRed, "error: "+err.Error()))
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Hint != "" {
			result[i]["hint"] = d.Hint
		}
	}
	return result
}

func printTokensText(w io.Writer, tokens []token.Token) {
	for _, tok := range tokens {
		fmt.Fprintf(w, "%-14s %-20s %d:%d\n", tok.Kind, tok.Lexeme, tok.Span.Start.Line, tok.Span.Start.Column)
	}
}

func printTokensJSON(w io.Writer, tokens []token.Token, diags []diag.Diagnostic) error {
	type tokenJSON struct {
		Kind   string `json:"kind"`
		Lexeme string `json:"lexeme"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
		Offset int    `json:"offset"`
	}

	toks := make([]tokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		toks = append(toks, tokenJSON{
			Kind:   tok.Kind.String(),
			Lexeme: tok.Lexeme,
			Line:   tok.Span.Start.Line,
			Column: tok.Span.Start.Column,
			Offset: tok.Span.Start.Offset,
		})
	}

	return printJSON(w, map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	})
}

// ---- resolver output ----

type resolvedRef struct {
	name     string
	line     int
	column   int
	offset   int
	distance int
}

// resolvedRefs lists every locally resolved reference in source order.
func resolvedRefs(locals resolver.Locals) []resolvedRef {
	refs := make([]resolvedRef, 0, len(locals))
	for expr, dist := range locals {
		s := expr.GetSpan()
		refs = append(refs, resolvedRef{
			name:     refName(expr),
			line:     s.Start.Line,
			column:   s.Start.Column,
			offset:   s.Start.Offset,
			distance: dist,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].offset != refs[j].offset {
			return refs[i].offset < refs[j].offset
		}
		return refs[i].name < refs[j].name
	})
	return refs
}

func refName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Variable:
		return e.Name
	case *ast.Assign:
		return e.Name.Name + " ="
	case *ast.This:
		return "this"
	case *ast.Super:
		return "super"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

func printResolved(w io.Writer, locals resolver.Locals) {
	for _, r := range resolvedRefs(locals) {
		fmt.Fprintf(w, "%d:%d\t%-16s depth %d\n", r.line, r.column, r.name, r.distance)
	}
}
