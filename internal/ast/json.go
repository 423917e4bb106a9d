package ast

import (
	"treelox/internal/span"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// Every node carries a "kind" field naming its type.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *Program:
		return m("Program", n.Span, "stmts", stmtSlice(n.Stmts))

	// ---- Expressions ----
	case *Literal:
		return m("Literal", n.Span, "value", n.Value)
	case *Variable:
		return m("Variable", n.Span, "name", n.Name)
	case *Assign:
		return m("Assign", n.Span, "name", n.Name.Name, "value", exprMap(n.Value))
	case *Unary:
		return m("Unary", n.Span, "op", n.Op.String(), "operand", exprMap(n.Operand))
	case *Binary:
		return m("Binary", n.Span,
			"op", n.Op.String(),
			"left", exprMap(n.Left),
			"right", exprMap(n.Right))
	case *Logical:
		return m("Logical", n.Span,
			"op", n.Op.String(),
			"left", exprMap(n.Left),
			"right", exprMap(n.Right))
	case *Call:
		return m("Call", n.Span,
			"callee", exprMap(n.Callee),
			"args", exprSlice(n.Args))
	case *Get:
		return m("Get", n.Span, "object", exprMap(n.Object), "name", n.Name.Name)
	case *Set:
		return m("Set", n.Span,
			"object", exprMap(n.Object),
			"name", n.Name.Name,
			"value", exprMap(n.Value))
	case *This:
		return m("This", n.Span)
	case *Super:
		return m("Super", n.Span, "method", n.Method.Name)
	case *Grouping:
		return m("Grouping", n.Span, "inner", exprMap(n.Inner))

	// ---- Statements ----
	case *Expression:
		return m("Expression", n.Span, "expr", exprMap(n.Expr))
	case *Print:
		return m("Print", n.Span, "expr", exprMap(n.Expr))
	case *Var:
		result := m("Var", n.Span, "name", n.Name.Name)
		if n.Init != nil {
			result["init"] = exprMap(n.Init)
		}
		return result
	case *Block:
		return m("Block", n.Span, "stmts", stmtSlice(n.Stmts))
	case *If:
		result := m("If", n.Span,
			"condition", exprMap(n.Condition),
			"then", stmtMap(n.Then))
		if n.Else != nil {
			result["else"] = stmtMap(n.Else)
		}
		return result
	case *While:
		return m("While", n.Span,
			"condition", exprMap(n.Condition),
			"body", stmtMap(n.Body))
	case *Function:
		return functionMap(n)
	case *Return:
		result := m("Return", n.Span)
		if n.Value != nil {
			result["value"] = exprMap(n.Value)
		}
		return result
	case *Break:
		return m("Break", n.Span)
	case *Class:
		result := m("Class", n.Span, "name", n.Name.Name)
		if n.Superclass != nil {
			result["superclass"] = n.Superclass.Name
		}
		methods := make([]interface{}, len(n.Methods))
		for i, md := range n.Methods {
			methods[i] = functionMap(md)
		}
		result["methods"] = methods
		return result

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": spanToMap(s),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func functionMap(fn *Function) map[string]interface{} {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	return m("Function", fn.Span,
		"name", fn.Name.Name,
		"params", params,
		"body", stmtSlice(fn.Body))
}

func spanToMap(s span.Span) map[string]interface{} {
	return map[string]interface{}{
		"start": map[string]interface{}{
			"offset": s.Start.Offset,
			"line":   s.Start.Line,
			"column": s.Start.Column,
		},
		"end": map[string]interface{}{
			"offset": s.End.Offset,
			"line":   s.End.Line,
			"column": s.End.Column,
		},
	}
}

// exprMap and stmtMap avoid handing a typed nil pointer to NodeToMap.
func exprMap(e Expr) map[string]interface{} {
	if e == nil {
		return nil
	}
	return NodeToMap(e)
}

func stmtMap(s Stmt) map[string]interface{} {
	if s == nil {
		return nil
	}
	return NodeToMap(s)
}

func stmtSlice(stmts []Stmt) []interface{} {
	result := make([]interface{}, len(stmts))
	for i, s := range stmts {
		result[i] = NodeToMap(s)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}
