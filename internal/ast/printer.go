package ast

import (
	"strconv"
	"strings"
)

// Sprint renders a node as a parenthesized prefix expression, e.g.
// `(* (- 1) (group (+ 2 3)))`. Statements render in the same style, one form
// per statement.
func Sprint(node Node) string {
	var sb strings.Builder
	p := &printer{sb: &sb}
	p.node(node)
	return sb.String()
}

type printer struct {
	sb *strings.Builder
}

func (p *printer) parens(name string, parts ...func()) {
	p.sb.WriteByte('(')
	p.sb.WriteString(name)
	for _, part := range parts {
		p.sb.WriteByte(' ')
		part()
	}
	p.sb.WriteByte(')')
}

func (p *printer) word(s string) func() {
	return func() { p.sb.WriteString(s) }
}

func (p *printer) sub(n Node) func() {
	return func() { p.node(n) }
}

func (p *printer) subs(stmts []Stmt) []func() {
	parts := make([]func(), len(stmts))
	for i, s := range stmts {
		parts[i] = p.sub(s)
	}
	return parts
}

func (p *printer) node(node Node) {
	switch n := node.(type) {
	case *Program:
		for i, s := range n.Stmts {
			if i > 0 {
				p.sb.WriteByte('\n')
			}
			p.node(s)
		}

	case *Literal:
		p.sb.WriteString(literalText(n.Value))
	case *Variable:
		p.sb.WriteString(n.Name)
	case *Assign:
		p.parens("=", p.word(n.Name.Name), p.sub(n.Value))
	case *Unary:
		p.parens(n.Op.String(), p.sub(n.Operand))
	case *Binary:
		p.parens(n.Op.String(), p.sub(n.Left), p.sub(n.Right))
	case *Logical:
		p.parens(n.Op.String(), p.sub(n.Left), p.sub(n.Right))
	case *Call:
		parts := []func(){p.sub(n.Callee)}
		for _, a := range n.Args {
			parts = append(parts, p.sub(a))
		}
		p.parens("call", parts...)
	case *Get:
		p.parens("get", p.sub(n.Object), p.word(n.Name.Name))
	case *Set:
		p.parens("set", p.sub(n.Object), p.word(n.Name.Name), p.sub(n.Value))
	case *This:
		p.sb.WriteString("this")
	case *Super:
		p.sb.WriteString("super." + n.Method.Name)
	case *Grouping:
		p.parens("group", p.sub(n.Inner))

	case *Expression:
		p.parens(";", p.sub(n.Expr))
	case *Print:
		p.parens("print", p.sub(n.Expr))
	case *Var:
		if n.Init == nil {
			p.parens("var", p.word(n.Name.Name))
		} else {
			p.parens("var", p.word(n.Name.Name), p.sub(n.Init))
		}
	case *Block:
		p.parens("block", p.subs(n.Stmts)...)
	case *If:
		if n.Else == nil {
			p.parens("if", p.sub(n.Condition), p.sub(n.Then))
		} else {
			p.parens("if-else", p.sub(n.Condition), p.sub(n.Then), p.sub(n.Else))
		}
	case *While:
		p.parens("while", p.sub(n.Condition), p.sub(n.Body))
	case *Function:
		p.function("fun", n)
	case *Return:
		if n.Value == nil {
			p.sb.WriteString("(return)")
		} else {
			p.parens("return", p.sub(n.Value))
		}
	case *Break:
		p.sb.WriteString("(break)")
	case *Class:
		parts := []func(){p.word(n.Name.Name)}
		if n.Superclass != nil {
			parts = append(parts, p.word("< "+n.Superclass.Name))
		}
		for _, md := range n.Methods {
			md := md
			parts = append(parts, func() { p.function("method", md) })
		}
		p.parens("class", parts...)

	default:
		p.sb.WriteString("?")
	}
}

func (p *printer) function(kind string, fn *Function) {
	names := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		names[i] = param.Name
	}
	parts := []func(){p.word(fn.Name.Name), p.word("(" + strings.Join(names, " ") + ")")}
	parts = append(parts, p.subs(fn.Body)...)
	p.parens(kind, parts...)
}

func literalText(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strconv.Quote(val)
	default:
		return "?"
	}
}
