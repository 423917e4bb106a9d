// Package parser implements the syntax analysis for Lox.
// It uses Pratt parsing for expressions and recursive descent for statements/declarations.
package parser

import (
	"fmt"
	"strconv"
	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/span"
	"treelox/internal/token"
)

// maxArgs is the largest argument or parameter count a call or declaration
// may have.
const maxArgs = 255

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // or
	bpAnd        = 20 // and
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpTerm       = 50 // + -
	bpFactor     = 60 // * /
	bpPrefix     = 70 // ! -
	bpPostfix    = 80 // () .
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.KW_OR:
		return bpOr
	case token.KW_AND:
		return bpAnd
	case token.EQUAL_EQUAL, token.BANG_EQUAL:
		return bpEquality
	case token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpTerm
	case token.STAR, token.SLASH:
		return bpFactor
	case token.LPAREN, token.DOT:
		return bpPostfix
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic

	// panicking suppresses follow-on errors until the next synchronize.
	panicking bool
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseProgram parses every declaration up to EOF and returns the AST root
// and diagnostics. Declarations that fail to parse are dropped from the tree.
func (p *Parser) ParseProgram() (*ast.Program, []diag.Diagnostic) {
	prog := &ast.Program{}
	startPos := p.peek().Span.Start

	for !p.isAtEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}

	prog.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return prog, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return token.Token{Kind: token.ILLEGAL}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

// expect consumes a token of the given kind, or reports msg at the current
// token and leaves it in place.
func (p *Parser) expect(kind token.Kind, msg string) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.errorAt(tok, "E2001", msg)
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

func (p *Parser) errorAt(tok token.Token, code, msg string) {
	if p.panicking {
		return
	}
	p.panicking = true
	p.diags = append(p.diags, diag.Errorf(code, tok.Span, "%s", msg))
}

// ============================================================
// Error recovery
// ============================================================

// synchronize skips tokens until a likely statement boundary: just past a
// semicolon, or before a keyword that starts a statement or a closing brace.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		switch p.peekKind() {
		case token.KW_CLASS, token.KW_FUN, token.KW_VAR, token.KW_FOR, token.KW_IF,
			token.KW_WHILE, token.KW_PRINT, token.KW_RETURN, token.KW_BREAK, token.RBRACE:
			return
		}
		p.advance()
	}
}

// ============================================================
// Declarations
// ============================================================

// parseDeclaration parses one declaration or statement. If it reported any
// diagnostic, the parser resynchronizes and nil is returned.
func (p *Parser) parseDeclaration() ast.Stmt {
	startPos, startDiags := p.pos, len(p.diags)

	var stmt ast.Stmt
	switch p.peekKind() {
	case token.KW_CLASS:
		stmt = p.parseClassDecl()
	case token.KW_FUN:
		start := p.advance() // consume 'fun'
		stmt = p.parseFunction(start.Span.Start, "function")
	case token.KW_VAR:
		stmt = p.parseVarDecl()
	default:
		stmt = p.parseStmt()
	}

	if len(p.diags) > startDiags {
		// a nested declaration may already have recovered
		if p.panicking {
			p.synchronize()
			p.panicking = false
		}
		if p.pos == startPos {
			p.advance()
		}
		return nil
	}
	return stmt
}

// parseClassDecl parses: class IDENT [ < IDENT ] { methods }
func (p *Parser) parseClassDecl() *ast.Class {
	start := p.advance() // consume 'class'
	decl := &ast.Class{}

	nameTok, ok := p.expect(token.IDENT, "Expect class name.")
	if !ok {
		return decl
	}
	decl.Name = ast.Ident{Name: nameTok.Lexeme, Span: nameTok.Span}

	if p.check(token.LESS) {
		p.advance() // consume '<'
		superTok, ok := p.expect(token.IDENT, "Expect superclass name.")
		if !ok {
			return decl
		}
		decl.Superclass = &ast.Variable{
			ExprBase: makeExprBase(superTok.Span.Start, superTok.Span.End),
			Name:     superTok.Lexeme,
		}
	}

	if _, ok := p.expect(token.LBRACE, "Expect '{' before class body."); !ok {
		return decl
	}
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		method := p.parseFunction(p.peek().Span.Start, "method")
		decl.Methods = append(decl.Methods, method)
		if method.Body == nil {
			break
		}
	}
	p.expect(token.RBRACE, "Expect '}' after class body.")

	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFunction parses: IDENT ( params ) { body }. The leading 'fun' (if
// any) has already been consumed. Body is nil when the header is malformed.
func (p *Parser) parseFunction(start span.Position, kind string) *ast.Function {
	fn := &ast.Function{}

	nameTok, ok := p.expect(token.IDENT, fmt.Sprintf("Expect %s name.", kind))
	if !ok {
		return fn
	}
	fn.Name = ast.Ident{Name: nameTok.Lexeme, Span: nameTok.Span}

	if _, ok := p.expect(token.LPAREN, fmt.Sprintf("Expect '(' after %s name.", kind)); !ok {
		return fn
	}
	fn.Params = p.parseParamList()
	if _, ok := p.expect(token.RPAREN, "Expect ')' after parameters."); !ok {
		return fn
	}

	if _, ok := p.expect(token.LBRACE, fmt.Sprintf("Expect '{' before %s body.", kind)); !ok {
		return fn
	}
	fn.Body = p.parseBlockBody()
	if fn.Body == nil {
		fn.Body = []ast.Stmt{}
	}

	fn.Span = p.makeSpan(start)
	return fn
}

// parseParamList parses a possibly empty comma-separated identifier list.
func (p *Parser) parseParamList() []ast.Ident {
	var params []ast.Ident
	if p.check(token.RPAREN) {
		return params
	}
	for {
		if len(params) >= maxArgs {
			p.errorAt(p.peek(), "E2004", fmt.Sprintf("Can't have more than %d parameters.", maxArgs))
		}
		tok, ok := p.expect(token.IDENT, "Expect parameter name.")
		if !ok {
			return params
		}
		params = append(params, ast.Ident{Name: tok.Lexeme, Span: tok.Span})
		if !p.check(token.COMMA) {
			return params
		}
		p.advance() // consume ','
	}
}

// parseVarDecl parses: var IDENT [ = expr ] ;
func (p *Parser) parseVarDecl() *ast.Var {
	start := p.advance() // consume 'var'
	stmt := &ast.Var{}

	nameTok, ok := p.expect(token.IDENT, "Expect variable name.")
	if !ok {
		return stmt
	}
	stmt.Name = ast.Ident{Name: nameTok.Lexeme, Span: nameTok.Span}

	if p.check(token.EQUAL) {
		p.advance()
		stmt.Init = p.parseExpression()
	}
	p.expect(token.SEMICOLON, "Expect ';' after variable declaration.")

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_FOR:
		return p.parseForStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_BREAK:
		return p.parseBreakStmt()
	case token.LBRACE:
		start := p.advance()
		block := &ast.Block{Stmts: p.parseBlockBody()}
		block.Span = p.makeSpan(start.Span.Start)
		return block
	default:
		return p.parseExprStmt()
	}
}

// parsePrintStmt parses: print expr ;
func (p *Parser) parsePrintStmt() *ast.Print {
	start := p.advance() // consume 'print'
	stmt := &ast.Print{Expr: p.parseExpression()}
	p.expect(token.SEMICOLON, "Expect ';' after value.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseIfStmt parses: if ( expr ) stmt [ else stmt ]
func (p *Parser) parseIfStmt() *ast.If {
	start := p.advance() // consume 'if'
	stmt := &ast.If{}

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'if'."); !ok {
		return stmt
	}
	stmt.Condition = p.parseExpression()
	if _, ok := p.expect(token.RPAREN, "Expect ')' after if condition."); !ok {
		return stmt
	}

	stmt.Then = p.parseStmt()
	if p.check(token.KW_ELSE) {
		p.advance() // consume 'else'
		stmt.Else = p.parseStmt()
	}

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseWhileStmt parses: while ( expr ) stmt
func (p *Parser) parseWhileStmt() *ast.While {
	start := p.advance() // consume 'while'
	stmt := &ast.While{}

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'while'."); !ok {
		return stmt
	}
	stmt.Condition = p.parseExpression()
	if _, ok := p.expect(token.RPAREN, "Expect ')' after condition."); !ok {
		return stmt
	}
	stmt.Body = p.parseStmt()

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseForStmt parses: for ( [init] ; [cond] ; [incr] ) stmt
// and lowers it to:
//
//	{ init; while (cond) { stmt; incr; } }
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.advance() // consume 'for'

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'for'."); !ok {
		return nil
	}

	var init ast.Stmt
	switch p.peekKind() {
	case token.SEMICOLON:
		p.advance()
	case token.KW_VAR:
		init = p.parseVarDecl()
	default:
		init = p.parseExprStmt()
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.parseExpression()
	}
	if _, ok := p.expect(token.SEMICOLON, "Expect ';' after loop condition."); !ok {
		return nil
	}

	var incr ast.Expr
	if !p.check(token.RPAREN) {
		incr = p.parseExpression()
	}
	if _, ok := p.expect(token.RPAREN, "Expect ')' after for clauses."); !ok {
		return nil
	}

	body := p.parseStmt()
	forSpan := p.makeSpan(start.Span.Start)

	if incr != nil {
		body = &ast.Block{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
			Stmts: []ast.Stmt{
				body,
				&ast.Expression{StmtBase: makeStmtBase(incr.GetSpan().Start, incr.GetSpan().End), Expr: incr},
			},
		}
	}
	if cond == nil {
		cond = &ast.Literal{ExprBase: makeExprBase(forSpan.Start, forSpan.Start), Value: true}
	}
	var loop ast.Stmt = &ast.While{
		StmtBase:  ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
		Condition: cond,
		Body:      body,
	}
	if init != nil {
		loop = &ast.Block{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
			Stmts:    []ast.Stmt{init, loop},
		}
	}
	return loop
}

// parseReturnStmt parses: return [expr] ;
func (p *Parser) parseReturnStmt() *ast.Return {
	start := p.advance() // consume 'return'
	stmt := &ast.Return{}

	if !p.check(token.SEMICOLON) {
		stmt.Value = p.parseExpression()
	}
	p.expect(token.SEMICOLON, "Expect ';' after return value.")

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

func (p *Parser) parseBreakStmt() *ast.Break {
	start := p.advance()
	p.expect(token.SEMICOLON, "Expect ';' after 'break'.")
	return &ast.Break{StmtBase: makeStmtBase(start.Span.Start, p.prevEnd())}
}

// parseExprStmt parses: expr ;
func (p *Parser) parseExprStmt() *ast.Expression {
	expr := p.parseExpression()
	p.expect(token.SEMICOLON, "Expect ';' after expression.")
	return &ast.Expression{
		StmtBase: makeStmtBase(expr.GetSpan().Start, p.prevEnd()),
		Expr:     expr,
	}
}

// parseBlockBody parses declarations up to and including the closing '}'.
// The opening '{' has already been consumed.
func (p *Parser) parseBlockBody() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.RBRACE, "Expect '}' after block.")
	return stmts
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

// parseExpression parses an expression including assignment, which is
// right-associative and binds loosest.
func (p *Parser) parseExpression() ast.Expr {
	left := p.parseExpr(bpNone)

	if !p.check(token.EQUAL) {
		return left
	}
	equals := p.advance()
	value := p.parseExpression()
	base := makeExprBase(left.GetSpan().Start, value.GetSpan().End)

	switch target := left.(type) {
	case *ast.Variable:
		return &ast.Assign{
			ExprBase: base,
			Name:     ast.Ident{Name: target.Name, Span: target.Span},
			Value:    value,
		}
	case *ast.Get:
		return &ast.Set{
			ExprBase: base,
			Object:   target.Object,
			Name:     target.Name,
			Value:    value,
		}
	}

	p.errorAt(equals, "E2003", "Invalid assignment target.")
	return left
}

// parseExpr parses an expression with the given minimum binding power.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()

	for {
		kind := p.peekKind()
		bp := infixBP(kind)
		if bp <= minBP {
			break
		}
		left = p.led(left)
	}

	return left
}

// nud handles prefix (null denotation) parsing. On a token that cannot
// start an expression it reports E2002 and returns a nil literal so that
// callers never see a nil node.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()
	base := makeExprBase(tok.Span.Start, tok.Span.End)

	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		val, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.Literal{ExprBase: base, Value: val}

	case token.STRING:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: tok.Lexeme}

	case token.KW_TRUE:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: true}

	case token.KW_FALSE:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: false}

	case token.KW_NIL:
		p.advance()
		return &ast.Literal{ExprBase: base, Value: nil}

	case token.KW_THIS:
		p.advance()
		return &ast.This{ExprBase: base}

	case token.KW_SUPER:
		p.advance()
		expr := &ast.Super{}
		if _, ok := p.expect(token.DOT, "Expect '.' after 'super'."); ok {
			if nameTok, ok := p.expect(token.IDENT, "Expect superclass method name."); ok {
				expr.Method = ast.Ident{Name: nameTok.Lexeme, Span: nameTok.Span}
			}
		}
		expr.ExprBase = makeExprBase(tok.Span.Start, p.prevEnd())
		return expr

	case token.IDENT:
		p.advance()
		return &ast.Variable{ExprBase: base, Name: tok.Lexeme}

	case token.LPAREN:
		// Grouped expression: ( expr )
		p.advance() // consume '('
		inner := p.parseExpression()
		p.expect(token.RPAREN, "Expect ')' after expression.")
		return &ast.Grouping{
			ExprBase: makeExprBase(tok.Span.Start, p.prevEnd()),
			Inner:    inner,
		}

	case token.BANG, token.MINUS:
		p.advance()
		operand := p.parseExpr(bpPrefix)
		return &ast.Unary{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	default:
		p.errorAt(tok, "E2002", "Expect expression.")
		return &ast.Literal{ExprBase: base}
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.KW_AND, token.KW_OR:
		p.advance()
		right := p.parseExpr(infixBP(tok.Kind))
		return &ast.Logical{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQUAL_EQUAL, token.BANG_EQUAL,
		token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		// Binary infix operator (left-associative)
		p.advance()
		right := p.parseExpr(infixBP(tok.Kind))
		return &ast.Binary{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.LPAREN:
		return p.parseCallExpr(left)

	case token.DOT:
		// Property access: object.name
		p.advance() // consume '.'
		get := &ast.Get{Object: left}
		if nameTok, ok := p.expect(token.IDENT, "Expect property name after '.'."); ok {
			get.Name = ast.Ident{Name: nameTok.Lexeme, Span: nameTok.Span}
		}
		get.ExprBase = makeExprBase(left.GetSpan().Start, p.prevEnd())
		return get

	default:
		return left
	}
}

// parseCallExpr parses: callee ( args )
func (p *Parser) parseCallExpr(callee ast.Expr) *ast.Call {
	p.advance() // consume '('
	var args []ast.Expr

	if !p.check(token.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "E2004", fmt.Sprintf("Can't have more than %d arguments.", maxArgs))
			}
			args = append(args, p.parseExpression())
			if !p.check(token.COMMA) {
				break
			}
			p.advance() // consume ','
		}
	}
	paren, _ := p.expect(token.RPAREN, "Expect ')' after arguments.")

	return &ast.Call{
		ExprBase: makeExprBase(callee.GetSpan().Start, paren.Span.End),
		Callee:   callee,
		Paren:    paren.Span,
		Args:     args,
	}
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
