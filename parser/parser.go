// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser because it starts from
// the top grammar rule and works its way down into the nested
// sub-expressions before reaching the leaves of the syntax tree (terminal
// rules).
package parser

import (
	"ankoku/ast"
	"ankoku/token"

	"github.com/hashicorp/go-multierror"
)

// comparisonTokenTypes intentionally excludes LARGER_EQUAL/LESS_EQUAL:
// Ankoku has no `<=`/`>=` operators, only Greater and Less. `!=`/`==` are
// likewise not part of the grammar; both lex as single tokens but are left
// unconsumed by any precedence level, so they surface as a syntax error
// (typically ExpectedSemicolon) wherever they appear. This differs from the
// arithmetic operators in unary position, which are parsed as error
// productions (see unaryExpressionTypes).
var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LESS,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
}

var unaryExpressionTypes = []token.TokenType{
	token.BANG,
	token.SUB,

	// NOTE: unsupported operands on unary expressions are included so they
	// can be parsed, with the compiler rejecting them afterwards (a
	// DeveloperError from CompileAST). This is known as "error productions".
	token.MULT,
	token.ADD,
	token.DIV,
}

// statementStartTokens are the keywords synchronize() treats as the start
// of a new statement after a parse error.
var statementStartTokens = map[token.TokenType]bool{
	token.CLASS:  true,
	token.FUNC:   true,
	token.VAR:    true,
	token.FOR:    true,
	token.IF:     true,
	token.WHILE:  true,
	token.PRINT:  true,
	token.RETURN: true,
}

// Parser is a recursive-descent parser over a finite token stream. It
// accumulates one SyntaxError per recovered failure rather than aborting
// on the first one, using panicMode/synchronize as an explicit two-state
// recovery machine rather than unwinding.
type Parser struct {
	tokens    []token.Token
	position  int
	panicMode bool
}

// NOTE: The parser's position is always one unit ahead of the current
// token.

// Make initializes and returns a new Parser over the given tokens.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

func (parser *Parser) isFinished() bool {
	return parser.peek().TokenType == token.EOF
}

func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	return parser.peek().TokenType == tokenType
}

func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for _, tokenType := range tokenTypes {
		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

// Parse parses the entire token stream into a slice of Stmt nodes. Errors
// are collected into a single *multierror.Error rather than aborting on
// the first failure: on error the parser enters panic mode, synchronizes
// to the next statement boundary, and resumes. Statements successfully
// parsed before any error are retained in the returned slice.
func (parser *Parser) Parse() ([]ast.Stmt, error) {
	var statements []ast.Stmt
	var errs *multierror.Error

	for !parser.isFinished() {
		statement, err := parser.declaration()
		if err != nil {
			errs = multierror.Append(errs, err)
			parser.panicMode = true
			parser.synchronize()
			continue
		}
		statements = append(statements, statement)
	}

	if errs != nil {
		return statements, errs
	}
	return statements, nil
}

// synchronize discards tokens until it reaches what looks like a statement
// boundary: the token after a ';', or a token that begins a new statement,
// or EOF. This bounds the damage a single syntax error does to subsequent
// error reporting.
func (parser *Parser) synchronize() {
	parser.panicMode = false

	for !parser.isFinished() {
		if parser.previous().TokenType == token.SEMICOLON {
			return
		}
		if statementStartTokens[parser.peek().TokenType] {
			return
		}
		parser.advance()
	}
}

func (parser *Parser) declaration() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.VAR}) {
		return parser.variableDeclaration()
	}
	return parser.statement()
}

// variableDeclaration parses `var NAME (= E)? ;`.
func (parser *Parser) variableDeclaration() (ast.Stmt, error) {
	tok, err := parser.consume(token.IDENTIFIER, newExpectVariableNameError)
	if err != nil {
		return nil, err
	}

	var initialiser ast.Expression
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		initialiser, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := parser.consume(token.SEMICOLON, func(tok token.Token) error {
		return newExpectedSemicolonError(tok, true)
	}); err != nil {
		return nil, err
	}

	return ast.VarStmt{
		Name:        tok,
		Initializer: initialiser,
	}, nil
}

// statement parses a single statement: print, block, if, while, or a bare
// expression statement.
func (parser *Parser) statement() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.PRINT}) {
		return parser.printStatement()
	}
	if parser.isMatch([]token.TokenType{token.LCUR}) {
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: statements}, nil
	}
	if parser.isMatch([]token.TokenType{token.IF}) {
		return parser.ifStatement()
	}
	if parser.isMatch([]token.TokenType{token.WHILE}) {
		return parser.whileStatement()
	}
	return parser.expressionStatement()
}

// printStatement parses `print E;`.
func (parser *Parser) printStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, func(tok token.Token) error {
		return newExpectedSemicolonError(tok, false)
	}); err != nil {
		return nil, err
	}
	return ast.PrintStmt{Expression: expression}, nil
}

// whileStatement parses `while (E) S`.
func (parser *Parser) whileStatement() (ast.Stmt, error) {
	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	body, err := parser.statement()
	if err != nil {
		return nil, err
	}

	return ast.WhileStmt{
		Condition: expr,
		Body:      body,
	}, nil
}

// ifStatement parses `if (E) S (else S)?`.
func (parser *Parser) ifStatement() (ast.Stmt, error) {
	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	thenStmt, err := parser.statement()
	if err != nil {
		return nil, err
	}

	var elseStmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.ELSE}) {
		elseStmt, err = parser.statement()
		if err != nil {
			return nil, err
		}
	}

	return ast.IfStmt{
		Condition: conditionExpr,
		Then:      thenStmt,
		Else:      elseStmt,
	}, nil
}

// expressionStatement parses `E;`.
func (parser *Parser) expressionStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, func(tok token.Token) error {
		return newExpectedSemicolonError(tok, false)
	}); err != nil {
		return nil, err
	}
	return ast.ExpressionStmt{Expression: expression}, nil
}

// block parses `{ S* }`, the opening '{' already consumed by the caller.
func (parser *Parser) block() ([]ast.Stmt, error) {
	var statements []ast.Stmt

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	if _, err := parser.consume(token.RCUR, newUnclosedObjectBlockError); err != nil {
		return nil, err
	}
	return statements, nil
}

// newUnclosedObjectBlockError reuses the UnclosedObject code for an
// unterminated block statement; both describe the same "missing closing
// brace" shape and the distilled taxonomy does not carve out a separate
// code for block statements.
func newUnclosedObjectBlockError(tok token.Token) error {
	return newSyntaxError(UnclosedObject, tok, "expected '}' after block")
}

// expression is the entry point for parsing expressions.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.assignment()
}

// assignment parses a right-associative assignment expression. The LHS is
// parsed as an `or`-level expression first; if `=` follows, the LHS must
// be a Variable or InvalidAssignmentTarget is raised.
func (parser *Parser) assignment() (ast.Expression, error) {
	expression, err := parser.or()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		equalsToken := parser.previous()
		value, err := parser.assignment()
		if err != nil {
			return nil, err
		}
		switch v := expression.(type) {
		case ast.Variable:
			return ast.Assign{Name: v.Name, Value: value}, nil
		default:
			return nil, newInvalidAssignmentTargetError(equalsToken)
		}
	}

	return expression, nil
}

// or parses left-associative `||` expressions.
func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.LOGICAL_OR, token.OR}) {
		op := parser.previous()
		rightExpr, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}

	return expr, nil
}

// and parses left-associative `&&` expressions.
func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.comparison()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.LOGICAL_AND, token.AND}) {
		op := parser.previous()
		rightExpr, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}
	return expr, nil
}

func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.term()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: operator, Right: right}, nil
	}
	return parser.primary()
}

// primary parses literals, identifiers, parenthesized expressions, and
// object literals.
func (parser *Parser) primary() (ast.Expression, error) {
	if parser.isMatch([]token.TokenType{token.FALSE}) {
		return ast.Literal{Value: false}, nil
	}
	if parser.isMatch([]token.TokenType{token.NULL}) {
		return ast.Literal{Value: nil}, nil
	}
	if parser.isMatch([]token.TokenType{token.TRUE}) {
		return ast.Literal{Value: true}, nil
	}

	if parser.isMatch([]token.TokenType{token.NUMBER}) {
		tok := parser.previous()
		real, ok := tok.Literal.(float64)
		if !ok {
			return nil, newRealParseFailedError(tok)
		}
		return ast.Literal{Value: real}, nil
	}

	if parser.isMatch([]token.TokenType{token.STRING}) {
		return ast.Literal{Value: parser.previous().Literal}, nil
	}

	if parser.isMatch([]token.TokenType{token.IDENTIFIER}) {
		return ast.Variable{Name: parser.previous()}, nil
	}

	if parser.isMatch([]token.TokenType{token.LCUR}) {
		return parser.objectLiteral()
	}

	if parser.isMatch([]token.TokenType{token.LPA}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPA, newUnclosedParenthesesError); err != nil {
			return nil, err
		}
		return ast.Grouping{Expression: expr}, nil
	}

	return nil, newExpectedExpressionError(parser.peek())
}

// objectLiteral parses `{ Identifier '=' Expression (',' Identifier '='
// Expression)* }`, the opening '{' already consumed by the caller.
func (parser *Parser) objectLiteral() (ast.Expression, error) {
	brace := parser.previous()
	var fields []ast.ObjectField

	if !parser.checkType(token.RCUR) {
		for {
			if !parser.checkType(token.IDENTIFIER) {
				return nil, newObjectNeedsIdentifierKeysError(parser.peek())
			}
			keyTok := parser.advance()

			if !parser.isMatch([]token.TokenType{token.ASSIGN}) {
				return nil, newExpectEqualAfterIdentifierInObjectError(parser.peek())
			}

			valueExpr, err := parser.expression()
			if err != nil {
				return nil, err
			}

			fields = append(fields, ast.ObjectField{Key: keyTok, Value: valueExpr})

			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}

	if _, err := parser.consume(token.RCUR, newUnclosedObjectError); err != nil {
		return nil, err
	}

	return ast.Object{Brace: brace, Fields: fields}, nil
}

// consume advances past the current token if it matches tokenType,
// otherwise constructs the caller-supplied error at the current token's
// position.
func (parser *Parser) consume(tokenType token.TokenType, mkErr func(token.Token) error) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	return token.Token{}, mkErr(parser.peek())
}
