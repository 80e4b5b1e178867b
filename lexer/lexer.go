package lexer

import (
	"ankoku/token"
	"strconv"
	"strings"
)

func isLetter(char rune) bool {
	return rune('a') <= char && char <= rune('z') || rune('A') <= char && char <= rune('Z') || char == rune('_')
}

func isNumber(char rune) bool {
	return rune('0') <= char && char <= rune('9')
}

// Lexer represents a lexical scanner for processing input text into tokens.
// It maintains the current scanning state, including the position within the
// input, the current character, and metadata for line/column tracking.
type Lexer struct {
	characters []rune
	totalChars int
	tokens     []token.Token

	position     int
	currentChar  rune
	readPosition int

	lineCount int32
	column    int

	sourceLines []string

	err error
}

// New initializes a Lexer over the given source text. Lines are 1-based,
// matching the rest of the toolchain's diagnostics.
func New(input string) *Lexer {
	lexer := &Lexer{
		characters:  []rune(input),
		lineCount:   1,
		sourceLines: strings.Split(input, "\n"),
	}
	lexer.totalChars = len(lexer.characters)
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) advance() {
	lexer.position = lexer.readPosition
	lexer.readPosition++
	lexer.column = lexer.readPosition
}

func (lexer *Lexer) isFinished() bool {
	return lexer.readPosition >= lexer.totalChars
}

func (lexer *Lexer) readChar() {
	if lexer.isFinished() {
		lexer.currentChar = rune(0)
	} else {
		lexer.currentChar = lexer.characters[lexer.readPosition]
	}
	lexer.advance()
}

func (lexer *Lexer) peek() rune {
	if lexer.isFinished() {
		return rune(0)
	}
	return lexer.characters[lexer.readPosition]
}

func (lexer *Lexer) peekNext() rune {
	nextReadPos := lexer.readPosition + 1
	if nextReadPos >= lexer.totalChars {
		return rune(0)
	}
	return lexer.characters[nextReadPos]
}

func (lexer *Lexer) sourceLine(line int32) string {
	idx := int(line) - 1
	if idx < 0 || idx >= len(lexer.sourceLines) {
		return ""
	}
	return lexer.sourceLines[idx]
}

// handleLineComment consumes a `//` comment through end of line.
func (lexer *Lexer) handleLineComment() {
	for lexer.currentChar != rune('\n') && !lexer.isFinished() {
		lexer.readChar()
	}
}

// handleBlockComment consumes a `/* ... */` comment, tracking embedded
// newlines so line numbers stay accurate past the comment.
func (lexer *Lexer) handleBlockComment() {
	// currentChar is '*' here (the '/' was already consumed by the caller).
	lexer.readChar()
	for {
		if lexer.isFinished() {
			return
		}
		if lexer.currentChar == rune('\n') {
			lexer.lineCount++
			lexer.column = 0
		}
		if lexer.currentChar == rune('*') && lexer.peek() == rune('/') {
			lexer.readChar()
			return
		}
		lexer.readChar()
	}
}

// handleNumber scans a sequence of digits (and at most one decimal point)
// from the input and creates a NUMBER literal token. Malformed numbers
// (trailing or repeated decimal points) are tolerated permissively by
// stopping the scan at the first invalid extension, matching the
// tokenizer's general policy of never raising errors for anything beyond
// unexpected characters and unterminated strings.
func (lexer *Lexer) handleNumber() {
	initPos := lexer.position
	decimalCount := 0

	for {
		nextChar := lexer.peek()
		if nextChar == rune(0) || nextChar == rune('\n') || !isNumber(nextChar) && nextChar != rune('.') {
			break
		}
		if nextChar == '.' {
			if decimalCount == 1 || !isNumber(lexer.peekNext()) {
				break
			}
			decimalCount++
		}
		lexer.advance()
	}
	number := string(lexer.characters[initPos:lexer.readPosition])
	result, _ := strconv.ParseFloat(number, 64)
	tok := token.CreateLiteralToken(token.NUMBER, result, number, initPos, lexer.lineCount, lexer.column)
	lexer.tokens = append(lexer.tokens, tok)
}

// handleIdentifier processes a user identifier or a language keyword.
func (lexer *Lexer) handleIdentifier() {
	initPos := lexer.position
	for {
		result := lexer.peek()
		if result == rune(0) || !isLetter(result) && !isNumber(result) {
			break
		}
		lexer.advance()
	}

	lexeme := string(lexer.characters[initPos:lexer.readPosition])
	tokenType := token.IDENTIFIER
	if keywordType, exists := token.KeyWords[lexeme]; exists {
		tokenType = keywordType
	}
	lexer.tokens = append(lexer.tokens, token.CreateToken(tokenType, lexeme, initPos, lexer.lineCount, lexer.column))
}

// handleStringLiteral processes a double-quoted string literal.
//
// Returns false if the string was never closed before EOF, in which case
// lexer.err is populated with an UnterminatedString error.
func (lexer *Lexer) handleStringLiteral() bool {
	initPos := lexer.position
	startLine := lexer.lineCount
	startColumn := lexer.column

	isClosed := false
	for {
		result := lexer.peek()
		if result == 0 {
			break
		}
		if result == '\n' {
			lexer.lineCount++
		}
		lexer.advance()
		if result == '"' {
			isClosed = true
			break
		}
	}

	if !isClosed {
		lexer.err = TokenizeError{
			Kind:       UnterminatedString,
			Line:       startLine,
			Column:     startColumn,
			SourceLine: lexer.sourceLine(startLine),
			Length:     lexer.position - initPos + 1,
		}
		return false
	}

	// initPos+1 skips the opening quote; lexer.position is the closing
	// quote, which the exclusive slice end leaves out.
	stringLiteral := string(lexer.characters[initPos+1 : lexer.position])
	lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(token.STRING, stringLiteral, stringLiteral, initPos, startLine, startColumn))
	return true
}

func (lexer *Lexer) isMatch(expected rune) bool {
	if lexer.isFinished() {
		return false
	}
	if lexer.characters[lexer.readPosition] == expected {
		lexer.readPosition++
		return true
	}
	return false
}

// isWhiteSpace determines whether a given rune is whitespace, incrementing
// the line counter when a newline is observed.
func (lexer *Lexer) isWhiteSpace(char rune) bool {
	if char == rune(' ') || char == rune('\r') || char == rune('\t') {
		return true
	}
	if char == rune('\n') {
		lexer.lineCount++
		lexer.column = 0
		return true
	}
	return false
}

func (lexer *Lexer) skipWhiteSpace() {
	for lexer.isWhiteSpace(lexer.currentChar) {
		lexer.readChar()
	}
}

// createToken processes the current character and appends a token (or an
// error) to the lexer's state.
func (lexer *Lexer) createToken() {
	lexer.skipWhiteSpace()
	if lexer.isFinished() && lexer.currentChar == rune(0) {
		return
	}

	line, column, start := lexer.lineCount, lexer.column, lexer.position

	switch lexer.currentChar {
	case rune('('):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LPA, "(", start, line, column))
	case rune(')'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RPA, ")", start, line, column))
	case rune('{'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LCUR, "{", start, line, column))
	case rune('}'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RCUR, "}", start, line, column))
	case rune(';'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.SEMICOLON, ";", start, line, column))
	case rune(','):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COMMA, ",", start, line, column))
	case rune('.'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.DOT, ".", start, line, column))
	case rune('*'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.MULT, "*", start, line, column))
	case rune('+'):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.PLUS_ASSIGN, "+=", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.ADD, "+", start, line, column))
		}
	case rune('-'):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.MINUS_ASSIGN, "-=", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.SUB, "-", start, line, column))
		}
	case rune('/'):
		if lexer.peek() == rune('/') {
			lexer.handleLineComment()
		} else if lexer.peek() == rune('*') {
			lexer.readChar()
			lexer.handleBlockComment()
			lexer.readChar()
			return
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.DIV, "/", start, line, column))
		}
	case rune('='):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.EQUAL_EQUAL, "==", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.ASSIGN, "=", start, line, column))
		}
	case rune('!'):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.NOT_EQUAL, "!=", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.BANG, "!", start, line, column))
		}
	case rune('<'):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LESS_EQUAL, "<=", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LESS, "<", start, line, column))
		}
	case rune('>'):
		if lexer.isMatch(rune('=')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LARGER_EQUAL, ">=", start, line, column))
		} else {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LARGER, ">", start, line, column))
		}
	case rune('&'):
		if lexer.isMatch(rune('&')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LOGICAL_AND, "&&", start, line, column))
		} else {
			lexer.err = TokenizeError{Kind: UnexpectedCharacter, Line: line, Column: column, SourceLine: lexer.sourceLine(line), Length: 1}
		}
	case rune('|'):
		if lexer.isMatch(rune('|')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.LOGICAL_OR, "||", start, line, column))
		} else {
			lexer.err = TokenizeError{Kind: UnexpectedCharacter, Line: line, Column: column, SourceLine: lexer.sourceLine(line), Length: 1}
		}
	case rune('"'):
		lexer.handleStringLiteral()
	default:
		if isLetter(lexer.currentChar) {
			lexer.handleIdentifier()
		} else if isNumber(lexer.currentChar) {
			lexer.handleNumber()
		} else {
			lexer.err = TokenizeError{
				Kind:       UnexpectedCharacter,
				Line:       line,
				Column:     column,
				SourceLine: lexer.sourceLine(line),
				Length:     1,
			}
		}
	}

	lexer.readChar()
}

// Scan performs lexical analysis over the whole input and returns the
// resulting tokens, always ending in exactly one EOF token when no error
// occurs. On error, the token stream produced so far is returned alongside
// the first TokenizeError encountered; scanning stops immediately.
func (lexer *Lexer) Scan() ([]token.Token, error) {
	for !(lexer.isFinished() && lexer.currentChar == rune(0)) {
		lexer.createToken()
		if lexer.err != nil {
			return lexer.tokens, lexer.err
		}
	}
	lexer.tokens = append(lexer.tokens, token.CreateToken(token.EOF, "", lexer.position, lexer.lineCount, lexer.column))
	return lexer.tokens, nil
}
