package token

import (
	"testing"
)

func TestCreateToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		lexeme    string
		want      Token
	}{
		{
			name:      "Create ASSIGN token",
			tokenType: ASSIGN,
			lexeme:    "=",
			want:      Token{TokenType: ASSIGN, Lexeme: "=", Start: 0, Length: 1, Line: 1, Column: 1},
		},
		{
			name:      "Create MULT token",
			tokenType: MULT,
			lexeme:    "*",
			want:      Token{TokenType: MULT, Lexeme: "*", Start: 4, Length: 1, Line: 2, Column: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateToken(tt.tokenType, tt.lexeme, tt.want.Start, tt.want.Line, tt.want.Column)
			if got != tt.want {
				t.Errorf("CreateToken() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCreateLiteralToken(t *testing.T) {
	got := CreateLiteralToken(NUMBER, 42.0, "42", 10, 3, 1)
	want := Token{TokenType: NUMBER, Lexeme: "42", Literal: 42.0, Start: 10, Length: 2, Line: 3, Column: 1}
	if got != want {
		t.Errorf("CreateLiteralToken() = %+v, want %+v", got, want)
	}
}

func TestKeyWords(t *testing.T) {
	for lexeme, want := range map[string]TokenType{
		"class": CLASS, "while": WHILE, "fn": FUNC, "print": PRINT, "null": NULL,
	} {
		if got := KeyWords[lexeme]; got != want {
			t.Errorf("KeyWords[%q] = %v, want %v", lexeme, got, want)
		}
	}
	if _, ok := KeyWords["notakeyword"]; ok {
		t.Errorf("KeyWords should not contain non-keyword identifiers")
	}
}
