package compiler

import (
	"ankoku/ast"
	"ankoku/token"
	"testing"
)

func identToken(name string) token.Token {
	return token.CreateLiteralToken(token.IDENTIFIER, nil, name, 0, 0, 0)
}

func TestCompilerVariableBehavior(t *testing.T) {
	tests := []struct {
		name       string
		statements []ast.Stmt
		hasError   bool
	}{
		{
			name: "var declared without initializer then accessed -> success (null)",
			statements: []ast.Stmt{
				ast.VarStmt{Name: identToken("a")},
				ast.PrintStmt{Expression: ast.Variable{Name: identToken("a")}},
			},
			hasError: false,
		},
		{
			name: "var declared with initializer then accessed -> success",
			statements: []ast.Stmt{
				ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 0.0}},
				ast.PrintStmt{Expression: ast.Variable{Name: identToken("a")}},
			},
			hasError: false,
		},
		{
			name: "access undeclared global compiles (undefined is a runtime error)",
			statements: []ast.Stmt{
				ast.PrintStmt{Expression: ast.Variable{Name: identToken("c")}},
			},
			hasError: false,
		},
		{
			name: "redeclaration of global variable -> success",
			statements: []ast.Stmt{
				ast.VarStmt{Name: identToken("a")},
				ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 9.0}},
			},
			hasError: false,
		},
		{
			name: "assignment to existing variable -> success",
			statements: []ast.Stmt{
				ast.VarStmt{Name: identToken("a")},
				ast.ExpressionStmt{Expression: ast.Assign{Name: identToken("a"), Value: ast.Literal{Value: 1.0}}},
			},
			hasError: false,
		},
		{
			name: "local shadowing a global resolves to the local",
			statements: []ast.Stmt{
				ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 1.0}},
				ast.BlockStmt{Statements: []ast.Stmt{
					ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 2.0}},
					ast.PrintStmt{Expression: ast.Variable{Name: identToken("a")}},
				}},
			},
			hasError: false,
		},
		{
			name: "redeclaration of local in the same block -> error",
			statements: []ast.Stmt{
				ast.BlockStmt{Statements: []ast.Stmt{
					ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 1.0}},
					ast.VarStmt{Name: identToken("a"), Initializer: ast.Literal{Value: 2.0}},
				}},
			},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiler := NewASTCompiler()
			_, err := compiler.CompileAST(tt.statements)
			if tt.hasError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.hasError && err != nil {
				t.Errorf("unexpected compilation error: %s", err.Error())
			}
		})
	}
}
