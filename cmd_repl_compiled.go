package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"ankoku/compiler"
	"ankoku/lexer"
	"ankoku/parser"
	"ankoku/token"
	"ankoku/vm"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type replCmd struct {
	disassemble  bool
	dumpBytecode bool
	dumpAST      bool
	debug        bool
	gcDebug      bool
}

func (*replCmd) Name() string { return "repl" }
func (*replCmd) Synopsis() string {
	return "Start an interactive Ankoku session"
}
func (*replCmd) Usage() string {
	return `repl`
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", false, "disassemble the bytecode and dump it to a text file")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", false, "write the encoded bytecode as hexadecimal to a .anic file")
	f.BoolVar(&cmd.dumpAST, "dumpAST", false, "write the AST as JSON to ast.json")
	f.BoolVar(&cmd.disassemble, "di", false, "shorthand for disassemble")
	f.BoolVar(&cmd.dumpBytecode, "du", false, "shorthand for dumpBytecode")
	f.BoolVar(&cmd.dumpAST, "da", false, "shorthand for dumpAST")
	f.BoolVar(&cmd.debug, "debug", false, "trace each VM instruction and the operand stack to stderr")
	f.BoolVar(&cmd.gcDebug, "gc-debug", false, "trace GC collect/sweep activity and force a collection after every allocation")
}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("\nWelcome to the Ankoku programming language!")
	fmt.Println("")

	fmt.Print(`
	█████╗ ███╗   ██╗██╗  ██╗ ██████╗ ██╗  ██╗██╗   ██╗
	██╔══██╗████╗  ██║██║ ██╔╝██╔═══██╗██║ ██╔╝██║   ██║
	███████║██╔██╗ ██║█████╔╝ ██║   ██║█████╔╝ ██║   ██║
	██╔══██║██║╚██╗██║██╔═██╗ ██║   ██║██╔═██╗ ██║   ██║
	██║  ██║██║ ╚████║██║  ██╗╚██████╔╝██║  ██╗╚██████╔╝
	╚═╝  ╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝ ╚═════╝

`)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     "/tmp/ankoku_repl_history.tmp",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start REPL: %s\n", err.Error())
		return subcommands.ExitFailure
	}
	defer rl.Close()

	astCompiler := compiler.NewASTCompiler()
	machine := vm.New()
	machine.SetDebug(cmd.debug)
	machine.SetGCDebug(cmd.gcDebug)
	if cmd.debug || cmd.gcDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				buffer.Reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				return subcommands.ExitSuccess
			}
			fmt.Fprintf(os.Stderr, "💥 %s\n", err.Error())
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		lex := lexer.New(source)
		tokens, err := lex.Scan()
		if err != nil {
			fmt.Println(err)
			buffer.Reset()
			continue
		}

		if !isInputReady(tokens) {
			continue
		}

		p := parser.Make(tokens)
		statements, err := p.Parse()
		if err != nil {
			parseErrs := unwrapErrors(err)
			// If all parse errors are syntax errors that occur at the position of the EOF
			// token, the user has not finished typing their input yet. Wait for more
			// input instead of showing an error.
			if allParseErrorsAtEOF(parseErrs, tokens[len(tokens)-1]) {
				continue
			}
			fmt.Fprintf(os.Stdout, "Parse error: ")
			for _, pErr := range parseErrs {
				fmt.Fprintf(os.Stdout, "%v\n", pErr)
			}
			buffer.Reset()
			continue
		}

		// Each entry gets a fresh chunk; only the VM's globals and heap
		// carry over between entries.
		astCompiler = compiler.NewASTCompiler()
		bytecode, err := astCompiler.CompileAST(statements)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			buffer.Reset()
			continue
		}

		if cmd.disassemble {
			if _, err := astCompiler.DisassembleBytecode(true, ""); err != nil {
				fmt.Fprintf(os.Stderr, "💥 Bytecode disassemble error:\n\t%s\n", err.Error())
				continue
			}
		}
		if cmd.dumpBytecode {
			if err := astCompiler.DumpBytecode(""); err != nil {
				fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err.Error())
			}
		}
		if cmd.dumpAST {
			if err := parser.WriteASTJSONToFile(statements, "ast.json"); err != nil {
				fmt.Fprintf(os.Stderr, "💥 Dump AST error:\n\t%s\n", err.Error())
				continue
			}
		}

		if runtimeErr := machine.Run(bytecode); runtimeErr != nil {
			fmt.Fprintln(os.Stderr, runtimeErr.Error())
		}
		buffer.Reset()
	}
}

// isInputReady reports whether the accumulated input is a complete program
// worth parsing, rather than a statement the user is still typing across
// multiple lines. It checks for balanced braces and for trailing tokens
// that can only be followed by more input, such as a dangling operator or
// an unclosed `if (cond) {`.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}

	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.TokenType {
	case token.ASSIGN,
		token.ADD,
		token.SUB,
		token.MULT,
		token.DIV,
		token.BANG,
		token.EQUAL_EQUAL,
		token.NOT_EQUAL,
		token.LESS,
		token.LESS_EQUAL,
		token.LARGER,
		token.LARGER_EQUAL,
		token.PLUS_ASSIGN,
		token.MINUS_ASSIGN,
		token.LOGICAL_AND,
		token.LOGICAL_OR,
		token.COMMA,
		token.LPA,
		token.LCUR,
		token.IF,
		token.ELSE,
		token.WHILE,
		token.FOR,
		token.FUNC,
		token.RETURN,
		token.VAR,
		token.AND,
		token.OR,
		token.PRINT:
		return false
	}

	return true
}

// lastNonEOF returns the last non-EOF token from the list of tokens. If all tokens are EOF, it returns nil.
func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

// allParseErrorsAtEOF checks if all parse errors are syntax errors that occur at the position of the EOF token.
func allParseErrorsAtEOF(parseErrs []error, eof token.Token) bool {
	for _, parseErr := range parseErrs {
		syntaxErr, ok := parseErr.(parser.SyntaxError)
		if !ok {
			return false
		}
		if syntaxErr.Line != eof.Line || syntaxErr.Column != eof.Column {
			return false
		}
	}
	return len(parseErrs) > 0
}
