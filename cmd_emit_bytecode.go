package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ankoku/compiler"
	"ankoku/lexer"
	"ankoku/parser"

	"github.com/google/subcommands"
)

// disasmCmd compiles a source file and writes its bytecode and/or a
// human-readable disassembly to disk without executing it.
type disasmCmd struct {
	disassemble  bool
	dumpBytecode bool
}

func (*disasmCmd) Name() string { return "disasm" }
func (*disasmCmd) Synopsis() string {
	return "Emit the bytecode representation of an Ankoku source file"
}
func (*disasmCmd) Usage() string {
	return `disasm <file>`
}

func (cmd *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "disassemble the bytecode and dump it to a text file")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", true, "write the encoded bytecode as hexadecimal to a .anic file")
}

func (cmd *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	sourceFile := args[0]
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lexing error: %v\n", err)
		return subcommands.ExitFailure
	}

	p := parser.Make(tokens)
	statements, err := p.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Parsing error:\n")
		for _, parseErr := range unwrapErrors(err) {
			fmt.Fprintf(os.Stderr, "\t%v\n", parseErr)
		}
		return subcommands.ExitFailure
	}

	astCompiler := compiler.NewASTCompiler()
	if _, err := astCompiler.CompileAST(statements); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Compilation error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	fileName := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))

	if cmd.disassemble {
		if _, err := astCompiler.DisassembleBytecode(true, fileName); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Bytecode disassemble error:\n\t%s\n", err.Error())
			return subcommands.ExitFailure
		}
	}

	if cmd.dumpBytecode {
		if err := astCompiler.DumpBytecode(fileName); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err.Error())
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
