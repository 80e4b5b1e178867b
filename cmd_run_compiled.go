package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ankoku/compiler"
	"ankoku/lexer"
	"ankoku/parser"
	"ankoku/vm"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// runCmd compiles a source file to bytecode and executes it directly.
type runCmd struct {
	debug   bool
	gcDebug bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute an Ankoku source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute Ankoku source code.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debug, "debug", false, "trace each VM instruction and the operand stack to stderr")
	f.BoolVar(&r.gcDebug, "gc-debug", false, "trace GC collect/sweep activity and force a collection after every allocation")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	astCompiler := compiler.NewASTCompiler()
	machine := vm.New()
	machine.SetDebug(r.debug)
	machine.SetGCDebug(r.gcDebug)
	if r.debug || r.gcDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	p := parser.Make(tokens)
	statements, err := p.Parse()
	if err != nil {
		for _, parseErr := range unwrapErrors(err) {
			fmt.Fprintln(os.Stderr, parseErr)
		}
		return subcommands.ExitFailure
	}

	bytecode, err := astCompiler.CompileAST(statements)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	if err := machine.Run(bytecode); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
