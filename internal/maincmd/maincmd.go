// Package maincmd implements the command-line interface of the interpreter:
// a REPL when no path is given, a file runner otherwise, plus debug surfaces
// for the scanner and the compiler.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "lox"

// Exit codes, after BSD sysexits: usage, data format, internal software and
// I/O errors.
const (
	exitUsage      mainer.ExitCode = 64
	exitCompileErr mainer.ExitCode = 65
	exitRuntimeErr mainer.ExitCode = 70
	exitIOErr      mainer.ExitCode = 74
)

var (
	shortUsage = fmt.Sprintf(`
Usage: %s [path]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`Usage: %s [<option>...] [path]
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter for the Lox programming language. With a <path>, compiles
and runs the file; without, starts an interactive session that reads
one statement per line.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -t --tokenize             Print the token stream of the file
                                 instead of running it.
       --print-code              Print the compiled bytecode before
                                 running.
       --trace                   Print each instruction and the value
                                 stack as the program executes.

Flag options can also be set via %[2]s_-prefixed environment
variables, e.g. %[2]s_TRACE=true.
`, binName, "LOX")
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Tokenize  bool `flag:"t,tokenize"`
	PrintCode bool `flag:"print-code"`
	Trace     bool `flag:"trace"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: "LOX_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	switch len(c.args) {
	case 0:
		if c.Tokenize {
			fmt.Fprintf(stdio.Stderr, "tokenize: a file must be provided\n%s", shortUsage)
			return exitUsage
		}
		return c.repl(ctx, stdio)

	case 1:
		if c.Tokenize {
			if err := TokenizeFiles(ctx, stdio, c.args...); err != nil {
				return exitIOErr
			}
			return mainer.Success
		}
		return c.runFile(ctx, stdio, c.args[0])

	default:
		fmt.Fprintf(stdio.Stderr, "Usage: %s [path]\n", binName)
		return exitUsage
	}
}
