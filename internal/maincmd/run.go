package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mna/lox/lang/compiler"
	"github.com/mna/lox/lang/machine"
	"github.com/mna/lox/lang/scanner"
	"github.com/mna/mainer"
)

// replLineMax bounds the length of a single REPL input line; longer lines
// are interpreted in chunks.
const replLineMax = 1024

func (c *Cmd) runFile(ctx context.Context, stdio mainer.Stdio, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "Could not open file %q.\n", path)
		return exitIOErr
	}

	fn, err := compiler.Compile(src)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return exitCompileErr
	}
	if c.PrintCode {
		compiler.Disasm(stdio.Stdout, fn)
	}

	m := &machine.Machine{Stdout: stdio.Stdout, TraceExecution: c.Trace}
	if err := m.RunProgram(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntimeErr
	}
	return mainer.Success
}

// repl interprets standard input one line at a time on a single persistent
// machine, so that global variables survive from line to line. It prompts
// only when the input is a terminal.
func (c *Cmd) repl(ctx context.Context, stdio mainer.Stdio) mainer.ExitCode {
	interactive := isTerminal(stdio.Stdin)
	r := bufio.NewReader(stdio.Stdin)
	m := &machine.Machine{Stdout: stdio.Stdout, TraceExecution: c.Trace}

	line := make([]byte, 0, replLineMax)
	for ctx.Err() == nil {
		if interactive {
			fmt.Fprint(stdio.Stdout, "> ")
		}

		line = line[:0]
		var readErr error
		for len(line) < replLineMax {
			b, err := r.ReadByte()
			if err != nil {
				readErr = err
				break
			}
			line = append(line, b)
			if b == '\n' {
				break
			}
		}

		if len(line) == 0 {
			if interactive {
				fmt.Fprintln(stdio.Stdout)
			}
			return mainer.Success
		}

		fn, err := compiler.Compile(line)
		if err == nil {
			if c.PrintCode {
				compiler.Disasm(stdio.Stdout, fn)
			}
			err = m.RunProgram(fn)
		}
		if err != nil {
			// report and keep accepting input, the machine state is intact
			scanner.PrintError(stdio.Stderr, err)
		}

		if readErr != nil {
			return mainer.Success
		}
	}
	return mainer.Success
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
