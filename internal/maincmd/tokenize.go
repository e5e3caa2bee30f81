package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lox/lang/scanner"
	"github.com/mna/lox/lang/token"
	"github.com/mna/mainer"
)

// TokenizeFiles prints the token stream of each file to stdio.Stdout, one
// "line: token [literal]" line per token. Scan errors appear in the stream
// as illegal tokens; only file read errors are returned (after being
// printed to stdio.Stderr).
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var s scanner.Scanner
	var val token.Value

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}

		s.Init(b)
		for {
			tok := s.Scan(&val)
			fmt.Fprintf(stdio.Stdout, "%d: %s", val.Line, tok)
			if lit := tok.Literal(val); lit != "" {
				fmt.Fprintf(stdio.Stdout, " %s", lit)
			}
			fmt.Fprintln(stdio.Stdout)
			if tok == token.EOF {
				break
			}
		}
	}
	return nil
}
