package scanner

import (
	"fmt"
	"io"
)

// Error describes a single diagnostic at a source line. The message is the
// complete diagnostic except for the line prefix, e.g. "Error at 'x': ...".
type Error struct {
	Line int
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Msg)
}

// ErrorList is a list of *Error. It is modeled on go/scanner's ErrorList:
// the zero value is ready to use, and an empty list is not a valid error.
type ErrorList []*Error

// Add appends an Error with the given line and message to the list.
func (l *ErrorList) Add(line int, msg string) {
	*l = append(*l, &Error{Line: line, Msg: msg})
}

// Err returns an error equivalent to this error list. If the list is empty,
// Err returns nil.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Error implements the error interface.
func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
}

// PrintError prints err to w, one diagnostic per line if err is an
// ErrorList, otherwise it prints the err message.
func PrintError(w io.Writer, err error) {
	if list, ok := err.(ErrorList); ok {
		for _, e := range list {
			fmt.Fprintf(w, "%s\n", e)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "%s\n", err)
	}
}
