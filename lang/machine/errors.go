package machine

import (
	"fmt"
	"strings"
)

// A RuntimeError is the error returned by the machine when execution fails.
// It carries the call trace at the point of failure, newest frame first.
type RuntimeError struct {
	// Msg is the bare failure message, without location information.
	Msg string
	// Trace has one entry per active call frame, newest first.
	Trace []TraceFrame
}

// A TraceFrame locates one active call in a runtime error's trace.
type TraceFrame struct {
	Line int
	// Fn is "script" for the top level, otherwise the function name
	// followed by "()".
	Fn string
}

// Error returns the message followed by the trace, one frame per line.
func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	for _, fr := range e.Trace {
		fmt.Fprintf(&sb, "\n[line %d] in %s", fr.Line, fr.Fn)
	}
	return sb.String()
}
