package machine

import (
	"github.com/mna/lox/lang/compiler"
)

// A Function is a function defined by a fun declaration. The top-level
// script is also represented by an (anonymous) Function.
type Function struct {
	Funcode *compiler.Funcode

	// constants is the function's constant pool resolved to runtime values,
	// with strings interned and nested functions loaded.
	constants []Value
}

var _ Value = (*Function)(nil)

func (fn *Function) String() string {
	if fn.Funcode.Name == "" {
		return "<script>"
	}
	return "<fn " + fn.Funcode.Name + ">"
}

func (fn *Function) Type() string { return "function" }

// Name returns the declared name of the function, or "script" for the
// top level.
func (fn *Function) Name() string {
	if fn.Funcode.Name == "" {
		return "script"
	}
	return fn.Funcode.Name
}
