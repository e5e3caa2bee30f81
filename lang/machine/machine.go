// Package machine implements the virtual machine that executes the
// bytecode-compiled form of the source code. It also provides the runtime
// representation of the language values.
package machine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/mna/lox/lang/compiler"
)

// Limits of the machine's fixed-size stacks.
const (
	// FramesMax is the maximum call depth.
	FramesMax = 64
	// StackMax is the number of value slots shared by all call frames.
	StackMax = FramesMax * compiler.MaxLocals
)

// A Machine executes compiled programs. The zero value is ready to use; a
// machine may run any number of programs in sequence and its global
// variables and interned strings persist across runs. A machine is
// single-threaded: it must not be used from more than one goroutine.
type Machine struct {
	// Stdout is the writer that receives the output of the print statement
	// (and of execution tracing). If nil, os.Stdout is used.
	Stdout io.Writer

	// TraceExecution dumps the value stack and each instruction to Stdout as
	// it executes.
	TraceExecution bool

	stdout io.Writer

	frames []frame
	stack  []Value
	sp     int

	// globals is keyed by interned string identity, strings by content (it
	// is the interning table itself).
	globals *swiss.Map[*String, Value]
	strings *swiss.Map[string, *String]
}

// Interpret compiles and runs source code on the machine. It returns nil on
// success, a scanner.ErrorList if compilation fails, or a *RuntimeError if
// execution fails.
func (m *Machine) Interpret(src []byte) error {
	fn, err := compiler.Compile(src)
	if err != nil {
		return err
	}
	return m.RunProgram(fn)
}

// RunProgram executes a compiled top-level function. On failure it returns
// a *RuntimeError and the machine's stacks are reset, leaving it ready to
// run another program.
func (m *Machine) RunProgram(fcode *compiler.Funcode) error {
	m.init()
	m.resetStack()

	fn := m.loadFuncode(fcode)
	m.stack[0] = fn
	m.sp = 1
	m.frames = append(m.frames, frame{fn: fn, base: 0})
	return m.run()
}

// one-time initialization of the machine
func (m *Machine) init() {
	if m.stack != nil {
		return
	}
	m.stack = make([]Value, StackMax)
	m.frames = make([]frame, 0, FramesMax)
	m.globals = swiss.NewMap[*String, Value](8)
	m.strings = swiss.NewMap[string, *String](16)
	if m.Stdout != nil {
		m.stdout = m.Stdout
	} else {
		m.stdout = os.Stdout
	}
}

func (m *Machine) resetStack() {
	m.sp = 0
	m.frames = m.frames[:0]
}

// intern returns the canonical *String for the given content.
func (m *Machine) intern(s string) *String {
	if v, ok := m.strings.Get(s); ok {
		return v
	}
	v := &String{s: s}
	m.strings.Put(s, v)
	return v
}

// loadFuncode creates the runtime function for a compiled one, resolving
// the constant pool to runtime values: strings are interned (so that equal
// literals share one object) and nested functions are loaded recursively.
func (m *Machine) loadFuncode(fcode *compiler.Funcode) *Function {
	constants := make([]Value, len(fcode.Chunk.Constants))
	for i, ct := range fcode.Chunk.Constants {
		switch ct := ct.(type) {
		case float64:
			constants[i] = Float(ct)
		case string:
			constants[i] = m.intern(ct)
		case *compiler.Funcode:
			constants[i] = m.loadFuncode(ct)
		default:
			panic(fmt.Sprintf("unexpected constant %T: %[1]v", ct))
		}
	}
	return &Function{Funcode: fcode, constants: constants}
}

func (m *Machine) push(v Value) error {
	if m.sp == StackMax {
		return errors.New("Stack overflow.")
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *Machine) peek(n int) Value {
	return m.stack[m.sp-1-n]
}

// callValue pushes a new call frame for callee, whose arguments are the
// topmost argc stack values. The callee itself sits just below them and
// becomes slot 0 of the new frame.
func (m *Machine) callValue(callee Value, argc int) error {
	fn, ok := callee.(*Function)
	if !ok {
		return errors.New("Can only call functions and classes.")
	}
	if argc != fn.Funcode.Arity {
		return fmt.Errorf("Expected %d arguments but got %d.", fn.Funcode.Arity, argc)
	}
	if len(m.frames) == FramesMax {
		return errors.New("Stack overflow.")
	}
	m.frames = append(m.frames, frame{fn: fn, base: m.sp - argc - 1})
	return nil
}

func (m *Machine) run() error {
	var inFlightErr error

	fr := &m.frames[len(m.frames)-1]
	code := fr.fn.Funcode.Chunk.Code

loop:
	for {
		if m.TraceExecution {
			m.traceInstruction(fr)
		}

		op := compiler.Opcode(code[fr.pc])
		fr.pc++

		switch op {
		case compiler.CONSTANT:
			k := code[fr.pc]
			fr.pc++
			if inFlightErr = m.push(fr.fn.constants[k]); inFlightErr != nil {
				break loop
			}

		case compiler.NIL:
			if inFlightErr = m.push(Nil); inFlightErr != nil {
				break loop
			}

		case compiler.TRUE:
			if inFlightErr = m.push(True); inFlightErr != nil {
				break loop
			}

		case compiler.FALSE:
			if inFlightErr = m.push(False); inFlightErr != nil {
				break loop
			}

		case compiler.POP:
			m.sp--

		case compiler.GETLOCAL:
			slot := code[fr.pc]
			fr.pc++
			if inFlightErr = m.push(m.stack[fr.base+int(slot)]); inFlightErr != nil {
				break loop
			}

		case compiler.SETLOCAL:
			slot := code[fr.pc]
			fr.pc++
			// assignment is an expression, the value stays on the stack
			m.stack[fr.base+int(slot)] = m.peek(0)

		case compiler.GETGLOBAL:
			name := fr.fn.constants[code[fr.pc]].(*String)
			fr.pc++
			v, ok := m.globals.Get(name)
			if !ok {
				inFlightErr = fmt.Errorf("Undefined variable '%s'.", name.s)
				break loop
			}
			if inFlightErr = m.push(v); inFlightErr != nil {
				break loop
			}

		case compiler.DEFINEGLOBAL:
			name := fr.fn.constants[code[fr.pc]].(*String)
			fr.pc++
			// re-definition of a global silently overwrites
			m.globals.Put(name, m.peek(0))
			m.sp--

		case compiler.SETGLOBAL:
			name := fr.fn.constants[code[fr.pc]].(*String)
			fr.pc++
			if !m.globals.Has(name) {
				inFlightErr = fmt.Errorf("Undefined variable '%s'.", name.s)
				break loop
			}
			// like SETLOCAL, the value stays on the stack
			m.globals.Put(name, m.peek(0))

		case compiler.EQUAL:
			y := m.stack[m.sp-1]
			x := m.stack[m.sp-2]
			m.sp--
			m.stack[m.sp-1] = Bool(Equal(x, y))

		case compiler.GREATER, compiler.LESS, compiler.SUBTRACT,
			compiler.MULTIPLY, compiler.DIVIDE:

			y, yok := m.stack[m.sp-1].(Float)
			x, xok := m.stack[m.sp-2].(Float)
			if !xok || !yok {
				inFlightErr = errors.New("Operands must be numbers.")
				break loop
			}
			var z Value
			switch op {
			case compiler.GREATER:
				z = Bool(x > y)
			case compiler.LESS:
				z = Bool(x < y)
			case compiler.SUBTRACT:
				z = x - y
			case compiler.MULTIPLY:
				z = x * y
			case compiler.DIVIDE:
				z = x / y
			}
			m.sp--
			m.stack[m.sp-1] = z

		case compiler.ADD:
			y := m.stack[m.sp-1]
			x := m.stack[m.sp-2]
			var z Value
			switch x := x.(type) {
			case Float:
				if y, ok := y.(Float); ok {
					z = x + y
				}
			case *String:
				if y, ok := y.(*String); ok {
					z = m.intern(x.s + y.s)
				}
			}
			if z == nil {
				inFlightErr = errors.New("Operands must be two numbers or two strings.")
				break loop
			}
			m.sp--
			m.stack[m.sp-1] = z

		case compiler.NOT:
			m.stack[m.sp-1] = !Truth(m.stack[m.sp-1])

		case compiler.NEGATE:
			f, ok := m.stack[m.sp-1].(Float)
			if !ok {
				inFlightErr = errors.New("Operand must be a number.")
				break loop
			}
			m.stack[m.sp-1] = -f

		case compiler.PRINT:
			m.sp--
			fmt.Fprintln(m.stdout, m.stack[m.sp])

		case compiler.JUMP:
			delta := int(code[fr.pc])<<8 | int(code[fr.pc+1])
			fr.pc += 2 + delta

		case compiler.JUMPFALSE:
			delta := int(code[fr.pc])<<8 | int(code[fr.pc+1])
			fr.pc += 2
			// peeks so that the and/or operators keep their result; the
			// compiler pairs every branch with an explicit POP
			if !Truth(m.stack[m.sp-1]) {
				fr.pc += delta
			}

		case compiler.LOOP:
			delta := int(code[fr.pc])<<8 | int(code[fr.pc+1])
			fr.pc += 2 - delta

		case compiler.CALL:
			argc := int(code[fr.pc])
			fr.pc++
			if inFlightErr = m.callValue(m.peek(argc), argc); inFlightErr != nil {
				break loop
			}
			fr = &m.frames[len(m.frames)-1]
			code = fr.fn.Funcode.Chunk.Code

		case compiler.RETURN:
			result := m.stack[m.sp-1]
			m.frames = m.frames[:len(m.frames)-1]
			if len(m.frames) == 0 {
				// the script function returned, execution is complete
				m.sp = 0
				return nil
			}
			// discard the whole frame window, the result replaces the callee
			m.sp = fr.base
			m.stack[m.sp] = result
			m.sp++
			fr = &m.frames[len(m.frames)-1]
			code = fr.fn.Funcode.Chunk.Code

		default:
			panic(fmt.Sprintf("unimplemented: %s", op))
		}
	}

	rte := &RuntimeError{Msg: inFlightErr.Error()}
	for i := len(m.frames) - 1; i >= 0; i-- {
		fr := &m.frames[i]
		name := "script"
		if fr.fn.Funcode.Name != "" {
			name = fr.fn.Funcode.Name + "()"
		}
		rte.Trace = append(rte.Trace, TraceFrame{Line: fr.line(), Fn: name})
	}
	m.resetStack()
	return rte
}

func (m *Machine) traceInstruction(fr *frame) {
	fmt.Fprint(m.stdout, "          ")
	for _, v := range m.stack[:m.sp] {
		fmt.Fprintf(m.stdout, "[ %s ]", v)
	}
	fmt.Fprintln(m.stdout)
	compiler.DisasmInstruction(m.stdout, &fr.fn.Funcode.Chunk, fr.pc)
}
