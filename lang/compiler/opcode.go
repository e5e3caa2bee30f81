package compiler

import "fmt"

// Opcode is a bytecode instruction. Opcodes are one byte, followed by zero,
// one or two bytes of operand depending on the opcode.
type Opcode uint8

// "x ADD y" is a "stack picture" that describes the state of the operand
// stack before and after execution of the instruction.
//
// OP<index> indicates an immediate operand that is an index into a table:
// the constant pool for <constant>, the frame's local slots for <slot>.
// Jump operands are encoded big-endian on two bytes.
const ( //nolint:revive
	// no operand
	NIL     Opcode = iota //   - NIL nil
	TRUE                  //   - TRUE true
	FALSE                 //   - FALSE false
	POP                   //   x POP -
	EQUAL                 // x y EQUAL bool
	GREATER               // x y GREATER bool
	LESS                  // x y LESS bool
	ADD                   // x y ADD x+y    (two numbers or two strings)
	SUBTRACT              // x y SUBTRACT x-y
	MULTIPLY              // x y MULTIPLY x*y
	DIVIDE                // x y DIVIDE x/y
	NOT                   //   x NOT bool
	NEGATE                //   x NEGATE -x
	PRINT                 //   x PRINT -
	RETURN                //   x RETURN -    (pops the frame)

	// one-byte operand
	CONSTANT     //            - CONSTANT<constant>     value
	GETLOCAL     //            - GETLOCAL<slot>         value
	SETLOCAL     //        value SETLOCAL<slot>         value
	GETGLOBAL    //            - GETGLOBAL<constant>    value
	DEFINEGLOBAL //        value DEFINEGLOBAL<constant> -
	SETGLOBAL    //        value SETGLOBAL<constant>    value
	CALL         // fn a1 .. an CALL<n>                 result

	// two-byte big-endian operand
	JUMP      //    - JUMP<delta>      -      (pc += delta)
	JUMPFALSE // cond JUMPFALSE<delta> cond   (peeks, does not pop)
	LOOP      //    - LOOP<delta>      -      (pc -= delta)

	opcodeByteArgMin = CONSTANT
	opcodeJumpMin    = JUMP
	opcodeMax        = LOOP
)

var opcodeNames = [...]string{
	ADD:          "add",
	CALL:         "call",
	CONSTANT:     "constant",
	DEFINEGLOBAL: "defineglobal",
	DIVIDE:       "divide",
	EQUAL:        "equal",
	FALSE:        "false",
	GETGLOBAL:    "getglobal",
	GETLOCAL:     "getlocal",
	GREATER:      "greater",
	JUMP:         "jump",
	JUMPFALSE:    "jumpfalse",
	LESS:         "less",
	LOOP:         "loop",
	MULTIPLY:     "multiply",
	NEGATE:       "negate",
	NIL:          "nil",
	NOT:          "not",
	POP:          "pop",
	PRINT:        "print",
	RETURN:       "return",
	SETGLOBAL:    "setglobal",
	SETLOCAL:     "setlocal",
	SUBTRACT:     "subtract",
	TRUE:         "true",
}

// OperandLen returns the number of operand bytes that follow the opcode.
func (op Opcode) OperandLen() int {
	switch {
	case op >= opcodeJumpMin:
		return 2
	case op >= opcodeByteArgMin:
		return 1
	}
	return 0
}

func (op Opcode) String() string {
	if op <= opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}
