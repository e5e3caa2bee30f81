// Package compiler implements the single-pass compiler that translates
// source code directly to bytecode chunks as it parses, with no intermediate
// AST. Expressions are parsed by precedence climbing over a table of token
// rules, and lexical scope is resolved at compile time by mapping each local
// variable to a fixed slot in its function's stack window.
package compiler

import (
	"fmt"

	"github.com/mna/lox/lang/scanner"
	"github.com/mna/lox/lang/token"
)

// Compile compiles source code to the bytecode of its top-level function.
// On failure it returns a scanner.ErrorList with every diagnostic collected
// before reaching the end of the source.
func Compile(src []byte) (*Funcode, error) {
	var c compiler
	c.scan.Init(src)
	c.fc = newFuncComp(nil, funcScript, "")

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunc()
	if err := c.errors.Err(); err != nil {
		return nil, err
	}
	return fn, nil
}

type funcKind int

const (
	funcScript funcKind = iota
	funcFunction
)

// compiler holds the parser state and the chain of per-function compilation
// states; fc is the function currently being compiled, innermost last.
type compiler struct {
	scan   scanner.Scanner
	errors scanner.ErrorList

	curTok, prevTok token.Token
	cur, prev       token.Value

	// panicMode suppresses diagnostics until the parse is synchronized on a
	// statement boundary.
	panicMode bool

	fc *funcComp
}

// A local is the compile-time record of a variable declared inside a block,
// mapped at runtime to a fixed offset from the frame's base slot.
type local struct {
	name string
	// depth is the scope depth of the declaring block, or -1 from the
	// declaration until the initializer completes.
	depth int
}

// funcComp is the compilation state of a single function, linked to the
// enclosing function's state (nil for the top-level script).
type funcComp struct {
	enclosing  *funcComp
	fn         *Funcode
	kind       funcKind
	locals     []local
	scopeDepth int // 0 = global scope
}

func newFuncComp(enclosing *funcComp, kind funcKind, name string) *funcComp {
	fc := &funcComp{
		enclosing: enclosing,
		fn:        &Funcode{Name: name},
		kind:      kind,
		locals:    make([]local, 1, 8),
	}
	// slot 0 holds the callee and is not nameable
	fc.locals[0] = local{name: "", depth: 0}
	return fc
}

// endFunc terminates the current function with an implicit nil return and
// pops its compilation state.
func (c *compiler) endFunc() *Funcode {
	c.emitReturn()
	fn := c.fc.fn
	c.fc = c.fc.enclosing
	return fn
}

/* parsing primitives */

func (c *compiler) advance() {
	c.prevTok, c.prev = c.curTok, c.cur
	for {
		c.curTok = c.scan.Scan(&c.cur)
		if c.curTok != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.cur.Str)
	}
}

func (c *compiler) consume(tok token.Token, msg string) {
	if c.curTok == tok {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *compiler) check(tok token.Token) bool {
	return c.curTok == tok
}

func (c *compiler) match(tok token.Token) bool {
	if !c.check(tok) {
		return false
	}
	c.advance()
	return true
}

/* diagnostics */

func (c *compiler) errorAt(tok token.Token, val token.Value, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	var where string
	switch tok {
	case token.EOF:
		where = " at end"
	case token.ILLEGAL:
		// the message already describes the offending input
	default:
		where = fmt.Sprintf(" at '%s'", val.Raw)
	}
	c.errors.Add(val.Line, fmt.Sprintf("Error%s: %s", where, msg))
}

// error reports msg at the previous token.
func (c *compiler) error(msg string) {
	c.errorAt(c.prevTok, c.prev, msg)
}

func (c *compiler) errorAtCurrent(msg string) {
	c.errorAt(c.curTok, c.cur, msg)
}

// synchronize discards tokens until a statement boundary, then resumes
// normal diagnostics.
func (c *compiler) synchronize() {
	c.panicMode = false

	for c.curTok != token.EOF {
		if c.prevTok == token.SEMI {
			return
		}
		switch c.curTok {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

/* code emission */

func (c *compiler) chunk() *Chunk {
	return &c.fc.fn.Chunk
}

func (c *compiler) emitByte(b byte) {
	c.chunk().write(b, c.prev.Line)
}

func (c *compiler) emitOp(op Opcode) {
	c.emitByte(byte(op))
}

func (c *compiler) emitOps(op1, op2 Opcode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *compiler) emitOpArg(op Opcode, arg byte) {
	c.emitOp(op)
	c.emitByte(arg)
}

func (c *compiler) emitReturn() {
	c.emitOps(NIL, RETURN)
}

// emitJump emits a forward jump with a placeholder operand and returns the
// operand's offset for a later patchJump.
func (c *compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump back-fills the operand of the jump at offset so that it lands on
// the next instruction to be emitted.
func (c *compiler) patchJump(offset int) {
	// -2 to adjust for the operand bytes themselves
	jump := len(c.chunk().Code) - offset - 2
	if jump > MaxJump {
		c.error("Too much code to jump over.")
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

// emitLoop emits a backward jump to the instruction at start.
func (c *compiler) emitLoop(start int) {
	c.emitOp(LOOP)
	// +2 to jump over the operand bytes themselves
	offset := len(c.chunk().Code) - start + 2
	if offset > MaxJump {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// makeConstant adds v to the current chunk's constant pool and returns its
// index as an operand byte.
func (c *compiler) makeConstant(v Constant) byte {
	idx := c.chunk().addConstant(v)
	if idx >= MaxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(v Constant) {
	c.emitOpArg(CONSTANT, c.makeConstant(v))
}

/* scopes and variables */

func (c *compiler) beginScope() {
	c.fc.scopeDepth++
}

func (c *compiler) endScope() {
	fc := c.fc
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		c.emitOp(POP)
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

// identifierConstant boxes a variable name in the constant pool.
func (c *compiler) identifierConstant(name string) byte {
	return c.makeConstant(name)
}

// resolveLocal maps a name to its local slot in fc, or -1 if the name is
// not a local (and so resolves as a global).
func (c *compiler) resolveLocal(fc *funcComp, name string) int {
	// walk top down so that the innermost shadowing declaration wins
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := &fc.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error("Cannot read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *compiler) addLocal(name string) {
	fc := c.fc
	if len(fc.locals) >= MaxLocals {
		c.error("Too many local variables in function (max 256).")
		return
	}
	fc.locals = append(fc.locals, local{name: name, depth: -1})
}

// declareVariable records the previous token as a local declaration. At
// global scope this is a no-op, globals are late bound by name.
func (c *compiler) declareVariable() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}

	name := c.prev.Raw
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := &fc.locals[i]
		if l.depth != -1 && l.depth < fc.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Variable with this name already declared in this scope.")
		}
	}
	c.addLocal(name)
}

// parseVariable consumes a variable name and declares it, returning the
// constant pool index of the name at global scope (0 otherwise).
func (c *compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENT, errMsg)

	c.declareVariable()
	if c.fc.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.prev.Raw)
}

// markInitialized makes the newest local resolvable, ending the window
// during which its initializer runs.
func (c *compiler) markInitialized() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}
	fc.locals[len(fc.locals)-1].depth = fc.scopeDepth
}

// defineVariable completes a declaration: globals get a DEFINEGLOBAL, while
// a local's value simply stays on the stack as the content of its slot.
func (c *compiler) defineVariable(global byte) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpArg(DEFINEGLOBAL, global)
}
