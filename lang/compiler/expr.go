package compiler

import "github.com/mna/lox/lang/token"

// precedence levels, lowest first; parsePrecedence(p) consumes infix
// operators whose precedence is >= p.
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // ()
	precPrimary
)

// prefix and infix parse actions are closed sets of tags dispatched by a
// switch, one rule row per token.
type prefixAction uint8

const (
	prefixNone prefixAction = iota
	prefixGrouping
	prefixUnary
	prefixNumber
	prefixString
	prefixLiteral
	prefixVariable
)

type infixAction uint8

const (
	infixNone infixAction = iota
	infixBinary
	infixAnd
	infixOr
	infixCall
)

type rule struct {
	prefix prefixAction
	infix  infixAction
	prec   precedence // precedence of the infix action
}

// rules is indexed by token; tokens without a row have no expression role.
var rules = [token.NumTokens]rule{
	token.LPAREN: {prefixGrouping, infixCall, precCall},
	token.MINUS:  {prefixUnary, infixBinary, precTerm},
	token.PLUS:   {prefixNone, infixBinary, precTerm},
	token.SLASH:  {prefixNone, infixBinary, precFactor},
	token.STAR:   {prefixNone, infixBinary, precFactor},
	token.BANG:   {prefixUnary, infixNone, precNone},
	token.BANGEQ: {prefixNone, infixBinary, precEquality},
	token.EQEQ:   {prefixNone, infixBinary, precEquality},
	token.GT:     {prefixNone, infixBinary, precComparison},
	token.GE:     {prefixNone, infixBinary, precComparison},
	token.LT:     {prefixNone, infixBinary, precComparison},
	token.LE:     {prefixNone, infixBinary, precComparison},
	token.IDENT:  {prefixVariable, infixNone, precNone},
	token.NUMBER: {prefixNumber, infixNone, precNone},
	token.STRING: {prefixString, infixNone, precNone},
	token.NIL:    {prefixLiteral, infixNone, precNone},
	token.TRUE:   {prefixLiteral, infixNone, precNone},
	token.FALSE:  {prefixLiteral, infixNone, precNone},
	token.AND:    {prefixNone, infixAnd, precAnd},
	token.OR:     {prefixNone, infixOr, precOr},
}

func (c *compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence parses an expression at the given minimum precedence: the
// next token's prefix rule, then every infix operator that binds at least as
// tightly as prec.
func (c *compiler) parsePrecedence(prec precedence) {
	c.advance()
	pfx := rules[c.prevTok].prefix
	if pfx == prefixNone {
		c.error("Expect expression.")
		return
	}

	// only targets that can be assigned to (variables) consult canAssign; it
	// is false as soon as the parse is nested under a tighter operator.
	canAssign := prec <= precAssignment
	c.prefixExpr(pfx, canAssign)

	for prec <= rules[c.curTok].prec {
		c.advance()
		c.infixExpr(rules[c.prevTok].infix)
	}

	if canAssign && c.match(token.EQ) {
		c.error("Invalid assignment target.")
	}
}

func (c *compiler) prefixExpr(a prefixAction, canAssign bool) {
	switch a {
	case prefixGrouping:
		c.grouping()
	case prefixUnary:
		c.unary()
	case prefixNumber:
		c.emitConstant(c.prev.Float)
	case prefixString:
		c.emitConstant(c.prev.Str)
	case prefixLiteral:
		c.literal()
	case prefixVariable:
		c.namedVariable(c.prev.Raw, canAssign)
	}
}

func (c *compiler) infixExpr(a infixAction) {
	switch a {
	case infixBinary:
		c.binary()
	case infixAnd:
		c.and()
	case infixOr:
		c.or()
	case infixCall:
		c.call()
	}
}

func (c *compiler) grouping() {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *compiler) unary() {
	op := c.prevTok
	c.parsePrecedence(precUnary)

	switch op {
	case token.MINUS:
		c.emitOp(NEGATE)
	case token.BANG:
		c.emitOp(NOT)
	}
}

// binary compiles the right operand then synthesizes the operator from the
// three comparison opcodes (followed by NOT for !=, >= and <=) and the four
// arithmetic opcodes.
func (c *compiler) binary() {
	op := c.prevTok
	c.parsePrecedence(rules[op].prec + 1)

	switch op {
	case token.BANGEQ:
		c.emitOps(EQUAL, NOT)
	case token.EQEQ:
		c.emitOp(EQUAL)
	case token.GT:
		c.emitOp(GREATER)
	case token.GE:
		c.emitOps(LESS, NOT)
	case token.LT:
		c.emitOp(LESS)
	case token.LE:
		c.emitOps(GREATER, NOT)
	case token.PLUS:
		c.emitOp(ADD)
	case token.MINUS:
		c.emitOp(SUBTRACT)
	case token.STAR:
		c.emitOp(MULTIPLY)
	case token.SLASH:
		c.emitOp(DIVIDE)
	}
}

func (c *compiler) literal() {
	switch c.prevTok {
	case token.NIL:
		c.emitOp(NIL)
	case token.TRUE:
		c.emitOp(TRUE)
	case token.FALSE:
		c.emitOp(FALSE)
	}
}

// namedVariable compiles a read of name, or a write if an '=' follows and
// assignment is allowed in this context.
func (c *compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	arg := c.resolveLocal(c.fc, name)
	if arg != -1 {
		getOp, setOp = GETLOCAL, SETLOCAL
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = GETGLOBAL, SETGLOBAL
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOpArg(setOp, byte(arg))
	} else {
		c.emitOpArg(getOp, byte(arg))
	}
}

// and short-circuits: the right operand is evaluated only when the left is
// truthy, and the result is whichever operand was evaluated last.
func (c *compiler) and() {
	endJump := c.emitJump(JUMPFALSE)
	c.emitOp(POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *compiler) or() {
	elseJump := c.emitJump(JUMPFALSE)
	endJump := c.emitJump(JUMP)

	c.patchJump(elseJump)
	c.emitOp(POP)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *compiler) call() {
	argCount := c.argumentList()
	c.emitOpArg(CALL, argCount)
}

func (c *compiler) argumentList() byte {
	var argCount int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argCount == MaxArity {
				c.error("Cannot have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}
