package compiler_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mna/lox/lang/compiler"
	"github.com/mna/lox/lang/scanner"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *compiler.Funcode {
	t.Helper()
	fn, err := compiler.Compile([]byte(src))
	require.NoError(t, err)
	return fn
}

// opcodes decodes the chunk into its sequence of opcodes, skipping over
// operand bytes.
func opcodes(c *compiler.Chunk) []compiler.Opcode {
	var ops []compiler.Opcode
	for off := 0; off < len(c.Code); {
		op := compiler.Opcode(c.Code[off])
		ops = append(ops, op)
		off += 1 + op.OperandLen()
	}
	return ops
}

func TestCompileExpressions(t *testing.T) {
	cases := []struct {
		src       string
		ops       []compiler.Opcode
		constants []compiler.Constant
	}{
		{
			src: "print 1 + 2 * 3;",
			ops: []compiler.Opcode{
				compiler.CONSTANT, compiler.CONSTANT, compiler.CONSTANT,
				compiler.MULTIPLY, compiler.ADD, compiler.PRINT,
				compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{float64(1), float64(2), float64(3)},
		},
		{
			src: "1 - -2;",
			ops: []compiler.Opcode{
				compiler.CONSTANT, compiler.CONSTANT, compiler.NEGATE,
				compiler.SUBTRACT, compiler.POP,
				compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{float64(1), float64(2)},
		},
		{
			// <= and >= are synthesized from the primitive comparisons
			src: "print !(1 <= 2);",
			ops: []compiler.Opcode{
				compiler.CONSTANT, compiler.CONSTANT, compiler.GREATER,
				compiler.NOT, compiler.NOT, compiler.PRINT,
				compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{float64(1), float64(2)},
		},
		{
			src: `print "a" + "b";`,
			ops: []compiler.Opcode{
				compiler.CONSTANT, compiler.CONSTANT, compiler.ADD,
				compiler.PRINT, compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{"a", "b"},
		},
		{
			// the name is boxed before the value expression compiles
			src: "a = 1;",
			ops: []compiler.Opcode{
				compiler.CONSTANT, compiler.SETGLOBAL, compiler.POP,
				compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{"a", float64(1)},
		},
		{
			src: "var x = nil;",
			ops: []compiler.Opcode{
				compiler.NIL, compiler.DEFINEGLOBAL,
				compiler.NIL, compiler.RETURN,
			},
			constants: []compiler.Constant{"x"},
		},
		{
			src: "true and false;",
			ops: []compiler.Opcode{
				compiler.TRUE, compiler.JUMPFALSE, compiler.POP,
				compiler.FALSE, compiler.POP,
				compiler.NIL, compiler.RETURN,
			},
		},
		{
			src: "true or false;",
			ops: []compiler.Opcode{
				compiler.TRUE, compiler.JUMPFALSE, compiler.JUMP,
				compiler.POP, compiler.FALSE, compiler.POP,
				compiler.NIL, compiler.RETURN,
			},
		},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			fn := compile(t, c.src)
			require.Equal(t, c.ops, opcodes(&fn.Chunk))
			if c.constants != nil {
				require.Equal(t, c.constants, fn.Chunk.Constants)
			}
		})
	}
}

func TestCompileIfElse(t *testing.T) {
	fn := compile(t, "if (true) print 1; else print 2;")
	want := []byte{
		byte(compiler.TRUE),
		byte(compiler.JUMPFALSE), 0, 7,
		byte(compiler.POP),
		byte(compiler.CONSTANT), 0,
		byte(compiler.PRINT),
		byte(compiler.JUMP), 0, 4,
		byte(compiler.POP),
		byte(compiler.CONSTANT), 1,
		byte(compiler.PRINT),
		byte(compiler.NIL),
		byte(compiler.RETURN),
	}
	require.Equal(t, want, fn.Chunk.Code)
}

func TestCompileWhile(t *testing.T) {
	fn := compile(t, "while (true) print 1;")
	want := []byte{
		byte(compiler.TRUE),
		byte(compiler.JUMPFALSE), 0, 7,
		byte(compiler.POP),
		byte(compiler.CONSTANT), 0,
		byte(compiler.PRINT),
		byte(compiler.LOOP), 0, 11,
		byte(compiler.POP),
		byte(compiler.NIL),
		byte(compiler.RETURN),
	}
	require.Equal(t, want, fn.Chunk.Code)
}

func TestCompileFor(t *testing.T) {
	fn := compile(t, "for (var i = 0; i < 3; i = i + 1) print i;")
	want := []compiler.Opcode{
		compiler.CONSTANT,                                   // initializer, stays as local slot 1
		compiler.GETLOCAL, compiler.CONSTANT, compiler.LESS, // condition
		compiler.JUMPFALSE, compiler.POP,
		compiler.JUMP,                                      // over the increment on loop entry
		compiler.GETLOCAL, compiler.CONSTANT, compiler.ADD, // increment
		compiler.SETLOCAL, compiler.POP,
		compiler.LOOP,                     // back to the condition
		compiler.GETLOCAL, compiler.PRINT, // body
		compiler.LOOP,                     // back to the increment
		compiler.POP,                      // condition value on exit
		compiler.POP,                      // the local i leaves scope
		compiler.NIL, compiler.RETURN,
	}
	require.Equal(t, want, opcodes(&fn.Chunk))
}

func TestCompileFunction(t *testing.T) {
	fn := compile(t, "fun add(a, b) { return a + b; } print add(1, 2);")
	require.Equal(t, []compiler.Opcode{
		compiler.CONSTANT, compiler.DEFINEGLOBAL,
		compiler.GETGLOBAL, compiler.CONSTANT, compiler.CONSTANT,
		compiler.CALL, compiler.PRINT,
		compiler.NIL, compiler.RETURN,
	}, opcodes(&fn.Chunk))

	require.Len(t, fn.Chunk.Constants, 5)
	require.Equal(t, "add", fn.Chunk.Constants[0])
	sub, ok := fn.Chunk.Constants[1].(*compiler.Funcode)
	require.True(t, ok)
	require.Equal(t, "add", sub.Name)
	require.Equal(t, 2, sub.Arity)

	// parameters resolve as locals in slots 1 and 2; the implicit nil
	// return follows the explicit one
	require.Equal(t, []compiler.Opcode{
		compiler.GETLOCAL, compiler.GETLOCAL, compiler.ADD, compiler.RETURN,
		compiler.NIL, compiler.RETURN,
	}, opcodes(&sub.Chunk))
	require.Equal(t, []byte{
		byte(compiler.GETLOCAL), 1,
		byte(compiler.GETLOCAL), 2,
		byte(compiler.ADD),
		byte(compiler.RETURN),
		byte(compiler.NIL),
		byte(compiler.RETURN),
	}, sub.Chunk.Code)
}

func TestCompileLocalSlots(t *testing.T) {
	fn := compile(t, "{ var a = 1; var b = 2; print a + b; }")
	require.Equal(t, []byte{
		byte(compiler.CONSTANT), 0,
		byte(compiler.CONSTANT), 1,
		byte(compiler.GETLOCAL), 1,
		byte(compiler.GETLOCAL), 2,
		byte(compiler.ADD),
		byte(compiler.PRINT),
		byte(compiler.POP), // b
		byte(compiler.POP), // a
		byte(compiler.NIL),
		byte(compiler.RETURN),
	}, fn.Chunk.Code)
}

func TestChunkLines(t *testing.T) {
	srcs := []string{
		"print 1 + 2 * 3;",
		"var a = 1;\nwhile (a < 10) {\n  a = a + 1;\n}\nprint a;",
		"fun f(x) {\n  return x;\n}\nprint f(1);",
	}
	for _, src := range srcs {
		var check func(fn *compiler.Funcode)
		check = func(fn *compiler.Funcode) {
			require.Equal(t, len(fn.Chunk.Code), len(fn.Chunk.Lines))
			for _, line := range fn.Chunk.Lines {
				require.Greater(t, line, 0)
			}
			for _, ct := range fn.Chunk.Constants {
				if sub, ok := ct.(*compiler.Funcode); ok {
					check(sub)
				}
			}
		}
		check(compile(t, src))
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"1 + ;", []string{"[line 1] Error at ';': Expect expression."}},
		{"print 1", []string{"[line 1] Error at end: Expect ';' after value."}},
		{"{ var a = a; }", []string{"[line 1] Error at 'a': Cannot read local variable in its own initializer."}},
		{"{ var a = 1; var a = 2; }", []string{"[line 1] Error at 'a': Variable with this name already declared in this scope."}},
		{"return 1;", []string{"[line 1] Error at 'return': Cannot return from top-level code."}},
		{"var 1 = 2;", []string{"[line 1] Error at '1': Expect variable name."}},
		{"a * b = c;", []string{"[line 1] Error at '=': Invalid assignment target."}},
		{"var;\nprint 1", []string{
			"[line 1] Error at ';': Expect variable name.",
			"[line 2] Error at end: Expect ';' after value.",
		}},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			fn, err := compiler.Compile([]byte(c.src))
			require.Nil(t, fn)

			var list scanner.ErrorList
			require.ErrorAs(t, err, &list)
			got := make([]string, len(list))
			for i, e := range list {
				got[i] = e.Error()
			}
			require.Equal(t, c.want, got)
		})
	}
}

func TestCompileLimits(t *testing.T) {
	t.Run("constants", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i <= compiler.MaxConstants; i++ {
			fmt.Fprintf(&sb, "print %d;\n", i)
		}
		requireHasError(t, sb.String(), "Too many constants in one chunk.")
	})

	t.Run("locals", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("{\n")
		for i := 0; i < compiler.MaxLocals; i++ {
			fmt.Fprintf(&sb, "var v%d = nil;\n", i)
		}
		sb.WriteString("}\n")
		requireHasError(t, sb.String(), "Too many local variables in function (max 256).")
	})

	t.Run("arguments", func(t *testing.T) {
		args := make([]string, compiler.MaxArity+1)
		for i := range args {
			args[i] = "nil"
		}
		src := "f(" + strings.Join(args, ", ") + ");"
		requireHasError(t, src, "Cannot have more than 255 arguments.")
	})

	t.Run("parameters", func(t *testing.T) {
		params := make([]string, compiler.MaxArity+1)
		for i := range params {
			params[i] = fmt.Sprintf("p%d", i)
		}
		src := "fun f(" + strings.Join(params, ", ") + ") {}"
		requireHasError(t, src, "Cannot have more than 255 parameters.")
	})

	t.Run("jump", func(t *testing.T) {
		// print true takes two bytes of code and no constant
		var sb strings.Builder
		sb.WriteString("if (true) {\n")
		for i := 0; i <= compiler.MaxJump/2; i++ {
			sb.WriteString("print true;\n")
		}
		sb.WriteString("}\n")
		requireHasError(t, sb.String(), "Too much code to jump over.")
	})

	t.Run("loop", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("while (true) {\n")
		for i := 0; i <= compiler.MaxJump/2; i++ {
			sb.WriteString("print true;\n")
		}
		sb.WriteString("}\n")
		requireHasError(t, sb.String(), "Loop body too large.")
	})
}

func requireHasError(t *testing.T, src, msg string) {
	t.Helper()
	fn, err := compiler.Compile([]byte(src))
	require.Nil(t, fn)

	var list scanner.ErrorList
	require.ErrorAs(t, err, &list)
	for _, e := range list {
		if strings.Contains(e.Msg, msg) {
			return
		}
	}
	t.Fatalf("no diagnostic contains %q in %v", msg, list)
}
