package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"

	"wisp/lang/intern"
)

func compile(t *testing.T, src string) *Function {
	t.Helper()
	fn, err := Compile(src, intern.NewTable())
	require.NoError(t, err)
	return fn
}

// opcodes decodes the bare opcode sequence of a chunk, skipping operand
// bytes, for order-sensitive assertions (disassembly text is for humans;
// this is for tests that care about exact instruction order).
func opcodes(fn *Function) []Opcode {
	code := fn.Chunk.Code()
	var ops []Opcode
	for i := 0; i < len(code); {
		op := Opcode(code[i])
		ops = append(ops, op)
		switch op {
		case CLOSURE:
			constIdx := int(code[i+1])
			nested := fn.Chunk.Constants()[constIdx].(*Function)
			i += 2 + 2*int(nested.UpvalueCount)
		default:
			i += 1 + operandSize(op)
		}
	}
	return ops
}

func trace(fn *Function) string {
	var buf bytes.Buffer
	fn.Chunk.Disassemble(&buf, "test")
	return buf.String()
}

func TestCompileArithmeticExpression(t *testing.T) {
	fn := compile(t, "print 1 + 2;")
	ops := opcodes(fn)
	assert.True(t, slices.Contains(ops, ADD))
	assert.Equal(t, []Opcode{CONSTANT, CONSTANT, ADD, PRINT, NIL, RETURN}, ops)
}

func TestCompileGlobalVarRoundTrip(t *testing.T) {
	fn := compile(t, `var a = 1; print a;`)
	out := trace(fn)
	assert.Contains(t, out, "DEFINE_GLOBAL")
	assert.Contains(t, out, "GET_GLOBAL")
}

func TestCompileLocalScopeUsesSlots(t *testing.T) {
	fn := compile(t, `{ var a = 1; print a; }`)
	out := trace(fn)
	assert.Contains(t, out, "GET_LOCAL")
	assert.NotContains(t, out, "GET_GLOBAL")
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	fn := compile(t, `if (true) { print 1; } else { print 2; }`)
	out := trace(fn)
	assert.Contains(t, out, "JUMP_IF_FALSE")
	assert.Contains(t, out, "JUMP")
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	fn := compile(t, `while (false) { print 1; }`)
	assert.Contains(t, trace(fn), "LOOP")
}

func TestCompileForEmitsLoopAndScope(t *testing.T) {
	fn := compile(t, `for (var i = 0; i < 3; i = i + 1) { print i; }`)
	out := trace(fn)
	assert.Contains(t, out, "LOOP")
	assert.Contains(t, out, "JUMP_IF_FALSE")
}

func TestCompileFunctionEmitsClosureAndReturn(t *testing.T) {
	fn := compile(t, `fun add(a, b) { return a + b; } print add(1, 2);`)
	out := trace(fn)
	assert.Contains(t, out, "CLOSURE")
	assert.Contains(t, out, "CALL")
	assert.Contains(t, out, "RETURN")
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compile(t, `
		fun makeCounter() {
			var i = 0;
			fun count() { i = i + 1; return i; }
			return count;
		}
		var c = makeCounter();
	`)
	out := trace(fn)
	assert.Contains(t, out, "GET_UPVALUE")
	assert.Contains(t, out, "SET_UPVALUE")
	assert.Contains(t, out, "local 1") // count's descriptor captures makeCounter's local i (slot 1)
}

func TestCompileComparisonDesugaring(t *testing.T) {
	cases := map[string]string{
		"print 1 >= 2;": "LESS",
		"print 1 <= 2;": "GREATER",
		"print 1 != 2;": "EQUAL",
	}
	for src, want := range cases {
		out := trace(compile(t, src))
		assert.Contains(t, out, want, "source: %s", src)
		assert.Contains(t, out, "NOT", "source: %s", src)
	}
}

func TestCompileErrorTooManyParameters(t *testing.T) {
	var params []string
	for i := 0; i < 256; i++ {
		params = append(params, fmt.Sprintf("p%d", i))
	}
	src := "fun f(" + strings.Join(params, ",") + ") {}"
	_, err := Compile(src, intern.NewTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "255 parameters")
}

func TestCompileErrorRedeclareLocal(t *testing.T) {
	_, err := Compile(`{ var a; var a; }`, intern.NewTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestCompileErrorSelfReferentialInitializer(t *testing.T) {
	_, err := Compile(`{ var a = a; }`, intern.NewTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own initializer")
}

func TestCompileShadowingAcrossNestedScopesOK(t *testing.T) {
	_, err := Compile(`{ var a; { var a; } }`, intern.NewTable())
	require.NoError(t, err)
}

func TestCompileErrorReturnAtTopLevel(t *testing.T) {
	_, err := Compile(`return 1;`, intern.NewTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level")
}

func TestCompileErrorJumpTooFar(t *testing.T) {
	var body strings.Builder
	body.WriteString("if (true) {")
	for i := 0; i < 40000; i++ {
		body.WriteString("true;")
	}
	body.WriteString("}")
	_, err := Compile(body.String(), intern.NewTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too much code")
}
