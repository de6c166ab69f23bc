package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/lang/compiler"
	"wisp/lang/intern"
	"wisp/lang/value"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.None.Truthy())
	assert.False(t, value.Bool(false).Truthy())
	assert.True(t, value.Bool(true).Truthy())
	assert.True(t, value.Number(0).Truthy())
	tbl := intern.NewTable()
	assert.True(t, value.NewString(tbl.Intern("")).Truthy())
}

func TestEqualNumbers(t *testing.T) {
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	nan := value.Number(math.NaN())
	assert.False(t, value.Equal(nan, nan))
}

func TestEqualStringsByReference(t *testing.T) {
	tbl := intern.NewTable()
	a := value.NewString(tbl.Intern("hi"))
	b := value.NewString(tbl.Intern("hi"))
	assert.True(t, value.Equal(a, b))
	c := value.NewString(tbl.Intern("bye"))
	assert.False(t, value.Equal(a, c))
}

func TestEqualAcrossVariantsIsFalse(t *testing.T) {
	assert.False(t, value.Equal(value.Number(0), value.Bool(false)))
	assert.False(t, value.Equal(value.None, value.Bool(false)))
}

func TestFunctionString(t *testing.T) {
	script := value.Function{Fn: &compiler.Function{Name: "", Chunk: compiler.NewChunk()}}
	assert.Equal(t, "<script>", script.String())

	named := value.Function{Fn: &compiler.Function{Name: "add", Chunk: compiler.NewChunk()}}
	assert.Equal(t, "<fn add>", named.String())
}

func TestCallable(t *testing.T) {
	fn := value.Function{Fn: &compiler.Function{Chunk: compiler.NewChunk()}}
	assert.True(t, value.Callable(fn))
	assert.True(t, value.Callable(value.NewClosure(fn, 0)))
	assert.True(t, value.Callable(&value.Native{Name: "clock"}))
	assert.False(t, value.Callable(value.Number(1)))
}

func TestUpvalueCloses(t *testing.T) {
	stack := []value.Value{value.Number(41)}
	uv := value.NewOpenUpvalue(&stack[0], 0)
	require.Equal(t, value.Number(41), *uv.Location)

	stack[0] = value.Number(42)
	require.Equal(t, value.Number(42), *uv.Location)

	uv.Close()
	stack[0] = value.Number(0) // mutating the old slot must no longer affect the upvalue
	assert.Equal(t, value.Number(42), *uv.Location)
}
