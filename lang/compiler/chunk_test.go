package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/lang/intern"
)

func TestChunkWriteTracksLinesWithRunLength(t *testing.T) {
	c := NewChunk()
	c.Write(byte(NIL), 1)
	c.Write(byte(POP), 1)
	c.Write(byte(RETURN), 2)

	assert.Equal(t, []byte{byte(NIL), byte(POP), byte(RETURN)}, c.Code())
	assert.Equal(t, 1, c.GetLine(0))
	assert.Equal(t, 1, c.GetLine(1))
	assert.Equal(t, 2, c.GetLine(2))
	require.Len(t, c.lines, 2) // two runs, not three
}

func TestChunkWriteConstant(t *testing.T) {
	c := NewChunk()
	idx1, ok := c.WriteConstant(1.0)
	require.True(t, ok)
	idx2, ok := c.WriteConstant(2.0)
	require.True(t, ok)
	assert.Equal(t, 0, idx1)
	assert.Equal(t, 1, idx2)
	assert.Equal(t, 1.0, c.NumberConstant(idx1))
}

func TestChunkMaxConstants(t *testing.T) {
	c := NewChunk()
	for i := 0; i < maxConstants; i++ {
		_, ok := c.WriteConstant(float64(i))
		require.True(t, ok)
	}
	_, ok := c.WriteConstant(999.0)
	assert.False(t, ok, "257th constant must be rejected")
}

func TestChunkNameConstant(t *testing.T) {
	tbl := intern.NewTable()
	n := tbl.Intern("hello")
	c := NewChunk()
	idx, ok := c.WriteConstant(n)
	require.True(t, ok)
	assert.Same(t, n, c.NameConstant(idx))
}
