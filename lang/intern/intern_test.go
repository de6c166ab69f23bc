package intern_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wisp/lang/intern"
)

func TestInternDedups(t *testing.T) {
	tbl := intern.NewTable()
	a := tbl.Intern("foo")
	b := tbl.Intern("foo")
	require.Same(t, a, b)

	c := tbl.Intern("bar")
	require.NotSame(t, a, c)
	require.Equal(t, "foo", a.Bytes())
	require.Equal(t, "bar", c.Bytes())
}

func TestInternEqualityIsReferenceEquality(t *testing.T) {
	tbl := intern.NewTable()
	s1 := "hello" + "world"
	s2 := "hell" + "oworld" // distinct Go string header, same bytes
	a := tbl.Intern(s1)
	b := tbl.Intern(s2)
	require.True(t, a == b)
}
