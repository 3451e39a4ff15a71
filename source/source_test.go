package source_test

import (
	"testing"

	"github.com/aledsdavies/trieste/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineColRoundTrip(t *testing.T) {
	text := "abc\ndefg\r\nh"
	src := source.Synthetic(text)

	for pos := 0; pos < len(text); pos++ {
		line, col := src.LineCol(pos)
		start, _ := src.LinePos(line)
		require.Equal(t, pos, start+col, "pos %d: linecol(%d,%d) did not round trip", pos, line, col)
	}
}

func TestLinePosOutOfRange(t *testing.T) {
	src := source.Synthetic("abc")
	start, length := src.LinePos(50)
	assert.Equal(t, 3, start)
	assert.Equal(t, 0, length)
}

func TestLocationUnion(t *testing.T) {
	src := source.Synthetic("0123456789")
	a := source.New(src, 2, 3)
	b := source.New(src, 5, 2)
	u := a.Union(b)
	assert.Equal(t, 2, u.Pos)
	assert.Equal(t, 5, u.Len)
}

func TestLocationUnionDifferentSource(t *testing.T) {
	a := source.New(source.Synthetic("aaa"), 0, 1)
	b := source.New(source.Synthetic("bbb"), 0, 1)
	u := a.Union(b)
	assert.Equal(t, a, u)
}

func TestLocationEqualityByView(t *testing.T) {
	a := source.New(source.Synthetic("hello"), 0, 5)
	b := source.New(source.Synthetic("hello"), 0, 5)
	assert.True(t, a.Equal(b))
}

func TestLocationStrSingleLine(t *testing.T) {
	src := source.Synthetic("let x = 1")
	loc := source.New(src, 4, 1)
	out := loc.Str()
	assert.Contains(t, out, "let x = 1")
	assert.Contains(t, out, "~")
}
