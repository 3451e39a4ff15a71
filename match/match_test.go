package match_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/token"
	"github.com/stretchr/testify/assert"
)

var capTok = token.New(token.NewDef("cap", token.FlagNone))

func TestSetGetSameFrame(t *testing.T) {
	m := match.New()
	n := ast.New(capTok)
	m.Set(capTok, match.Range{n})
	assert.Equal(t, n, m.Node(capTok))
}

func TestReturnToFrameDiscardsCaptures(t *testing.T) {
	m := match.New()
	outer := ast.New(capTok)
	m.Set(capTok, match.Range{outer})

	frame := m.AddFrame()
	inner := ast.New(capTok)
	m.Set(capTok, match.Range{inner})
	assert.Equal(t, inner, m.Node(capTok), "inner frame shadows outer capture")

	m.ReturnToFrame(frame)
	assert.Equal(t, outer, m.Node(capTok), "rewinding must restore the outer capture")
}

func TestGetMissingReturnsNil(t *testing.T) {
	m := match.New()
	assert.Nil(t, m.Get(capTok))
	assert.Nil(t, m.Node(capTok))
}

func TestResetClearsFrameZero(t *testing.T) {
	m := match.New()
	n := ast.New(capTok)
	m.Set(capTok, match.Range{n})
	m.Reset()
	assert.Nil(t, m.Node(capTok))
}
