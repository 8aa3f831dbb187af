package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []token {
	t.Helper()
	l := newLexer([]byte(src))
	var toks []token
	for {
		tok, err := l.next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks
		}
	}
}

func TestLexerSkipsLineComments(t *testing.T) {
	toks := lexAll(t, "x // comment\n+ 1")
	require.Len(t, toks, 4)
	assert.Equal(t, tokIdent, toks[0].kind)
	assert.Equal(t, "+", toks[1].text)
	assert.Equal(t, "1", toks[2].text)
}

func TestLexerKeywordVsIdent(t *testing.T) {
	toks := lexAll(t, "proc counter")
	assert.Equal(t, tokKeyword, toks[0].kind)
	assert.Equal(t, tokIdent, toks[1].kind)
}

func TestLexerLongestPunctuatorFirst(t *testing.T) {
	toks := lexAll(t, "<<=")
	assert.Equal(t, "<<", toks[0].text)
	assert.Equal(t, "=", toks[1].text)
}

func TestLexerRejectsUnknownCharacter(t *testing.T) {
	l := newLexer([]byte("@"))
	_, err := l.next()
	assert.Error(t, err)
}
