// Package parse turns BX source text into the untyped ast.Program
// compiler/check annotates. The grammar (spec.md §6: globals, proc/fun
// declarations, var declarations, if/else, while, print, return, and the
// &/*/[]/alloc/null expression sublanguage) has no analogue in the
// teacher's arithmetic-only combinator parser (compiler/parse's old
// base.go/math.go/number.go/text.go), so this is a hand-rolled
// lexer-then-recursive-descent pair instead — see DESIGN.md. It keeps
// the teacher's error-wrapping idiom (tlog.app/go/errors.Wrap with a
// position-bearing message at every production) even though the parsing
// technique itself is new.
package parse

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokKeyword
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
	end  int
}

var keywords = map[string]bool{
	"var": true, "proc": true, "fun": true, "if": true, "else": true,
	"while": true, "print": true, "return": true, "true": true, "false": true,
	"null": true, "alloc": true, "int64": true, "bool": true,
}

// lexer scans BX source into tokens on demand; the parser holds one
// token of lookahead at a time, the shape a hand-written recursive
// descent parser over a hand-written lexer conventionally takes.
type lexer struct {
	src []byte
	pos int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src}
}

func (l *lexer) errorf(format string, args ...any) error {
	line, col := l.lineCol(l.pos)
	return errors.New("%d:%d: "+format, append([]any{line, col}, args...)...)
}

func (l *lexer) lineCol(pos int) (line, col int) {
	line = 1
	lineStart := 0
	for i := 0; i < pos && i < len(l.src); i++ {
		if l.src[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, pos - lineStart + 1
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// punctuators, longest first so e.g. "<<" is preferred over "<".
var punctuators = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "->",
	"(", ")", "{", "}", "[", "]", ",", ";", ":", "=", "+", "-", "*", "/", "%",
	"&", "|", "^", "~", "!", "<", ">",
}

func (l *lexer) next() (token, error) {
	l.skipTrivia()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start, end: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case isDigit(c):
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokInt, text: string(l.src[start:l.pos]), pos: start, end: l.pos}, nil
	case isAlpha(c):
		for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		kind := tokIdent
		if keywords[text] {
			kind = tokKeyword
		}
		return token{kind: kind, text: text, pos: start, end: l.pos}, nil
	default:
		for _, p := range punctuators {
			if matchAt(l.src, l.pos, p) {
				l.pos += len(p)
				return token{kind: tokPunct, text: p, pos: start, end: l.pos}, nil
			}
		}
		return token{}, l.errorf("unexpected character %q", c)
	}
}

func matchAt(src []byte, pos int, s string) bool {
	if pos+len(s) > len(src) {
		return false
	}
	return string(src[pos:pos+len(s)]) == s
}

func parseIntLiteral(tok token) (int64, error) {
	v, err := strconv.ParseInt(tok.text, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "integer literal %q", tok.text)
	}
	return v, nil
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "<eof>"
	}
	return fmt.Sprintf("%q", t.text)
}
