package parse

import (
	"context"
	"os"

	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

type parser struct {
	lex *lexer
	cur token
}

// ParseFile reads name and parses it as a BX source file.
func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return Parse(ctx, text)
}

// Parse parses src as a complete BX program: a sequence of global
// variable declarations and proc/fun definitions, in any order.
func Parse(ctx context.Context, src []byte) (*ast.Program, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	prog := &ast.Program{}
	for p.cur.kind != tokEOF {
		switch {
		case p.atKeyword("var"):
			g, err := p.parseGlobal()
			if err != nil {
				return nil, errors.Wrap(err, "global")
			}
			prog.Globals = append(prog.Globals, g)
		case p.atKeyword("proc") || p.atKeyword("fun"):
			fn, err := p.parseFunc()
			if err != nil {
				return nil, errors.Wrap(err, "func")
			}
			prog.Funcs = append(prog.Funcs, fn)
		default:
			return nil, p.errorf("expected a global or a proc/fun declaration, got %v", p.cur)
		}
	}

	return prog, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	line, col := p.lex.lineCol(p.cur.pos)
	return errors.New("%d:%d: "+format, append([]any{line, col}, args...)...)
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *parser) atPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return p.errorf("expected %q, got %v", s, p.cur)
	}
	return p.advance()
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected %q, got %v", kw, p.cur)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", p.errorf("expected an identifier, got %v", p.cur)
	}
	name := p.cur.text
	return name, p.advance()
}

// parseType parses a base type (int64/bool) followed by any number of
// postfix `*` (pointer) and `[N]` (fixed-length list) modifiers, e.g.
// `int64[10]*[3]`.
func (p *parser) parseType() (types.Type, error) {
	var ty types.Type
	switch {
	case p.atKeyword("int64"):
		ty = types.Int64
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.atKeyword("bool"):
		ty = types.Bool
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected a type, got %v", p.cur)
	}

	for {
		switch {
		case p.atPunct("*"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			ty = types.PointerType{Elem: ty}
		case p.atPunct("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokInt {
				return nil, p.errorf("expected a list length, got %v", p.cur)
			}
			n, err := parseIntLiteral(p.cur)
			if err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			ty = types.ListType{Elem: ty, Len: int(n)}
		default:
			return ty, nil
		}
	}
}

func (p *parser) parseGlobal() (*ast.Global, error) {
	pos := p.cur.pos
	if err := p.expectKeyword("var"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end := p.cur.end
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Global{Base: ast.Base{Pos: pos, End: end}, Name: name, Type: ty, Init: init}, nil
}

func (p *parser) parseFunc() (*ast.Func, error) {
	pos := p.cur.pos
	isFun := p.atKeyword("fun")
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var params []ast.Param
	for !p.atPunct(")") {
		if len(params) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		pty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname, Type: pty})
	}
	if err := p.advance(); err != nil { // consume ")"
		return nil, err
	}

	var ret types.Type
	if p.atPunct("->") {
		if !isFun {
			return nil, p.errorf("proc %s cannot declare a return type", name)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	} else if isFun {
		return nil, p.errorf("fun %s must declare a return type", name)
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	return &ast.Func{
		Base:   ast.Base{Pos: pos, End: body.End},
		Name:   name,
		Params: params,
		Ret:    ret,
		Body:   body,
	}, nil
}

func (p *parser) parseBlock() (*ast.Block, error) {
	pos := p.cur.pos
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.atPunct("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	end := p.cur.end
	if err := p.advance(); err != nil { // consume "}"
		return nil, err
	}
	return &ast.Block{Base: ast.Base{Pos: pos, End: end}, Stmts: stmts}, nil
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.atKeyword("var"):
		return p.parseDeclare()
	case p.atKeyword("if"):
		return p.parseIfElse()
	case p.atKeyword("while"):
		return p.parseWhile()
	case p.atKeyword("print"):
		return p.parsePrint()
	case p.atKeyword("return"):
		return p.parseReturn()
	case p.atPunct("{"):
		return p.parseBlock()
	default:
		return p.parseAssignOrEval()
	}
}

func (p *parser) parseDeclare() (ast.Stmt, error) {
	pos := p.cur.pos
	if err := p.advance(); err != nil { // consume "var"
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end := p.cur.end
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Declare{Base: ast.Base{Pos: pos, End: end}, Var: name, Type: ty, Init: init}, nil
}

func (p *parser) parseIfElse() (ast.Stmt, error) {
	pos := p.cur.pos
	if err := p.advance(); err != nil { // consume "if"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, errors.Wrap(err, "then branch")
	}
	elseBlk := &ast.Block{Base: ast.Base{Pos: then.End, End: then.End}}
	if p.atKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atKeyword("if") {
			nested, err := p.parseIfElse()
			if err != nil {
				return nil, errors.Wrap(err, "else if")
			}
			elseBlk = &ast.Block{Base: nested.(*ast.IfElse).Base, Stmts: []ast.Stmt{nested}}
		} else {
			elseBlk, err = p.parseBlock()
			if err != nil {
				return nil, errors.Wrap(err, "else branch")
			}
		}
	}
	return &ast.IfElse{Base: ast.Base{Pos: pos, End: elseBlk.End}, Cond: cond, Then: then, Else: elseBlk}, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	pos := p.cur.pos
	if err := p.advance(); err != nil { // consume "while"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, errors.Wrap(err, "loop body")
	}
	return &ast.While{Base: ast.Base{Pos: pos, End: body.End}, Cond: cond, Body: body}, nil
}

func (p *parser) parsePrint() (ast.Stmt, error) {
	pos := p.cur.pos
	if err := p.advance(); err != nil { // consume "print"
		return nil, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end := p.cur.end
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Print{Base: ast.Base{Pos: pos, End: end}, Arg: arg}, nil
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	pos := p.cur.pos
	if err := p.advance(); err != nil { // consume "return"
		return nil, err
	}
	var val ast.Expr
	if !p.atPunct(";") {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		val = v
	}
	end := p.cur.end
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Return{Base: ast.Base{Pos: pos, End: end}, Value: val}, nil
}

// parseAssignOrEval disambiguates `lhs = rhs;` from a bare expression
// statement by parsing a full expression first and checking for `=`.
func (p *parser) parseAssignOrEval() (ast.Stmt, error) {
	pos := p.cur.pos
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		end := p.cur.end
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.Assign{Base: ast.Base{Pos: pos, End: end}, Lhs: x, Rhs: rhs}, nil
	}
	end := p.cur.end
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Eval{Base: ast.Base{Pos: pos, End: end}, X: x}, nil
}
