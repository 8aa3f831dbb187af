package parse

import (
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

// parseExpr parses the full expression grammar by precedence climbing,
// lowest-binding level first: || then && then ==/!= then the relational
// operators then the bitwise operators then shifts then +/- then */ %,
// bottoming out at unary and primary expressions. This mirrors
// ast.cpp's documented binding_priority ladder (BinopApp::binding_priority
// and UnopApp::binding_priority) rather than reproducing it, since the
// original leaves precedence to the ANTLR grammar file this pack does
// not retrieve.
func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseLogOr()
}

type binLevel struct {
	ops  map[string]ast.BinaryOp
	next func(*parser) (ast.Expr, error)
}

func (p *parser) parseBinLevel(lvl binLevel) (ast.Expr, error) {
	pos := p.cur.pos
	left, err := lvl.next(p)
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPunct {
		op, ok := lvl.ops[p.cur.text]
		if !ok {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := lvl.next(p)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Pos: pos, End: p.cur.pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseLogOr() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"||": ast.LogOr}, next: (*parser).parseLogAnd})
}

func (p *parser) parseLogAnd() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"&&": ast.LogAnd}, next: (*parser).parseEquality})
}

func (p *parser) parseEquality() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"==": ast.Eq, "!=": ast.Neq}, next: (*parser).parseRelational})
}

func (p *parser) parseRelational() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{
		"<": ast.Lt, "<=": ast.Leq, ">": ast.Gt, ">=": ast.Geq,
	}, next: (*parser).parseBitOr})
}

func (p *parser) parseBitOr() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"|": ast.BitOr}, next: (*parser).parseBitXor})
}

func (p *parser) parseBitXor() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"^": ast.BitXor}, next: (*parser).parseBitAnd})
}

func (p *parser) parseBitAnd() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"&": ast.BitAnd}, next: (*parser).parseShift})
}

func (p *parser) parseShift() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"<<": ast.Lshift, ">>": ast.Rshift}, next: (*parser).parseAdditive})
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{"+": ast.Add, "-": ast.Sub}, next: (*parser).parseMultiplicative})
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	return p.parseBinLevel(binLevel{ops: map[string]ast.BinaryOp{
		"*": ast.Mul, "/": ast.Div, "%": ast.Mod,
	}, next: (*parser).parseUnary})
}

func (p *parser) parseUnary() (ast.Expr, error) {
	pos := p.cur.pos
	switch {
	case p.atPunct("-"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Pos: pos, End: p.cur.pos}, Op: ast.Negate, X: x}, nil
	case p.atPunct("~"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Pos: pos, End: p.cur.pos}, Op: ast.BitNot, X: x}, nil
	case p.atPunct("!"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Pos: pos, End: p.cur.pos}, Op: ast.LogNot, X: x}, nil
	case p.atPunct("&"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Addr{Base: ast.Base{Pos: pos, End: p.cur.pos}, X: x}, nil
	case p.atPunct("*"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Deref{Base: ast.Base{Pos: pos, End: p.cur.pos}, Ptr: x}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	pos := p.cur.pos
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("[") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		x = &ast.Index{Base: ast.Base{Pos: pos, End: p.cur.pos}, List: x, Idx: idx}
	}
	return x, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	pos := p.cur.pos
	switch {
	case p.cur.kind == tokInt:
		v, err := parseIntLiteral(p.cur)
		if err != nil {
			return nil, err
		}
		end := p.cur.end
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IntLit{Base: ast.Base{Pos: pos, End: end}, Value: v}, nil

	case p.atKeyword("true") || p.atKeyword("false"):
		v := p.atKeyword("true")
		end := p.cur.end
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLit{Base: ast.Base{Pos: pos, End: end}, Value: v}, nil

	case p.atKeyword("null"):
		end := p.cur.end
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLit{Base: ast.Base{Pos: pos, End: end}}, nil

	case p.atKeyword("alloc"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		// The element type is a base type plus any `*` modifiers; parseType
		// would also take the `[n]` below as a list-type modifier.
		var elem types.Type = types.Bool
		if p.atKeyword("int64") {
			elem = types.Int64
		} else if !p.atKeyword("bool") {
			return nil, p.errorf("expected a type, got %v", p.cur)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.atPunct("*") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			elem = types.PointerType{Elem: elem}
		}
		if err := p.expectPunct("["); err != nil {
			return nil, err
		}
		size, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		end := p.cur.end
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return &ast.Alloc{Base: ast.Base{Pos: pos, End: end}, Elem: elem, Size: size}, nil

	case p.atPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return x, nil

	case p.cur.kind == tokIdent:
		name := p.cur.text
		end := p.cur.end
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atPunct("(") {
			return p.parseCallArgs(pos, name)
		}
		return &ast.Ident{Base: ast.Base{Pos: pos, End: end}, Name: name}, nil

	default:
		return nil, p.errorf("expected an expression, got %v", p.cur)
	}
}

func (p *parser) parseCallArgs(pos int, name string) (ast.Expr, error) {
	if err := p.advance(); err != nil { // consume "("
		return nil, err
	}
	var args []ast.Expr
	for !p.atPunct(")") {
		if len(args) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "argument %d", len(args))
		}
		args = append(args, arg)
	}
	end := p.cur.end
	if err := p.advance(); err != nil { // consume ")"
		return nil, err
	}
	return &ast.Call{Base: ast.Base{Pos: pos, End: end}, Func: name, Args: args}, nil
}
