// Package format pretty-prints a checked ast.Program back to BX-like
// source text, annotated with the types compiler/check resolved — the
// "<name>.parsed" debug artifact spec.md §6 names. Grounded on the
// teacher's formatFile/formatFunc/formatBlock/formatExpr dispatch
// structure and its hfmt.Appendf-based `app` helper, generalized
// from the teacher's single-package toy AST to BX's statement and
// expression grammar.
package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
)

func Format(ctx context.Context, prog *ast.Program) ([]byte, error) {
	return formatProgram(ctx, nil, prog)
}

func formatProgram(ctx context.Context, b []byte, prog *ast.Program) (_ []byte, err error) {
	for _, g := range prog.Globals {
		b = app(b, 0, "var %s: %s = ", g.Name, g.Type)
		b, err = formatExpr(ctx, b, g.Init)
		if err != nil {
			return nil, errors.Wrap(err, "global %s", g.Name)
		}
		b = append(b, ";\n"...)
	}
	if len(prog.Globals) > 0 {
		b = append(b, '\n')
	}

	for i, fn := range prog.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}
		b, err = formatFunc(ctx, b, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %s", fn.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, fn *ast.Func) (_ []byte, err error) {
	kind := "proc"
	if fn.Ret != nil {
		kind = "fun"
	}
	b = app(b, 0, "%s %s(", kind, fn.Name)
	for i, p := range fn.Params {
		if i != 0 {
			b = append(b, ", "...)
		}
		b = hfmt.Appendf(b, "%s: %s", p.Name, p.Type)
	}
	b = append(b, ')')
	if fn.Ret != nil {
		b = hfmt.Appendf(b, " -> %s", fn.Ret)
	}
	b = append(b, " {\n"...)

	b, err = formatBlock(ctx, b, fn.Body, 1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, 0, "}\n")
	return b, nil
}

func formatBlock(ctx context.Context, b []byte, bl *ast.Block, d int) (_ []byte, err error) {
	for _, s := range bl.Stmts {
		b, err = formatStmt(ctx, b, s, d)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func formatStmt(ctx context.Context, b []byte, s ast.Stmt, d int) (_ []byte, err error) {
	switch s := s.(type) {
	case *ast.Declare:
		b = app(b, d, "var %s: %s = ", s.Var, s.Type)
		b, err = formatExpr(ctx, b, s.Init)
		if err != nil {
			return nil, errors.Wrap(err, "declare %s", s.Var)
		}
		b = append(b, ";\n"...)

	case *ast.Assign:
		b = app(b, d, "")
		b, err = formatExpr(ctx, b, s.Lhs)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}
		b = append(b, " = "...)
		b, err = formatExpr(ctx, b, s.Rhs)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}
		b = append(b, ";\n"...)

	case *ast.Eval:
		b = app(b, d, "")
		b, err = formatExpr(ctx, b, s.X)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}
		b = append(b, ";\n"...)

	case *ast.Print:
		b = app(b, d, "print ")
		b, err = formatExpr(ctx, b, s.Arg)
		if err != nil {
			return nil, errors.Wrap(err, "arg")
		}
		b = append(b, ";\n"...)

	case *ast.Return:
		b = app(b, d, "return")
		if s.Value != nil {
			b = append(b, ' ')
			b, err = formatExpr(ctx, b, s.Value)
			if err != nil {
				return nil, errors.Wrap(err, "value")
			}
		}
		b = append(b, ";\n"...)

	case *ast.IfElse:
		b = app(b, d, "if ")
		b, err = formatExpr(ctx, b, s.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		b = append(b, " {\n"...)
		b, err = formatBlock(ctx, b, s.Then, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}
		b = app(b, d, "} else {\n")
		b, err = formatBlock(ctx, b, s.Else, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}
		b = app(b, d, "}\n")

	case *ast.While:
		b = app(b, d, "while ")
		b, err = formatExpr(ctx, b, s.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		b = append(b, " {\n"...)
		b, err = formatBlock(ctx, b, s.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
		b = app(b, d, "}\n")

	case *ast.Block:
		b = app(b, d, "{\n")
		b, err = formatBlock(ctx, b, s, d+1)
		if err != nil {
			return nil, err
		}
		b = app(b, d, "}\n")

	default:
		return nil, errors.New("unsupported stmt: %T", s)
	}

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Ident:
		b = hfmt.Appendf(b, "%s/*:%s*/", x.Name, x.M.Type)
	case *ast.IntLit:
		b = hfmt.Appendf(b, "%d", x.Value)
	case *ast.BoolLit:
		b = hfmt.Appendf(b, "%v", x.Value)
	case *ast.NullLit:
		b = append(b, "null"...)
	case *ast.Unary:
		b = append(b, unaryOpText[x.Op]...)
		b, err = formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	case *ast.Binary:
		b = append(b, '(')
		b, err = formatExpr(ctx, b, x.Left)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}
		b = hfmt.Appendf(b, " %s ", binaryOpText[x.Op])
		b, err = formatExpr(ctx, b, x.Right)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
		b = append(b, ')')
	case *ast.Call:
		b = hfmt.Appendf(b, "%s(", x.Func)
		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}
			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}
		b = append(b, ')')
	case *ast.Alloc:
		b = hfmt.Appendf(b, "alloc %s[", x.Elem)
		b, err = formatExpr(ctx, b, x.Size)
		if err != nil {
			return nil, errors.Wrap(err, "size")
		}
		b = append(b, ']')
	case *ast.Index:
		b, err = formatExpr(ctx, b, x.List)
		if err != nil {
			return nil, errors.Wrap(err, "list")
		}
		b = append(b, '[')
		b, err = formatExpr(ctx, b, x.Idx)
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}
		b = append(b, ']')
	case *ast.Deref:
		b = append(b, '*')
		b, err = formatExpr(ctx, b, x.Ptr)
		if err != nil {
			return nil, errors.Wrap(err, "ptr")
		}
	case *ast.Addr:
		b = append(b, '&')
		b, err = formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

var unaryOpText = map[ast.UnaryOp]string{
	ast.Negate: "-", ast.BitNot: "~", ast.LogNot: "!",
}

var binaryOpText = map[ast.BinaryOp]string{
	ast.Add: "+", ast.Sub: "-", ast.Mul: "*", ast.Div: "/", ast.Mod: "%",
	ast.BitAnd: "&", ast.BitOr: "|", ast.BitXor: "^", ast.Lshift: "<<", ast.Rshift: ">>",
	ast.Lt: "<", ast.Leq: "<=", ast.Gt: ">", ast.Geq: ">=", ast.Eq: "==", ast.Neq: "!=",
	ast.LogAnd: "&&", ast.LogOr: "||",
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	return hfmt.Appendf(b, f, args...)
}
