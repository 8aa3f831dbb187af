package lower

import (
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
)

// Globals evaluates every global variable's initializer to a constant,
// the way ast_rtl's getGlobals does — a global's initializer must be an
// int, bool or null literal, optionally under unary - or ~, because there
// is no code running before main to execute it. Booleans fold to 0/1, matching BX's 64-bit
// storage width for bool.
func Globals(prog *ast.Program) (map[string]int32, error) {
	out := map[string]int32{}

	for _, gv := range prog.Globals {
		v, err := evalConst(gv.Init)
		if err != nil {
			return nil, errors.Wrap(err, "global %s", gv.Name)
		}
		out[gv.Name] = v
	}

	return out, nil
}

func evalConst(e ast.Expr) (int32, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return int32(e.Value), nil
	case *ast.BoolLit:
		if e.Value {
			return 1, nil
		}
		return 0, nil
	case *ast.NullLit:
		return 0, nil
	case *ast.Unary:
		v, err := evalConst(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.Negate:
			return -v, nil
		case ast.BitNot:
			return ^v, nil
		default:
			return 0, errors.New("operator not valid in a constant initializer")
		}
	default:
		return 0, errors.New("%T is not a constant expression", e)
	}
}
