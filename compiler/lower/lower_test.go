package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/check"
	"github.com/bxlang/bxc/compiler/rtl"
	"github.com/bxlang/bxc/compiler/types"
)

// checked builds a *ast.Program from funcs, type-checks it (so every
// expression's Meta.Type is populated the way lower expects), and fails
// the test if checking itself fails.
func checked(t *testing.T, funcs ...*ast.Func) *ast.Program {
	t.Helper()
	prog := &ast.Program{Funcs: funcs}
	require.NoError(t, check.Program(prog))
	return prog
}

func TestLowerProducesValidRTLForStraightLineFunc(t *testing.T) {
	prog := checked(t, &ast.Func{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.Declare{Var: "x", Type: types.Int64, Init: &ast.IntLit{Value: 41}},
			&ast.Print{Arg: &ast.Ident{Name: "x"}},
		}},
	})

	out, err := Program(prog)
	require.NoError(t, err)
	require.Len(t, out.Callables, 1)

	cbl := out.Callables[0]
	assert.NoError(t, rtl.Validate(cbl))
	assert.NotEmpty(t, cbl.Schedule)
}

func TestLowerIfElseWhereBothBranchesReturn(t *testing.T) {
	prog := checked(t, &ast.Func{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.IfElse{
				Cond: &ast.BoolLit{Value: true},
				Then: &ast.Block{Stmts: []ast.Stmt{&ast.Return{}}},
				Else: &ast.Block{Stmts: []ast.Stmt{&ast.Return{}}},
			},
		}},
	})

	out, err := Program(prog)
	require.NoError(t, err)
	require.Len(t, out.Callables, 1)
	assert.NoError(t, rtl.Validate(out.Callables[0]))
}

func TestLowerWhileLoopsBackToCondition(t *testing.T) {
	prog := checked(t, &ast.Func{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.Declare{Var: "i", Type: types.Int64, Init: &ast.IntLit{Value: 0}},
			&ast.While{
				Cond: &ast.Binary{Op: ast.Lt, Left: &ast.Ident{Name: "i"}, Right: &ast.IntLit{Value: 10}},
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.Assign{
						Lhs: &ast.Ident{Name: "i"},
						Rhs: &ast.Binary{Op: ast.Add, Left: &ast.Ident{Name: "i"}, Right: &ast.IntLit{Value: 1}},
					},
				}},
			},
		}},
	})

	out, err := Program(prog)
	require.NoError(t, err)
	assert.NoError(t, rtl.Validate(out.Callables[0]))
}

func TestLowerAllocIndexRoundtrip(t *testing.T) {
	ptrInt64 := types.PointerType{Elem: types.Int64}
	prog := checked(t, &ast.Func{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.Declare{Var: "p", Type: ptrInt64, Init: &ast.Alloc{Elem: types.Int64, Size: &ast.IntLit{Value: 4}}},
			&ast.Assign{
				Lhs: &ast.Index{List: &ast.Ident{Name: "p"}, Idx: &ast.IntLit{Value: 0}},
				Rhs: &ast.IntLit{Value: 7},
			},
		}},
	})

	out, err := Program(prog)
	require.NoError(t, err)
	cbl := out.Callables[0]
	require.NoError(t, rtl.Validate(cbl))

	var sawCall bool
	for _, lab := range cbl.Schedule {
		instr, _ := cbl.At(lab)
		if c, ok := instr.(rtl.Call); ok && c.Func == "malloc" {
			sawCall = true
		}
	}
	assert.True(t, sawCall, "alloc should lower to a malloc call")
}

func TestGlobalsEvaluateConstantInitializers(t *testing.T) {
	prog := &ast.Program{
		Globals: []*ast.Global{
			{Name: "flag", Type: types.Bool, Init: &ast.BoolLit{Value: true}},
			{Name: "zero", Type: types.Int64, Init: &ast.IntLit{Value: 0}},
		},
		Funcs: []*ast.Func{{Name: "main", Body: &ast.Block{}}},
	}
	require.NoError(t, check.Program(prog))

	globals, err := Globals(prog)
	require.NoError(t, err)
	assert.Equal(t, int32(1), globals["flag"])
	assert.Equal(t, int32(0), globals["zero"])
}

func TestGlobalsRejectNonConstantInitializer(t *testing.T) {
	prog := &ast.Program{
		Globals: []*ast.Global{
			{Name: "x", Type: types.Int64, Init: &ast.Call{Func: "f"}},
		},
	}
	_, err := Globals(prog)
	assert.Error(t, err)
}
