package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

func TestFormatRendersDeclareAndPrint(t *testing.T) {
	x := &ast.Ident{Name: "x"}
	x.M.Type = types.Int64

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.Declare{Var: "x", Type: types.Int64, Init: &ast.IntLit{Value: 5}},
		&ast.Print{Arg: x},
	}}

	prog := &ast.Program{Funcs: []*ast.Func{
		{Name: "main", Body: body},
	}}

	out, err := Format(context.Background(), prog)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "proc main() {")
	assert.Contains(t, s, "var x: int64 = 5;")
	assert.Contains(t, s, "print x/*:int64*/;")
}

func TestFormatRendersFunWithReturnType(t *testing.T) {
	prog := &ast.Program{Funcs: []*ast.Func{
		{
			Name:   "f",
			Params: []ast.Param{{Name: "x", Type: types.Int64}},
			Ret:    types.Int64,
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.Return{Value: &ast.Binary{Op: ast.Mul, Left: &ast.Ident{Name: "x"}, Right: &ast.Ident{Name: "x"}}},
			}},
		},
	}}

	out, err := Format(context.Background(), prog)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "fun f(x: int64) -> int64 {")
	assert.Contains(t, s, "return (x")
}

func TestFormatRendersGlobalsBeforeFuncs(t *testing.T) {
	prog := &ast.Program{
		Globals: []*ast.Global{{Name: "g", Type: types.Int64, Init: &ast.IntLit{Value: 1}}},
		Funcs:   []*ast.Func{{Name: "main", Body: &ast.Block{}}},
	}

	out, err := Format(context.Background(), prog)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "var g: int64 = 1;")
	assert.True(t, indexOf(s, "var g") < indexOf(s, "proc main"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
