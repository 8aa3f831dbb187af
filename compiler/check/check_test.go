package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

// program builds a minimal *ast.Program with a single main proc whose
// body is the given statements.
func program(stmts ...ast.Stmt) *ast.Program {
	return &ast.Program{
		Funcs: []*ast.Func{
			{Name: "main", Body: &ast.Block{Stmts: stmts}},
		},
	}
}

func TestProgramRequiresMain(t *testing.T) {
	prog := &ast.Program{Funcs: []*ast.Func{{Name: "helper", Body: &ast.Block{}}}}
	assert.Error(t, Program(prog))
}

func TestDeclareAndUse(t *testing.T) {
	prog := program(
		&ast.Declare{Var: "x", Type: types.Int64, Init: &ast.IntLit{Value: 1}},
		&ast.Print{Arg: &ast.Ident{Name: "x"}},
	)
	require.NoError(t, Program(prog))
}

func TestUseBeforeDeclareFails(t *testing.T) {
	prog := program(&ast.Print{Arg: &ast.Ident{Name: "x"}})
	assert.Error(t, Program(prog))
}

func TestAssignTypeMismatch(t *testing.T) {
	prog := program(
		&ast.Declare{Var: "x", Type: types.Int64, Init: &ast.IntLit{Value: 1}},
		&ast.Assign{Lhs: &ast.Ident{Name: "x"}, Rhs: &ast.BoolLit{Value: true}},
	)
	assert.Error(t, Program(prog))
}

func TestIfConditionMustBeBool(t *testing.T) {
	prog := program(&ast.IfElse{
		Cond: &ast.IntLit{Value: 1},
		Then: &ast.Block{},
		Else: &ast.Block{},
	})
	assert.Error(t, Program(prog))
}

func TestFunctionMustReturnOnEveryPath(t *testing.T) {
	one := types.Int64
	prog := &ast.Program{Funcs: []*ast.Func{
		{Name: "main", Body: &ast.Block{}},
		{Name: "f", Ret: one, Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.IfElse{
				Cond: &ast.BoolLit{Value: true},
				Then: &ast.Block{Stmts: []ast.Stmt{&ast.Return{Value: &ast.IntLit{Value: 1}}}},
				Else: &ast.Block{},
			},
		}}},
	}}
	assert.Error(t, Program(prog))
}

func TestCallArgTypesChecked(t *testing.T) {
	prog := &ast.Program{Funcs: []*ast.Func{
		{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.Eval{X: &ast.Call{Func: "f", Args: []ast.Expr{&ast.BoolLit{Value: true}}}},
		}}},
		{Name: "f", Params: []ast.Param{{Name: "n", Type: types.Int64}}, Body: &ast.Block{}},
	}}
	assert.Error(t, Program(prog))
}

func TestAllocIndexDerefAddrRoundtrip(t *testing.T) {
	prog := program(
		&ast.Declare{Var: "p", Type: types.PointerType{Elem: types.Int64}, Init: &ast.Alloc{Elem: types.Int64, Size: &ast.IntLit{Value: 4}}},
		&ast.Assign{Lhs: &ast.Index{List: &ast.Ident{Name: "p"}, Idx: &ast.IntLit{Value: 0}}, Rhs: &ast.IntLit{Value: 7}},
		&ast.Declare{Var: "q", Type: types.PointerType{Elem: types.PointerType{Elem: types.Int64}}, Init: &ast.Addr{X: &ast.Ident{Name: "p"}}},
		&ast.Declare{Var: "r", Type: types.PointerType{Elem: types.Int64}, Init: &ast.Deref{Ptr: &ast.Ident{Name: "q"}}},
	)
	assert.NoError(t, Program(prog))
}

func TestTakingAddressOfNonLvalueFails(t *testing.T) {
	prog := program(
		&ast.Declare{Var: "p", Type: types.PointerType{Elem: types.Int64}, Init: &ast.Addr{X: &ast.IntLit{Value: 1}}},
	)
	assert.Error(t, Program(prog))
}
