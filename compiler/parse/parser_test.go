package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return prog
}

func TestParseGlobalAndFunc(t *testing.T) {
	prog := mustParse(t, `
var counter: int64 = 0;

proc main() {
	print counter;
}
`)
	require.Len(t, prog.Globals, 1)
	assert.Equal(t, "counter", prog.Globals[0].Name)
	assert.Equal(t, types.Int64, prog.Globals[0].Type)

	require.Len(t, prog.Funcs, 1)
	assert.Equal(t, "main", prog.Funcs[0].Name)
	assert.Nil(t, prog.Funcs[0].Ret)
}

func TestParseFunReturnType(t *testing.T) {
	prog := mustParse(t, `
fun add(a: int64, b: int64) -> int64 {
	return a + b;
}
`)
	require.Len(t, prog.Funcs, 1)
	fn := prog.Funcs[0]
	assert.Equal(t, types.Int64, fn.Ret)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
}

func TestProcCannotDeclareReturnType(t *testing.T) {
	_, err := Parse(context.Background(), []byte(`proc f() -> int64 { return; }`))
	assert.Error(t, err)
}

func TestFunMustDeclareReturnType(t *testing.T) {
	_, err := Parse(context.Background(), []byte(`fun f() { }`))
	assert.Error(t, err)
}

func TestParsePointerAndListTypes(t *testing.T) {
	prog := mustParse(t, `
proc main() {
	var p: int64* = alloc int64[4];
	var xs: int64[4] = alloc int64[4];
}
`)
	decl := prog.Funcs[0].Body.Stmts[0].(*ast.Declare)
	assert.Equal(t, types.PointerType{Elem: types.Int64}, decl.Type)

	decl2 := prog.Funcs[0].Body.Stmts[1].(*ast.Declare)
	assert.Equal(t, types.ListType{Elem: types.Int64, Len: 4}, decl2.Type)
}

func TestExpressionPrecedence(t *testing.T) {
	prog := mustParse(t, `
proc main() {
	print 1 + 2 * 3;
}
`)
	p := prog.Funcs[0].Body.Stmts[0].(*ast.Print)
	bin := p.Arg.(*ast.Binary)
	assert.Equal(t, ast.Add, bin.Op)
	assert.IsType(t, &ast.IntLit{}, bin.Left)
	mul := bin.Right.(*ast.Binary)
	assert.Equal(t, ast.Mul, mul.Op)
}

func TestElseIfChaining(t *testing.T) {
	prog := mustParse(t, `
proc main() {
	if 1 < 2 {
		print 1;
	} else if 2 < 3 {
		print 2;
	} else {
		print 3;
	}
}
`)
	ie := prog.Funcs[0].Body.Stmts[0].(*ast.IfElse)
	require.Len(t, ie.Else.Stmts, 1)
	nested, ok := ie.Else.Stmts[0].(*ast.IfElse)
	require.True(t, ok)
	require.Len(t, nested.Else.Stmts, 1)
}

func TestAssignVersusEvalDisambiguation(t *testing.T) {
	prog := mustParse(t, `
proc main() {
	var x: int64 = 1;
	x = 2;
	f();
}
proc f() {}
`)
	_, isAssign := prog.Funcs[0].Body.Stmts[1].(*ast.Assign)
	assert.True(t, isAssign)
	_, isEval := prog.Funcs[0].Body.Stmts[2].(*ast.Eval)
	assert.True(t, isEval)
}

func TestIndexAndDerefAndAddr(t *testing.T) {
	prog := mustParse(t, `
proc main() {
	var p: int64* = alloc int64[4];
	p[0] = 1;
	var q: int64** = &p;
	var r: int64 = *p;
}
`)
	assign := prog.Funcs[0].Body.Stmts[1].(*ast.Assign)
	_, ok := assign.Lhs.(*ast.Index)
	assert.True(t, ok)

	qdecl := prog.Funcs[0].Body.Stmts[2].(*ast.Declare)
	_, ok = qdecl.Init.(*ast.Addr)
	assert.True(t, ok)

	rdecl := prog.Funcs[0].Body.Stmts[3].(*ast.Declare)
	_, ok = rdecl.Init.(*ast.Deref)
	assert.True(t, ok)
}

func TestSyntaxErrorReportsLineCol(t *testing.T) {
	_, err := Parse(context.Background(), []byte("proc main() {\n  1 1;\n}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2:")
}
