// Package check implements the bidirectional type checker that sits
// between compiler/parse and compiler/lower: it walks the untyped AST
// compiler/parse produces, resolves every expression's type into its
// ast.Meta, and rejects the programs spec.md §7 lists as type-checking
// failures. Grounded on type_check.cpp's TypeChecker: one scoped symbol
// table, one recursive function per statement/expression kind, and a
// `meta.Type` slot on every expression populated as a postcondition of
// visiting it.
package check

import (
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/types"
)

type varInfo struct {
	typ   types.Type
	init  bool
}

// scope is one lexical block's variable table; checker.scopes is the
// stack type_check.cpp keeps as symbol_map, indexed from outermost (the
// globals, at index 0) to innermost.
type scope map[string]*varInfo

type checker struct {
	prog   *ast.Program
	scopes []scope
	retTy  types.Type // nil while checking a proc body
}

// Program type-checks prog in place, annotating every ast.Expr's Meta.Type
// and returning the first error encountered. Mirrors type_check's
// type_check() entry point, including the post-pass "main must exist and
// be a proc" check.
func Program(prog *ast.Program) error {
	c := &checker{prog: prog}

	globals := scope{}
	for _, g := range prog.Globals {
		globals[g.Name] = &varInfo{typ: g.Type, init: true}
	}
	c.scopes = []scope{globals}

	for _, fn := range prog.Funcs {
		if err := c.checkFunc(fn); err != nil {
			return errors.Wrap(err, "func %s", fn.Name)
		}
	}

	main, ok := prog.ByName("main")
	if !ok || main.Ret != nil {
		return errors.New("cannot find main() procedure")
	}
	return nil
}

func (c *checker) lookup(name string) *varInfo {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

func (c *checker) pushScope() { c.scopes = append(c.scopes, scope{}) }
func (c *checker) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *checker) checkFunc(fn *ast.Func) error {
	params := scope{}
	for _, p := range fn.Params {
		params[p.Name] = &varInfo{typ: p.Type, init: true}
	}
	c.scopes = append(c.scopes, params)

	c.retTy = fn.Ret
	for _, s := range fn.Body.Stmts {
		if err := c.checkStmt(s); err != nil {
			c.popScope()
			return err
		}
	}
	c.retTy = nil
	c.popScope()

	if fn.Ret != nil && !ReturnsOnEveryPath(fn.Body) {
		return errors.New("does not return on every path")
	}
	return nil
}

// ReturnsOnEveryPath is ReturnCheck from type_check.cpp: a block returns
// on every path if any of its statements does, an if/else returns on every
// path if both branches do, and nothing else does (while's body may not
// run at all). Exported so compiler/lower can tell, without redoing the
// analysis, whether a function body can fall off its end and needs its
// epilogue wired to that fall-through.
func ReturnsOnEveryPath(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.Return:
		return true
	case *ast.IfElse:
		return ReturnsOnEveryPath(s.Then) && ReturnsOnEveryPath(s.Else)
	case *ast.Block:
		for i := len(s.Stmts) - 1; i >= 0; i-- {
			if ReturnsOnEveryPath(s.Stmts[i]) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (c *checker) checkStmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Declare:
		return c.checkDeclare(s)
	case *ast.Assign:
		return c.checkAssign(s)
	case *ast.Eval:
		_, err := c.checkExpr(s.X)
		return err
	case *ast.Print:
		_, err := c.checkExpr(s.Arg)
		return err
	case *ast.Block:
		c.pushScope()
		for _, st := range s.Stmts {
			if err := c.checkStmt(st); err != nil {
				c.popScope()
				return err
			}
		}
		c.popScope()
		return nil
	case *ast.IfElse:
		return c.checkIfElse(s)
	case *ast.While:
		return c.checkWhile(s)
	case *ast.Return:
		return c.checkReturn(s)
	default:
		return errors.New("unhandled statement %T", s)
	}
}

func (c *checker) checkDeclare(d *ast.Declare) error {
	if _, ok := c.scopes[len(c.scopes)-1][d.Var]; ok {
		return errors.New("variable %s already declared in this scope", d.Var)
	}
	if err := c.checkExprExpect(d.Init, d.Type); err != nil {
		return err
	}
	c.scopes[len(c.scopes)-1][d.Var] = &varInfo{typ: d.Type, init: d.Init != nil}
	return nil
}

func (c *checker) checkAssign(a *ast.Assign) error {
	lhsTy, err := c.checkExpr(a.Lhs)
	if err != nil {
		return err
	}
	if !isAssignable(a.Lhs) {
		return errors.New("left-hand side is not assignable")
	}
	if err := c.checkExprExpect(a.Rhs, lhsTy); err != nil {
		return err
	}
	if id, ok := a.Lhs.(*ast.Ident); ok {
		c.lookup(id.Name).init = true
	}
	return nil
}

// isAssignable is spec.md §7's "unresolvable l-value" check: only
// variables, list elements and dereferences can appear on a store's
// left-hand side.
func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident:
		return true
	case *ast.Index:
		return true
	case *ast.Deref:
		return true
	default:
		return false
	}
}

func (c *checker) checkIfElse(ie *ast.IfElse) error {
	if err := c.checkExprExpect(ie.Cond, types.Bool); err != nil {
		return errors.Wrap(err, "if condition")
	}
	if err := c.checkStmt(ie.Then); err != nil {
		return err
	}
	return c.checkStmt(ie.Else)
}

func (c *checker) checkWhile(w *ast.While) error {
	if err := c.checkExprExpect(w.Cond, types.Bool); err != nil {
		return errors.Wrap(err, "while condition")
	}
	return c.checkStmt(w.Body)
}

func (c *checker) checkReturn(r *ast.Return) error {
	if r.Value == nil {
		if c.retTy != nil {
			return errors.New("missing return value")
		}
		return nil
	}
	if c.retTy == nil {
		return errors.New("procedure cannot return a value")
	}
	return c.checkExprExpect(r.Value, c.retTy)
}

// checkExprExpect visits e (populating its Meta) and requires the result
// match expected exactly, the way type_check's visit_checked does.
func (c *checker) checkExprExpect(e ast.Expr, expected types.Type) error {
	got, err := c.checkExpr(e)
	if err != nil {
		return err
	}
	if !types.Equal(got, expected) {
		return errors.New("expected %s, got %s", expected, got)
	}
	return nil
}

func (c *checker) checkExpr(e ast.Expr) (types.Type, error) {
	var ty types.Type
	var err error

	switch e := e.(type) {
	case *ast.Ident:
		ty, err = c.checkIdent(e)
	case *ast.IntLit:
		ty = types.Int64
	case *ast.BoolLit:
		ty = types.Bool
	case *ast.NullLit:
		ty = types.PointerType{Elem: types.Unknown}
	case *ast.Unary:
		ty, err = c.checkUnary(e)
	case *ast.Binary:
		ty, err = c.checkBinary(e)
	case *ast.Call:
		ty, err = c.checkCall(e)
	case *ast.Alloc:
		ty, err = c.checkAlloc(e)
	case *ast.Index:
		ty, err = c.checkIndex(e)
	case *ast.Deref:
		ty, err = c.checkDeref(e)
	case *ast.Addr:
		ty, err = c.checkAddr(e)
	default:
		err = errors.New("unhandled expression %T", e)
	}
	if err != nil {
		return nil, err
	}
	e.GetMeta().Type = ty
	return ty, nil
}

func (c *checker) checkIdent(id *ast.Ident) (types.Type, error) {
	v := c.lookup(id.Name)
	if v == nil {
		return nil, errors.New("variable %s unknown", id.Name)
	}
	if !v.init {
		return nil, errors.New("read from uninitialized variable %s", id.Name)
	}
	return v.typ, nil
}

func (c *checker) checkUnary(u *ast.Unary) (types.Type, error) {
	switch u.Op {
	case ast.Negate, ast.BitNot:
		if err := c.checkExprExpect(u.X, types.Int64); err != nil {
			return nil, err
		}
		return types.Int64, nil
	case ast.LogNot:
		if err := c.checkExprExpect(u.X, types.Bool); err != nil {
			return nil, err
		}
		return types.Bool, nil
	default:
		return nil, errors.New("unhandled unary operator %v", u.Op)
	}
}

func (c *checker) checkBinary(b *ast.Binary) (types.Type, error) {
	switch b.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod,
		ast.BitAnd, ast.BitOr, ast.BitXor, ast.Lshift, ast.Rshift:
		if err := c.checkExprExpect(b.Left, types.Int64); err != nil {
			return nil, err
		}
		if err := c.checkExprExpect(b.Right, types.Int64); err != nil {
			return nil, err
		}
		return types.Int64, nil
	case ast.Lt, ast.Leq, ast.Gt, ast.Geq:
		if err := c.checkExprExpect(b.Left, types.Int64); err != nil {
			return nil, err
		}
		if err := c.checkExprExpect(b.Right, types.Int64); err != nil {
			return nil, err
		}
		return types.Bool, nil
	case ast.LogAnd, ast.LogOr:
		if err := c.checkExprExpect(b.Left, types.Bool); err != nil {
			return nil, err
		}
		if err := c.checkExprExpect(b.Right, types.Bool); err != nil {
			return nil, err
		}
		return types.Bool, nil
	case ast.Eq, ast.Neq:
		leftTy, err := c.checkExpr(b.Left)
		if err != nil {
			return nil, err
		}
		if err := c.checkExprExpect(b.Right, leftTy); err != nil {
			return nil, err
		}
		return types.Bool, nil
	default:
		return nil, errors.New("unhandled binary operator %v", b.Op)
	}
}

func (c *checker) checkCall(call *ast.Call) (types.Type, error) {
	fn, ok := c.prog.ByName(call.Func)
	if !ok {
		return nil, errors.New("undefined callable %s", call.Func)
	}
	if len(call.Args) != len(fn.Params) {
		return nil, errors.New("%s expects %d arguments, got %d", call.Func, len(fn.Params), len(call.Args))
	}
	for i, arg := range call.Args {
		if err := c.checkExprExpect(arg, fn.Params[i].Type); err != nil {
			return nil, errors.Wrap(err, "argument %d", i)
		}
	}
	if fn.Ret == nil {
		return types.Unknown, nil
	}
	return fn.Ret, nil
}

func (c *checker) checkAlloc(a *ast.Alloc) (types.Type, error) {
	if err := c.checkExprExpect(a.Size, types.Int64); err != nil {
		return nil, errors.Wrap(err, "alloc size")
	}
	return types.PointerType{Elem: a.Elem}, nil
}

// checkIndex accepts indexing a fixed-size list[T;N] as well as a
// pointer-to-T (the value alloc T[n] returns) — compiler/lower's
// lowerIndex scales by the list's element size when it can recover one
// and otherwise by a pointer's word size, so both base types type-check
// and lower to the same Load/CopyAP shape.
func (c *checker) checkIndex(ix *ast.Index) (types.Type, error) {
	listTy, err := c.checkExpr(ix.List)
	if err != nil {
		return nil, err
	}
	var elem types.Type
	switch lt := listTy.(type) {
	case types.ListType:
		elem = lt.Elem
	case types.PointerType:
		elem = lt.Elem
	default:
		return nil, errors.New("cannot index type %s", listTy)
	}
	if err := c.checkExprExpect(ix.Idx, types.Int64); err != nil {
		return nil, errors.Wrap(err, "index")
	}
	return elem, nil
}

func (c *checker) checkDeref(d *ast.Deref) (types.Type, error) {
	ptrTy, err := c.checkExpr(d.Ptr)
	if err != nil {
		return nil, err
	}
	pt, ok := ptrTy.(types.PointerType)
	if !ok {
		return nil, errors.New("cannot dereference non-pointer type %s", ptrTy)
	}
	return pt.Elem, nil
}

// checkAddr requires an assignable operand, matching spec.md §7's
// "unresolvable l-value" diagnostic for `&expr`.
func (c *checker) checkAddr(a *ast.Addr) (types.Type, error) {
	if !isAssignable(a.X) {
		return nil, errors.New("cannot take the address of a non-lvalue")
	}
	xTy, err := c.checkExpr(a.X)
	if err != nil {
		return nil, err
	}
	return types.PointerType{Elem: xTy}, nil
}
