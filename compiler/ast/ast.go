// Package ast defines the typed source AST that compiler/parse produces and
// compiler/check annotates: the input contract compiler/lower consumes.
package ast

import "github.com/bxlang/bxc/compiler/types"

type (
	Node interface {
		node()
	}

	Base struct {
		Pos int
		End int
	}

	// Meta carries the type a checked expression was resolved to. Unset
	// (nil) until compiler/check runs.
	Meta struct {
		Type types.Type
	}

	Expr interface {
		Node
		exprNode()
		GetMeta() *Meta
	}

	Stmt interface {
		Node
		stmtNode()
	}

	// Ident, IntLit, BoolLit and NullLit are leaf nodes and are always
	// held as *Ident/*IntLit/... in the tree, matching every other Expr
	// variant below — a value-typed leaf stored in an Expr interface
	// would copy its Meta on every interface assignment, so
	// compiler/check's GetMeta().Type = ty would mutate a throwaway copy
	// instead of the node the tree actually holds.
	Ident struct {
		Base `tlog:",embed"`
		Name string
		M    Meta
	}

	IntLit struct {
		Base  `tlog:",embed"`
		Value int64
		M     Meta
	}

	BoolLit struct {
		Base  `tlog:",embed"`
		Value bool
		M     Meta
	}

	NullLit struct {
		Base `tlog:",embed"`
		M    Meta
	}

	Unary struct {
		Base `tlog:",embed"`
		Op   UnaryOp
		X    Expr
		M    Meta
	}

	Binary struct {
		Base  `tlog:",embed"`
		Op    BinaryOp
		Left  Expr
		Right Expr
		M     Meta
	}

	Call struct {
		Base `tlog:",embed"`
		Func string
		Args []Expr
		M    Meta
	}

	Alloc struct {
		Base `tlog:",embed"`
		Elem types.Type
		Size Expr
		M    Meta
	}

	Index struct {
		Base `tlog:",embed"`
		List Expr
		Idx  Expr
		M    Meta
	}

	Deref struct {
		Base `tlog:",embed"`
		Ptr  Expr
		M    Meta
	}

	Addr struct {
		Base `tlog:",embed"`
		X    Expr
		M    Meta
	}

	UnaryOp  int
	BinaryOp int
)

const (
	Negate UnaryOp = iota
	BitNot
	LogNot
)

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	Lshift
	Rshift
	Lt
	Leq
	Gt
	Geq
	Eq
	Neq
	LogAnd
	LogOr
)

func (*Ident) node()   {}
func (*IntLit) node()  {}
func (*BoolLit) node() {}
func (*NullLit) node() {}
func (*Unary) node()   {}
func (*Binary) node()  {}
func (*Call) node()    {}
func (*Alloc) node()   {}
func (*Index) node()   {}
func (*Deref) node()   {}
func (*Addr) node()    {}

func (*Ident) exprNode()   {}
func (*IntLit) exprNode()  {}
func (*BoolLit) exprNode() {}
func (*NullLit) exprNode() {}
func (*Unary) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Call) exprNode()    {}
func (*Alloc) exprNode()   {}
func (*Index) exprNode()   {}
func (*Deref) exprNode()   {}
func (*Addr) exprNode()    {}

func (x *Ident) GetMeta() *Meta   { return &x.M }
func (x *IntLit) GetMeta() *Meta  { return &x.M }
func (x *BoolLit) GetMeta() *Meta { return &x.M }
func (x *NullLit) GetMeta() *Meta { return &x.M }
func (x *Unary) GetMeta() *Meta   { return &x.M }
func (x *Binary) GetMeta() *Meta { return &x.M }
func (x *Call) GetMeta() *Meta   { return &x.M }
func (x *Alloc) GetMeta() *Meta  { return &x.M }
func (x *Index) GetMeta() *Meta  { return &x.M }
func (x *Deref) GetMeta() *Meta  { return &x.M }
func (x *Addr) GetMeta() *Meta   { return &x.M }

type (
	// Declare introduces a local variable, checking its declared type
	// against the (required) initializer.
	Declare struct {
		Base
		Var  string
		Type types.Type
		Init Expr
	}

	// Assign stores the value of Rhs into the l-value Lhs.
	Assign struct {
		Base
		Lhs Expr
		Rhs Expr
	}

	Eval struct {
		Base
		X Expr
	}

	Print struct {
		Base
		Arg Expr
	}

	Return struct {
		Base
		Value Expr // nil for a void return
	}

	IfElse struct {
		Base
		Cond Expr
		Then *Block
		Else *Block
	}

	While struct {
		Base
		Cond Expr
		Body *Block
	}

	Block struct {
		Base
		Stmts []Stmt
	}
)

func (*Declare) node() {}
func (*Assign) node()  {}
func (*Eval) node()    {}
func (*Print) node()   {}
func (*Return) node()  {}
func (*IfElse) node()  {}
func (*While) node()   {}
func (*Block) node()   {}

func (*Declare) stmtNode() {}
func (*Assign) stmtNode()  {}
func (*Eval) stmtNode()    {}
func (*Print) stmtNode()   {}
func (*Return) stmtNode()  {}
func (*IfElse) stmtNode()  {}
func (*While) stmtNode()   {}
func (*Block) stmtNode()   {}

type (
	Param struct {
		Name string
		Type types.Type
	}

	// Func is either a proc (Ret == nil) or a fun (Ret != nil).
	Func struct {
		Base
		Name   string
		Params []Param
		Ret    types.Type
		Body   *Block
	}

	Global struct {
		Base
		Name string
		Type types.Type
		Init Expr
	}

	Program struct {
		Globals []*Global
		Funcs   []*Func
	}
)

func (*Func) node()   {}
func (*Global) node() {}

// ByName looks up a function or proc by name; compiler/check uses it to
// resolve call sites (the "undefined callable" diagnostic fires when this
// returns ok == false) and to find main.
func (p *Program) ByName(name string) (*Func, bool) {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
