package lower

import (
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/rtl"
	"github.com/bxlang/bxc/compiler/types"
	"github.com/bxlang/bxc/internal/diag"
)

var intBinopCodes = map[ast.BinaryOp]rtl.BinopCode{
	ast.Add: rtl.ADD, ast.Sub: rtl.SUB, ast.Mul: rtl.MUL, ast.Div: rtl.DIV, ast.Mod: rtl.REM,
	ast.BitAnd: rtl.AND, ast.BitOr: rtl.OR, ast.BitXor: rtl.XOR, ast.Lshift: rtl.SAL, ast.Rshift: rtl.SAR,
}

var ineqCodes = map[ast.BinaryOp]rtl.BbranchCode{
	ast.Lt: rtl.JL, ast.Leq: rtl.JLE, ast.Gt: rtl.JG, ast.Geq: rtl.JGE,
}

// lowerExpr walks e, leaving its value in g.result for an int/pointer
// expression, or a true/false branch pair (g.inLabel/g.falseLabel) for a
// boolean one — callers that need a concrete 0/1 call g.intify first.
func (g *generator) lowerExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Ident:
		return g.lowerIdent(e)
	case *ast.IntLit:
		return g.lowerIntConst(e.Value)
	case *ast.BoolLit:
		return g.lowerBoolLit(e)
	case *ast.NullLit:
		return g.lowerIntConst(0)
	case *ast.Unary:
		return g.lowerUnary(e)
	case *ast.Binary:
		return g.lowerBinary(e)
	case *ast.Call:
		return g.lowerCall(e)
	case *ast.Alloc:
		return g.lowerAlloc(e)
	case *ast.Index:
		return g.lowerIndex(e)
	case *ast.Deref:
		return g.lowerDeref(e)
	case *ast.Addr:
		return g.lowerAddr(e)
	default:
		return errors.New("lower: unhandled expression %T", e)
	}
}

// lowerAddress is the l-value traversal (ast_rtl's Addressor): it leaves
// the l-value's runtime address in g.address instead of its value.
func (g *generator) lowerAddress(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.Ident:
		return g.addressIdent(e)
	case *ast.Index:
		return g.addressIndex(e)
	case *ast.Deref:
		return g.addressDeref(e)
	default:
		// compiler/check's isAssignable already rejected every other Expr
		// kind as an l-value; reaching here is a lowerer bug, not bad input.
		diag.Bug("lower: %T is not an l-value", e)
		return nil
	}
}

func (g *generator) lowerIntConst(v int64) error {
	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: v, Dst: ps, Succ: next} })
	g.result = ps
	return nil
}

func (g *generator) lowerBoolLit(b *ast.BoolLit) error {
	if b.Value {
		g.falseLabel = g.labs.Fresh()
	} else {
		g.falseLabel = g.inLabel
		g.inLabel = g.labs.Fresh()
	}
	return nil
}

func (g *generator) lowerIdent(id *ast.Ident) error {
	ps := g.getPseudo(id.Name, types.SizeOf(id.M.Type))
	g.result = ps

	if _, ok := id.M.Type.(types.BoolType); ok {
		fl := g.labs.Fresh()
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.Ubranch{Op: rtl.JNZ, Arg: ps, Taken: next, Fail: fl}
		})
		g.falseLabel = fl
	}
	return nil
}

func (g *generator) lowerUnary(u *ast.Unary) error {
	if err := g.lowerExpr(u.X); err != nil {
		return err
	}

	switch u.Op {
	case ast.Negate, ast.BitNot:
		res := g.copyOfResult()
		op := rtl.NEG
		if u.Op == ast.BitNot {
			op = rtl.NOT
		}
		g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Unop{Op: op, Arg: res, Succ: next} })
		g.result = res
	case ast.LogNot:
		g.inLabel, g.falseLabel = g.falseLabel, g.inLabel
	default:
		return errors.New("lower: unknown unary operator")
	}
	return nil
}

func (g *generator) lowerBinary(b *ast.Binary) error {
	switch b.Op {
	case ast.LogAnd, ast.LogOr:
		return g.lowerBoolBinop(b)
	case ast.Lt, ast.Leq, ast.Gt, ast.Geq:
		return g.lowerIneq(b)
	case ast.Eq, ast.Neq:
		return g.lowerEq(b)
	default:
		return g.lowerIntBinop(b)
	}
}

func (g *generator) lowerIntBinop(b *ast.Binary) error {
	op, ok := intBinopCodes[b.Op]
	if !ok {
		return errors.New("lower: operator %v is not an int binop", b.Op)
	}

	if err := g.lowerExpr(b.Left); err != nil {
		return err
	}
	left := g.copyOfResult()

	if err := g.lowerExpr(b.Right); err != nil {
		return err
	}
	right := g.result

	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Binop{Op: op, Src: right, Dst: left, Succ: next} })
	g.result = left
	return nil
}

// lowerBoolBinop implements short-circuit && and ||: the right operand is
// lowered with its in-label set to the left operand's "keep going"
// branch (true for &&, false for ||), and the two expressions' dangling
// branch is merged with a Goto into the surviving one.
func (g *generator) lowerBoolBinop(b *ast.Binary) error {
	if err := g.lowerExpr(b.Left); err != nil {
		return err
	}
	leftTrue, leftFalse := g.inLabel, g.falseLabel

	if b.Op == ast.LogAnd {
		g.inLabel = leftTrue
		if err := g.lowerExpr(b.Right); err != nil {
			return err
		}
		rightFalse := g.falseLabel
		g.cbl.AddInstr(rightFalse, rtl.Goto{Succ: leftFalse})
		g.falseLabel = leftFalse
		return nil
	}

	g.inLabel = leftFalse
	if err := g.lowerExpr(b.Right); err != nil {
		return err
	}
	rightTrue := g.inLabel
	g.cbl.AddInstr(rightTrue, rtl.Goto{Succ: leftTrue})
	g.inLabel = leftTrue
	return nil
}

func (g *generator) lowerIneq(b *ast.Binary) error {
	op := ineqCodes[b.Op]

	if err := g.lowerExpr(b.Left); err != nil {
		return err
	}
	left := g.result

	if err := g.lowerExpr(b.Right); err != nil {
		return err
	}
	right := g.result

	fl := g.labs.Fresh()
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Bbranch{Op: op, Arg1: left, Arg2: right, Succ: next, Fail: fl}
	})
	g.falseLabel = fl
	return nil
}

func (g *generator) lowerEq(b *ast.Binary) error {
	op := rtl.JE
	if b.Op == ast.Neq {
		op = rtl.JNE
	}

	if err := g.lowerExpr(b.Left); err != nil {
		return err
	}
	if isBool(b.Left) {
		g.intify()
	}
	left := g.result

	if err := g.lowerExpr(b.Right); err != nil {
		return err
	}
	if isBool(b.Right) {
		g.intify()
	}
	right := g.result

	fl := g.labs.Fresh()
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Bbranch{Op: op, Arg1: left, Arg2: right, Succ: next, Fail: fl}
	})
	g.falseLabel = fl
	return nil
}

func (g *generator) lowerCall(c *ast.Call) error {
	args := make([]rtl.Pseudo, len(c.Args))
	for i, a := range c.Args {
		if err := g.lowerExpr(a); err != nil {
			return err
		}
		if isBool(a) {
			g.intify()
		}
		args[i] = g.result
	}

	direct := len(args)
	if direct > 6 {
		direct = 6
	}
	for i := 0; i < direct; i++ {
		i := i
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.CopyPM{Src: args[i], Dst: rtl.ArgRegs[i], Succ: next}
		})
	}
	for i := len(args) - 1; i >= 6; i-- {
		i := i
		g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Push{Src: args[i], Succ: next} })
	}

	void := isVoidCall(c)
	if void {
		g.result = rtl.Discard
	} else {
		g.result = g.pseudos.Fresh()
		g.lastOff += 8
	}

	fn, nargs := c.Func, len(args)
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Call{Func: fn, NArgs: nargs, Succ: next} })

	if !void {
		res := g.result
		g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyMP{Src: rtl.RAX, Dst: res, Succ: next} })
	}
	return nil
}

func (g *generator) lowerAlloc(al *ast.Alloc) error {
	elemSize := int64(types.SizeOf(al.Elem))
	scale := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: elemSize, Dst: scale, Succ: next} })

	if err := g.lowerExpr(al.Size); err != nil {
		return err
	}
	length := g.result

	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Binop{Op: rtl.MUL, Src: scale, Dst: length, Succ: next}
	})
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: length, Dst: rtl.RDI, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Call{Func: "malloc", NArgs: 1, Succ: next} })

	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyMP{Src: rtl.RAX, Dst: ps, Succ: next} })
	g.result = ps
	return nil
}

func (g *generator) lowerIndex(ix *ast.Index) error {
	lstAddr, descending, err := g.indexBase(ix.List)
	if err != nil {
		return err
	}

	if err := g.lowerExpr(ix.Idx); err != nil {
		return err
	}
	idx := g.result

	scale := g.pseudos.Fresh()
	g.lastOff += 8
	elemSize := int64(elemSizeOf(ix.List))
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: elemSize, Dst: scale, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Binop{Op: rtl.MUL, Src: scale, Dst: idx, Succ: next} })
	op := rtl.ADD
	if descending {
		op = rtl.SUB
	}
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Binop{Op: op, Src: idx, Dst: lstAddr, Succ: next} })

	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Load{BaseReg: rtl.RIP, BasePseudo: lstAddr, Dst: ps, Succ: next}
	})
	g.result = ps
	return nil
}

// lowerDeref loads through a pointer VALUE (not its storage address): the
// pointer expression is evaluated normally, then its result is used as
// the base pseudo of a Load. This differs from ast_rtl's original
// acceptAddress-then-Load chain, which only produced the right answer
// when the pointer operand happened to be a bare variable.
func (g *generator) lowerDeref(d *ast.Deref) error {
	if err := g.lowerExpr(d.Ptr); err != nil {
		return err
	}
	ptr := g.result

	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Load{BaseReg: rtl.RBP, BasePseudo: ptr, Dst: ps, Succ: next}
	})
	g.result = ps
	return nil
}

func (g *generator) lowerAddr(a *ast.Addr) error {
	if err := g.lowerAddress(a.X); err != nil {
		return err
	}
	g.result = g.address
	return nil
}

func (g *generator) addressIdent(id *ast.Ident) error {
	name := id.Name

	if _, isGlobal := g.globals[name]; isGlobal {
		ps := g.pseudos.Fresh()
		g.lastOff += 8
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.CopyAP{Sym: name, BaseReg: rtl.RIP, BasePseudo: rtl.Discard, Dst: ps, Succ: next}
		})
		g.address = ps
		return nil
	}

	// off must land on the exact slot compiler/back assigns this variable's
	// own pseudo (NewSlot(id+1), i.e. -8*(id+1)(%rbp)) — not some
	// independently accumulated byte count — or &v's address and v's
	// ordinary reads/writes would disagree about where v actually lives.
	vp := g.getPseudo(name, types.SizeOf(id.M.Type))
	off := 8 * (vp.ID() + 1)

	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.CopyAP{Offset: -off, BaseReg: rtl.RBP, BasePseudo: rtl.Discard, Dst: ps, Succ: next}
	})
	g.address = ps
	return nil
}

// indexBase resolves the base to index into for listExpr, and which way
// elements grow from it. A fixed-size list variable's own storage follows
// SPEC_FULL.md's descending layout (element 0 at the highest address,
// matching the original and emitMemset's target exactly). A pointer from
// alloc is an ordinary malloc'd buffer: its VALUE is the base (not the
// address of the pointer variable's own slot — addressIdent would give the
// wrong memory entirely), and elements ascend from it like any heap array.
func (g *generator) indexBase(listExpr ast.Expr) (base rtl.Pseudo, descending bool, err error) {
	if _, ok := listExpr.GetMeta().Type.(types.PointerType); ok {
		if err := g.lowerExpr(listExpr); err != nil {
			return rtl.Pseudo{}, false, err
		}
		// A copy, since the caller adds the scaled index into the base in
		// place and the pointer variable itself must keep its value.
		return g.copyOfResult(), false, nil
	}
	if err := g.lowerAddress(listExpr); err != nil {
		return rtl.Pseudo{}, false, err
	}
	return g.address, true, nil
}

func (g *generator) addressIndex(ix *ast.Index) error {
	tmpaddr, descending, err := g.indexBase(ix.List)
	if err != nil {
		return err
	}

	if err := g.lowerExpr(ix.Idx); err != nil {
		return err
	}
	tmpidx := g.result

	scale := g.pseudos.Fresh()
	g.lastOff += 8
	elemSize := int64(elemSizeOf(ix.List))
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: elemSize, Dst: scale, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Binop{Op: rtl.MUL, Src: scale, Dst: tmpidx, Succ: next} })
	op := rtl.ADD
	if descending {
		op = rtl.SUB
	}
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Binop{Op: op, Src: tmpidx, Dst: tmpaddr, Succ: next} })

	ps := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.CopyAP{BaseReg: rtl.RIP, BasePseudo: tmpaddr, Dst: ps, Succ: next}
	})
	g.address = ps
	return nil
}

func (g *generator) addressDeref(d *ast.Deref) error {
	if err := g.lowerExpr(d.Ptr); err != nil {
		return err
	}
	g.address = g.result
	return nil
}

func isVoidCall(c *ast.Call) bool {
	_, ok := c.GetMeta().Type.(types.UnknownType)
	return ok
}

func elemSizeOf(listExpr ast.Expr) int {
	lt, ok := listExpr.GetMeta().Type.(types.ListType)
	if !ok {
		return 8
	}
	return types.SizeOf(lt.Elem)
}
