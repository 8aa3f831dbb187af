// Package lower generates RTL from the typed AST compiler/check produces.
// It is a direct tree walk over statements and expressions threading four
// pieces of state through every visit — the label the next instruction
// should be installed at, the label a false boolean branch lands on, the
// pseudo holding the last-computed value, and (in a second traversal
// spirit) the pseudo holding an l-value's address — mirroring the
// generator/addressor split described in ast_rtl's RtlGen.
package lower

import (
	"tlog.app/go/errors"

	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/check"
	"github.com/bxlang/bxc/compiler/rtl"
	"github.com/bxlang/bxc/compiler/types"
)

// Program lowers every function in prog to RTL, in declaration order.
// Each function gets its own fresh label/pseudo allocators: RTL
// identifiers are unique within a Callable, not across the program.
func Program(prog *ast.Program) (*rtl.Program, error) {
	globals, err := Globals(prog)
	if err != nil {
		return nil, errors.Wrap(err, "globals")
	}

	out := &rtl.Program{Globals: globals}

	for _, fn := range prog.Funcs {
		g := newGenerator(prog, globals)
		cbl, err := g.lowerFunc(fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %s", fn.Name)
		}
		out.Callables = append(out.Callables, cbl)
	}

	return out, nil
}

type generator struct {
	prog    *ast.Program
	globals map[string]int32

	labs    rtl.LabelAllocator
	pseudos rtl.PseudoAllocator
	cbl     *rtl.Callable

	varTable  map[string]rtl.Pseudo
	gvarTable map[string]rtl.Pseudo
	lastOff   int

	inLabel    rtl.Label
	falseLabel rtl.Label
	result     rtl.Pseudo
	address    rtl.Pseudo
}

func newGenerator(prog *ast.Program, globals map[string]int32) *generator {
	return &generator{
		prog:      prog,
		globals:   globals,
		varTable:  map[string]rtl.Pseudo{},
		gvarTable: map[string]rtl.Pseudo{},
	}
}

// addSequential mints a fresh label, installs an instruction at the
// generator's current in-label built against that fresh label, then
// advances the in-label to it — the "next instruction lives here" thread
// that keeps the tree walk from ever needing an explicit CFG builder.
func (g *generator) addSequential(build func(next rtl.Label) rtl.Instr) {
	next := g.labs.Fresh()
	g.cbl.AddInstr(g.inLabel, build(next))
	g.inLabel = next
}

// getPseudo returns the pseudo bound to a variable name, minting one (and
// its Load-from-global bootstrap, for a global) on first reference.
func (g *generator) getPseudo(name string, size int) rtl.Pseudo {
	if _, isGlobal := g.globals[name]; isGlobal {
		if ps, ok := g.gvarTable[name]; ok {
			return ps
		}
		ps := g.pseudos.Fresh()
		g.lastOff += size
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.Load{Sym: name, BaseReg: rtl.RIP, BasePseudo: rtl.Discard, Dst: ps, Succ: next}
		})
		g.gvarTable[name] = ps
		return ps
	}

	if ps, ok := g.varTable[name]; ok {
		return ps
	}
	ps := g.pseudos.Fresh()
	g.varTable[name] = ps
	g.lastOff += size
	return ps
}

// intify forces a boolean result (expressed as in_label/false_label
// branch targets) into a concrete 0/1 pseudo.
func (g *generator) intify() {
	res := g.pseudos.Fresh()
	g.lastOff += 8
	next := g.labs.Fresh()
	g.cbl.AddInstr(g.inLabel, rtl.Move{Imm: 1, Dst: res, Succ: next})
	g.cbl.AddInstr(g.falseLabel, rtl.Move{Imm: 0, Dst: res, Succ: next})
	g.inLabel = next
	g.result = res
}

// copyOfResult snapshots the current result pseudo into a fresh one, so a
// later clobbering write (e.g. the destination of a binop) doesn't alias
// a value still needed by an enclosing expression.
func (g *generator) copyOfResult() rtl.Pseudo {
	fresh := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Copy{Src: g.result, Dst: fresh, Succ: next}
	})
	return fresh
}

func (g *generator) lowerFunc(fn *ast.Func) (*rtl.Callable, error) {
	g.cbl = rtl.NewCallable(fn.Name)

	for _, p := range fn.Params {
		g.cbl.Inputs = append(g.cbl.Inputs, g.getPseudo(p.Name, types.SizeOf(p.Type)))
	}

	if fn.Ret == nil {
		g.cbl.Output = rtl.Discard
	} else {
		g.cbl.Output = g.pseudos.Fresh()
		g.lastOff += 8
	}

	g.cbl.Enter = g.labs.Fresh()
	g.lastOff += 8
	g.cbl.Leave = g.labs.Fresh()
	g.lastOff += 8

	g.inLabel = g.cbl.Enter

	entryIn := g.inLabel
	newFrameLabel := g.labs.Fresh()
	g.lastOff += 8
	g.inLabel = newFrameLabel

	var savedLocs [len(rtl.CalleeSaved)]rtl.Pseudo
	for i, reg := range rtl.CalleeSaved {
		ps := g.pseudos.Fresh()
		g.lastOff += 8
		savedLocs[i] = ps
		reg := reg
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.CopyMP{Src: reg, Dst: ps, Succ: next}
		})
	}

	if err := g.emitParamBindings(fn); err != nil {
		return nil, err
	}

	if err := g.lowerBlock(fn.Body); err != nil {
		return nil, err
	}

	// A function whose body returns on every path (every fun, by
	// checkFunc's requirement, plus any proc that happens to) never falls
	// off the end of its body; wiring a fall-through Goto for it would
	// install an instruction at a label nothing ever jumps to. Only wire
	// the fall-through when the body can actually reach its own end, and
	// route it straight into Leave the same way an explicit return does,
	// so Leave is reachable from Enter and the epilogue below runs.
	if !check.ReturnsOnEveryPath(fn.Body) {
		if fn.Ret != nil {
			out := g.cbl.Output
			g.addSequential(func(next rtl.Label) rtl.Instr {
				return rtl.CopyPM{Src: out, Dst: rtl.RAX, Succ: next}
			})
		}
		g.cbl.AddInstr(g.inLabel, rtl.Goto{Succ: g.cbl.Leave})
	}

	g.inLabel = g.cbl.Leave

	for i, reg := range rtl.CalleeSaved {
		ps := savedLocs[i]
		reg := reg
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.CopyPM{Src: ps, Dst: reg, Succ: next}
		})
	}

	g.cbl.AddInstr(entryIn, rtl.NewFrame{Size: g.lastOff, Succ: newFrameLabel})

	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.DelFrame{Succ: next} })

	g.cbl.AddInstr(g.inLabel, rtl.Return{})

	g.cbl.Linearize()

	return g.cbl, nil
}

// emitParamBindings copies the System V AMD64 argument registers (and,
// past the sixth parameter, the caller's stack-passed words) into each
// parameter's home pseudo.
func (g *generator) emitParamBindings(fn *ast.Func) error {
	n := len(fn.Params)
	direct := n
	if direct > 6 {
		direct = 6
	}

	for i := 0; i < direct; i++ {
		i := i
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.CopyMP{Src: rtl.ArgRegs[i], Dst: g.cbl.Inputs[i], Succ: next}
		})
	}

	for i := 6; i < n; i++ {
		i := i
		g.addSequential(func(next rtl.Label) rtl.Instr {
			return rtl.LoadParam{Slot: i - 5, Dst: g.cbl.Inputs[i], Succ: next}
		})
	}

	return nil
}

func (g *generator) lowerBlock(b *ast.Block) error {
	for _, s := range b.Stmts {
		if err := g.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) lowerStmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Declare:
		return g.lowerDeclare(s)
	case *ast.Assign:
		return g.lowerAssign(s)
	case *ast.Eval:
		if err := g.lowerExpr(s.X); err != nil {
			return err
		}
		if isBool(s.X) {
			g.intify()
		}
		return nil
	case *ast.Print:
		return g.lowerPrint(s)
	case *ast.Return:
		return g.lowerReturn(s)
	case *ast.IfElse:
		return g.lowerIfElse(s)
	case *ast.While:
		return g.lowerWhile(s)
	case *ast.Block:
		return g.lowerBlock(s)
	default:
		return errors.New("lower: unhandled statement %T", s)
	}
}

func (g *generator) lowerDeclare(d *ast.Declare) error {
	pr := g.getPseudo(d.Var, types.SizeOf(d.Type))

	if lst, ok := d.Type.(types.ListType); ok {
		g.emitMemset(8*(pr.ID()+1), lst.Size())
	}

	if err := g.lowerExpr(d.Init); err != nil {
		return err
	}
	if isBool(d.Init) {
		g.intify()
	}

	res := g.result
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Copy{Src: res, Dst: pr, Succ: next}
	})
	return nil
}

// emitMemset zeroes a freshly declared list's backing storage via a call
// to the C runtime's memset, the way ast_rtl's addMemset does.
func (g *generator) emitMemset(offset, size int) {
	poff := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.CopyAP{Offset: -offset, BaseReg: rtl.RBP, BasePseudo: rtl.Discard, Dst: poff, Succ: next}
	})

	psize := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: int64(size), Dst: psize, Succ: next} })

	pzero := g.pseudos.Fresh()
	g.lastOff += 8
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Move{Imm: 0, Dst: pzero, Succ: next} })

	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: poff, Dst: rtl.RDI, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: pzero, Dst: rtl.RSI, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: psize, Dst: rtl.RDX, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Call{Func: "memset", NArgs: 3, Succ: next} })
}

func (g *generator) lowerAssign(a *ast.Assign) error {
	if err := g.lowerAddress(a.Lhs); err != nil {
		return err
	}
	addr := g.address

	if err := g.lowerExpr(a.Rhs); err != nil {
		return err
	}
	if isBool(a.Rhs) {
		g.intify()
	}

	res := g.result
	g.addSequential(func(next rtl.Label) rtl.Instr {
		return rtl.Store{Src: res, BaseReg: rtl.RBP, BasePseudo: addr, Succ: next}
	})
	return nil
}

func (g *generator) lowerPrint(p *ast.Print) error {
	if err := g.lowerExpr(p.Arg); err != nil {
		return err
	}
	if isBool(p.Arg) {
		g.intify()
	}

	fn := "bx_print_bool"
	if isInt64(p.Arg) {
		fn = "bx_print_int"
	}

	res := g.result
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: res, Dst: rtl.RDI, Succ: next} })
	g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Call{Func: fn, NArgs: 1, Succ: next} })
	return nil
}

func (g *generator) lowerReturn(r *ast.Return) error {
	if r.Value != nil {
		if err := g.lowerExpr(r.Value); err != nil {
			return err
		}
		if isBool(r.Value) {
			g.intify()
		}
		if g.cbl.Output != rtl.Discard {
			res := g.result
			out := g.cbl.Output
			g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.Copy{Src: res, Dst: out, Succ: next} })
			g.addSequential(func(next rtl.Label) rtl.Instr { return rtl.CopyPM{Src: out, Dst: rtl.RAX, Succ: next} })
		}
	}

	leave := g.cbl.Leave
	g.addSequential(func(next rtl.Label) rtl.Instr { _ = next; return rtl.Goto{Succ: leave} })
	return nil
}

func (g *generator) lowerIfElse(ie *ast.IfElse) error {
	if err := g.lowerExpr(ie.Cond); err != nil {
		return err
	}

	thenLabel, elseLabel := g.inLabel, g.falseLabel
	joinLabel := g.labs.Fresh()

	// A branch that returns on every path never falls off its own end: its
	// last statement already diverted control to Leave, leaving g.inLabel
	// pointing at a label nothing reaches. Wiring a Goto to joinLabel there
	// anyway would install it on an unreachable label and, since nothing
	// else ever installs joinLabel itself, leave joinLabel referenced but
	// undefined. Only branches that can still fall through get wired.
	g.inLabel = thenLabel
	if err := g.lowerBlock(ie.Then); err != nil {
		return err
	}
	if !check.ReturnsOnEveryPath(ie.Then) {
		g.cbl.AddInstr(g.inLabel, rtl.Goto{Succ: joinLabel})
	}

	g.inLabel = elseLabel
	elseReturns := false
	if ie.Else != nil {
		if err := g.lowerBlock(ie.Else); err != nil {
			return err
		}
		elseReturns = check.ReturnsOnEveryPath(ie.Else)
	}
	if !elseReturns {
		g.cbl.AddInstr(g.inLabel, rtl.Goto{Succ: joinLabel})
	}

	g.inLabel = joinLabel
	return nil
}

func (g *generator) lowerWhile(w *ast.While) error {
	enter := g.inLabel

	if err := g.lowerExpr(w.Cond); err != nil {
		return err
	}
	exit := g.falseLabel

	if err := g.lowerBlock(w.Body); err != nil {
		return err
	}
	// As in lowerIfElse: a body that returns on every path already diverted
	// to Leave and left inLabel dangling; looping it back to enter would
	// install the back-edge on a label nothing reaches.
	if !check.ReturnsOnEveryPath(w.Body) {
		g.cbl.AddInstr(g.inLabel, rtl.Goto{Succ: enter})
	}

	g.inLabel = exit
	return nil
}

func isBool(e ast.Expr) bool  { _, ok := e.GetMeta().Type.(types.BoolType); return ok }
func isInt64(e ast.Expr) bool { _, ok := e.GetMeta().Type.(types.Int64Type); return ok }
