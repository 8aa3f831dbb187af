// Package back translates RTL into abstract AMD64 assembly: one
// compiler/asm.Line per RTL instruction (occasionally a short burst of
// them for an instruction with no single-mnemonic AMD64 form), threading
// an RTL pseudo -> assembly pseudo map that places every pseudo in its
// own stack slot. Register allocation proper is out of scope (spec.md's
// Non-goals): this is deliberately "spill everything", the way a first
// working backend looks before a coloring pass exists.
package back

import (
	"context"
	"fmt"
	"sort"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/bxlang/bxc/compiler/asm"
	"github.com/bxlang/bxc/compiler/rtl"
)

type Compiler struct{}

func New() *Compiler { return &Compiler{} }

// CompileProgram translates every callable in p, in order, into one flat
// asm.Program. It validates each callable first (rtl.Validate) since a
// structurally broken CFG is a lowering bug, not a translation-time
// condition worth recovering from.
func (c *Compiler) CompileProgram(ctx context.Context, p *rtl.Program) (asm.Program, error) {
	var out asm.Program

	for _, cbl := range p.Callables {
		if err := rtl.Validate(cbl); err != nil {
			return nil, errors.Wrap(err, "validate %v", cbl.Name)
		}

		tlog.Printw("compile callable", "name", cbl.Name, "instrs", cbl.Len())

		lines, err := c.compileCallable(ctx, cbl)
		if err != nil {
			return nil, errors.Wrap(err, "callable %v", cbl.Name)
		}

		out = append(out, lines...)
	}

	out = append(out, globalsSection(p.Globals)...)

	return out, nil
}

// translator holds the per-callable state: the RTL pseudo -> assembly
// pseudo map (one stack slot per RTL pseudo, assigned by the pseudo's own
// id so compiler/lower's variable-address arithmetic and this slot
// assignment agree without a second pass) and the emitted line buffer.
type translator struct {
	name  string
	exit  asm.Label
	slots map[rtl.Pseudo]asm.Pseudo
	lines asm.Program
}

func (c *Compiler) compileCallable(ctx context.Context, cbl *rtl.Callable) (asm.Program, error) {
	t := &translator{
		name:  cbl.Name,
		exit:  asm.Label(".L" + cbl.Name + ".exit"),
		slots: map[rtl.Pseudo]asm.Pseudo{},
	}

	for _, lab := range cbl.Schedule {
		instr, ok := cbl.At(lab)
		if !ok {
			return nil, errors.New("back: %v scheduled but has no instruction", lab)
		}

		t.setLabel(t.label(lab))

		if err := t.emit(instr); err != nil {
			return nil, errors.Wrap(err, "%v: %v", lab, instr)
		}
	}

	nslots := len(t.slots)

	var out asm.Program
	out = append(out,
		asm.Directive(".globl "+cbl.Name),
		asm.Directive(".section .text"),
		asm.SetLabel(asm.Label(cbl.Name)),
	)

	if nslots > 0 {
		out = append(out,
			asm.Pushq(asm.NewReg("rbp")),
			asm.Movq(asm.NewReg("rsp"), asm.NewReg("rbp")),
			lineSubqImm(int64(8*nslots), "rsp"),
		)
	}

	out = append(out, t.lines...)
	out = elideJumpTo(out, t.exit)
	out = append(out, asm.SetLabel(t.exit))
	if nslots > 0 {
		out = append(out,
			asm.Movq(asm.NewReg("rbp"), asm.NewReg("rsp")),
			asm.Popq(asm.NewReg("rbp")),
		)
	}
	out = append(out, asm.Ret())

	return out, nil
}

// pseudo maps an RTL pseudo to its assembly-level stack slot, minting one
// the first time it's seen. Slots are keyed by the RTL pseudo's own id;
// compiler/lower's addressIdent computes -8*(id+1) for a local's &v using
// that same formula, so it always lands on the slot its ordinary reads and
// writes use — see DESIGN.md's note on `&v` landing on the wrong slot.
func (t *translator) pseudo(p rtl.Pseudo) asm.Pseudo {
	if ap, ok := t.slots[p]; ok {
		return ap
	}
	ap := asm.NewSlot(p.ID() + 1)
	t.slots[p] = ap
	return ap
}

func (t *translator) label(l rtl.Label) asm.Label {
	return asm.Label(fmt.Sprintf(".L%s.%d", t.name, l.ID()))
}

func (t *translator) append(lines ...asm.Line) {
	t.lines = append(t.lines, lines...)
}

// setLabel appends a label definition, eliding an immediately preceding
// unconditional jump to that same label (spec.md §4.2's jump-elision
// rule: `jmp L; L:` compiles to just `L:`).
func (t *translator) setLabel(l asm.Label) {
	t.lines = elideJumpTo(t.lines, l)
	t.append(asm.SetLabel(l))
}

// elideJumpTo drops a trailing unconditional jump to l, if present.
func elideJumpTo(lines asm.Program, l asm.Label) asm.Program {
	n := len(lines)
	if n == 0 {
		return lines
	}
	last := lines[n-1]
	if len(last.JumpDests) == 1 && last.Template == "\tjmp `j0" && last.JumpDests[0] == l {
		return lines[:n-1]
	}
	return lines
}

func lineSubqImm(imm int64, reg string) asm.Line {
	return asm.Line{Template: fmt.Sprintf("\tsubq $%d, %%%s", imm, reg)}
}

var rax = asm.NewReg("rax")
var rcx = asm.NewReg("rcx")
var rdx = asm.NewReg("rdx")

func (t *translator) emit(instr rtl.Instr) error {
	switch i := instr.(type) {
	case rtl.Move:
		if i.Imm < -(1<<31) || i.Imm >= (1<<31) {
			t.append(asm.MovabsqImm(i.Imm, t.pseudo(i.Dst)))
		} else {
			t.append(asm.MovqImm(i.Imm, t.pseudo(i.Dst)))
		}
		t.append(asm.Jmp(t.label(i.Succ)))

	case rtl.Copy:
		t.append(
			asm.Movq(t.pseudo(i.Src), rax),
			asm.Movq(rax, t.pseudo(i.Dst)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.CopyMP:
		t.append(
			asm.Movq(asm.NewReg(string(i.Src)), t.pseudo(i.Dst)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.CopyPM:
		t.append(
			asm.Movq(t.pseudo(i.Src), asm.NewReg(string(i.Dst))),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.CopyAP:
		t.emitCopyAP(i)

	case rtl.Load:
		t.emitLoad(i)

	case rtl.Store:
		t.emitStore(i)

	case rtl.Unop:
		t.append(
			asm.Unop(unopMnemonic(i.Op), t.pseudo(i.Arg)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.Binop:
		t.emitBinop(i)

	case rtl.Ubranch:
		t.append(asm.CmpqImm(0, t.pseudo(i.Arg)))
		t.append(asm.Jcc(ubranchMnemonic(i.Op), t.label(i.Taken)))
		t.append(asm.Jmp(t.label(i.Fail)))

	case rtl.Bbranch:
		t.append(
			asm.Movq(t.pseudo(i.Arg1), rcx),
			asm.Movq(t.pseudo(i.Arg2), rax),
			asm.Cmpq(rax, rcx),
			asm.Jcc(bbranchNegatedMnemonic(i.Op), t.label(i.Fail)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.Goto:
		t.append(asm.Jmp(t.label(i.Succ)))

	case rtl.Call:
		t.append(
			asm.Callq(i.Func),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.Return:
		t.append(asm.Jmp(t.exit))

	case rtl.NewFrame:
		// The translator's own prologue already reserves one stack slot
		// per pseudo; NewFrame is informational only.
		t.append(asm.Jmp(t.label(i.Succ)))

	case rtl.DelFrame:
		t.append(asm.Jmp(t.label(i.Succ)))

	case rtl.LoadParam:
		off := 16 + 8*(i.Slot-1)
		t.append(
			asm.MovqLoad(fmt.Sprintf("%d(%%rbp)", off), t.pseudo(i.Dst)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.Push:
		t.append(
			asm.Pushq(t.pseudo(i.Src)),
			asm.Jmp(t.label(i.Succ)),
		)

	case rtl.Pop:
		t.append(
			asm.Popq(t.pseudo(i.Dst)),
			asm.Jmp(t.label(i.Succ)),
		)

	default:
		return errors.New("back: unhandled rtl instruction %T", instr)
	}

	return nil
}

// emitCopyAP computes an effective address into Dst: sym(%rip) for a
// global, off(%rbp) for a local's own slot, or a list element's address
// when BasePseudo is bound — see SPEC_FULL.md's resolution of the
// original's three-way CopyAP ambiguity. A bound BasePseudo holds an
// already-computed address in its stack slot, not a machine register, so
// it has to be loaded into %rax first, the same two-step shape emitLoad
// and emitStore use for their register-indirect case.
func (t *translator) emitCopyAP(i rtl.CopyAP) {
	if i.BasePseudo == rtl.Discard {
		mem := memOperand(i.Sym, i.Offset, i.BaseReg)
		t.append(asm.Leaq(mem, nil, t.pseudo(i.Dst)))
	} else {
		t.append(
			asm.Movq(t.pseudo(i.BasePseudo), rax),
			asm.Leaq(fmt.Sprintf("%d(%%rax)", i.Offset), nil, t.pseudo(i.Dst)),
		)
	}
	t.append(asm.Jmp(t.label(i.Succ)))
}

func (t *translator) emitLoad(i rtl.Load) {
	if i.BasePseudo == rtl.Discard {
		t.append(
			asm.MovqLoad(memOperand(i.Sym, i.Offset, i.BaseReg), t.pseudo(i.Dst)),
			asm.Jmp(t.label(i.Succ)),
		)
		return
	}

	t.append(
		asm.Movq(t.pseudo(i.BasePseudo), rax),
		asm.MovqLoad(fmt.Sprintf("%d(%%rax)", i.Offset), t.pseudo(i.Dst)),
		asm.Jmp(t.label(i.Succ)),
	)
}

func (t *translator) emitStore(i rtl.Store) {
	if i.BasePseudo == rtl.Discard {
		t.append(
			asm.MovqStore(t.pseudo(i.Src), memOperand(i.Sym, i.Offset, i.BaseReg)),
			asm.Jmp(t.label(i.Succ)),
		)
		return
	}

	t.append(
		asm.Movq(t.pseudo(i.BasePseudo), rax),
		asm.MovqStore(t.pseudo(i.Src), fmt.Sprintf("%d(%%rax)", i.Offset)),
		asm.Jmp(t.label(i.Succ)),
	)
}

func (t *translator) emitBinop(i rtl.Binop) {
	dst := t.pseudo(i.Dst)
	src := t.pseudo(i.Src)

	switch i.Op {
	case rtl.ADD:
		t.append(asm.Movq(dst, rax), asm.Binop("addq", src, rax), asm.Movq(rax, dst))
	case rtl.SUB:
		t.append(asm.Movq(dst, rax), asm.Binop("subq", src, rax), asm.Movq(rax, dst))
	case rtl.AND:
		t.append(asm.Movq(dst, rax), asm.Binop("andq", src, rax), asm.Movq(rax, dst))
	case rtl.OR:
		t.append(asm.Movq(dst, rax), asm.Binop("orq", src, rax), asm.Movq(rax, dst))
	case rtl.XOR:
		t.append(asm.Movq(dst, rax), asm.Binop("xorq", src, rax), asm.Movq(rax, dst))
	case rtl.MUL:
		t.append(asm.Movq(dst, rax), asm.Imulq(src), asm.Movq(rax, dst))
	case rtl.DIV:
		t.append(asm.Movq(dst, rax), asm.Cqo(), asm.Idivq(src), asm.Movq(rax, dst))
	case rtl.REM:
		t.append(asm.Movq(dst, rax), asm.Cqo(), asm.Idivq(src), asm.Movq(rdx, dst))
	case rtl.SAL:
		t.append(asm.Movq(src, rcx), asm.Binop("salq", asm.NewReg("cl"), dst))
	case rtl.SAR:
		t.append(asm.Movq(src, rcx), asm.Binop("sarq", asm.NewReg("cl"), dst))
	}

	t.append(asm.Jmp(t.label(i.Succ)))
}

func memOperand(sym string, offset int, base rtl.MachineReg) string {
	if sym != "" {
		return fmt.Sprintf("%s(%%%s)", sym, base)
	}
	return fmt.Sprintf("%d(%%%s)", offset, base)
}

func unopMnemonic(op rtl.UnopCode) string {
	switch op {
	case rtl.NEG:
		return "negq"
	case rtl.NOT:
		return "notq"
	default:
		panic("back: unknown unop")
	}
}

func ubranchMnemonic(op rtl.UbranchCode) string {
	switch op {
	case rtl.JZ:
		return "je"
	case rtl.JNZ:
		return "jne"
	default:
		panic("back: unknown ubranch")
	}
}

// bbranchNegatedMnemonic returns the jump that should fire when the
// comparison does NOT hold, since Bbranch falls through to Succ and only
// jumps away on Fail.
func bbranchNegatedMnemonic(op rtl.BbranchCode) string {
	switch op {
	case rtl.JE:
		return "jne"
	case rtl.JNE:
		return "je"
	case rtl.JL, rtl.JNGE:
		return "jge"
	case rtl.JLE, rtl.JNG:
		return "jg"
	case rtl.JG, rtl.JNLE:
		return "jle"
	case rtl.JGE, rtl.JNL:
		return "jl"
	default:
		panic("back: unknown bbranch")
	}
}

// globalsSection emits the .data layout for compiler/lower's global
// variable table: one quadword slot per name, initialized.
func globalsSection(globals map[string]int32) asm.Program {
	if len(globals) == 0 {
		return nil
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	var out asm.Program
	out = append(out, asm.Directive(".section .data"))
	for _, name := range names {
		out = append(out,
			asm.SetLabel(asm.Label(name)),
			asm.Line{Template: fmt.Sprintf("\t.quad %d", globals[name])},
		)
	}
	return out
}
