// Package rtl defines the Register Transfer Language: the label-addressed,
// pseudo-register control-flow-graph IR that sits between the typed source
// AST and abstract AMD64 assembly. See compiler/lower for the AST-to-RTL
// generator and compiler/back for the RTL-to-assembly translator.
package rtl

import (
	"fmt"

	"github.com/bxlang/bxc/internal/diag"
)

type (
	// Label is an opaque program-point identity. Equality and hashing are
	// by identity; labels carry no structure of their own.
	Label struct{ id int }

	// Pseudo is an opaque virtual-register identity.
	Pseudo struct{ id int }

	// MachineReg names one of the closed set of AMD64 physical registers
	// RTL instructions may reference directly, threading the calling
	// convention through the IR before register allocation exists.
	MachineReg string
)

// Discard is the sentinel pseudo meaning "no pseudo here" — used for a
// procedure's output register, for a void call's result, and as the
// BasePseudo of a Load/Store/CopyAP that addresses memory through Sym or
// BaseReg alone.
var Discard = Pseudo{id: -1}

// ID exposes the underlying integer handle for formatting local assembly
// labels (compiler/back) and tests; callers must not rely on any ordering
// beyond "unique per compilation unit".
func (l Label) ID() int { return l.id }

// ID exposes the underlying integer handle; see Label.ID.
func (p Pseudo) ID() int { return p.id }

func (l Label) String() string   { return fmt.Sprintf("L%d", l.id) }
func (p Pseudo) String() string {
	if p == Discard {
		return "_"
	}
	return fmt.Sprintf("%%%d", p.id)
}

// LabelAllocator and PseudoAllocator are per-compilation-unit counters.
// spec.md §5 calls out the teacher's global mutable counters as a design
// smell; here each Callable lowering owns one of each so output stays
// deterministic across repeated compilations and concurrent units don't
// collide.
type (
	LabelAllocator struct{ next int }
	PseudoAllocator struct{ next int }
)

func (a *LabelAllocator) Fresh() Label {
	l := Label{id: a.next}
	a.next++
	return l
}

func (a *PseudoAllocator) Fresh() Pseudo {
	p := Pseudo{id: a.next}
	a.next++
	return p
}

// Count is the number of pseudos this allocator has handed out, i.e. how
// many machine words of storage a callable's pseudos need in the worst
// case (before any register allocation).
func (a *PseudoAllocator) Count() int { return a.next }

const (
	RAX MachineReg = "rax"
	RBX MachineReg = "rbx"
	RCX MachineReg = "rcx"
	RDX MachineReg = "rdx"
	RBP MachineReg = "rbp"
	RSI MachineReg = "rsi"
	RDI MachineReg = "rdi"
	RSP MachineReg = "rsp"
	R8  MachineReg = "r8"
	R9  MachineReg = "r9"
	R10 MachineReg = "r10"
	R11 MachineReg = "r11"
	R12 MachineReg = "r12"
	R13 MachineReg = "r13"
	R14 MachineReg = "r14"
	R15 MachineReg = "r15"
	RIP MachineReg = "rip"
	RFLAGS MachineReg = "rflags"
)

// ArgRegs is the System V AMD64 order in which the first six integer or
// pointer arguments are passed.
var ArgRegs = [6]MachineReg{RDI, RSI, RDX, RCX, R8, R9}

// CalleeSaved is the set of registers a callable must preserve across its
// body, in save/restore order.
var CalleeSaved = [6]MachineReg{RBX, RBP, R12, R13, R14, R15}

type (
	UnopCode    int
	BinopCode   int
	UbranchCode int
	BbranchCode int
)

const (
	NEG UnopCode = iota
	NOT
)

const (
	ADD BinopCode = iota
	SUB
	MUL
	DIV
	REM
	SAL
	SAR
	AND
	OR
	XOR
)

const (
	JZ UbranchCode = iota
	JNZ
)

const (
	JE BbranchCode = iota
	JL
	JLE
	JG
	JGE
	JNE
	JNL
	JNLE
	JNG
	JNGE
)

// Instr is any RTL instruction. Every variant carries zero, one or two
// successor labels, forming the CFG's edge set; Successors reports them.
type Instr interface {
	Successors() []Label
	String() string
}

type (
	// Move writes an immediate into dst.
	Move struct {
		Imm  int64
		Dst  Pseudo
		Succ Label
	}

	// Copy moves one pseudo's value into another.
	Copy struct {
		Src, Dst Pseudo
		Succ     Label
	}

	// CopyMP reads a machine register into a pseudo.
	CopyMP struct {
		Src  MachineReg
		Dst  Pseudo
		Succ Label
	}

	// CopyPM writes a pseudo into a machine register.
	CopyPM struct {
		Src  Pseudo
		Dst  MachineReg
		Succ Label
	}

	// CopyAP computes an effective address into dst: Sym(%BaseReg) when
	// Sym is non-empty (a global), Offset(%BaseReg) when Sym is empty and
	// BasePseudo is Discard (a stack slot), or Offset plus BasePseudo's
	// runtime value when BasePseudo is bound (a list-element address;
	// BaseReg is then vestigial).
	CopyAP struct {
		Sym        string
		Offset     int
		BaseReg    MachineReg
		BasePseudo Pseudo
		Dst        Pseudo
		Succ       Label
	}

	// Load reads a memory operand into Dst, using the same three-way
	// addressing CopyAP computes: Sym(%BaseReg) when Sym is non-empty,
	// Offset(%BaseReg) when Sym is empty and BasePseudo is Discard, or a
	// dereference through BasePseudo's runtime value when BasePseudo is
	// bound (BaseReg is then vestigial).
	Load struct {
		Sym        string
		Offset     int
		BaseReg    MachineReg
		BasePseudo Pseudo
		Dst        Pseudo
		Succ       Label
	}

	// Store writes Src to the memory operand addressed the same way Load
	// reads one.
	Store struct {
		Src        Pseudo
		Sym        string
		Offset     int
		BaseReg    MachineReg
		BasePseudo Pseudo
		Succ       Label
	}

	Unop struct {
		Op   UnopCode
		Arg  Pseudo
		Succ Label
	}

	// Binop computes dst <- dst op src.
	Binop struct {
		Op       BinopCode
		Src, Dst Pseudo
		Succ     Label
	}

	// Ubranch compares Arg to zero, branching to Taken or falling through
	// to Fail.
	Ubranch struct {
		Op    UbranchCode
		Arg   Pseudo
		Taken Label
		Fail  Label
	}

	// Bbranch compares Arg1 with Arg2, branching to Succ ("taken") or
	// falling through to Fail ("not taken").
	Bbranch struct {
		Op         BbranchCode
		Arg1, Arg2 Pseudo
		Succ, Fail Label
	}

	Goto struct {
		Succ Label
	}

	// Call invokes Func; NArgs arguments have already been placed in
	// argument registers/stack by preceding CopyPM/Push instructions.
	Call struct {
		Func  string
		NArgs int
		Succ  Label
	}

	// Return is the callable's terminal instruction; it carries no value
	// — the return value, if any, was already copied to %rax by a
	// preceding CopyPM.
	Return struct{}

	// NewFrame is the prologue marker reserving Size bytes of pseudo
	// storage on the stack.
	NewFrame struct {
		Size int
		Succ Label
	}

	// DelFrame is an epilogue marker. The AMD64 translator performs the
	// actual stack teardown itself around the function body, so DelFrame
	// compiles to no assembly lines; see compiler/back.
	DelFrame struct {
		Succ Label
	}

	// LoadParam reads the Slot-th stack-passed parameter (7th formal and
	// beyond) into Dst.
	LoadParam struct {
		Slot int
		Dst  Pseudo
		Succ Label
	}

	Push struct {
		Src  Pseudo
		Succ Label
	}

	Pop struct {
		Dst  Pseudo
		Succ Label
	}
)

func (i Move) Successors() []Label      { return []Label{i.Succ} }
func (i Copy) Successors() []Label      { return []Label{i.Succ} }
func (i CopyMP) Successors() []Label    { return []Label{i.Succ} }
func (i CopyPM) Successors() []Label    { return []Label{i.Succ} }
func (i CopyAP) Successors() []Label    { return []Label{i.Succ} }
func (i Load) Successors() []Label      { return []Label{i.Succ} }
func (i Store) Successors() []Label     { return []Label{i.Succ} }
func (i Unop) Successors() []Label      { return []Label{i.Succ} }
func (i Binop) Successors() []Label     { return []Label{i.Succ} }
func (i Ubranch) Successors() []Label   { return []Label{i.Taken, i.Fail} }
func (i Bbranch) Successors() []Label   { return []Label{i.Succ, i.Fail} }
func (i Goto) Successors() []Label      { return []Label{i.Succ} }
func (i Call) Successors() []Label      { return []Label{i.Succ} }
func (i Return) Successors() []Label    { return nil }
func (i NewFrame) Successors() []Label  { return []Label{i.Succ} }
func (i DelFrame) Successors() []Label  { return []Label{i.Succ} }
func (i LoadParam) Successors() []Label { return []Label{i.Succ} }
func (i Push) Successors() []Label      { return []Label{i.Succ} }
func (i Pop) Successors() []Label       { return []Label{i.Succ} }

// Callable bundles a procedure/function's prologue, body and the
// linearization schedule the translator consumes.
type Callable struct {
	Name   string
	Enter  Label
	Leave  Label
	Inputs []Pseudo
	Output Pseudo // Discard for a procedure / void function

	body     map[Label]Instr
	Schedule []Label
}

func NewCallable(name string) *Callable {
	return &Callable{
		Name: name,
		body: map[Label]Instr{},
	}
}

// AddInstr installs instr at lab. Label reuse is a bug in the lowerer,
// not a user-facing error (spec.md §7): it panics the way the original's
// add_instr throws std::runtime_error. Labels are installed out of their
// eventual execution order — the lowerer revisits an early label (e.g.
// Enter, which gets its NewFrame only after the whole body has been
// walked) — so AddInstr does not itself build the schedule; call
// Linearize once the callable is complete.
func (c *Callable) AddInstr(lab Label, instr Instr) {
	if _, ok := c.body[lab]; ok {
		diag.Bug("rtl: repeated in-label %v installing %v", lab, instr)
	}
	c.body[lab] = instr
}

func (c *Callable) At(lab Label) (Instr, bool) {
	i, ok := c.body[lab]
	return i, ok
}

func (c *Callable) Len() int { return len(c.body) }

// Linearize computes Schedule via a depth-first walk of the CFG starting
// at Enter, following each instruction's Successors in order. This is
// the "decide a text order for a label graph" step rtl_asm.cpp's
// InstrCompiler does as part of translation; here it is a standalone
// pass so compiler/back can assume Schedule is already a valid
// linearization and rtl.Validate can check it independently.
func (c *Callable) Linearize() {
	visited := map[Label]bool{}
	var order []Label

	var visit func(Label)
	visit = func(lab Label) {
		if visited[lab] {
			return
		}
		instr, ok := c.body[lab]
		if !ok {
			return
		}
		visited[lab] = true
		order = append(order, lab)
		for _, succ := range instr.Successors() {
			visit(succ)
		}
	}

	visit(c.Enter)
	c.Schedule = order
}

// Program is an ordered sequence of callables plus the global-variable
// initializer table compiler/lower's global layout pass produces.
type Program struct {
	Callables []*Callable
	Globals   map[string]int32 // name -> 32-bit initializer (bool as 0/1)
}
