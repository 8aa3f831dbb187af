package rtl

import (
	"fmt"
	"sort"
	"strings"
)

var unopNames = map[UnopCode]string{NEG: "neg", NOT: "not"}

var binopNames = map[BinopCode]string{
	ADD: "add", SUB: "sub", MUL: "mul", DIV: "div", REM: "rem",
	SAL: "sal", SAR: "sar", AND: "and", OR: "or", XOR: "xor",
}

var ubranchNames = map[UbranchCode]string{JZ: "jz", JNZ: "jnz"}

var bbranchNames = map[BbranchCode]string{
	JE: "je", JL: "jl", JLE: "jle", JG: "jg", JGE: "jge",
	JNE: "jne", JNL: "jnl", JNLE: "jnle", JNG: "jng", JNGE: "jnge",
}

func (i Move) String() string {
	return fmt.Sprintf("move %d, %v  --> %v", i.Imm, i.Dst, i.Succ)
}

func (i Copy) String() string {
	return fmt.Sprintf("copy %v, %v  --> %v", i.Src, i.Dst, i.Succ)
}

func (i CopyMP) String() string {
	return fmt.Sprintf("copymp %%%s, %v  --> %v", i.Src, i.Dst, i.Succ)
}

func (i CopyPM) String() string {
	return fmt.Sprintf("copypm %v, %%%s  --> %v", i.Src, i.Dst, i.Succ)
}

func (i CopyAP) String() string {
	base := i.Sym
	if base == "" {
		base = fmt.Sprintf("%d", i.Offset)
	}
	return fmt.Sprintf("copyap %s(%%%s,%v), %v  --> %v", base, i.BaseReg, i.BasePseudo, i.Dst, i.Succ)
}

func (i Load) String() string {
	return fmt.Sprintf("load %s+%d(%%%s,%v), %v  --> %v", i.Sym, i.Offset, i.BaseReg, i.BasePseudo, i.Dst, i.Succ)
}

func (i Store) String() string {
	return fmt.Sprintf("store %v, %s+%d(%%%s,%v)  --> %v", i.Src, i.Sym, i.Offset, i.BaseReg, i.BasePseudo, i.Succ)
}

func (i Unop) String() string {
	return fmt.Sprintf("unop %s, %v  --> %v", unopNames[i.Op], i.Arg, i.Succ)
}

func (i Binop) String() string {
	return fmt.Sprintf("binop %s, %v, %v  --> %v", binopNames[i.Op], i.Src, i.Dst, i.Succ)
}

func (i Ubranch) String() string {
	return fmt.Sprintf("ubranch %s, %v  --> %v, %v", ubranchNames[i.Op], i.Arg, i.Taken, i.Fail)
}

func (i Bbranch) String() string {
	return fmt.Sprintf("bbranch %s, %v, %v  --> %v, %v", bbranchNames[i.Op], i.Arg1, i.Arg2, i.Succ, i.Fail)
}

func (i Goto) String() string { return fmt.Sprintf("goto  --> %v", i.Succ) }

func (i Call) String() string {
	return fmt.Sprintf("call %s/%d  --> %v", i.Func, i.NArgs, i.Succ)
}

func (Return) String() string { return "return" }

func (i NewFrame) String() string {
	return fmt.Sprintf("newframe %d  --> %v", i.Size, i.Succ)
}

func (i DelFrame) String() string { return fmt.Sprintf("delframe  --> %v", i.Succ) }

func (i LoadParam) String() string {
	return fmt.Sprintf("loadparam %d, %v  --> %v", i.Slot, i.Dst, i.Succ)
}

func (i Push) String() string { return fmt.Sprintf("push %v  --> %v", i.Src, i.Succ) }
func (i Pop) String() string  { return fmt.Sprintf("pop %v  --> %v", i.Dst, i.Succ) }

// Print renders a Callable in the "<name>.rtl" textual form: name, inputs,
// output, enter/leave, then one "label: instruction" line per scheduled
// label, in schedule order.
func Print(c *Callable) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s(", c.Name)
	for i, in := range c.Inputs {
		if i != 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", in)
	}
	fmt.Fprintf(&b, ") -> %v\n", c.Output)
	fmt.Fprintf(&b, "enter %v, leave %v\n", c.Enter, c.Leave)

	for _, lab := range c.Schedule {
		instr, ok := c.At(lab)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%v: %v\n", lab, instr)
	}

	return b.String()
}

// PrintProgram renders every callable followed by the global table, the
// globals sorted by name.
func PrintProgram(p *Program) string {
	var b strings.Builder

	for i, c := range p.Callables {
		if i != 0 {
			b.WriteString("\n")
		}
		b.WriteString(Print(c))
	}

	if len(p.Globals) > 0 {
		b.WriteString("\nglobals:\n")
		names := make([]string, 0, len(p.Globals))
		for name := range p.Globals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = %d\n", name, p.Globals[name])
		}
	}

	return b.String()
}
