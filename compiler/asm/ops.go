package asm

import "fmt"

// The functions below are small constructors for the handful of AMD64
// mnemonics compiler/back emits, mirroring the static factory methods on
// the original Asm struct: each builds a templated Line rather than a
// concrete instruction, so the use/def/jump_dests vectors stay the single
// source of truth for operand identity.

func MovqImm(imm int64, dst Pseudo) Line {
	return Line{Template: fmt.Sprintf("\tmovq $%d, `d0", imm), Def: []Pseudo{dst}}
}

func MovabsqImm(imm int64, dst Pseudo) Line {
	return Line{Template: fmt.Sprintf("\tmovabsq $%d, `d0", imm), Def: []Pseudo{dst}}
}

func Movq(src, dst Pseudo) Line {
	return Line{Template: "\tmovq `s0, `d0", Use: []Pseudo{src}, Def: []Pseudo{dst}}
}

// MovqLoad and MovqStore build a movq between a register-indirect memory
// operand (rendered directly into the template, since the address itself
// is never an operand compiler/back needs to rewrite) and a pseudo.
func MovqLoad(memTemplate string, dst Pseudo) Line {
	return Line{Template: "\tmovq " + memTemplate + ", `d0", Def: []Pseudo{dst}}
}

func MovqStore(src Pseudo, memTemplate string) Line {
	return Line{Template: "\tmovq `s0, " + memTemplate, Use: []Pseudo{src}}
}

func Leaq(memTemplate string, use []Pseudo, dst Pseudo) Line {
	return Line{Template: "\tleaq " + memTemplate + ", `d0", Use: use, Def: []Pseudo{dst}}
}

func Binop(mnemonic string, src, dst Pseudo) Line {
	return Line{Template: "\t" + mnemonic + " `s0, `d0", Use: []Pseudo{src}, Def: []Pseudo{dst}}
}

func Unop(mnemonic string, arg Pseudo) Line {
	return Line{Template: "\t" + mnemonic + " `s0", Use: []Pseudo{arg}, Def: []Pseudo{arg}}
}

func Cqo() Line { return Line{Template: "\tcqo"} }

func Idivq(divisor Pseudo) Line {
	return Line{Template: "\tidivq `s0", Use: []Pseudo{divisor}}
}

func Imulq(factor Pseudo) Line {
	return Line{Template: "\timulq `s0", Use: []Pseudo{factor}}
}

func Cmpq(lhs, rhs Pseudo) Line {
	return Line{Template: "\tcmpq `s0, `s1", Use: []Pseudo{lhs, rhs}}
}

func CmpqImm(imm int64, rhs Pseudo) Line {
	return Line{Template: fmt.Sprintf("\tcmpq $%d, `s0", imm), Use: []Pseudo{rhs}}
}

func Jmp(dest Label) Line {
	return Line{Template: "\tjmp `j0", JumpDests: []Label{dest}}
}

func Jcc(mnemonic string, dest Label) Line {
	return Line{Template: "\t" + mnemonic + " `j0", JumpDests: []Label{dest}}
}

func Pushq(src Pseudo) Line {
	return Line{Template: "\tpushq `s0", Use: []Pseudo{src}}
}

func Popq(dst Pseudo) Line {
	return Line{Template: "\tpopq `d0", Def: []Pseudo{dst}}
}

func Callq(sym string) Line {
	return Line{Template: "\tcall " + sym}
}

func Ret() Line { return Line{Template: "\tret"} }
