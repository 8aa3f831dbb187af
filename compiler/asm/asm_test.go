package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPseudoStringFormsMatchBindingKind(t *testing.T) {
	assert.Equal(t, "%rax", NewReg("rax").String())
	assert.Equal(t, "-16(%rbp)", NewSlot(2).String())
	assert.Equal(t, "<unbound %7>", NewUnbound(7).String())
}

func TestLineRenderSubstitutesUseDefJumpPlaceholders(t *testing.T) {
	l := Binop("addq", NewReg("rax"), NewSlot(1))
	assert.Equal(t, "\taddq %rax, -8(%rbp)", l.Render())

	j := Jmp(Label(".Lmain.3"))
	assert.Equal(t, "\tjmp .Lmain.3", j.Render())

	imm := MovabsqImm(-9223372036854775808, NewReg("rax"))
	assert.Equal(t, "\tmovabsq $-9223372036854775808, %rax", imm.Render())
}

func TestLineRenderKeepsLiteralBacktick(t *testing.T) {
	l := Line{Template: "\t# literal `` backtick"}
	assert.Equal(t, "\t# literal ` backtick", l.Render())
}

func TestProgramRenderJoinsLinesWithNewlines(t *testing.T) {
	p := Program{Directive(".text"), SetLabel(Label("main")), Ret()}
	out := p.Render()
	assert.Contains(t, out, ".text")
	assert.Contains(t, out, "main:")
	assert.Contains(t, out, "ret")
}

func TestOpsConstructorsSetUseAndDef(t *testing.T) {
	src, dst := NewReg("rbx"), NewSlot(3)
	l := Movq(src, dst)
	assert.Equal(t, []Pseudo{src}, l.Use)
	assert.Equal(t, []Pseudo{dst}, l.Def)

	u := Unop("negq", NewReg("rcx"))
	assert.Equal(t, []Pseudo{NewReg("rcx")}, u.Use)
	assert.Equal(t, []Pseudo{NewReg("rcx")}, u.Def)
}
