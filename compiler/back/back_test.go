package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxlang/bxc/compiler/rtl"
)

// buildIdentity builds `proc main() { return }` directly in RTL: enter
// falls straight through to leave, which is a Return.
func buildIdentity(t *testing.T) *rtl.Callable {
	t.Helper()

	var labs rtl.LabelAllocator

	cbl := rtl.NewCallable("main")
	cbl.Enter = labs.Fresh()
	cbl.Leave = labs.Fresh()
	cbl.Output = rtl.Discard

	cbl.AddInstr(cbl.Enter, rtl.Goto{Succ: cbl.Leave})
	cbl.AddInstr(cbl.Leave, rtl.Return{})
	cbl.Linearize()

	return cbl
}

func TestCompileCallableSmoke(t *testing.T) {
	cbl := buildIdentity(t)
	require.NoError(t, rtl.Validate(cbl))

	c := New()
	lines, err := c.compileCallable(context.Background(), cbl)
	require.NoError(t, err)

	out := lines.Render()
	assert.Contains(t, out, ".globl main")
	assert.Contains(t, out, "main:")
	assert.Contains(t, out, "ret")
	// the Goto to Leave is elided: Enter's label is immediately followed
	// by Leave's jmp-free body, so no "jmp" should survive in output.
	assert.NotContains(t, out, "jmp")
}

func TestCompileProgramAddsData(t *testing.T) {
	cbl := buildIdentity(t)

	p := &rtl.Program{
		Callables: []*rtl.Callable{cbl},
		Globals:   map[string]int32{"counter": 0},
	}

	c := New()
	out, err := c.CompileProgram(context.Background(), p)
	require.NoError(t, err)

	rendered := out.Render()
	assert.Contains(t, rendered, ".section .data")
	assert.Contains(t, rendered, "counter:")
}

func TestCompileProgramRejectsInvalidCallable(t *testing.T) {
	cbl := rtl.NewCallable("broken")
	var labs rtl.LabelAllocator
	cbl.Enter = labs.Fresh()
	cbl.Leave = labs.Fresh()
	// Enter never scheduled/added: Validate must catch it before
	// translation runs.

	p := &rtl.Program{Callables: []*rtl.Callable{cbl}}

	c := New()
	_, err := c.CompileProgram(context.Background(), p)
	assert.Error(t, err)
}
