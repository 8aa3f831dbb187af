package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLinear builds enter -> move -> return, the smallest well-formed
// Callable, and returns it alongside its three labels for assertions.
func buildLinear() (*Callable, Label, Label, Label) {
	c := NewCallable("f")
	var labs LabelAllocator
	var pseudos PseudoAllocator

	c.Enter = labs.Fresh()
	mid := labs.Fresh()
	c.Leave = labs.Fresh()

	dst := pseudos.Fresh()
	c.AddInstr(c.Enter, Move{Imm: 1, Dst: dst, Succ: mid})
	c.AddInstr(mid, Goto{Succ: c.Leave})
	c.AddInstr(c.Leave, Return{})

	return c, c.Enter, mid, c.Leave
}

func TestLinearizeFollowsSuccessorsFromEnter(t *testing.T) {
	c, enter, mid, leave := buildLinear()
	c.Linearize()
	assert.Equal(t, []Label{enter, mid, leave}, c.Schedule)
}

func TestLinearizeSkipsUnreachableLabels(t *testing.T) {
	c, enter, mid, leave := buildLinear()
	orphanAlloc := LabelAllocator{next: 99}
	orphan := orphanAlloc.Fresh()
	c.AddInstr(orphan, Return{})

	c.Linearize()
	assert.Equal(t, []Label{enter, mid, leave}, c.Schedule)
}

func TestValidatePassesOnWellFormedCallable(t *testing.T) {
	c, _, _, _ := buildLinear()
	c.Linearize()
	assert.NoError(t, Validate(c))
}

func TestValidateCatchesLeaveNotInBody(t *testing.T) {
	c, _, _, _ := buildLinear()
	c.Linearize()
	leaveAlloc := LabelAllocator{next: 12345}
	c.Leave = leaveAlloc.Fresh()
	assert.Error(t, Validate(c))
}

func TestValidateCatchesUndefinedSuccessor(t *testing.T) {
	c := NewCallable("g")
	var labs LabelAllocator
	c.Enter = labs.Fresh()
	c.Leave = labs.Fresh()

	danglingAlloc := LabelAllocator{next: 777}
	dangling := danglingAlloc.Fresh()
	c.AddInstr(c.Enter, Goto{Succ: dangling})
	c.AddInstr(c.Leave, Return{})
	c.Schedule = []Label{c.Enter, c.Leave}

	err := Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined successor")
}

func TestValidateCatchesGotoCycleNeverReachingReturn(t *testing.T) {
	c := NewCallable("h")
	var labs LabelAllocator
	c.Enter = labs.Fresh()
	loopA := labs.Fresh()
	loopB := labs.Fresh()
	c.Leave = loopA

	c.AddInstr(c.Enter, Goto{Succ: loopA})
	c.AddInstr(loopA, Goto{Succ: loopB})
	c.AddInstr(loopB, Goto{Succ: loopA})
	c.Schedule = []Label{c.Enter, loopA, loopB}

	err := Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never reaches Return")
}

func TestAddInstrPanicsOnRepeatedLabel(t *testing.T) {
	c := NewCallable("dup")
	var labs LabelAllocator
	lab := labs.Fresh()
	c.AddInstr(lab, Return{})
	assert.Panics(t, func() { c.AddInstr(lab, Return{}) })
}
