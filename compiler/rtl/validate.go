package rtl

import (
	"fmt"

	"github.com/bxlang/bxc/compiler/set"
)

// Validate checks the structural invariants spec.md §8 calls out as
// property-based testable invariants: CFG closedness, schedule being a
// permutation of the body's labels, enter/leave presence, and label
// uniqueness, plus that Leave's Goto chain ends in a Return. It uses
// set.Bitmap to track the scheduled label ids rather than a plain map —
// a bitmap repurposed from dataflow/liveness bookkeeping to a one-shot
// structural check, since register allocation and dataflow optimization
// are both out of scope for this compiler.
func Validate(c *Callable) error {
	var scheduled set.Bitmap
	for _, lab := range c.Schedule {
		if scheduled.IsSet(lab.id) {
			return fmt.Errorf("rtl: label %v scheduled twice in %s", lab, c.Name)
		}
		scheduled.Set(lab.id)
	}

	if scheduled.Size() != len(c.body) {
		return fmt.Errorf("rtl: schedule is not a permutation of body labels in %s (schedule=%d body=%d)",
			c.Name, scheduled.Size(), len(c.body))
	}

	for lab := range c.body {
		if !scheduled.IsSet(lab.id) {
			return fmt.Errorf("rtl: label %v present in body but missing from schedule in %s", lab, c.Name)
		}
	}

	if _, ok := c.body[c.Enter]; !ok {
		return fmt.Errorf("rtl: enter label %v not in body of %s", c.Enter, c.Name)
	}

	leaveInstr, ok := c.body[c.Leave]
	if !ok {
		return fmt.Errorf("rtl: leave label %v not in body of %s", c.Leave, c.Name)
	}

	if len(c.Schedule) > 0 && c.Schedule[0] != c.Enter {
		return fmt.Errorf("rtl: enter label %v is not first in schedule of %s", c.Enter, c.Name)
	}

	for lab, instr := range c.body {
		for _, succ := range instr.Successors() {
			if succ == c.Leave {
				continue
			}
			if _, ok := c.body[succ]; !ok {
				return fmt.Errorf("rtl: instruction at %v in %s references undefined successor %v (%v)",
					lab, c.Name, succ, instr)
			}
		}
		if _, isReturn := instr.(Return); isReturn && len(instr.Successors()) != 0 {
			return fmt.Errorf("rtl: Return must have no successors in %s", c.Name)
		}
	}

	if err := reachesReturn(c, c.Leave, leaveInstr); err != nil {
		return fmt.Errorf("rtl: leave of %s: %w", c.Name, err)
	}

	return nil
}

// reachesReturn walks Goto chains starting at lab/instr until it finds a
// Return, bounded by the number of instructions in the body so a cycle of
// Gotos (a lowering bug) fails instead of looping forever.
func reachesReturn(c *Callable, lab Label, instr Instr) error {
	seen := map[Label]bool{}
	for steps := 0; steps <= c.Len()+1; steps++ {
		if _, ok := instr.(Return); ok {
			return nil
		}
		g, ok := instr.(Goto)
		if !ok {
			return nil // terminates some other way; not our concern here
		}
		if seen[lab] {
			return fmt.Errorf("goto cycle starting at %v never reaches Return", lab)
		}
		seen[lab] = true
		lab = g.Succ
		instr, ok = c.body[lab]
		if !ok {
			return fmt.Errorf("goto to undefined label %v", lab)
		}
	}
	return fmt.Errorf("leave chain exceeds body length without reaching Return")
}
