// Package front wires the four compilation stages together: parse, type
// check, RTL lowering, and assembly translation. It is the in-memory
// equivalent of main.cpp's straight-line read_program / type_check /
// rtl::transform / rtl_to_asm sequence, restructured as a stateful
// pipeline object the way the teacher's front.State threaded a single
// parse/analyze/compile sequence through explicit methods instead of one
// long function.
package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/bxlang/bxc/compiler/asm"
	"github.com/bxlang/bxc/compiler/ast"
	"github.com/bxlang/bxc/compiler/back"
	"github.com/bxlang/bxc/compiler/check"
	"github.com/bxlang/bxc/compiler/lower"
	"github.com/bxlang/bxc/compiler/parse"
	"github.com/bxlang/bxc/compiler/rtl"
)

// Pipeline holds the artifacts each stage produces, so a driver (or a
// test) can inspect the typed AST or the RTL program after the fact
// without recomputing them.
type Pipeline struct {
	Name string

	Program *ast.Program
	RTL     *rtl.Program
	ASM     asm.Program
}

func New(name string) *Pipeline {
	return &Pipeline{Name: name}
}

// Parse runs compiler/parse over src, storing the untyped AST.
func (p *Pipeline) Parse(ctx context.Context, src []byte) error {
	prog, err := parse.Parse(ctx, src)
	if err != nil {
		return errors.Wrap(err, "parse")
	}
	p.Program = prog
	tlog.SpanFromContext(ctx).Printw("parsed", "file", p.Name, "globals", len(prog.Globals), "funcs", len(prog.Funcs))
	return nil
}

// Check type-checks the parsed program in place.
func (p *Pipeline) Check(ctx context.Context) error {
	if p.Program == nil {
		return errors.New("check: nothing parsed")
	}
	if err := check.Program(p.Program); err != nil {
		return errors.Wrap(err, "type check")
	}
	tlog.SpanFromContext(ctx).Printw("type checked", "file", p.Name)
	return nil
}

// Lower runs compiler/lower over the checked program, producing RTL.
func (p *Pipeline) Lower(ctx context.Context) error {
	if p.Program == nil {
		return errors.New("lower: nothing checked")
	}
	prog, err := lower.Program(p.Program)
	if err != nil {
		return errors.Wrap(err, "lower")
	}
	for _, cbl := range prog.Callables {
		if err := rtl.Validate(cbl); err != nil {
			return errors.Wrap(err, "validate %s", cbl.Name)
		}
	}
	p.RTL = prog
	tlog.SpanFromContext(ctx).Printw("lowered", "file", p.Name, "callables", len(prog.Callables))
	return nil
}

// Compile runs compiler/back over the RTL program, producing assembly.
func (p *Pipeline) Compile(ctx context.Context) error {
	if p.RTL == nil {
		return errors.New("compile: nothing lowered")
	}
	c := back.New()
	out, err := c.CompileProgram(ctx, p.RTL)
	if err != nil {
		return errors.Wrap(err, "compile")
	}
	p.ASM = out
	tlog.SpanFromContext(ctx).Printw("compiled", "file", p.Name, "lines", len(out))
	return nil
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context, src []byte) error {
	if err := p.Parse(ctx, src); err != nil {
		return err
	}
	if err := p.Check(ctx); err != nil {
		return err
	}
	if err := p.Lower(ctx); err != nil {
		return err
	}
	return p.Compile(ctx)
}
