package compiler

import (
	"context"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/bxlang/bxc/compiler/format"
	"github.com/bxlang/bxc/compiler/front"
	"github.com/bxlang/bxc/compiler/rtl"
)

// Artifacts bundles the three debug/output files spec.md §6 names, in
// the order main.cpp originally wrote them.
type Artifacts struct {
	Parsed []byte // pretty-printed typed AST
	RTL    []byte // pretty-printed RTL callables
	Asm    []byte // AT&T-syntax assembly
}

// CompileFile reads name, requires its extension be ".bx" the way
// main.cpp's argv[1] check does, runs the full pipeline, and writes
// <root>.parsed / <root>.rtl / <root>.s next to it.
func CompileFile(ctx context.Context, name string) (*Artifacts, error) {
	if !strings.HasSuffix(name, ".bx") {
		return nil, errors.New("bad file name: %s (must end in .bx)", name)
	}

	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	art, err := Compile(ctx, name, text)
	if err != nil {
		return nil, err
	}

	root := strings.TrimSuffix(name, ".bx")
	outputs := []struct {
		suffix string
		data   []byte
	}{
		{".parsed", art.Parsed},
		{".rtl", art.RTL},
		{".s", art.Asm},
	}
	for _, out := range outputs {
		if err := os.WriteFile(root+out.suffix, out.data, 0o644); err != nil {
			return nil, errors.Wrap(err, "write %s", root+out.suffix)
		}
	}

	return art, nil
}

// Compile runs parse -> check -> lower -> compile over text and renders
// each stage's debug artifact, without touching the filesystem.
func Compile(ctx context.Context, name string, text []byte) (*Artifacts, error) {
	p := front.New(name)

	if err := p.Run(ctx, text); err != nil {
		return nil, err
	}

	parsed, err := format.Format(ctx, p.Program)
	if err != nil {
		return nil, errors.Wrap(err, "format parsed AST")
	}

	return &Artifacts{
		Parsed: parsed,
		RTL:    []byte(rtl.PrintProgram(p.RTL)),
		Asm:    []byte(p.ASM.Render()),
	}, nil
}
