// bxc is the BX compiler driver: it takes one or more .bx source files
// and writes each one's .parsed/.rtl/.s artifacts next to it, per
// spec.md §6. Grounded on cmd/slow/main.go's nikand.dev/go/cli Command
// shape; collapsed from the teacher's parse/compile subcommand split to
// a single default action since BX's driver (main.cpp) is a one-shot
// "compile this file" tool, not a multi-verb CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/bxlang/bxc/compiler"
)

func main() {
	app := &cli.Command{
		Name:        "bxc",
		Description: "bxc compiles BX source files to AMD64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) error {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("usage: bxc FILE.bx [FILE.bx ...]")
	}

	for _, a := range c.Args {
		if _, err := compiler.CompileFile(ctx, a); err != nil {
			return errors.Wrap(err, "compile %v", a)
		}
		fmt.Printf("%s: .parsed, .rtl, .s written\n", a)
	}

	return nil
}
