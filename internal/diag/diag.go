// Package diag panics for programming-error-class failures: conditions
// spec.md §7 classifies as bugs in the compiler itself (a duplicate RTL
// label, an l-value the lowerer cannot address) rather than user-facing
// diagnostics. Every panic carries its caller's location, the way the
// teacher's compiler/back attaches loc.Caller to a log line, so a panic
// message alone is enough to find the offending call site.
package diag

import (
	"fmt"

	"tlog.app/go/loc"
)

// Bug panics with msg, formatted with args, prefixed by the location of
// its caller (not of Bug itself).
func Bug(msg string, args ...any) {
	panic(fmt.Sprintf("%v: %s", loc.Caller(1), fmt.Sprintf(msg, args...)))
}
