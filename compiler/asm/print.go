package asm

import "strings"

// Render joins every line's rendered text, one per line, terminated by a
// trailing newline — the literal contents of the ".s" file compiler/back
// produces.
func (p Program) Render() string {
	var b strings.Builder
	for _, l := range p {
		b.WriteString(l.Render())
		b.WriteString("\n")
	}
	return b.String()
}
