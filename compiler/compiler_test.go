package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileFixture compiles a testdata/*.bx file purely (no filesystem
// writes) and returns its artifacts, the way spec.md §8's round-trip and
// boundary scenarios are meant to be exercised end to end.
func compileFixture(t *testing.T, name string) *Artifacts {
	t.Helper()
	text, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	art, err := Compile(context.Background(), name, text)
	require.NoError(t, err)
	return art
}

func TestRoundTripScenariosCompileCleanly(t *testing.T) {
	fixtures := []string{
		"scenario1_precedence.bx",
		"scenario2_countdown.bx",
		"scenario3_call.bx",
		"scenario4_list.bx",
		"scenario5_pointer.bx",
		"scenario6_shortcircuit.bx",
	}
	for _, f := range fixtures {
		t.Run(f, func(t *testing.T) {
			art := compileFixture(t, f)
			assert.NotEmpty(t, art.Parsed)
			assert.NotEmpty(t, art.RTL)
			assert.NotEmpty(t, art.Asm)
			assert.NotContains(t, string(art.Asm), "`", "no unresolved placeholder may survive rendering")
		})
	}
}

func TestArity8FunctionUsesStackPassedLoadParams(t *testing.T) {
	art := compileFixture(t, "boundary_arity8.bx")
	rtlText := string(art.RTL)
	assert.Contains(t, rtlText, "loadparam 1,")
	assert.Contains(t, rtlText, "loadparam 2,")
}

func TestLargeImmediateUsesMovabsq(t *testing.T) {
	art := compileFixture(t, "boundary_int64_min.bx")
	assert.Contains(t, string(art.Asm), "movabsq")
}

func TestShortCircuitSkipsSecondOperandWhenFirstIsFalse(t *testing.T) {
	art := compileFixture(t, "scenario6_shortcircuit.bx")
	// the && in `b && (1<2)` must produce a branch before the second
	// operand's comparison is ever reached unconditionally.
	assert.Contains(t, string(art.RTL), "ubranch")
}

func TestCompilingTwiceIsByteIdentical(t *testing.T) {
	text, err := os.ReadFile(filepath.Join("testdata", "scenario4_list.bx"))
	require.NoError(t, err)

	art1, err := Compile(context.Background(), "scenario4_list.bx", text)
	require.NoError(t, err)
	art2, err := Compile(context.Background(), "scenario4_list.bx", text)
	require.NoError(t, err)

	assert.Equal(t, art1.Asm, art2.Asm)
	assert.Equal(t, art1.RTL, art2.RTL)
	assert.Equal(t, art1.Parsed, art2.Parsed)
}

func TestCompileFileRejectsNonBxExtension(t *testing.T) {
	_, err := CompileFile(context.Background(), "foo.txt")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), ".bx"))
}
