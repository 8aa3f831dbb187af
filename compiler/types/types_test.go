package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeOfScalarsAndComposites(t *testing.T) {
	assert.Equal(t, 8, SizeOf(Int64))
	assert.Equal(t, 8, SizeOf(Bool))
	assert.Equal(t, 8, SizeOf(PointerType{Elem: Int64}))
	assert.Equal(t, 24, SizeOf(ListType{Elem: Int64, Len: 3}))
	assert.Equal(t, 48, SizeOf(ListType{Elem: PointerType{Elem: Int64}, Len: 6}))
}

func TestEqualComparesStructurally(t *testing.T) {
	assert.True(t, Equal(Int64, Int64))
	assert.False(t, Equal(Int64, Bool))
	assert.True(t, Equal(PointerType{Elem: Int64}, PointerType{Elem: Int64}))
	assert.False(t, Equal(PointerType{Elem: Int64}, PointerType{Elem: Bool}))
	assert.True(t, Equal(ListType{Elem: Int64, Len: 4}, ListType{Elem: Int64, Len: 4}))
	assert.False(t, Equal(ListType{Elem: Int64, Len: 4}, ListType{Elem: Int64, Len: 5}))
	assert.False(t, Equal(Unknown, Unknown))
}

func TestStringRendersDeclarationSyntax(t *testing.T) {
	assert.Equal(t, "int64", Int64.String())
	assert.Equal(t, "bool", Bool.String())
	assert.Equal(t, "int64*", PointerType{Elem: Int64}.String())
	assert.Equal(t, "int64[3]", ListType{Elem: Int64, Len: 3}.String())
}

func TestUnknownTypeSizePanics(t *testing.T) {
	assert.Panics(t, func() { SizeOf(Unknown) })
}
