package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapSetClearIsSet(t *testing.T) {
	var b Bitmap
	b.Set(3)
	b.Set(65)

	assert.True(t, b.IsSet(3))
	assert.True(t, b.IsSet(65))
	assert.False(t, b.IsSet(4))

	b.Clear(3)
	assert.False(t, b.IsSet(3))
}

func TestBitmapSizeCountsSetBits(t *testing.T) {
	var b Bitmap
	assert.Equal(t, 0, b.Size())

	for _, i := range []int{0, 1, 64, 128} {
		b.Set(i)
	}
	assert.Equal(t, 4, b.Size())
}

func TestBitmapGrowsPastInlineWord(t *testing.T) {
	var b Bitmap
	b.Set(200)
	assert.True(t, b.IsSet(200))
	assert.Equal(t, 1, b.Size())
}

func TestBitmapRangeVisitsInAscendingOrder(t *testing.T) {
	var b Bitmap
	b.Set(5)
	b.Set(70)
	b.Set(1)

	var seen []int
	b.Range(func(i int) bool {
		seen = append(seen, i)
		return true
	})

	assert.Equal(t, []int{1, 5, 70}, seen)
}
