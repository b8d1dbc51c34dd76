package paging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	page, size := Normalize(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = Normalize(3, 25)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, size)

	_, size = Normalize(1, math.MaxInt)
	assert.Equal(t, MaxPageSize, size)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("first page", func(t *testing.T) {
		list := Slice(items, 1, 3)
		assert.Equal(t, []int{1, 2, 3}, list.Data)
		assert.Equal(t, 7, list.TotalCount)
		assert.Equal(t, 3, list.PageSize)
	})

	t.Run("last partial page", func(t *testing.T) {
		list := Slice(items, 3, 3)
		assert.Equal(t, []int{7}, list.Data)
		assert.Equal(t, 7, list.TotalCount)
	})

	t.Run("past the end", func(t *testing.T) {
		list := Slice(items, 10, 3)
		assert.Empty(t, list.Data)
		assert.NotNil(t, list.Data)
		assert.Equal(t, 7, list.TotalCount)
	})

	t.Run("total count independent of page size", func(t *testing.T) {
		for size := 1; size <= 8; size++ {
			for page := 1; page <= 8; page++ {
				list := Slice(items, page, size)
				assert.Equal(t, len(items), list.TotalCount)
				assert.LessOrEqual(t, len(list.Data), size)
			}
		}
	})
}

func TestMap(t *testing.T) {
	list := New([]int{1, 2}, 5, 2)
	mapped := Map(list, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, mapped.Data)
	assert.Equal(t, 5, mapped.TotalCount)
	assert.Equal(t, 2, mapped.PageSize)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, Offset(-1, 10))
}

func TestHugePageArguments(t *testing.T) {
	items := []int{1, 2, 3}

	t.Run("page size beyond int range", func(t *testing.T) {
		list := Slice(items, 2, math.MaxInt)
		assert.Empty(t, list.Data)
		assert.Equal(t, 3, list.TotalCount)
		assert.Equal(t, MaxPageSize, list.PageSize)

		list = Slice(items, 1, math.MaxInt)
		assert.Equal(t, items, list.Data)
	})

	t.Run("page beyond int range", func(t *testing.T) {
		list := Slice(items, math.MaxInt, 10)
		assert.Empty(t, list.Data)
		assert.NotNil(t, list.Data)
	})

	t.Run("offset saturates instead of wrapping", func(t *testing.T) {
		assert.Equal(t, math.MaxInt, Offset(math.MaxInt/2+2, 4))
		assert.Equal(t, math.MaxInt, Offset(922337203685477582, 10))
		assert.GreaterOrEqual(t, Offset(math.MaxInt, MaxPageSize), 0)
	})
}
