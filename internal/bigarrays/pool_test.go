package bigarrays

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool(t *testing.T) {
	p := NewPool()

	page := p.Get()
	assert.Empty(t, *page)
	assert.Equal(t, PageSize, cap(*page))
	assert.Equal(t, int64(1), p.Allocated())

	*page = append(*page, 1, 2, 3)
	p.Put(page)

	again := p.Get()
	assert.Empty(t, *again, "pages come back empty")

	big := make([]uint32, 0, PageSize*2)
	p.Put(&big)
	p.Put(nil)
}
