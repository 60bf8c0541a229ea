// Package bigarrays recycles the large scratch buffers query execution needs.
package bigarrays

import (
	"sync"
	"sync/atomic"
)

// PageSize is the capacity of a recycled doc-id page.
const PageSize = 16 * 1024

// Pool hands out reusable doc-id pages. It is shared by every context of a
// node and safe for concurrent use.
type Pool struct {
	pages     sync.Pool
	allocated atomic.Int64
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	p := &Pool{}
	p.pages.New = func() any {
		p.allocated.Add(1)
		page := make([]uint32, 0, PageSize)
		return &page
	}
	return p
}

// Get returns an empty page.
func (p *Pool) Get() *[]uint32 {
	page := p.pages.Get().(*[]uint32)
	*page = (*page)[:0]
	return page
}

// Put returns a page to the pool. Pages that grew past PageSize are dropped.
func (p *Pool) Put(page *[]uint32) {
	if page == nil || cap(*page) > PageSize {
		return
	}
	p.pages.Put(page)
}

// Allocated returns how many pages were ever allocated.
func (p *Pool) Allocated() int64 {
	return p.allocated.Load()
}
