// Package paging holds the paged-result container returned by every listing.
package paging

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// PagedList is one page of an ordered, filtered listing. TotalCount counts
// the whole filtered set, not just Data.
type PagedList[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
	PageSize   int `json:"pageSize"`
}

// Normalize applies the defaults for out-of-range page arguments and caps
// pageSize at MaxPageSize
func Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the number of rows to skip for a 1-based page. It
// saturates at math.MaxInt instead of wrapping, so a page far past the end
// stays past the end.
func Offset(page, pageSize int) int {
	page, pageSize = Normalize(page, pageSize)
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// New builds a PagedList, never leaving Data nil
func New[T any](data []T, totalCount, pageSize int) PagedList[T] {
	if data == nil {
		data = []T{}
	}
	return PagedList[T]{Data: data, TotalCount: totalCount, PageSize: pageSize}
}

// Slice pages an already filtered and sorted slice
func Slice[T any](items []T, page, pageSize int) PagedList[T] {
	page, pageSize = Normalize(page, pageSize)
	start := Offset(page, pageSize)
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if end-start > pageSize {
		end = start + pageSize
	}
	data := make([]T, end-start)
	copy(data, items[start:end])
	return New(data, len(items), pageSize)
}

// Map converts the page items, keeping the counts
func Map[T, U any](list PagedList[T], fn func(T) U) PagedList[U] {
	data := make([]U, len(list.Data))
	for i, item := range list.Data {
		data[i] = fn(item)
	}
	return New(data, list.TotalCount, list.PageSize)
}
