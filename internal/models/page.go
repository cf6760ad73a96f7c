package models

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxOffset bounds page*size so the offset fits an int4 on any platform
	MaxOffset = math.MaxInt32
)

// PageRequest selects a slice of an ordered listing
type PageRequest struct {
	Page      int
	Size      int
	Ascending bool // createdAt order, newest first unless set
}

// Normalize clamps page and size into the accepted range
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Page > p.LastPage() {
		p.Page = p.LastPage()
	}
	return p
}

// LastPage is the highest page index whose offset stays within MaxOffset
func (p PageRequest) LastPage() int {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	return MaxOffset / size
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of a listing plus the totals clients need for pagination controls
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	CurrentPage   int   `json:"currentPage"`
	Size          int   `json:"size"`
}

// NewPage builds a page from its content and the total row count
func NewPage[T any](content []T, total int64, req PageRequest) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    TotalPages(total, req.Size),
		CurrentPage:   req.Page,
		Size:          req.Size,
	}
}

// TotalPages returns ceil(total/size), 0 for an empty listing
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
