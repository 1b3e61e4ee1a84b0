package dto

import (
	"math"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ListRequest carries the query parameters shared by every list endpoint.
type ListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Search   string `query:"search"`
	Sort     string `query:"sort"`
}

// Normalize clamps paging values and trims free text.
func (r ListRequest) Normalize() ListRequest {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
	r.Search = strings.TrimSpace(r.Search)
	r.Sort = strings.TrimSpace(r.Sort)
	return r
}

// Offset returns the number of rows to skip.
func (r ListRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// NewPaginationMeta builds pagination metadata from a normalized request.
func NewPaginationMeta(req ListRequest, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 && total > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}
	return meta
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}
