package shared

import "math"

// Pagination contains metadata for page/page_size style listings.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	return Pagination{Page: page, PageSize: pageSize, TotalRecords: total, TotalPages: totalPages}
}
