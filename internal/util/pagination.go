package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Calculate normalizes page and size and returns the row offset and limit.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(offset, limit int, total int64) Pagination {
	p := Pagination{Limit: limit, Total: total}
	if limit > 0 {
		p.Page = offset/limit + 1
		p.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}
