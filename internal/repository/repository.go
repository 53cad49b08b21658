package repository

import "strings"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is a normalised page request.
type Pagination struct {
	Page    int
	PerPage int
}

// NewPagination clamps page to >= 1 and perPage to [1, MaxPerPage].
func NewPagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Limit() int32 {
	return int32(p.PerPage)
}

func (p Pagination) Offset() int32 {
	return int32((p.Page - 1) * p.PerPage)
}

// SearchPattern turns free text into an ILIKE pattern; empty input disables the filter.
func SearchPattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(q) + "%"
}
