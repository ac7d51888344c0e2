package pagination

import "strings"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and applies the default and maximum limits.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset is the number of rows to skip for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// TotalPages rounds total/limit up; an empty result still has zero pages.
func TotalPages(total int64, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Page is the list envelope returned by paginated endpoints.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}

func NewPage[T any](items []T, total int64, params Params) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Total:       total,
		TotalPages:  TotalPages(total, n.Limit),
		CurrentPage: n.Page,
		Limit:       n.Limit,
	}
}

// Sort is a parsed `field:direction` query value.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads values like `createdAt:desc`, falling back to def when the
// field is not in allowed. allowed maps public field names to columns.
func ParseSort(raw string, allowed map[string]string, def Sort) Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	field, dir, _ := strings.Cut(raw, ":")
	column, ok := allowed[strings.TrimSpace(field)]
	if !ok {
		return def
	}
	return Sort{Field: column, Desc: !strings.EqualFold(strings.TrimSpace(dir), "asc")}
}

// Clause renders the sort for gorm's Order.
func (s Sort) Clause() string {
	if s.Desc {
		return s.Field + " DESC"
	}
	return s.Field + " ASC"
}
