package query

// Page is one page of a collection as returned by the list API.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// TotalPages is ceil(totalItems / pageSize), 0 for an empty collection.
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// NewPage builds a page, deriving TotalPages from the totals.
func NewPage[T any](items []T, page, perPage, totalItems int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: TotalPages(totalItems, perPage),
	}
}

// Paginate slices an already filtered and sorted collection. Pages past the
// end are empty, not errors.
func Paginate[T any](all []T, opts Options) *Page[T] {
	start := (opts.Page - 1) * opts.PageSize
	if start > len(all) || start < 0 {
		return NewPage([]T{}, opts.Page, opts.PageSize, len(all))
	}
	end := start + opts.PageSize
	if end > len(all) {
		end = len(all)
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	return NewPage(items, opts.Page, opts.PageSize, len(all))
}
