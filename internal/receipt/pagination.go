package receipt

// PageSizes are the selectable page sizes
var PageSizes = []int{6, 12, 24, 48}

// DefaultPageSize is used when no valid page size is requested
const DefaultPageSize = 12

// Page describes one page of a list
type Page struct {
	Current    int
	Size       int
	TotalItems int
	TotalPages int
}

// StartItem is the 1-based position of the first item on the page
func (p Page) StartItem() int {
	if p.TotalItems == 0 {
		return 0
	}
	return (p.Current-1)*p.Size + 1
}

// EndItem is the 1-based position of the last item on the page
func (p Page) EndItem() int {
	return min(p.Current*p.Size, p.TotalItems)
}

// HasPrevious reports whether there is a page before this one
func (p Page) HasPrevious() bool {
	return p.Current > 1
}

// HasNext reports whether there is a page after this one
func (p Page) HasNext() bool {
	return p.Current < p.TotalPages
}

// validPageSize reports whether size is one of PageSizes
func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Paginate returns the requested page of receipts. Unknown page sizes fall
// back to DefaultPageSize and the page number is clamped into range.
func Paginate(receipts []Receipt, page, size int) ([]Receipt, Page) {
	if !validPageSize(size) {
		size = DefaultPageSize
	}

	total := len(receipts)
	totalPages := max((total+size-1)/size, 1)
	page = min(max(page, 1), totalPages)

	p := Page{
		Current:    page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}

	start := (page - 1) * size
	end := min(start+size, total)
	if start >= total {
		return []Receipt{}, p
	}
	return receipts[start:end], p
}
