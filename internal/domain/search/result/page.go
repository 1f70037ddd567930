package result

// Page is a length-aware page of a search result. Pages are 1-based.
type Page struct {
	*Result
	perPage int
	current int
}

// NewPage wraps r as page number current of perPage hits each.
func NewPage(r *Result, perPage, current int) *Page {
	return &Page{Result: r, perPage: perPage, current: current}
}

// PerPage returns the page size.
func (p *Page) PerPage() int { return p.perPage }

// CurrentPage returns the 1-based page number.
func (p *Page) CurrentPage() int { return p.current }

// LastPage returns the number of the last page, at least 1.
func (p *Page) LastPage() int {
	if p.perPage <= 0 {
		return 1
	}
	last := int((p.Total() + int64(p.perPage) - 1) / int64(p.perPage))
	return max(last, 1)
}

// HasMorePages reports whether a page follows this one.
func (p *Page) HasMorePages() bool {
	return p.current < p.LastPage()
}
