package mailbox

const (
	DefaultPageSize = 50
	DefaultMaxPages = 20
)

// Pager drives offset pagination of a folder listing.
type Pager struct {
	Limit    int
	MaxPages int
}

// NewPager applies defaults to non-positive values.
func NewPager(limit, maxPages int) Pager {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return Pager{Limit: limit, MaxPages: maxPages}
}

// Next returns the offset of the page after pagesLoaded pages, the last of
// which held lastPageSize emails. ok is false once MaxPages pages are
// loaded or the last page came back short.
func (p Pager) Next(pagesLoaded, lastPageSize int) (offset int, ok bool) {
	if pagesLoaded >= p.MaxPages {
		return 0, false
	}
	if lastPageSize < p.Limit {
		return 0, false
	}
	return pagesLoaded * p.Limit, true
}

// PageOf returns how many pages are loaded once the page at offset is.
func (p Pager) PageOf(offset int) int {
	if offset < 0 {
		offset = 0
	}
	return offset/p.Limit + 1
}
