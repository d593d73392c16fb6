// Package pagination reconciles the backend's pagination payload into the
// state the list page renders.
package pagination

import "github.com/bryan-buckman/blogfront/internal/model"

// PageSize is the number of posts requested per page.
const PageSize = 6

// Control layout, matching the page links the list view renders.
const (
	siblingCount  = 1
	boundaryCount = 2
)

// State is the client-side pagination state. It is replaced wholesale on
// every successful list fetch.
type State struct {
	CurrentPage int
	TotalPages  int
	TotalPosts  int
	PageSize    int
	HasNextPage bool
	HasPrevPage bool
}

// Initial is the state before the first fetch completes.
func Initial() State {
	return Reconcile(model.ServerPagination{CurrentPage: 1, Limit: PageSize})
}

// Reconcile derives the canonical state from a server payload. Total pages
// are recomputed from the post count and the current page is clamped into
// range, so a stale or malformed payload cannot point past the last page.
func Reconcile(sp model.ServerPagination) State {
	size := sp.Limit
	if size <= 0 {
		size = PageSize
	}
	total := sp.TotalPosts
	if total < 0 {
		total = 0
	}
	pages := 1
	if total > 0 {
		pages = (total + size - 1) / size
	}
	cur := clamp(sp.CurrentPage, 1, pages)
	return State{
		CurrentPage: cur,
		TotalPages:  pages,
		TotalPosts:  total,
		PageSize:    size,
		HasNextPage: cur < pages,
		HasPrevPage: cur > 1,
	}
}

// DisplayRange returns the 1-based positions of the first and last post shown.
// With no posts it returns (1, 0).
func (s State) DisplayRange() (start, end int) {
	start = (s.CurrentPage-1)*s.PageSize + 1
	end = s.CurrentPage * s.PageSize
	if end > s.TotalPosts {
		end = s.TotalPosts
	}
	return start, end
}

// Request normalizes a page-change request into [1, TotalPages]. Asking for
// the current page returns it unchanged.
func (s State) Request(page int) int {
	return clamp(page, 1, max(s.TotalPages, 1))
}

// Visible reports whether the page control should be rendered at all.
func (s State) Visible() bool {
	return s.TotalPages > 1
}

// ItemKind identifies an entry of the page control.
type ItemKind string

const (
	ItemFirst    ItemKind = "first"
	ItemPrevious ItemKind = "previous"
	ItemPage     ItemKind = "page"
	ItemEllipsis ItemKind = "ellipsis"
	ItemNext     ItemKind = "next"
	ItemLast     ItemKind = "last"
)

// Item is one entry of the rendered page control.
type Item struct {
	Kind     ItemKind
	Page     int
	Current  bool
	Disabled bool
}

// Items lays out the page control: first/previous, boundary pages, the
// siblings of the current page with ellipses for gaps, then next/last.
func (s State) Items() []Item {
	count, page := s.TotalPages, s.CurrentPage

	startPages := pageRange(1, min(boundaryCount, count))
	endPages := pageRange(max(count-boundaryCount+1, boundaryCount+1), count)

	siblingsStart := max(min(page-siblingCount, count-boundaryCount-siblingCount*2-1), boundaryCount+2)
	siblingsEndCap := count - 1
	if len(endPages) > 0 {
		siblingsEndCap = endPages[0] - 2
	}
	siblingsEnd := min(max(page+siblingCount, boundaryCount+siblingCount*2+2), siblingsEndCap)

	items := []Item{
		{Kind: ItemFirst, Page: 1, Disabled: page <= 1},
		{Kind: ItemPrevious, Page: max(page-1, 1), Disabled: page <= 1},
	}
	addPages := func(pages []int) {
		for _, p := range pages {
			items = append(items, Item{Kind: ItemPage, Page: p, Current: p == page})
		}
	}

	addPages(startPages)
	if siblingsStart > boundaryCount+2 {
		items = append(items, Item{Kind: ItemEllipsis})
	} else if boundaryCount+1 < count-boundaryCount {
		addPages([]int{boundaryCount + 1})
	}
	addPages(pageRange(siblingsStart, siblingsEnd))
	if siblingsEnd < count-boundaryCount-1 {
		items = append(items, Item{Kind: ItemEllipsis})
	} else if count-boundaryCount > boundaryCount {
		addPages([]int{count - boundaryCount})
	}
	addPages(endPages)

	items = append(items,
		Item{Kind: ItemNext, Page: min(page+1, count), Disabled: page >= count},
		Item{Kind: ItemLast, Page: count, Disabled: page >= count},
	)
	return items
}

func pageRange(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
