package listview

import (
	"fmt"
	"strings"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
)

// Pager renders page controls bound to a page and a page count. It never
// changes the page itself; it asks OnChange to.
type Pager struct {
	Page       int
	TotalPages int
	OnChange   func(page int)
}

// NewPager binds a pager to the page in f and the result's page count.
func NewPager(f filter.Filter, totalPages int, onChange func(int)) Pager {
	return Pager{Page: f.Normalize().Page, TotalPages: totalPages, OnChange: onChange}
}

// CanPrev reports whether a previous page exists.
func (p Pager) CanPrev() bool { return p.Page > 1 }

// CanNext reports whether a next page exists.
func (p Pager) CanNext() bool { return p.TotalPages > 0 && p.Page < p.TotalPages }

// Prev requests the previous page.
func (p Pager) Prev() bool { return p.request(p.Page-1, p.CanPrev()) }

// Next requests the next page.
func (p Pager) Next() bool { return p.request(p.Page+1, p.CanNext()) }

func (p Pager) request(page int, ok bool) bool {
	if !ok || p.OnChange == nil {
		return false
	}
	p.OnChange(page)
	return true
}

// Render draws e.g. "‹ Previous  Page 2 of 5  Next ›". An empty result
// reads as page 1 of 1.
func (p Pager) Render() string {
	total := max(p.TotalPages, 1)
	var b strings.Builder
	b.WriteString(control("‹ Previous", p.CanPrev()))
	fmt.Fprintf(&b, "  Page %d of %d  ", p.Page, total)
	b.WriteString(control("Next ›", p.CanNext()))
	return b.String()
}

func control(label string, enabled bool) string {
	if enabled {
		return label
	}
	return mutedStyle.Render(label)
}

// RenderPage draws a table of res followed by its pager.
func RenderPage[T any](t Table[T], res domain.ListResult[T], p Pager) string {
	return t.Render(res.Items) + "\n" + p.Render()
}
