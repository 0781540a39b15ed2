// Package dom describes the slice of a host page the scraper needs: walking
// ancestors, reading scroll metrics, listing text-bearing descendants and
// moving a scroll offset.
package dom

import "context"

// Presentation classes toggled on page elements. They are cosmetic only.
const (
	ClassHover  = "scraper-hover"
	ClassTarget = "scraper-target"
)

// DefaultNodeSelector matches the block and text-bearing elements of a list row.
const DefaultNodeSelector = `div[role="listitem"], div[role="button"], span, div, li`

// Metrics are the scroll-related properties of one element.
type Metrics struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
	// OverflowY is the computed overflow-y style ("auto", "scroll", "visible", ...).
	OverflowY string
}

// Scrollable reports whether the element scrolls by style and has content to scroll.
func (m Metrics) Scrollable() bool {
	return (m.OverflowY == "auto" || m.OverflowY == "scroll") && m.Overflowing()
}

// Overflowing reports whether the content is taller than the visible box.
func (m Metrics) Overflowing() bool {
	return m.ScrollHeight > m.ClientHeight
}

// Node is the rendered state of one descendant at the moment it was read.
type Node struct {
	Text     string
	Children int
}

// Element is a live handle on a page element.
type Element interface {
	// Parent returns the parent element, or nil when that parent would be the
	// document body or root.
	Parent(ctx context.Context) (Element, error)
	Metrics(ctx context.Context) (Metrics, error)
	// Candidates lists descendants matching selector in document order.
	Candidates(ctx context.Context, selector string) ([]Node, error)
	// ScrollBy moves the vertical scroll offset and returns the resulting offset.
	ScrollBy(ctx context.Context, delta float64) (float64, error)
	SetClass(ctx context.Context, class string, on bool) error
}

// Selection is an active element-picking mode on a page. Close detaches every
// listener it installed and may be called more than once.
type Selection interface {
	// Picked delivers the element the user clicked.
	Picked() <-chan Element
	// Cancelled is closed when the user aborts with Escape.
	Cancelled() <-chan struct{}
	Close() error
}

// Picker starts selection mode on a page.
type Picker interface {
	BeginSelection(ctx context.Context) (Selection, error)
}
