// Package domtest provides in-memory dom implementations for tests.
package domtest

import (
	"context"
	"sync"

	"go-contact-scraper/internal/dom"
)

// Element is a scriptable fake. Rows are revealed as the offset advances:
// every Step pixels of scroll shows the next Window rows.
type Element struct {
	mu sync.Mutex

	Name     string
	ParentEl *Element
	Metric   dom.Metrics
	// MaxScrollTop caps ScrollBy; zero means ScrollHeight - ClientHeight.
	MaxScrollTop float64

	Rows   []dom.Node
	Window int
	Step   float64

	Classes     map[string]bool
	ScrollCalls int
	Err         error
}

func (e *Element) Parent(ctx context.Context) (dom.Element, error) {
	if e.ParentEl == nil {
		return nil, nil
	}
	return e.ParentEl, nil
}

func (e *Element) Metrics(ctx context.Context) (dom.Metrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Metric, e.Err
}

func (e *Element) Candidates(ctx context.Context, selector string) ([]dom.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Window <= 0 || e.Step <= 0 {
		return append([]dom.Node(nil), e.Rows...), nil
	}

	first := int(e.Metric.ScrollTop/e.Step) * e.Window
	if first >= len(e.Rows) {
		return nil, nil
	}
	last := min(first+e.Window, len(e.Rows))
	return append([]dom.Node(nil), e.Rows[first:last]...), nil
}

func (e *Element) ScrollBy(ctx context.Context, delta float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ScrollCalls++
	if e.Err != nil {
		return e.Metric.ScrollTop, e.Err
	}

	limit := e.MaxScrollTop
	if limit == 0 {
		limit = max(e.Metric.ScrollHeight-e.Metric.ClientHeight, 0)
	}
	e.Metric.ScrollTop = min(e.Metric.ScrollTop+delta, limit)
	return e.Metric.ScrollTop, nil
}

func (e *Element) SetClass(ctx context.Context, class string, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Classes == nil {
		e.Classes = make(map[string]bool)
	}
	e.Classes[class] = on
	return nil
}

// HasClass reports whether class is currently set.
func (e *Element) HasClass(class string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Classes[class]
}

// ScrollTop returns the current offset.
func (e *Element) ScrollTop() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Metric.ScrollTop
}

// Chain links elements child-to-parent and returns the first.
func Chain(elems ...*Element) *Element {
	for i := 0; i+1 < len(elems); i++ {
		elems[i].ParentEl = elems[i+1]
	}
	return elems[0]
}

// Selection is a manual dom.Selection.
type Selection struct {
	picked    chan dom.Element
	cancelled chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func NewSelection() *Selection {
	return &Selection{
		picked:    make(chan dom.Element, 1),
		cancelled: make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

func (s *Selection) Picked() <-chan dom.Element { return s.picked }
func (s *Selection) Cancelled() <-chan struct{} { return s.cancelled }

func (s *Selection) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Pick simulates a click on el.
func (s *Selection) Pick(el dom.Element) { s.picked <- el }

// Cancel simulates pressing Escape.
func (s *Selection) Cancel() { close(s.cancelled) }

// Closed is closed once Close has been called.
func (s *Selection) Closed() <-chan struct{} { return s.closed }

// Picker hands out a prepared Selection.
type Picker struct {
	Next *Selection
	Err  error
}

func (p *Picker) BeginSelection(ctx context.Context) (dom.Selection, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Next, nil
}
