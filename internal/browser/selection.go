package browser

import (
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"go-contact-scraper/internal/dom"
)

// selection receives binding calls from the page. Only the first pick or
// cancel is delivered.
type selection struct {
	b         *Browser
	picked    chan dom.Element
	cancelled chan struct{}

	once      sync.Once
	closeOnce sync.Once
	closeErr  error
}

func newSelection(b *Browser) *selection {
	return &selection{
		b:         b,
		picked:    make(chan dom.Element, 1),
		cancelled: make(chan struct{}),
	}
}

func (s *selection) Picked() <-chan dom.Element { return s.picked }
func (s *selection) Cancelled() <-chan struct{} { return s.cancelled }

func (s *selection) pick(el dom.Element) {
	s.once.Do(func() { s.picked <- el })
}

func (s *selection) cancel() {
	s.once.Do(func() { close(s.cancelled) })
}

// Close removes the page listeners and the hover outline.
func (s *selection) Close() error {
	s.closeOnce.Do(func() {
		s.b.release(s)
		s.closeErr = chromedp.Run(s.b.ctx,
			chromedp.Evaluate(helperScript, nil),
			chromedp.Evaluate("window.__scraper.endSelect()", nil),
		)
		if s.closeErr != nil && s.b.ctx.Err() == nil {
			s.b.log.Warn("Removing selection listeners failed", zap.Error(s.closeErr))
		}
	})
	if s.b.ctx.Err() != nil {
		return nil
	}
	return s.closeErr
}
