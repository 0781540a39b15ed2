// Package browser hosts the scraper in a Chrome tab driven over the DevTools
// protocol.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"go-contact-scraper/internal/dom"
)

const bindingName = "__scraperPick"

var ErrDetached = errors.New("element no longer in the document")

type Options struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// NavigateTimeout bounds page loads.
	NavigateTimeout time.Duration
}

// Browser owns one Chrome process and one tab.
type Browser struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	opts        Options
	log         *zap.Logger

	bindingOnce sync.Once
	bindingErr  error

	mu      sync.Mutex
	current *selection
}

var _ dom.Picker = (*Browser)(nil)

// Launch starts Chrome and opens a blank tab.
func Launch(ctx context.Context, opts Options, log *zap.Logger) (*Browser, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1600, 1000
	}
	if opts.NavigateTimeout == 0 {
		opts.NavigateTimeout = 60 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))

	b := &Browser{
		ctx:         tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		opts:        opts,
		log:         log,
	}

	if err := chromedp.Run(tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	chromedp.ListenTarget(tabCtx, b.onEvent)

	log.Info("Chrome started", zap.Bool("headless", opts.Headless))
	return b, nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// Navigate loads url and waits for the body to be ready.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(b.ctx, b.opts.NavigateTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	b.log.Info("Page loaded", zap.String("url", url))
	return nil
}

// WaitVisible blocks until selector matches a visible element.
func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Find returns the first element matching a CSS selector.
func (b *Browser) Find(ctx context.Context, selector string) (dom.Element, error) {
	var id string
	if err := b.call(ctx, &id, "find", selector); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return &Element{b: b, id: id}, nil
}

// call installs the helper if needed and invokes window.__scraper[fn](args...).
func (b *Browser) call(ctx context.Context, out any, fn string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded := make([]byte, 0, 64)
	for i, arg := range args {
		if i > 0 {
			encoded = append(encoded, ',')
		}
		raw, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("encode %s argument: %w", fn, err)
		}
		encoded = append(encoded, raw...)
	}
	expr := fmt.Sprintf("window.__scraper.%s(%s)", fn, encoded)

	if err := chromedp.Run(b.ctx,
		chromedp.Evaluate(helperScript, nil),
		chromedp.Evaluate(expr, out),
	); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

func (b *Browser) ensureBinding() error {
	b.bindingOnce.Do(func() {
		b.bindingErr = chromedp.Run(b.ctx, runtime.AddBinding(bindingName))
	})
	return b.bindingErr
}

// BeginSelection attaches the picking listeners. Only one selection is live
// per tab; starting another closes the previous one.
func (b *Browser) BeginSelection(ctx context.Context) (dom.Selection, error) {
	if err := b.ensureBinding(); err != nil {
		return nil, fmt.Errorf("add runtime binding: %w", err)
	}

	b.mu.Lock()
	prev := b.current
	b.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	if err := chromedp.Run(b.ctx,
		chromedp.Evaluate(helperScript, nil),
		chromedp.Evaluate(fmt.Sprintf("%s(%q)", selectScript, bindingName), nil),
	); err != nil {
		return nil, fmt.Errorf("attach selection listeners: %w", err)
	}

	sel := newSelection(b)
	b.mu.Lock()
	b.current = sel
	b.mu.Unlock()

	b.log.Info("Selection listeners attached")
	return sel, nil
}

type bindingPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// onEvent runs on the CDP event goroutine and must not block or issue commands.
func (b *Browser) onEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok || called.Name != bindingName {
		return
	}

	var p bindingPayload
	if err := json.Unmarshal([]byte(called.Payload), &p); err != nil {
		b.log.Warn("Bad selection payload", zap.String("payload", called.Payload), zap.Error(err))
		return
	}

	b.mu.Lock()
	sel := b.current
	b.mu.Unlock()
	if sel == nil {
		return
	}

	switch p.Type {
	case "pick":
		sel.pick(&Element{b: b, id: p.ID})
	case "cancel":
		sel.cancel()
	}
}

func (b *Browser) release(sel *selection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == sel {
		b.current = nil
	}
}
