// Package session owns one scraping session: picking the list, running the
// scroll driver over it and handing the final records to the caller.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-contact-scraper/internal/dom"
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/internal/scraper"
	"go-contact-scraper/internal/store"
	"go-contact-scraper/pkg/models"
)

type State int

const (
	Idle State = iota
	Selecting
	Scraping
	Stopped
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Scraping:
		return "scraping"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Status lines shown by a host panel.
const (
	StatusReady         = "Ready"
	StatusSelecting     = "Hover over list & click"
	StatusScraping      = "Scraping... (Auto-scrolling)"
	StatusFinished      = "Finished! Download below."
	StatusStopped       = "Stopped."
	StatusCancelled     = "Selection cancelled."
	StatusNotScrollable = "Error: Not scrollable. Click the list itself."
)

// Result is what a session hands back when it ends.
type Result struct {
	Count   int
	Records []models.ContactRecord
	// Finished is true when the list ran out on its own rather than being stopped.
	Finished bool
}

type Config struct {
	Driver  scraper.Config
	Rules   extract.Rules
	Store   store.Options
	MaxHops int
}

// Controller is the single owner of a session's mutable state.
type Controller struct {
	id       uuid.UUID
	cfg      Config
	picker   dom.Picker
	store    *store.Store
	driver   *scraper.Driver
	listener scraper.Listener
	log      *zap.Logger

	driverOpts []scraper.Option

	mu        sync.Mutex
	state     State
	status    string
	container dom.Element
	lastErr   error

	selection    dom.Selection
	endSelection context.CancelFunc // releases the goroutine waiting on selection
}

type Option func(*Controller)

// WithListener forwards driver events to l after the controller has handled them.
func WithListener(l scraper.Listener) Option { return func(c *Controller) { c.listener = l } }

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.log = l } }

// WithClock replaces the driver's clock, for tests.
func WithClock(clock scraper.Clock) Option {
	return func(c *Controller) { c.driverOpts = append(c.driverOpts, scraper.WithClock(clock)) }
}

func NewController(cfg Config, picker dom.Picker, opts ...Option) *Controller {
	c := &Controller{
		id:       uuid.New(),
		cfg:      cfg,
		picker:   picker,
		store:    store.New(cfg.Store),
		listener: scraper.ListenerFuncs{},
		log:      zap.NewNop(),
		state:    Idle,
		status:   StatusReady,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.listener == nil {
		c.listener = scraper.ListenerFuncs{}
	}
	c.log = c.log.With(zap.String("session", c.id.String()))

	driverOpts := append([]scraper.Option{
		scraper.WithLogger(c.log),
		scraper.WithListener(scraper.ListenerFuncs{
			Progress: c.listener.OnProgress,
			Finished: c.onFinished,
		}),
	}, c.driverOpts...)
	c.driver = scraper.NewDriver(cfg.Driver, extract.NewClassifier(cfg.Rules), c.store, driverOpts...)
	return c
}

// ID identifies the session in logs and storage.
func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is the human-readable line for the current state.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the error that last sent the session back to Idle, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Done is closed when the current scrape ends. It is nil before scraping starts.
func (c *Controller) Done() <-chan struct{} {
	return c.driver.Done()
}

// EnterSelectionMode starts element picking. The first click resolves the list
// and starts scraping; Escape returns the session to Idle.
func (c *Controller) EnterSelectionMode(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Selecting || c.state == Scraping {
		return ErrBusy
	}

	sel, err := c.picker.BeginSelection(ctx)
	if err != nil {
		return fmt.Errorf("begin selection: %w", err)
	}

	selCtx, cancel := context.WithCancel(ctx)
	c.selection = sel
	c.endSelection = cancel
	c.state = Selecting
	c.status = StatusSelecting
	c.lastErr = nil
	c.store.Clear()
	c.log.Info("Selection mode entered")

	go c.awaitSelection(ctx, selCtx, sel)
	return nil
}

func (c *Controller) awaitSelection(ctx, selCtx context.Context, sel dom.Selection) {
	select {
	case el := <-sel.Picked():
		c.closeSelection(sel)
		if err := c.Select(ctx, el); err != nil {
			c.log.Warn("Selection did not start a scrape", zap.Error(err))
		}
	case <-sel.Cancelled():
		c.closeSelection(sel)
		c.toIdle(StatusCancelled, ErrSelectionCancelled)
		c.log.Info("Selection cancelled")
	case <-selCtx.Done():
		c.closeSelection(sel)
		c.toIdle(StatusReady, ctx.Err())
	}
}

func (c *Controller) closeSelection(sel dom.Selection) {
	if err := sel.Close(); err != nil {
		c.log.Warn("Detaching selection listeners failed", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == sel {
		c.selection = nil
		c.endSelection()
		c.endSelection = nil
	}
}

func (c *Controller) toIdle(status string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Selecting {
		c.state = Idle
		c.status = status
		c.lastErr = err
	}
}

// Select resolves the scroll container around target and starts scraping it.
// It is what a click in selection mode does, and can be called directly when
// the target is already known.
func (c *Controller) Select(ctx context.Context, target dom.Element) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Scraping {
		return ErrBusy
	}

	container, err := ResolveContainer(ctx, target, c.cfg.MaxHops)
	if err != nil {
		c.state = Idle
		c.lastErr = err
		if errors.Is(err, ErrNoScrollableTarget) {
			c.status = StatusNotScrollable
		} else {
			c.status = "Error: " + err.Error()
		}
		c.log.Warn("Could not resolve scroll container", zap.Error(err))
		return err
	}

	c.store.Clear()
	if err := container.SetClass(ctx, dom.ClassTarget, true); err != nil {
		c.log.Debug("Marking target failed", zap.Error(err))
	}
	if err := c.driver.Start(ctx, container); err != nil {
		c.state = Idle
		c.lastErr = err
		return fmt.Errorf("start driver: %w", err)
	}

	c.container = container
	c.state = Scraping
	c.status = StatusScraping
	c.lastErr = nil
	c.log.Info("Scraping started")
	return nil
}

// StopSession ends selection or scraping and returns the records collected so
// far. Calling it again returns the same records.
func (c *Controller) StopSession() Result {
	c.mu.Lock()
	sel := c.selection
	c.mu.Unlock()

	if sel != nil {
		c.closeSelection(sel)
		c.toIdle(StatusReady, nil)
	}

	c.driver.Stop()
	c.driver.Wait()

	c.mu.Lock()
	if c.state == Scraping {
		c.state = Stopped
		c.status = StatusStopped
		c.log.Info("Scraping stopped by user", zap.Int("count", c.store.Len()))
	}
	c.mu.Unlock()

	c.unmarkContainer()
	return c.Snapshot()
}

// Snapshot returns the records collected so far.
func (c *Controller) Snapshot() Result {
	records := c.store.Snapshot()
	return Result{
		Count:    len(records),
		Records:  records,
		Finished: c.driver.Finished(),
	}
}

func (c *Controller) onFinished(p scraper.Progress) {
	c.mu.Lock()
	c.state = Stopped
	c.status = StatusFinished
	c.mu.Unlock()

	c.unmarkContainer()
	c.listener.OnFinished(p)
}

func (c *Controller) unmarkContainer() {
	c.mu.Lock()
	container := c.container
	c.container = nil
	c.mu.Unlock()

	if container == nil {
		return
	}
	if err := container.SetClass(context.Background(), dom.ClassTarget, false); err != nil {
		c.log.Debug("Unmarking target failed", zap.Error(err))
	}
}
