// Package scraper drives a scrollable list: every tick it parses the visible
// rows into the record store, scrolls forward, and stops on its own once the
// scroll offset has stopped moving.
package scraper

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-contact-scraper/internal/dom"
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/internal/store"
)

// Defaults for Config.
const (
	DefaultInterval            = 500 * time.Millisecond
	DefaultScrollStep          = 400
	DefaultStagnationThreshold = 6

	// stagnationEpsilon is the smallest offset change that counts as movement.
	stagnationEpsilon = 2.0
)

var ErrRunning = errors.New("scroll driver already running")

// Config holds driver settings.
type Config struct {
	Interval            time.Duration
	ScrollStep          float64
	StagnationThreshold int
	NodeSelector        string
	// ProgressEvery throttles progress events; zero emits one per tick.
	ProgressEvery time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:            DefaultInterval,
		ScrollStep:          DefaultScrollStep,
		StagnationThreshold: DefaultStagnationThreshold,
		NodeSelector:        dom.DefaultNodeSelector,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = d.ScrollStep
	}
	if c.StagnationThreshold <= 0 {
		c.StagnationThreshold = d.StagnationThreshold
	}
	if c.NodeSelector == "" {
		c.NodeSelector = d.NodeSelector
	}
	return c
}

// ScrollProgress tracks whether the container is still moving.
type ScrollProgress struct {
	LastScrollTop float64
	StagnantTicks int
}

func newScrollProgress() ScrollProgress {
	return ScrollProgress{LastScrollTop: -1}
}

// Observe records the offset after a scroll attempt and returns the stagnant tick count.
func (p *ScrollProgress) Observe(scrollTop float64) int {
	if math.Abs(scrollTop-p.LastScrollTop) < stagnationEpsilon {
		p.StagnantTicks++
	} else {
		p.LastScrollTop = scrollTop
		p.StagnantTicks = 0
	}
	return p.StagnantTicks
}

// Driver is the repeating scrape-and-scroll task.
type Driver struct {
	cfg        Config
	classifier *extract.Classifier
	store      *store.Store
	clock      Clock
	listener   Listener
	log        *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	finished bool
}

type Option func(*Driver)

func WithClock(c Clock) Option { return func(d *Driver) { d.clock = c } }
func WithListener(l Listener) Option { return func(d *Driver) { d.listener = l } }
func WithLogger(l *zap.Logger) Option { return func(d *Driver) { d.log = l } }

func NewDriver(cfg Config, classifier *extract.Classifier, st *store.Store, opts ...Option) *Driver {
	d := &Driver{
		cfg:        cfg.withDefaults(),
		classifier: classifier,
		store:      st,
		clock:      RealClock(),
		listener:   ListenerFuncs{},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.listener == nil {
		d.listener = ListenerFuncs{}
	}
	return d
}

// Start begins ticking against container. The loop runs until Stop is called,
// ctx is cancelled, or the list stagnates.
func (d *Driver) Start(ctx context.Context, container dom.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done != nil {
		select {
		case <-d.done:
		default:
			return ErrRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.finished = false

	ticker := d.clock.NewTicker(d.cfg.Interval)
	go d.loop(ctx, container, ticker, d.done)

	d.log.Info("Scroll driver started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Float64("step", d.cfg.ScrollStep),
		zap.Int("threshold", d.cfg.StagnationThreshold))
	return nil
}

// Stop cancels the ticker. It never waits and is a no-op when not running;
// use Wait to block until an in-flight tick has drained.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Wait blocks until the loop has exited.
func (d *Driver) Wait() {
	if done := d.Done(); done != nil {
		<-done
	}
}

// Done is closed when the loop exits. It is nil before the first Start.
func (d *Driver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Finished reports whether the last run ended because the list stopped scrolling.
func (d *Driver) Finished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished
}

func (d *Driver) loop(ctx context.Context, container dom.Element, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	limit := rate.Inf
	if d.cfg.ProgressEvery > 0 {
		limit = rate.Every(d.cfg.ProgressEvery)
	}
	progressLimiter := rate.NewLimiter(limit, 1)

	scroll := newScrollProgress()
	tick := 0

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Scroll driver stopped", zap.Int("ticks", tick))
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			tick++

			d.parseVisible(ctx, container)
			if progressLimiter.AllowN(d.clock.Now(), 1) {
				d.listener.OnProgress(d.progress(tick))
			}

			top, err := container.ScrollBy(ctx, d.cfg.ScrollStep)
			if err != nil {
				// An unreadable offset counts as no movement.
				d.log.Warn("Scroll failed", zap.Int("tick", tick), zap.Error(err))
				top = scroll.LastScrollTop
			}

			if scroll.Observe(top) >= d.cfg.StagnationThreshold {
				// A stop requested during this tick wins over finishing.
				if ctx.Err() != nil {
					d.log.Info("Scroll driver stopped", zap.Int("ticks", tick))
					return
				}
				d.mu.Lock()
				d.finished = true
				d.mu.Unlock()

				p := d.progress(tick)
				d.log.Info("List exhausted, finishing",
					zap.Int("ticks", tick), zap.Int("count", p.Count), zap.Float64("scroll_top", top))
				d.listener.OnFinished(p)
				return
			}
		}
	}
}

// parseVisible classifies every candidate node and upserts the qualifying ones.
func (d *Driver) parseVisible(ctx context.Context, container dom.Element) {
	nodes, err := container.Candidates(ctx, d.cfg.NodeSelector)
	if err != nil {
		d.log.Warn("Reading candidate nodes failed", zap.Error(err))
		return
	}
	for _, node := range nodes {
		if cand, ok := d.classifier.Classify(node.Text, node.Children); ok {
			d.store.Upsert(cand)
		}
	}
}

func (d *Driver) progress(tick int) Progress {
	records := d.store.Snapshot()
	changed, removed := d.store.Changes()
	return Progress{
		Tick:    tick,
		Count:   len(records),
		Records: records,
		Changed: changed,
		Removed: removed,
	}
}
