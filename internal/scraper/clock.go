package scraper

import "time"

// Ticker is the part of time.Ticker the driver uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers and reads the time. Tests swap in a ManualClock.
type Clock interface {
	NewTicker(d time.Duration) Ticker
	Now() time.Time
}

type realClock struct{}

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) NewTicker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }
func (realClock) Now() time.Time { return time.Now() }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop() { r.t.Stop() }

// ManualClock fires ticks only when told to.
type ManualClock struct {
	now time.Time
	ch  chan time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, ch: make(chan time.Time)}
}

func (m *ManualClock) NewTicker(time.Duration) Ticker { return manualTicker{ch: m.ch} }
func (m *ManualClock) Now() time.Time { return m.now }

// TickUntil delivers one tick, or gives up once done is closed. The send only
// completes when the driver loop is idle, so the previous tick has finished.
func (m *ManualClock) TickUntil(done <-chan struct{}) bool {
	select {
	case m.ch <- m.now:
		return true
	case <-done:
		return false
	}
}

type manualTicker struct{ ch chan time.Time }

func (t manualTicker) C() <-chan time.Time { return t.ch }
func (t manualTicker) Stop() {}
