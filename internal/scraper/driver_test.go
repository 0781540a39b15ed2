package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-scraper/internal/dom"
	"go-contact-scraper/internal/dom/domtest"
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/internal/store"
)

type recorder struct {
	mu       sync.Mutex
	progress []Progress
	finished []Progress
}

func (r *recorder) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnFinished(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, p)
}

func newTestDriver(cfg Config, l Listener) (*Driver, *store.Store, *ManualClock) {
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	st := store.New(store.Options{})
	d := NewDriver(cfg, extract.NewClassifier(extract.DefaultRules()), st,
		WithClock(clock), WithListener(l))
	return d, st, clock
}

// runToEnd ticks until the driver exits and returns how many ticks it consumed.
func runToEnd(t *testing.T, d *Driver, clock *ManualClock, limit int) int {
	t.Helper()
	ticks := 0
	for ticks < limit && clock.TickUntil(d.Done()) {
		ticks++
	}
	require.Less(t, ticks, limit, "driver never stopped")
	d.Wait()
	return ticks
}

func contactRows(n int) []dom.Node {
	rows := make([]dom.Node, n)
	for i := range rows {
		rows[i] = dom.Node{Text: fmt.Sprintf("Person %d\n+1 415-555-%04d", i, i), Children: 2}
	}
	return rows
}

func TestDriver_StopsAfterStagnation(t *testing.T) {
	rec := &recorder{}
	d, _, clock := newTestDriver(Config{ScrollStep: 400, StagnationThreshold: 6}, rec)

	list := &domtest.Element{Metric: dom.Metrics{ScrollHeight: 1200, ClientHeight: 400, OverflowY: "auto"}}
	require.NoError(t, d.Start(context.Background(), list))

	ticks := runToEnd(t, d, clock, 50)

	// The offset moves on ticks 1 and 2 and is stuck from then on.
	assert.Equal(t, 2+6, ticks)
	assert.True(t, d.Finished())
	assert.Len(t, rec.finished, 1)
	assert.Len(t, rec.progress, ticks)
	assert.Equal(t, float64(800), list.ScrollTop())
}

func TestDriver_CollectsRowsAsTheyRender(t *testing.T) {
	rec := &recorder{}
	d, st, clock := newTestDriver(Config{ScrollStep: 400, StagnationThreshold: 3}, rec)

	list := &domtest.Element{
		Metric: dom.Metrics{ScrollHeight: 1200, ClientHeight: 400, OverflowY: "auto"},
		Rows:   append(contactRows(6), dom.Node{Text: "View all (6 more)\nmembers", Children: 1}),
		Window: 2,
		Step:   400,
	}
	require.NoError(t, d.Start(context.Background(), list))
	runToEnd(t, d, clock, 50)

	require.Len(t, rec.finished, 1)
	final := rec.finished[0]
	assert.Equal(t, 6, final.Count)
	assert.Equal(t, 6, st.Len())
	assert.Equal(t, "Person 0", final.Records[0].Name)

	var changed int
	for _, p := range rec.progress {
		changed += len(p.Changed)
	}
	assert.Equal(t, 6, changed, "each record should be reported as changed exactly once")
}

func TestDriver_UserStopEmitsNoFinished(t *testing.T) {
	rec := &recorder{}
	d, _, clock := newTestDriver(Config{}, rec)

	list := &domtest.Element{Metric: dom.Metrics{ScrollHeight: 100000, ClientHeight: 400, OverflowY: "auto"}}
	require.NoError(t, d.Start(context.Background(), list))

	require.True(t, clock.TickUntil(d.Done()))
	require.True(t, clock.TickUntil(d.Done()))

	d.Stop()
	d.Wait()
	d.Stop()

	assert.False(t, clock.TickUntil(d.Done()), "no tick may run after Stop")
	assert.False(t, d.Finished())
	assert.Empty(t, rec.finished)
	assert.Equal(t, 2, list.ScrollCalls)
}

func TestDriver_StopDuringLastTickIsNotFinished(t *testing.T) {
	rec := &recorder{}
	var d *Driver
	stopper := Listeners{ListenerFuncs{Progress: func(Progress) { d.Stop() }}, rec}
	d, _, clock := newTestDriver(Config{StagnationThreshold: 1}, stopper)

	list := &domtest.Element{Metric: dom.Metrics{OverflowY: "auto"}}
	require.NoError(t, d.Start(context.Background(), list))

	require.True(t, clock.TickUntil(d.Done()))
	d.Wait()

	assert.False(t, d.Finished())
	assert.Empty(t, rec.finished)
	assert.Len(t, rec.progress, 1)
}

func TestDriver_ProgressReportsRemovedKeys(t *testing.T) {
	rec := &recorder{}
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	st := store.New(store.Options{Merge: store.MergeReprocess})
	d := NewDriver(Config{StagnationThreshold: 3}, extract.NewClassifier(extract.DefaultRules()), st,
		WithClock(clock), WithListener(rec))

	list := &domtest.Element{
		Metric: dom.Metrics{ScrollHeight: 1200, ClientHeight: 400, OverflowY: "auto"},
		Rows: []dom.Node{
			{Text: "Jane Doe\nAt work", Children: 2},
			{Text: "Jane Doe\n+44 20 7946 0958", Children: 2},
		},
		Window: 1,
		Step:   400,
	}
	require.NoError(t, d.Start(context.Background(), list))
	runToEnd(t, d, clock, 20)

	require.GreaterOrEqual(t, len(rec.progress), 2)
	assert.Equal(t, "Jane Doe\nAt work", rec.progress[0].Changed[0].Key)
	assert.Equal(t, []string{"Jane Doe\nAt work"}, rec.progress[1].Removed)
	assert.Equal(t, 1, st.Len())
}

func TestDriver_NilLoggerAndListener(t *testing.T) {
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewDriver(Config{StagnationThreshold: 1}, extract.NewClassifier(extract.DefaultRules()), store.New(store.Options{}),
		WithClock(clock), WithLogger(nil), WithListener(nil))

	require.NoError(t, d.Start(context.Background(), &domtest.Element{}))
	assert.NotPanics(t, func() { runToEnd(t, d, clock, 10) })
	assert.True(t, d.Finished())
}

func TestDriver_StopBeforeStartIsNoop(t *testing.T) {
	d, _, _ := newTestDriver(Config{}, ListenerFuncs{})
	assert.NotPanics(t, func() {
		d.Stop()
		d.Wait()
	})
	assert.Nil(t, d.Done())
}

func TestDriver_StartWhileRunning(t *testing.T) {
	d, _, _ := newTestDriver(Config{}, ListenerFuncs{})
	list := &domtest.Element{}

	require.NoError(t, d.Start(context.Background(), list))
	assert.ErrorIs(t, d.Start(context.Background(), list), ErrRunning)

	d.Stop()
	d.Wait()
	assert.NoError(t, d.Start(context.Background(), list))
	d.Stop()
	d.Wait()
}

func TestDriver_ScrollErrorsCountAsStagnation(t *testing.T) {
	rec := &recorder{}
	d, _, clock := newTestDriver(Config{StagnationThreshold: 4}, rec)

	list := &domtest.Element{Err: errors.New("target closed")}
	require.NoError(t, d.Start(context.Background(), list))

	ticks := runToEnd(t, d, clock, 50)
	assert.Equal(t, 4, ticks)
	assert.Len(t, rec.finished, 1)
	assert.Zero(t, rec.finished[0].Count)
}

func TestDriver_ContextCancelStops(t *testing.T) {
	d, _, clock := newTestDriver(Config{}, ListenerFuncs{})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, d.Start(ctx, &domtest.Element{}))
	cancel()
	d.Wait()

	assert.False(t, clock.TickUntil(d.Done()))
	assert.False(t, d.Finished())
}

func TestScrollProgress_Observe(t *testing.T) {
	p := newScrollProgress()

	assert.Equal(t, 1, p.Observe(0), "a move of under 2px from the initial -1 is stagnant")
	assert.Equal(t, 0, p.Observe(400))
	assert.Equal(t, 1, p.Observe(401))
	assert.Equal(t, 2, p.Observe(400.5))
	assert.Equal(t, 0, p.Observe(402))
	assert.Equal(t, float64(402), p.LastScrollTop)
}
