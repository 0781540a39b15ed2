package storage

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-contact-scraper/internal/scraper"
	"go-contact-scraper/pkg/models"
)

// Sink persists a batch of items.
type Sink[T any] interface {
	Save(batch []T) error
}

// StartBatchWorker drains in into sink, flushing when the buffer reaches
// batchSize, when flushEvery elapses, and once more when in is closed or ctx
// ends. The returned channel is closed after the final flush.
func StartBatchWorker[T any](ctx context.Context, in <-chan T, batchSize int, flushEvery time.Duration, sink Sink[T], log *zap.Logger) <-chan struct{} {
	if log == nil {
		log = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)

		buffer := make([]T, 0, batchSize)
		ticker := time.NewTicker(flushEvery)
		defer ticker.Stop()

		flush := func() {
			if len(buffer) == 0 {
				return
			}
			if err := sink.Save(buffer); err != nil {
				log.Error("Batch save failed", zap.Int("size", len(buffer)), zap.Error(err))
			} else {
				log.Debug("Saved batch", zap.Int("size", len(buffer)))
			}
			buffer = buffer[:0]
		}

		for {
			select {
			case <-ctx.Done():
				flush()
				return
			case item, ok := <-in:
				if !ok {
					flush()
					return
				}
				buffer = append(buffer, item)
				if len(buffer) >= batchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
	return done
}

// Feed is a scraper.Listener that forwards changed and removed records to a
// batch worker. It never blocks the driver: when the channel is full the
// changes are counted as dropped and left for the final Sync.
type Feed struct {
	out     chan<- Change
	dropped atomic.Int64
}

var _ scraper.Listener = (*Feed)(nil)

func NewFeed(out chan<- Change) *Feed {
	return &Feed{out: out}
}

func (f *Feed) OnProgress(p scraper.Progress) { f.push(p) }
func (f *Feed) OnFinished(p scraper.Progress) { f.push(p) }

// Dropped returns how many changes could not be queued.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

func (f *Feed) push(p scraper.Progress) {
	for _, r := range p.Changed {
		f.send(Change{Record: r})
	}
	for _, key := range p.Removed {
		f.send(Change{Record: models.ContactRecord{Key: key}, Removed: true})
	}
}

func (f *Feed) send(c Change) {
	select {
	case f.out <- c:
	default:
		f.dropped.Add(1)
	}
}
