package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-contact-scraper/internal/dom"
	"go-contact-scraper/internal/export"
	"go-contact-scraper/internal/scraper"
	"go-contact-scraper/internal/session"
	"go-contact-scraper/internal/storage"
)

// run is one session plus its optional database sink.
type run struct {
	ctrl *session.Controller
	log  *zap.Logger
	cfg  exportSettings

	sink       *storage.ContactSink
	feed       *storage.Feed
	queue      chan storage.Change
	workerDone <-chan struct{}
	db         *sql.DB

	drainOnce sync.Once
	closeOnce sync.Once
}

type exportSettings struct {
	exporter *export.Exporter
	format   export.Format
	dir      string
}

func (a *app) newRun(ctx context.Context, picker dom.Picker, opts ...session.Option) (*run, error) {
	exporter, format, err := a.cfg.Exporter()
	if err != nil {
		return nil, err
	}
	r := &run{
		log: a.log,
		cfg: exportSettings{exporter: exporter, format: format, dir: a.cfg.OutputDir},
	}

	listeners := scraper.Listeners{scraper.ListenerFuncs{
		Progress: func(p scraper.Progress) {
			a.log.Info("Progress",
				zap.Int("tick", p.Tick), zap.Int("count", p.Count),
				zap.Int("changed", len(p.Changed)), zap.Int("removed", len(p.Removed)))
		},
		Finished: func(p scraper.Progress) {
			a.log.Info("List exhausted", zap.Int("tick", p.Tick), zap.Int("count", p.Count))
		},
	}}

	if a.cfg.DatabaseURL != "" {
		r.queue = make(chan storage.Change, a.cfg.BatchSize*4)
		r.feed = storage.NewFeed(r.queue)
		listeners = append(listeners, r.feed)
	}

	opts = append([]session.Option{session.WithLogger(a.log), session.WithListener(listeners)}, opts...)
	r.ctrl = session.NewController(a.cfg.Session(), picker, opts...)

	if r.queue != nil {
		if err := r.openSink(ctx, a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *run) openSink(ctx context.Context, a *app) error {
	db, err := storage.Open(ctx, a.cfg.DatabaseURL, 10, 2*time.Second, a.log)
	if err != nil {
		return err
	}
	if err := r.startSink(ctx, db, a.cfg.BatchSize, a.cfg.FlushInterval); err != nil {
		db.Close()
		return err
	}
	return nil
}

// startSink creates the schema and starts the batch worker draining r.queue.
func (r *run) startSink(ctx context.Context, db *sql.DB, batchSize int, flushEvery time.Duration) error {
	st := storage.NewStorage(db)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	r.db = db
	r.sink = storage.NewContactSink(st, r.ctrl.ID(), r.log)
	r.workerDone = storage.StartBatchWorker(ctx, r.queue, batchSize, flushEvery, r.sink, r.log)
	return nil
}

// drain stops the driver, closes the queue and waits for the worker's last
// flush. The driver must be stopped first so the feed never sends on a closed
// channel.
func (r *run) drain() {
	r.drainOnce.Do(func() {
		r.ctrl.StopSession()
		if r.sink == nil {
			return
		}
		close(r.queue)
		<-r.workerDone
	})
}

// close releases the session and the database. It is safe to call after
// finish and on every error path.
func (r *run) close() {
	r.drain()
	r.closeOnce.Do(func() {
		if r.db == nil {
			return
		}
		if err := r.db.Close(); err != nil {
			r.log.Warn("Closing database failed", zap.Error(err))
		}
	})
}

// finish drains the sink, makes the session's rows match the final records
// and writes the export file.
func (r *run) finish(res session.Result) error {
	if r.sink != nil {
		r.drain()
		if dropped := r.feed.Dropped(); dropped > 0 {
			r.log.Warn("Sink queue overflowed; final sync covers it", zap.Int64("dropped", dropped))
		}
		if err := r.sink.Sync(res.Records); err != nil {
			r.log.Error("Final sync failed", zap.Error(err))
		}
	}

	r.log.Info("Session ended",
		zap.Int("count", res.Count),
		zap.Bool("finished", res.Finished),
		zap.String("status", r.ctrl.Status()),
	)

	doc, err := r.cfg.exporter.Render(res.Records, r.cfg.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.cfg.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(r.cfg.dir, doc.Filename)
	if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	r.log.Info("Export written", zap.String("path", path), zap.String("mime", doc.MimeType))
	fmt.Println(path)
	return nil
}
