package scraper

import "go-contact-scraper/pkg/models"

// Progress is the payload of progress and finished events.
type Progress struct {
	Tick    int
	Count   int
	Records []models.ContactRecord
	// Changed holds the records inserted or modified since the previous event.
	Changed []models.ContactRecord
	// Removed holds the keys of previously reported records that were folded
	// into another record.
	Removed []string
}

// Listener receives driver events on the driver goroutine. Implementations
// must not block.
type Listener interface {
	OnProgress(Progress)
	// OnFinished fires once, when the list stopped scrolling on its own.
	OnFinished(Progress)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Progress func(Progress)
	Finished func(Progress)
}

func (l ListenerFuncs) OnProgress(p Progress) {
	if l.Progress != nil {
		l.Progress(p)
	}
}

func (l ListenerFuncs) OnFinished(p Progress) {
	if l.Finished != nil {
		l.Finished(p)
	}
}

// Listeners fans events out in order.
type Listeners []Listener

func (ls Listeners) OnProgress(p Progress) {
	for _, l := range ls {
		l.OnProgress(p)
	}
}

func (ls Listeners) OnFinished(p Progress) {
	for _, l := range ls {
		l.OnFinished(p)
	}
}
