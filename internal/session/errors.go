package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoScrollableTarget means neither ancestor walk found a scrolling element.
	ErrNoScrollableTarget = errors.New("no scrollable ancestor")
	// ErrBusy is returned when a selection or scrape is already in progress.
	ErrBusy = errors.New("session busy")
	// ErrSelectionCancelled is reported when the user pressed Escape.
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// TargetResolutionError reports a click that did not land inside a scrollable list.
type TargetResolutionError struct {
	// Walked is the number of elements inspected across both walks.
	Walked int
	Err    error
}

func (e *TargetResolutionError) Error() string {
	return fmt.Sprintf("resolve scroll container (walked %d elements): %v", e.Walked, e.Err)
}

func (e *TargetResolutionError) Unwrap() error { return e.Err }
