package session

import (
	"context"
	"fmt"

	"go-contact-scraper/internal/dom"
)

// DefaultMaxHops bounds the style-aware ancestor walk.
const DefaultMaxHops = 5

// ResolveContainer finds the scrolling list around a clicked element.
//
// The first walk inspects the clicked element and up to maxHops ancestors for
// an overflow-y of auto or scroll with content taller than the box. Failing
// that, a second walk starts at the parent and returns the first ancestor
// whose content overflows, ignoring style. maxHops <= 0 walks to the body.
func ResolveContainer(ctx context.Context, target dom.Element, maxHops int) (dom.Element, error) {
	walked := 0

	cur := target
	for hop := 0; cur != nil && (maxHops <= 0 || hop <= maxHops); hop++ {
		m, err := cur.Metrics(ctx)
		if err != nil {
			return nil, fmt.Errorf("read metrics: %w", err)
		}
		walked++
		if m.Scrollable() {
			return cur, nil
		}
		if cur, err = cur.Parent(ctx); err != nil {
			return nil, fmt.Errorf("walk to parent: %w", err)
		}
	}

	cur, err := target.Parent(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk to parent: %w", err)
	}
	for cur != nil {
		m, err := cur.Metrics(ctx)
		if err != nil {
			return nil, fmt.Errorf("read metrics: %w", err)
		}
		walked++
		if m.Overflowing() {
			return cur, nil
		}
		if cur, err = cur.Parent(ctx); err != nil {
			return nil, fmt.Errorf("walk to parent: %w", err)
		}
	}

	return nil, &TargetResolutionError{Walked: walked, Err: ErrNoScrollableTarget}
}
