package browser

import (
	"context"

	"go-contact-scraper/internal/dom"
)

// Element is a handle on a page element stamped with a data-scraper-id.
type Element struct {
	b  *Browser
	id string
}

var _ dom.Element = (*Element)(nil)

func (e *Element) ID() string { return e.id }

func (e *Element) Parent(ctx context.Context) (dom.Element, error) {
	var id string
	if err := e.b.call(ctx, &id, "parent", e.id); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return &Element{b: e.b, id: id}, nil
}

type metricsResult struct {
	OK           bool    `json:"ok"`
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
	OverflowY    string  `json:"overflowY"`
}

func (e *Element) Metrics(ctx context.Context) (dom.Metrics, error) {
	var res metricsResult
	if err := e.b.call(ctx, &res, "metrics", e.id); err != nil {
		return dom.Metrics{}, err
	}
	if !res.OK {
		return dom.Metrics{}, ErrDetached
	}
	return dom.Metrics{
		ScrollTop:    res.ScrollTop,
		ScrollHeight: res.ScrollHeight,
		ClientHeight: res.ClientHeight,
		OverflowY:    res.OverflowY,
	}, nil
}

func (e *Element) Candidates(ctx context.Context, selector string) ([]dom.Node, error) {
	var nodes []struct {
		Text     string `json:"text"`
		Children int    `json:"children"`
	}
	if err := e.b.call(ctx, &nodes, "candidates", e.id, selector); err != nil {
		return nil, err
	}

	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = dom.Node{Text: n.Text, Children: n.Children}
	}
	return out, nil
}

func (e *Element) ScrollBy(ctx context.Context, delta float64) (float64, error) {
	var top float64
	if err := e.b.call(ctx, &top, "scrollBy", e.id, delta); err != nil {
		return 0, err
	}
	if top < 0 {
		return 0, ErrDetached
	}
	return top, nil
}

func (e *Element) SetClass(ctx context.Context, class string, on bool) error {
	var found bool
	if err := e.b.call(ctx, &found, "setClass", e.id, class, on); err != nil {
		return err
	}
	if !found {
		return ErrDetached
	}
	return nil
}
