package browser

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// HostGate decides from robots.txt whether a page may be opened. Groups are
// cached per host.
type HostGate struct {
	UserAgent string
	Client    *http.Client
	log       *zap.Logger

	mu          sync.Mutex
	robotsCache map[string]*robotstxt.Group
}

func NewHostGate(userAgent string, log *zap.Logger) *HostGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &HostGate{
		UserAgent:   userAgent,
		Client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
		robotsCache: make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether robots.txt lets UserAgent fetch target. A missing or
// unreadable robots.txt allows everything.
func (g *HostGate) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}

	g.mu.Lock()
	group, ok := g.robotsCache[u.Host]
	g.mu.Unlock()

	if !ok {
		group = g.fetch(ctx, u)
		g.mu.Lock()
		g.robotsCache[u.Host] = group
		g.mu.Unlock()
	}

	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *HostGate) fetch(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	log := g.log.With(zap.String("robots", robotsURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		log.Debug("robots.txt unreachable", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Debug("robots.txt unreadable", zap.Error(err))
		return nil
	}
	return data.FindGroup(g.UserAgent)
}
