// Package robots decides whether the probe client may fetch a URL under the
// target host's robots.txt.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/contentcore/internal/cache"
)

const (
	// DefaultTTL is how long a fetched robots.txt is reused.
	DefaultTTL = 24 * time.Hour
	// maxRobotsBytes follows the 500 KiB parsing limit of RFC 9309.
	maxRobotsBytes = 500 << 10
	keyPrefix      = "robots:"
)

// Checker fetches and caches robots.txt per origin. Bodies are kept in
// Store so that they survive between runs when a persistent backend is
// configured; a nil Store uses process memory.
type Checker struct {
	HTTPClient *http.Client
	UserAgent  string
	Store      cache.Store
	TTL        time.Duration

	once  sync.Once
	group singleflight.Group
}

// Allowed reports whether UserAgent may fetch rawURL. A missing robots.txt
// (any 4xx) allows everything. Server errors and unreachable hosts disallow
// until the next attempt; those outcomes are not cached.
func (c *Checker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("url %q has no host", rawURL)
	}
	rules, err := c.rulesFor(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		log.Debug().Err(err).Str("host", u.Host).Msg("robots unavailable")
		return false, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.Allows(c.UserAgent, path), nil
}

// CrawlDelay returns the crawl-delay for UserAgent on rawURL's origin, or
// zero when none is declared or robots.txt cannot be read.
func (c *Checker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}
	rules, err := c.rulesFor(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return 0
	}
	return rules.CrawlDelay(c.UserAgent)
}

func (c *Checker) store() cache.Store {
	c.once.Do(func() {
		if c.Store == nil {
			c.Store = cache.NewMemoryStore()
		}
	})
	return c.Store
}

func (c *Checker) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *Checker) rulesFor(ctx context.Context, origin string) (*Rules, error) {
	key := keyPrefix + origin
	store := c.store()
	if body, ok, err := store.Get(ctx, key); err == nil && ok {
		return Parse(string(body)), nil
	} else if err != nil {
		log.Warn().Err(err).Str("origin", origin).Msg("robots cache read")
	}
	v, err, _ := c.group.Do(origin, func() (any, error) {
		body, err := c.download(ctx, origin+"/robots.txt")
		if err != nil {
			return nil, err
		}
		if err := store.Set(ctx, key, body, c.ttl()); err != nil {
			log.Warn().Err(err).Str("origin", origin).Msg("robots cache write")
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return Parse(string(v.([]byte))), nil
}

var errUnavailable = errors.New("robots.txt unavailable")

// download returns the robots body, or an empty body when the file does
// not exist.
func (c *Checker) download(ctx context.Context, robotsURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/plain")
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("%w: status %d", errUnavailable, resp.StatusCode)
	}
}

type rule struct {
	allow       bool
	re          *regexp.Regexp
	specificity int
}

// Group is one user-agent block.
type Group struct {
	Agents     []string
	CrawlDelay time.Duration
	rules      []rule
}

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Parse reads robots.txt content. Unknown directives and malformed lines
// are ignored. Consecutive user-agent lines share one group.
func Parse(body string) *Rules {
	r := &Rules{}
	var cur *Group
	lastWasAgent := false
	for _, line := range strings.Split(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			if cur == nil || !lastWasAgent {
				r.Groups = append(r.Groups, Group{})
				cur = &r.Groups[len(r.Groups)-1]
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
			lastWasAgent = true
			continue
		case "allow", "disallow":
			// An empty disallow allows everything and needs no rule.
			if cur != nil && val != "" {
				cur.rules = append(cur.rules, compileRule(val, key == "allow"))
			}
		case "crawl-delay":
			if cur != nil {
				if secs, err := strconv.ParseFloat(val, 64); err == nil && secs >= 0 {
					cur.CrawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
		}
		lastWasAgent = false
	}
	return r
}

func compileRule(pattern string, allow bool) rule {
	anchored := strings.HasSuffix(pattern, "$")
	body := strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(body, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}
	return rule{
		allow:       allow,
		re:          regexp.MustCompile(b.String()),
		specificity: len(strings.ReplaceAll(body, "*", "")),
	}
}

// Allows applies the most specific matching rule of the group chosen for
// agent. Allow wins a tie. No matching rule means allowed.
func (r *Rules) Allows(agent, path string) bool {
	g := r.groupFor(agent)
	if g == nil {
		return true
	}
	best := -1
	allowed := true
	for _, ru := range g.rules {
		if !ru.re.MatchString(path) {
			continue
		}
		if ru.specificity > best || (ru.specificity == best && ru.allow) {
			best = ru.specificity
			allowed = ru.allow
		}
	}
	return allowed
}

// CrawlDelay returns the delay declared by the group chosen for agent.
func (r *Rules) CrawlDelay(agent string) time.Duration {
	if g := r.groupFor(agent); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// groupFor picks the group whose agent token is the longest case-insensitive
// substring of agent's product token, falling back to "*".
func (r *Rules) groupFor(agent string) *Group {
	product := strings.ToLower(agent)
	if i := strings.IndexByte(product, '/'); i >= 0 {
		product = product[:i]
	}
	var wildcard *Group
	var best *Group
	bestLen := 0
	for i := range r.Groups {
		g := &r.Groups[i]
		for _, a := range g.Agents {
			if a == "*" {
				if wildcard == nil {
					wildcard = g
				}
				continue
			}
			if a != "" && strings.Contains(product, a) && len(a) > bestLen {
				best, bestLen = g, len(a)
			}
		}
	}
	if best != nil {
		return best
	}
	return wildcard
}
