package strategy

import (
	"net/url"
	"strings"
)

var (
	githubSelectors = map[string]string{
		"title":   "h1.entry-title, .js-issue-title, .repository-content h1",
		"content": ".entry-content, .markdown-body, .comment-body",
		"author":  ".author, .commit-author, .discussion-item-header a",
		"date":    "time, .commit-date, relative-time",
	}
	blogSelectors = map[string]string{
		"title":   "h1, .entry-title, .post-title, [data-testid='storyTitle']",
		"content": ".entry-content, .post-content, .story-content, article",
		"author":  ".author, .byline, .writer, [data-testid='authorName']",
		"date":    "time, .date, .published, [data-testid='storyPublishDate']",
	}
	newsPatterns = []Pattern{
		{Name: "title", Pattern: `<title>([^<]+)</title>`, Field: "title", Required: true},
		{Name: "points", Pattern: `(\d+)\s+points?`, Field: "score"},
		{Name: "comments", Pattern: `(\d+)\s+comments?`, Field: "comment_count"},
	}
)

// rule maps hosts containing any of hosts to a strategy. Built-in strategies
// are compiled once; Select hands out copies.
type rule struct {
	hosts    []string
	strategy Strategy
}

var rules = []rule{
	{hosts: []string{"github.com"}, strategy: mustCSSJSON(githubSelectors)},
	{hosts: []string{"wikipedia.org"}, strategy: Trek{}},
	{hosts: []string{"medium.com", "dev.to"}, strategy: mustCSSJSON(blogSelectors)},
	{hosts: []string{"reddit.com", "news.ycombinator.com"}, strategy: mustRegex(newsPatterns)},
}

// Select returns a copy of the strategy of the first rule whose host
// fragment occurs in the URL host. Unknown hosts and unparsable URLs get
// Trek.
func Select(rawURL string) Strategy {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Trek{}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Trek{}
	}
	for _, r := range rules {
		for _, h := range r.hosts {
			if strings.Contains(host, h) {
				return copyOf(r.strategy)
			}
		}
	}
	return Trek{}
}

func copyOf(s Strategy) Strategy {
	switch v := s.(type) {
	case *CSSJSON:
		return v.clone()
	case *Regex:
		return v.clone()
	}
	return s
}

func mustCSSJSON(selectors map[string]string) *CSSJSON {
	s, err := NewCSSJSON(selectors)
	if err != nil {
		panic(err)
	}
	return s
}

func mustRegex(patterns []Pattern) *Regex {
	r, err := NewRegex(patterns)
	if err != nil {
		panic(err)
	}
	return r
}
