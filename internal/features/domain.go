package features

import (
	"net/url"
	"strings"
)

// DefaultDomainPrior applies to unknown hosts and unparseable URLs.
const DefaultDomainPrior = 0.5

type domainRule struct {
	contains string
	prior    float64
}

// domainPriors is evaluated in order; the first host-contains match wins.
var domainPriors = []domainRule{
	{"wikipedia.", 0.9},
	{"github.", 0.9},
	{"arxiv.org", 0.9},
	{"developer.mozilla.org", 0.9},
	{"stackoverflow.", 0.85},
	{"medium.", 0.8},
	{"dev.to", 0.8},
}

// DomainPrior returns the static quality prior for the URL's host.
func DomainPrior(pageURL string) float64 {
	host := hostOf(pageURL)
	if host == "" {
		return DefaultDomainPrior
	}
	for _, r := range domainPriors {
		if strings.Contains(host, r.contains) {
			return r.prior
		}
	}
	return DefaultDomainPrior
}

func hostOf(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
