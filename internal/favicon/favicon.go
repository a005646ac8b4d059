// Package favicon resolves favicon URLs for result hosts.
//
// The Adapter only builds links to the local favicon endpoint, so rendering
// never waits on the network. The Fetcher backs that endpoint and talks to
// the upstream resolver.
package favicon

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownResolver is returned for resolver names without an upstream.
var ErrUnknownResolver = errors.New("unknown favicon resolver")

var upstreams = map[string]func(host string) string{
	"allesedv": func(host string) string {
		return "https://f1.allesedv.com/32/" + url.PathEscape(host)
	},
	"duckduckgo": func(host string) string {
		return "https://icons.duckduckgo.com/ip3/" + url.PathEscape(host) + ".ico"
	},
	"google": func(host string) string {
		return "https://www.google.com/s2/favicons?" + url.Values{"sz": {"32"}, "domain_url": {host}}.Encode()
	},
	"yandex": func(host string) string {
		return "https://favicon.yandex.net/favicon/" + url.PathEscape(host)
	},
}

// Valid reports whether name is a known resolver.
func Valid(name string) bool {
	_, ok := upstreams[name]
	return ok
}

// UpstreamURL returns the resolver's URL for host.
func UpstreamURL(resolver, host string) (string, error) {
	build, ok := upstreams[resolver]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownResolver, resolver)
	}
	return build(host), nil
}

// Adapter builds favicon links pointing at the local favicon endpoint.
type Adapter struct {
	endpoint string
}

// NewAdapter returns an Adapter whose links target endpoint, e.g. "/favicon".
func NewAdapter(endpoint string) *Adapter {
	return &Adapter{endpoint: endpoint}
}

// URL returns the favicon link for host. It reports false when the resolver is
// unknown or the host is unusable; callers then omit the favicon.
func (a *Adapter) URL(resolver, host string) (string, bool) {
	host = strings.TrimSpace(host)
	if a == nil || !Valid(resolver) || host == "" || strings.ContainsAny(host, "/?#@ ") {
		return "", false
	}
	q := url.Values{"authority": {strings.ToLower(host)}, "resolver": {resolver}}
	return a.endpoint + "?" + q.Encode(), true
}
