// Package urlfmt turns result URLs into breadcrumb parts for display.
package urlfmt

import (
	"iter"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Mode is the user's URL formatting preference.
type Mode string

const (
	ModeFull Mode = "full"
	ModeHost Mode = "host"
)

// ParseMode maps a preference value to a Mode. Anything unrecognised is ModeFull.
func ParseMode(raw string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(raw))) == ModeHost {
		return ModeHost
	}
	return ModeFull
}

// ShowHost reports whether the host breadcrumb line is rendered. With the
// host-only preference the path breadcrumb carries the display on its own.
func (m Mode) ShowHost() bool {
	return m != ModeHost
}

// PrettyHost returns "scheme://host[:port]" with internationalised hosts
// decoded for display.
func PrettyHost(u *url.URL) string {
	if u == nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if decoded, err := idna.Display.ToUnicode(host); err == nil {
		host = decoded
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	}
	if u.Scheme == "" {
		return host
	}
	return u.Scheme + "://" + host
}

// PrettyPath yields the non-empty path segments of u from left to right,
// percent-decoded where possible. The sequence can be ranged over any number
// of times.
func PrettyPath(u *url.URL) iter.Seq[string] {
	return func(yield func(string) bool) {
		if u == nil {
			return
		}
		for _, seg := range strings.Split(u.EscapedPath(), "/") {
			if seg == "" {
				continue
			}
			if decoded, err := url.PathUnescape(seg); err == nil {
				seg = decoded
			}
			if !yield(seg) {
				return
			}
		}
	}
}
