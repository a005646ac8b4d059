// Package processing cleans aggregated result records before indexing.
package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/DeafMist/metasearch-overlay/internal/models"
)

var (
	// ErrMissingURL means the record has no absolute http(s) URL.
	ErrMissingURL = errors.New("result has no absolute url")
	// ErrNoEngines means the record was not attributed to any engine.
	ErrNoEngines = errors.New("result has no engines")
)

var trackerParams = []*regexp.Regexp{
	regexp.MustCompile(`^utm_`),
	regexp.MustCompile(`^(wkey|wemail)`),
	regexp.MustCompile(`^(_hsenc|_hsmi|hsCtaTracking|__hssc|__hstc|__hsfp)`),
	regexp.MustCompile(`^tl`),
}

var whitespace = regexp.MustCompile(`\s+`)

// StripTrackers removes tracking query parameters from raw. The remaining
// parameters keep their order. Unparseable input is returned unchanged.
func StripTrackers(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	parts := strings.Split(u.RawQuery, "&")
	kept := parts[:0]
	changed := false
	for _, part := range parts {
		if part == "" {
			changed = true
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if isTracker(name) {
			changed = true
			continue
		}
		kept = append(kept, part)
	}
	if !changed {
		return raw
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

func isTracker(name string) bool {
	for _, re := range trackerParams {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

// CleanText decodes HTML entities and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// BuildResultID hashes the result URL to form a deterministic document ID.
func BuildResultID(rawURL string) string {
	s := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(s[:])
}

// Options control Normalize.
type Options struct {
	StripTrackers bool
}

// Normalize validates res and returns a cleaned copy ready for indexing.
func Normalize(res models.Result, opts Options) (models.Result, error) {
	res.URL = strings.TrimSpace(res.URL)
	if !isAbsoluteHTTP(res.URL) {
		return res, ErrMissingURL
	}

	engines := make([]string, 0, len(res.Engines))
	seen := make(map[string]struct{}, len(res.Engines))
	for _, e := range res.Engines {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		engines = append(engines, e)
	}
	if len(engines) == 0 {
		return res, ErrNoEngines
	}
	res.Engines = engines

	if opts.StripTrackers {
		res.URL = StripTrackers(res.URL)
	}

	sitelinks := make([]models.Sitelink, 0, len(res.Sitelinks))
	for _, sl := range res.Sitelinks {
		sl.URL = strings.TrimSpace(sl.URL)
		if sl.URL == "" {
			continue
		}
		if opts.StripTrackers {
			sl.URL = StripTrackers(sl.URL)
		}
		sl.Title = CleanText(sl.Title)
		sitelinks = append(sitelinks, sl)
	}
	res.Sitelinks = sitelinks

	res.Title = CleanText(res.Title)
	if res.Title == "" {
		res.Title = res.URL
	}
	res.Content = CleanText(res.Content)
	res.Metadata = SanitizeMetadata(res.Metadata)
	if !isAbsoluteHTTP(res.Thumbnail) {
		res.Thumbnail = ""
	}
	res.Author = strings.TrimSpace(res.Author)
	res.Category = strings.TrimSpace(res.Category)
	res.ID = BuildResultID(res.URL)

	return res, nil
}
