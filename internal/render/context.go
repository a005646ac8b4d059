package render

import (
	"github.com/DeafMist/metasearch-overlay/internal/links"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

// FaviconSource yields a favicon URL for a host, or false when there is none.
type FaviconSource interface {
	URL(resolver, host string) (string, bool)
}

// Translator looks up display strings.
type Translator interface {
	Translate(key string) string
}

// Catalog is a Translator backed by a map. Missing keys translate to themselves.
type Catalog map[string]string

// Translate implements Translator.
func (c Catalog) Translate(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return key
}

// English is the built-in catalog.
var English = Catalog{
	"cached":             "cached",
	"proxied":            "proxied",
	"length":             "Length",
	"views":              "Views",
	"author":             "Author",
	"results_on_new_tab": "Open result links on new browser tabs",
	"proxify_results":    "Proxify result links",
}

// Context holds the per-request settings that drive rendering. It is only read
// while rendering and may be shared between goroutines.
type Context struct {
	ResultsOnNewTab bool
	// FaviconResolver names the favicon resolver; empty disables favicons.
	FaviconResolver string
	Favicons        FaviconSource
	URLFormatting   urlfmt.Mode
	ProxifyResults  bool
	ProxyMethod     string
	ProxyURL        string
	ProxyParams     []links.Param
	// ProxyTransform overrides the default result proxy transform.
	ProxyTransform links.Proxifier
	CacheURL       string
	// ImageProxy rewrites thumbnail URLs; nil links thumbnails directly.
	ImageProxy links.Proxifier
	Translator Translator
}

func (c Context) translator() Translator {
	if c.Translator == nil {
		return English
	}
	return c.Translator
}
