// Package links builds the outbound links of a result card: the plain result
// link, the cached-copy link and the proxied-visit link.
package links

import (
	"net/http"
	"strings"
)

// Placeholder marks where the proxied URL goes in a POST parameter template.
const Placeholder = "%s"

// Kind identifies what a Descriptor links to.
type Kind int

const (
	KindPlain Kind = iota
	KindCache
	KindProxy
)

// Param is one POST form field of the result proxy. Order matters to some
// proxies, so params are kept in a slice.
type Param struct {
	Name     string
	Template string
}

// Field is a rendered hidden form field.
type Field struct {
	Name  string
	Value string
}

// Descriptor describes one link. Anchors use Href; forms use Href as action,
// Method POST and Fields as hidden inputs.
type Descriptor struct {
	Kind    Kind
	Href    string
	Method  string
	Fields  []Field
	Label   string
	Icon    string
	Classes string
	Target  string
	Rel     string
}

// IsForm reports whether the link must be rendered as a POST form.
func (d Descriptor) IsForm() bool {
	return d.Method == http.MethodPost
}

// Options configure a Builder.
type Options struct {
	NewTab      bool
	CacheURL    string
	Proxify     bool
	ProxyMethod string
	ProxyURL    string
	ProxyParams []Param
	// Proxifier transforms the target before it is linked or substituted.
	// Nil picks QueryProxifier{Endpoint: ProxyURL} for GET and Identity for POST.
	Proxifier Proxifier
	Translate func(key string) string
}

// Builder creates Descriptors. It holds no mutable state and is safe for
// concurrent use.
type Builder struct {
	opts      Options
	proxifier Proxifier
	target    string
	rel       string
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) *Builder {
	opts.ProxyMethod = strings.ToUpper(strings.TrimSpace(opts.ProxyMethod))
	if opts.ProxyMethod != http.MethodPost {
		opts.ProxyMethod = http.MethodGet
	}
	if opts.Translate == nil {
		opts.Translate = func(key string) string { return key }
	}

	b := &Builder{opts: opts, proxifier: opts.Proxifier, rel: "noreferrer"}
	if b.proxifier == nil {
		if opts.ProxyMethod == http.MethodPost {
			b.proxifier = Identity{}
		} else {
			b.proxifier = QueryProxifier{Endpoint: opts.ProxyURL}
		}
	}
	if opts.NewTab {
		b.target = "_blank"
		b.rel = "noopener noreferrer"
	}
	return b
}

// Plain links directly to url.
func (b *Builder) Plain(url, label, classes, icon string) Descriptor {
	return Descriptor{
		Kind:    KindPlain,
		Href:    url,
		Method:  http.MethodGet,
		Label:   label,
		Icon:    icon,
		Classes: classes,
		Target:  b.target,
		Rel:     b.rel,
	}
}

// Cache links to the cached copy of url.
func (b *Builder) Cache(url string) Descriptor {
	d := b.Plain(b.opts.CacheURL+url, b.opts.Translate("cached"), "cache_link", "archive")
	d.Kind = KindCache
	return d
}

// Proxy links to url through the result proxy. It reports false when result
// proxying is disabled.
func (b *Builder) Proxy(url string) (Descriptor, bool) {
	if !b.opts.Proxify {
		return Descriptor{}, false
	}

	proxied := b.proxifier.Proxify(url)
	d := Descriptor{
		Kind:    KindProxy,
		Href:    proxied,
		Method:  http.MethodGet,
		Label:   b.opts.Translate("proxied"),
		Icon:    "shield",
		Classes: "proxied_link",
		Target:  b.target,
		Rel:     b.rel,
	}
	if b.opts.ProxyMethod == http.MethodPost {
		d.Href = b.opts.ProxyURL
		d.Method = http.MethodPost
		d.Fields = make([]Field, 0, len(b.opts.ProxyParams))
		for _, p := range b.opts.ProxyParams {
			d.Fields = append(d.Fields, Field{Name: p.Name, Value: Substitute(p.Template, proxied)})
		}
	}
	return d, true
}

// Substitute replaces the first Placeholder in tmpl with target. A template
// without a placeholder is returned as is.
func Substitute(tmpl, target string) string {
	before, after, found := strings.Cut(tmpl, Placeholder)
	if !found {
		return tmpl
	}
	return before + target + after
}
