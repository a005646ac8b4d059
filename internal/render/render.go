// Package render turns aggregated search results into HTML cards.
//
// A Renderer is built once per request from a Context and then renders any
// number of results. Rendering has no side effects: the same result and
// context always produce the same bytes. Titles, URLs and scalar metadata are
// escaped by html/template; Result.Metadata is trusted and emitted as is.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/metasearch-overlay/internal/icons"
	"github.com/DeafMist/metasearch-overlay/internal/links"
	"github.com/DeafMist/metasearch-overlay/internal/models"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("render").
		Funcs(template.FuncMap{"icon": icons.Resolve}).
		ParseFS(templateFS, "templates/*.html"),
)

// Renderer renders result cards for one Context.
type Renderer struct {
	ctx   Context
	tr    Translator
	links *links.Builder
}

// New returns a Renderer for ctx.
func New(ctx Context) *Renderer {
	tr := ctx.translator()
	return &Renderer{
		ctx: ctx,
		tr:  tr,
		links: links.NewBuilder(links.Options{
			NewTab:      ctx.ResultsOnNewTab,
			CacheURL:    ctx.CacheURL,
			Proxify:     ctx.ProxifyResults,
			ProxyMethod: ctx.ProxyMethod,
			ProxyURL:    ctx.ProxyURL,
			ProxyParams: ctx.ProxyParams,
			Proxifier:   ctx.ProxyTransform,
			Translate:   tr.Translate,
		}),
	}
}

type pathSegment struct {
	Position int
	Text     string
}

type thumbnailView struct {
	Link  links.Descriptor
	Src   string
	Title string
}

type publishedView struct {
	Machine string
	Human   string
}

type labels struct {
	Length string
	Views  string
	Author string
}

type cardView struct {
	Kind         Kind
	Category     string
	Header       links.Descriptor
	Favicon      string
	ShowHost     bool
	Host         string
	Path         []pathSegment
	Thumbnail    *thumbnailView
	TitleLink    links.Descriptor
	HasSubheader bool
	Published    *publishedView
	Length       string
	Views        string
	Author       string
	Metadata     template.HTML
	Content      string
	Sitelinks    []links.Descriptor
	Engines      []string
	Cache        links.Descriptor
	Proxy        *links.Descriptor
	Labels       labels
}

// Card renders one result.
func (r *Renderer) Card(res models.Result) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "card", r.view(res)); err != nil {
		return "", fmt.Errorf("render card %q: %w", res.URL, err)
	}
	return template.HTML(buf.String()), nil
}

// Cards renders results in order.
func (r *Renderer) Cards(results []models.Result) ([]template.HTML, error) {
	out := make([]template.HTML, 0, len(results))
	for _, res := range results {
		card, err := r.Card(res)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

// WriteCard renders one result to w.
func (r *Renderer) WriteCard(w io.Writer, res models.Result) error {
	if err := templates.ExecuteTemplate(w, "card", r.view(res)); err != nil {
		return fmt.Errorf("render card %q: %w", res.URL, err)
	}
	return nil
}

func (r *Renderer) view(res models.Result) cardView {
	kind := ResolveKind(res.Template)
	parsed := res.ParsedURL()

	v := cardView{
		Kind:      kind,
		Category:  classToken(res.Category),
		Header:    r.links.Plain(res.URL, "", "url_header", ""),
		ShowHost:  r.ctx.URLFormatting.ShowHost(),
		Host:      urlfmt.PrettyHost(parsed),
		TitleLink: r.links.Plain(res.URL, res.Title, "", kind.Icon()),
		Content:   res.Content,
		Engines:   res.Engines,
		Cache:     r.links.Cache(res.URL),
		Labels: labels{
			Length: r.tr.Translate("length"),
			Views:  r.tr.Translate("views"),
			Author: r.tr.Translate("author"),
		},
	}

	if r.ctx.FaviconResolver != "" && r.ctx.Favicons != nil {
		if src, ok := r.ctx.Favicons.URL(r.ctx.FaviconResolver, parsed.Hostname()); ok {
			v.Favicon = src
		}
	}

	pos := 0
	for seg := range urlfmt.PrettyPath(parsed) {
		pos++
		v.Path = append(v.Path, pathSegment{Position: pos, Text: seg})
	}

	if res.Thumbnail != "" {
		src := res.Thumbnail
		if r.ctx.ImageProxy != nil {
			src = r.ctx.ImageProxy.Proxify(src)
		}
		v.Thumbnail = &thumbnailView{
			Link:  r.links.Plain(res.URL, "", "thumbnail_link", ""),
			Src:   src,
			Title: res.Title,
		}
	}

	if res.PublishedDate != nil && !res.PublishedDate.IsZero() {
		v.Published = &publishedView{
			Machine: res.PublishedDate.UTC().Format(time.RFC3339),
			Human:   res.PublishedDate.UTC().Format("Jan 2, 2006"),
		}
	}
	v.Length = res.Length
	if res.Views != nil {
		v.Views = groupDigits(*res.Views)
	}
	v.Author = res.Author
	// Metadata is sanitized upstream before it is stored.
	v.Metadata = template.HTML(res.Metadata)
	v.HasSubheader = v.Published != nil || v.Length != "" || v.Views != "" || v.Author != "" || v.Metadata != ""

	for _, sl := range res.Sitelinks {
		if sl.URL == "" {
			continue
		}
		v.Sitelinks = append(v.Sitelinks, r.links.Plain(sl.URL, sl.Title, "sitelink", ""))
	}

	if proxy, ok := r.links.Proxy(res.URL); ok {
		v.Proxy = &proxy
	}

	return v
}

func classToken(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
