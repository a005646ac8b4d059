package processing

import (
	"html"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedTags = map[atom.Atom]bool{
	atom.B:      true,
	atom.I:      true,
	atom.Em:     true,
	atom.Strong: true,
	atom.Mark:   true,
	atom.Span:   true,
	atom.Br:     true,
	atom.Small:  true,
	atom.Sub:    true,
	atom.Sup:    true,
}

var droppedContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Noscript: true,
	atom.Template: true,
}

// SanitizeMetadata reduces rich text to a small set of inline formatting tags
// without attributes. Text is re-escaped, unknown tags are dropped but their
// text kept, and script-like elements are dropped with their content.
// The card renderer emits the result verbatim.
func SanitizeMetadata(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	var b strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(input))
	skipDepth := 0
	var open []atom.Atom

	for {
		tt := z.Next()
		switch tt {
		case nethtml.ErrorToken:
			if z.Err() != io.EOF {
				return ""
			}
			for i := len(open) - 1; i >= 0; i-- {
				b.WriteString("</" + open[i].String() + ">")
			}
			return strings.TrimSpace(b.String())

		case nethtml.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}

		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if droppedContent[a] {
				if tt == nethtml.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[a] {
				continue
			}
			if a == atom.Br {
				b.WriteString("<br>")
				continue
			}
			if tt == nethtml.StartTagToken {
				b.WriteString("<" + a.String() + ">")
				open = append(open, a)
			}

		case nethtml.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if droppedContent[a] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[a] || a == atom.Br {
				continue
			}
			// Close only tags that are open, innermost first.
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] != a {
					continue
				}
				for j := len(open) - 1; j >= i; j-- {
					b.WriteString("</" + open[j].String() + ">")
				}
				open = open[:i]
				break
			}
		}
	}
}
