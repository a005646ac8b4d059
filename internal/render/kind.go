package render

import "strings"

// Kind is the card variant of a result.
type Kind string

const (
	KindDefault  Kind = "default"
	KindVideos   Kind = "videos"
	KindImages   Kind = "images"
	KindMap      Kind = "map"
	KindTorrent  Kind = "torrent"
	KindPaper    Kind = "paper"
	KindProducts Kind = "products"
	KindCode     Kind = "code"
)

var kindIcons = map[Kind]string{
	KindDefault:  "",
	KindVideos:   "play",
	KindImages:   "image",
	KindMap:      "location",
	KindTorrent:  "download",
	KindPaper:    "document",
	KindProducts: "cart",
	KindCode:     "code",
}

// ResolveKind maps a result's template tag to a Kind. Tags may carry an
// ".html" suffix; unknown tags fall back to KindDefault.
func ResolveKind(tag string) Kind {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(tag)), ".html"))
	if _, ok := kindIcons[k]; ok {
		return k
	}
	return KindDefault
}

// Icon is the glyph shown before the title of this kind of card.
func (k Kind) Icon() string {
	return kindIcons[k]
}
