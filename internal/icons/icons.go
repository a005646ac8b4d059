// Package icons maps short icon names to inline SVG glyphs.
package icons

import "html/template"

const svgOpen = `<svg class="icon-small" viewBox="0 0 24 24" aria-hidden="true" xmlns="http://www.w3.org/2000/svg">`

var glyphs = map[string]string{
	"archive":   `<path d="M3 4h18v4H3zM5 8h14v12H5zM10 12h4"/>`,
	"link":      `<path d="M10 14a5 5 0 0 0 7 0l3-3a5 5 0 0 0-7-7l-1 1M14 10a5 5 0 0 0-7 0l-3 3a5 5 0 0 0 7 7l1-1"/>`,
	"shield":    `<path d="M12 2l8 4v6c0 5-3.5 9-8 10-4.5-1-8-5-8-10V6z"/>`,
	"play":      `<path d="M6 4l14 8-14 8z"/>`,
	"image":     `<path d="M3 5h18v14H3zM3 16l5-5 4 4 3-3 6 6"/>`,
	"location":  `<path d="M12 2a7 7 0 0 0-7 7c0 5 7 13 7 13s7-8 7-13a7 7 0 0 0-7-7z"/>`,
	"download":  `<path d="M12 3v12M6 11l6 6 6-6M4 21h16"/>`,
	"document":  `<path d="M6 2h9l5 5v15H6zM14 2v6h6"/>`,
	"cart":      `<path d="M3 3h2l3 12h11l2-8H6M9 20h.01M18 20h.01"/>`,
	"code":      `<path d="M8 6l-6 6 6 6M16 6l6 6-6 6"/>`,
	"check":     `<path d="M4 12l5 5L20 6"/>`,
	"clock":     `<path d="M12 2a10 10 0 1 0 0 20 10 10 0 0 0 0-20zM12 6v6l4 2"/>`,
	"eye":       `<path d="M1 12s4-8 11-8 11 8 11 8-4 8-11 8S1 12 1 12zM12 9a3 3 0 1 0 0 6 3 3 0 0 0 0-6z"/>`,
	"person":    `<path d="M12 12a5 5 0 1 0 0-10 5 5 0 0 0 0 10zM3 22a9 9 0 0 1 18 0"/>`,
	"chevron":   `<path d="M9 6l6 6-6 6"/>`,
	"magnifier": `<path d="M10 3a7 7 0 1 0 0 14 7 7 0 0 0 0-14zM21 21l-6-6"/>`,
}

// Resolve returns the inline SVG for name, or an empty fragment when the name
// is unknown.
func Resolve(name string) template.HTML {
	path, ok := glyphs[name]
	if !ok {
		return ""
	}
	return template.HTML(svgOpen + path + `</svg>`)
}

