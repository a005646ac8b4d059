package render

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/DeafMist/metasearch-overlay/internal/models"
)

// Preference is a boolean setting shown as a toggle on the results page.
type Preference struct {
	Name    string
	Checked bool
}

// Page is the data of a full results page.
type Page struct {
	Query       string
	Total       int64
	Results     []models.Result
	Preferences []Preference
}

type toggleView struct {
	Name    string
	Label   string
	Control template.HTML
}

type pageView struct {
	Query   string
	Total   string
	Toggles []toggleView
	Cards   []template.HTML
}

// WritePage renders a complete results page to w.
func (r *Renderer) WritePage(w io.Writer, p Page) error {
	cards, err := r.Cards(p.Results)
	if err != nil {
		return err
	}

	v := pageView{
		Query: p.Query,
		Total: strconv.FormatInt(p.Total, 10),
		Cards: cards,
	}
	for _, pref := range p.Preferences {
		control, err := Toggle(pref.Name, pref.Checked)
		if err != nil {
			return err
		}
		v.Toggles = append(v.Toggles, toggleView{
			Name:    pref.Name,
			Label:   r.tr.Translate(pref.Name),
			Control: control,
		})
	}

	if err := templates.ExecuteTemplate(w, "page", v); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
