package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// Toggle renders an on/off checkbox for the boolean preference name. Its
// accessible label is the element with id "pref_<name>".
func Toggle(name string, checked bool) (template.HTML, error) {
	var buf bytes.Buffer
	data := struct {
		Name    string
		Checked bool
	}{Name: name, Checked: checked}
	if err := templates.ExecuteTemplate(&buf, "toggle", data); err != nil {
		return "", fmt.Errorf("render toggle %q: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
