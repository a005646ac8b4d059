package models

import (
	"net/url"
	"time"
)

// Sitelink is a secondary link attached to a result by the aggregation engine.
type Sitelink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Result is one aggregated search hit as stored in Elasticsearch and handed
// to the card renderer.
type Result struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Content       string     `json:"content,omitempty"`
	Template      string     `json:"template,omitempty"`
	Category      string     `json:"category,omitempty"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Length        string     `json:"length,omitempty"`
	Views         *int64     `json:"views,omitempty"`
	Author        string     `json:"author,omitempty"`
	// Metadata is trusted rich text, sanitized before it reaches the store.
	Metadata  string     `json:"metadata,omitempty"`
	Engines   []string   `json:"engines"`
	Sitelinks []Sitelink `json:"sitelinks,omitempty"`
	IndexedAt time.Time  `json:"indexed_at"`
}

// ParsedURL decomposes the result URL. A malformed URL yields an empty value.
func (r Result) ParsedURL() *url.URL {
	u, err := url.Parse(r.URL)
	if err != nil {
		return &url.URL{}
	}
	return u
}
