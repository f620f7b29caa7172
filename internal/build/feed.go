package build

import (
	"encoding/xml"
	"time"

	"github.com/conneroisu/isle/internal/config"
	"github.com/conneroisu/isle/internal/content"
	"github.com/conneroisu/isle/internal/errors"
)

// pubDateLayout is RFC 1123 in UTC, as RSS readers expect.
const pubDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       cdata  `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
	Description cdata  `xml:"description"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

// NewFeed renders the RSS feed of docs, which are expected newest first.
// Links and guids are the absolute document URLs.
func NewFeed(cfg *config.Config, urls content.URLs, docs []content.Document, now time.Time) ([]byte, error) {
	ch := rssChannel{
		Title:         cfg.Feed.Title,
		Link:          cfg.Site.URL,
		Description:   cfg.Feed.Description,
		Language:      "en",
		LastBuildDate: now.UTC().Format(pubDateLayout),
		Self: atomLink{
			Href: cfg.Site.URL + urls.URL("/"+cfg.Feed.Path),
			Rel:  "self",
			Type: "application/rss+xml",
		},
	}

	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.Slug] {
			continue
		}
		seen[d.Slug] = true

		link := cfg.Site.URL + urls.DocumentRoute(d.Slug)
		item := rssItem{
			Title:       cdata{d.Title},
			Link:        link,
			GUID:        link,
			Description: cdata{d.Summary()},
		}
		if !d.PublishedAt.IsZero() {
			item.PubDate = d.PublishedAt.UTC().Format(pubDateLayout)
		}
		ch.Items = append(ch.Items, item)
	}

	body, err := xml.MarshalIndent(rssDocument{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: ch,
	}, "", "  ")
	if err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeWriteFailed, "failed to encode feed", err)
	}
	return append([]byte(xml.Header), body...), nil
}
