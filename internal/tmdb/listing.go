package tmdb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

// ParseListing reads the title cards of one listing page. offset is the
// number of items already collected and feeds the positional id used for
// cards without a usable link.
func ParseListing(doc *goquery.Document, root string, offset int) []catalog.TitleItem {
	if doc == nil {
		return nil
	}
	root = strings.TrimRight(root, "/")

	var out []catalog.TitleItem
	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.image").First()
		if link.Length() == 0 {
			return
		}
		title := strings.TrimSpace(link.AttrOr("title", ""))
		if title == "" {
			return
		}

		href := strings.TrimSpace(link.AttrOr("href", ""))
		if strings.HasPrefix(href, "/") {
			href = root + href
		}

		poster := ""
		if img := card.Find("img").First(); img.Length() > 0 {
			poster = strings.TrimSpace(img.AttrOr("src", ""))
		}

		id := lastSegment(href)
		if id == "" {
			id = fmt.Sprintf("item_%d", offset+len(out))
		}

		out = append(out, catalog.TitleItem{
			Title:     title,
			PosterURL: poster,
			URL:       href,
			ID:        id,
		})
	})
	return out
}

func lastSegment(raw string) string {
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return p
}
