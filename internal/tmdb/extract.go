package tmdb

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

const (
	maxGenres    = 3
	maxDirectors = 3
	maxActors    = 5
)

var (
	yearRE = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

	lastSeasonRE   = regexp.MustCompile(`(?i)Derni[èe]re saison\s+Saison\s+(\d+)`)
	seasonFrRE     = regexp.MustCompile(`Saison\s+(\d+)`)
	seasonEnRE     = regexp.MustCompile(`(?i)Season\s+(\d+)`)
	seasonCountFr  = regexp.MustCompile(`(?i)(\d+)\s+saisons?`)
	seasonCountEn  = regexp.MustCompile(`(?i)(\d+)\s+seasons?`)
	nonCastMarkers = []string{
		"Director", "Writer", "Producer", "Screenplay", "Story",
		"Novel", "Characters", "Créateur", "Créatrice",
	}
)

// ParseDetails parses a detail page body.
func ParseDetails(r io.Reader, isSeries bool) (catalog.Details, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return catalog.Details{}, err
	}
	return ExtractDetails(doc, isSeries), nil
}

// ExtractDetails pulls what it can out of a detail page. Missing elements
// leave the matching field nil. Country is never filled: the page carries
// no reliable marker for it.
func ExtractDetails(doc *goquery.Document, isSeries bool) catalog.Details {
	if doc == nil {
		return catalog.Details{}
	}

	var d catalog.Details
	d.Year = extractYear(doc)
	d.Genre = extractGenre(doc)
	d.Synopsis = optional(text(doc.Find(".overview p").First()))
	if isSeries {
		d.Duration = seasonSummary(pageText(doc))
	} else {
		d.Duration = optional(text(doc.Find(".runtime").First()))
	}
	d.ReleaseDate = optional(text(doc.Find(".release_date").First()))

	role := "Director"
	if isSeries {
		role = "Créateur"
	}
	d.Directors = joined(crew(doc, role, maxDirectors))
	d.Actors = joined(cast(doc, maxActors))
	return d
}

func extractYear(doc *goquery.Document) *int {
	m := yearRE.FindStringSubmatch(text(doc.Find("h2").First()))
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

func extractGenre(doc *goquery.Document) *string {
	var genres []string
	doc.Find(`a[href*="/genre/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if g := text(a); g != "" {
			genres = append(genres, g)
		}
		return len(genres) < maxGenres
	})
	if len(genres) == 0 {
		return nil
	}
	s := strings.Join(genres, catalog.GenreSeparator)
	return &s
}

// SeasonCount returns the highest season number the page text mentions,
// trying the French and English wordings seen on series pages.
func SeasonCount(pageText string) (int, bool) {
	best, found := 0, false
	take := func(raw string) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		if !found || n > best {
			best, found = n, true
		}
	}

	if m := lastSeasonRE.FindStringSubmatch(pageText); m != nil {
		take(m[1])
	}
	for _, m := range seasonFrRE.FindAllStringSubmatch(pageText, -1) {
		take(m[1])
	}
	for _, m := range seasonEnRE.FindAllStringSubmatch(pageText, -1) {
		take(m[1])
	}
	if m := seasonCountFr.FindStringSubmatch(pageText); m != nil {
		take(m[1])
	}
	if m := seasonCountEn.FindStringSubmatch(pageText); m != nil {
		take(m[1])
	}
	return best, found
}

func seasonSummary(pageText string) *string {
	n, ok := SeasonCount(pageText)
	if !ok {
		return nil
	}
	s := fmt.Sprintf("%d saison", n)
	if n > 1 {
		s += "s"
	}
	return &s
}

func crew(doc *goquery.Document, role string, limit int) []string {
	var names []string
	doc.Find("ol.people li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		label := li.Find("p.character").First()
		if label.Length() == 0 || !strings.Contains(text(label), role) {
			return true
		}
		name := li.Find("p a").First()
		if name.Length() == 0 {
			return true
		}
		names = append(names, text(name))
		return len(names) < limit
	})
	return names
}

func cast(doc *goquery.Document, limit int) []string {
	var names []string
	doc.Find("ol.people li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		label := li.Find("p.character").First()
		name := li.Find("p a").First()
		if label.Length() == 0 || name.Length() == 0 {
			return true
		}
		if isCrewLabel(text(label)) {
			return true
		}
		names = append(names, text(name))
		return len(names) < limit
	})
	return names
}

func isCrewLabel(label string) bool {
	for _, marker := range nonCastMarkers {
		if strings.Contains(label, marker) {
			return true
		}
	}
	return false
}

// pageText is the visible text of the whole document, scripts and styles excluded.
func pageText(doc *goquery.Document) string {
	body := doc.Selection.Clone()
	body.Find("script, style, noscript").Remove()
	return body.Text()
}

// text is the visible text under s. Separate text nodes are joined with a
// space, so <a>Foo<b>Bar</b></a> reads "Foo Bar".
func text(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	var words []string
	collectText(s, &words)
	return strings.Join(words, " ")
}

func collectText(s *goquery.Selection, words *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			*words = append(*words, strings.Fields(c.Text())...)
		case "#comment", "script", "style", "noscript":
		default:
			collectText(c, words)
		}
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joined(parts []string) *string {
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, ", ")
	return &s
}
