// Package catalog holds the title model and the in-memory query logic over it.
package catalog

import (
	"fmt"
	"strings"
)

type Type string

const (
	Movie  Type = "movie"
	Series Type = "series"
)

// GenreSeparator joins the genre tokens of a title. Filtering and
// recommendations split on it verbatim.
const GenreSeparator = " & "

func Types() []Type { return []Type{Movie, Series} }

func (t Type) Valid() bool {
	switch t {
	case Movie, Series:
		return true
	}
	return false
}

func (t Type) CacheKey() string { return "titles_" + string(t) }

func ParseType(raw string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, raw)
	}
	return t, nil
}

type TitleItem struct {
	Title       string  `json:"title"`
	Year        *int    `json:"year"`
	Genre       *string `json:"genre"`
	Country     *string `json:"country"`
	PosterURL   string  `json:"poster_url"`
	URL         string  `json:"url"`
	ID          string  `json:"id"`
	Synopsis    *string `json:"synopsis"`
	Duration    *string `json:"duration"`
	ReleaseDate *string `json:"release_date"`
	Directors   *string `json:"directors"`
	Actors      *string `json:"actors"`
}

// Details is what a detail page yields. Nil means the page had nothing for the field.
type Details struct {
	Year        *int
	Genre       *string
	Country     *string
	Synopsis    *string
	Duration    *string
	ReleaseDate *string
	Directors   *string
	Actors      *string
}

// Merge returns a copy of it with every non-empty detail field laid over it.
// Fields the detail page had nothing for keep their current value.
func (it TitleItem) Merge(d Details) TitleItem {
	out := it
	if d.Year != nil && *d.Year != 0 {
		out.Year = ptr(*d.Year)
	}
	out.Genre = mergeString(out.Genre, d.Genre)
	out.Country = mergeString(out.Country, d.Country)
	out.Synopsis = mergeString(out.Synopsis, d.Synopsis)
	out.Duration = mergeString(out.Duration, d.Duration)
	out.ReleaseDate = mergeString(out.ReleaseDate, d.ReleaseDate)
	out.Directors = mergeString(out.Directors, d.Directors)
	out.Actors = mergeString(out.Actors, d.Actors)
	return out
}

// GenreTokens splits the genre field on GenreSeparator, dropping blank tokens.
func (it TitleItem) GenreTokens() []string {
	if it.Genre == nil {
		return nil
	}
	parts := strings.Split(*it.Genre, GenreSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func mergeString(current, next *string) *string {
	if next == nil || strings.TrimSpace(*next) == "" {
		return current
	}
	return ptr(*next)
}

func ptr[T any](v T) *T { return &v }
