package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

func ParseOrder(raw string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(raw))); o {
	case "":
		return Asc, nil
	case Asc, Desc:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOrder, raw)
}

type Query struct {
	Q       string
	Genre   string
	Year    *int
	Country string
	Order   Order
}

type Filters struct {
	Genres    []string `json:"genres"`
	Years     []int    `json:"years"`
	Countries []string `json:"countries"`
}

// FilterAndSort returns the items matching q, ordered by folded title.
// The sort is stable, so titles that compare equal keep their input order
// in both directions. items is not modified.
func FilterAndSort(items []TitleItem, q Query) []TitleItem {
	needle := foldTitle(q.Q)
	genre := strings.TrimSpace(q.Genre)
	country := strings.TrimSpace(q.Country)

	type keyed struct {
		key  string
		item TitleItem
	}

	matched := make([]keyed, 0, len(items))
	for _, it := range items {
		key := foldTitle(it.Title)
		if needle != "" && !strings.Contains(key, needle) {
			continue
		}
		if genre != "" && (it.Genre == nil || *it.Genre != genre) {
			continue
		}
		if q.Year != nil && (it.Year == nil || *it.Year != *q.Year) {
			continue
		}
		if country != "" && (it.Country == nil || *it.Country != country) {
			continue
		}
		matched = append(matched, keyed{key: key, item: it})
	}

	desc := q.Order == Desc
	slices.SortStableFunc(matched, func(a, b keyed) int {
		if desc {
			return strings.Compare(b.key, a.key)
		}
		return strings.Compare(a.key, b.key)
	})

	out := make([]TitleItem, len(matched))
	for i := range matched {
		out[i] = matched[i].item
	}
	return out
}

// Facets collects the distinct genres, years and countries present in items.
// Years are newest first; the string facets are sorted ascending.
func Facets(items []TitleItem) Filters {
	genres := map[string]struct{}{}
	years := map[int]struct{}{}
	countries := map[string]struct{}{}

	for _, it := range items {
		if it.Genre != nil && *it.Genre != "" {
			genres[*it.Genre] = struct{}{}
		}
		if it.Year != nil && *it.Year != 0 {
			years[*it.Year] = struct{}{}
		}
		if it.Country != nil && *it.Country != "" {
			countries[*it.Country] = struct{}{}
		}
	}

	out := Filters{
		Genres:    sortedKeys(genres),
		Years:     make([]int, 0, len(years)),
		Countries: sortedKeys(countries),
	}
	for y := range years {
		out.Years = append(out.Years, y)
	}
	slices.SortFunc(out.Years, func(a, b int) int { return cmp.Compare(b, a) })
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// foldTitle normalises a title for case-insensitive comparison. Titles come
// from a French locale, so plain ASCII lowering is not enough.
func foldTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}
