package tmdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractDetails_Movie(t *testing.T) {
	d := ExtractDetails(loadFixture(t, "movie.html"), false)

	require.NotNil(t, d.Year)
	assert.Equal(t, 1999, *d.Year)

	require.NotNil(t, d.Genre)
	assert.Equal(t, "Drame & Thriller & Comédie", *d.Genre, "only the first three genre links count")

	require.NotNil(t, d.Synopsis)
	assert.Equal(t, "Le narrateur, sans identité précise, vit seul.", *d.Synopsis)

	require.NotNil(t, d.Duration)
	assert.Equal(t, "2h 19m", *d.Duration)

	// The first .release_date on a real page is the year tag inside the title.
	require.NotNil(t, d.ReleaseDate)
	assert.Equal(t, "(1999)", *d.ReleaseDate)

	require.NotNil(t, d.Directors)
	assert.Equal(t, "David Fincher", *d.Directors)

	require.NotNil(t, d.Actors)
	assert.Equal(t, "Edward Norton, Brad Pitt, Helena Bonham Carter, Meat Loaf, Jared Leto", *d.Actors)

	assert.Nil(t, d.Country)
}

func TestExtractDetails_Series(t *testing.T) {
	d := ExtractDetails(loadFixture(t, "series.html"), true)

	require.NotNil(t, d.Year)
	assert.Equal(t, 2008, *d.Year)

	require.NotNil(t, d.Genre)
	assert.Equal(t, "Drame & Crime", *d.Genre)

	require.NotNil(t, d.Duration)
	assert.Equal(t, "5 saisons", *d.Duration, "English mention beats the French one; script and style text is ignored")

	require.NotNil(t, d.Directors)
	assert.Equal(t, "Vince Gilligan", *d.Directors)

	require.NotNil(t, d.Actors)
	assert.Equal(t, "Bryan Cranston, Aaron Paul, Anna Gunn", *d.Actors)
}

func TestExtractDetails_EmptyPage(t *testing.T) {
	d := ExtractDetails(docFromString(t, "<html><body><p>rien</p></body></html>"), false)

	assert.Nil(t, d.Year)
	assert.Nil(t, d.Genre)
	assert.Nil(t, d.Synopsis)
	assert.Nil(t, d.Duration)
	assert.Nil(t, d.ReleaseDate)
	assert.Nil(t, d.Directors)
	assert.Nil(t, d.Actors)
	assert.Nil(t, d.Country)

	assert.Equal(t, ExtractDetails(nil, true), ExtractDetails(docFromString(t, ""), true))
}

func TestExtractDetails_YearOnlyFromFirstHeading(t *testing.T) {
	html := `<h2>Sans date</h2><h2>Autre (2004)</h2><div class="overview"><p>  </p></div>`
	d := ExtractDetails(docFromString(t, html), false)

	assert.Nil(t, d.Year)
	assert.Nil(t, d.Synopsis, "blank synopsis is treated as absent")
}

func TestExtractDetails_YearNeedsWordBoundary(t *testing.T) {
	d := ExtractDetails(docFromString(t, `<h2>Blade Runner 20499 (2017)</h2>`), false)
	require.NotNil(t, d.Year)
	assert.Equal(t, 2017, *d.Year)
}

func TestExtractDetails_CrewStopsAtThree(t *testing.T) {
	html := `<ol class="people">
		<li><p><a>A</a></p><p class="character">Director</p></li>
		<li><p><a>B</a></p><p class="character">Director, Writer</p></li>
		<li><p><a>C</a></p><p class="character">Co-Director</p></li>
		<li><p><a>D</a></p><p class="character">Director</p></li>
		<li><p class="character">Director</p></li>
	</ol>`
	d := ExtractDetails(docFromString(t, html), false)

	require.NotNil(t, d.Directors)
	assert.Equal(t, "A, B, C", *d.Directors)
	assert.Nil(t, d.Actors)
}

func TestText_SeparatesInlineNodes(t *testing.T) {
	doc := docFromString(t, `<p id="x"><a>Foo<b>Bar</b></a><!-- note -->
		<script>var hidden = 1;</script>  Baz<br>Qux</p>`)
	assert.Equal(t, "Foo Bar Baz Qux", text(doc.Find("#x")))
	assert.Empty(t, text(doc.Find("#missing")))
}

func TestExtractDetails_NamesSplitAcrossNodes(t *testing.T) {
	html := `<ol class="people">
		<li><p><a>Jean<span>Dupont</span></a></p><p class="character">Director</p></li>
	</ol>`
	d := ExtractDetails(docFromString(t, html), false)

	require.NotNil(t, d.Directors)
	assert.Equal(t, "Jean Dupont", *d.Directors)
}

func TestExtractDetails_SeriesCreatorsNotDirectors(t *testing.T) {
	html := `<ol class="people">
		<li><p><a>Réalisatrice</a></p><p class="character">Director</p></li>
		<li><p><a>Autrice</a></p><p class="character">Créatrice</p></li>
		<li><p><a>Auteur</a></p><p class="character">Créateur</p></li>
	</ol>`
	d := ExtractDetails(docFromString(t, html), true)

	require.NotNil(t, d.Directors)
	assert.Equal(t, "Auteur", *d.Directors)
	assert.Nil(t, d.Duration)
}

func TestSeasonCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{name: "none", text: "Pas d'information", ok: false},
		{name: "last season", text: "Dernière saison   Saison 4", want: 4, ok: true},
		{name: "last season without accent", text: "DERNIERE SAISON Saison 2", want: 2, ok: true},
		{name: "max french", text: "Saison 1 Saison 7 Saison 3", want: 7, ok: true},
		{name: "french is case sensitive", text: "saison 9", ok: false},
		{name: "english any case", text: "SEASON 2 season 6", want: 6, ok: true},
		{name: "count french", text: "10 saisons", want: 10, ok: true},
		{name: "count english", text: "1 Season", want: 1, ok: true},
		{name: "mixed", text: "Saison 3 ... Season 5", want: 5, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SeasonCount(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeasonSummary(t *testing.T) {
	one := seasonSummary("Saison 1")
	require.NotNil(t, one)
	assert.Equal(t, "1 saison", *one)

	many := seasonSummary("Season 12")
	require.NotNil(t, many)
	assert.Equal(t, "12 saisons", *many)

	assert.Nil(t, seasonSummary(""))
}

func TestParseDetails(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "series.html"))
	require.NoError(t, err)
	defer f.Close()

	d, err := ParseDetails(f, true)
	require.NoError(t, err)
	require.NotNil(t, d.Duration)
	assert.Equal(t, "5 saisons", *d.Duration)
}
