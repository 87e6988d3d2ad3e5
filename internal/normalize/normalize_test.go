package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestKey_FoldsCaseAndSpace(t *testing.T) {
	assert.Equal(t, "westmalle tripel", Key("Westmalle Tripel"))
	assert.Equal(t, "westmalle tripel", Key("westmalle  tripel"))
	assert.Equal(t, "westmalle tripel", Key("  WESTMALLE TRIPEL  "))
}

func TestKey_StripsDiacritics(t *testing.T) {
	assert.Equal(t, "hoegaarden speciale", Key("Hoegaarden Spéciale"))
	assert.Equal(t, "brasserie d'achouffe", Key("Brasserie d'Achouffe"))
	assert.Equal(t, "leon", Key("Léon"))
}

func TestCleanName_QuotesAndWhitespace(t *testing.T) {
	assert.Equal(t, "Tripel Karmeliet", CleanName(`  "Tripel   Karmeliet" `))
	assert.Equal(t, "", CleanName("   "))
}

func TestCleanBreweryName_CommaListKeepsFirst(t *testing.T) {
	assert.Equal(t, "Brouwerij Huyghe", CleanBreweryName("Brouwerij Huyghe, Melle"))
}

func TestCleanBreweryName_CollaborationKeepsProducer(t *testing.T) {
	assert.Equal(t, "De Proefbrouwerij", CleanBreweryName("collaboration brew, De Proefbrouwerij"))
}

func TestCleanBreweryName_CutsAnnotations(t *testing.T) {
	assert.Equal(t, "Brouwerij Van Steenberge", CleanBreweryName("Brouwerij Van Steenberge gebrouwen in opdracht"))
	assert.Equal(t, "De Leite", CleanBreweryName("De Leite brewed for export"))
	assert.Equal(t, "Het Anker", CleanBreweryName("Het Anker (vroeger Gouden Carolus)"))
}

func TestCleanBreweryName_RemovesParens(t *testing.T) {
	assert.Equal(t, "Alken-Maes", CleanBreweryName("Alken-Maes (Heineken)"))
	assert.Equal(t, "Alken-Maes", CleanBreweryName("Alken-Maes (Heineken"))
}

func TestCleanBreweryName_CollapsesDuplicateWords(t *testing.T) {
	assert.Equal(t, "Brouwerij Het Anker", CleanBreweryName("Brouwerij Brouwerij Het Anker"))
	// Duplicates at an odd word offset collapse too.
	assert.Equal(t, "De Brouwerij Het Anker", CleanBreweryName("De Brouwerij Brouwerij Het Anker"))
	assert.Equal(t, "brouwerij Het Anker", CleanBreweryName("brouwerij Brouwerij Het Anker"))
}

func TestCleanBreweryName_StandardizesKnownSpellings(t *testing.T) {
	assert.Equal(t, "Alken-Maes", CleanBreweryName("Alken Maes"))
	assert.Equal(t, "Alken-Maes", CleanBreweryName("alken-maes"))
	assert.Equal(t, "AB InBev", CleanBreweryName("InBev"))
	assert.Equal(t, "AB InBev", CleanBreweryName("AB-InBev"))
	assert.Equal(t, "AB InBev", CleanBreweryName("abinbev"))
}

func TestCleanBreweryName_StripsArticleMarker(t *testing.T) {
	assert.Equal(t, "t Hofbrouwerijke", CleanBreweryName("'t Hofbrouwerijke"))
	got := CleanBreweryName("‘t Hofbrouwerijke")
	assert.Equal(t, "t Hofbrouwerijke", got)
	assert.True(t, utf8.ValidString(got))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Tripel", "Abbey"}, SplitList("Tripel; Abbey"))
	assert.Equal(t, []string{"Tripel", "Abbey"}, SplitList("Tripel/Abbey"))
	assert.Equal(t, []string{"Tripel"}, SplitList("Tripel; ;"))
	assert.Nil(t, SplitList("  "))
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"8.5", 8.5, true},
		{"8,5", 8.5, true},
		{"8.5%", 8.5, true},
		{" 8.5 % ", 8.5, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"101", 0, false},
		{"abv", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumeric(tt.raw, 0, 100)
		assert.Equal(t, tt.ok, ok, "raw=%q", tt.raw)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "raw=%q", tt.raw)
		}
	}
}
