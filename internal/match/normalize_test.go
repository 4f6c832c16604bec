package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sigur Rós", "sigur ros"},
		{"AC/DC", "ac dc"},
		{"  The   Beatles ", "the beatles"},
		{"Mötley Crüe", "motley crue"},
		{"L'Étranger", "l etranger"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), "normalize(%q)", tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Abbey Road", "abbey road"))
	assert.Equal(t, 0.0, Similarity("Abbey Road", "Let It Be"))
	assert.Equal(t, 0.0, Similarity("", "Abbey Road"))
	// {dark, side, of, the, moon} vs {dark, side, moon}: 3 common, 5 union
	assert.InDelta(t, 0.6, Similarity("Dark Side of the Moon", "Dark Side Moon"), 0.001)
}

func TestCleanAlbumName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Abbey Road - CD 1", "Abbey Road"},
		{"Abbey Road (Disc 2)", "Abbey Road"},
		{"Abbey Road [Disk 3]", "Abbey Road"},
		{"Quadrophenia (Deluxe Edition)", "Quadrophenia"},
		{"Nevermind (Remastered)", "Nevermind"},
		{"The Wall (Limited Edition) - CD 2", "The Wall"},
		{"OK Computer", "OK Computer"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanAlbumName(tt.in), "cleanAlbumName(%q)", tt.in)
	}
}

func TestSearchVariants(t *testing.T) {
	variants := searchVariants("Pink Floyd", "The Wall (Deluxe Edition)")
	assert.Equal(t, []searchVariant{
		{Artist: "Pink Floyd", Album: "The Wall (Deluxe Edition)"},
		{Artist: "Pink Floyd", Album: "The Wall"},
	}, variants)
}

func TestSearchVariants_BracketStripping(t *testing.T) {
	variants := searchVariants("Artist", "Album (2003 Japan Tour)")
	assert.Contains(t, variants, searchVariant{Artist: "Artist", Album: "Album"})
}

func TestSearchVariants_NoDuplicates(t *testing.T) {
	variants := searchVariants("Artist", "Plain Album")
	assert.Equal(t, []searchVariant{
		{Artist: "Artist", Album: "Plain Album"},
	}, variants)
}
