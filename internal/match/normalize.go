// Package match scores MusicBrainz release candidates against local album
// folders and decides whether an album can be tagged automatically.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	discSuffixRe   = regexp.MustCompile(`(?i)\s*[-–]\s*(CD|Disc|Disk)\s*\d+\s*$`)
	discBracketRe  = regexp.MustCompile(`(?i)\s*[(\[](CD|Disc|Disk)\s*\d+[)\]]`)
	editionRe      = regexp.MustCompile(`(?i)\s*[(\[](Legacy|Deluxe|Special|Limited|Remastered|Expanded|Anniversary|Bonus|Premium)\s*(Edition|Version|Remaster)?[)\]]`)
	trailingDashRe = regexp.MustCompile(`\s*[-–]\s*$`)
	bracketsRe     = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)
)

// normalize prepares a string for fuzzy comparison: NFKD decomposition,
// combining marks stripped, lowercased, punctuation replaced by spaces,
// whitespace collapsed.
func normalize(text string) string {
	if text == "" {
		return ""
	}
	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	s := nonWordRe.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Similarity returns the word-set Jaccard index of two strings (0.0-1.0).
func Similarity(a, b string) float64 {
	wordsA := wordSet(normalize(a))
	wordsB := wordSet(normalize(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// cleanAlbumName strips disc indicators and edition suffixes from an album
// name, so "Abbey Road (Remastered) - CD 1" compares as "Abbey Road".
func cleanAlbumName(name string) string {
	if name == "" {
		return name
	}
	cleaned := discSuffixRe.ReplaceAllString(name, "")
	cleaned = discBracketRe.ReplaceAllString(cleaned, "")
	cleaned = editionRe.ReplaceAllString(cleaned, "")
	cleaned = trailingDashRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// searchVariant is one (artist, album) query to try against MusicBrainz.
type searchVariant struct {
	Artist string
	Album  string
}

// searchVariants generates deduplicated query variants from most specific to
// most generic.
func searchVariants(artist, album string) []searchVariant {
	variants := []searchVariant{{Artist: artist, Album: album}}

	cleaned := cleanAlbumName(album)
	if cleaned != album && cleaned != "" {
		variants = append(variants, searchVariant{Artist: artist, Album: cleaned})
	}

	noBrackets := strings.TrimSpace(bracketsRe.ReplaceAllString(album, ""))
	noBrackets = strings.TrimSpace(trailingDashRe.ReplaceAllString(noBrackets, ""))
	if noBrackets != "" && noBrackets != album && noBrackets != cleaned {
		variants = append(variants, searchVariant{Artist: artist, Album: noBrackets})
	}
	return variants
}
