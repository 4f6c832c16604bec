package musicbrainz

import (
	"sort"
	"strings"
)

// knownGenres filters folksonomy tags: only tags matching a recognized genre
// name are accepted, dropping things like "seen live" or "my favorites".
var knownGenres = map[string]struct{}{}

func init() {
	names := []string{
		// broad
		"rock", "pop", "electronic", "hip hop", "jazz", "classical", "metal",
		"punk", "folk", "country", "blues", "soul", "funk", "reggae", "latin",
		"r&b", "gospel", "disco", "ska", "world",
		// rock
		"alternative rock", "indie rock", "hard rock", "progressive rock",
		"psychedelic rock", "art rock", "garage rock", "surf rock", "glam rock",
		"soft rock", "southern rock", "stoner rock", "krautrock", "math rock",
		"post-rock", "noise rock", "space rock", "blues rock", "folk rock",
		"country rock", "jazz rock", "punk rock",
		// metal
		"heavy metal", "death metal", "black metal", "thrash metal", "doom metal",
		"power metal", "symphonic metal", "progressive metal", "gothic metal",
		"nu metal", "sludge metal", "post-metal", "metalcore", "deathcore",
		"grindcore", "speed metal", "folk metal", "industrial metal",
		// punk
		"hardcore punk", "post-punk", "pop punk", "anarcho-punk", "crust punk",
		"melodic hardcore", "emo", "screamo", "grunge", "riot grrrl",
		// electronic
		"techno", "house", "trance", "ambient", "drum and bass", "dubstep",
		"idm", "industrial", "synthpop", "new wave", "darkwave", "ebm",
		"trip hop", "downtempo", "breakbeat", "electro", "uk garage",
		"deep house", "tech house", "minimal techno", "acid house",
		"progressive house", "progressive trance", "psytrance", "hardcore techno",
		"gabber", "jungle", "liquid funk", "neurofunk", "future bass",
		"chillwave", "vaporwave", "synthwave", "retrowave", "lo-fi",
		"glitch", "noise", "dark ambient", "drone",
		// hip hop
		"rap", "trap", "conscious hip hop", "gangsta rap", "boom bap",
		"lo-fi hip hop", "cloud rap", "grime", "uk hip hop", "abstract hip hop",
		// jazz
		"bebop", "cool jazz", "free jazz", "fusion", "smooth jazz",
		"acid jazz", "latin jazz", "big band", "swing", "bossa nova",
		// classical
		"baroque", "romantic", "modern classical", "contemporary classical",
		"opera", "chamber music", "orchestral", "choral", "minimalism",
		// folk/country
		"bluegrass", "americana", "celtic", "neofolk", "freak folk",
		"indie folk", "singer-songwriter", "acoustic",
		// soul/funk/r&b
		"neo-soul", "motown", "northern soul", "contemporary r&b",
		"new jack swing", "quiet storm", "p-funk",
		// reggae/caribbean
		"dub", "dancehall", "rocksteady", "roots reggae", "ragga",
		"soca", "calypso",
		// african/world
		"afrobeat", "afropop", "highlife", "soukous", "mbalax",
		"fado", "flamenco", "ranchera", "cumbia", "salsa", "merengue",
		"bachata", "reggaeton", "mpb", "samba", "forró", "tango",
		// pop variants
		"indie pop", "dream pop", "shoegaze", "noise pop", "power pop",
		"baroque pop", "chamber pop", "electropop", "dance-pop", "synth-pop",
		"art pop", "teen pop", "k-pop", "j-pop", "c-pop", "europop",
		"britpop", "jangle pop",
		// other
		"experimental", "avant-garde", "spoken word", "soundtrack",
		"new age", "easy listening", "lounge", "exotica",
		"post-industrial", "martial industrial",
	}
	for _, n := range names {
		knownGenres[n] = struct{}{}
	}
}

// aggregateGenres merges the official genre lists of the release and its
// release group, count-weighted. When no official genre exists it falls back
// to folksonomy tags filtered against the known-genre list. The result is
// sorted by weight descending, ties by name.
func aggregateGenres(r releaseDetailsResponse) []string {
	weights := make(map[string]int)

	addGenres := func(genres []genre) {
		for _, g := range genres {
			name := strings.TrimSpace(g.Name)
			if name != "" {
				weights[name] += g.Count
			}
		}
	}
	addGenres(r.Genres)
	if r.ReleaseGroup != nil {
		addGenres(r.ReleaseGroup.Genres)
	}

	if len(weights) == 0 {
		addTags := func(tags []folksonomyTag) {
			for _, t := range tags {
				name := strings.ToLower(strings.TrimSpace(t.Name))
				if _, ok := knownGenres[name]; ok && t.Count > 0 {
					weights[name] += t.Count
				}
			}
		}
		addTags(r.Tags)
		if r.ReleaseGroup != nil {
			addTags(r.ReleaseGroup.Tags)
		}
	}

	genres := make([]string, 0, len(weights))
	for name := range weights {
		genres = append(genres, name)
	}
	sort.Slice(genres, func(a, b int) bool {
		if weights[genres[a]] != weights[genres[b]] {
			return weights[genres[a]] > weights[genres[b]]
		}
		return genres[a] < genres[b]
	})
	return genres
}
