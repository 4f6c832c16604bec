// matchcheck reads an album folder, matches it against MusicBrainz and
// prints the scored candidates without touching any files. Useful for
// checking why an album scored the way it did.
package main

import (
	"context"
	"log"
	"os"

	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/match"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: matchcheck <album-folder>")
	}
	path := os.Args[1]

	// In-memory store just for the seeded default settings
	st, err := store.OpenMemory()
	if err != nil {
		log.Fatalf("open settings store: %v", err)
	}
	defer st.Close()

	reader := folder.NewReader(st.Settings())
	info, err := reader.ReadAlbum(path)
	if err != nil {
		log.Fatalf("read album: %v", err)
	}
	if info.TrackCount() == 0 {
		log.Fatalf("no readable audio files in %s", path)
	}
	log.Printf("local: %s - %s (%d) %d tracks, %d discs",
		info.Artist, info.Album, info.Year, info.TrackCount(), info.TotalDiscs)

	matcher := match.New(musicbrainz.NewClient(), st.Settings())
	result, err := matcher.Match(context.Background(), info, match.Options{})
	if err != nil {
		log.Fatalf("match: %v", err)
	}
	log.Printf("decision: %s, %d candidates", result.Decision, len(result.Candidates))

	for i, s := range result.Candidates {
		r := s.Release
		log.Printf("[%d] %.1f  %s - %s (%d) %s/%s %d tracks - %s",
			i+1, s.Total, r.Artist, r.Title, r.Year(), r.Country, r.Media, r.TrackCount, r.ID)
		for _, reason := range s.Reasons {
			log.Printf("      %s", reason)
		}
	}
}
