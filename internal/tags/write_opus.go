package tags

import (
	"fmt"
	"strconv"

	"go.senan.xyz/taglib"
)

// Custom tag keys not in taglib constants
const (
	totalTracks  = "TOTALTRACKS"
	totalDiscs   = "TOTALDISCS"
	originalYear = "ORIGINALYEAR"
)

// writeOggTags merges Vorbis comments into an Opus/OGG file using TagLib.
// Without the Clear option TagLib keeps keys absent from the map, which gives
// the merge semantics the other writers implement by hand.
func writeOggTags(path string, t *Tag) error {
	tags := make(map[string][]string)

	// Helper to add tag if non-empty
	addTag := func(key, value string) {
		if value != "" {
			tags[key] = []string{value}
		}
	}

	// Helper to add int tag if > 0
	addIntTag := func(key string, value int) {
		if value > 0 {
			tags[key] = []string{strconv.Itoa(value)}
		}
	}

	// Basic tags
	addTag(taglib.Artist, t.Artist)
	addTag(taglib.AlbumArtist, t.AlbumArtist)
	addTag(taglib.Album, t.Album)
	addTag(taglib.Title, t.Title)
	addTag(taglib.Genre, t.Genre)

	// Track/disc numbers
	addIntTag(taglib.TrackNumber, t.TrackNumber)
	addIntTag(totalTracks, t.TotalTracks)
	addIntTag(taglib.DiscNumber, t.DiscNumber)
	addIntTag(totalDiscs, t.TotalDiscs)

	// Date tags
	addTag(taglib.Date, t.Date)
	addTag(taglib.OriginalDate, t.OriginalDate)
	addTag(originalYear, t.OriginalYear())

	// Artist info
	addTag(taglib.ArtistSort, t.ArtistSortName)

	// Release info
	addTag(taglib.Label, t.Label)
	addTag(taglib.CatalogNumber, t.CatalogNumber)
	addTag(taglib.Barcode, t.Barcode)
	addTag(taglib.Media, t.Media)
	addTag(taglib.ReleaseStatus, t.ReleaseStatus)
	addTag(taglib.ReleaseType, t.ReleaseType)
	addTag(taglib.Script, t.Script)
	addTag(taglib.ReleaseCountry, t.Country)

	// MusicBrainz IDs
	addTag(taglib.MusicBrainzArtistID, t.MBArtistID)
	addTag(taglib.MusicBrainzAlbumID, t.MBReleaseID)
	addTag(taglib.MusicBrainzReleaseGroupID, t.MBReleaseGroupID)
	addTag(taglib.MusicBrainzReleaseTrackID, t.MBTrackID)
	addTag(taglib.MusicBrainzTrackID, t.MBRecordingID) // Recording ID uses MUSICBRAINZ_TRACKID

	// Recording info
	addTag(taglib.ISRC, t.ISRC)

	// Lyrics
	addTag("LYRICS", t.Lyrics)
	addTag("SYNCEDLYRICS", t.SyncedLyrics)

	// ReplayGain. Opus players read the R128 Q7.8 values.
	addTag("REPLAYGAIN_TRACK_GAIN", t.TrackGain)
	addTag("REPLAYGAIN_TRACK_PEAK", t.TrackPeak)
	addTag("REPLAYGAIN_ALBUM_GAIN", t.AlbumGain)
	addTag("REPLAYGAIN_ALBUM_PEAK", t.AlbumPeak)
	addTag("R128_TRACK_GAIN", t.R128TrackGain)
	addTag("R128_ALBUM_GAIN", t.R128AlbumGain)

	// Write tags, keeping existing keys that are not in our map
	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	// Replace cover art if provided
	if len(t.CoverArt) > 0 {
		if err := taglib.WriteImage(path, t.CoverArt); err != nil {
			return fmt.Errorf("write cover art: %w", err)
		}
	}

	return nil
}
