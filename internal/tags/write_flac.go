package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// flacWriteOrder lists the comment keys this package manages, in the order
// they are written. Keys not listed here (foreign tags) are preserved as-is.
var flacWriteOrder = []string{
	"TITLE", "ARTIST", "ALBUMARTIST", "ALBUM", "GENRE",
	"TRACKNUMBER", "TOTALTRACKS", "DISCNUMBER", "TOTALDISCS",
	"DATE", "ORIGINALDATE", "ORIGINALYEAR",
	"ARTISTSORT",
	"LABEL", "CATALOGNUMBER", "BARCODE", "MEDIA",
	"RELEASESTATUS", "RELEASETYPE", "SCRIPT", "RELEASECOUNTRY",
	"MUSICBRAINZ_ARTISTID", "MUSICBRAINZ_ALBUMID", "MUSICBRAINZ_RELEASEGROUPID",
	"MUSICBRAINZ_RELEASETRACKID", "MUSICBRAINZ_TRACKID",
	"ISRC",
	"LYRICS", "SYNCEDLYRICS",
	"REPLAYGAIN_TRACK_GAIN", "REPLAYGAIN_TRACK_PEAK",
	"REPLAYGAIN_ALBUM_GAIN", "REPLAYGAIN_ALBUM_PEAK",
}

// writeFLACTags merges tags into the Vorbis comment block of a FLAC file.
// Existing comments survive unless the Tag carries a non-empty replacement,
// and a non-nil cover replaces the front cover picture block.
func writeFLACTags(path string, t *Tag) error {
	// Parse the FLAC file, handling ID3v2 headers if present
	f, id3Size, err := parseFLACWithID3Support(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	// If file had ID3v2 header, strip it first before we can modify tags
	if id3Size > 0 {
		if err := stripID3v2Header(path, id3Size); err != nil {
			return fmt.Errorf("strip ID3v2 header: %w", err)
		}
		// Re-parse after stripping
		f, err = flac.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parse file after ID3 strip: %w", err)
		}
	}

	// Find existing VORBIS_COMMENT block (if any) and read its comments
	cmtIdx := -1
	existing := map[string]string{}
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			cmtIdx = i
			existing = parseVorbisComments(meta.Data)
			break
		}
	}

	// Overlay: non-empty Tag fields win, everything else is kept
	merged := mergeFLACComments(existing, t)

	// Build a fresh comment block to avoid duplicate tags
	cmts := flacvorbis.New()
	for _, key := range flacWriteOrder {
		if value, ok := merged[key]; ok && value != "" {
			if err := cmts.Add(key, value); err != nil {
				return fmt.Errorf("add %s: %w", key, err)
			}
			delete(merged, key)
		}
	}
	// Preserve foreign keys in deterministic order
	foreign := make([]string, 0, len(merged))
	for key := range merged {
		foreign = append(foreign, key)
	}
	sort.Strings(foreign)
	for _, key := range foreign {
		if merged[key] == "" {
			continue
		}
		if err := cmts.Add(key, merged[key]); err != nil {
			return fmt.Errorf("add %s: %w", key, err)
		}
	}

	// Marshal the comment block
	cmtBlock := cmts.Marshal()

	// Update or add the comment block
	if cmtIdx >= 0 {
		f.Meta[cmtIdx] = &cmtBlock
	} else {
		f.Meta = append(f.Meta, &cmtBlock)
	}

	// Replace cover art if provided
	if len(t.CoverArt) > 0 {
		// Remove existing picture blocks
		newMeta := make([]*flac.MetaDataBlock, 0, len(f.Meta))
		for _, meta := range f.Meta {
			if meta.Type != flac.Picture {
				newMeta = append(newMeta, meta)
			}
		}
		f.Meta = newMeta

		// Create picture block
		mimeType := detectMimeType(t.CoverArt)
		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover,
			"Front Cover",
			t.CoverArt,
			mimeType,
		)
		if err != nil {
			return fmt.Errorf("create picture: %w", err)
		}

		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	// Save the file
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}

	return nil
}

// mergeFLACComments overlays non-empty Tag fields onto the existing comments.
func mergeFLACComments(existing map[string]string, t *Tag) map[string]string {
	merged := make(map[string]string, len(existing)+16)
	for key, value := range existing {
		merged[key] = value
	}

	set := func(key, value string) {
		if value != "" {
			merged[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value > 0 {
			merged[key] = strconv.Itoa(value)
		}
	}

	set("TITLE", t.Title)
	set("ARTIST", t.Artist)
	set("ALBUMARTIST", t.AlbumArtist)
	set("ALBUM", t.Album)
	set("GENRE", t.Genre)

	setInt("TRACKNUMBER", t.TrackNumber)
	setInt("TOTALTRACKS", t.TotalTracks)
	setInt("DISCNUMBER", t.DiscNumber)
	setInt("TOTALDISCS", t.TotalDiscs)

	set("DATE", t.Date)
	set("ORIGINALDATE", t.OriginalDate)
	set("ORIGINALYEAR", t.OriginalYear())

	set("ARTISTSORT", t.ArtistSortName)

	set("LABEL", t.Label)
	set("CATALOGNUMBER", t.CatalogNumber)
	set("BARCODE", t.Barcode)
	set("MEDIA", t.Media)
	set("RELEASESTATUS", t.ReleaseStatus)
	set("RELEASETYPE", t.ReleaseType)
	set("SCRIPT", t.Script)
	set("RELEASECOUNTRY", t.Country)

	set("MUSICBRAINZ_ARTISTID", t.MBArtistID)
	set("MUSICBRAINZ_ALBUMID", t.MBReleaseID)
	set("MUSICBRAINZ_RELEASEGROUPID", t.MBReleaseGroupID)
	set("MUSICBRAINZ_RELEASETRACKID", t.MBTrackID)
	set("MUSICBRAINZ_TRACKID", t.MBRecordingID)

	set("ISRC", t.ISRC)

	set("LYRICS", t.Lyrics)
	set("SYNCEDLYRICS", t.SyncedLyrics)

	set("REPLAYGAIN_TRACK_GAIN", t.TrackGain)
	set("REPLAYGAIN_TRACK_PEAK", t.TrackPeak)
	set("REPLAYGAIN_ALBUM_GAIN", t.AlbumGain)
	set("REPLAYGAIN_ALBUM_PEAK", t.AlbumPeak)

	return merged
}

// parseFLACWithID3Support parses a FLAC file, handling ID3v2 headers if present.
// Returns the parsed FLAC file, the size of any ID3v2 header found, and any error.
func parseFLACWithID3Support(path string) (*flac.File, int64, error) {
	// First try normal parsing
	f, err := flac.ParseFile(path)
	if err == nil {
		return f, 0, nil
	}

	// Check if error is due to ID3v2 header
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, 0, err // Return original error
	}
	defer file.Close()

	// Check for ID3v2 header (starts with "ID3")
	header := make([]byte, 10)
	if _, readErr := io.ReadFull(file, header); readErr != nil {
		return nil, 0, err // Return original error
	}

	if !bytes.Equal(header[:3], []byte(id3Magic)) {
		return nil, 0, err // Not an ID3v2 header, return original error
	}

	// Calculate ID3v2 header size
	// Size is stored in bytes 6-9 as syncsafe integer (7 bits per byte)
	id3Size := int64(10) // Base header size
	id3Size += int64(header[6]&0x7f)<<21 |
		int64(header[7]&0x7f)<<14 |
		int64(header[8]&0x7f)<<7 |
		int64(header[9]&0x7f)

	// Check for extended header flag
	if header[5]&0x40 != 0 {
		// Extended header present, need to read its size too
		extHeader := make([]byte, 4)
		if _, seekErr := file.Seek(10, io.SeekStart); seekErr != nil {
			return nil, 0, err
		}
		if _, readErr := io.ReadFull(file, extHeader); readErr != nil {
			return nil, 0, err
		}
		extSize := int64(extHeader[0]&0x7f)<<21 |
			int64(extHeader[1]&0x7f)<<14 |
			int64(extHeader[2]&0x7f)<<7 |
			int64(extHeader[3]&0x7f)
		id3Size += extSize
	}

	// Verify FLAC magic after ID3v2 header
	if _, seekErr := file.Seek(id3Size, io.SeekStart); seekErr != nil {
		return nil, 0, err
	}
	flacMagic := make([]byte, 4)
	if _, readErr := io.ReadFull(file, flacMagic); readErr != nil {
		return nil, 0, err
	}
	if !bytes.Equal(flacMagic, []byte("fLaC")) {
		return nil, 0, errors.New("no fLaC marker found after ID3v2 header")
	}

	return nil, id3Size, nil
}

// stripID3v2Header removes ID3v2 header from a file by rewriting it.
func stripID3v2Header(path string, id3Size int64) error {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Verify we have enough data
	if int64(len(data)) <= id3Size {
		return errors.New("file too small to strip ID3v2 header")
	}

	// Write back without the ID3v2 header, preserving original permissions
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data[id3Size:], info.Mode().Perm())
}
