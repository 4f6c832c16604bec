package tags

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// writeMP3Tags merges ID3v2 tags into an MP3 file.
// Only non-empty fields are written; existing frames are kept otherwise.
func writeMP3Tags(path string, t *Tag) error {
	// Open the file for tag editing
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		// ID3v2.2 or older tags - strip them and retry
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return fmt.Errorf("strip unsupported ID3v2.2 tag: %w", stripErr)
		}
		tag, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer tag.Close()

	// Use ID3v2.4 with UTF-8 for better Unicode support
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	setText := func(frameID, value string) {
		if value != "" {
			tag.AddTextFrame(frameID, id3v2.EncodingUTF8, value)
		}
	}

	// Basic tags
	setText("TIT2", t.Title)
	setText("TPE1", t.Artist)
	setText("TALB", t.Album)
	setText("TCON", t.Genre)

	// Recording date (TDRC for ID3v2.4)
	setText("TDRC", t.Date)

	// Track number (format: "track/total")
	if t.TrackNumber > 0 {
		trackStr := strconv.Itoa(t.TrackNumber)
		if t.TotalTracks > 0 {
			trackStr += "/" + strconv.Itoa(t.TotalTracks)
		}
		setText(tag.CommonID("Track number/Position in set"), trackStr)
	}

	// Disc number (TPOS frame)
	if t.DiscNumber > 0 {
		discStr := strconv.Itoa(t.DiscNumber)
		if t.TotalDiscs > 0 {
			discStr += "/" + strconv.Itoa(t.TotalDiscs)
		}
		setText(tag.CommonID("Part of a set"), discStr)
	}

	// Album artist (TPE2 frame)
	setText(tag.CommonID("Band/Orchestra/Accompaniment"), t.AlbumArtist)

	// Artist sort name (TSOP frame)
	setText("TSOP", t.ArtistSortName)

	// Original date (TDOR frame for ID3v2.4)
	if t.OriginalDate != "" {
		setText("TDOR", t.OriginalDate)
		// Also set original year as TXXX for broader compatibility
		setTXXXFrame(tag, "ORIGINALYEAR", t.OriginalYear())
	}

	// Label/publisher (TPUB frame)
	setText("TPUB", t.Label)

	// Media type (TMED frame)
	setText("TMED", t.Media)

	// ISRC (TSRC frame)
	setText("TSRC", t.ISRC)

	// MusicBrainz IDs as TXXX frames (matching Picard's exact descriptions)
	setTXXXFrame(tag, "MusicBrainz Artist Id", t.MBArtistID)
	setTXXXFrame(tag, "MusicBrainz Album Id", t.MBReleaseID)
	setTXXXFrame(tag, "MusicBrainz Release Group Id", t.MBReleaseGroupID)
	setTXXXFrame(tag, "MusicBrainz Release Track Id", t.MBTrackID)

	// Recording ID uses UFID frame in ID3v2.4 (Picard standard)
	if t.MBRecordingID != "" {
		tag.DeleteFrames("UFID")
		tag.AddFrame("UFID", id3v2.UFIDFrame{
			OwnerIdentifier: "http://musicbrainz.org",
			Identifier:      []byte(t.MBRecordingID),
		})
	}

	// Other TXXX frames for Picard compatibility
	setTXXXFrame(tag, "CATALOGNUMBER", t.CatalogNumber)
	setTXXXFrame(tag, "BARCODE", t.Barcode)
	setTXXXFrame(tag, "MusicBrainz Album Status", t.ReleaseStatus)
	setTXXXFrame(tag, "MusicBrainz Album Type", t.ReleaseType)
	setTXXXFrame(tag, "SCRIPT", t.Script)
	setTXXXFrame(tag, "MusicBrainz Album Release Country", t.Country)

	// Lyrics (USLT for plain text, TXXX for the LRC variant)
	if t.Lyrics != "" {
		usltID := tag.CommonID("Unsynchronised lyrics/text transcription")
		tag.DeleteFrames(usltID)
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            t.Lyrics,
		})
	}
	setTXXXFrame(tag, "SYNCEDLYRICS", t.SyncedLyrics)

	// ReplayGain
	setTXXXFrame(tag, "REPLAYGAIN_TRACK_GAIN", t.TrackGain)
	setTXXXFrame(tag, "REPLAYGAIN_TRACK_PEAK", t.TrackPeak)
	setTXXXFrame(tag, "REPLAYGAIN_ALBUM_GAIN", t.AlbumGain)
	setTXXXFrame(tag, "REPLAYGAIN_ALBUM_PEAK", t.AlbumPeak)

	// Replace cover art if provided
	if len(t.CoverArt) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		mimeType := detectMimeType(t.CoverArt)
		pic := id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     t.CoverArt,
		}
		tag.AddAttachedPicture(pic)
	}

	// Save changes
	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}

	return nil
}

// setTXXXFrame replaces the TXXX (user-defined text) frame with the given
// description, leaving other TXXX frames untouched. No-op for empty values.
func setTXXXFrame(tag *id3v2.Tag, description, value string) {
	if value == "" {
		return
	}
	existing := tag.GetFrames("TXXX")
	kept := make([]id3v2.UserDefinedTextFrame, 0, len(existing))
	for _, frame := range existing {
		if txxx, ok := frame.(id3v2.UserDefinedTextFrame); ok && txxx.Description != description {
			kept = append(kept, txxx)
		}
	}
	tag.DeleteFrames("TXXX")
	for _, txxx := range kept {
		tag.AddUserDefinedTextFrame(txxx)
	}
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

// stripID3v2Tag removes ID3v2 tags from an MP3 file.
// This is used to handle ID3v2.2 tags which the id3v2 library doesn't support.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	// Check for ID3v2 header (must have at least 10 bytes for header)
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil // No ID3v2 tag to strip
	}

	// Parse tag size from bytes 6-9 (synchsafe integer: each byte uses only 7 bits)
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	tagSize := size + 10 // Add 10-byte header

	// Check for footer flag (bit 4 of flags byte) - ID3v2.4 only
	if data[5]&0x10 != 0 {
		tagSize += 10
	}

	if tagSize >= len(data) {
		return fmt.Errorf("ID3v2 tag size (%d) exceeds file size (%d)", tagSize, len(data))
	}

	// Preserve original file permissions
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	// Write audio data without the ID3v2 tag
	if err := os.WriteFile(path, data[tagSize:], info.Mode()); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
