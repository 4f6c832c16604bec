// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Scanning operations
	OpScanLibrary Op = "scan music directory"
	OpScanFolder  Op = "scan folder"
	OpReadFolder  Op = "read audio files"

	// Matching operations
	OpSearchReleases Op = "search MusicBrainz"
	OpFetchRelease   Op = "fetch release details"
	OpFingerprint    Op = "fingerprint tracks"

	// Tagging operations
	OpTagAlbum     Op = "tag album"
	OpWriteTags    Op = "write tags"
	OpFetchArtwork Op = "fetch artwork"
	OpFetchLyrics  Op = "fetch lyrics"
	OpAnalyzeGain  Op = "measure loudness"
	OpQueueAlbum   Op = "queue album for tagging"

	// Backup operations
	OpBackupCreate  Op = "back up tags"
	OpBackupRestore Op = "restore tag backup"
	OpBackupDelete  Op = "delete tag backup"

	// Initialization
	OpInitialize Op = "initialize service"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
