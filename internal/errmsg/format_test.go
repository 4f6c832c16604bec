//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpScanLibrary,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpScanLibrary,
			err:      errors.New("permission denied"),
			expected: "Failed to scan music directory: permission denied",
		},
		{
			name:     "search operation",
			op:       OpSearchReleases,
			err:      errors.New("network error"),
			expected: "Failed to search MusicBrainz: network error",
		},
		{
			name:     "tagging operation",
			op:       OpTagAlbum,
			err:      errors.New("no matches"),
			expected: "Failed to tag album: no matches",
		},
		{
			name:     "backup operation",
			op:       OpBackupRestore,
			err:      errors.New("backup not found"),
			expected: "Failed to restore tag backup: backup not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpWriteTags,
			context:  "song.mp3",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpWriteTags,
			context:  "song.mp3",
			err:      errors.New("permission denied"),
			expected: "Failed to write tags 'song.mp3': permission denied",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpWriteTags,
			context:  "",
			err:      errors.New("permission denied"),
			expected: "Failed to write tags: permission denied",
		},
		{
			name:     "tag album with album context",
			op:       OpTagAlbum,
			context:  "Pink Floyd - The Wall",
			err:      errors.New("no MusicBrainz matches found"),
			expected: "Failed to tag album 'Pink Floyd - The Wall': no MusicBrainz matches found",
		},
		{
			name:     "scan with path context",
			op:       OpScanFolder,
			context:  "/music/incoming",
			err:      errors.New("directory not found"),
			expected: "Failed to scan folder '/music/incoming': directory not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	// Verify that Op constants are non-empty and produce valid messages
	ops := []Op{
		OpScanLibrary, OpScanFolder, OpReadFolder,
		OpSearchReleases, OpFetchRelease, OpFingerprint,
		OpTagAlbum, OpWriteTags, OpFetchArtwork, OpFetchLyrics,
		OpAnalyzeGain, OpQueueAlbum,
		OpBackupCreate, OpBackupRestore, OpBackupDelete,
		OpInitialize,
	}

	testErr := errors.New("test error")

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}

			result := Format(op, testErr)
			if result == "" {
				t.Error("Format should return non-empty string for non-nil error")
			}

			// Verify the format includes the operation
			expected := "Failed to " + string(op) + ": test error"
			if result != expected {
				t.Errorf("Format = %q, want %q", result, expected)
			}
		})
	}
}
