package folder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewReader(st.Settings())
}

// writeTestMP3 creates a minimal MP3 frame and writes the given tags to it.
func writeTestMP3(t *testing.T, dir, name string, tag *tags.Tag) string {
	t.Helper()
	path := filepath.Join(dir, name)

	// MPEG1 Layer3, 128kbps, 44100Hz, stereo
	frame := make([]byte, 417)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	require.NoError(t, os.WriteFile(path, frame, 0o600))

	if tag != nil {
		require.NoError(t, tags.Write(path, tag))
	}
	return path
}

func TestDiscNumberFromName(t *testing.T) {
	r := newTestReader(t)

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"CD1", 1, true},
		{"cd 2", 2, true},
		{"Disc 3", 3, true},
		{"disk12", 12, true},
		{"CD A", 1, true},
		{"cd b", 2, true},
		{"Bonus", 0, false},
		{"CD", 0, false},
		{"Disc One", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.DiscNumberFromName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscPatterns_RecompiledOnSettingsChange(t *testing.T) {
	st, err := store.OpenMemory()
	require.NoError(t, err)
	defer st.Close()
	r := NewReader(st.Settings())

	_, ok := r.DiscNumberFromName("Volume 2")
	assert.False(t, ok)

	require.NoError(t, st.Settings().Set(store.SettingDiscFolderPatterns, []string{`(?i)^volume\s*(\d+)$`}))

	got, ok := r.DiscNumberFromName("Volume 2")
	assert.True(t, ok)
	assert.Equal(t, 2, got)

	// Old defaults no longer match
	_, ok = r.DiscNumberFromName("CD1")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	r := newTestReader(t)

	t.Run("empty", func(t *testing.T) {
		dir := t.TempDir()
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindEmpty, kind)
	})

	t.Run("flat album", func(t *testing.T) {
		dir := t.TempDir()
		writeTestMP3(t, dir, "01 - track.mp3", nil)
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindAlbum, kind)
	})

	t.Run("multi-disc parent", func(t *testing.T) {
		dir := t.TempDir()
		for _, sub := range []string{"CD1", "CD2"} {
			require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o755))
			writeTestMP3(t, filepath.Join(dir, sub), "track.mp3", nil)
		}
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindMultiDisc, kind)
	})

	t.Run("artist dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "Some Album"), 0o755))
		writeTestMP3(t, filepath.Join(dir, "Some Album"), "track.mp3", nil)
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindArtistDir, kind)
	})

	t.Run("empty disc folders ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "CD1"), 0o755))
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindEmpty, kind)
	})

	t.Run("hidden entries ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".hidden"), 0o755))
		writeTestMP3(t, filepath.Join(dir, ".hidden"), "track.mp3", nil)
		kind, err := r.Classify(dir)
		require.NoError(t, err)
		assert.Equal(t, KindEmpty, kind)
	})
}

func TestReadFolder(t *testing.T) {
	r := newTestReader(t)
	dir := t.TempDir()

	writeTestMP3(t, dir, "02 - second.mp3", &tags.Tag{
		Title: "Second", Artist: "The Band", Album: "The Album",
		TrackNumber: 2, Date: "2001", MBReleaseID: "rel-1",
	})
	writeTestMP3(t, dir, "01 - first.mp3", &tags.Tag{
		Title: "First", Artist: "The Band", AlbumArtist: "The Band", Album: "The Album",
		TrackNumber: 1, Date: "2001", MBReleaseID: "rel-1",
	})
	writeTestMP3(t, dir, "03 - third.mp3", &tags.Tag{
		Title: "Third", Artist: "Guest Artist", Album: "The Album",
		TrackNumber: 3, Date: "2001", MBReleaseID: "rel-1",
	})

	// Non-audio files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte{0xFF, 0xD8}, 0o600))

	info, err := r.ReadFolder(dir)
	require.NoError(t, err)

	require.Equal(t, 3, info.TrackCount())
	assert.Equal(t, "First", info.Files[0].Title)
	assert.Equal(t, "Second", info.Files[1].Title)
	assert.Equal(t, "Third", info.Files[2].Title)

	assert.Equal(t, "The Band", info.Artist)
	assert.Equal(t, "The Album", info.Album)
	assert.Equal(t, 2001, info.Year)
	assert.Equal(t, "rel-1", info.MBReleaseID)
}

func TestReadFolder_ReleaseIDDisagreement(t *testing.T) {
	r := newTestReader(t)
	dir := t.TempDir()

	writeTestMP3(t, dir, "01.mp3", &tags.Tag{Title: "A", MBReleaseID: "rel-1"})
	writeTestMP3(t, dir, "02.mp3", &tags.Tag{Title: "B", MBReleaseID: "rel-2"})

	info, err := r.ReadFolder(dir)
	require.NoError(t, err)
	assert.Empty(t, info.MBReleaseID)
}

func TestReadFolder_PluralityVote(t *testing.T) {
	r := newTestReader(t)
	dir := t.TempDir()

	writeTestMP3(t, dir, "01.mp3", &tags.Tag{Title: "A", Artist: "Common", Album: "X"})
	writeTestMP3(t, dir, "02.mp3", &tags.Tag{Title: "B", Artist: "Common", Album: "X"})
	writeTestMP3(t, dir, "03.mp3", &tags.Tag{Title: "C", Artist: "Outlier", Album: "X"})

	info, err := r.ReadFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, "Common", info.Artist)
	assert.Equal(t, "X", info.Album)
}

func TestReadAlbum_MultiDisc(t *testing.T) {
	r := newTestReader(t)
	dir := t.TempDir()

	for disc, sub := range map[int]string{1: "CD1", 2: "CD2"} {
		discDir := filepath.Join(dir, sub)
		require.NoError(t, os.Mkdir(discDir, 0o755))
		writeTestMP3(t, discDir, "01.mp3", &tags.Tag{
			Title: sub + " one", Artist: "The Band", Album: "Big Box",
			TrackNumber: 1, DiscNumber: disc,
		})
	}

	info, err := r.ReadAlbum(dir)
	require.NoError(t, err)

	require.Equal(t, 2, info.TrackCount())
	assert.Equal(t, 2, info.TotalDiscs)
	assert.Equal(t, 1, info.Files[0].DiscNumber)
	assert.Equal(t, 2, info.Files[1].DiscNumber)
	assert.Equal(t, "Big Box", info.Album)
}

func TestDiscFolders_Ordered(t *testing.T) {
	r := newTestReader(t)
	dir := t.TempDir()

	for _, sub := range []string{"CD2", "CD10", "CD1"} {
		discDir := filepath.Join(dir, sub)
		require.NoError(t, os.Mkdir(discDir, 0o755))
		writeTestMP3(t, discDir, "track.mp3", nil)
	}

	discs, err := r.DiscFolders(dir)
	require.NoError(t, err)
	require.Len(t, discs, 3)
	assert.Equal(t, 1, discs[0].Number)
	assert.Equal(t, 2, discs[1].Number)
	assert.Equal(t, 10, discs[2].Number)
}
