// Package musicbrainz provides a rate-limited client for the MusicBrainz API
// and the Cover Art Archive.
package musicbrainz

// ReleaseGroup represents a MusicBrainz release group (album concept).
type ReleaseGroup struct {
	ID             string
	Title          string
	PrimaryType    string // Album, Single, EP, etc.
	SecondaryTypes []string
	FirstRelease   string // first-release-date
	Artist         string
	Genres         []string
}

// Release represents a MusicBrainz release (album). Search results fill the
// stub fields only; GetRelease fills everything.
type Release struct {
	ID             string
	Title          string
	Artist         string
	ArtistID       string
	ArtistSortName string
	Date           string
	Country        string
	TrackCount     int
	DiscCount      int
	Score          int // search relevance (0-100)
	ReleaseType    string
	ReleaseGroupID string
	Status         string // Official, Promotional, Bootleg
	Media          string // CD, Vinyl, Digital Media, ...
	Genres         []string
	Label          string
	CatalogNumber  string
	Barcode        string
	Script         string
}

// Year returns the numeric release year, 0 when unknown.
func (r *Release) Year() int {
	return yearOf(r.Date)
}

// Track represents a track on a release.
type Track struct {
	Position    int // position within its disc (1-based)
	DiscNumber  int // disc number (1-based)
	Title       string
	Length      int // duration in milliseconds
	RecordingID string
	TrackID     string
	ISRC        string
	Artist      string // track-level artist credit
}

// ReleaseDetails contains full release information including tracks.
type ReleaseDetails struct {
	Release
	Tracks       []Track
	OriginalYear int    // from release-group first-release-date
	OriginalDate string // release-group first-release-date
}

// TrackAt returns the track at (disc, position), nil when absent.
func (d *ReleaseDetails) TrackAt(disc, position int) *Track {
	for i := range d.Tracks {
		t := &d.Tracks[i]
		if t.DiscNumber == disc && t.Position == position {
			return t
		}
	}
	return nil
}

// searchResponse is the raw response from MusicBrainz release search.
type searchResponse struct {
	Releases []releaseResult `json:"releases"`
}

// releaseResult is a single release from search results.
type releaseResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	Barcode      string         `json:"barcode"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	ReleaseGroup *releaseGroup  `json:"release-group"`
	Media        []medium       `json:"media"`
	LabelInfo    []labelInfo    `json:"label-info"`
}

// genre represents a MusicBrainz genre with its vote count.
type genre struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// folksonomyTag is a user-submitted tag with its vote count.
type folksonomyTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// artistCredit represents an artist contribution.
type artistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		SortName string `json:"sort-name"`
	} `json:"artist"`
	JoinPhrase string `json:"joinphrase"`
}

// releaseGroup is the embedded release-group of a release response.
type releaseGroup struct {
	ID           string          `json:"id"`
	PrimaryType  string          `json:"primary-type"`
	FirstRelease string          `json:"first-release-date"`
	Genres       []genre         `json:"genres"`
	Tags         []folksonomyTag `json:"tags"`
}

// medium represents a disc/medium in a release.
type medium struct {
	Position   int     `json:"position"`
	Format     string  `json:"format"`
	TrackCount int     `json:"track-count"`
	Tracks     []track `json:"tracks"`
}

// track is a raw track from the API.
type track struct {
	ID           string         `json:"id"`
	Position     int            `json:"position"`
	Title        string         `json:"title"`
	Length       int            `json:"length"`
	Recording    *recording     `json:"recording"`
	ArtistCredit []artistCredit `json:"artist-credit"`
}

// recording represents a MusicBrainz recording (linked from track).
type recording struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Length int      `json:"length"`
	ISRCs  []string `json:"isrcs"`
}

// releaseDetailsResponse is the response when fetching a single release.
type releaseDetailsResponse struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Date               string              `json:"date"`
	Country            string              `json:"country"`
	Status             string              `json:"status"`
	Barcode            string              `json:"barcode"`
	ArtistCredit       []artistCredit      `json:"artist-credit"`
	ReleaseGroup       *releaseGroup       `json:"release-group"`
	Media              []medium            `json:"media"`
	Genres             []genre             `json:"genres"`
	Tags               []folksonomyTag     `json:"tags"`
	LabelInfo          []labelInfo         `json:"label-info"`
	TextRepresentation *textRepresentation `json:"text-representation"`
}

// labelInfo contains label and catalog number for a release.
type labelInfo struct {
	CatalogNumber string `json:"catalog-number"`
	Label         *label `json:"label"`
}

// label represents a record label.
type label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// textRepresentation contains script info for a release.
type textRepresentation struct {
	Language string `json:"language"`
	Script   string `json:"script"`
}

// releaseGroupResult is a release group fetched directly.
type releaseGroupResult struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	PrimaryType    string         `json:"primary-type"`
	SecondaryTypes []string       `json:"secondary-types"`
	FirstRelease   string         `json:"first-release-date"`
	ArtistCredit   []artistCredit `json:"artist-credit"`
	Genres         []genre        `json:"genres"`
}
