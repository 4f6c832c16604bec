package store

import "time"

// Album statuses as stored in the albums table.
const (
	StatusPending     = "pending"
	StatusTagging     = "tagging"
	StatusTagged      = "tagged"
	StatusNeedsReview = "needs_review"
	StatusSkipped     = "skipped"
	StatusFailed      = "failed"
)

// Track statuses. Tracks mirror their album's last write outcome.
const (
	TrackStatusPending = "pending"
	TrackStatusTagged  = "tagged"
	TrackStatusFailed  = "failed"
)

// Backup actions: the mutation a backup was taken to protect.
const (
	BackupActionTag        = "tag"
	BackupActionPreRestore = "pre_restore"
)

// Activity log actions.
const (
	ActionScanned           = "scanned"
	ActionIncrementalUpdate = "incremental_update"
	ActionTagged            = "tagged"
	ActionMatchFailed       = "match_failed"
	ActionNeedsReview       = "needs_review"
	ActionSkipped           = "skipped"
	ActionBackupRestored    = "backup_restored"
)

type Album struct {
	ID               int64
	Path             string
	Artist           string
	Title            string
	Year             int
	DiscNumber       int
	TotalDiscs       int
	TrackCount       int
	Status           string
	MatchScore       float64
	MBReleaseID      string
	MBReleaseGroupID string
	CoverPath        string
	ErrorMessage     string
	RetryCount       int
	UserInitiated    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Track struct {
	ID           int64
	AlbumID      int64
	Path         string
	Filename     string
	Mtime        int64
	Title        string
	Artist       string
	TrackNumber  int
	DiscNumber   int
	Duration     float64
	Format       string
	Bitrate      int
	SampleRate   int
	HasArtwork   bool
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

type MatchCandidate struct {
	ID               int64
	AlbumID          int64
	MBReleaseID      string
	MBReleaseGroupID string
	Artist           string
	Title            string
	Year             int
	Country          string
	Media            string
	Label            string
	CatalogNumber    string
	Barcode          string
	TrackCount       int
	Score            float64
	IsSelected       bool
	CreatedAt        time.Time
}

type ActivityEntry struct {
	ID        int64
	AlbumID   int64 // 0 when the album has been deleted
	Action    string
	Detail    string
	CreatedAt time.Time
}

type TagBackup struct {
	ID            string
	AlbumID       int64
	Action        string
	CoverFilename string
	CreatedAt     time.Time
}

type TrackTagSnapshot struct {
	ID        int64
	BackupID  string
	TrackPath string
	TagsJSON  string
}
