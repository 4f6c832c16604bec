package artwork

import (
	"context"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
)

// DiscoveredImage is one enumerated cover option. Label says which source
// produced it; "candidate" entries carry the MusicBrainz release they were
// probed from.
type DiscoveredImage struct {
	Candidate
	Label     string
	ReleaseID string
}

// Discover enumerates cover options across every source without picking a
// winner: the album folder, the Cover Art Archive for the matched release,
// one archive probe per candidate release, then iTunes and fanart.tv. Meant
// for manual cover selection, so sources that fail are skipped silently.
func (s *Selector) Discover(ctx context.Context, req Request, candidateReleaseIDs []string) []DiscoveredImage {
	var images []DiscoveredImage
	add := func(label, releaseID string, c *Candidate) {
		if c == nil {
			return
		}
		images = append(images, DiscoveredImage{Candidate: *c, Label: label, ReleaseID: releaseID})
	}

	for _, source := range []string{"filesystem", "coverart", "itunes", "fanarttv"} {
		add(source, "", s.fromSource(ctx, source, req))
	}

	// The stored match candidates may resolve to different archive covers
	// than the chosen release (other pressings, other countries).
	for _, id := range candidateReleaseIDs {
		if id == "" || id == req.ReleaseID {
			continue
		}
		c := s.fromSource(ctx, "coverart", Request{ReleaseID: id})
		if c != nil {
			c.Source = "candidate"
		}
		add("candidate", id, c)
	}

	logger.Debugf(ctx, "discovered %d cover options for %q - %q", len(images), req.Artist, req.Album)
	return images
}
