package folder

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
)

// patternCache holds compiled disc folder patterns, rebuilt whenever the
// settings version changes.
type patternCache struct {
	settings *store.Settings

	mu       sync.Mutex
	version  int64
	compiled []*regexp.Regexp
}

func newPatternCache(settings *store.Settings) *patternCache {
	return &patternCache{settings: settings}
}

func (c *patternCache) get() []*regexp.Regexp {
	version := c.settings.Version()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled != nil && c.version == version {
		return c.compiled
	}

	raw := c.settings.StringSlice(store.SettingDiscFolderPatterns, store.DefaultDiscFolderPatterns)
	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, pattern := range raw {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warnf(context.Background(), "invalid disc folder pattern %q: %v", pattern, err)
			continue
		}
		compiled = append(compiled, re)
	}

	c.compiled = compiled
	c.version = version
	return compiled
}

// DiscNumberFromName matches a folder name against the disc patterns and
// returns the disc number. A single-letter capture maps a to 1, b to 2, etc.
func (r *Reader) DiscNumberFromName(name string) (int, bool) {
	for _, re := range r.patterns.get() {
		match := re.FindStringSubmatch(name)
		if len(match) < 2 {
			continue
		}
		capture := match[1]
		if n, err := strconv.Atoi(capture); err == nil {
			return n, true
		}
		if len(capture) == 1 {
			ch := capture[0]
			if ch >= 'a' && ch <= 'z' {
				return int(ch-'a') + 1, true
			}
			if ch >= 'A' && ch <= 'Z' {
				return int(ch-'A') + 1, true
			}
		}
	}
	return 0, false
}
