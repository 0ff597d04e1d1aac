package models

import (
	"regexp"
	"strings"
)

// Platform identifies a supported Spanish listing portal.
type Platform string

const (
	PlatformIdealista  Platform = "idealista"
	PlatformFotocasa   Platform = "fotocasa"
	PlatformHabitaclia Platform = "habitaclia"
)

// AllPlatforms lists every supported platform in a stable order.
var AllPlatforms = []Platform{PlatformIdealista, PlatformFotocasa, PlatformHabitaclia}

var urlPatterns = map[Platform]*regexp.Regexp{
	PlatformIdealista:  regexp.MustCompile(`(?i)^https?://(www\.)?idealista\.(com|es|pt|it)/`),
	PlatformFotocasa:   regexp.MustCompile(`(?i)^https?://(www\.)?fotocasa\.(es|com)/`),
	PlatformHabitaclia: regexp.MustCompile(`(?i)^https?://(www\.)?habitaclia\.(com|es)/`),
}

// ParsePlatform normalizes a user-supplied platform name. The second return
// value is false for anything outside the supported set.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformIdealista, PlatformFotocasa, PlatformHabitaclia:
		return p, true
	}
	return "", false
}

// MatchesURL reports whether u looks like a listing URL on this platform.
func (p Platform) MatchesURL(u string) bool {
	re, ok := urlPatterns[p]
	return ok && re.MatchString(u)
}

func (p Platform) String() string {
	return string(p)
}
