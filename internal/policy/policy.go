package policy

import (
	"strings"
	"time"
)

// Platform identifies a supported social network.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	X         Platform = "x"
	LinkedIn  Platform = "linkedin"
	TikTok    Platform = "tiktok"
	Pinterest Platform = "pinterest"
)

// legacyAlias maps deprecated platform names onto current ones.
// "twitter" survives in stored data and old client payloads.
var legacyAlias = map[string]Platform{
	"twitter": X,
}

// Format is a content format a platform can accept.
type Format string

const (
	FormatText     Format = "text"
	FormatCarousel Format = "carousel"
	FormatVideo    Format = "video"
)

// RateLimit is the posting budget for a platform.
type RateLimit struct {
	PerHour int
	PerDay  int
}

// Limits is the static per-platform policy entry.
type Limits struct {
	CharLimit      int
	AllowedFormats []Format
	RateLimit      RateLimit
}

// TruncationMarker is appended to captions cut down to a platform's
// character limit.
const TruncationMarker = "…"

var defaultRateLimit = RateLimit{PerHour: 10, PerDay: 50}

// limitsTable is never mutated at runtime. Every Platform constant has
// an entry.
var limitsTable = map[Platform]Limits{
	Instagram: {
		CharLimit:      2200,
		AllowedFormats: []Format{FormatText, FormatCarousel, FormatVideo},
		RateLimit:      RateLimit{PerHour: 25, PerDay: 200},
	},
	Facebook: {
		CharLimit:      63206,
		AllowedFormats: []Format{FormatText, FormatCarousel, FormatVideo},
		RateLimit:      RateLimit{PerHour: 25, PerDay: 200},
	},
	X: {
		CharLimit:      280,
		AllowedFormats: []Format{FormatText, FormatVideo},
		RateLimit:      RateLimit{PerHour: 300, PerDay: 50},
	},
	LinkedIn: {
		CharLimit:      3000,
		AllowedFormats: []Format{FormatText, FormatVideo},
		RateLimit:      RateLimit{PerHour: 100, PerDay: 100},
	},
	TikTok: {
		CharLimit:      150,
		AllowedFormats: []Format{FormatVideo},
		RateLimit:      RateLimit{PerHour: 10, PerDay: 10},
	},
	Pinterest: {
		CharLimit:      500,
		AllowedFormats: []Format{FormatText, FormatCarousel},
		RateLimit:      RateLimit{PerHour: 1000, PerDay: 1000},
	},
}

// All returns every supported platform in stable order.
func All() []Platform {
	return []Platform{Instagram, Facebook, X, LinkedIn, TikTok, Pinterest}
}

// Normalize maps a raw platform name onto its canonical Platform.
// Legacy aliases are folded in here so the rest of the system only
// ever sees canonical identifiers.
func Normalize(name string) (Platform, bool) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if p, ok := legacyAlias[lowered]; ok {
		return p, true
	}
	p := Platform(lowered)
	if _, ok := limitsTable[p]; ok {
		return p, true
	}
	return "", false
}

// LegacyNames returns every name a platform is known by, canonical
// first. Only the legacy output adapter should need this.
func LegacyNames(p Platform) []string {
	names := []string{string(p)}
	for alias, target := range legacyAlias {
		if target == p {
			names = append(names, alias)
		}
	}
	return names
}

// LimitFor returns the character limit for a platform.
func LimitFor(p Platform) int {
	if l, ok := limitsTable[p]; ok {
		return l.CharLimit
	}
	return 280
}

// FormatsFor returns the formats a platform accepts.
func FormatsFor(p Platform) []Format {
	if l, ok := limitsTable[p]; ok {
		return l.AllowedFormats
	}
	return []Format{FormatText}
}

// RateLimitFor returns the posting budget for a platform. Unknown
// platforms get a conservative default.
func RateLimitFor(p Platform) RateLimit {
	if l, ok := limitsTable[p]; ok {
		return l.RateLimit
	}
	return defaultRateLimit
}

// MinInterval returns the advisory spacing between consecutive posts
// derived from the hourly budget.
func MinInterval(p Platform) time.Duration {
	rl := RateLimitFor(p)
	if rl.PerHour <= 0 {
		return 0
	}
	return time.Hour / time.Duration(rl.PerHour)
}

// IsAllowedFormat reports whether a platform accepts the given format.
func IsAllowedFormat(p Platform, f Format) bool {
	for _, allowed := range FormatsFor(p) {
		if allowed == f {
			return true
		}
	}
	return false
}

// CoerceFormat maps an arbitrary format onto one the platform accepts,
// preferring the requested format when valid.
func CoerceFormat(p Platform, f Format) Format {
	if IsAllowedFormat(p, f) {
		return f
	}
	formats := FormatsFor(p)
	if len(formats) == 0 {
		return FormatText
	}
	return formats[0]
}
