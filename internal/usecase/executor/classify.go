package executor

import "strings"

// Class is the failure classification of a diagnostic text.
type Class int

// Failure classes, in match precedence order.
const (
	ClassGeneric Class = iota
	ClassDailyQuota
	ClassPermanentMedia
	ClassRateLimit
)

func (c Class) String() string {
	switch c {
	case ClassDailyQuota:
		return "daily_quota"
	case ClassPermanentMedia:
		return "permanent_media"
	case ClassRateLimit:
		return "rate_limit"
	default:
		return "generic"
	}
}

// Phrase lists are matched against lowercased text with typographic apostrophes folded to '.
var (
	dailyQuotaPhrases = []string{
		"all requests per day",
		"quota exceeded for quota metric 'all requests'",
		"quota metric 'all requests' and limit 'all requests per day'",
	}
	permanentMediaPhrases = []string{
		"error while trying to create this media item",
		"upload failed: failed: there was an error while trying to create this media item",
		"it may be damaged or use a file format that preview doesn't recognize",
	}
	rateLimitPhrases = []string{
		"quota exceeded",
		"too many requests",
		"rate limit",
	}
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// Classify maps diagnostic output to a failure class. Daily quota wins over the
// generic "quota exceeded" rate-limit phrase it contains.
func Classify(diagnostic string) Class {
	if diagnostic == "" {
		return ClassGeneric
	}
	text := apostrophes.Replace(strings.ToLower(diagnostic))

	switch {
	case containsAny(text, dailyQuotaPhrases):
		return ClassDailyQuota
	case containsAny(text, permanentMediaPhrases):
		return ClassPermanentMedia
	case containsAny(text, rateLimitPhrases):
		return ClassRateLimit
	default:
		return ClassGeneric
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
