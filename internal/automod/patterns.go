package automod

import "regexp"

// Reserved regex pattern identifiers.
const (
	PatternInvite      = "discord-invite"
	PatternUserMention = "user-mention"
	PatternCustomEmoji = "custom-emoji"
	PatternMessageLink = "message-link"
	PatternWebhook     = "webhook"
)

var platformPatterns = map[string]*regexp.Regexp{
	PatternInvite:      regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord(?:app)?\.com/invite|discord\.(?:gg|io|me|li))/[a-z0-9-]+`),
	PatternUserMention: regexp.MustCompile(`<@!?\d{17,20}>`),
	PatternCustomEmoji: regexp.MustCompile(`<a?:\w{2,32}:\d{17,20}>`),
	PatternMessageLink: regexp.MustCompile(`(?i)https?://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(?:\d{17,20}|@me)/\d{17,20}/\d{17,20}`),
	PatternWebhook:     regexp.MustCompile(`(?i)https?://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/api(?:/v\d+)?/webhooks/\d{17,20}/[\w-]+`),
}

// PlatformPattern returns the detector for a reserved identifier.
func PlatformPattern(id string) (*regexp.Regexp, bool) {
	re, ok := platformPatterns[id]
	return re, ok
}

// IsPlatformPattern reports whether id is one of the reserved identifiers.
func IsPlatformPattern(id string) bool {
	_, ok := platformPatterns[id]
	return ok
}
