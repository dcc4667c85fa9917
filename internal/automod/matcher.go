package automod

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// SpecialChars decides between word-boundary and substring matching. Hyphenated
// and dotted patterns intentionally bypass the boundary check.
const SpecialChars = `<>@#.-/\`

const defaultCacheSize = 1024

var entityMarkers = []string{"<@", "discord.gg", "discord.com/invite", "discordapp.com/invite", "http"}

// PatternError reports a pattern that could not be compiled.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

type compiled struct {
	re  *regexp.Regexp
	err error
}

// Matcher tests single patterns against content. Compiled expressions, and
// compile failures, are kept in a bounded cache so a bad pattern is reported
// once instead of on every message.
type Matcher struct {
	logger *zap.Logger
	cache  *lru.Cache[string, compiled]
}

func NewMatcher(logger *zap.Logger, cacheSize int) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, compiled](cacheSize)
	if err != nil {
		logger.Warn("pattern cache disabled", zap.Error(err))
	}
	return &Matcher{logger: logger, cache: cache}
}

// MatchWord reports whether a blocked or allowed word pattern fires. lowered
// must be the lower-cased content.
func (m *Matcher) MatchWord(lowered, pattern string) bool {
	if pattern == "" {
		return false
	}
	p := strings.ToLower(pattern)
	if p == lowered {
		return true
	}

	wildcard := strings.Contains(p, "*")
	if !wildcard && isEntityLike(p) {
		return strings.Contains(lowered, p)
	}
	if wildcard {
		re := m.lookup("wildcard:"+p, p, compileWildcard)
		return re != nil && re.MatchString(lowered)
	}
	if hasSpecialChar(p) {
		return strings.Contains(lowered, p)
	}
	re := m.lookup("word:"+p, p, compileWord)
	return re != nil && re.MatchString(lowered)
}

// MatchRegex reports whether a regex pattern entry fires against the original
// content. Reserved identifiers use the platform detectors.
func (m *Matcher) MatchRegex(content, pattern string) bool {
	if pattern == "" {
		return false
	}
	if re, ok := PlatformPattern(pattern); ok {
		return re.MatchString(content)
	}
	re := m.lookup("regex:"+pattern, pattern, compileUserRegex)
	return re != nil && re.MatchString(content)
}

func (m *Matcher) lookup(key, pattern string, compile func(string) (*regexp.Regexp, error)) *regexp.Regexp {
	if m.cache != nil {
		if hit, ok := m.cache.Get(key); ok {
			return hit.re
		}
	}
	re, err := compile(pattern)
	if err != nil {
		m.logger.Warn("automod pattern skipped", zap.String("pattern", pattern), zap.Error(err))
		re = nil
	}
	if m.cache != nil {
		m.cache.Add(key, compiled{re: re, err: err})
	}
	return re
}

func compileWildcard(pattern string) (*regexp.Regexp, error) {
	body := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	if !hasSpecialChar(pattern) {
		body = `\b` + body + `\b`
	}
	re, err := regexp.Compile(`(?i)` + body)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return re, nil
}

func compileWord(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(pattern) + `\b`)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return re, nil
}

func compileUserRegex(source string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?im)` + source)
	if err != nil {
		return nil, &PatternError{Pattern: source, Err: err}
	}
	return re, nil
}

func isEntityLike(pattern string) bool {
	for _, marker := range entityMarkers {
		if strings.Contains(pattern, marker) {
			return true
		}
	}
	return false
}

func hasSpecialChar(pattern string) bool {
	return strings.ContainsAny(pattern, SpecialChars)
}
