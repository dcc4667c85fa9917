package automod

// MatchKind tells which list of a rule produced a match.
type MatchKind string

const (
	MatchWord  MatchKind = "word"
	MatchRegex MatchKind = "regex"
)

// Match describes one pattern firing against content.
type Match struct {
	Rule    string    `json:"rule"`
	RuleID  string    `json:"ruleId"`
	Kind    MatchKind `json:"matchType"`
	Pattern string    `json:"pattern"`
}

// CheckResult is the verdict for one content string.
//
// When Allowed is set, MatchedRule and MatchedRuleID name the rule whose allow
// pattern fired and Blocked is false no matter how many matches were found.
// When Blocked is set, the headline fields copy AllMatches[0].
type CheckResult struct {
	Blocked        bool      `json:"isBlocked"`
	Allowed        bool      `json:"isAllowed,omitempty"`
	AllowedPattern string    `json:"allowedPattern,omitempty"`
	MatchedRule    string    `json:"matchedRule,omitempty"`
	MatchedRuleID  string    `json:"matchedRuleId,omitempty"`
	MatchType      MatchKind `json:"matchType,omitempty"`
	MatchedPattern string    `json:"matchedPattern,omitempty"`
	AllMatches     []Match   `json:"allMatches"`
	MatchCount     int       `json:"matchCount"`
}

// PageCount returns how many pages of size matches the result spans.
func (r CheckResult) PageCount(size int) int {
	if size <= 0 || r.MatchCount == 0 {
		return 0
	}
	return (r.MatchCount + size - 1) / size
}

// Page returns the matches on the zero-based page index. Out of range indexes
// are clamped to the first or last page.
func (r CheckResult) Page(index, size int) []Match {
	pages := r.PageCount(size)
	if pages == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if index >= pages {
		index = pages - 1
	}
	start := index * size
	end := start + size
	if end > len(r.AllMatches) {
		end = len(r.AllMatches)
	}
	return r.AllMatches[start:end]
}
