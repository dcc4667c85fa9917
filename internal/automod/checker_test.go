package automod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestChecker(entries ...RuleEntry) *Checker {
	return NewChecker(NewRuleSet(entries...), NewMatcher(zap.NewNop(), 64), zap.NewNop())
}

func TestInviteScenario(t *testing.T) {
	c := newTestChecker(RuleEntry{ID: "r1", Rule: Rule{
		Name:          "Invites",
		RegexPatterns: []string{PatternInvite},
		AllowedWords:  []string{"discord.gg/official"},
	}})

	allowed := c.CheckContent("join us at discord.gg/official now")
	assert.True(t, allowed.Allowed)
	assert.False(t, allowed.Blocked)
	assert.Equal(t, "discord.gg/official", allowed.AllowedPattern)
	assert.Equal(t, "r1", allowed.MatchedRuleID)
	assert.Equal(t, "Invites", allowed.MatchedRule)

	blocked := c.CheckContent("join us at discord.gg/scam")
	assert.True(t, blocked.Blocked)
	assert.Equal(t, PatternInvite, blocked.MatchedPattern)
	assert.Equal(t, MatchRegex, blocked.MatchType)
	assert.Equal(t, 1, blocked.MatchCount)
}

func TestTwoRulesMatching(t *testing.T) {
	c := newTestChecker(
		RuleEntry{ID: "first", Rule: Rule{Name: "First", BlockedWords: []string{"scam"}}},
		RuleEntry{ID: "second", Rule: Rule{Name: "Second", BlockedWords: []string{"sca*"}}},
	)

	res := c.CheckContent("this is a scam")
	require.True(t, res.Blocked)
	assert.Len(t, res.AllMatches, 2)
	assert.Equal(t, 2, res.MatchCount)
	assert.Equal(t, "first", res.MatchedRuleID)
	assert.Equal(t, "First", res.MatchedRule)
	assert.Equal(t, "scam", res.MatchedPattern)
	assert.Equal(t, MatchWord, res.MatchType)
}

func TestAllowWinsGlobally(t *testing.T) {
	c := newTestChecker(
		RuleEntry{ID: "block", Rule: Rule{Name: "Block", BlockedWords: []string{"free", "nitro"}, RegexPatterns: []string{`gift`}}},
		RuleEntry{ID: "allow", Rule: Rule{Name: "Allow", BlockedWords: []string{"nitro"}, AllowedWords: []string{"nitro gift"}}},
		RuleEntry{ID: "allow2", Rule: Rule{Name: "Second allow", AllowedWords: []string{"free"}}},
	)

	res := c.CheckContent("free nitro gift")
	assert.True(t, res.Allowed)
	assert.False(t, res.Blocked)
	assert.Equal(t, "allow", res.MatchedRuleID)
	assert.Equal(t, "nitro gift", res.AllowedPattern)
	// the allowing rule contributes no matches of its own
	assert.Equal(t, 3, res.MatchCount)
	assert.Len(t, res.AllMatches, 3)
	for _, m := range res.AllMatches {
		assert.Equal(t, "block", m.RuleID)
	}
}

func TestMatchOrder(t *testing.T) {
	c := newTestChecker(
		RuleEntry{ID: "b", Rule: Rule{Name: "B", BlockedWords: []string{"alpha", "beta"}, RegexPatterns: []string{`alp`}}},
		RuleEntry{ID: "a", Rule: Rule{Name: "A", RegexPatterns: []string{`beta`}, BlockedWords: []string{"gamma"}}},
	)

	res := c.CheckContent("alpha beta gamma")
	require.Equal(t, 5, res.MatchCount)
	got := make([]string, 0, len(res.AllMatches))
	for _, m := range res.AllMatches {
		got = append(got, m.RuleID+":"+string(m.Kind)+":"+m.Pattern)
	}
	assert.Equal(t, []string{
		"b:word:alpha",
		"b:word:beta",
		"b:regex:alp",
		"a:word:gamma",
		"a:regex:beta",
	}, got)
	assert.Equal(t, len(res.AllMatches), res.MatchCount)

	again := c.CheckContent("alpha beta gamma")
	assert.Equal(t, res, again)
}

func TestInvalidRegexSkipped(t *testing.T) {
	c := newTestChecker(
		RuleEntry{ID: "broken", Rule: Rule{Name: "Broken", RegexPatterns: []string{`(unbalanced`, `spam`}}},
		RuleEntry{ID: "other", Rule: Rule{Name: "Other", BlockedWords: []string{"spam"}}},
	)

	res := c.CheckContent("spam spam")
	assert.True(t, res.Blocked)
	assert.Equal(t, 2, res.MatchCount)
	assert.Equal(t, "spam", res.MatchedPattern)
	assert.Equal(t, MatchRegex, res.MatchType)
}

func TestEmptyRuleSetIsClean(t *testing.T) {
	c := NewChecker(EmptyRuleSet(), nil, nil)
	for _, content := range []string{"", "anything", "discord.gg/scam"} {
		res := c.CheckContent(content)
		assert.False(t, res.Blocked)
		assert.False(t, res.Allowed)
		assert.Empty(t, res.AllMatches)
		assert.NotNil(t, res.AllMatches)
		assert.Equal(t, 0, res.MatchCount)
	}
}

func TestExactMatchIsRedundantSafe(t *testing.T) {
	c := newTestChecker(RuleEntry{ID: "r", Rule: Rule{Name: "R", BlockedWords: []string{"bad thing", "bad"}}})

	res := c.CheckContent("Bad Thing")
	assert.True(t, res.Blocked)
	assert.Equal(t, 2, res.MatchCount)
	assert.Equal(t, "bad thing", res.MatchedPattern)
}

func TestReplaceSwapsRules(t *testing.T) {
	c := newTestChecker()
	assert.False(t, c.CheckContent("spam").Blocked)

	c.Replace(NewRuleSet(RuleEntry{ID: "spam", Rule: Rule{Name: "Spam", BlockedWords: []string{"spam"}}}))
	assert.True(t, c.CheckContent("spam").Blocked)
	assert.Equal(t, 1, c.Rules().Len())

	c.Replace(nil)
	assert.Equal(t, 0, c.Rules().Len())
}

func TestPagination(t *testing.T) {
	res := CheckResult{}
	for i := 0; i < 12; i++ {
		res.AllMatches = append(res.AllMatches, Match{RuleID: "r", Pattern: string(rune('a' + i))})
	}
	res.MatchCount = len(res.AllMatches)

	assert.Equal(t, 3, res.PageCount(5))
	assert.Len(t, res.Page(0, 5), 5)
	assert.Len(t, res.Page(2, 5), 2)
	assert.Equal(t, "k", res.Page(2, 5)[0].Pattern)
	assert.Equal(t, res.Page(2, 5), res.Page(9, 5))
	assert.Equal(t, res.Page(0, 5), res.Page(-1, 5))

	assert.Equal(t, 0, CheckResult{}.PageCount(5))
	assert.Nil(t, CheckResult{}.Page(0, 5))
	assert.Equal(t, 0, res.PageCount(0))
}
