package automod

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Checker classifies content against the active rule set. It is safe for
// concurrent use; Replace swaps the whole rule set atomically.
type Checker struct {
	rules   atomic.Pointer[RuleSet]
	matcher *Matcher
	logger  *zap.Logger
}

func NewChecker(rules *RuleSet, matcher *Matcher, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = NewMatcher(logger, 0)
	}
	if rules == nil {
		rules = EmptyRuleSet()
	}
	c := &Checker{matcher: matcher, logger: logger}
	c.rules.Store(rules)
	rulesLoaded.Set(float64(rules.Len()))
	return c
}

// Rules returns the active rule set.
func (c *Checker) Rules() *RuleSet {
	return c.rules.Load()
}

// Replace installs a new rule set for subsequent checks.
func (c *Checker) Replace(rules *RuleSet) {
	if rules == nil {
		rules = EmptyRuleSet()
	}
	c.rules.Store(rules)
	rulesLoaded.Set(float64(rules.Len()))
	c.logger.Info("automod rules replaced", zap.Int("rules", rules.Len()))
}

// ruleVerdict is the outcome of evaluating a single rule.
type ruleVerdict struct {
	allowed        bool
	allowedPattern string
	matches        []Match
}

type allowHit struct {
	ruleID  string
	rule    string
	pattern string
}

type accumulator struct {
	allowed *allowHit
	matches []Match
}

// CheckContent evaluates content against every rule in order.
func (c *Checker) CheckContent(content string) CheckResult {
	rules := c.rules.Load()
	lowered := strings.ToLower(content)

	acc := accumulator{}
	rules.Each(func(id string, rule Rule) {
		acc = c.fold(acc, id, rule, c.evaluate(id, rule, content, lowered))
	})

	result := finish(acc)
	observe(result)
	return result
}

func (c *Checker) fold(acc accumulator, id string, rule Rule, verdict ruleVerdict) accumulator {
	if verdict.allowed && acc.allowed == nil {
		acc.allowed = &allowHit{ruleID: id, rule: rule.Name, pattern: verdict.allowedPattern}
	}
	acc.matches = append(acc.matches, verdict.matches...)
	return acc
}

func (c *Checker) evaluate(id string, rule Rule, content, lowered string) ruleVerdict {
	for _, pattern := range rule.AllowedWords {
		if c.matcher.MatchWord(lowered, pattern) {
			return ruleVerdict{allowed: true, allowedPattern: pattern}
		}
	}

	var matches []Match
	for _, pattern := range rule.BlockedWords {
		if c.matcher.MatchWord(lowered, pattern) {
			matches = append(matches, Match{Rule: rule.Name, RuleID: id, Kind: MatchWord, Pattern: pattern})
		}
	}
	for _, pattern := range rule.RegexPatterns {
		if c.matcher.MatchRegex(content, pattern) {
			matches = append(matches, Match{Rule: rule.Name, RuleID: id, Kind: MatchRegex, Pattern: pattern})
		}
	}
	return ruleVerdict{matches: matches}
}

func finish(acc accumulator) CheckResult {
	matches := acc.matches
	if matches == nil {
		matches = []Match{}
	}

	if acc.allowed != nil {
		return CheckResult{
			Allowed:        true,
			AllowedPattern: acc.allowed.pattern,
			MatchedRule:    acc.allowed.rule,
			MatchedRuleID:  acc.allowed.ruleID,
			AllMatches:     matches,
			MatchCount:     len(matches),
		}
	}
	if len(matches) > 0 {
		first := matches[0]
		return CheckResult{
			Blocked:        true,
			MatchedRule:    first.Rule,
			MatchedRuleID:  first.RuleID,
			MatchType:      first.Kind,
			MatchedPattern: first.Pattern,
			AllMatches:     matches,
			MatchCount:     len(matches),
		}
	}
	return CheckResult{AllMatches: matches}
}
