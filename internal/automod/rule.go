package automod

// Rule is one named bundle of block, allow and regex patterns.
type Rule struct {
	Name          string   `yaml:"name" json:"name" validate:"required"`
	BlockedWords  []string `yaml:"blockedWords" json:"blockedWords" validate:"dive,required"`
	RegexPatterns []string `yaml:"regexPatterns" json:"regexPatterns" validate:"dive,required"`
	AllowedWords  []string `yaml:"allowedWords" json:"allowedWords" validate:"dive,required"`
}

// RuleSet maps rule ids to rules and remembers the order the ids were loaded in.
// A RuleSet is never modified after construction.
type RuleSet struct {
	ids   []string
	rules map[string]Rule
}

// RuleEntry pairs a rule with its id for ordered construction.
type RuleEntry struct {
	ID   string
	Rule Rule
}

// NewRuleSet builds a rule set from entries in order. A repeated id keeps its
// first position and the last definition.
func NewRuleSet(entries ...RuleEntry) *RuleSet {
	rs := &RuleSet{rules: make(map[string]Rule, len(entries))}
	for _, entry := range entries {
		if _, ok := rs.rules[entry.ID]; !ok {
			rs.ids = append(rs.ids, entry.ID)
		}
		rs.rules[entry.ID] = cloneRule(entry.Rule)
	}
	return rs
}

// EmptyRuleSet returns a rule set with no rules.
func EmptyRuleSet() *RuleSet {
	return NewRuleSet()
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.ids)
}

// IDs returns the rule ids in evaluation order.
func (rs *RuleSet) IDs() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, len(rs.ids))
	copy(out, rs.ids)
	return out
}

func (rs *RuleSet) Get(id string) (Rule, bool) {
	if rs == nil {
		return Rule{}, false
	}
	rule, ok := rs.rules[id]
	return rule, ok
}

// Each calls fn for every rule in evaluation order.
func (rs *RuleSet) Each(fn func(id string, rule Rule)) {
	if rs == nil {
		return
	}
	for _, id := range rs.ids {
		fn(id, rs.rules[id])
	}
}

func cloneRule(rule Rule) Rule {
	return Rule{
		Name:          rule.Name,
		BlockedWords:  append([]string(nil), rule.BlockedWords...),
		RegexPatterns: append([]string(nil), rule.RegexPatterns...),
		AllowedWords:  append([]string(nil), rule.AllowedWords...),
	}
}
