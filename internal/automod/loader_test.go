package automod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const yamlRules = `
zeta:
  name: Zeta
  blockedWords: ["zed"]
alpha:
  name: Alpha
  blockedWords: ["a*"]
  regexPatterns: [discord-invite]
  allowedWords: ["discord.gg/official"]
broken:
  blockedWords: ["missing name"]
shape:
  name: Shape
  blockedWords: "not a list"
`

const jsonRules = `{
	"zeta": {"name": "Zeta", "blockedWords": ["zed"]},
	"alpha": {"name": "Alpha", "regexPatterns": ["user-mention"]},
	"bad": {"name": "Bad", "allowedWords": 7},
	"empty": {"name": "", "blockedWords": ["x"]}
}`

func TestParseRuleSetYAMLKeepsOrder(t *testing.T) {
	rules, err := ParseRuleSet([]byte(yamlRules), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rules.IDs())

	alpha, ok := rules.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "Alpha", alpha.Name)
	assert.Equal(t, []string{"discord-invite"}, alpha.RegexPatterns)
	assert.Equal(t, []string{"discord.gg/official"}, alpha.AllowedWords)
}

func TestParseRuleSetJSONKeepsOrder(t *testing.T) {
	rules, err := ParseRuleSet([]byte(jsonRules), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rules.IDs())
}

func TestParseRuleSetTabIndentedJSON(t *testing.T) {
	doc := "{\n\t\"b\": {\n\t\t\"name\": \"B\",\n\t\t\"blockedWords\": [\"x\"]\n\t},\n\t\"a\": {\"name\": \"A\", \"regexPatterns\": [\"^\\\\d+$\"]}\n}"
	rules, err := ParseRuleSet([]byte(doc), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, rules.IDs())

	a, ok := rules.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{`^\d+$`}, a.RegexPatterns)
}

func TestParseRuleSetRejectsNonMapping(t *testing.T) {
	_, err := ParseRuleSet([]byte("- a\n- b\n"), zap.NewNop())
	assert.Error(t, err)

	_, err = ParseRuleSet([]byte(`{"a": {"name": "A"}`), zap.NewNop())
	assert.Error(t, err)

	rules, err := ParseRuleSet([]byte("   "), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, rules.Len())
}

func TestLoadRuleSetFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()

	missing := LoadRuleSet(filepath.Join(dir, "nope.json"), zap.NewNop())
	assert.Equal(t, 0, missing.Len())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("key: [unterminated"), 0o600))
	assert.Equal(t, 0, LoadRuleSet(bad, zap.NewNop()).Len())

	good := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(good, []byte(yamlRules), 0o600))
	assert.Equal(t, 2, LoadRuleSet(good, zap.NewNop()).Len())
}

func TestReloadKeepsRulesOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonRules), 0o600))

	c := NewChecker(nil, nil, zap.NewNop())
	require.NoError(t, c.Reload(path))
	assert.Equal(t, 2, c.Rules().Len())

	require.NoError(t, os.WriteFile(path, []byte("[1, 2"), 0o600))
	assert.Error(t, c.Reload(path))
	assert.Equal(t, 2, c.Rules().Len())

	assert.Error(t, c.Reload(filepath.Join(dir, "missing.json")))
	assert.Equal(t, 2, c.Rules().Len())
}

func TestRuleSetIsDetached(t *testing.T) {
	words := []string{"one"}
	rules := NewRuleSet(RuleEntry{ID: "r", Rule: Rule{Name: "R", BlockedWords: words}}, RuleEntry{ID: "r", Rule: Rule{Name: "R2"}})
	words[0] = "changed"

	rule, ok := rules.Get("r")
	require.True(t, ok)
	assert.Equal(t, "R2", rule.Name)
	assert.Equal(t, 1, rules.Len())

	ids := rules.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"r"}, rules.IDs())

	var nilSet *RuleSet
	assert.Equal(t, 0, nilSet.Len())
	nilSet.Each(func(string, Rule) { t.Fatal("unexpected rule") })
}
