package automod

import (
	"bytes"
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadRuleSet reads a rule document from path. Any read or parse failure is
// logged and yields an empty rule set so the checker keeps serving.
func LoadRuleSet(path string, logger *zap.Logger) *RuleSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("automod rules unreadable, continuing with no rules", zap.String("path", path), zap.Error(err))
		return EmptyRuleSet()
	}
	rules, err := ParseRuleSet(data, logger)
	if err != nil {
		logger.Error("automod rules malformed, continuing with no rules", zap.String("path", path), zap.Error(err))
		return EmptyRuleSet()
	}
	logger.Info("automod rules loaded", zap.String("path", path), zap.Int("rules", rules.Len()))
	return rules
}

// ParseRuleSet decodes a JSON or YAML mapping of rule id to rule, keeping the
// document's key order. Entries that do not decode or validate are skipped
// with a warning; only a document that is not a mapping is an error.
func ParseRuleSet(data []byte, logger *zap.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return EmptyRuleSet(), nil
	}

	entries, err := parseDocument(trimmed, logger)
	if err != nil {
		return nil, err
	}
	return NewRuleSet(entries...), nil
}

// parseDocument walks the top-level mapping node. JSON objects are flow
// mappings to the YAML decoder, so both formats share this path.
func parseDocument(data []byte, logger *zap.Logger) ([]RuleEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("rule document must be a mapping")
	}

	var entries []RuleEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		id := root.Content[i].Value
		var rule Rule
		if err := root.Content[i+1].Decode(&rule); err != nil {
			logger.Warn("automod rule skipped", zap.String("rule_id", id), zap.Error(err))
			continue
		}
		if entry, ok := checkEntry(id, rule, logger); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func checkEntry(id string, rule Rule, logger *zap.Logger) (RuleEntry, bool) {
	if id == "" {
		logger.Warn("automod rule skipped", zap.String("reason", "empty id"))
		return RuleEntry{}, false
	}
	if err := validate.Struct(rule); err != nil {
		logger.Warn("automod rule skipped", zap.String("rule_id", id), zap.Error(err))
		return RuleEntry{}, false
	}
	return RuleEntry{ID: id, Rule: rule}, true
}
