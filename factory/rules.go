package factory

import (
	"fmt"
	"os"

	"github.com/warp/payslip-compliance/compliance"
	"gopkg.in/yaml.v3"
)

// RuleSetYAML is the file representation of a rule set:
//
//	rules:
//	  - name: maladie
//	    when: {field: salaire_brut, op: gt, ceiling_multiple: 2.5}
//	    target: maladie.tauxp
//	    expected: 0.07
//	  - name: fnal
//	    when: {contribution: fnal}
//	    target: fnal.tauxp
//	    expected: 0.001
type RuleSetYAML struct {
	Rules []RuleYAML `yaml:"rules"`
}

type RuleYAML struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	When        *ConditionYAML `yaml:"when,omitempty"`
	Target      string         `yaml:"target"`
	Expected    *Decimal       `yaml:"expected"`
}

// ConditionYAML combines an optional threshold and an optional presence
// check. Both must hold when both are given; none means always.
type ConditionYAML struct {
	Field           string   `yaml:"field,omitempty"`
	Op              string   `yaml:"op,omitempty"`
	CeilingMultiple *Decimal `yaml:"ceiling_multiple,omitempty"`
	Contribution    string   `yaml:"contribution,omitempty"`
}

// ParseRulesYAML decodes a rule set. Rule order is file order.
func ParseRulesYAML(data []byte) (*compliance.RuleSet, error) {
	var doc RuleSetYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]compliance.Rule, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		rule, err := r.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		rules = append(rules, rule)
	}
	return compliance.NewRuleSet(rules...)
}

// LoadRules reads and parses a rule file.
func LoadRules(path string) (*compliance.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRulesYAML(data)
}

func (r RuleYAML) toRule() (compliance.Rule, error) {
	target, err := compliance.ParseFieldPath(r.Target)
	if err != nil {
		return compliance.Rule{}, err
	}
	if r.Expected == nil {
		return compliance.Rule{}, fmt.Errorf("%w: missing expected value", compliance.ErrInvalidRule)
	}
	cond, err := r.When.predicate()
	if err != nil {
		return compliance.Rule{}, err
	}
	return compliance.Rule{
		Name:        r.Name,
		Description: r.Description,
		Condition:   cond,
		Target:      target,
		Expected:    r.Expected.Decimal,
	}, nil
}

func (c *ConditionYAML) predicate() (compliance.Predicate, error) {
	if c == nil {
		return compliance.Always(), nil
	}

	var preds []compliance.Predicate
	if c.Field != "" {
		if c.CeilingMultiple == nil {
			return nil, fmt.Errorf("%w: %s needs ceiling_multiple", compliance.ErrInvalidRule, c.Field)
		}
		path, err := compliance.ParseFieldPath(c.Field)
		if err != nil {
			return nil, err
		}
		p, err := compliance.FieldVsCeiling(path, compliance.CompareOp(c.Op), c.CeilingMultiple.Decimal)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if c.Contribution != "" {
		preds = append(preds, compliance.HasContribution(c.Contribution))
	}

	switch len(preds) {
	case 0:
		return compliance.Always(), nil
	case 1:
		return preds[0], nil
	}
	return compliance.All(preds...), nil
}
