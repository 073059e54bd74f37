package urssaf

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payslip-compliance/compliance"
)

// =============================================================================
// REFERENCE RULES
// =============================================================================

// Rule names.
const (
	RuleMaladieHighSalary = "maladie"
	RuleMaladieStandard   = "autre_regle"
)

// Rules2024 returns the reference rules, in reporting order.
//
// Between 2 and 2.5 ceilings neither rule applies, so both report
// not-applicable for salaries in that band.
func Rules2024() *compliance.RuleSet {
	return compliance.MustRuleSet(
		compliance.Rule{
			Name:        RuleMaladieHighSalary,
			Description: "Employer health rate above 2.5 PMSS",
			Condition:   compliance.GrossAboveCeiling(decimal.RequireFromString("2.5")),
			Target:      compliance.MustFieldPath("maladie.tauxp"),
			Expected:    decimal.RequireFromString("0.07"),
		},
		compliance.Rule{
			Name:        RuleMaladieStandard,
			Description: "Employer health rate below 2 PMSS",
			Condition:   compliance.GrossBelowCeiling(decimal.NewFromInt(2)),
			Target:      compliance.MustFieldPath("maladie.tauxp"),
			Expected:    decimal.RequireFromString("0.13"),
		},
	)
}

// RateTableRules derives one rule per defined (contribution, side) of the
// table: when a statement carries the contribution, its printed rate must
// equal the reference rate. Rules are named "<contribution>.<side>" and
// ordered by contribution name, employee side first.
//
// Contributions whose rate depends on salary (maladie) are left to the
// threshold rules of Rules2024.
func RateTableRules(table *compliance.RateTable, skip ...string) (*compliance.RuleSet, error) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var rules []compliance.Rule
	for _, name := range table.Contributions() {
		if skipped[name] {
			continue
		}
		for _, side := range []compliance.Side{compliance.SideEmployee, compliance.SideEmployer} {
			rate, ok := table.Rate(name, side)
			if !ok {
				continue
			}
			target, err := compliance.RateField(name, side)
			if err != nil {
				return nil, err
			}
			rules = append(rules, compliance.Rule{
				Name:        name + "." + string(side),
				Description: Label(name) + " (" + string(side) + ")",
				Condition:   compliance.HasContribution(name),
				Target:      target,
				Expected:    rate,
			})
		}
	}
	return compliance.NewRuleSet(rules...)
}

// DefaultRules returns Rules2024, optionally followed by the rate-table
// rules of table.
func DefaultRules(table *compliance.RateTable, withRateTable bool) (*compliance.RuleSet, error) {
	rules := Rules2024()
	if !withRateTable {
		return rules, nil
	}
	derived, err := RateTableRules(table, Maladie)
	if err != nil {
		return nil, err
	}
	return rules.Compose(derived)
}
