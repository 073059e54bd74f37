package compliance_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-compliance/compliance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func null(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func testTable() *compliance.RateTable {
	return compliance.NewRateTable(2024, dec("3864"), map[string]compliance.Rates{
		"maladie":        compliance.BothRates("0", "0.13"),
		"csg_deductible": compliance.EmployeeRate("0.068"),
	})
}

// payslip builds a January 2024 record with the given gross salary and
// employer health rate. An empty string leaves the figure absent.
func payslip(gross, maladieTauxp string) compliance.PayslipRecord {
	rec := compliance.PayslipRecord{
		Year:          2024,
		Month:         "Janvier",
		Contributions: map[string]compliance.ContributionLine{},
	}
	if gross != "" {
		rec.GrossSalary = null(gross)
	}
	if maladieTauxp != "" {
		rec.Contributions["maladie"] = compliance.ContributionLine{
			EmployerRate: null(maladieTauxp),
		}
	}
	return rec
}

func highSalaryRule() compliance.Rule {
	return compliance.Rule{
		Name:      "maladie",
		Condition: compliance.GrossAboveCeiling(dec("2.5")),
		Target:    compliance.MustFieldPath("maladie.tauxp"),
		Expected:  dec("0.07"),
	}
}

func standardSalaryRule() compliance.Rule {
	return compliance.Rule{
		Name:      "autre_regle",
		Condition: compliance.GrossBelowCeiling(dec("2")),
		Target:    compliance.MustFieldPath("maladie.tauxp"),
		Expected:  dec("0.13"),
	}
}

func referenceRules(t *testing.T) *compliance.RuleSet {
	rs, err := compliance.NewRuleSet(highSalaryRule(), standardSalaryRule())
	require.NoError(t, err)
	return rs
}

func assertDecimal(t *testing.T, want string, got *decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if assert.NotNil(t, got, msgAndArgs...) {
		assert.True(t, dec(want).Equal(*got), "want %s, got %s", want, got.String())
	}
}

// =============================================================================
// NOT APPLICABLE
// =============================================================================

func TestEvaluate_ConditionFalse_NotApplicable(t *testing.T) {
	// GIVEN: A low salary, and a rule that only applies above 2.5 ceilings
	// WHEN: Evaluating, whatever the record's health rate is
	// THEN: The verdict is not-applicable with no expected/actual

	rules := compliance.MustRuleSet(highSalaryRule())
	for _, rate := range []string{"0.07", "0.13", ""} {
		verdicts := compliance.Evaluate(payslip("2000", rate), testTable(), rules)

		require.Len(t, verdicts, 1)
		v := verdicts[0]
		assert.Equal(t, compliance.StatusNotApplicable, v.Status, "rate %q", rate)
		assert.Nil(t, v.Expected)
		assert.Nil(t, v.Actual)
		assert.Empty(t, v.Reason)
	}
}

func TestEvaluate_MissingGross_NotApplicable(t *testing.T) {
	verdicts := compliance.Evaluate(payslip("", "0.13"), testTable(), referenceRules(t))

	for _, v := range verdicts {
		assert.Equal(t, compliance.StatusNotApplicable, v.Status, v.Rule)
	}
}

func TestEvaluate_BandBetweenThresholds_NeitherRuleApplies(t *testing.T) {
	// GIVEN: Gross salary 2.2 x ceiling (between 2x and 2.5x)
	// THEN: Both reference rules report not-applicable

	gross := dec("3864").Mul(dec("2.2")).String()
	verdicts := compliance.Evaluate(payslip(gross, "0.13"), testTable(), referenceRules(t))

	require.Len(t, verdicts, 2)
	assert.Equal(t, compliance.StatusNotApplicable, verdicts[0].Status)
	assert.Equal(t, compliance.StatusNotApplicable, verdicts[1].Status)
}

func TestEvaluate_ThresholdIsStrict(t *testing.T) {
	// Exactly 2.5 ceilings is not "above"; exactly 2 ceilings is not "below".
	atHigh := dec("3864").Mul(dec("2.5")).String()
	atLow := dec("3864").Mul(dec("2")).String()

	high := compliance.Evaluate(payslip(atHigh, "0.07"), testTable(), referenceRules(t))
	low := compliance.Evaluate(payslip(atLow, "0.13"), testTable(), referenceRules(t))

	assert.Equal(t, compliance.StatusNotApplicable, high.Map()["maladie"].Status)
	assert.Equal(t, compliance.StatusNotApplicable, low.Map()["autre_regle"].Status)
}

// =============================================================================
// COMPLIANT / NON-COMPLIANT
// =============================================================================

func TestEvaluate_HighSalaryWrongRate_NonCompliant(t *testing.T) {
	// GIVEN: salaire_brut = 3 x ceiling, maladie.tauxp = 0.13
	// WHEN: Evaluating the > 2.5 ceiling rule expecting 0.07
	// THEN: non-compliant, expected 0.07, actual 0.13

	gross := dec("3864").Mul(dec("3")).String()
	verdicts := compliance.Evaluate(payslip(gross, "0.13"), testTable(), referenceRules(t))

	v, ok := verdicts.Get("maladie")
	require.True(t, ok)
	assert.Equal(t, compliance.StatusNonCompliant, v.Status)
	assertDecimal(t, "0.07", v.Expected)
	assertDecimal(t, "0.13", v.Actual)
	assert.Equal(t, "maladie.tauxp", v.Target)
}

func TestEvaluate_StandardSalaryExpectedRate_Compliant(t *testing.T) {
	// GIVEN: ceiling 3864, salaire_brut 5000 (< 2 x ceiling), maladie.tauxp 0.13
	// THEN: autre_regle is compliant, maladie is not-applicable

	verdicts := compliance.Evaluate(payslip("5000", "0.13"), testTable(), referenceRules(t))

	v, ok := verdicts.Get("autre_regle")
	require.True(t, ok)
	assert.Equal(t, compliance.StatusCompliant, v.Status)
	assertDecimal(t, "0.13", v.Expected)
	assertDecimal(t, "0.13", v.Actual)

	other, _ := verdicts.Get("maladie")
	assert.Equal(t, compliance.StatusNotApplicable, other.Status)
}

func TestEvaluate_ExactDecimalEquality(t *testing.T) {
	// Trailing zeros do not matter, any other difference does.
	rules := compliance.MustRuleSet(standardSalaryRule())

	same := compliance.Evaluate(payslip("5000", "0.1300"), testTable(), rules)
	off := compliance.Evaluate(payslip("5000", "0.1301"), testTable(), rules)

	assert.Equal(t, compliance.StatusCompliant, same[0].Status)
	assert.Equal(t, compliance.StatusNonCompliant, off[0].Status)
	assertDecimal(t, "0.1301", off[0].Actual)
}

func TestEvaluate_RatesComparedAsPrinted(t *testing.T) {
	// GIVEN: Statements printing rates as percentages, above and below 1%
	// THEN: Values are compared as-is and reported unchanged

	rules := compliance.MustRuleSet(
		standardSalaryRule(),
		compliance.Rule{
			Name:      "csa",
			Condition: compliance.Always(),
			Target:    compliance.MustFieldPath("csa.tauxp"),
			Expected:  dec("0.003"),
		},
	)
	rec := payslip("5000", "13")
	rec.Contributions["csa"] = compliance.ContributionLine{EmployerRate: null("0.3")}

	verdicts := compliance.Evaluate(rec, testTable(), rules)

	assert.Equal(t, compliance.StatusNonCompliant, verdicts[0].Status)
	assertDecimal(t, "13", verdicts[0].Actual)
	assert.Equal(t, compliance.StatusNonCompliant, verdicts[1].Status)
	assertDecimal(t, "0.3", verdicts[1].Actual)

	// WHEN: The same statement is converted as a percent document
	converted := compliance.Evaluate(rec.WithPercentRates(), testTable(), rules)

	// THEN: Both sides of the 1% mark become compliant
	assert.Equal(t, compliance.StatusCompliant, converted[0].Status)
	assert.Equal(t, compliance.StatusCompliant, converted[1].Status)
}

func TestEvaluate_RequiresTableAndRules(t *testing.T) {
	rules := compliance.MustRuleSet(standardSalaryRule())

	assert.Panics(t, func() { compliance.Evaluate(payslip("5000", "0.13"), nil, rules) })
	assert.Panics(t, func() { compliance.Evaluate(payslip("5000", "0.13"), testTable(), nil) })
}

func TestEvaluate_NonRateFieldsNotNormalized(t *testing.T) {
	rule := compliance.Rule{
		Name:      "gross",
		Condition: compliance.Always(),
		Target:    compliance.MustFieldPath("salaire_brut"),
		Expected:  dec("50"),
	}
	verdicts := compliance.Evaluate(payslip("5000", ""), testTable(), compliance.MustRuleSet(rule))

	assert.Equal(t, compliance.StatusNonCompliant, verdicts[0].Status)
	assertDecimal(t, "5000", verdicts[0].Actual)
}

// =============================================================================
// UNRESOLVED FIELDS
// =============================================================================

func TestEvaluate_UnresolvedTarget_NonCompliantWithNullActual(t *testing.T) {
	// GIVEN: A rule that applies but a record without a maladie line
	// THEN: non-compliant, expected populated, actual nil, reason given

	verdicts := compliance.Evaluate(payslip("5000", ""), testTable(), referenceRules(t))

	v, _ := verdicts.Get("autre_regle")
	assert.Equal(t, compliance.StatusNonCompliant, v.Status)
	assertDecimal(t, "0.13", v.Expected)
	assert.Nil(t, v.Actual)
	assert.Contains(t, v.Reason, "maladie")
}

func TestEvaluate_UnresolvedDoesNotBlockOtherRules(t *testing.T) {
	rec := payslip("5000", "0.13")
	rec.Contributions["csg_deductible"] = compliance.ContributionLine{}

	rules := compliance.MustRuleSet(
		compliance.Rule{
			Name:      "csg",
			Condition: compliance.Always(),
			Target:    compliance.MustFieldPath("csg_deductible.tauxs"),
			Expected:  dec("0.068"),
		},
		standardSalaryRule(),
	)

	verdicts := compliance.Evaluate(rec, testTable(), rules)

	require.Len(t, verdicts, 2)
	assert.Equal(t, compliance.StatusNonCompliant, verdicts[0].Status)
	assert.Nil(t, verdicts[0].Actual)
	assert.Equal(t, compliance.StatusCompliant, verdicts[1].Status)
}

// =============================================================================
// ORDER / SUMMARY
// =============================================================================

func TestEvaluate_VerdictsFollowRuleSetOrder(t *testing.T) {
	rs := compliance.MustRuleSet(standardSalaryRule(), highSalaryRule())

	verdicts := compliance.Evaluate(payslip("5000", "0.13"), testTable(), rs)

	require.Len(t, verdicts, 2)
	assert.Equal(t, "autre_regle", verdicts[0].Rule)
	assert.Equal(t, "maladie", verdicts[1].Rule)
	assert.Len(t, verdicts.Map(), 2)
}

func TestVerdicts_Summary(t *testing.T) {
	verdicts := compliance.Evaluate(payslip("5000", "0.13"), testTable(), referenceRules(t))

	assert.Equal(t, compliance.Summary{Compliant: 1, NotApplicable: 1}, verdicts.Summary())
}

// =============================================================================
// EVALUATE ALL
// =============================================================================

func TestEvaluateAll_OneResultPerPeriod(t *testing.T) {
	var records []compliance.PayslipRecord
	for _, month := range []string{"Janvier", "Février", "Mars", "Avril"} {
		rec := payslip("5000", "0.13")
		rec.Month = compliance.MonthLabel(month)
		records = append(records, rec)
	}
	agg := compliance.Aggregate(records)

	all, err := compliance.EvaluateAll(context.Background(), agg, testTable(), referenceRules(t))

	require.NoError(t, err)
	assert.Len(t, all, 4)
	for _, key := range agg.Keys() {
		v, ok := all[key].Get("autre_regle")
		require.True(t, ok, key.String())
		assert.Equal(t, compliance.StatusCompliant, v.Status)
	}
}

func TestEvaluateAll_CanceledContext(t *testing.T) {
	agg := compliance.Aggregate([]compliance.PayslipRecord{payslip("5000", "0.13")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compliance.EvaluateAll(ctx, agg, testTable(), referenceRules(t))

	assert.ErrorIs(t, err, context.Canceled)
}
