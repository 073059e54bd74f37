package urssaf

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payslip-compliance/compliance"
)

// =============================================================================
// RATE TABLES - Reference rates per fiscal year
// =============================================================================

// PMSS2024 is the 2024 monthly social security ceiling.
var PMSS2024 = decimal.NewFromInt(3864)

// RateTable2024 returns the 2024 reference rates.
func RateTable2024() *compliance.RateTable {
	return compliance.NewRateTable(2024, PMSS2024, map[string]compliance.Rates{
		Maladie:                  compliance.BothRates("0", "0.13"),
		CSA:                      compliance.BothRates("0", "0.003"),
		VieillessePlafonnee:      compliance.BothRates("0.069", "0.0855"),
		VieillesseDeplafonnee:    compliance.BothRates("0.004", "0.0202"),
		AllocationFamiliale:      compliance.BothRates("0", "0.0525"),
		AccidentDuTravail:        compliance.BothRates("0", "0.02"),
		FNAL:                     compliance.BothRates("0", "0.001"),
		CSGDeductible:            compliance.EmployeeRate("0.068"),
		CSGNonDeductible:         compliance.EmployeeRate("0.029"),
		DialogueSocial:           compliance.EmployerRate("0.00016"),
		AssuranceChomage:         compliance.BothRates("0", "0.0405"),
		AGS:                      compliance.BothRates("0", "0.0019"),
		TaxeApprentissage:        compliance.EmployerRate("0.0068"),
		FormationProfessionnelle: compliance.EmployerRate("0.0055"),
		RetraiteT1:               compliance.BothRates("0.0787", "0.0129"),
		RetraiteT2:               compliance.BothRates("0.0919", "0.0176"),
		CEGT1:                    compliance.BothRates("0.0035", "0.006"),
		CEGT2:                    compliance.BothRates("0.0047", "0.0081"),
		PrevoyanceNonCadreTA:     compliance.BothRates("0.005", "0.005"),
		PrevoyanceNonCadreTB:     compliance.BothRates("0.005", "0.005"),
		FraisDeSante:             compliance.BothRates("0.005", "0.005"),
	})
}

// NewRegistry returns a registry holding every built-in fiscal year, plus
// any extra tables (typically loaded from YAML).
func NewRegistry(extra ...*compliance.RateTable) (*compliance.Registry, error) {
	return compliance.NewRegistry(append([]*compliance.RateTable{RateTable2024()}, extra...)...)
}
