/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built payslip exports that exercise the compliance checks
	without a real payroll file. Each scenario is generated as the same
	{"bulletins": [...]} document an import would receive, and goes
	through the regular import path.

AVAILABLE SCENARIOS:

	standard-year:  Twelve 2024 statements, every rate at its reference value
	high-salary:    Salaries above 2.5 PMSS, one month with the wrong health rate
	threshold-band: Salaries between 2 and 2.5 PMSS (no health rule applies)
	messy-export:   A percent rate, duplicates, numeric and unknown months

HOW SCENARIOS WORK:
 1. Build the document from the 2024 reference table
 2. Import it (replaces the active dataset and is persisted)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "high-salary"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a builder to 'scenarioBuilders'

SEE ALSO:
  - handlers.go: Import handlers
  - urssaf/ratetable.go: Reference rates used to build the statements
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/urssaf"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-year",
		Name:        "Standard Year",
		Description: "Twelve 2024 statements below 2 PMSS, all rates at reference",
	},
	{
		ID:          "high-salary",
		Name:        "High Salary",
		Description: "Above 2.5 PMSS; April keeps the standard health rate by mistake",
	},
	{
		ID:          "threshold-band",
		Name:        "Threshold Band",
		Description: "Between 2 and 2.5 PMSS, where neither health rule applies",
	},
	{
		ID:          "messy-export",
		Name:        "Messy Export",
		Description: "A rate printed as a percentage, duplicate months, numeric and unknown month labels",
	},
}

var scenarioBuilders = map[string]func() []bulletin{
	"standard-year":  standardYearScenario,
	"high-salary":    highSalaryScenario,
	"threshold-band": thresholdBandScenario,
	"messy-export":   messyExportScenario,
}

// ScenarioDocument returns the import document of a scenario.
func ScenarioDocument(id string) ([]byte, error) {
	build, ok := scenarioBuilders[id]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}
	return json.Marshal(map[string]any{"bulletins": build()})
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario imports a predefined dataset.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := ScenarioDocument(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	}

	ds, err := h.Service.Import(r.Context(), "scenario-"+req.ScenarioID+".json", doc)
	if err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusCreated, toImportDTO(ds))
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// bulletin is one statement of a generated document, in document shape.
type bulletin map[string]any

var hundred = decimal.NewFromInt(100)

// statementFor builds a full statement with every reference rate of the
// table, the health rate overridden by employerHealth.
func statementFor(table *compliance.RateTable, month any, gross, employerHealth decimal.Decimal) bulletin {
	b := bulletin{
		"annee":        table.Year(),
		"mois":         month,
		"salaire_brut": json.Number(gross.StringFixed(2)),
	}

	employeeTotal, employerTotal := decimal.Zero, decimal.Zero
	for _, name := range table.Contributions() {
		rates, _ := table.Rates(name)
		if name == urssaf.Maladie {
			rates.Employer = decimal.NewNullDecimal(employerHealth)
		}
		line := map[string]any{}
		if rates.Employee.Valid {
			amount := gross.Mul(rates.Employee.Decimal).Round(2)
			employeeTotal = employeeTotal.Add(amount)
			line["bases"] = json.Number(gross.StringFixed(2))
			line["tauxs"] = json.Number(rates.Employee.Decimal.String())
			line["montants"] = json.Number(amount.StringFixed(2))
		}
		if rates.Employer.Valid {
			amount := gross.Mul(rates.Employer.Decimal).Round(2)
			employerTotal = employerTotal.Add(amount)
			line["basep"] = json.Number(gross.StringFixed(2))
			line["tauxp"] = json.Number(rates.Employer.Decimal.String())
			line["montantp"] = json.Number(amount.StringFixed(2))
		}
		b[name] = line
	}

	net := gross.Sub(employeeTotal)
	b["net_social"] = json.Number(net.StringFixed(2))
	b["net_imposable"] = json.Number(net.StringFixed(2))
	b["cout_global"] = json.Number(gross.Add(employerTotal).StringFixed(2))
	return b
}

func standardYearScenario() []bulletin {
	table := urssaf.RateTable2024()
	health, _ := table.Rate(urssaf.Maladie, compliance.SideEmployer)
	out := make([]bulletin, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, statementFor(table, compliance.MonthName(m), decimal.NewFromInt(3500), health))
	}
	return out
}

func highSalaryScenario() []bulletin {
	table := urssaf.RateTable2024()
	reduced := decimal.RequireFromString("0.07")
	standard, _ := table.Rate(urssaf.Maladie, compliance.SideEmployer)
	out := make([]bulletin, 0, 6)
	for m := time.January; m <= time.June; m++ {
		rate := reduced
		if m == time.April {
			rate = standard
		}
		out = append(out, statementFor(table, compliance.MonthName(m), decimal.NewFromInt(11000), rate))
	}
	return out
}

func thresholdBandScenario() []bulletin {
	table := urssaf.RateTable2024()
	health, _ := table.Rate(urssaf.Maladie, compliance.SideEmployer)
	return []bulletin{
		statementFor(table, "Janvier", decimal.NewFromInt(8000), health),
		statementFor(table, "Février", decimal.NewFromInt(8500), health),
		statementFor(table, "Mars", decimal.NewFromInt(9660), health),
	}
}

func messyExportScenario() []bulletin {
	table := urssaf.RateTable2024()
	health, _ := table.Rate(urssaf.Maladie, compliance.SideEmployer)
	gross := decimal.NewFromInt(4200)

	// Health rate printed as a percentage; flagged unless imported with
	// compliance.percent_rates
	percent := statementFor(table, "mars", gross, health)
	percent[urssaf.Maladie] = map[string]any{
		"basep":    json.Number(gross.StringFixed(2)),
		"tauxp":    json.Number(health.Mul(hundred).String()),
		"montantp": json.Number(gross.Mul(health).StringFixed(2)),
	}

	// No health line at all
	missing := statementFor(table, "Avril", gross, health)
	delete(missing, urssaf.Maladie)

	return []bulletin{
		statementFor(table, "Fevrier", gross, health),
		statementFor(table, "Janvier", gross, health),
		percent,
		missing,
		statementFor(table, json.Number("5"), gross, health),
		statementFor(table, "Janvier", gross, decimal.RequireFromString("0.07")),
		statementFor(table, "Brumaire", gross, health),
	}
}
