/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the compliance model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Imports:
    ImportDTO, SkippedDTO

  Periods:
    PeriodDTO, PeriodDetailResponse, SummaryFiguresDTO, ContributionRowDTO

  Reference data:
    RateTableDTO, RateDTO, RuleDTO

NUMBERS:
  Decimals are encoded as JSON strings ("0.13") so no precision is lost.
  An absent figure is null, never zero.

SEE ALSO:
  - handlers.go: Uses these types
  - compliance/engine.go: Verdict is returned as is
*/
package api

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-compliance/analysis"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/urssaf"
)

// =============================================================================
// IMPORTS
// =============================================================================

// ImportDTO describes the active dataset.
type ImportDTO struct {
	ID          string       `json:"id"`
	FileName    string       `json:"file_name"`
	ImportedAt  time.Time    `json:"imported_at"`
	RecordCount int          `json:"record_count"`
	PeriodCount int          `json:"period_count"`
	Periods     []PeriodDTO  `json:"periods"`
	Duplicates  []int        `json:"duplicates"`
	Skipped     []SkippedDTO `json:"skipped"`
}

// SkippedDTO is a bulletin that could not be assigned a period.
type SkippedDTO struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

func toImportDTO(ds *analysis.Dataset) ImportDTO {
	dto := ImportDTO{
		ID:          ds.ID,
		FileName:    ds.FileName,
		ImportedAt:  ds.ImportedAt,
		RecordCount: ds.RecordCount,
		PeriodCount: ds.Aggregation.Len(),
		Periods:     toPeriodDTOs(ds.Aggregation.Periods()),
		Duplicates:  ds.Aggregation.Duplicates,
		Skipped:     make([]SkippedDTO, len(ds.Aggregation.Skipped)),
	}
	if dto.Duplicates == nil {
		dto.Duplicates = []int{}
	}
	for i, s := range ds.Aggregation.Skipped {
		dto.Skipped[i] = SkippedDTO{Index: s.Index, Error: s.Err.Error()}
	}
	return dto
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodDTO is one entry of the period selector.
type PeriodDTO struct {
	Key   string `json:"key"` // YYYY-MM
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
}

func toPeriodDTO(p compliance.Period) PeriodDTO {
	return PeriodDTO{
		Key:   p.Key.String(),
		Label: p.Label,
		Year:  p.Key.Year,
		Month: int(p.Key.Month),
	}
}

func toPeriodDTOs(periods []compliance.Period) []PeriodDTO {
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	return dtos
}

// SummaryFiguresDTO holds the headline figures of a statement.
type SummaryFiguresDTO struct {
	GrossSalary decimal.NullDecimal `json:"salaire_brut"`
	TaxableNet  decimal.NullDecimal `json:"net_imposable"`
	NetSocial   decimal.NullDecimal `json:"net_social"`
	TotalCost   decimal.NullDecimal `json:"cout_global"`
}

// ContributionRowDTO is one row of the deduction table.
type ContributionRowDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	compliance.ContributionLine
}

// PeriodDetailResponse is everything shown for one period.
type PeriodDetailResponse struct {
	Period        PeriodDTO            `json:"period"`
	Figures       SummaryFiguresDTO    `json:"figures"`
	Contributions []ContributionRowDTO `json:"contributions"`
	Verdicts      compliance.Verdicts  `json:"verdicts"`
	Summary       compliance.Summary   `json:"summary"`
}

func toPeriodDetail(a *analysis.PeriodAnalysis) PeriodDetailResponse {
	rec := a.Period.Record
	verdicts := a.Verdicts
	if verdicts == nil {
		verdicts = compliance.Verdicts{}
	}
	return PeriodDetailResponse{
		Period: toPeriodDTO(a.Period),
		Figures: SummaryFiguresDTO{
			GrossSalary: rec.GrossSalary,
			TaxableNet:  rec.TaxableNet,
			NetSocial:   rec.NetSocial,
			TotalCost:   rec.TotalCost,
		},
		Contributions: contributionRows(rec),
		Verdicts:      verdicts,
		Summary:       verdicts.Summary(),
	}
}

// contributionRows lists known contributions in display order, then any
// other line the statement carries, by name.
func contributionRows(rec compliance.PayslipRecord) []ContributionRowDTO {
	rows := make([]ContributionRowDTO, 0, len(rec.Contributions))
	seen := make(map[string]bool, len(rec.Contributions))
	for _, key := range urssaf.DisplayOrder() {
		line, ok := rec.Contribution(key)
		if !ok {
			continue
		}
		seen[key] = true
		rows = append(rows, ContributionRowDTO{Key: key, Label: urssaf.Label(key), ContributionLine: line})
	}

	var extra []string
	for key := range rec.Contributions {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		rows = append(rows, ContributionRowDTO{Key: key, Label: key, ContributionLine: rec.Contributions[key]})
	}
	return rows
}

// =============================================================================
// REPORT
// =============================================================================

// ReportEntryDTO is one period of the full report.
type ReportEntryDTO struct {
	Period   PeriodDTO           `json:"period"`
	Verdicts compliance.Verdicts `json:"verdicts"`
	Summary  compliance.Summary  `json:"summary"`
}

// ReportResponse covers every period of the active dataset.
type ReportResponse struct {
	Import  ImportDTO          `json:"import"`
	Periods []ReportEntryDTO   `json:"periods"`
	Totals  compliance.Summary `json:"totals"`
}

func toReport(ds *analysis.Dataset, entries []analysis.PeriodAnalysis) ReportResponse {
	resp := ReportResponse{
		Import:  toImportDTO(ds),
		Periods: make([]ReportEntryDTO, len(entries)),
	}
	for i, e := range entries {
		s := e.Verdicts.Summary()
		resp.Periods[i] = ReportEntryDTO{
			Period:   toPeriodDTO(e.Period),
			Verdicts: e.Verdicts,
			Summary:  s,
		}
		resp.Totals.Compliant += s.Compliant
		resp.Totals.NonCompliant += s.NonCompliant
		resp.Totals.NotApplicable += s.NotApplicable
	}
	return resp
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// RateDTO holds the reference rates of one contribution.
type RateDTO struct {
	Key      string              `json:"key"`
	Label    string              `json:"label"`
	Employee decimal.NullDecimal `json:"salarial"`
	Employer decimal.NullDecimal `json:"patronal"`
}

// RateTableDTO is a fiscal year's reference table.
type RateTableDTO struct {
	Year    int             `json:"year"`
	Ceiling decimal.Decimal `json:"ceiling"`
	Rates   []RateDTO       `json:"rates"`
}

func toRateTableDTO(t *compliance.RateTable) RateTableDTO {
	names := t.Contributions()
	dto := RateTableDTO{Year: t.Year(), Ceiling: t.Ceiling(), Rates: make([]RateDTO, len(names))}
	for i, name := range names {
		r, _ := t.Rates(name)
		dto.Rates[i] = RateDTO{Key: name, Label: urssaf.Label(name), Employee: r.Employee, Employer: r.Employer}
	}
	return dto
}

// RuleDTO describes one rule of the session.
type RuleDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Target      string          `json:"target"`
	Expected    decimal.Decimal `json:"expected"`
}

func toRuleDTOs(rs *compliance.RuleSet) []RuleDTO {
	rules := rs.Rules()
	dtos := make([]RuleDTO, len(rules))
	for i, r := range rules {
		dtos[i] = RuleDTO{
			Name:        r.Name,
			Description: r.Description,
			Target:      r.Target.String(),
			Expected:    r.Expected,
		}
	}
	return dtos
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
