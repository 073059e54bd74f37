/*
handlers_test.go - Tests for API handlers

Tests for:
- Import, current dataset, reset
- Period listing and per-period analysis
- Report, reference data, scenarios
- Error mapping (400/404/415)
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-compliance/analysis"
	"github.com/warp/payslip-compliance/compliance/store"
	"github.com/warp/payslip-compliance/urssaf"
)

const testDocument = `{"bulletins": [
	{"annee": 2024, "mois": "Février", "salaire_brut": 12000, "net_social": 9100.5,
	 "maladie": {"basep": 12000, "tauxp": 0.07, "montantp": 840},
	 "fnal": {"basep": 3864, "tauxp": 0.001, "montantp": 3.86},
	 "prime_speciale": {"montants": 10}},
	{"annee": 2024, "mois": "Janvier", "salaire_brut": 5000, "maladie": {"tauxp": 0.07}}
]}`

type testServer struct {
	router *chi.Mux
	store  *store.Memory
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	table := urssaf.RateTable2024()
	svc, err := analysis.NewService(mem, analysis.Config{Table: table, Rules: urssaf.Rules2024()})
	require.NoError(t, err)
	registry, err := urssaf.NewRegistry()
	require.NoError(t, err)

	h := NewHandler(svc, registry, nil)
	return &testServer{router: NewRouter(h, RouterOptions{}), store: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) importDocument(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/imports?file_name=export.json", testDocument, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// IMPORTS
// =============================================================================

func TestImportDocument_Success(t *testing.T) {
	// GIVEN: A valid export with two periods out of order
	// WHEN: Posting it
	// THEN: The dataset is described and its periods are chronological

	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/imports?file_name=export.json", testDocument, "application/json")

	require.Equal(t, http.StatusCreated, rec.Code)
	dto := decode[ImportDTO](t, rec)
	assert.Equal(t, "export.json", dto.FileName)
	assert.Equal(t, 2, dto.RecordCount)
	require.Len(t, dto.Periods, 2)
	assert.Equal(t, "2024-01", dto.Periods[0].Key)
	assert.Equal(t, "Février 2024", dto.Periods[1].Label)
	assert.Empty(t, dto.Skipped)
	assert.Equal(t, 1, s.store.Len())
}

func TestImportDocument_InvalidDocument(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/imports", `{"bulletins": [{"mois": "Mai"}]}`, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Failed to import document", resp.Error)
	assert.Contains(t, resp.Details, "bulletin 0")
	assert.Zero(t, s.store.Len())
}

func TestImportDocument_RejectsNonJSON(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/imports", testDocument, "text/csv")

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestImportDocument_TooLarge(t *testing.T) {
	mem := store.NewMemory()
	svc, err := analysis.NewService(mem, analysis.Config{Table: urssaf.RateTable2024(), Rules: urssaf.Rules2024()})
	require.NoError(t, err)
	h := NewHandler(svc, nil, nil)
	h.MaxUploadBytes = 16
	router := NewRouter(h, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/imports", bytes.NewBufferString(testDocument))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCurrentImportAndReset(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/imports/current", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.importDocument(t)
	rec = s.do(t, http.MethodGet, "/api/imports/current", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "export.json", decode[ImportDTO](t, rec).FileName)

	rec = s.do(t, http.MethodDelete, "/api/imports/current", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, s.store.Len())

	rec = s.do(t, http.MethodGet, "/api/periods", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestListPeriods(t *testing.T) {
	s := setupTestServer(t)
	s.importDocument(t)

	rec := s.do(t, http.MethodGet, "/api/periods", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Periods []PeriodDTO `json:"periods"`
	}](t, rec)
	require.Len(t, resp.Periods, 2)
	assert.Equal(t, PeriodDTO{Key: "2024-01", Label: "Janvier 2024", Year: 2024, Month: 1}, resp.Periods[0])
}

func TestGetPeriod(t *testing.T) {
	// GIVEN: February at 12000 gross with a 7% employer health rate
	// WHEN: Fetching the period
	// THEN: The high-salary rule is compliant, the standard rule not applicable,
	//       and contributions follow the display order with unknown lines last

	s := setupTestServer(t)
	s.importDocument(t)

	rec := s.do(t, http.MethodGet, "/api/periods/2024-02", "", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))

	var figures map[string]*string
	require.NoError(t, json.Unmarshal(raw["figures"], &figures))
	require.NotNil(t, figures["salaire_brut"])
	assert.Equal(t, "12000", *figures["salaire_brut"])
	assert.Nil(t, figures["cout_global"], "absent figure is null")

	var rows []struct {
		Key   string  `json:"key"`
		Label string  `json:"label"`
		Rate  *string `json:"tauxp"`
	}
	require.NoError(t, json.Unmarshal(raw["contributions"], &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "maladie", rows[0].Key)
	assert.Equal(t, urssaf.Label(urssaf.Maladie), rows[0].Label)
	assert.Equal(t, "fnal", rows[1].Key)
	assert.Equal(t, "prime_speciale", rows[2].Key)
	assert.Nil(t, rows[2].Rate)

	var verdicts []struct {
		Rule     string  `json:"rule"`
		Status   string  `json:"status"`
		Expected *string `json:"expected"`
		Actual   *string `json:"actual"`
	}
	require.NoError(t, json.Unmarshal(raw["verdicts"], &verdicts))
	require.Len(t, verdicts, 2)
	assert.Equal(t, "maladie", verdicts[0].Rule)
	assert.Equal(t, "compliant", verdicts[0].Status)
	assert.Equal(t, "autre_regle", verdicts[1].Rule)
	assert.Equal(t, "not-applicable", verdicts[1].Status)
	assert.Nil(t, verdicts[1].Expected)
	assert.Nil(t, verdicts[1].Actual)
}

func TestGetPeriod_Errors(t *testing.T) {
	s := setupTestServer(t)
	s.importDocument(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/periods/janvier", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/periods/2024-13", "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/periods/2023-12", "", "").Code)
}

func TestGetReport(t *testing.T) {
	s := setupTestServer(t)
	s.importDocument(t)

	rec := s.do(t, http.MethodGet, "/api/report", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[struct {
		Periods []struct {
			Period  PeriodDTO `json:"period"`
			Summary struct {
				Compliant     int `json:"compliant"`
				NonCompliant  int `json:"non_compliant"`
				NotApplicable int `json:"not_applicable"`
			} `json:"summary"`
		} `json:"periods"`
		Totals struct {
			Compliant     int `json:"compliant"`
			NonCompliant  int `json:"non_compliant"`
			NotApplicable int `json:"not_applicable"`
		} `json:"totals"`
	}](t, rec)

	require.Len(t, report.Periods, 2)
	// January: 5000 gross with 7% -> standard rule non-compliant
	assert.Equal(t, "2024-01", report.Periods[0].Period.Key)
	assert.Equal(t, 1, report.Periods[0].Summary.NonCompliant)
	assert.Equal(t, 1, report.Totals.Compliant)
	assert.Equal(t, 1, report.Totals.NonCompliant)
	assert.Equal(t, 2, report.Totals.NotApplicable)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestGetRateTable(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/rate-tables/2024", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	table := decode[struct {
		Year    int    `json:"year"`
		Ceiling string `json:"ceiling"`
		Rates   []struct {
			Key      string  `json:"key"`
			Employee *string `json:"salarial"`
			Employer *string `json:"patronal"`
		} `json:"rates"`
	}](t, rec)
	assert.Equal(t, 2024, table.Year)
	assert.Equal(t, "3864", table.Ceiling)
	assert.Len(t, table.Rates, 21)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/rate-tables/2019", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/rate-tables/next", "", "").Code)
}

func TestListRules(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/rules", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		FiscalYear int       `json:"fiscal_year"`
		Rules      []RuleDTO `json:"rules"`
	}](t, rec)
	assert.Equal(t, 2024, resp.FiscalYear)
	require.Len(t, resp.Rules, 2)
	assert.Equal(t, "maladie.tauxp", resp.Rules[0].Target)
	assert.Equal(t, "0.07", resp.Rules[0].Expected.String())
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_AllImport(t *testing.T) {
	for _, sc := range scenarios {
		doc, err := ScenarioDocument(sc.ID)
		require.NoError(t, err, sc.ID)
		assert.True(t, json.Valid(doc), sc.ID)
	}
	_, err := ScenarioDocument("missing")
	assert.Error(t, err)
}

func TestLoadScenario_HighSalary(t *testing.T) {
	// GIVEN: The high-salary scenario (April keeps the 13% rate)
	// WHEN: Loading it and fetching April
	// THEN: The high-salary rule flags April only

	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "high-salary"}`, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 6, decode[ImportDTO](t, rec).PeriodCount)

	for key, want := range map[string]string{"2024-03": "compliant", "2024-04": "non-compliant"} {
		rec = s.do(t, http.MethodGet, "/api/periods/"+key, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		detail := decode[struct {
			Verdicts []struct {
				Rule   string `json:"rule"`
				Status string `json:"status"`
			} `json:"verdicts"`
		}](t, rec)
		assert.Equal(t, want, detail.Verdicts[0].Status, key)
	}
}

func TestLoadScenario_MessyExport(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "messy-export"}`, "application/json")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dto := decode[ImportDTO](t, rec)
	assert.Equal(t, 7, dto.RecordCount)
	assert.Equal(t, 5, dto.PeriodCount)
	assert.Equal(t, []int{5}, dto.Duplicates)
	require.Len(t, dto.Skipped, 1)
	assert.Equal(t, 6, dto.Skipped[0].Index)

	// March prints the health rate as 13 (percent) and is reported as printed
	rec = s.do(t, http.MethodGet, "/api/periods/2024-03", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rule":"autre_regle","status":"non-compliant"`)
	assert.Contains(t, rec.Body.String(), `"actual":"13"`)

	// April has no health line
	rec = s.do(t, http.MethodGet, "/api/periods/2024-04", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rule":"autre_regle","status":"non-compliant"`)
}

func TestLoadScenario_Unknown(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
