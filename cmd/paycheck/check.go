package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/payslip-compliance/analysis"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/compliance/store"
)

// errViolations makes the process exit non-zero without printing an error.
var errViolations = errors.New("non-compliant verdicts found")

var (
	checkPeriod string
	checkJSON   bool
	checkStrict bool
)

// checkCmd evaluates one export without touching the database.
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check the statements of an export file",
	Long: `Reads a {"bulletins": [...]} export ("-" for stdin), groups statements
by month and prints one verdict per rule and period.

With --strict the command exits 1 when any verdict is non-compliant.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkPeriod, "period", "", "only this period (YYYY-MM)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print verdicts as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit 1 on any non-compliant verdict")
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, name, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	ref, err := loadReferenceData(cfg.Compliance, logger)
	if err != nil {
		return err
	}
	svc, err := newService(store.NewMemory(), ref, cfg.Compliance, logger)
	if err != nil {
		return err
	}

	ds, err := svc.Import(cmd.Context(), name, data)
	if err != nil {
		return err
	}

	var results []analysis.PeriodAnalysis
	if checkPeriod != "" {
		key, err := compliance.ParsePeriodKey(checkPeriod)
		if err != nil {
			return err
		}
		one, err := svc.Analyze(key)
		if err != nil {
			return err
		}
		results = []analysis.PeriodAnalysis{*one}
	} else {
		results, err = svc.Report(cmd.Context())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		err = printJSON(out, results)
	} else {
		err = printTable(out, ds, results)
	}
	if err != nil {
		return err
	}

	if checkStrict {
		for _, r := range results {
			if r.Verdicts.Summary().NonCompliant > 0 {
				return errViolations
			}
		}
	}
	return nil
}

func readInput(stdin io.Reader, arg string) ([]byte, string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		return data, "stdin", err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(arg), nil
}

type periodJSON struct {
	Period   string              `json:"period"`
	Label    string              `json:"label"`
	Verdicts compliance.Verdicts `json:"verdicts"`
}

func printJSON(w io.Writer, results []analysis.PeriodAnalysis) error {
	out := make([]periodJSON, len(results))
	for i, r := range results {
		out[i] = periodJSON{Period: r.Period.Key.String(), Label: r.Period.Label, Verdicts: r.Verdicts}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTable(w io.Writer, ds *analysis.Dataset, results []analysis.PeriodAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s: %d bulletins, %d periods\n", ds.FileName, ds.RecordCount, ds.Aggregation.Len())
	for _, s := range ds.Aggregation.Skipped {
		fmt.Fprintf(tw, "skipped bulletin %d: %v\n", s.Index, s.Err)
	}
	for _, i := range ds.Aggregation.Duplicates {
		fmt.Fprintf(tw, "ignored duplicate bulletin %d\n", i)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PERIOD\tRULE\tSTATUS\tEXPECTED\tACTUAL")
	for _, r := range results {
		for _, v := range r.Verdicts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.Period.Label, v.Rule, v.Status, formatDecimal(v.Expected), formatActual(v))
		}
	}
	return tw.Flush()
}

func formatActual(v compliance.Verdict) string {
	if v.Actual == nil && v.Reason != "" {
		return "(" + v.Reason + ")"
	}
	return formatDecimal(v.Actual)
}
