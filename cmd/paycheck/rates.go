package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/factory"
	"github.com/warp/payslip-compliance/urssaf"
)

var ratesYAML bool

// ratesCmd prints a fiscal year's reference table.
var ratesCmd = &cobra.Command{
	Use:   "rates [year]",
	Short: "Print the reference rates of a fiscal year",
	Long: `Prints the ceiling and every reference rate of a fiscal year
(default: compliance.fiscal_year). With --yaml the table is printed in
the format accepted by compliance.rate_tables_dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRates,
}

func init() {
	ratesCmd.Flags().BoolVar(&ratesYAML, "yaml", false, "print as a rate-table YAML file")
}

func runRates(cmd *cobra.Command, args []string) error {
	year := cfg.Compliance.FiscalYear
	if len(args) == 1 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		year = y
	}

	ref, err := loadReferenceData(cfg.Compliance, logger)
	if err != nil {
		return err
	}
	table, err := ref.registry.Load(year)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ratesYAML {
		data, err := factory.RateTableToYAML(table)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	return printRates(out, table)
}

func printRates(w io.Writer, table *compliance.RateTable) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Fiscal year %d, PMSS %s\n\n", table.Year(), table.Ceiling().StringFixed(2))
	fmt.Fprintln(tw, "CONTRIBUTION\tLABEL\tSALARIAL\tPATRONAL")
	for _, name := range table.Contributions() {
		r, _ := table.Rates(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, urssaf.Label(name), formatRate(r.Employee), formatRate(r.Employer))
	}
	return tw.Flush()
}

func formatRate(r decimal.NullDecimal) string {
	if !r.Valid {
		return "-"
	}
	return r.Decimal.String()
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
