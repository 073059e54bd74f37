/*
main.go - Application entry point

PURPOSE:
  The paycheck CLI checks French payslip exports against the URSSAF
  reference rates, either as a local HTTP service or one file at a time.

COMMANDS:
  serve             HTTP API with persisted imports (see api/)
  check <file>      Print verdicts for every period of an export
  rates [year]      Print a fiscal year's reference rates

GLOBAL FLAGS:
  --config   YAML config file (default: PAYCHECK_CONFIG, ./paycheck.yaml)
  --verbose  Debug logging

ENVIRONMENT:
  Every config key can be overridden with PAYCHECK_<SECTION>_<KEY>,
  e.g. PAYCHECK_SERVER_PORT=3000, PAYCHECK_DATABASE_PATH=:memory:

EXAMPLES:
  # Run the API with a file database
  paycheck serve --db ./data/paycheck.db

  # Check one export, only March
  paycheck check export.json --period 2024-03

SEE ALSO:
  - config/config.go: Settings
  - session.go: Reference data and session wiring
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/payslip-compliance/config"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "paycheck",
	Short: "Payslip compliance checker for French URSSAF contributions",
	Long: `paycheck groups payslip statements ("bulletins") by month and checks
the rates they print against the reference rates of the fiscal year.

Each rule reports compliant, non-compliant or not-applicable per period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = cfg.NewLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, checkCmd, ratesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
