package main

import (
	"fmt"

	"github.com/warp/payslip-compliance/analysis"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/config"
	"github.com/warp/payslip-compliance/factory"
	"github.com/warp/payslip-compliance/urssaf"
	"go.uber.org/zap"
)

// referenceData is what a session checks statements against.
type referenceData struct {
	registry *compliance.Registry
	table    *compliance.RateTable
	rules    *compliance.RuleSet
}

// loadReferenceData builds the registry (built-in years plus YAML tables),
// selects the configured fiscal year and its rule set.
func loadReferenceData(c config.ComplianceConfig, logger *zap.Logger) (*referenceData, error) {
	extra, err := factory.LoadRateTables(c.RateTablesDir)
	if err != nil {
		return nil, err
	}
	registry, err := urssaf.NewRegistry(extra...)
	if err != nil {
		return nil, err
	}

	table, err := registry.Load(c.FiscalYear)
	if err != nil {
		return nil, err
	}

	var rules *compliance.RuleSet
	if c.RulesFile != "" {
		rules, err = factory.LoadRules(c.RulesFile)
	} else {
		rules, err = urssaf.DefaultRules(table, c.RateTableChecks)
	}
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	logger.Debug("reference data loaded",
		zap.Ints("fiscal_years", registry.Years()),
		zap.Int("fiscal_year", table.Year()),
		zap.String("ceiling", table.Ceiling().String()),
		zap.Strings("rules", rules.Names()))
	return &referenceData{registry: registry, table: table, rules: rules}, nil
}

func newService(store compliance.ImportStore, ref *referenceData, c config.ComplianceConfig, logger *zap.Logger) (*analysis.Service, error) {
	return analysis.NewService(store, analysis.Config{
		Table:   ref.table,
		Rules:   ref.rules,
		Options: factory.Options{PercentRates: c.PercentRates},
		Logger:  logger,
	})
}
