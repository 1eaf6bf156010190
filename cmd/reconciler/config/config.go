// Package config assembles runtime configuration for the salesrecon CLI
// from flags, environment variables and the optional config file.
package config

import (
	"fmt"
	"time"

	"sales-reconciliation-service/internal/recon"
)

// AppConfig is the fully resolved CLI configuration.
type AppConfig struct {
	// DatabaseURL is the PostgreSQL connection string for the reporting
	// database holding the source tables.
	DatabaseURL string

	// FiscalStartMonth is the month the fiscal year begins in (1-12).
	FiscalStartMonth time.Month

	// QueryTimeout bounds one full reconciliation fetch phase.
	QueryTimeout time.Duration

	// Listen is the HTTP listen address for serve mode.
	Listen string
}

// Validate checks the configuration for the CLI's needs.
func (c *AppConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database-url is required (flag, config file, or SALESRECON_DATABASE_URL)")
	}
	if c.FiscalStartMonth < time.January || c.FiscalStartMonth > time.December {
		return fmt.Errorf("fiscal-start-month must be between 1 and 12, got %d", c.FiscalStartMonth)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query-timeout must be positive, got %s", c.QueryTimeout)
	}
	return nil
}

// ReconConfig derives the reconciliation service configuration.
func (c *AppConfig) ReconConfig() *recon.Config {
	config := recon.DefaultConfig()
	config.FiscalStartMonth = c.FiscalStartMonth
	config.QueryTimeout = c.QueryTimeout
	return config
}
