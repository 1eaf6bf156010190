package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"sales-reconciliation-service/cmd/reconciler/config"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/recon"
	"sales-reconciliation-service/internal/reporter"
	"sales-reconciliation-service/internal/sources"
	"sales-reconciliation-service/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the report command
var (
	reportMonth   string
	outputFormat  string
	outputFile    string
	onlyNonZero   bool
	referenceDate string
)

// reportCmd runs one reconciliation pass and renders the result.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run one reconciliation pass and print the report",
	Long: `Report reconciles the current fiscal window's sales aggregates and
prints the unified pivot, KPIs, standing diffs and the unclassified
channel label audit.

Examples:
  # Full window report to the console
  salesrecon report --database-url postgres://localhost/sales

  # One month as JSON
  salesrecon report --month 2025-09-01 --output-format json

  # Workbook export including zero diff rows
  salesrecon report --output-format xlsx --output-file fy26.xlsx --only-nonzero=false`,

	PreRunE: validateReportFlags,
	RunE:    runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportMonth, "month", "m", "", "restrict to one month (ISO first-of-month, e.g. 2025-09-01)")
	reportCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, xlsx")
	reportCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reportCmd.Flags().BoolVar(&onlyNonZero, "only-nonzero", true, "show only non-zero diff rows")
	reportCmd.Flags().StringVar(&referenceDate, "reference-date", "", "reference date selecting the fiscal window (YYYY-MM-DD, default: today)")

	viper.BindPFlag("month", reportCmd.Flags().Lookup("month"))
	viper.BindPFlag("output-format", reportCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reportCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("only-nonzero", reportCmd.Flags().Lookup("only-nonzero"))
	viper.BindPFlag("reference-date", reportCmd.Flags().Lookup("reference-date"))
}

func validateReportFlags(cmd *cobra.Command, args []string) error {
	reportMonth = viper.GetString("month")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	onlyNonZero = viper.GetBool("only-nonzero")
	referenceDate = viper.GetString("reference-date")

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, xlsx", outputFormat)
	}
	if outputFormat == string(reporter.FormatXLSX) && outputFile == "" {
		return fmt.Errorf("output-file is required for xlsx output")
	}

	if reportMonth != "" {
		if _, err := models.ParseMonth(reportMonth); err != nil {
			return err
		}
	}
	if referenceDate != "" {
		if _, err := time.Parse("2006-01-02", referenceDate); err != nil {
			return fmt.Errorf("invalid reference date format. Use YYYY-MM-DD: %w", err)
		}
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	appConfig := resolveAppConfig()
	if err := appConfig.Validate(); err != nil {
		return err
	}

	ref := time.Now()
	if referenceDate != "" {
		ref, _ = time.Parse("2006-01-02", referenceDate)
	}

	service, pool, err := buildService(ctx, appConfig)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := service.Run(ctx, ref)
	if err != nil {
		return err
	}

	reportConfig := &reporter.ReportConfig{
		Format:      reporter.OutputFormat(outputFormat),
		OnlyNonZero: onlyNonZero,
	}
	if reportMonth != "" {
		m, err := models.ParseMonth(reportMonth)
		if err != nil {
			return err
		}
		reportConfig.Month = m
	}

	generator, err := reporter.NewGenerator(reportConfig)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	return generator.Generate(result, out)
}

// resolveAppConfig reads the shared configuration from viper after flag
// and environment binding.
func resolveAppConfig() *config.AppConfig {
	timeout := viper.GetDuration("query-timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &config.AppConfig{
		DatabaseURL:      viper.GetString("database-url"),
		FiscalStartMonth: time.Month(viper.GetInt("fiscal-start-month")),
		QueryTimeout:     timeout,
		Listen:           viper.GetString("listen"),
	}
}

// buildService wires the PostgreSQL store and the reconciliation service.
// The caller owns the returned pool.
func buildService(ctx context.Context, appConfig *config.AppConfig) (*recon.Service, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, appConfig.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := sources.NewPostgresStore(pool)
	service, err := recon.NewService(store, appConfig.ReconConfig(), logger.GetGlobalLogger().WithComponent("recon"))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return service, pool, nil
}
