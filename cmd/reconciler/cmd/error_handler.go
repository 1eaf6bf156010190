package cmd

import (
	"fmt"
	"os"

	"sales-reconciliation-service/internal/recon"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler turns service errors into operator-readable messages
// and process exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler.
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints the error and returns the exit code for it.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconErr, ok := errors.AsReconError(err); ok {
		return h.handleReconError(err, reconErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleReconError(err error, reconErr *errors.ReconError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", reconErr.Message)

	// A consistency violation carries the per-month discrepancy list;
	// print it so the operator sees which months to chase.
	if ce, ok := recon.AsConsistencyError(err); ok {
		fmt.Fprintf(os.Stderr, "\nChannel sums disagree with stated month totals in %s:\n", ce.WindowLabel)
		for _, d := range ce.Discrepancies {
			fmt.Fprintf(os.Stderr, "  %s: channels sum to %s, stated total is %s (off by %s)\n",
				d.Month, d.ChannelSum, d.StatedTotal, d.Discrepancy)
		}
	}

	if len(reconErr.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range reconErr.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if reconErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", reconErr.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", categoryHelp(reconErr.Category))

	if h.verbose && reconErr.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", reconErr.Cause)
	}

	return reconErr.ExitCode()
}

func categoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryInput:
		return `Input error help:
• Months must be ISO first-of-month dates, e.g. 2025-09-01
• Check flag spelling with 'salesrecon report --help'
• Verify configuration file syntax if using --config`

	case errors.CategorySource:
		return `Source error help:
• Check that the database is reachable at the configured URL
• Verify the source tables exist and are readable
• A timeout may mean a slow source; raise --query-timeout
• No partial results are reported while any source fails`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• The resolved channel sums disagree with the stored month totals
• Inspect the listed months in the source tables
• Check for late corrections that reached one pipeline but not another
• Reporting stays blocked until the totals agree`

	default:
		return `For more help:
• Use 'salesrecon --help' for general help
• Run with --verbose for detailed error information
• Report bugs on the project repository`
	}
}
