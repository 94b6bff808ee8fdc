package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if pipelineErr, ok := errors.AsPipelineError(err); ok {
		return h.handlePipelineError(pipelineErr)
	}

	return h.handleGenericError(err)
}

// handlePipelineError handles PipelineError with detailed context
func (h *CLIErrorHandler) handlePipelineError(err *errors.PipelineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-PipelineError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	message := err.Error()

	switch {
	case strings.Contains(message, "no such file"):
		fmt.Fprintf(os.Stderr, "Error: file not found\n\n%s\n", message)
		fmt.Fprintf(os.Stderr, "\nCheck that the file path is correct and the file exists.\n")
		return 2
	case strings.Contains(message, "permission denied"):
		fmt.Fprintf(os.Stderr, "Error: permission denied\n\n%s\n", message)
		fmt.Fprintf(os.Stderr, "\nCheck the file permissions and try again.\n")
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		return 1
	}
}

// getCategoryHelp returns general guidance for an error category.
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return "Verify the file paths passed to --input and --accounts."
	case errors.CategoryParse:
		return "Check that the input files use the unified CSV layout (date, amount, description, account, institution, ...)."
	case errors.CategoryValidation:
		return "Review the flagged values; dates must be YYYY-MM-DD and amounts decimal."
	case errors.CategoryConfiguration:
		return "Review the configuration values; run with --help for flag documentation."
	default:
		return "Run with --verbose for more detail."
	}
}
