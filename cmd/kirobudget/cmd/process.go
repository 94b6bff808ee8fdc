package cmd

import (
	"fmt"
	"os"

	"github.com/ufian/kiro-budget/cmd/kirobudget/config"
	"github.com/ufian/kiro-budget/internal/pipeline"
	"github.com/ufian/kiro-budget/internal/report"
	"github.com/ufian/kiro-budget/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the process command
var (
	inputFiles    []string
	accountsFile  string
	outputFile    string
	pairFormat    string
	monthlyFile   string
	dateTolerance int
	ccMaxDays     int
	transferDays  int
	businessDays  bool
	skipSigns     bool
	skipBadRows   bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Consolidate and classify transaction exports",
	Long: `Process reads one or more unified-format transaction CSV files,
corrects per-file sign conventions, removes duplicates across overlapping
exports, nets out internal transfers and credit-card payments, and writes
the classified ledger plus a pair-summary report.

Examples:
  # Basic consolidation
  kirobudget process --input chase.csv,firsttech.csv --output ledger.csv

  # With an account registry and JSON pair summaries
  kirobudget process --input export1.csv,export2.csv \
    --accounts accounts.yaml --pair-format json

  # Looser duplicate window, business-day transfer matching
  kirobudget process --input a.csv,b.csv \
    --date-tolerance 5 --business-days

  # Produce a monthly category summary alongside the ledger
  kirobudget process --input a.csv --output ledger.csv --monthly monthly.csv`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Required flags
	processCmd.Flags().StringSliceVarP(&inputFiles, "input", "i", []string{}, "comma-separated unified transaction CSV files (required)")

	// Input flags
	processCmd.Flags().StringVarP(&accountsFile, "accounts", "A", "", "YAML account registry (institution -> account -> name/type)")
	processCmd.Flags().BoolVar(&skipBadRows, "skip-invalid-rows", false, "skip unparsable rows instead of failing")

	// Output flags
	processCmd.Flags().StringVarP(&outputFile, "output", "o", "consolidated.csv", "classified ledger output path")
	processCmd.Flags().StringVar(&pairFormat, "pair-format", "csv", "pair summary format: csv, json")
	processCmd.Flags().StringVar(&monthlyFile, "monthly", "", "optional monthly category summary output path")

	// Matching configuration flags
	processCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 3, "duplicate clustering tolerance in days")
	processCmd.Flags().IntVar(&ccMaxDays, "cc-max-days", 7, "max lag for credit-card payment pairs")
	processCmd.Flags().IntVar(&transferDays, "transfer-max-days", 3, "max lag for internal transfer pairs")
	processCmd.Flags().BoolVar(&businessDays, "business-days", false, "count only Mon-Fri toward the transfer lag window")
	processCmd.Flags().BoolVar(&skipSigns, "skip-sign-correction", false, "disable per-file sign convention correction")

	// Mark required flags
	processCmd.MarkFlagRequired("input")

	// Bind flags to viper
	viper.BindPFlag("input", processCmd.Flags().Lookup("input"))
	viper.BindPFlag("accounts", processCmd.Flags().Lookup("accounts"))
	viper.BindPFlag("output", processCmd.Flags().Lookup("output"))
	viper.BindPFlag("pair-format", processCmd.Flags().Lookup("pair-format"))
	viper.BindPFlag("date-tolerance", processCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("cc-max-days", processCmd.Flags().Lookup("cc-max-days"))
	viper.BindPFlag("transfer-max-days", processCmd.Flags().Lookup("transfer-max-days"))
	viper.BindPFlag("business-days", processCmd.Flags().Lookup("business-days"))
}

// validateProcessFlags validates flag combinations before running.
func validateProcessFlags(cmd *cobra.Command, args []string) error {
	if len(inputFiles) == 0 {
		return fmt.Errorf("at least one --input file is required")
	}

	for _, path := range inputFiles {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file not accessible: %s", path)
		}
	}

	if pairFormat != "csv" && pairFormat != "json" {
		return fmt.Errorf("invalid pair format '%s': must be csv or json", pairFormat)
	}

	if dateTolerance < 0 || ccMaxDays < 0 || transferDays < 0 {
		return fmt.Errorf("tolerances must be non-negative")
	}

	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	setupLogging()
	handler := NewCLIErrorHandler()

	cfg := config.BuildPipelineConfig(config.ProcessOptions{
		AccountsPath:       accountsFile,
		DateToleranceDays:  dateTolerance,
		CreditCardMaxDays:  ccMaxDays,
		InternalMaxDays:    transferDays,
		UseBusinessDays:    businessDays,
		SkipSignCorrection: skipSigns,
		SkipInvalidRows:    skipBadRows,
	})

	processor, err := pipeline.NewProcessor(cfg)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	result, err := processor.Process(inputFiles)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	writer := report.NewWriter()
	if err := writer.WriteResultFiles(outputFile, result, pairFormat); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if monthlyFile != "" {
		if err := writeMonthlySummary(writer, result, monthlyFile); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	printRunSummary(result)
	return nil
}

func writeMonthlySummary(writer *report.Writer, result *pipeline.Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	summary := report.BuildMonthlySummary(result)
	return writer.WriteMonthlySummaryCSV(file, summary)
}

// printRunSummary writes the aggregate outcome to stdout.
func printRunSummary(result *pipeline.Result) {
	fmt.Printf("Processed %d transactions from %d files\n",
		result.DedupStats.TotalInput, len(result.Files))
	fmt.Printf("  Duplicates removed:   %d (%d groups)\n",
		result.DedupStats.TotalDuplicatesRemoved, result.DedupStats.DuplicateGroupsFound)
	fmt.Printf("  Credit card payments: %d pairs\n", result.MatchStats.CreditCardPairs)
	fmt.Printf("  Internal transfers:   %d pairs\n", result.MatchStats.InternalPairs)
	fmt.Printf("  Classified ledger:    %d transactions\n", len(result.Transactions))

	for _, file := range result.Files {
		if file.Flipped {
			fmt.Printf("  Sign-corrected %s (%s, confidence %.2f)\n",
				file.Path, file.Convention, file.Confidence)
		}
	}
}

// setupLogging configures the global logger from the verbose flag.
func setupLogging() {
	cfg := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		cfg = logger.DebugConfig()
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to configure logging: %v\n", err)
		return
	}
	logger.SetGlobalLogger(log)
}
