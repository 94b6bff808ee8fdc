package report

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/internal/classify"
	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/internal/pipeline"
	"github.com/ufian/kiro-budget/pkg/errors"
)

// MonthlySummary aggregates net amounts per month and category. Pair
// summaries are attributed to the month the money left the sending
// account, so a card payment posted across a month boundary counts once,
// in the sending month.
type MonthlySummary struct {
	// Totals maps "YYYY-MM" -> category -> net amount.
	Totals map[string]map[string]decimal.Decimal
}

// BuildMonthlySummary aggregates a pipeline result into per-month
// category totals. Internal-transfer pairs net to zero and contribute
// nothing; credit-card payment pairs contribute their funding-side
// outflow under the credit_card_payment bucket.
func BuildMonthlySummary(result *pipeline.Result) *MonthlySummary {
	summary := &MonthlySummary{
		Totals: make(map[string]map[string]decimal.Decimal),
	}

	for _, tx := range result.Transactions {
		month := tx.Date.Format("2006-01")
		summary.add(month, string(tx.Label), tx.Amount)
	}

	for _, pair := range result.Summaries {
		if pair.NetAmount.IsZero() {
			continue
		}
		// The summary date is already the sent leg's date.
		month := pair.Date
		if len(month) >= 7 {
			month = month[:7]
		}
		summary.add(month, string(pair.PairType), pair.NetAmount)
	}

	return summary
}

func (s *MonthlySummary) add(month, category string, amount decimal.Decimal) {
	if s.Totals[month] == nil {
		s.Totals[month] = make(map[string]decimal.Decimal)
	}
	s.Totals[month][category] = s.Totals[month][category].Add(amount)
}

// Months returns the months present, sorted ascending.
func (s *MonthlySummary) Months() []string {
	months := make([]string, 0, len(s.Totals))
	for month := range s.Totals {
		months = append(months, month)
	}
	sort.Strings(months)
	return months
}

// Get returns the net total for a month and category.
func (s *MonthlySummary) Get(month, category string) decimal.Decimal {
	return s.Totals[month][category]
}

// monthlyCategories is the fixed column order of the monthly report.
var monthlyCategories = []string{
	string(classify.CategoryIncome),
	string(classify.CategorySpending),
	string(classify.CategoryRefund),
	string(classify.CategoryInternalTransfer),
	string(classify.CategoryExternalTransfer),
	"credit_card_payment",
}

// WriteMonthlySummaryCSV writes one row per month with a column per
// category plus a net column.
func (w *Writer) WriteMonthlySummaryCSV(out io.Writer, summary *MonthlySummary) error {
	cw := csv.NewWriter(out)

	header := append([]string{"month"}, monthlyCategories...)
	header = append(header, "net")
	if err := cw.Write(header); err != nil {
		return errors.ProcessingError(errors.CodeExportFailed, "write monthly header", err)
	}

	for _, month := range summary.Months() {
		row := []string{month}
		net := decimal.Zero
		for _, category := range monthlyCategories {
			amount := summary.Get(month, category)
			net = net.Add(amount)
			row = append(row, models.FormatAmount(amount))
		}
		row = append(row, models.FormatAmount(net))
		if err := cw.Write(row); err != nil {
			return errors.ProcessingError(errors.CodeExportFailed, "write monthly row", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// pairSiblingPath derives the pair-summary output path next to the main
// transactions file.
func pairSiblingPath(basePath, format string) string {
	ext := filepath.Ext(basePath)
	stem := strings.TrimSuffix(basePath, ext)
	if format == "json" {
		return stem + "_pairs.json"
	}
	return stem + "_pairs.csv"
}
