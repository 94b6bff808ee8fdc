// Package report writes pipeline output in the unified CSV layout and
// produces monthly category summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/internal/pipeline"
	"github.com/ufian/kiro-budget/internal/transfer"
	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// transactionHeader is the fixed unified column order. Readers downstream
// depend on it, so it never changes shape.
var transactionHeader = []string{
	"date", "amount", "description", "account", "institution",
	"transaction_id", "category", "balance",
}

// enrichedHeader extends the unified layout with the account registry
// columns.
var enrichedHeader = append(append([]string{}, transactionHeader...),
	"account_name", "account_type")

// Writer serializes pipeline output.
type Writer struct {
	log logger.Logger
}

// NewWriter creates a report writer.
func NewWriter() *Writer {
	return &Writer{log: logger.WithComponent("report")}
}

// WriteTransactions writes plain transactions in the unified layout.
// Dates are ISO and amounts carry exactly two decimals so the file
// round-trips through the parser unchanged.
func (w *Writer) WriteTransactions(out io.Writer, transactions []*models.Transaction) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(transactionHeader); err != nil {
		return errors.ProcessingError(errors.CodeExportFailed, "write csv header", err)
	}

	for _, tx := range transactions {
		if err := cw.Write(transactionRow(tx)); err != nil {
			return errors.ProcessingError(errors.CodeExportFailed, "write csv row", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteClassified writes classified transactions in the enriched layout.
// The classifier's label lands in the category column; a category already
// present on the row is kept only when no label was assigned.
func (w *Writer) WriteClassified(out io.Writer, transactions []*pipeline.ClassifiedTransaction) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(enrichedHeader); err != nil {
		return errors.ProcessingError(errors.CodeExportFailed, "write csv header", err)
	}

	for _, tx := range transactions {
		row := transactionRow(&tx.Transaction)
		if tx.Label != "" {
			row[6] = string(tx.Label)
		}
		row = append(row, tx.AccountName, string(tx.AccountType))
		if err := cw.Write(row); err != nil {
			return errors.ProcessingError(errors.CodeExportFailed, "write csv row", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WritePairSummariesCSV writes the netted pair rows.
func (w *Writer) WritePairSummariesCSV(out io.Writer, summaries []*transfer.PairSummary) error {
	cw := csv.NewWriter(out)

	header := []string{
		"date", "net_amount", "description", "account", "account_name",
		"account_type", "institution", "pair_type", "sent", "received", "days_diff",
	}
	if err := cw.Write(header); err != nil {
		return errors.ProcessingError(errors.CodeExportFailed, "write pair header", err)
	}

	for _, s := range summaries {
		row := []string{
			s.Date,
			models.FormatAmount(s.NetAmount),
			s.Description,
			s.Account,
			s.AccountName,
			s.AccountType,
			s.Institution,
			string(s.PairType),
			s.Sent,
			s.Received,
			itoa(s.DaysDiff),
		}
		if err := cw.Write(row); err != nil {
			return errors.ProcessingError(errors.CodeExportFailed, "write pair row", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WritePairSummariesJSON writes the netted pair rows as indented JSON.
func (w *Writer) WritePairSummariesJSON(out io.Writer, summaries []*transfer.PairSummary) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summaries); err != nil {
		return errors.ProcessingError(errors.CodeExportFailed, "encode pair summaries", err)
	}
	return nil
}

// WriteResultFiles writes the classified transactions and pair summaries
// to sibling files derived from basePath.
func (w *Writer) WriteResultFiles(basePath string, result *pipeline.Result, pairFormat string) error {
	txFile, err := os.Create(basePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, basePath, err)
	}
	defer txFile.Close()

	if err := w.WriteClassified(txFile, result.Transactions); err != nil {
		return err
	}

	pairPath := pairSiblingPath(basePath, pairFormat)
	pairFile, err := os.Create(pairPath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, pairPath, err)
	}
	defer pairFile.Close()

	if pairFormat == "json" {
		err = w.WritePairSummariesJSON(pairFile, result.Summaries)
	} else {
		err = w.WritePairSummariesCSV(pairFile, result.Summaries)
	}
	if err != nil {
		return err
	}

	w.log.WithFields(logger.Fields{
		"transactions": basePath,
		"pairs":        pairPath,
	}).Info("Reports written")

	return nil
}

func transactionRow(tx *models.Transaction) []string {
	balance := ""
	if tx.Balance != nil {
		balance = models.FormatAmount(*tx.Balance)
	}

	return []string{
		tx.Date.Format("2006-01-02"),
		models.FormatAmount(tx.Amount),
		tx.Description,
		tx.Account,
		tx.Institution,
		tx.TransactionID,
		tx.Category,
		balance,
	}
}
