// Package parsers reads the unified transaction CSV format produced by
// the per-institution statement importers.
package parsers

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// columnAliases maps header spellings seen in the wild onto canonical
// column names.
var columnAliases = map[string]string{
	"date":             "date",
	"transaction date": "date",
	"posted date":      "date",
	"amount":           "amount",
	"description":      "description",
	"memo":             "description",
	"account":          "account",
	"account id":       "account",
	"account_id":       "account",
	"institution":      "institution",
	"bank":             "institution",
	"transaction_id":   "transaction_id",
	"transaction id":   "transaction_id",
	"txn id":           "transaction_id",
	"id":               "transaction_id",
	"category":         "category",
	"balance":          "balance",
	"running balance":  "balance",
	"account_name":     "account_name",
	"account_type":     "account_type",
}

// requiredColumns are the columns a unified CSV must carry.
var requiredColumns = []string{"date", "amount", "description", "account", "institution"}

// ParserConfig controls how strictly the reader treats malformed rows.
type ParserConfig struct {
	// SkipInvalidRows logs and drops unparsable rows instead of failing
	// the whole file.
	SkipInvalidRows bool `json:"skip_invalid_rows"`

	// DefaultInstitution fills the institution column when the file omits
	// it, keyed off the file naming convention upstream.
	DefaultInstitution string `json:"default_institution"`
}

// DefaultParserConfig returns a strict configuration.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipInvalidRows:    false,
		DefaultInstitution: "",
	}
}

// ParseStats reports what a parse run consumed and dropped.
type ParseStats struct {
	TotalRows   int `json:"total_rows"`
	ParsedRows  int `json:"parsed_rows"`
	SkippedRows int `json:"skipped_rows"`
}

// UnifiedParser reads unified-format transaction CSVs.
type UnifiedParser struct {
	config *ParserConfig
	log    logger.Logger
}

// NewUnifiedParser creates a parser. A nil configuration falls back to
// the strict defaults.
func NewUnifiedParser(config *ParserConfig) *UnifiedParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &UnifiedParser{
		config: config,
		log:    logger.WithComponent("unified_parser"),
	}
}

// ParseFile reads all transactions from the CSV file at path.
func (p *UnifiedParser) ParseFile(path string) ([]*models.Transaction, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer file.Close()

	return p.Parse(file, path)
}

// Parse reads all transactions from r. The name argument is used only in
// error messages and logs.
func (p *UnifiedParser) Parse(r io.Reader, name string) ([]*models.Transaction, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.ParseError(errors.CodeInvalidFormat, name, 1, "", "", err).
			WithSuggestion("Ensure the file starts with a header row")
	}

	columns, err := p.mapColumns(header, name)
	if err != nil {
		return nil, nil, err
	}

	var transactions []*models.Transaction
	stats := &ParseStats{}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if p.config.SkipInvalidRows {
				p.log.WithFields(logger.Fields{"file": name, "line": line}).
					WithError(err).Warn("Skipping malformed CSV row")
				stats.TotalRows++
				stats.SkippedRows++
				continue
			}
			return nil, nil, errors.ParseError(errors.CodeInvalidFormat, name, line, "", "", err)
		}

		stats.TotalRows++
		tx, err := p.parseRow(record, columns, name, line)
		if err != nil {
			if p.config.SkipInvalidRows {
				p.log.WithFields(logger.Fields{"file": name, "line": line}).
					WithError(err).Warn("Skipping invalid transaction row")
				stats.SkippedRows++
				continue
			}
			return nil, nil, err
		}

		transactions = append(transactions, tx)
		stats.ParsedRows++
	}

	p.log.WithFields(logger.Fields{
		"file":    name,
		"parsed":  stats.ParsedRows,
		"skipped": stats.SkippedRows,
	}).Info("Parsed unified transaction file")

	return transactions, stats, nil
}

// mapColumns resolves the header into canonical column positions.
func (p *UnifiedParser) mapColumns(header []string, name string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, raw := range header {
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			continue
		}
		if _, exists := columns[canonical]; !exists {
			columns[canonical] = i
		}
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			if required == "institution" && p.config.DefaultInstitution != "" {
				continue
			}
			return nil, errors.ParseError(errors.CodeMissingColumn, name, 1, required, "", nil)
		}
	}

	return columns, nil
}

func (p *UnifiedParser) parseRow(record []string, columns map[string]int, name string, line int) (*models.Transaction, error) {
	field := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := models.ParseDateWithFormats(field("date"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, name, line, "date", field("date"), err)
	}

	amount, err := models.ParseDecimalFromString(field("amount"))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidData, name, line, "amount", field("amount"), err)
	}

	institution := field("institution")
	if institution == "" {
		institution = p.config.DefaultInstitution
	}

	tx := &models.Transaction{
		Date:          date,
		Amount:        amount.Round(2),
		Description:   field("description"),
		Account:       field("account"),
		Institution:   institution,
		TransactionID: field("transaction_id"),
		Category:      field("category"),
	}

	if raw := field("balance"); raw != "" {
		balance, err := models.ParseDecimalFromString(raw)
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidData, name, line, "balance", raw, err)
		}
		rounded := balance.Round(2)
		tx.Balance = &rounded
	}

	if err := tx.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidData, "transaction", tx.String(), err)
	}

	return tx, nil
}

// ParseEnrichedFile reads a file that was previously exported with
// account_name and account_type columns, preserving them on round-trip.
// Files without those columns fall back to the enrichment defaults.
func (p *UnifiedParser) ParseEnrichedFile(path string) ([]*models.EnrichedTransaction, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.ParseError(errors.CodeInvalidFormat, path, 1, "", "", err).
			WithSuggestion("Ensure the file starts with a header row")
	}

	columns, err := p.mapColumns(header, path)
	if err != nil {
		return nil, nil, err
	}

	var enriched []*models.EnrichedTransaction
	stats := &ParseStats{}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if p.config.SkipInvalidRows {
				stats.TotalRows++
				stats.SkippedRows++
				continue
			}
			return nil, nil, errors.ParseError(errors.CodeInvalidFormat, path, line, "", "", err)
		}

		stats.TotalRows++
		tx, err := p.parseRow(record, columns, path, line)
		if err != nil {
			if p.config.SkipInvalidRows {
				p.log.WithFields(logger.Fields{"file": path, "line": line}).
					WithError(err).Warn("Skipping invalid transaction row")
				stats.SkippedRows++
				continue
			}
			return nil, nil, err
		}

		row := &models.EnrichedTransaction{
			Transaction: *tx,
			AccountName: tx.Account,
			AccountType: models.AccountTypeDebit,
		}
		if idx, ok := columns["account_name"]; ok && idx < len(record) {
			if name := strings.TrimSpace(record[idx]); name != "" {
				row.AccountName = name
			}
		}
		if idx, ok := columns["account_type"]; ok && idx < len(record) {
			if accountType, err := models.ParseAccountType(record[idx]); err == nil {
				row.AccountType = accountType
			}
		}

		enriched = append(enriched, row)
		stats.ParsedRows++
	}

	return enriched, stats, nil
}
