// Package models defines the unified transaction schema shared by every
// stage of the pipeline: parsing, sign correction, deduplication,
// transfer-pair matching, classification and reporting.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account as debit (checking/savings) or credit.
type AccountType string

const (
	// AccountTypeDebit represents checking and savings accounts.
	AccountTypeDebit AccountType = "debit"
	// AccountTypeCredit represents credit-card accounts.
	AccountTypeCredit AccountType = "credit"
)

// String returns the string representation of AccountType.
func (a AccountType) String() string {
	return string(a)
}

// IsValid checks if the account type is valid.
func (a AccountType) IsValid() bool {
	return a == AccountTypeDebit || a == AccountTypeCredit
}

// Transaction is the unified record produced by the format-specific parsers.
//
// Amounts follow banking convention after sign correction: negative means
// money out, positive means money in, always rounded to 2 fractional digits.
// TransactionID is present for OFX/QFX sources and absent for most CSV/PDF
// sources; when present it is authoritative for identity. Category and
// Balance are optional carry-through fields not used in matching.
type Transaction struct {
	Date          time.Time        `json:"date" csv:"date"`
	Amount        decimal.Decimal  `json:"amount" csv:"amount"`
	Description   string           `json:"description" csv:"description"`
	Account       string           `json:"account" csv:"account"`
	Institution   string           `json:"institution" csv:"institution"`
	TransactionID string           `json:"transaction_id,omitempty" csv:"transaction_id"`
	Category      string           `json:"category,omitempty" csv:"category"`
	Balance       *decimal.Decimal `json:"balance,omitempty" csv:"balance"`
}

// NewTransaction creates a Transaction with the amount normalized to 2
// fractional digits and the date truncated to day granularity.
func NewTransaction(date time.Time, amount decimal.Decimal, description, account, institution string) *Transaction {
	return &Transaction{
		Date:        DateOnly(date),
		Amount:      amount.Round(2),
		Description: description,
		Account:     account,
		Institution: institution,
	}
}

// Validate performs basic validation on the Transaction.
func (t *Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if strings.TrimSpace(t.Account) == "" {
		return fmt.Errorf("transaction account cannot be empty")
	}

	if strings.TrimSpace(t.Institution) == "" {
		return fmt.Errorf("transaction institution cannot be empty")
	}

	return nil
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{Date: %s, Amount: %s, Description: %q, Account: %s/%s}",
		t.Date.Format("2006-01-02"), t.Amount.String(), t.Description, t.Institution, t.Account)
}

// Clone returns a copy of the transaction. Balance is copied by value so the
// clone shares no mutable state with the original.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Balance != nil {
		b := *t.Balance
		c.Balance = &b
	}
	return &c
}

// AccountKey identifies the real-world account a transaction belongs to.
// Institution is lower-cased so that "Chase" and "chase" map to one account.
func (t *Transaction) AccountKey() AccountKey {
	return AccountKey{
		Account:     t.Account,
		Institution: strings.ToLower(t.Institution),
	}
}

// HasTransactionID reports whether the externally supplied identifier is set.
func (t *Transaction) HasTransactionID() bool {
	return strings.TrimSpace(t.TransactionID) != ""
}

// AbsAmount returns the absolute value of the transaction amount.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// AccountKey is a (account, institution) pair identifying one real-world
// account. Two transactions with different keys are never automatically
// assumed identical.
type AccountKey struct {
	Account     string
	Institution string
}

// String returns a string representation of the AccountKey.
func (k AccountKey) String() string {
	return fmt.Sprintf("%s/%s", k.Institution, k.Account)
}

// AccountConfig holds the configured metadata for a single account.
type AccountConfig struct {
	AccountID   string      `yaml:"-"`
	Institution string      `yaml:"-"`
	AccountName string      `yaml:"account_name"`
	AccountType AccountType `yaml:"account_type"`
	Description string      `yaml:"description,omitempty"`
}

// EnrichedTransaction is a Transaction joined with account configuration.
// AccountName defaults to the raw account id and AccountType to debit when
// no configuration entry exists.
type EnrichedTransaction struct {
	Transaction
	AccountName string      `json:"account_name" csv:"account_name"`
	AccountType AccountType `json:"account_type" csv:"account_type"`
}

// DateOnly truncates a time to day granularity in UTC. Matching operates on
// calendar dates; time-of-day from source files is noise.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between two dates.
func DaysBetween(a, b time.Time) int {
	diff := DateOnly(a).Sub(DateOnly(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// CompareDatesWithTolerance compares two dates within a day tolerance.
func CompareDatesWithTolerance(a, b time.Time, toleranceDays int) bool {
	return DaysBetween(a, b) <= toleranceDays
}

// ParseDecimalFromString parses a decimal value from string, tolerating
// common currency formatting.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseAccountType parses and validates an account type from string,
// defaulting to debit for empty input.
func ParseAccountType(s string) (AccountType, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "", "debit":
		return AccountTypeDebit, nil
	case "credit":
		return AccountTypeCredit, nil
	default:
		return "", fmt.Errorf("invalid account type '%s': must be debit or credit", s)
	}
}

// ParseDateWithFormats attempts to parse a date from string using the common
// formats seen in statement exports.
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/06",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return DateOnly(t), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// FormatAmount renders an amount with exactly 2 fractional digits for the
// flat-CSV boundary.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
