// Package transfer identifies pairs of transactions that represent money
// moving between the user's own accounts: credit-card payment cycles and
// generic internal transfers. Paired legs are netted so internal movement
// never double-counts in summaries.
package transfer

import (
	"time"

	"github.com/ufian/kiro-budget/pkg/errors"
)

// InstitutionPattern matches a transaction when its institution contains
// Institution and its description contains Description, both
// case-insensitively.
type InstitutionPattern struct {
	Institution string `json:"institution"`
	Description string `json:"description"`
}

// PairPatterns holds the allow-lists that drive both matching passes.
type PairPatterns struct {
	// PaymentReceived matches positive-amount "payment received" rows on
	// credit cards.
	PaymentReceived []InstitutionPattern `json:"payment_received"`

	// PaymentSent matches negative-amount card-payment withdrawals on the
	// funding accounts.
	PaymentSent []InstitutionPattern `json:"payment_sent"`

	// OutgoingKeywords mark negative-amount generic transfer legs.
	OutgoingKeywords []string `json:"outgoing_keywords"`

	// IncomingKeywords mark positive-amount generic transfer legs.
	IncomingKeywords []string `json:"incoming_keywords"`
}

// DefaultPairPatterns returns the built-in allow-lists.
func DefaultPairPatterns() *PairPatterns {
	return &PairPatterns{
		PaymentReceived: []InstitutionPattern{
			{Institution: "chase", Description: "payment thank you"},
			{Institution: "gemini", Description: "payment transaction"},
			{Institution: "apple", Description: "deposit internet transfer fr"},
		},
		PaymentSent: []InstitutionPattern{
			{Institution: "firsttech", Description: "applecard gsbank payment"},
			{Institution: "firsttech", Description: "chase credit crd epay"},
			{Institution: "discover", Description: "gemini cardpymt"},
		},
		OutgoingKeywords: []string{
			"withdrawal transfer to",
			"transfer to",
			"outgoing transfer",
			"wire out",
			"descriptive withdrawal p2p transfer",
			"p2p transfer",
			"zelle sent",
			"zelle payment to",
		},
		IncomingKeywords: []string{
			"deposit transfer from",
			"transfer from",
			"incoming transfer",
			"wire in",
			"zelle payment from",
			"zelle received",
			"zelle deposit",
		},
	}
}

// MatcherConfig holds the tolerances and pattern sets for pair matching.
type MatcherConfig struct {
	// CreditCardMaxDays bounds the lag between the sent and received legs
	// of a card-payment pair.
	CreditCardMaxDays int `json:"credit_card_max_days"`

	// InternalMaxDays bounds the lag between the legs of a generic
	// internal transfer.
	InternalMaxDays int `json:"internal_max_days"`

	// UseBusinessDays counts only Monday-Friday days toward the internal
	// transfer lag window. Calendar-day tolerance is looser near weekends;
	// the two must not be conflated.
	UseBusinessDays bool `json:"use_business_days"`

	Patterns *PairPatterns `json:"patterns"`
}

// DefaultMatcherConfig returns a configuration with sensible defaults.
func DefaultMatcherConfig() *MatcherConfig {
	return &MatcherConfig{
		CreditCardMaxDays: 7,
		InternalMaxDays:   3,
		UseBusinessDays:   false,
		Patterns:          DefaultPairPatterns(),
	}
}

// Validate checks if the matcher configuration is valid.
func (c *MatcherConfig) Validate() error {
	if c.CreditCardMaxDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"credit_card_max_days", c.CreditCardMaxDays, nil)
	}

	if c.InternalMaxDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"internal_max_days", c.InternalMaxDays, nil)
	}

	if c.Patterns == nil {
		return errors.ConfigurationError(errors.CodeMissingConfig,
			"patterns", nil, nil)
	}

	return nil
}

// Clone creates a deep copy of the matcher configuration.
func (c *MatcherConfig) Clone() *MatcherConfig {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Patterns != nil {
		patterns := *c.Patterns
		patterns.PaymentReceived = append([]InstitutionPattern(nil), c.Patterns.PaymentReceived...)
		patterns.PaymentSent = append([]InstitutionPattern(nil), c.Patterns.PaymentSent...)
		patterns.OutgoingKeywords = append([]string(nil), c.Patterns.OutgoingKeywords...)
		patterns.IncomingKeywords = append([]string(nil), c.Patterns.IncomingKeywords...)
		clone.Patterns = &patterns
	}
	return &clone
}

// IsBusinessDay reports whether the date falls on Monday through Friday.
func IsBusinessDay(date time.Time) bool {
	weekday := date.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}

// BusinessDaysBetween counts the business days from the earlier to the
// later of the two dates, inclusive of both endpoints.
func BusinessDaysBetween(a, b time.Time) int {
	if a.After(b) {
		a, b = b, a
	}

	count := 0
	for current := a; !current.After(b); current = current.AddDate(0, 0, 1) {
		if IsBusinessDay(current) {
			count++
		}
	}
	return count
}
