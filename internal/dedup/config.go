// Package dedup implements duplicate transaction detection and merging.
//
// Transactions are grouped by signature: an exact key when a trusted
// transaction ID is present, or a content hash of amount, normalized
// description and account otherwise. Fuzzy signatures deliberately exclude
// the date, so a second date-proximity clustering pass splits groups whose
// members are genuinely different events (a recurring subscription charge,
// for example) before any merging happens.
package dedup

import (
	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/pkg/errors"
)

// DetectorConfig holds the tolerances for fuzzy duplicate matching.
type DetectorConfig struct {
	// DateToleranceDays is the maximum day gap between two same-signature
	// transactions still considered one event. The default of 3 absorbs the
	// posting-date vs transaction-date skew between statement sources.
	DateToleranceDays int `json:"date_tolerance_days"`

	// AmountTolerance is the absolute amount difference allowed by the
	// pairwise matching oracle.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`
}

// DefaultDetectorConfig returns a configuration with sensible defaults.
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		DateToleranceDays: 3,
		AmountTolerance:   decimal.NewFromFloat(0.01),
	}
}

// Validate checks if the detector configuration is valid.
func (c *DetectorConfig) Validate() error {
	if c.DateToleranceDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"date_tolerance_days", c.DateToleranceDays, nil)
	}

	if c.AmountTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"amount_tolerance", c.AmountTolerance.String(), nil)
	}

	return nil
}

// Clone creates a copy of the detector configuration.
func (c *DetectorConfig) Clone() *DetectorConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
