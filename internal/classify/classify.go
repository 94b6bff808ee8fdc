// Package classify assigns a spending category to transactions that
// survive pairing. Credit and debit accounts read sign differently, so
// classification branches on the account type before it looks at
// keywords.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// Category is the classification assigned to an unpaired transaction.
type Category string

const (
	CategoryIncome           Category = "income"
	CategoryInternalTransfer Category = "internal_transfer"
	CategoryExternalTransfer Category = "external_transfer"
	CategorySpending         Category = "spending"
	CategoryRefund           Category = "refund"
)

// Patterns holds the keyword lists consulted during classification. All
// matching is case-insensitive substring containment against the raw
// description.
type Patterns struct {
	Internal          []string `json:"internal"`
	CreditCardPayment []string `json:"credit_card_payment"`
	External          []string `json:"external"`
	Income            []string `json:"income"`
	Refund            []string `json:"refund"`

	// CreditTransfer marks card-side rows that are transfers rather than
	// purchases or refunds.
	CreditTransfer []string `json:"credit_transfer"`
}

// DefaultPatterns returns the built-in keyword lists.
func DefaultPatterns() *Patterns {
	return &Patterns{
		Internal: []string{
			"transfer to ",
			"transfer from ",
			"to pocket",
			"from pocket",
			"deposit transfer from",
			"withdrawal transfer to",
		},
		CreditCardPayment: []string{
			"payment thank you",
			"payment received",
			"payment transaction",
			"cardpymt",
			"applecard gsbank payment",
			"gsbank payment",
		},
		External: []string{
			"olb external transfer",
			"external transfer",
		},
		Income: []string{
			"deposit moodys analytics",
			"deposit moodys investor",
			"deposit risk management",
			"deposit microsoft",
			"deposit payroll",
			"deposit real property",
			"dividend",
			"deposit paid leave",
		},
		Refund: []string{
			"refund",
			"credit",
			"return",
			"reversal",
			"cashback",
			"cash back",
		},
		CreditTransfer: []string{
			"payment transaction",
			"deposit internet transfer",
			"transfer",
		},
	}
}

// largeCreditThreshold separates card payments from merchant refunds when
// a positive card-side row matches a payment pattern. Refunds above this
// are rare; payments below it are rarer.
var largeCreditThreshold = decimal.NewFromInt(100)

// Classifier assigns categories to enriched transactions.
type Classifier struct {
	patterns *Patterns
	log      logger.Logger
}

// NewClassifier creates a classifier. A nil patterns argument falls back
// to the defaults.
func NewClassifier(patterns *Patterns) *Classifier {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Classifier{
		patterns: patterns,
		log:      logger.WithComponent("classifier"),
	}
}

// Classify assigns a category to a single transaction.
//
// Transfer-shaped descriptions win regardless of sign. After that the
// rules split by account type: on credit accounts every negative is card
// spending and positives split between unpaired card payments and
// merchant refunds; on debit accounts negatives are always spending (the
// sign beats keyword content, so a "PAYSEND Credit" purchase never reads
// as income) and positives consult the income and refund allow-lists.
func (c *Classifier) Classify(tx *models.EnrichedTransaction) Category {
	description := strings.ToLower(tx.Description)

	if containsAny(description, c.patterns.Internal) {
		return CategoryInternalTransfer
	}
	if containsAny(description, c.patterns.CreditCardPayment) {
		return CategoryInternalTransfer
	}
	if containsAny(description, c.patterns.External) {
		return CategoryExternalTransfer
	}

	if tx.AccountType == models.AccountTypeCredit {
		return c.classifyCredit(tx, description)
	}
	return c.classifyDebit(tx, description)
}

func (c *Classifier) classifyCredit(tx *models.EnrichedTransaction, description string) Category {
	if containsAny(description, c.patterns.CreditTransfer) {
		return CategoryInternalTransfer
	}

	if tx.Amount.IsNegative() {
		return CategorySpending
	}

	// A large positive on a card that looks like a payment is an unpaired
	// card payment leg; a small one is a merchant refund.
	if tx.Amount.GreaterThan(largeCreditThreshold) && containsAny(description, c.patterns.CreditCardPayment) {
		return CategoryInternalTransfer
	}
	return CategoryRefund
}

func (c *Classifier) classifyDebit(tx *models.EnrichedTransaction, description string) Category {
	if tx.Amount.IsNegative() {
		return CategorySpending
	}

	if containsAny(description, c.patterns.Income) {
		return CategoryIncome
	}
	// Positive deposits outside the income allow-list read as refunds
	// whether or not a refund keyword is present; unattributed credits
	// must never inflate income.
	return CategoryRefund
}

// ClassifyBatch classifies every transaction and returns the categories
// in input order alongside per-category counts.
func (c *Classifier) ClassifyBatch(transactions []*models.EnrichedTransaction) ([]Category, map[Category]int) {
	categories := make([]Category, len(transactions))
	counts := make(map[Category]int)

	for i, tx := range transactions {
		category := c.Classify(tx)
		categories[i] = category
		counts[category]++
	}

	c.log.WithFields(logger.Fields{
		"total":    len(transactions),
		"income":   counts[CategoryIncome],
		"spend":    counts[CategorySpending],
		"refund":   counts[CategoryRefund],
		"transfer": counts[CategoryInternalTransfer] + counts[CategoryExternalTransfer],
	}).Debug("Batch classification completed")

	return categories, counts
}

func containsAny(description string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}
