// Package signdetect decides, per source file, whether transaction amounts
// follow banking convention (spending negative, income positive) or the
// inverted credit-card convention, and corrects the latter by flipping every
// amount in the file. The decision is all-or-nothing: either the whole file
// is flipped or the whole file is left untouched.
package signdetect

import (
	"regexp"
	"strings"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// Convention identifies the sign convention detected for a file.
type Convention string

const (
	ConventionBanking    Convention = "banking"
	ConventionCreditCard Convention = "credit_card"
	ConventionMixed      Convention = "mixed"
	ConventionUnknown    Convention = "unknown"
)

// txnKind is the keyword classification of a single description.
type txnKind int

const (
	kindUnknown txnKind = iota
	kindSpending
	kindIncome
	kindTransferOut
	kindTransferIn
)

// KeywordSet holds the description keyword lists used for classification.
// Transfer keywords are checked before income, income before spending; the
// first match wins.
type KeywordSet struct {
	Spending          []string
	Income            []string
	TransferOut       []string
	TransferIn        []string
	CreditCardPayment []string
}

// DefaultKeywordSet returns the built-in keyword lists.
func DefaultKeywordSet() *KeywordSet {
	return &KeywordSet{
		Spending: []string{
			"purchase", "fee", "interest", "charge", "penalty", "late",
			"withdrawal", "atm", "pos", "debit", "bill", "subscription", "grocery",
			"restaurant", "gas", "fuel", "shopping", "store", "market", "pharmacy",
			"medical", "insurance", "rent", "mortgage", "loan", "tax", "fine",
		},
		Income: []string{
			"deposit", "credit", "refund", "return", "cashback", "reward", "rebate",
			"salary", "payroll", "dividend", "interest earned", "bonus", "transfer in",
			"incoming", "received", "thank you", "adjustment credit", "reversal",
		},
		TransferOut: []string{
			"transfer to", "transfer out", "outgoing transfer", "wire out", "send",
			"transfer debit",
		},
		TransferIn: []string{
			"transfer from", "transfer in", "incoming transfer", "wire in", "receive",
			"transfer credit", "deposit from",
		},
		CreditCardPayment: []string{
			"credit crd epay", "credit card epay", "cardpymt", "card payment",
			"gsbank payment", "applecard gsbank", "chase credit", "discover payment",
		},
	}
}

// Analysis describes the sign convention detected for a file.
type Analysis struct {
	Convention            Convention `json:"convention"`
	Confidence            float64    `json:"confidence"`
	SpendingPositiveRatio float64    `json:"spending_positive_ratio"`
	IncomePositiveRatio   float64    `json:"income_positive_ratio"`
	TotalTransactions     int        `json:"total_transactions"`
	SpendingCount         int        `json:"spending_count"`
	IncomeCount           int        `json:"income_count"`
}

// ShouldFlip reports whether the whole file's signs must be inverted.
// Only a confidently detected credit-card convention triggers a flip.
func (a Analysis) ShouldFlip() bool {
	return a.Convention == ConventionCreditCard && a.Confidence >= 0.5
}

// minSampleSize is the minimum number of classified transactions required
// to attempt convention detection.
const minSampleSize = 3

// Detector analyzes files of transactions and corrects their signs.
type Detector struct {
	keywords *KeywordSet
	// shortSpending holds word-boundary matchers for spending keywords of
	// up to 3 characters, where plain substring containment would produce
	// accidental hits ("pos" inside "deposit").
	shortSpending map[string]*regexp.Regexp
	log           logger.Logger
}

// NewDetector creates a detector with the given keyword set, or the default
// set when nil.
func NewDetector(keywords *KeywordSet) *Detector {
	if keywords == nil {
		keywords = DefaultKeywordSet()
	}

	shortSpending := make(map[string]*regexp.Regexp)
	for _, keyword := range keywords.Spending {
		if len(keyword) <= 3 {
			shortSpending[keyword] = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
		}
	}

	return &Detector{
		keywords:      keywords,
		shortSpending: shortSpending,
		log:           logger.WithComponent("signdetect"),
	}
}

// AnalyzeFile analyzes a single file's transactions to determine the sign
// convention used. Insufficient data degrades to ConventionUnknown with zero
// confidence; it never fails.
func (d *Detector) AnalyzeFile(transactions []*models.Transaction) Analysis {
	analysis := Analysis{
		Convention:        ConventionUnknown,
		TotalTransactions: len(transactions),
	}
	if len(transactions) == 0 {
		return analysis
	}

	var spendingPositive, incomePositive int
	for _, tx := range transactions {
		switch d.classifyKind(tx.Description) {
		case kindSpending:
			analysis.SpendingCount++
			if tx.Amount.IsPositive() {
				spendingPositive++
			}
		case kindIncome:
			analysis.IncomeCount++
			if tx.Amount.IsPositive() {
				incomePositive++
			}
		}
	}

	if analysis.SpendingCount > 0 {
		analysis.SpendingPositiveRatio = float64(spendingPositive) / float64(analysis.SpendingCount)
	}
	if analysis.IncomeCount > 0 {
		analysis.IncomePositiveRatio = float64(incomePositive) / float64(analysis.IncomeCount)
	}

	analysis.Convention, analysis.Confidence = determineConvention(
		analysis.SpendingPositiveRatio, analysis.IncomePositiveRatio,
		analysis.SpendingCount, analysis.IncomeCount,
	)

	return analysis
}

// CorrectSigns returns the file's transactions with signs corrected to
// banking convention, together with the analysis that drove the decision.
// Inputs are never mutated; when a flip is required every transaction is
// cloned with its amount negated.
func (d *Detector) CorrectSigns(transactions []*models.Transaction) ([]*models.Transaction, Analysis) {
	analysis := d.AnalyzeFile(transactions)
	if len(transactions) == 0 {
		return transactions, analysis
	}

	if !analysis.ShouldFlip() {
		d.log.Debugf("keeping original signs for %d transactions (%s convention, %.2f confidence)",
			len(transactions), analysis.Convention, analysis.Confidence)
		return transactions, analysis
	}

	d.log.Infof("flipping signs for all %d transactions (%s convention, %.2f confidence)",
		len(transactions), analysis.Convention, analysis.Confidence)

	flipped := make([]*models.Transaction, len(transactions))
	for i, tx := range transactions {
		c := tx.Clone()
		c.Amount = c.Amount.Neg()
		flipped[i] = c
	}
	return flipped, analysis
}

// classifyKind classifies a description by ordered keyword-set membership.
// Transfer keywords are the most specific and win first; credit-card payment
// patterns count as transfers out of the funding account.
func (d *Detector) classifyKind(description string) txnKind {
	if description == "" {
		return kindUnknown
	}

	desc := strings.ToLower(description)

	for _, keyword := range d.keywords.TransferOut {
		if strings.Contains(desc, keyword) {
			return kindTransferOut
		}
	}

	for _, keyword := range d.keywords.TransferIn {
		if strings.Contains(desc, keyword) {
			return kindTransferIn
		}
	}

	for _, keyword := range d.keywords.CreditCardPayment {
		if strings.Contains(desc, keyword) {
			return kindTransferOut
		}
	}

	for _, keyword := range d.keywords.Income {
		if strings.Contains(desc, keyword) {
			return kindIncome
		}
	}

	for _, keyword := range d.keywords.Spending {
		if re, ok := d.shortSpending[keyword]; ok {
			if re.MatchString(desc) {
				return kindSpending
			}
		} else if strings.Contains(desc, keyword) {
			return kindSpending
		}
	}

	return kindUnknown
}

// determineConvention maps the observed sign ratios to a convention and a
// confidence score. Threshold tiers apply in priority order: strong
// indicators, moderate indicators, then mixed/unknown fallbacks.
func determineConvention(spendingPositiveRatio, incomePositiveRatio float64, spendingCount, incomeCount int) (Convention, float64) {
	totalClassified := spendingCount + incomeCount
	if totalClassified < minSampleSize {
		return ConventionUnknown, 0.0
	}

	if spendingPositiveRatio <= 0.2 && incomePositiveRatio >= 0.8 &&
		spendingCount >= 2 && incomeCount >= 1 {
		return ConventionBanking, strongConfidence(totalClassified)
	}

	if spendingPositiveRatio >= 0.8 && incomePositiveRatio <= 0.2 &&
		spendingCount >= 2 && incomeCount >= 1 {
		return ConventionCreditCard, strongConfidence(totalClassified)
	}

	if spendingPositiveRatio <= 0.3 && incomePositiveRatio >= 0.6 {
		return ConventionBanking, moderateConfidence(totalClassified)
	}

	if spendingPositiveRatio >= 0.7 && incomePositiveRatio <= 0.4 {
		return ConventionCreditCard, moderateConfidence(totalClassified)
	}

	if abs(spendingPositiveRatio-0.5) < 0.3 || abs(incomePositiveRatio-0.5) < 0.3 {
		return ConventionMixed, 0.2
	}

	return ConventionUnknown, 0.1
}

func strongConfidence(classified int) float64 {
	return min(0.9, 0.4+float64(classified)/15)
}

func moderateConfidence(classified int) float64 {
	return min(0.7, 0.3+float64(classified)/20)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
