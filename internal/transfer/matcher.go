package transfer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// PairType identifies the kind of movement a matched pair represents.
type PairType string

const (
	PairTypeCreditCardPayment PairType = "credit_card_payment"
	PairTypeInternalTransfer  PairType = "internal_transfer"
)

// Pair links the sent and received legs of a single internal movement.
type Pair struct {
	Type     PairType                    `json:"type"`
	Sent     *models.EnrichedTransaction `json:"sent"`
	Received *models.EnrichedTransaction `json:"received"`
	DaysDiff int                         `json:"days_diff"`
}

// PairSummary is the single synthetic row a pair collapses into for
// reporting. A card payment nets to the funding-account outflow; a
// same-amount internal transfer nets to zero.
type PairSummary struct {
	Date        string          `json:"date"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Description string          `json:"description"`
	Account     string          `json:"account"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	Institution string          `json:"institution"`
	PairType    PairType        `json:"pair_type"`
	Sent        string          `json:"sent"`
	Received    string          `json:"received"`
	DaysDiff    int             `json:"days_diff"`
}

// MatchResult holds the outcome of a matching run.
type MatchResult struct {
	Pairs     []*Pair                       `json:"pairs"`
	Summaries []*PairSummary                `json:"summaries"`
	Unpaired  []*models.EnrichedTransaction `json:"unpaired"`
}

// Stats summarizes a matching run for logging and reports.
type Stats struct {
	TotalInput         int `json:"total_input"`
	CreditCardPairs    int `json:"credit_card_pairs"`
	InternalPairs      int `json:"internal_pairs"`
	UnpairedRemaining  int `json:"unpaired_remaining"`
	TransactionsPaired int `json:"transactions_paired"`
}

// Matcher finds credit-card payment and internal transfer pairs.
type Matcher struct {
	config *MatcherConfig
	log    logger.Logger
}

// NewMatcher creates a matcher with the given configuration. A nil
// configuration falls back to defaults.
func NewMatcher(config *MatcherConfig) *Matcher {
	if config == nil {
		config = DefaultMatcherConfig()
	}

	return &Matcher{
		config: config,
		log:    logger.WithComponent("transfer_matcher"),
	}
}

// MatchPairs runs both passes over the transactions. The credit-card pass
// runs first so card payments are never misread as generic transfers, then
// the internal pass runs over whatever remains. Every transaction lands in
// exactly one pair or in Unpaired.
func (m *Matcher) MatchPairs(transactions []*models.EnrichedTransaction) (*MatchResult, *Stats) {
	consumed := make(map[int]bool)

	ccPairs := m.findCreditCardPairs(transactions, consumed)
	internalPairs := m.findInternalPairs(transactions, consumed)

	pairs := append(ccPairs, internalPairs...)
	summaries := make([]*PairSummary, 0, len(pairs))
	for _, pair := range pairs {
		summaries = append(summaries, m.summarize(pair))
	}

	unpaired := make([]*models.EnrichedTransaction, 0, len(transactions)-2*len(pairs))
	for i, tx := range transactions {
		if !consumed[i] {
			unpaired = append(unpaired, tx)
		}
	}

	stats := &Stats{
		TotalInput:         len(transactions),
		CreditCardPairs:    len(ccPairs),
		InternalPairs:      len(internalPairs),
		UnpairedRemaining:  len(unpaired),
		TransactionsPaired: 2 * len(pairs),
	}

	m.log.WithFields(logger.Fields{
		"total_input":        stats.TotalInput,
		"credit_card_pairs":  stats.CreditCardPairs,
		"internal_pairs":     stats.InternalPairs,
		"unpaired_remaining": stats.UnpairedRemaining,
	}).Info("Pair matching completed")

	return &MatchResult{Pairs: pairs, Summaries: summaries, Unpaired: unpaired}, stats
}

// findCreditCardPairs greedily matches payment-received rows on the cards
// against card-payment withdrawals. The received rows drive the pass in
// input order, each claiming the lowest-scoring unmatched sent row, so
// when two card credits compete for one withdrawal the earlier row wins.
func (m *Matcher) findCreditCardPairs(transactions []*models.EnrichedTransaction, consumed map[int]bool) []*Pair {
	receivedIdx := m.collectCandidates(transactions, consumed, func(tx *models.EnrichedTransaction) bool {
		return tx.Amount.IsPositive() && matchesAnyPattern(tx, m.config.Patterns.PaymentReceived)
	})
	sentIdx := m.collectCandidates(transactions, consumed, func(tx *models.EnrichedTransaction) bool {
		return tx.Amount.IsNegative() && matchesAnyPattern(tx, m.config.Patterns.PaymentSent)
	})

	var pairs []*Pair
	for _, ri := range receivedIdx {
		if consumed[ri] {
			continue
		}
		received := transactions[ri]

		bestIdx := -1
		bestScore := 0
		for _, si := range sentIdx {
			if consumed[si] {
				continue
			}
			sent := transactions[si]

			daysDiff := models.DaysBetween(sent.Date, received.Date)
			if daysDiff > m.config.CreditCardMaxDays {
				continue
			}

			score, ok := m.scoreCreditCardPair(sent, received, daysDiff)
			if !ok {
				continue
			}
			if bestIdx == -1 || score < bestScore {
				bestIdx, bestScore = si, score
			}
		}

		if bestIdx == -1 {
			continue
		}

		consumed[ri] = true
		consumed[bestIdx] = true
		sent := transactions[bestIdx]
		pairs = append(pairs, &Pair{
			Type:     PairTypeCreditCardPayment,
			Sent:     sent,
			Received: received,
			DaysDiff: models.DaysBetween(sent.Date, received.Date),
		})
	}

	return pairs
}

// scoreCreditCardPair scores a candidate pairing. Lower is better. Card
// payments can differ slightly between the funding and card sides
// (interest, pending adjustments), so amounts within 10 percent are still
// eligible at a penalty. Larger gaps are rejected.
func (m *Matcher) scoreCreditCardPair(sent, received *models.EnrichedTransaction, daysDiff int) (int, bool) {
	sentAmt := sent.AbsAmount()
	recvAmt := received.AbsAmount()

	score := daysDiff
	if !sentAmt.Equal(recvAmt) {
		larger := decimal.Max(sentAmt, recvAmt)
		if larger.IsZero() {
			return 0, false
		}
		ratio, _ := sentAmt.Sub(recvAmt).Abs().Div(larger).Float64()
		switch {
		case ratio < 0.05:
			score += 10
		case ratio < 0.10:
			score += 20
		default:
			return 0, false
		}
	}
	return score, true
}

// findInternalPairs matches generic transfers between the user's own
// accounts. Amounts must match exactly and the legs must sit on different
// accounts.
func (m *Matcher) findInternalPairs(transactions []*models.EnrichedTransaction, consumed map[int]bool) []*Pair {
	outgoingIdx := m.collectCandidates(transactions, consumed, func(tx *models.EnrichedTransaction) bool {
		return tx.Amount.IsNegative() && matchesAnyKeyword(tx, m.config.Patterns.OutgoingKeywords)
	})
	incomingIdx := m.collectCandidates(transactions, consumed, func(tx *models.EnrichedTransaction) bool {
		return tx.Amount.IsPositive() && matchesAnyKeyword(tx, m.config.Patterns.IncomingKeywords)
	})

	var pairs []*Pair
	for _, oi := range outgoingIdx {
		if consumed[oi] {
			continue
		}
		outgoing := transactions[oi]

		bestIdx := -1
		bestDays := 0
		for _, ii := range incomingIdx {
			if consumed[ii] {
				continue
			}
			incoming := transactions[ii]

			if !outgoing.AbsAmount().Equal(incoming.AbsAmount()) {
				continue
			}
			if sameAccount(outgoing, incoming) {
				continue
			}

			days := m.lagDays(outgoing, incoming)
			if days > m.config.InternalMaxDays {
				continue
			}
			if bestIdx == -1 || days < bestDays {
				bestIdx, bestDays = ii, days
			}
		}

		if bestIdx == -1 {
			continue
		}

		consumed[oi] = true
		consumed[bestIdx] = true
		incoming := transactions[bestIdx]
		pairs = append(pairs, &Pair{
			Type:     PairTypeInternalTransfer,
			Sent:     outgoing,
			Received: incoming,
			// Report the same lag measure that admitted the pair, so a
			// business-day match never shows a longer calendar gap.
			DaysDiff: bestDays,
		})
	}

	return pairs
}

// lagDays measures the gap between the legs using the configured day
// convention.
func (m *Matcher) lagDays(a, b *models.EnrichedTransaction) int {
	if m.config.UseBusinessDays {
		// Inclusive endpoint count, so same-day legs report 1. Subtract
		// one to express it as a lag comparable to calendar days.
		days := BusinessDaysBetween(a.Date, b.Date) - 1
		if days < 0 {
			days = 0
		}
		return days
	}
	return models.DaysBetween(a.Date, b.Date)
}

// collectCandidates returns indices of unconsumed transactions satisfying
// the predicate, in input order. Matching is first-come-first-served over
// the input, so the order is part of the contract, not an accident.
func (m *Matcher) collectCandidates(transactions []*models.EnrichedTransaction, consumed map[int]bool, match func(*models.EnrichedTransaction) bool) []int {
	var idx []int
	for i, tx := range transactions {
		if consumed[i] || tx == nil {
			continue
		}
		if match(tx) {
			idx = append(idx, i)
		}
	}
	return idx
}

// summarize collapses a pair into its reporting row. The row is dated and
// attributed to the sent leg, since that is when the money actually left.
func (m *Matcher) summarize(pair *Pair) *PairSummary {
	sent, received := pair.Sent, pair.Received

	summary := &PairSummary{
		Date:        sent.Date.Format("2006-01-02"),
		Account:     sent.Account,
		AccountName: sent.AccountName,
		AccountType: string(sent.AccountType),
		PairType:    pair.Type,
		Sent:        sent.Description,
		Received:    received.Description,
		DaysDiff:    pair.DaysDiff,
	}

	switch pair.Type {
	case PairTypeCreditCardPayment:
		// The card-side credit only cancels existing card debt; the real
		// cash movement is the funding-account withdrawal.
		summary.NetAmount = sent.Amount
		summary.Description = fmt.Sprintf("Credit Card Payment: %s <-> %s", sent.Description, received.Description)
		summary.Institution = fmt.Sprintf("%s -> %s", sent.Institution, received.Institution)
	case PairTypeInternalTransfer:
		summary.NetAmount = decimal.Zero
		summary.Description = fmt.Sprintf("Internal Transfer: %s <-> %s", sent.Description, received.Description)
		summary.Institution = sent.Institution
	}

	return summary
}

// matchesAnyPattern reports whether the transaction's institution and
// description both contain one of the pattern entries, case-insensitively.
func matchesAnyPattern(tx *models.EnrichedTransaction, patterns []InstitutionPattern) bool {
	institution := strings.ToLower(tx.Institution)
	description := strings.ToLower(tx.Description)
	for _, p := range patterns {
		if strings.Contains(institution, strings.ToLower(p.Institution)) &&
			strings.Contains(description, strings.ToLower(p.Description)) {
			return true
		}
	}
	return false
}

// matchesAnyKeyword reports whether the description contains any keyword,
// case-insensitively.
func matchesAnyKeyword(tx *models.EnrichedTransaction, keywords []string) bool {
	description := strings.ToLower(tx.Description)
	for _, kw := range keywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// sameAccount reports whether both legs sit on the same account at the
// same institution.
func sameAccount(a, b *models.EnrichedTransaction) bool {
	return a.Account == b.Account && strings.EqualFold(a.Institution, b.Institution)
}
