package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/internal/normalize"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// Detector detects duplicate transactions across one or many source files.
type Detector struct {
	Config *DetectorConfig
	log    logger.Logger
}

// NewDetector creates a duplicate detector with the specified configuration,
// or the default configuration when nil.
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}

	return &Detector{
		Config: config,
		log:    logger.WithComponent("dedup"),
	}
}

// Stats summarizes one deduplication pass. FinalCount always equals
// TotalInput minus TotalDuplicatesRemoved.
type Stats struct {
	TotalInput             int `json:"total_input_transactions"`
	DuplicateGroupsFound   int `json:"duplicate_groups_found"`
	TotalDuplicatesRemoved int `json:"total_duplicates_removed"`
	FinalCount             int `json:"final_transaction_count"`
}

// Signature generates the grouping key for a transaction. When the
// transaction carries a trusted ID and ignoreID is false the key is exact;
// otherwise it is a truncated content hash of absolute amount, normalized
// description and account. The date is deliberately excluded so that
// posting-date skew between sources cannot prevent matching.
func (d *Detector) Signature(tx *models.Transaction, ignoreID bool) string {
	if !ignoreID && tx.HasTransactionID() {
		return "id:" + tx.TransactionID
	}

	data := fmt.Sprintf("%s|%s|%s",
		tx.AbsAmount().StringFixed(2),
		normalize.Normalize(tx.Description),
		tx.Account)

	sum := md5.Sum([]byte(data))
	return "sig:" + hex.EncodeToString(sum[:])[:12]
}

// DetectDuplicates groups transactions believed to represent one economic
// event, keyed by signature. In fuzzy mode (ignoreIDs true) each signature
// group is additionally clustered by date proximity and every resulting
// cluster of size >1 becomes its own group. In exact mode only groups with
// more than one member are returned as-is.
func (d *Detector) DetectDuplicates(transactions []*models.Transaction, ignoreIDs bool) map[string][]*models.Transaction {
	groups := make(map[string][]*models.Transaction)
	for sig, idxs := range d.detectIndexGroups(transactions, ignoreIDs) {
		members := make([]*models.Transaction, len(idxs))
		for i, idx := range idxs {
			members[i] = transactions[idx]
		}
		groups[sig] = members
	}
	return groups
}

// detectIndexGroups is the bulk detection path. Working with indices into
// the input slice keeps "already consumed" tracking stable even when the
// same pointer appears twice in the input.
func (d *Detector) detectIndexGroups(transactions []*models.Transaction, ignoreIDs bool) map[string][]int {
	signatureGroups := make(map[string][]int)
	var order []string

	for i, tx := range transactions {
		sig := d.Signature(tx, ignoreIDs)
		if _, seen := signatureGroups[sig]; !seen {
			order = append(order, sig)
		}
		signatureGroups[sig] = append(signatureGroups[sig], i)
	}

	result := make(map[string][]int)

	if !ignoreIDs {
		for _, sig := range order {
			if group := signatureGroups[sig]; len(group) > 1 {
				result[sig] = group
			}
		}
		return result
	}

	// Fuzzy mode: same signature on distant dates means distinct events,
	// so split each group into date-proximity clusters first.
	for _, sig := range order {
		group := signatureGroups[sig]
		if len(group) <= 1 {
			continue
		}
		for subSig, cluster := range d.clusterByDate(transactions, group) {
			result[sig+"_"+subSig] = cluster
		}
	}
	return result
}

// clusterByDate splits a same-signature group into chains of transactions
// whose dates sit within DateToleranceDays of at least one existing member.
// Clusters never merge with each other, even when transitively linked
// through a later group. Only clusters with more than one member survive.
func (d *Detector) clusterByDate(transactions []*models.Transaction, group []int) map[string][]int {
	if len(group) <= 1 {
		return nil
	}

	sorted := make([]int, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return transactions[sorted[i]].Date.Before(transactions[sorted[j]].Date)
	})

	var clusters [][]int
	current := []int{sorted[0]}

	for _, idx := range sorted[1:] {
		inCluster := false
		for _, member := range current {
			if models.DaysBetween(transactions[idx].Date, transactions[member].Date) <= d.Config.DateToleranceDays {
				inCluster = true
				break
			}
		}

		if inCluster {
			current = append(current, idx)
		} else {
			if len(current) > 1 {
				clusters = append(clusters, current)
			}
			current = []int{idx}
		}
	}
	if len(current) > 1 {
		clusters = append(clusters, current)
	}

	result := make(map[string][]int, len(clusters))
	for i, cluster := range clusters {
		subSig := fmt.Sprintf("cluster_%s_%d",
			transactions[cluster[0]].Date.Format("20060102"), i)
		result[subSig] = cluster
	}
	return result
}

// Deduplicate removes duplicates from the transaction list, merging each
// duplicate group into its best representative, and returns the surviving
// transactions together with pass statistics.
func (d *Detector) Deduplicate(transactions []*models.Transaction, useFuzzy bool) ([]*models.Transaction, Stats) {
	stats := Stats{
		TotalInput: len(transactions),
		FinalCount: len(transactions),
	}

	groups := d.detectIndexGroups(transactions, useFuzzy)
	if len(groups) == 0 {
		return transactions, stats
	}

	inGroup := make(map[int]bool)
	for _, idxs := range groups {
		for _, idx := range idxs {
			inGroup[idx] = true
		}
	}

	var final []*models.Transaction
	for i, tx := range transactions {
		if !inGroup[i] {
			final = append(final, tx)
		}
	}

	groupSigs := make([]string, 0, len(groups))
	for sig := range groups {
		groupSigs = append(groupSigs, sig)
	}
	sort.Strings(groupSigs)

	for _, sig := range groupSigs {
		members := make([]*models.Transaction, 0, len(groups[sig]))
		for _, idx := range groups[sig] {
			members = append(members, transactions[idx])
		}
		final = append(final, mergeGroup(members))
	}

	stats.DuplicateGroupsFound = len(groups)
	stats.TotalDuplicatesRemoved = len(transactions) - len(final)
	stats.FinalCount = len(final)

	d.log.Debugf("deduplicated %d transactions: %d groups, %d removed",
		stats.TotalInput, stats.DuplicateGroupsFound, stats.TotalDuplicatesRemoved)

	return final, stats
}

// Match is the pairwise duplicate oracle used for debugging and testing; the
// bulk path goes through signatures instead. Two transactions match when
// they share a non-empty transaction ID, or when their dates, amounts,
// account and normalized descriptions all agree within tolerance.
func (d *Detector) Match(a, b *models.Transaction) bool {
	if a.HasTransactionID() && b.HasTransactionID() {
		return a.TransactionID == b.TransactionID
	}

	if models.DaysBetween(a.Date, b.Date) > d.Config.DateToleranceDays {
		return false
	}

	if !models.CompareAmountsWithTolerance(a.Amount, b.Amount, d.Config.AmountTolerance) {
		return false
	}

	if a.Account != b.Account {
		return false
	}

	descA := normalize.Normalize(a.Description)
	descB := normalize.Normalize(b.Description)
	if descA != "" && descB != "" {
		return descA == descB
	}

	return true
}
