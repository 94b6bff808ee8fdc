package dedup

import (
	"sort"
	"strings"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// mergeGroup collapses a duplicate group into its single best
// representative. The member with the highest score becomes the base record
// and missing optional fields are backfilled from the rest of the group in
// original order. The outcome does not depend on which detection pass
// produced the group.
//
// Scoring: +1000 for a transaction ID, +100 for a category, +50 for a
// balance, +25 for a description longer than 10 characters, plus the list
// index as a tie-breaker favoring later records.
func mergeGroup(group []*models.Transaction) *models.Transaction {
	if len(group) == 1 {
		return group[0]
	}

	score := func(tx *models.Transaction, index int) int {
		s := index
		if tx.HasTransactionID() {
			s += 1000
		}
		if tx.Category != "" {
			s += 100
		}
		if tx.Balance != nil {
			s += 50
		}
		if len(tx.Description) > 10 {
			s += 25
		}
		return s
	}

	best := 0
	bestScore := score(group[0], 0)
	for i := 1; i < len(group); i++ {
		if s := score(group[i], i); s > bestScore {
			best = i
			bestScore = s
		}
	}

	merged := group[best].Clone()

	for _, tx := range group {
		if merged.Description == "" && tx.Description != "" {
			merged.Description = tx.Description
		}
		if merged.Category == "" && tx.Category != "" {
			merged.Category = tx.Category
		}
		if merged.Balance == nil && tx.Balance != nil {
			b := *tx.Balance
			merged.Balance = &b
		}
		if merged.TransactionID == "" && tx.TransactionID != "" {
			merged.TransactionID = tx.TransactionID
		}
	}

	return merged
}

// MergeStats reports the outcome of a cross-file merge for one account.
type MergeStats struct {
	FilesMerged       int      `json:"files_merged"`
	SourceFiles       []string `json:"source_files"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	FinalCount        int      `json:"final_count"`
	OriginalTotal     int      `json:"original_total"`
}

// Merger orchestrates merging transactions from multiple source files that
// cover the same account.
type Merger struct {
	detector *Detector
	log      logger.Logger
}

// NewMerger creates a merger backed by the given detector, or a detector
// with default configuration when nil.
func NewMerger(detector *Detector) *Merger {
	if detector == nil {
		detector = NewDetector(nil)
	}

	return &Merger{
		detector: detector,
		log:      logger.WithComponent("merger"),
	}
}

// MergeFilesForAccount pools transactions for one (account, institution)
// pair across source files and deduplicates them with fuzzy matching. When
// the account appears in a single file the transactions pass through
// unchanged; merging is only triggered by observing the same account in
// more than one file.
func (m *Merger) MergeFilesForAccount(transactionsByFile map[string][]*models.Transaction, account, institution string) ([]*models.Transaction, MergeStats, error) {
	accountFiles := make(map[string][]*models.Transaction)
	for filePath, transactions := range transactionsByFile {
		var matched []*models.Transaction
		for _, tx := range transactions {
			if tx.Account == account && strings.EqualFold(tx.Institution, institution) {
				matched = append(matched, tx)
			}
		}
		if len(matched) > 0 {
			accountFiles[filePath] = matched
		}
	}

	if len(accountFiles) == 0 {
		return nil, MergeStats{}, errors.ProcessingError(errors.CodeDedupFailed,
			"merge_files_for_account", nil).
			WithContext("account", account).
			WithContext("institution", institution).
			WithSuggestion("no transactions found for the specified account")
	}

	if len(accountFiles) == 1 {
		for filePath, transactions := range accountFiles {
			return transactions, MergeStats{
				FilesMerged: 1,
				SourceFiles: []string{filePath},
				FinalCount:  len(transactions),
			}, nil
		}
	}

	var pooled []*models.Transaction
	sourceFiles := make([]string, 0, len(accountFiles))
	for filePath := range accountFiles {
		sourceFiles = append(sourceFiles, filePath)
	}
	sort.Strings(sourceFiles)
	for _, filePath := range sourceFiles {
		pooled = append(pooled, accountFiles[filePath]...)
	}

	merged, dedupStats := m.detector.Deduplicate(pooled, true)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})

	stats := MergeStats{
		FilesMerged:       len(accountFiles),
		SourceFiles:       sourceFiles,
		DuplicatesRemoved: dedupStats.TotalDuplicatesRemoved,
		FinalCount:        len(merged),
		OriginalTotal:     len(pooled),
	}

	m.log.Infof("merged account %s/%s from %d files: %d -> %d transactions",
		institution, account, stats.FilesMerged, stats.OriginalTotal, stats.FinalCount)

	return merged, stats, nil
}

// IdentifyMergeableAccounts finds (account, institution) pairs observed in
// more than one source file.
func (m *Merger) IdentifyMergeableAccounts(transactionsByFile map[string][]*models.Transaction) map[models.AccountKey][]string {
	accountFiles := make(map[models.AccountKey][]string)

	filePaths := make([]string, 0, len(transactionsByFile))
	for filePath := range transactionsByFile {
		filePaths = append(filePaths, filePath)
	}
	sort.Strings(filePaths)

	for _, filePath := range filePaths {
		seen := make(map[models.AccountKey]bool)
		for _, tx := range transactionsByFile[filePath] {
			key := tx.AccountKey()
			if !seen[key] {
				seen[key] = true
				accountFiles[key] = append(accountFiles[key], filePath)
			}
		}
	}

	mergeable := make(map[models.AccountKey][]string)
	for key, files := range accountFiles {
		if len(files) > 1 {
			mergeable[key] = files
		}
	}
	return mergeable
}

// FindCrossFileDuplicates detects fuzzy duplicates across all files and
// maps each source file to the duplicate groups it participates in. Groups
// confined to a single file are ignored; those are for the per-file pass.
func (m *Merger) FindCrossFileDuplicates(transactionsByFile map[string][]*models.Transaction) map[string]map[string][]*models.Transaction {
	var pooled []*models.Transaction
	var fileOf []string

	filePaths := make([]string, 0, len(transactionsByFile))
	for filePath := range transactionsByFile {
		filePaths = append(filePaths, filePath)
	}
	sort.Strings(filePaths)

	for _, filePath := range filePaths {
		for _, tx := range transactionsByFile[filePath] {
			pooled = append(pooled, tx)
			fileOf = append(fileOf, filePath)
		}
	}

	groups := m.detector.detectIndexGroups(pooled, true)

	result := make(map[string]map[string][]*models.Transaction)
	for filePath := range transactionsByFile {
		result[filePath] = make(map[string][]*models.Transaction)
	}

	for sig, idxs := range groups {
		filesInGroup := make(map[string]bool)
		for _, idx := range idxs {
			filesInGroup[fileOf[idx]] = true
		}
		if len(filesInGroup) < 2 {
			continue
		}

		for _, idx := range idxs {
			filePath := fileOf[idx]
			result[filePath][sig] = append(result[filePath][sig], pooled[idx])
		}
	}

	return result
}
