package dedup

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/internal/models"
)

func TestMergeGroupPrefersRichestRecord(t *testing.T) {
	balance := decimal.NewFromFloat(1234.56)

	sparse := makeTransaction("2024-01-02", -50.00, "GROCERY")
	rich := makeTransaction("2024-01-03", -50.00, "GROCERY STORE #42 OLYMPIA")
	rich.TransactionID = "TX999"
	rich.Category = "groceries"
	rich.Balance = &balance

	merged := mergeGroup([]*models.Transaction{sparse, rich})

	if merged.TransactionID != "TX999" {
		t.Errorf("TransactionID = %q, want TX999", merged.TransactionID)
	}
	if merged.Description != rich.Description {
		t.Errorf("Description = %q, want richer record's", merged.Description)
	}
	if merged.Balance == nil || !merged.Balance.Equal(balance) {
		t.Error("Balance not carried from richer record")
	}
}

func TestMergeGroupBackfillsMissingFields(t *testing.T) {
	balance := decimal.NewFromFloat(99.00)

	// The base record wins on ID but lacks category and balance; both are
	// backfilled from the other group members.
	base := makeTransaction("2024-01-02", -50.00, "GROCERY STORE LONGFORM")
	base.TransactionID = "TX1"

	other := makeTransaction("2024-01-03", -50.00, "GROCERY")
	other.Category = "groceries"
	other.Balance = &balance

	merged := mergeGroup([]*models.Transaction{base, other})

	if merged.TransactionID != "TX1" {
		t.Errorf("TransactionID = %q, want TX1", merged.TransactionID)
	}
	if merged.Category != "groceries" {
		t.Errorf("Category = %q, want backfilled groceries", merged.Category)
	}
	if merged.Balance == nil || !merged.Balance.Equal(balance) {
		t.Error("Balance not backfilled")
	}
}

func TestMergeGroupSingleMember(t *testing.T) {
	tx := makeTransaction("2024-01-02", -50.00, "GROCERY")
	if merged := mergeGroup([]*models.Transaction{tx}); merged != tx {
		t.Error("single-member group must return the member itself")
	}
}

func TestMergeGroupLaterIndexBreaksTies(t *testing.T) {
	first := makeTransaction("2024-01-02", -50.00, "SAME")
	second := makeTransaction("2024-01-03", -50.00, "SAME")

	merged := mergeGroup([]*models.Transaction{first, second})
	if !merged.Date.Equal(second.Date) {
		t.Error("expected the later record to win an otherwise tied score")
	}
}

func TestMergeFilesForAccount(t *testing.T) {
	merger := NewMerger(nil)

	byFile := map[string][]*models.Transaction{
		"jan_export.csv": {
			makeTransaction("2024-01-02", -25.00, "Coffee Shop"),
			makeTransaction("2024-01-05", -60.00, "Grocery Store"),
		},
		"overlap_export.csv": {
			makeTransaction("2024-01-03", -25.00, "Coffee Shop"),
			makeTransaction("2024-01-15", 1500.00, "Payroll"),
		},
	}

	merged, stats, err := merger.MergeFilesForAccount(byFile, "chk1", "testbank")
	if err != nil {
		t.Fatalf("MergeFilesForAccount: %v", err)
	}

	if stats.FilesMerged != 2 {
		t.Errorf("FilesMerged = %d, want 2", stats.FilesMerged)
	}
	if stats.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", stats.DuplicatesRemoved)
	}
	if len(merged) != 3 {
		t.Fatalf("merged count = %d, want 3", len(merged))
	}

	// Output is date-ordered.
	for i := 1; i < len(merged); i++ {
		if merged[i].Date.Before(merged[i-1].Date) {
			t.Error("merged output not sorted by date")
		}
	}
}

func TestMergeFilesForAccountSingleFilePassthrough(t *testing.T) {
	merger := NewMerger(nil)

	byFile := map[string][]*models.Transaction{
		"only.csv": {
			makeTransaction("2024-01-02", -25.00, "Coffee Shop"),
			makeTransaction("2024-01-03", -25.00, "Coffee Shop"),
		},
	}

	merged, stats, err := merger.MergeFilesForAccount(byFile, "chk1", "testbank")
	if err != nil {
		t.Fatalf("MergeFilesForAccount: %v", err)
	}

	// Same-file near-duplicates are left alone; merging only fires when
	// the account spans multiple exports.
	if len(merged) != 2 || stats.FilesMerged != 1 {
		t.Errorf("got %d transactions from %d files, want passthrough of 2 from 1",
			len(merged), stats.FilesMerged)
	}
}

func TestMergeFilesForAccountUnknownAccount(t *testing.T) {
	merger := NewMerger(nil)

	byFile := map[string][]*models.Transaction{
		"only.csv": {makeTransaction("2024-01-02", -25.00, "Coffee Shop")},
	}

	if _, _, err := merger.MergeFilesForAccount(byFile, "missing", "testbank"); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestIdentifyMergeableAccounts(t *testing.T) {
	merger := NewMerger(nil)

	other := makeTransaction("2024-01-02", -10.00, "Coffee Shop")
	other.Account = "sav1"

	byFile := map[string][]*models.Transaction{
		"a.csv": {makeTransaction("2024-01-02", -25.00, "Coffee Shop"), other},
		"b.csv": {makeTransaction("2024-01-03", -30.00, "Grocery Store")},
	}

	mergeable := merger.IdentifyMergeableAccounts(byFile)

	key := models.AccountKey{Account: "chk1", Institution: "testbank"}
	files, ok := mergeable[key]
	if !ok {
		t.Fatalf("expected %s to be mergeable", key)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want both source files", files)
	}

	savKey := models.AccountKey{Account: "sav1", Institution: "testbank"}
	if _, ok := mergeable[savKey]; ok {
		t.Error("single-file account must not be mergeable")
	}
}

func TestFindCrossFileDuplicates(t *testing.T) {
	merger := NewMerger(nil)

	byFile := map[string][]*models.Transaction{
		"a.csv": {
			makeTransaction("2024-01-02", -25.00, "AMAZON MKTPL*NV46R2L51 Amzn.com/bill WA"),
			makeTransaction("2024-01-02", -99.00, "Unrelated Purchase"),
		},
		"b.csv": {
			makeTransaction("2024-01-03", -25.00, "AMAZON MKTPL*NV46R2L51"),
		},
	}

	duplicates := merger.FindCrossFileDuplicates(byFile)

	if len(duplicates["a.csv"]) != 1 {
		t.Errorf("a.csv groups = %d, want 1", len(duplicates["a.csv"]))
	}
	if len(duplicates["b.csv"]) != 1 {
		t.Errorf("b.csv groups = %d, want 1", len(duplicates["b.csv"]))
	}

	for sig, members := range duplicates["a.csv"] {
		if len(members) != 1 {
			t.Errorf("group %s in a.csv has %d members, want 1", sig, len(members))
		}
	}
}
