package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ufian/kiro-budget/internal/models"
)

func makeTransaction(date string, amount float64, description string) *models.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return &models.Transaction{
		Date:        d,
		Amount:      decimal.NewFromFloat(amount).Round(2),
		Description: description,
		Account:     "chk1",
		Institution: "testbank",
	}
}

func withID(tx *models.Transaction, id string) *models.Transaction {
	tx.TransactionID = id
	return tx
}

func TestSignature(t *testing.T) {
	detector := NewDetector(nil)

	t.Run("transaction ID is authoritative", func(t *testing.T) {
		tx := withID(makeTransaction("2024-01-02", -50.00, "Grocery"), "TX123")
		if got := detector.Signature(tx, false); got != "id:TX123" {
			t.Errorf("Signature = %q, want id:TX123", got)
		}
	})

	t.Run("ignoreID forces the fuzzy path", func(t *testing.T) {
		tx := withID(makeTransaction("2024-01-02", -50.00, "Grocery"), "TX123")
		sig := detector.Signature(tx, true)
		if len(sig) != len("sig:")+12 || sig[:4] != "sig:" {
			t.Errorf("Signature = %q, want 12-hex fuzzy signature", sig)
		}
	})

	t.Run("fuzzy signature ignores date and sign rendering differences", func(t *testing.T) {
		a := makeTransaction("2024-01-02", -25.00, "AMAZON MKTPL*NV46R2L51 Amzn.com/bill WA")
		b := makeTransaction("2024-01-04", -25.00, "AMAZON MKTPL*NV46R2L51")
		if detector.Signature(a, true) != detector.Signature(b, true) {
			t.Error("expected equal fuzzy signatures for the same merchant rendering")
		}
	})

	t.Run("different accounts never share a signature", func(t *testing.T) {
		a := makeTransaction("2024-01-02", -25.00, "Coffee Shop")
		b := makeTransaction("2024-01-02", -25.00, "Coffee Shop")
		b.Account = "chk2"
		if detector.Signature(a, true) == detector.Signature(b, true) {
			t.Error("expected distinct signatures for distinct accounts")
		}
	})
}

func TestDeduplicateExactIDs(t *testing.T) {
	detector := NewDetector(nil)

	transactions := []*models.Transaction{
		withID(makeTransaction("2024-01-02", -50.00, "Grocery Store"), "TX123"),
		withID(makeTransaction("2024-01-20", -50.00, "GROCERY STORE INC"), "TX123"),
		withID(makeTransaction("2024-01-03", -10.00, "Coffee"), "TX456"),
	}

	final, stats := detector.Deduplicate(transactions, false)

	if len(final) != 2 {
		t.Fatalf("final count = %d, want 2", len(final))
	}
	if stats.DuplicateGroupsFound != 1 || stats.TotalDuplicatesRemoved != 1 {
		t.Errorf("stats = %+v, want 1 group, 1 removed", stats)
	}
	// Shared IDs merge regardless of how far apart the dates are.
	for _, tx := range final {
		if tx.TransactionID == "TX123" && !tx.Date.Equal(transactions[0].Date) && !tx.Date.Equal(transactions[1].Date) {
			t.Error("merged transaction lost its source date")
		}
	}
}

func TestDeduplicateFuzzyDateWindow(t *testing.T) {
	detector := NewDetector(nil)

	t.Run("within tolerance merges", func(t *testing.T) {
		transactions := []*models.Transaction{
			makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
			makeTransaction("2024-01-04", -25.00, "Coffee Shop"),
		}
		final, stats := detector.Deduplicate(transactions, true)
		if len(final) != 1 {
			t.Fatalf("final count = %d, want 1", len(final))
		}
		if stats.TotalDuplicatesRemoved != 1 {
			t.Errorf("removed = %d, want 1", stats.TotalDuplicatesRemoved)
		}
	})

	t.Run("outside tolerance stays distinct", func(t *testing.T) {
		transactions := []*models.Transaction{
			makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
			makeTransaction("2024-01-05", -25.00, "Coffee Shop"),
		}
		final, stats := detector.Deduplicate(transactions, true)
		if len(final) != 2 {
			t.Fatalf("final count = %d, want 2", len(final))
		}
		if stats.DuplicateGroupsFound != 0 {
			t.Errorf("groups = %d, want 0", stats.DuplicateGroupsFound)
		}
	})
}

func TestDeduplicateConservation(t *testing.T) {
	detector := NewDetector(nil)

	transactions := []*models.Transaction{
		makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-02", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-02", -60.00, "Grocery Store"),
		makeTransaction("2024-01-03", -60.00, "Grocery Store"),
		makeTransaction("2024-01-09", -25.00, "Coffee Shop"),
		makeTransaction("2024-02-01", 1500.00, "Payroll"),
	}

	final, stats := detector.Deduplicate(transactions, true)

	if stats.TotalInput != len(transactions) {
		t.Errorf("TotalInput = %d, want %d", stats.TotalInput, len(transactions))
	}
	if stats.FinalCount != len(final) {
		t.Errorf("FinalCount = %d, want %d", stats.FinalCount, len(final))
	}
	if stats.TotalInput-stats.TotalDuplicatesRemoved != stats.FinalCount {
		t.Errorf("conservation violated: %d - %d != %d",
			stats.TotalInput, stats.TotalDuplicatesRemoved, stats.FinalCount)
	}
	// Two merge groups, and the Jan 9 coffee is out of the date window.
	if len(final) != 4 {
		t.Errorf("final count = %d, want 4", len(final))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	detector := NewDetector(nil)

	transactions := []*models.Transaction{
		makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-02", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-03", -60.00, "Grocery Store"),
	}

	once, _ := detector.Deduplicate(transactions, true)
	twice, stats := detector.Deduplicate(once, true)

	if len(twice) != len(once) {
		t.Errorf("second pass changed count: %d -> %d", len(once), len(twice))
	}
	if stats.TotalDuplicatesRemoved != 0 {
		t.Errorf("second pass removed %d, want 0", stats.TotalDuplicatesRemoved)
	}
}

func TestDeduplicateNoDuplicatesPassesThrough(t *testing.T) {
	detector := NewDetector(nil)

	transactions := []*models.Transaction{
		makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-02", -60.00, "Grocery Store"),
	}

	final, stats := detector.Deduplicate(transactions, true)
	if len(final) != 2 || stats.TotalDuplicatesRemoved != 0 {
		t.Errorf("expected passthrough, got %d final, %d removed",
			len(final), stats.TotalDuplicatesRemoved)
	}
}

func TestClusterByDateChaining(t *testing.T) {
	detector := NewDetector(nil)

	// Jan 1 and Jan 4 chain through proximity; Jan 10 starts a new
	// cluster and a singleton cluster is dropped.
	transactions := []*models.Transaction{
		makeTransaction("2024-01-01", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-04", -25.00, "Coffee Shop"),
		makeTransaction("2024-01-10", -25.00, "Coffee Shop"),
	}

	groups := detector.DetectDuplicates(transactions, true)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	for _, members := range groups {
		if len(members) != 2 {
			t.Errorf("group size = %d, want 2", len(members))
		}
	}
}

func TestMatch(t *testing.T) {
	detector := NewDetector(nil)

	base := func() *models.Transaction {
		return makeTransaction("2024-01-02", -25.00, "Coffee Shop")
	}

	tests := []struct {
		name   string
		mutate func(*models.Transaction)
		want   bool
	}{
		{"identical", func(tx *models.Transaction) {}, true},
		{"date within tolerance", func(tx *models.Transaction) {
			tx.Date = tx.Date.AddDate(0, 0, 3)
		}, true},
		{"date outside tolerance", func(tx *models.Transaction) {
			tx.Date = tx.Date.AddDate(0, 0, 4)
		}, false},
		{"amount within tolerance", func(tx *models.Transaction) {
			tx.Amount = decimal.NewFromFloat(-25.01)
		}, true},
		{"amount outside tolerance", func(tx *models.Transaction) {
			tx.Amount = decimal.NewFromFloat(-25.10)
		}, false},
		{"different account", func(tx *models.Transaction) {
			tx.Account = "chk2"
		}, false},
		{"different merchant", func(tx *models.Transaction) {
			tx.Description = "Grocery Store"
		}, false},
		{"empty description matches on remaining fields", func(tx *models.Transaction) {
			tx.Description = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := base(), base()
			tt.mutate(b)
			if got := detector.Match(a, b); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("shared IDs are authoritative", func(t *testing.T) {
		a := withID(makeTransaction("2024-01-02", -25.00, "Coffee Shop"), "TX1")
		b := withID(makeTransaction("2024-06-02", -99.00, "Elsewhere"), "TX1")
		if !detector.Match(a, b) {
			t.Error("expected match on shared transaction ID")
		}

		c := withID(makeTransaction("2024-01-02", -25.00, "Coffee Shop"), "TX2")
		if detector.Match(a, c) {
			t.Error("expected no match on differing transaction IDs")
		}
	})
}
