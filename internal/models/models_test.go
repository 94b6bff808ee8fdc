package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestTransactionValidate(t *testing.T) {
	valid := &Transaction{
		Date:        date("2024-11-03"),
		Amount:      decimal.NewFromFloat(-42.50),
		Description: "Grocery Store",
		Account:     "chk1",
		Institution: "FirstTech",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid transaction rejected: %v", err)
	}

	// Empty description, ID, category and balance are all legal.
	sparse := &Transaction{
		Date:        date("2024-11-03"),
		Amount:      decimal.Zero,
		Account:     "chk1",
		Institution: "FirstTech",
	}
	if err := sparse.Validate(); err != nil {
		t.Errorf("sparse transaction rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"empty account", func(tx *Transaction) { tx.Account = " " }},
		{"empty institution", func(tx *Transaction) { tx.Institution = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := *valid
			tt.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTransactionClone(t *testing.T) {
	balance := decimal.NewFromFloat(100.00)
	original := &Transaction{
		Date:        date("2024-11-03"),
		Amount:      decimal.NewFromFloat(-42.50),
		Description: "Grocery Store",
		Account:     "chk1",
		Institution: "FirstTech",
		Balance:     &balance,
	}

	clone := original.Clone()
	newBalance := decimal.NewFromFloat(999.00)
	clone.Balance = &newBalance
	clone.Description = "changed"

	if original.Description != "Grocery Store" {
		t.Error("clone shares description with original")
	}
	if !original.Balance.Equal(balance) {
		t.Error("clone shares balance pointer with original")
	}
}

func TestAccountKeyLowercasesInstitution(t *testing.T) {
	a := &Transaction{Account: "chk1", Institution: "FirstTech"}
	b := &Transaction{Account: "chk1", Institution: "FIRSTTECH"}

	if a.AccountKey() != b.AccountKey() {
		t.Error("institution case must not split account keys")
	}
	if a.AccountKey().Institution != "firsttech" {
		t.Errorf("Institution = %q, want lowercased", a.AccountKey().Institution)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024-11-03", "2024-11-03", 0},
		{"2024-11-03", "2024-11-04", 1},
		{"2024-11-04", "2024-11-03", 1},
		{"2024-01-01", "2024-01-05", 4},
		{"2024-02-28", "2024-03-01", 2}, // leap year
	}

	for _, tt := range tests {
		if got := DaysBetween(date(tt.a), date(tt.b)); got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"42.50", "42.5", false},
		{"-1000.00", "-1000", false},
		{"$1,234.56", "1234.56", false},
		{" 99 ", "99", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimalFromString(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalFromString(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalFromString(%q): %v", tt.input, err)
			continue
		}
		if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
			t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, got, want)
		}
	}
}

func TestParseDateWithFormats(t *testing.T) {
	want := date("2024-11-03")

	inputs := []string{
		"2024-11-03",
		"11/03/2024",
		"2024-11-03 15:04:05",
		"2024/11/03",
		"Nov 3, 2024",
	}

	for _, input := range inputs {
		got, err := ParseDateWithFormats(input)
		if err != nil {
			t.Errorf("ParseDateWithFormats(%q): %v", input, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDateWithFormats(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseDateWithFormats("not a date"); err == nil {
		t.Error("expected error for unparsable date")
	}
	if _, err := ParseDateWithFormats(""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		input   string
		want    AccountType
		wantErr bool
	}{
		{"debit", AccountTypeDebit, false},
		{"credit", AccountTypeCredit, false},
		{"CREDIT", AccountTypeCredit, false},
		{"", AccountTypeDebit, false},
		{"savings", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAccountType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAccountType(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAccountType(%q) = %s, %v; want %s", tt.input, got, err, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42.5", "42.50"},
		{"-1000", "-1000.00"},
		{"0.005", "0.01"},
		{"0", "0.00"},
	}

	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.input)); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	a := decimal.NewFromFloat(-25.00)
	if !CompareAmountsWithTolerance(a, decimal.NewFromFloat(-25.01), tolerance) {
		t.Error("difference equal to tolerance must match")
	}
	if CompareAmountsWithTolerance(a, decimal.NewFromFloat(-25.02), tolerance) {
		t.Error("difference above tolerance must not match")
	}
}
