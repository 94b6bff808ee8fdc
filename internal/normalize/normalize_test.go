package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "lowercases and trims",
			input:    "  COSTCO WHOLESALE  ",
			expected: "costco wholesale",
		},
		{
			name:     "amazon with billing suffix",
			input:    "AMAZON MKTPL*NV46R2L51 Amzn.com/bill WA",
			expected: "amazon nv46r2l51",
		},
		{
			name:     "amazon without billing suffix",
			input:    "AMAZON MKTPL*NV46R2L51",
			expected: "amazon nv46r2l51",
		},
		{
			name:     "amazon dot com variant",
			input:    "AMAZON.COM*NK9M63AJ1",
			expected: "amazon nk9m63aj1",
		},
		{
			name:     "store number and city state suffix",
			input:    "STARBUCKS #0658 SEATTLE WA",
			expected: "starbucks",
		},
		{
			name:     "square processor prefix",
			input:    "SQ *COFFEE SHOP",
			expected: "coffee shop",
		},
		{
			name:     "toast processor prefix",
			input:    "TST* PIZZA PLACE",
			expected: "pizza place",
		},
		{
			name:     "only first matching prefix stripped",
			input:    "POS DEBIT VENDING",
			expected: "debit vending",
		},
		{
			name:     "ampersand becomes and",
			input:    "BARNES & NOBLE",
			expected: "barnes and noble",
		},
		{
			name:     "trailing reference number",
			input:    "COMCAST 8778907646",
			expected: "comcast",
		},
		{
			name:     "corporate suffix",
			input:    "ACME WIDGETS LLC",
			expected: "acme widgets",
		},
		{
			name:     "whitespace collapsed",
			input:    "TRADER   JOES",
			expected: "trader joes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeCrossSourceStability(t *testing.T) {
	// Two exports of the same merchant must land on the same canonical
	// form or signature-based dedup can never match them.
	a := Normalize("AMAZON MKTPL*NV46R2L51 Amzn.com/bill WA")
	b := Normalize("AMAZON MKTPL*NV46R2L51")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"STARBUCKS #0658 SEATTLE WA",
		"AMAZON MKTPL*NV46R2L51",
		"BARNES & NOBLE",
		"plain coffee shop",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestWordSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "amazon order", "amazon order", 1.0},
		{"disjoint", "amazon", "costco", 0.0},
		{"both empty", "", "", 1.0},
		{"one empty", "amazon", "", 0.0},
		{"half overlap", "coffee shop", "coffee house", 1.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, WordSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
