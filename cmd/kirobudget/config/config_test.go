package config

import (
	"testing"
)

func TestBuildPipelineConfig(t *testing.T) {
	cfg := BuildPipelineConfig(ProcessOptions{
		AccountsPath:      "accounts.yaml",
		DateToleranceDays: 5,
		CreditCardMaxDays: 10,
		InternalMaxDays:   2,
		UseBusinessDays:   true,
		SkipInvalidRows:   true,
	})

	if cfg.AccountsPath != "accounts.yaml" {
		t.Errorf("AccountsPath = %q", cfg.AccountsPath)
	}
	if cfg.Dedup.DateToleranceDays != 5 {
		t.Errorf("DateToleranceDays = %d, want 5", cfg.Dedup.DateToleranceDays)
	}
	if cfg.Matcher.CreditCardMaxDays != 10 || cfg.Matcher.InternalMaxDays != 2 {
		t.Errorf("matcher windows = %d/%d, want 10/2",
			cfg.Matcher.CreditCardMaxDays, cfg.Matcher.InternalMaxDays)
	}
	if !cfg.Matcher.UseBusinessDays {
		t.Error("UseBusinessDays not carried over")
	}
	if !cfg.Parser.SkipInvalidRows {
		t.Error("SkipInvalidRows not carried over")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("built config invalid: %v", err)
	}
}

func TestBuildPipelineConfigKeepsStageDefaults(t *testing.T) {
	cfg := BuildPipelineConfig(ProcessOptions{
		DateToleranceDays: 3,
		CreditCardMaxDays: 7,
		InternalMaxDays:   3,
	})

	if cfg.Keywords == nil || cfg.Classify == nil {
		t.Error("keyword and pattern defaults must be preserved")
	}
	if cfg.Dedup.AmountTolerance.IsZero() {
		t.Error("amount tolerance default must be preserved")
	}
	if cfg.Matcher.Patterns == nil {
		t.Error("pair patterns default must be preserved")
	}
}
