// Package config translates CLI flags into pipeline stage configurations.
package config

import (
	"github.com/ufian/kiro-budget/internal/dedup"
	"github.com/ufian/kiro-budget/internal/parsers"
	"github.com/ufian/kiro-budget/internal/pipeline"
	"github.com/ufian/kiro-budget/internal/transfer"
)

// ProcessOptions carries the flag values of the process command.
type ProcessOptions struct {
	AccountsPath       string
	DateToleranceDays  int
	CreditCardMaxDays  int
	InternalMaxDays    int
	UseBusinessDays    bool
	SkipSignCorrection bool
	SkipInvalidRows    bool
}

// BuildPipelineConfig assembles the full pipeline configuration from the
// flag values, keeping stage defaults for everything the flags do not
// reach.
func BuildPipelineConfig(opts ProcessOptions) *pipeline.Config {
	cfg := pipeline.DefaultConfig()

	cfg.AccountsPath = opts.AccountsPath
	cfg.SkipSignCorrection = opts.SkipSignCorrection

	cfg.Parser = &parsers.ParserConfig{
		SkipInvalidRows: opts.SkipInvalidRows,
	}

	cfg.Dedup = &dedup.DetectorConfig{
		DateToleranceDays: opts.DateToleranceDays,
		AmountTolerance:   dedup.DefaultDetectorConfig().AmountTolerance,
	}

	matcher := transfer.DefaultMatcherConfig()
	matcher.CreditCardMaxDays = opts.CreditCardMaxDays
	matcher.InternalMaxDays = opts.InternalMaxDays
	matcher.UseBusinessDays = opts.UseBusinessDays
	cfg.Matcher = matcher

	return cfg
}
