// Package pipeline wires the processing stages together: parse, sign
// correction, deduplication, enrichment, transfer-pair matching and
// classification.
package pipeline

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ufian/kiro-budget/internal/accounts"
	"github.com/ufian/kiro-budget/internal/classify"
	"github.com/ufian/kiro-budget/internal/dedup"
	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/internal/parsers"
	"github.com/ufian/kiro-budget/internal/signdetect"
	"github.com/ufian/kiro-budget/internal/transfer"
	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// Config aggregates the per-stage configurations.
type Config struct {
	Parser       *parsers.ParserConfig   `json:"parser"`
	Dedup        *dedup.DetectorConfig   `json:"dedup"`
	Matcher      *transfer.MatcherConfig `json:"matcher"`
	Keywords     *signdetect.KeywordSet  `json:"keywords"`
	Classify     *classify.Patterns      `json:"classify"`
	AccountsPath string                  `json:"accounts_path"`

	// SkipSignCorrection disables the per-file convention flip, for
	// inputs known to already follow the banking convention.
	SkipSignCorrection bool `json:"skip_sign_correction"`
}

// DefaultConfig returns a configuration with stage defaults.
func DefaultConfig() *Config {
	return &Config{
		Parser:   parsers.DefaultParserConfig(),
		Dedup:    dedup.DefaultDetectorConfig(),
		Matcher:  transfer.DefaultMatcherConfig(),
		Keywords: signdetect.DefaultKeywordSet(),
		Classify: classify.DefaultPatterns(),
	}
}

// Validate checks the stage configurations.
func (c *Config) Validate() error {
	if c.Dedup != nil {
		if err := c.Dedup.Validate(); err != nil {
			return err
		}
	}
	if c.Matcher != nil {
		if err := c.Matcher.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ClassifiedTransaction is an enriched transaction with its final
// category label.
type ClassifiedTransaction struct {
	*models.EnrichedTransaction
	Label classify.Category `json:"label"`
}

// FileReport records what sign correction decided for one input file.
type FileReport struct {
	Path         string  `json:"path"`
	Transactions int     `json:"transactions"`
	Convention   string  `json:"convention"`
	Confidence   float64 `json:"confidence"`
	Flipped      bool    `json:"flipped"`
}

// Result is the full output of a pipeline run.
type Result struct {
	RunID        string                   `json:"run_id"`
	StartedAt    time.Time                `json:"started_at"`
	Duration     time.Duration            `json:"duration"`
	Files        []FileReport             `json:"files"`
	Transactions []*ClassifiedTransaction `json:"transactions"`
	Pairs        []*transfer.Pair         `json:"-"`
	Summaries    []*transfer.PairSummary  `json:"pair_summaries"`

	DedupStats    dedup.Stats               `json:"dedup_stats"`
	MatchStats    *transfer.Stats           `json:"match_stats"`
	CategoryCount map[classify.Category]int `json:"category_counts"`
}

// Processor runs the full pipeline over a set of unified CSV files.
type Processor struct {
	config     *Config
	parser     *parsers.UnifiedParser
	signs      *signdetect.Detector
	detector   *dedup.Detector
	enricher   *accounts.Enricher
	matcher    *transfer.Matcher
	classifier *classify.Classifier
	log        logger.Logger
}

// NewProcessor creates a processor from the configuration, loading the
// account registry if one is configured.
func NewProcessor(config *Config) (*Processor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry, err := accounts.LoadRegistry(config.AccountsPath)
	if err != nil {
		return nil, err
	}

	return &Processor{
		config:     config,
		parser:     parsers.NewUnifiedParser(config.Parser),
		signs:      signdetect.NewDetector(config.Keywords),
		detector:   dedup.NewDetector(config.Dedup),
		enricher:   accounts.NewEnricher(registry),
		matcher:    transfer.NewMatcher(config.Matcher),
		classifier: classify.NewClassifier(config.Classify),
		log:        logger.WithComponent("pipeline"),
	}, nil
}

// Process runs every stage over the input files and returns the combined
// result. Sign correction is decided per source file before the pools are
// merged, since the convention is a property of the exporting system, not
// of individual rows.
func (p *Processor) Process(inputFiles []string) (*Result, error) {
	if len(inputFiles) == 0 {
		return nil, errors.ValidationError(errors.CodeInvalidData, "input_files", inputFiles, nil).
			WithSuggestion("Provide at least one unified CSV file to process")
	}

	started := time.Now()
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: started,
	}

	runLog := p.log.WithField("run_id", result.RunID)
	runLog.WithField("files", len(inputFiles)).Info("Pipeline run started")

	var pool []*models.Transaction
	for _, path := range inputFiles {
		transactions, _, err := p.parser.ParseFile(path)
		if err != nil {
			return nil, err
		}

		report := FileReport{Path: path, Transactions: len(transactions)}
		if !p.config.SkipSignCorrection {
			corrected, analysis := p.signs.CorrectSigns(transactions)
			report.Convention = string(analysis.Convention)
			report.Confidence = analysis.Confidence
			report.Flipped = analysis.ShouldFlip()
			transactions = corrected
		}

		result.Files = append(result.Files, report)
		pool = append(pool, transactions...)
	}

	deduplicated, dedupStats := p.deduplicatePool(pool)
	result.DedupStats = dedupStats

	sort.SliceStable(deduplicated, func(i, j int) bool {
		return deduplicated[i].Date.Before(deduplicated[j].Date)
	})

	enriched := p.enricher.EnrichBatch(deduplicated)

	matchResult, matchStats := p.matcher.MatchPairs(enriched)
	result.Pairs = matchResult.Pairs
	result.Summaries = matchResult.Summaries
	result.MatchStats = matchStats

	labels, counts := p.classifier.ClassifyBatch(matchResult.Unpaired)
	result.CategoryCount = counts
	result.Transactions = make([]*ClassifiedTransaction, len(matchResult.Unpaired))
	for i, tx := range matchResult.Unpaired {
		result.Transactions[i] = &ClassifiedTransaction{
			EnrichedTransaction: tx,
			Label:               labels[i],
		}
	}

	result.Duration = time.Since(started)
	runLog.WithFields(logger.Fields{
		"input":      dedupStats.TotalInput,
		"duplicates": dedupStats.TotalDuplicatesRemoved,
		"pairs":      len(result.Pairs),
		"unpaired":   len(result.Transactions),
		"duration":   result.Duration.String(),
	}).Info("Pipeline run completed")

	return result, nil
}

// deduplicatePool runs fuzzy deduplication separately for each
// (account, institution) pair. Account identifiers are not unique across
// institutions (last-4 ids collide between banks), so transactions from
// different institutions are never candidates for merging.
func (p *Processor) deduplicatePool(pool []*models.Transaction) ([]*models.Transaction, dedup.Stats) {
	partitions := make(map[models.AccountKey][]*models.Transaction)
	var order []models.AccountKey
	for _, tx := range pool {
		key := tx.AccountKey()
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], tx)
	}

	final := make([]*models.Transaction, 0, len(pool))
	stats := dedup.Stats{TotalInput: len(pool)}
	for _, key := range order {
		kept, partStats := p.detector.Deduplicate(partitions[key], true)
		final = append(final, kept...)
		stats.DuplicateGroupsFound += partStats.DuplicateGroupsFound
		stats.TotalDuplicatesRemoved += partStats.TotalDuplicatesRemoved
	}
	stats.FinalCount = len(final)

	return final, stats
}
