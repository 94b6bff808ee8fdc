// Package accounts loads the per-institution account registry and
// enriches transactions with human-readable account names and account
// types.
package accounts

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ufian/kiro-budget/internal/models"
	"github.com/ufian/kiro-budget/pkg/errors"
	"github.com/ufian/kiro-budget/pkg/logger"
)

// Registry maps institution -> account id -> account configuration.
type Registry struct {
	institutions map[string]map[string]models.AccountConfig
	log          logger.Logger
}

// NewRegistry creates an empty registry. Lookups against an empty
// registry return defaults, so a missing config file degrades gracefully.
func NewRegistry() *Registry {
	return &Registry{
		institutions: make(map[string]map[string]models.AccountConfig),
		log:          logger.WithComponent("accounts"),
	}
}

// LoadRegistry reads the YAML account registry at path. A missing file is
// not an error; enrichment falls back to defaults for every account.
func LoadRegistry(path string) (*Registry, error) {
	registry := NewRegistry()

	if path == "" {
		return registry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			registry.log.WithField("path", path).Warn("Account registry not found, using defaults")
			return registry, nil
		}
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	var raw map[string]map[string]models.AccountConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err).
			WithSuggestion("Check the YAML structure: institution -> account id -> {account_name, account_type}")
	}

	for institution, accountsByID := range raw {
		key := strings.ToLower(institution)
		registry.institutions[key] = make(map[string]models.AccountConfig, len(accountsByID))
		for accountID, config := range accountsByID {
			config.AccountID = accountID
			config.Institution = institution
			if config.AccountType == "" {
				config.AccountType = models.AccountTypeDebit
			}
			if !config.AccountType.IsValid() {
				registry.log.WithFields(logger.Fields{
					"institution":  institution,
					"account":      accountID,
					"account_type": config.AccountType,
				}).Warn("Unknown account type, defaulting to debit")
				config.AccountType = models.AccountTypeDebit
			}
			if config.AccountName == "" {
				config.AccountName = accountID
			}
			registry.institutions[key][accountID] = config
		}
	}

	registry.log.WithFields(logger.Fields{
		"path":         path,
		"institutions": len(registry.institutions),
	}).Info("Account registry loaded")

	return registry, nil
}

// Get looks up the configuration for an account. Institution matching is
// case-insensitive. The second return value reports whether the account
// was present in the registry.
func (r *Registry) Get(institution, account string) (models.AccountConfig, bool) {
	accountsByID, ok := r.institutions[strings.ToLower(institution)]
	if !ok {
		return models.AccountConfig{}, false
	}
	config, ok := accountsByID[account]
	return config, ok
}

// Enricher attaches account names and types to transactions.
type Enricher struct {
	registry *Registry
	log      logger.Logger
}

// NewEnricher creates an enricher backed by the given registry. A nil
// registry behaves like an empty one.
func NewEnricher(registry *Registry) *Enricher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Enricher{
		registry: registry,
		log:      logger.WithComponent("enricher"),
	}
}

// Enrich wraps a transaction with its account name and type. Unregistered
// accounts default to the raw account id and the debit type.
func (e *Enricher) Enrich(tx *models.Transaction) *models.EnrichedTransaction {
	enriched := &models.EnrichedTransaction{
		Transaction: *tx,
		AccountName: tx.Account,
		AccountType: models.AccountTypeDebit,
	}

	if config, ok := e.registry.Get(tx.Institution, tx.Account); ok {
		enriched.AccountName = config.AccountName
		enriched.AccountType = config.AccountType
	}

	return enriched
}

// EnrichBatch enriches every transaction, preserving input order.
func (e *Enricher) EnrichBatch(transactions []*models.Transaction) []*models.EnrichedTransaction {
	enriched := make([]*models.EnrichedTransaction, len(transactions))
	unregistered := 0
	for i, tx := range transactions {
		if _, ok := e.registry.Get(tx.Institution, tx.Account); !ok {
			unregistered++
		}
		enriched[i] = e.Enrich(tx)
	}

	if unregistered > 0 {
		e.log.WithFields(logger.Fields{
			"total":        len(transactions),
			"unregistered": unregistered,
		}).Debug("Some transactions enriched with default account info")
	}

	return enriched
}
