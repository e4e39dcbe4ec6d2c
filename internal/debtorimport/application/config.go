package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// FailurePolicy decides what a row failure does to the rest of the run.
type FailurePolicy string

const (
	// PolicyAllOrNothing compensates every committed row on the first failure
	// and stops the run.
	PolicyAllOrNothing FailurePolicy = "all_or_nothing"
	// PolicySkipAndContinue records the failing row and moves on; committed
	// rows stay.
	PolicySkipAndContinue FailurePolicy = "skip_and_continue"
)

const (
	defaultReceivableAccount  = "1130"
	defaultRevenueAccount     = "4110"
	defaultDuplicateTolerance = 0.01
	defaultAuditErrorLimit    = 10
	defaultMaxRows            = 5000
)

// ClassifierRule maps a case-insensitive substring to a category.
type ClassifierRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

// Config defines debtor import configuration.
type Config struct {
	FailurePolicy      FailurePolicy       `yaml:"failure_policy"`
	ReceivableAccount  string              `yaml:"receivable_account"`
	RevenueAccount     string              `yaml:"revenue_account"`
	DuplicateTolerance float64             `yaml:"duplicate_tolerance"`
	AuditErrorLimit    int                 `yaml:"audit_error_limit"`
	MaxRows            int                 `yaml:"max_rows"`
	Headers            map[string][]string `yaml:"headers"`
	Classifier         []ClassifierRule    `yaml:"classifier"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		FailurePolicy:      PolicyAllOrNothing,
		ReceivableAccount:  defaultReceivableAccount,
		RevenueAccount:     defaultRevenueAccount,
		DuplicateTolerance: defaultDuplicateTolerance,
		AuditErrorLimit:    defaultAuditErrorLimit,
		MaxRows:            defaultMaxRows,
		Classifier:         DefaultClassifierRules(),
	}
}

// LoadConfig loads config from the yaml file named by DEBTOR_IMPORT_CONFIG
// (optional) and applies env overrides.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(os.Getenv("DEBTOR_IMPORT_CONFIG"))
}

// LoadConfigFrom loads config from a yaml path (empty = defaults only) and
// applies env overrides.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("debtor import config: %w", err)
		}
	}

	if value := os.Getenv("DEBTOR_IMPORT_FAILURE_POLICY"); value != "" {
		cfg.FailurePolicy = FailurePolicy(value)
	}
	cfg.ReceivableAccount = getenvDefault("DEBTOR_IMPORT_AR_ACCOUNT", cfg.ReceivableAccount)
	cfg.RevenueAccount = getenvDefault("DEBTOR_IMPORT_REVENUE_ACCOUNT", cfg.RevenueAccount)
	cfg.MaxRows = getenvIntDefault("DEBTOR_IMPORT_MAX_ROWS", cfg.MaxRows)

	if len(cfg.Classifier) == 0 {
		cfg.Classifier = DefaultClassifierRules()
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	switch c.FailurePolicy {
	case PolicyAllOrNothing, PolicySkipAndContinue:
	default:
		return fmt.Errorf("debtor import config: unknown failure policy %q", c.FailurePolicy)
	}
	if c.ReceivableAccount == "" || c.RevenueAccount == "" {
		return errors.New("debtor import config: receivable and revenue accounts required")
	}
	if c.ReceivableAccount == c.RevenueAccount {
		return errors.New("debtor import config: receivable and revenue accounts must differ")
	}
	if c.DuplicateTolerance < 0 {
		return errors.New("debtor import config: negative duplicate tolerance")
	}
	for i, rule := range c.Classifier {
		if rule.Pattern == "" {
			return fmt.Errorf("debtor import config: classifier rule %d: empty pattern", i)
		}
		if _, ok := debtorimport.ParseCategory(rule.Category); !ok {
			return fmt.Errorf("debtor import config: classifier rule %d: unknown category %q", i, rule.Category)
		}
	}
	return nil
}

// Accounts returns the ledger accounts imported bills post to.
func (c Config) Accounts() debtorimport.Accounts {
	return debtorimport.Accounts{Receivable: c.ReceivableAccount, Revenue: c.RevenueAccount}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
