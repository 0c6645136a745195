package filter

import (
	"fmt"
	"strings"

	"dbaccountsync/config"
	"dbaccountsync/models"
	"dbaccountsync/pkg/logger"
)

// PlaceholderStyle selects the bind-parameter syntax of the target engine.
type PlaceholderStyle int

// Placeholder styles per engine driver.
const (
	PlaceholderQuestion PlaceholderStyle = iota // MySQL: ?
	PlaceholderDollar                           // PostgreSQL: $1
	PlaceholderAt                               // SQL Server: @p1
	PlaceholderColon                            // Oracle: :1
)

// Rules holds the exclusion rules for one engine: literal usernames and
// wildcard patterns (* matches any run, ? matches one character).
type Rules struct {
	ExcludeUsernames []string
	ExcludePatterns  []string
}

// Provider is the read-only per-engine exclusion rule lookup, built once at
// startup. Missing or malformed configuration fails construction, never a
// per-run query.
type Provider struct {
	rules map[models.Engine]Rules
}

var knownEngines = []models.Engine{
	models.EngineMySQL,
	models.EnginePostgreSQL,
	models.EngineSQLServer,
	models.EngineOracle,
}

// NewProvider builds a provider from loaded application configuration.
// Every configured engine key must be a known engine identifier and every
// rule entry must be non-empty after trimming.
func NewProvider(cfg *config.AppConfig) (*Provider, error) {
	if cfg.ExcludeUsers == nil || cfg.ExcludePatterns == nil {
		return nil, fmt.Errorf("filter rules not loaded: call config.LoadConfig first")
	}

	rules := map[models.Engine]Rules{}
	for _, engine := range knownEngines {
		users, err := cleanRuleEntries(cfg.ExcludeUsers[engine.String()])
		if err != nil {
			return nil, fmt.Errorf("invalid exclude_usernames for engine %s: %w", engine, err)
		}
		patterns, err := cleanRuleEntries(cfg.ExcludePatterns[engine.String()])
		if err != nil {
			return nil, fmt.Errorf("invalid exclude_patterns for engine %s: %w", engine, err)
		}
		rules[engine] = Rules{ExcludeUsernames: users, ExcludePatterns: patterns}
	}

	for key := range cfg.ExcludeUsers {
		if !isKnownEngine(key) {
			return nil, fmt.Errorf("exclusion rules reference unknown engine %q", key)
		}
	}
	for key := range cfg.ExcludePatterns {
		if !isKnownEngine(key) {
			return nil, fmt.Errorf("exclusion patterns reference unknown engine %q", key)
		}
	}

	return &Provider{rules: rules}, nil
}

func isKnownEngine(key string) bool {
	for _, e := range knownEngines {
		if e.String() == key {
			return true
		}
	}
	return false
}

func cleanRuleEntries(entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			return nil, fmt.Errorf("empty rule entry")
		}
		out = append(out, trimmed)
	}
	return out, nil
}

// RulesFor returns the exclusion rules for an engine. Engines with no rules
// configured get the empty rule set.
func (p *Provider) RulesFor(engine models.Engine) Rules {
	return p.rules[engine]
}

// Package-level cache, populated once by Load during startup.
var defaultProvider *Provider

// Load builds the package-level provider from global configuration.
// Called once at engine startup; malformed rules are fatal here, not per run.
func Load() error {
	p, err := NewProvider(&config.Cfg)
	if err != nil {
		return fmt.Errorf("failed to load filter rules: %w", err)
	}
	defaultProvider = p

	total := 0
	for _, engine := range knownEngines {
		r := p.RulesFor(engine)
		total += len(r.ExcludeUsernames) + len(r.ExcludePatterns)
	}
	logger.Infof("Loaded %d account exclusion rules across %d engines", total, len(knownEngines))
	return nil
}

// Use replaces the package-level provider. Intended for tests and embedders
// that construct their own provider.
func Use(p *Provider) {
	defaultProvider = p
}

// RulesFor returns the exclusion rules for an engine from the package-level
// provider. Before Load it returns the empty rule set.
func RulesFor(engine models.Engine) Rules {
	if defaultProvider == nil {
		return Rules{}
	}
	return defaultProvider.RulesFor(engine)
}

// Predicate compiles the rules into a parameterized SQL fragment excluding
// matching values of column, starting bind numbering at 1.
func (r Rules) Predicate(column string, style PlaceholderStyle) (string, []interface{}) {
	return r.PredicateFrom(column, style, 1)
}

// PredicateFrom compiles the rules into a parameterized SQL fragment with
// bind numbering starting at start. The returned clause is always a valid
// boolean expression ("1=1" when no rules exist) and the values are returned
// as bind arguments so callers never interpolate rule text into query text.
func (r Rules) PredicateFrom(column string, style PlaceholderStyle, start int) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}
	n := start

	if len(r.ExcludeUsernames) > 0 {
		holders := make([]string, 0, len(r.ExcludeUsernames))
		for _, name := range r.ExcludeUsernames {
			holders = append(holders, placeholder(style, n))
			args = append(args, name)
			n++
		}
		clauses = append(clauses, fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(holders, ", ")))
	}

	for _, pattern := range r.ExcludePatterns {
		clauses = append(clauses, fmt.Sprintf("%s NOT LIKE %s", column, placeholder(style, n)))
		args = append(args, wildcardToLike(pattern))
		n++
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

func placeholder(style PlaceholderStyle, n int) string {
	switch style {
	case PlaceholderDollar:
		return fmt.Sprintf("$%d", n)
	case PlaceholderAt:
		return fmt.Sprintf("@p%d", n)
	case PlaceholderColon:
		return fmt.Sprintf(":%d", n)
	default:
		return "?"
	}
}

// wildcardToLike translates the rule wildcard syntax into a LIKE pattern.
// Only * and ? are special in rule patterns; everything else passes through
// unchanged, which keeps the pattern portable across all four engines.
func wildcardToLike(pattern string) string {
	var b strings.Builder
	for _, ch := range pattern {
		switch ch {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
