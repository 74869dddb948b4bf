// Package extract turns raw declaration records into structured facts.
//
// Every declaration category is handled by a Strategy registered under the
// category name. Strategies share the pure helpers in this package and the
// organization name resolution of Extractor.
package extract

import (
	"context"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/influence/pkg/common"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/ner"
)

// DefaultAliases are organization names the entity extractor is known to miss.
var DefaultAliases = []string{"Mirror Group Newspapers"}

// Strategy parses a single record of one declaration category.
type Strategy interface {
	Extract(ctx context.Context, e *Extractor, record []string) []common.Fact
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, e *Extractor, record []string) []common.Fact

// Extract calls f.
func (f StrategyFunc) Extract(ctx context.Context, e *Extractor, record []string) []common.Fact {
	return f(ctx, e, record)
}

// Registry maps category names to strategies. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register binds name to s, replacing any previous strategy.
func (r *Registry) Register(name string, s Strategy) {
	r.mu.Lock()
	r.strategies[name] = s
	r.mu.Unlock()
}

// Lookup returns the strategy registered for name.
func (r *Registry) Lookup(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Categories returns the registered category names.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// Extractor dispatches records to category strategies.
type Extractor struct {
	entities ner.EntityExtractor
	aliases  []string
	registry *Registry
}

// NewExtractorParams configures an Extractor. Nil or empty fields fall back
// to ner.Noop, DefaultAliases and DefaultRegistry.
type NewExtractorParams struct {
	Entities ner.EntityExtractor
	Aliases  []string
	Registry *Registry
}

// NewExtractor creates a new Extractor.
func NewExtractor(params NewExtractorParams) *Extractor {
	e := &Extractor{
		entities: params.Entities,
		aliases:  params.Aliases,
		registry: params.Registry,
	}
	if e.entities == nil {
		e.entities = ner.Noop{}
	}
	if len(e.aliases) == 0 {
		e.aliases = DefaultAliases
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	return e
}

// Supports reports whether a strategy is registered for categoryName.
func (e *Extractor) Supports(categoryName string) bool {
	_, ok := e.registry.Lookup(categoryName)
	return ok
}

// Extract parses one record of categoryName. The boolean is false when the
// category is unknown; the record is then logged and skipped.
func (e *Extractor) Extract(ctx context.Context, categoryName string, record []string) ([]common.Fact, bool) {
	strategy, ok := e.registry.Lookup(categoryName)
	if !ok {
		logger.Warn("[Extract] Unrecognized category, skipping record", "category", categoryName)
		return nil, false
	}
	if len(record) == 0 {
		return nil, true
	}

	facts := strategy.Extract(ctx, e, record)
	for i := range facts {
		facts[i].Category = categoryName
	}
	return facts, true
}

// ExtractCategory parses every record of category in order.
func (e *Extractor) ExtractCategory(ctx context.Context, category common.Category) ([]common.Fact, bool) {
	if _, ok := e.registry.Lookup(category.Name); !ok {
		logger.Warn("[Extract] Unrecognized category, skipping", "category", category.Name, "records", len(category.Records))
		return nil, false
	}

	var facts []common.Fact
	for _, record := range category.Records {
		f, _ := e.Extract(ctx, category.Name, record)
		facts = append(facts, f...)
	}
	return facts, true
}

// Entities returns the entity extractor candidates for line. Extractor
// failures are logged and treated as no candidates.
func (e *Extractor) Entities(ctx context.Context, line string) []string {
	entities, err := e.entities.GetEntities(ctx, line)
	if err != nil {
		logger.Warn("[Extract] Entity extraction failed", "line", line, "err", err)
		return nil
	}
	return entities
}

// FindCompany resolves the organization named in line, or returns the empty
// string. Known aliases win, then a "name; description" clause pair, then
// the entity extractor candidates.
func (e *Extractor) FindCompany(ctx context.Context, line string) string {
	name := ""
	for _, alias := range e.aliases {
		if strings.Contains(line, alias) {
			name = alias
		}
	}
	if name != "" {
		return name
	}

	if strings.Contains(line, ";") {
		clauses := strings.Split(strings.TrimRight(StripAsides(line), ";"), ";")
		if len(clauses) != 2 {
			return ""
		}
		first, _, _ := strings.Cut(line, ";")
		first = strings.TrimRight(strings.TrimSpace(first), ".")
		return strings.TrimSpace(StripAsides(first))
	}

	return pickCandidate(e.Entities(ctx, line))
}

func pickCandidate(candidates []string) string {
	fallback := ""
	for _, guess := range candidates {
		if len(guess) < 3 || guess == "Sole" {
			continue
		}
		l := strings.ToLower(guess)
		if strings.Contains(l, "plc") || strings.Contains(l, "ltd") || strings.Contains(l, "limited") {
			return guess
		}
		if fallback == "" {
			fallback = guess
		}
	}
	return fallback
}

// resolveDonor resolves the donor of a "Name of donor: ..." line. When no
// organization is recognized the text after the colon is used.
func (e *Extractor) resolveDonor(ctx context.Context, line string) string {
	if name := e.FindCompany(ctx, line); name != "" {
		return name
	}
	return ValueAfterColon(line)
}

func unresolved(strategy string, record []string) {
	logger.Warn("[Extract] Could not resolve organization name", "strategy", strategy, "record", strings.Join(record, " | "))
}
