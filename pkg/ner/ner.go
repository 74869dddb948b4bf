// Package ner provides the named entity recognition adapters the fact
// extractor consumes. Only candidate organization and place names are
// returned, ordered as they appear in the text.
package ner

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// EntityExtractor returns candidate organization or location names found in text.
type EntityExtractor interface {
	GetEntities(ctx context.Context, text string) ([]string, error)
}

// Noop never finds anything. It is used for dry runs where only the
// deterministic rules (aliases, semicolon clauses) should resolve names.
type Noop struct{}

// GetEntities always returns no candidates.
func (Noop) GetEntities(context.Context, string) ([]string, error) {
	return nil, nil
}

// Static answers from a fixed table keyed by the exact input line. Lines that
// are missing from the table yield no candidates.
type Static map[string][]string

// GetEntities returns the table entry for text.
func (s Static) GetEntities(_ context.Context, text string) ([]string, error) {
	return s[text], nil
}

// CachedExtractor memoizes another extractor. Concurrent lookups of the same
// line collapse into a single upstream call. Errors are not cached.
type CachedExtractor struct {
	next EntityExtractor

	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCachedExtractor wraps next with an in-process cache.
func NewCachedExtractor(next EntityExtractor) *CachedExtractor {
	return &CachedExtractor{
		next:  next,
		cache: make(map[string][]string),
	}
}

// GetEntities returns cached candidates for text or asks the wrapped extractor.
func (c *CachedExtractor) GetEntities(ctx context.Context, text string) ([]string, error) {
	key := strings.TrimSpace(text)

	c.cacheMu.RLock()
	if cached, ok := c.cache[key]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.cacheMu.RLock()
		if cached, ok := c.cache[key]; ok {
			c.cacheMu.RUnlock()
			return cached, nil
		}
		c.cacheMu.RUnlock()

		entities, err := c.next.GetEntities(ctx, text)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[key] = entities
		c.cacheMu.Unlock()

		return entities, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}
