package io

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/influence/pkg/staging"

	"golang.org/x/sync/singleflight"
)

// DirFileStore reads staged files from a local directory with caching.
type DirFileStore struct {
	root string

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewDirFileStore creates a file store rooted at dir.
func NewDirFileStore(dir string) *DirFileStore {
	return &DirFileStore{
		root:  dir,
		cache: make(map[string][]byte),
	}
}

// NewSource is a staging source over the directory dir.
func NewSource(dir string) *staging.FileSource {
	return staging.NewFileSource(NewDirFileStore(dir))
}

// List returns the regular files directly below prefix. A missing prefix
// directory is an empty listing.
func (s *DirFileStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, prefix))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, filepath.ToSlash(filepath.Join(prefix, e.Name())))
		}
	}
	slices.Sort(names)
	return names, nil
}

// Get reads a file relative to the root. Results are cached.
func (s *DirFileStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[name]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(name, func() (any, error) {
		s.cacheMu.RLock()
		if cached, ok := s.cache[name]; ok {
			s.cacheMu.RUnlock()
			return cached, nil
		}
		s.cacheMu.RUnlock()

		result, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(name)))
		if err != nil {
			return nil, err
		}

		s.cacheMu.Lock()
		s.cache[name] = result
		s.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
