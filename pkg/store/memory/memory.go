// Package memory is an arena backed store.Store used for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

type vertex struct {
	key    store.Key
	labels []string
	props  map[string]any
}

type edge struct {
	from, to store.Handle
	typ      string
	dates    map[string]string
}

type edgeKey struct {
	from, to store.Handle
	typ      string
}

// Store keeps the whole graph in slices. Handles are arena indexes plus one.
type Store struct {
	mu sync.RWMutex

	vertices []vertex
	index    map[store.Key]store.Handle

	edges     []edge
	edgeIndex map[edgeKey]store.EdgeID
}

// New returns an empty store.
func New() *Store {
	return &Store{
		index:     make(map[store.Key]store.Handle),
		edgeIndex: make(map[edgeKey]store.EdgeID),
	}
}

func (s *Store) vertex(h store.Handle) (*vertex, error) {
	if h <= 0 || int(h) > len(s.vertices) {
		return nil, fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	return &s.vertices[h-1], nil
}

func (s *Store) edge(id store.EdgeID) (*edge, error) {
	if id <= 0 || int(id) > len(s.edges) {
		return nil, fmt.Errorf("edge %d: %w", id, store.ErrNotFound)
	}
	return &s.edges[id-1], nil
}

func (s *Store) Lookup(_ context.Context, key store.Key) (store.Handle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.index[key]
	return h, ok, nil
}

func (s *Store) Upsert(_ context.Context, key store.Key) (store.Handle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.index[key]; ok {
		return h, false, nil
	}
	return s.insert(key), true, nil
}

func (s *Store) Merge(ctx context.Context, key store.Key) (store.Handle, error) {
	h, _, err := s.Upsert(ctx, key)
	return h, err
}

func (s *Store) insert(key store.Key) store.Handle {
	s.vertices = append(s.vertices, vertex{
		key:    key,
		labels: []string{key.Label},
		props:  map[string]any{key.Attribute: key.Value},
	})
	h := store.Handle(len(s.vertices))
	s.index[key] = h
	return h
}

func (s *Store) Properties(_ context.Context, h store.Handle) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.vertex(h)
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.props), nil
}

func (s *Store) SetProperties(_ context.Context, h store.Handle, props map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.vertex(h)
	if err != nil {
		return err
	}
	for k, val := range props {
		if k == v.key.Attribute {
			continue
		}
		v.props[k] = val
	}
	return nil
}

func (s *Store) AddLabels(_ context.Context, h store.Handle, labels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.vertex(h)
	if err != nil {
		return err
	}
	for _, l := range labels {
		if l == "" || slices.Contains(v.labels, l) {
			continue
		}
		v.labels = append(v.labels, l)
		k := store.Key{Label: l, Attribute: v.key.Attribute, Value: v.key.Value}
		if _, taken := s.index[k]; !taken {
			s.index[k] = h
		}
	}
	return nil
}

func (s *Store) Labels(_ context.Context, h store.Handle) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.vertex(h)
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.labels), nil
}

func (s *Store) Link(_ context.Context, from, to store.Handle, edgeType string) (store.EdgeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.vertex(from); err != nil {
		return 0, err
	}
	if _, err := s.vertex(to); err != nil {
		return 0, err
	}
	k := edgeKey{from: from, to: to, typ: edgeType}
	if id, ok := s.edgeIndex[k]; ok {
		return id, nil
	}
	s.edges = append(s.edges, edge{from: from, to: to, typ: edgeType, dates: map[string]string{}})
	id := store.EdgeID(len(s.edges))
	s.edgeIndex[k] = id
	return id, nil
}

func (s *Store) SetEdgeDate(_ context.Context, id store.EdgeID, role, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.edge(id)
	if err != nil {
		return err
	}
	e.dates[role] = date
	return nil
}

func (s *Store) EdgeDates(_ context.Context, id store.EdgeID) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.edge(id)
	if err != nil {
		return nil, err
	}
	return maps.Clone(e.dates), nil
}

func (s *Store) AppendLog(_ context.Context, h store.Handle, property, fragment, sep string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.vertex(h)
	if err != nil {
		return false, err
	}
	existing, _ := v.props[property].(string)
	next, changed := store.AppendFragment(existing, fragment, sep)
	if changed {
		v.props[property] = next
	}
	return changed, nil
}

func (s *Store) ActiveOffices(_ context.Context, politician store.Handle, officeLabel string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.vertex(politician); err != nil {
		return []string{}, nil
	}

	terms := make(map[store.Handle]struct{})
	for _, e := range s.edges {
		if e.typ != store.EdgeElectedFor && e.typ != store.EdgeRepresentativeFor {
			continue
		}
		var other store.Handle
		switch politician {
		case e.from:
			other = e.to
		case e.to:
			other = e.from
		default:
			continue
		}
		if reason, _ := s.vertices[other-1].props[store.LeftReasonProperty].(string); reason == store.StillInOffice {
			terms[other] = struct{}{}
		}
	}

	offices := []string{}
	for _, e := range s.edges {
		if e.typ != store.EdgeServedIn {
			continue
		}
		var office store.Handle
		if _, ok := terms[e.from]; ok {
			office = e.to
		} else if _, ok := terms[e.to]; ok {
			office = e.from
		} else {
			continue
		}
		v := s.vertices[office-1]
		if !slices.Contains(v.labels, officeLabel) || slices.Contains(offices, v.key.Value) {
			continue
		}
		offices = append(offices, v.key.Value)
	}
	return offices, nil
}

func (s *Store) Neighbours(_ context.Context, h store.Handle, edgeType, label string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.vertex(h); err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range s.edges {
		if e.from != h || e.typ != edgeType {
			continue
		}
		v := s.vertices[e.to-1]
		if label != "" && !slices.Contains(v.labels, label) {
			continue
		}
		out = append(out, v.key.Value)
	}
	return out, nil
}

func (s *Store) Counts(context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{Vertices: int64(len(s.vertices)), Edges: int64(len(s.edges))}, nil
}

// EdgesOfType returns the number of edges with the given type.
func (s *Store) EdgesOfType(edgeType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.edges {
		if e.typ == edgeType {
			n++
		}
	}
	return n
}

// VerticesWithLabel returns the number of vertices carrying label.
func (s *Store) VerticesWithLabel(label string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.vertices {
		if slices.Contains(v.labels, label) {
			n++
		}
	}
	return n
}

func (s *Store) Close(context.Context) error {
	return nil
}

var _ store.Store = (*Store)(nil)
