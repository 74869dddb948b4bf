// Package store defines the property graph boundary the graph model is
// written against. Vertices are addressed by a label and a primary attribute
// value; the store hands out opaque handles for them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable wraps failures to reach the backing store. A pipeline
	// run must stop when it sees this error.
	ErrUnavailable = errors.New("graph store unavailable")
	// ErrNotFound is returned for unknown handles or edges.
	ErrNotFound = errors.New("graph element not found")
)

// Traversal vocabulary shared by every backend's ActiveOffices.
const (
	EdgeElectedFor        = "ELECTED_FOR"
	EdgeRepresentativeFor = "REPRESENTATIVE_FOR"
	EdgeServedIn          = "SERVED_IN"

	LeftReasonProperty = "left_reason"
	StillInOffice      = "still_in_office"
)

// Handle is a store assigned vertex identifier. Zero is never a valid handle.
type Handle int64

// EdgeID is a store assigned edge identifier.
type EdgeID int64

// Key addresses a vertex by one of its labels and its primary attribute.
type Key struct {
	Label     string
	Attribute string
	Value     string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s {%s: %q})", k.Label, k.Attribute, k.Value)
}

// Stats counts the elements of a graph.
type Stats struct {
	Vertices int64 `json:"vertices"`
	Edges    int64 `json:"edges"`
}

// Store is implemented by the memory, PostgreSQL and Neo4j backends.
type Store interface {
	// Lookup finds the vertex carrying key.Label with the given primary value.
	Lookup(ctx context.Context, key Key) (Handle, bool, error)
	// Upsert returns the vertex for key, creating it if needed. The boolean
	// reports whether it was created by this call.
	Upsert(ctx context.Context, key Key) (Handle, bool, error)
	// Merge is a single round trip merge-by-key.
	Merge(ctx context.Context, key Key) (Handle, error)

	Properties(ctx context.Context, h Handle) (map[string]any, error)
	// SetProperties merges props into the vertex. Nil values are stored as null.
	SetProperties(ctx context.Context, h Handle, props map[string]any) error
	AddLabels(ctx context.Context, h Handle, labels ...string) error
	Labels(ctx context.Context, h Handle) ([]string, error)

	// Link creates a typed edge. Linking the same pair with the same type
	// again returns the existing edge.
	Link(ctx context.Context, from, to Handle, edgeType string) (EdgeID, error)
	SetEdgeDate(ctx context.Context, edge EdgeID, role, date string) error
	EdgeDates(ctx context.Context, edge EdgeID) (map[string]string, error)

	// AppendLog appends fragment to the string property, separated by sep.
	// Fragments already present are not appended again; the boolean
	// reports whether the property changed.
	AppendLog(ctx context.Context, h Handle, property, fragment, sep string) (bool, error)

	// ActiveOffices returns the names of the vertices labelled officeLabel
	// that are SERVED_IN by a still active term of the politician.
	ActiveOffices(ctx context.Context, politician Handle, officeLabel string) ([]string, error)
	// Neighbours returns the primary values of the vertices carrying label
	// that h links to with edgeType.
	Neighbours(ctx context.Context, h Handle, edgeType, label string) ([]string, error)

	Counts(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}

// AppendFragment returns existing extended by fragment. The boolean is false
// when fragment is already one of the sep separated entries of existing.
func AppendFragment(existing, fragment, sep string) (string, bool) {
	if existing == "" {
		return fragment, fragment != ""
	}
	for _, part := range strings.Split(existing, sep) {
		if part == fragment {
			return existing, false
		}
	}
	return existing + sep + fragment, true
}

// Unavailable marks err as a connectivity failure.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
