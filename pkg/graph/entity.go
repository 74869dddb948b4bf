// Package graph wraps store handles in typed entities. Every entity kind
// knows its label and primary attribute; creation always goes through an
// existence check or a store level merge.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

var (
	// ErrExists is returned by Create for kinds that are not merge-safe
	// when the vertex is already present.
	ErrExists = errors.New("entity already exists")
	// ErrNoEdge is returned by SetDate before the entity linked anything.
	ErrNoEdge = errors.New("entity has no edge to date")
	// ErrMissing is returned when a mutation targets an entity that was
	// neither fetched nor created.
	ErrMissing = errors.New("entity does not exist")
)

// Vertex labels.
const (
	LabelNamedEntity         = "Named Entity"
	LabelMP                  = "Member of Parliament"
	LabelLord                = "Lord"
	LabelGovernmentOffice    = "Government Office"
	LabelGovernmentDept      = "Government Department"
	LabelGovernmentPosition  = "Government Position"
	LabelContributor         = "Contributor"
	LabelDonor               = "Donor"
	LabelDonationRecipient   = "Donation Recipient"
	LabelPoliticalParty      = "Political Party"
	LabelInterestCategory    = "Interest Category"
	LabelRegisteredInterest  = "Registered Interest"
	LabelRemuneration        = "Remuneration"
	LabelRegisteredFunding   = "Registered Funding"
	LabelElectedTerm         = "Elected Term"
	LabelFundingRelationship = "Funding Relationship"

	// FlagRegisteredInterest marks contributors declared in the register.
	FlagRegisteredInterest = "REGISTERED_INTEREST"
)

// Edge types.
const (
	EdgeRepresentativeFor     = store.EdgeRepresentativeFor
	EdgeServedIn              = store.EdgeServedIn
	EdgeElectedFor            = store.EdgeElectedFor
	EdgeInPosition            = "IN_POSITION"
	EdgeMemberOf              = "MEMBER_OF"
	EdgeInterestsRegisteredIn = "INTERESTS_REGISTERED_IN"
	EdgeAlsoKnownAs           = "ALSO_KNOWN_AS"
	EdgeRemuneration          = "REMUNERATION"
	EdgeRegisteredInterest    = "REGISTERED_INTEREST"
	EdgeFundingCategory       = "FUNDING_CATEGORY"
	EdgeDonationFrom          = "DONATION_FROM"
	EdgeFunding               = "FUNDING"
)

// Edge date roles.
const (
	DateRegistered   = "REGISTERED"
	DateReceived     = "RECEIVED"
	DateReported     = "REPORTED"
	DateAccepted     = "ACCEPTED"
	DateEnteredHouse = "ENTERED_HOUSE"
	DateLeftHouse    = "LEFT_HOUSE"
)

// RawRecordSeparator joins the fragments of an append-only raw record.
const RawRecordSeparator = "\n---\n\n"

// Entity is the common part of every entity kind.
type Entity struct {
	store     store.Store
	key       store.Key
	labels    []string
	mergeSafe bool

	handle   store.Handle
	exists   bool
	lastEdge store.EdgeID
	hasEdge  bool
}

func newEntity(s store.Store, label, attribute, value string, labels ...string) *Entity {
	return &Entity{
		store:  s,
		key:    store.Key{Label: label, Attribute: attribute, Value: value},
		labels: labels,
	}
}

// Key returns the address of the entity.
func (e *Entity) Key() store.Key { return e.key }

// Name returns the primary attribute value.
func (e *Entity) Name() string { return e.key.Value }

// Handle returns the bound store handle. It is zero until the entity was
// fetched or created.
func (e *Entity) Handle() store.Handle { return e.handle }

// Exists reports whether the entity is bound to a vertex.
func (e *Entity) Exists() bool { return e.exists }

// LastEdge returns the most recently linked edge.
func (e *Entity) LastEdge() (store.EdgeID, bool) { return e.lastEdge, e.hasEdge }

// Fetch binds the entity to its vertex if present. A miss is not an error.
func (e *Entity) Fetch(ctx context.Context) (bool, error) {
	h, ok, err := e.store.Lookup(ctx, e.key)
	if err != nil {
		return false, err
	}
	e.handle, e.exists = h, ok
	return ok, nil
}

// Create creates the vertex. Kinds that are not merge-safe fail with
// ErrExists when it is already present.
func (e *Entity) Create(ctx context.Context) error {
	if e.mergeSafe {
		h, err := e.store.Merge(ctx, e.key)
		if err != nil {
			return err
		}
		e.handle, e.exists = h, true
		return e.addKindLabels(ctx)
	}

	if e.exists {
		return fmt.Errorf("%s: %w", e.key, ErrExists)
	}
	h, created, err := e.store.Upsert(ctx, e.key)
	if err != nil {
		return err
	}
	e.handle, e.exists = h, true
	if !created {
		return fmt.Errorf("%s: %w", e.key, ErrExists)
	}
	return e.addKindLabels(ctx)
}

// FetchOrCreate binds the entity, creating the vertex on a miss.
func (e *Entity) FetchOrCreate(ctx context.Context) (bool, error) {
	ok, err := e.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := e.Create(ctx); err != nil {
		if errors.Is(err, ErrExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Entity) addKindLabels(ctx context.Context) error {
	if len(e.labels) == 0 {
		return nil
	}
	return e.store.AddLabels(ctx, e.handle, e.labels...)
}

// Update merges props into the vertex and adds extraLabels.
func (e *Entity) Update(ctx context.Context, props map[string]any, extraLabels ...string) error {
	if !e.exists {
		return fmt.Errorf("update %s: %w", e.key, ErrMissing)
	}
	if len(props) > 0 {
		if err := e.store.SetProperties(ctx, e.handle, props); err != nil {
			return err
		}
	}
	if len(extraLabels) > 0 {
		return e.store.AddLabels(ctx, e.handle, extraLabels...)
	}
	return nil
}

// Properties returns the current vertex properties.
func (e *Entity) Properties(ctx context.Context) (map[string]any, error) {
	if !e.exists {
		return map[string]any{}, nil
	}
	return e.store.Properties(ctx, e.handle)
}

// Labels returns the labels of the vertex.
func (e *Entity) Labels(ctx context.Context) ([]string, error) {
	if !e.exists {
		return nil, nil
	}
	return e.store.Labels(ctx, e.handle)
}

// Link creates an edge of edgeType from e to other and remembers it for SetDate.
func (e *Entity) Link(ctx context.Context, other *Entity, edgeType string) (store.EdgeID, error) {
	if !e.exists {
		return 0, fmt.Errorf("link from %s: %w", e.key, ErrMissing)
	}
	if !other.exists {
		return 0, fmt.Errorf("link to %s: %w", other.key, ErrMissing)
	}
	id, err := e.store.Link(ctx, e.handle, other.handle, edgeType)
	if err != nil {
		return 0, err
	}
	e.lastEdge, e.hasEdge = id, true
	return id, nil
}

// SetDate tags the most recently linked edge with a dated role. Empty
// dates are ignored.
func (e *Entity) SetDate(ctx context.Context, date, role string) error {
	if !e.hasEdge {
		return fmt.Errorf("%s: %w", e.key, ErrNoEdge)
	}
	return e.SetEdgeDate(ctx, e.lastEdge, date, role)
}

// SetEdgeDate tags edge with a dated role. Empty dates are ignored.
func (e *Entity) SetEdgeDate(ctx context.Context, edge store.EdgeID, date, role string) error {
	if date == "" {
		return nil
	}
	return e.store.SetEdgeDate(ctx, edge, role, date)
}
