package graph

import (
	"context"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

// Politician is a Member of Parliament or a Lord.
type Politician struct{ *Entity }

// NewMP addresses a Member of Parliament by name.
func NewMP(s store.Store, name string) *Politician {
	return &Politician{newEntity(s, LabelMP, "name", name, LabelNamedEntity)}
}

// NewLord addresses a member of the House of Lords by name.
func NewLord(s store.Store, name string) *Politician {
	return &Politician{newEntity(s, LabelLord, "name", name, LabelNamedEntity)}
}

// UpdateDetails stores the descriptive properties of the politician, e.g.
// party, twfy_id, image_url and weight.
func (p *Politician) UpdateDetails(ctx context.Context, props map[string]any) error {
	return p.Update(ctx, props, LabelNamedEntity, p.key.Label)
}

// LinkPosition links a government position the politician holds.
func (p *Politician) LinkPosition(ctx context.Context, office *GovernmentOffice) (store.EdgeID, error) {
	return p.Link(ctx, office.Entity, EdgeInPosition)
}

// LinkDepartment makes the politician a member of a government department.
func (p *Politician) LinkDepartment(ctx context.Context, office *GovernmentOffice) (store.EdgeID, error) {
	return p.Link(ctx, office.Entity, EdgeMemberOf)
}

// LinkInterestCategory links a category of the politician's declared interests.
func (p *Politician) LinkInterestCategory(ctx context.Context, category *InterestCategory) (store.EdgeID, error) {
	return p.Link(ctx, category.Entity, EdgeInterestsRegisteredIn)
}

// LinkAlternate links another name the politician is also known as.
func (p *Politician) LinkAlternate(ctx context.Context, alternate *NamedEntity) (store.EdgeID, error) {
	return p.Link(ctx, alternate.Entity, EdgeAlsoKnownAs)
}

// LinkParty makes the politician a member of the named party, creating the
// party on first use.
func (p *Politician) LinkParty(ctx context.Context, name string) (*PoliticalParty, error) {
	party := NewPoliticalParty(p.store, name)
	if _, err := party.FetchOrCreate(ctx); err != nil {
		return nil, err
	}
	if err := party.Update(ctx, nil, LabelPoliticalParty); err != nil {
		return nil, err
	}
	if _, err := p.Link(ctx, party.Entity, EdgeMemberOf); err != nil {
		return nil, err
	}
	return party, nil
}

// LinkElectedTerm links a term the politician was elected for.
func (p *Politician) LinkElectedTerm(ctx context.Context, term *TermInParliament) (store.EdgeID, error) {
	return p.Link(ctx, term.Entity, EdgeElectedFor)
}

// LinkFundingCategory links a donor pairing the politician received from.
func (p *Politician) LinkFundingCategory(ctx context.Context, category *FundingRelationship) (store.EdgeID, error) {
	return p.Link(ctx, category.Entity, EdgeFundingCategory)
}

// Positions returns the government positions held in still active terms.
func (p *Politician) Positions(ctx context.Context) ([]string, error) {
	return Positions(ctx, p.store, p.Entity)
}

// Departments returns the government departments served in still active terms.
func (p *Politician) Departments(ctx context.Context) ([]string, error) {
	return Departments(ctx, p.store, p.Entity)
}

// ActiveOffices is computed on every call and never stored on the entity.
// A politician that does not exist has no offices.
func ActiveOffices(ctx context.Context, s store.Store, politician *Entity, officeLabel string) ([]string, error) {
	if politician == nil || !politician.Exists() {
		return []string{}, nil
	}
	return s.ActiveOffices(ctx, politician.Handle(), officeLabel)
}

// Positions returns the government positions of politician in active terms.
func Positions(ctx context.Context, s store.Store, politician *Entity) ([]string, error) {
	return ActiveOffices(ctx, s, politician, LabelGovernmentPosition)
}

// Departments returns the government departments of politician in active terms.
func Departments(ctx context.Context, s store.Store, politician *Entity) ([]string, error) {
	return ActiveOffices(ctx, s, politician, LabelGovernmentDept)
}

// TermInParliament is one elected term of a politician.
type TermInParliament struct{ *Entity }

// NewTermInParliament addresses a term by its term identifier.
func NewTermInParliament(s store.Store, term string) *TermInParliament {
	return &TermInParliament{newEntity(s, LabelElectedTerm, "term", term)}
}

// TermDetails describes how a term started and ended. LeftReason is
// store.StillInOffice for the current term.
type TermDetails struct {
	EnteredHouse string
	LeftHouse    string
	LeftReason   string
}

// UpdateDetails stores the leave reason on the term and dates the edge that
// linked the politician to it.
func (t *TermInParliament) UpdateDetails(ctx context.Context, edge store.EdgeID, details TermDetails) error {
	if details.LeftReason != "" {
		if err := t.Update(ctx, map[string]any{store.LeftReasonProperty: details.LeftReason}); err != nil {
			return err
		}
	}
	if err := t.SetEdgeDate(ctx, edge, details.EnteredHouse, DateEnteredHouse); err != nil {
		return err
	}
	if details.LeftReason != "" && details.LeftReason != store.StillInOffice {
		return t.SetEdgeDate(ctx, edge, details.LeftHouse, DateLeftHouse)
	}
	return nil
}

// LinkPosition links an office served in during the term.
func (t *TermInParliament) LinkPosition(ctx context.Context, office *GovernmentOffice) (store.EdgeID, error) {
	return t.Link(ctx, office.Entity, EdgeServedIn)
}
