package graph

import (
	"context"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

// NamedEntity is the base kind every named vertex also carries.
type NamedEntity struct{ *Entity }

// NewNamedEntity addresses a bare named entity, e.g. an alternate name.
func NewNamedEntity(s store.Store, name string) *NamedEntity {
	return &NamedEntity{newEntity(s, LabelNamedEntity, "name", name)}
}

// GovernmentOffice is a department or a position, decided after creation.
type GovernmentOffice struct{ *Entity }

// NewGovernmentOffice addresses an office by name.
func NewGovernmentOffice(s store.Store, name string) *GovernmentOffice {
	return &GovernmentOffice{newEntity(s, LabelGovernmentOffice, "name", name, LabelNamedEntity)}
}

// IsDepartment labels the office as a government department.
func (o *GovernmentOffice) IsDepartment(ctx context.Context) error {
	return o.Update(ctx, nil, LabelGovernmentDept)
}

// IsPosition labels the office as a government position.
func (o *GovernmentOffice) IsPosition(ctx context.Context) error {
	return o.Update(ctx, nil, LabelGovernmentPosition)
}

// Contributor is the source of a registered interest.
type Contributor struct{ *Entity }

// NewContributor addresses a contributor by name.
func NewContributor(s store.Store, name string) *Contributor {
	return &Contributor{newEntity(s, LabelContributor, "name", name, LabelNamedEntity)}
}

// IsRegisteredInterest flags the contributor as declared in the register.
func (c *Contributor) IsRegisteredInterest(ctx context.Context) error {
	return c.Update(ctx, nil, FlagRegisteredInterest)
}

// LinkPayment links a remuneration paid by the contributor.
func (c *Contributor) LinkPayment(ctx context.Context, payment *Remuneration) (store.EdgeID, error) {
	return c.Link(ctx, payment.Entity, EdgeRemuneration)
}

// Donor is an Electoral Commission donor.
type Donor struct{ *Entity }

// NewDonor addresses a donor by name.
func NewDonor(s store.Store, name string) *Donor {
	return &Donor{newEntity(s, LabelDonor, "name", name, LabelNamedEntity)}
}

// DonationRecipient is whoever received a reported donation.
type DonationRecipient struct{ *Entity }

// NewDonationRecipient addresses a recipient by name.
func NewDonationRecipient(s store.Store, name string) *DonationRecipient {
	return &DonationRecipient{newEntity(s, LabelDonationRecipient, "name", name, LabelNamedEntity)}
}

// LinkFundingCategory links the recipient to its donor pairing.
func (r *DonationRecipient) LinkFundingCategory(ctx context.Context, category *FundingRelationship) (store.EdgeID, error) {
	return r.Link(ctx, category.Entity, EdgeFundingCategory)
}

// PoliticalParty is a party politicians are members of.
type PoliticalParty struct{ *Entity }

// NewPoliticalParty addresses parties as named entities so a party that was
// first seen elsewhere is reused.
func NewPoliticalParty(s store.Store, name string) *PoliticalParty {
	return &PoliticalParty{newEntity(s, LabelNamedEntity, "name", name, LabelPoliticalParty)}
}

// InterestCategory groups the registered interests one member declared in
// one category.
type InterestCategory struct{ *Entity }

// NewInterestCategory addresses a category by its "{member} - {category}" name.
func NewInterestCategory(s store.Store, name string) *InterestCategory {
	return &InterestCategory{newEntity(s, LabelInterestCategory, "name", name, LabelNamedEntity)}
}

// LinkInterest links a registered interest into the category.
func (c *InterestCategory) LinkInterest(ctx context.Context, interest *RegisteredInterest) (store.EdgeID, error) {
	return c.Link(ctx, interest.Entity, EdgeRegisteredInterest)
}

// FundingRelationship pairs a donor with a recipient. Its key is
// "{donor} and {recipient}".
type FundingRelationship struct{ *Entity }

// NewFundingRelationship addresses the pairing of donor and recipient.
func NewFundingRelationship(s store.Store, donor, recipient string) *FundingRelationship {
	return &FundingRelationship{newEntity(s, LabelFundingRelationship, "name", donor+" and "+recipient, LabelNamedEntity)}
}

// LinkDonor links the pairing to its donor.
func (f *FundingRelationship) LinkDonor(ctx context.Context, donor *Donor) (store.EdgeID, error) {
	return f.Link(ctx, donor.Entity, EdgeDonationFrom)
}

// LinkFunding links a reported donation to the pairing.
func (f *FundingRelationship) LinkFunding(ctx context.Context, funding *RegisteredFunding) (store.EdgeID, error) {
	return f.Link(ctx, funding.Entity, EdgeFunding)
}
