package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

// Politician kinds in a PoliticianView.
const (
	KindMP   = "mp"
	KindLord = "lord"
)

// PoliticianView is the read model of a politician. Positions and
// departments are derived from the terms at read time.
type PoliticianView struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Party       string         `json:"party,omitempty"`
	Labels      []string       `json:"labels"`
	AlsoKnownAs []string       `json:"also_known_as,omitempty"`
	Positions   []string       `json:"government_positions,omitempty"`
	Departments []string       `json:"government_departments,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Influences  Influences     `json:"influences"`
}

// Influences counts the declared relationships of a politician.
type Influences struct {
	InterestCategories   int `json:"register"`
	FundingRelationships int `json:"ec"`
}

// DescribePolitician builds the view of the MP or, failing that, the Lord
// called name. It returns ErrMissing if neither exists.
func DescribePolitician(ctx context.Context, s store.Store, name string) (PoliticianView, error) {
	p, kind, err := findPolitician(ctx, s, name)
	if err != nil {
		return PoliticianView{}, err
	}

	labels, err := p.Labels(ctx)
	if err != nil {
		return PoliticianView{}, fmt.Errorf("labels: %w", err)
	}
	labels = slices.DeleteFunc(labels, func(l string) bool { return l == LabelNamedEntity })

	props, err := p.Properties(ctx)
	if err != nil {
		return PoliticianView{}, fmt.Errorf("properties: %w", err)
	}
	delete(props, "name")

	view := PoliticianView{
		Name:       name,
		Type:       kind,
		Labels:     labels,
		Properties: props,
	}

	parties, err := s.Neighbours(ctx, p.Handle(), EdgeMemberOf, LabelPoliticalParty)
	if err != nil {
		return PoliticianView{}, fmt.Errorf("party: %w", err)
	}
	if len(parties) > 0 {
		view.Party = parties[len(parties)-1]
	}

	if view.AlsoKnownAs, err = s.Neighbours(ctx, p.Handle(), EdgeAlsoKnownAs, LabelNamedEntity); err != nil {
		return PoliticianView{}, fmt.Errorf("alternate names: %w", err)
	}

	categories, err := s.Neighbours(ctx, p.Handle(), EdgeInterestsRegisteredIn, LabelInterestCategory)
	if err != nil {
		return PoliticianView{}, fmt.Errorf("interest categories: %w", err)
	}
	view.Influences.InterestCategories = len(categories)

	funding, err := fundingRelationships(ctx, s, p, name)
	if err != nil {
		return PoliticianView{}, err
	}
	view.Influences.FundingRelationships = len(funding)

	if kind == KindMP {
		if view.Positions, err = p.Positions(ctx); err != nil {
			return PoliticianView{}, fmt.Errorf("positions: %w", err)
		}
		if view.Departments, err = p.Departments(ctx); err != nil {
			return PoliticianView{}, fmt.Errorf("departments: %w", err)
		}
	}
	return view, nil
}

func findPolitician(ctx context.Context, s store.Store, name string) (*Politician, string, error) {
	mp := NewMP(s, name)
	ok, err := mp.Fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return mp, KindMP, nil
	}

	lord := NewLord(s, name)
	ok, err = lord.Fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return lord, KindLord, nil
	}
	return nil, "", fmt.Errorf("politician %q: %w", name, ErrMissing)
}

// fundingRelationships collects the funding categories linked from the
// politician and from the donation recipient of the same name.
func fundingRelationships(ctx context.Context, s store.Store, p *Politician, name string) ([]string, error) {
	out, err := s.Neighbours(ctx, p.Handle(), EdgeFundingCategory, LabelFundingRelationship)
	if err != nil {
		return nil, fmt.Errorf("funding relationships: %w", err)
	}

	recipient := NewDonationRecipient(s, name)
	ok, err := recipient.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("donation recipient: %w", err)
	}
	if !ok {
		return out, nil
	}
	more, err := s.Neighbours(ctx, recipient.Handle(), EdgeFundingCategory, LabelFundingRelationship)
	if err != nil {
		return nil, fmt.Errorf("funding relationships: %w", err)
	}
	for _, m := range more {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out, nil
}
