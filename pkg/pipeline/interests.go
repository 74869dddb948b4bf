package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/common"
	"github.com/OFFIS-RIT/influence/pkg/extract"
	"github.com/OFFIS-RIT/influence/pkg/graph"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/store"
)

// InterestsBuilder links the Register of Members' Financial Interests into
// the graph:
//
//	mp -INTERESTS_REGISTERED_IN-> "{mp} - {category}" -REGISTERED_INTEREST-> interest
//	interest -REMUNERATION-> payment <-REMUNERATION- contributor
type InterestsBuilder struct {
	store     store.Store
	extractor *extract.Extractor
}

func NewInterestsBuilder(s store.Store, extractor *extract.Extractor) *InterestsBuilder {
	if extractor == nil {
		extractor = extract.NewExtractor(extract.NewExtractorParams{})
	}
	return &InterestsBuilder{store: s, extractor: extractor}
}

// CategoryName is the key of the interest category of mp.
func CategoryName(mp, category string) string {
	return fmt.Sprintf("%s - %s", mp, category)
}

// PaymentSummary is the merge key of a payment declared for interest.
func PaymentSummary(mp, interest string, p common.Payment) string {
	return fmt.Sprintf("%s - %s - %s%s - %s", mp, interest, p.Currency, p.Amount, p.Received)
}

// Run applies every record of every document in order.
func (b *InterestsBuilder) Run(ctx context.Context, docs []common.InterestsDocument) (Summary, error) {
	start := time.Now()
	var sum Summary

	for _, doc := range docs {
		logger.Info("[Interests] Processing register", "file", doc.FileName, "members", len(doc.Contents))
		for _, member := range doc.Contents {
			part, err := b.member(ctx, member)
			sum.Add(part)
			if err != nil {
				sum.Duration = time.Since(start)
				return sum, err
			}
		}
	}

	sum.Duration = time.Since(start)
	logSummary("Interests", sum)
	return sum, nil
}

func (b *InterestsBuilder) member(ctx context.Context, member common.MemberInterest) (Summary, error) {
	var sum Summary
	if member.MP == "" {
		for _, c := range member.Interests {
			sum.Skipped += len(c.Records)
		}
		logger.Warn("[Interests] Skipping member without name", "records", sum.Skipped)
		return sum, nil
	}

	mp := graph.NewMP(b.store, member.MP)
	if _, err := mp.FetchOrCreate(ctx); err != nil {
		// Without the politician none of the records can be linked.
		for _, c := range member.Interests {
			sum.Failed += len(c.Records)
		}
		if isFatal(err) {
			return sum, err
		}
		logger.Warn("[Interests] Member failed", "mp", member.MP, "err", err)
		return sum, nil
	}

	for _, c := range member.Interests {
		if !b.extractor.Supports(c.Name) {
			sum.Skipped += len(c.Records)
			logger.Warn("[Interests] Skipping unknown category", "mp", member.MP, "category", c.Name, "records", len(c.Records))
			continue
		}

		category := graph.NewInterestCategory(b.store, CategoryName(member.MP, c.Name))
		if err := b.linkCategory(ctx, mp, category, member.MP, c.Name); err != nil {
			sum.Failed += len(c.Records)
			if isFatal(err) {
				return sum, err
			}
			logger.Warn("[Interests] Category failed", "mp", member.MP, "category", c.Name, "err", err)
			continue
		}

		for i, record := range c.Records {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			facts, _ := b.extractor.Extract(ctx, c.Name, record)
			if len(facts) == 0 {
				sum.Skipped++
				logger.Debug("[Interests] No facts in record", "mp", member.MP, "category", c.Name, "index", i)
				continue
			}
			err := b.applyFacts(ctx, member.MP, category, facts)
			if err := sum.outcome("Interests", err, "mp", member.MP, "category", c.Name, "index", i); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

func (b *InterestsBuilder) linkCategory(ctx context.Context, mp *graph.Politician, category *graph.InterestCategory, name, categoryName string) error {
	if _, err := category.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	if err := category.Update(ctx, map[string]any{
		"mp":       name,
		"category": categoryName,
	}); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if _, err := mp.LinkInterestCategory(ctx, category); err != nil {
		return fmt.Errorf("link category: %w", err)
	}
	return nil
}

func (b *InterestsBuilder) applyFacts(ctx context.Context, mp string, category *graph.InterestCategory, facts []common.Fact) error {
	for _, fact := range facts {
		if err := b.applyFact(ctx, mp, category, fact); err != nil {
			return fmt.Errorf("interest %q: %w", fact.Interest, err)
		}
	}
	return nil
}

func (b *InterestsBuilder) applyFact(ctx context.Context, mp string, category *graph.InterestCategory, fact common.Fact) error {
	interest := graph.NewRegisteredInterest(b.store, fact.Interest)
	if _, err := interest.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve interest: %w", err)
	}
	if err := interest.Update(ctx, factProperties(fact)); err != nil {
		return fmt.Errorf("update interest: %w", err)
	}
	if _, err := interest.UpdateRawRecord(ctx, fact.RawRecord); err != nil {
		return fmt.Errorf("append raw record: %w", err)
	}

	edge, err := category.LinkInterest(ctx, interest)
	if err != nil {
		return fmt.Errorf("link interest: %w", err)
	}
	if err := category.SetEdgeDate(ctx, edge, knownDate(fact.RegisteredDate()), graph.DateRegistered); err != nil {
		return fmt.Errorf("date interest: %w", err)
	}

	contributor := graph.NewContributor(b.store, fact.Interest)
	if _, err := contributor.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve contributor: %w", err)
	}
	if err := contributor.IsRegisteredInterest(ctx); err != nil {
		return fmt.Errorf("flag contributor: %w", err)
	}

	for _, p := range fact.Payments {
		if p.IsPlaceholder() {
			continue
		}
		if err := b.applyPayment(ctx, mp, interest, contributor, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *InterestsBuilder) applyPayment(ctx context.Context, mp string, interest *graph.RegisteredInterest, contributor *graph.Contributor, p common.Payment) error {
	payment := graph.NewRemuneration(b.store, PaymentSummary(mp, interest.Name(), p))
	if err := payment.Create(ctx); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	if err := payment.Update(ctx, map[string]any{
		"amount":     extract.ConvertToNumber(p.Amount),
		"raw_amount": p.Amount,
		"currency":   p.Currency,
		"mp":         mp,
		"interest":   interest.Name(),
	}); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	received, registered := knownDate(p.Received), knownDate(p.Registered)

	edge, err := interest.LinkPayment(ctx, payment)
	if err != nil {
		return fmt.Errorf("link payment to interest: %w", err)
	}
	if err := payment.SetRegisteredDate(ctx, edge, registered); err != nil {
		return fmt.Errorf("date payment: %w", err)
	}
	if err := payment.SetReceivedDate(ctx, edge, received); err != nil {
		return fmt.Errorf("date payment: %w", err)
	}

	edge, err = contributor.LinkPayment(ctx, payment)
	if err != nil {
		return fmt.Errorf("link payment to contributor: %w", err)
	}
	if err := payment.SetRegisteredDate(ctx, edge, registered); err != nil {
		return fmt.Errorf("date payment: %w", err)
	}
	if err := payment.SetReceivedDate(ctx, edge, received); err != nil {
		return fmt.Errorf("date payment: %w", err)
	}
	return nil
}

// knownDate maps the unknown date sentinel to the empty string, which the
// graph ignores.
func knownDate(date string) string {
	if date == common.UnknownDate {
		return ""
	}
	return date
}

func factProperties(f common.Fact) map[string]any {
	props := map[string]any{"category": f.Category}
	setList := func(key string, v []string) {
		if len(v) > 0 {
			props[key] = v
		}
	}
	setString := func(key, v string) {
		if v != "" {
			props[key] = v
		}
	}
	setList("amounts", f.Amounts)
	setList("destinations", f.Destinations)
	setList("locations", f.Locations)
	setList("received", f.Received)
	setList("accepted", f.Accepted)
	setList("registered", f.Registered)
	setString("visit_dates", f.VisitDates)
	setString("purpose", f.Purpose)
	setString("donor_status", f.DonorStatus)
	setString("nature", f.Nature)
	return props
}
