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

// MissingReceivedDate replaces an empty received date in funding summaries.
const MissingReceivedDate = "Missing Received Date"

// FundingBuilder links Electoral Commission donations into the graph:
//
//	recipient -FUNDING_CATEGORY-> "{donor} and {recipient}" -DONATION_FROM-> donor
//	                                          |
//	                                          +-FUNDING-> registered funding
type FundingBuilder struct {
	store store.Store
}

func NewFundingBuilder(s store.Store) *FundingBuilder {
	return &FundingBuilder{store: s}
}

// FundingSummary is the merge key of the funding fact of rec.
func FundingSummary(rec common.FundingRecord) string {
	received := rec.ReceivedDate
	if received == "" {
		received = MissingReceivedDate
	}
	return fmt.Sprintf("%s - %s - %s - %s", rec.Recipient, rec.DonorName, received, rec.Value)
}

// Run applies every record in order.
func (b *FundingBuilder) Run(ctx context.Context, records []common.FundingRecord) (Summary, error) {
	start := time.Now()
	var sum Summary

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}
		if rec.Recipient == "" || rec.DonorName == "" {
			sum.Skipped++
			logger.Warn("[Funding] Skipping record without recipient or donor", "index", i, "ec_reference", rec.ECReference)
			continue
		}

		logger.Debug("[Funding] Processing donation", "recipient", rec.Recipient, "donor", rec.DonorName, "value", rec.Value)
		err := b.Apply(ctx, rec)
		if err := sum.outcome("Funding", err, "index", i, "recipient", rec.Recipient, "donor", rec.DonorName); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}
	}

	sum.Duration = time.Since(start)
	logSummary("Funding", sum)
	return sum, nil
}

// Apply links a single donation record.
func (b *FundingBuilder) Apply(ctx context.Context, rec common.FundingRecord) error {
	recipient := graph.NewDonationRecipient(b.store, rec.Recipient)
	if _, err := recipient.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if err := recipient.Update(ctx, map[string]any{
		"recipient_type": rec.RecipientType,
		"donee_type":     rec.DoneeType,
	}); err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}

	category := graph.NewFundingRelationship(b.store, rec.DonorName, rec.Recipient)
	if _, err := category.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve funding relationship: %w", err)
	}
	if err := category.Update(ctx, map[string]any{
		"recipient": rec.Recipient,
		"donor":     rec.DonorName,
	}); err != nil {
		return fmt.Errorf("update funding relationship: %w", err)
	}

	donor := graph.NewDonor(b.store, rec.DonorName)
	if _, err := donor.FetchOrCreate(ctx); err != nil {
		return fmt.Errorf("resolve donor: %w", err)
	}
	if err := donor.Update(ctx, map[string]any{
		"donor_type":  rec.DonorType,
		"company_reg": rec.CompanyReg,
	}); err != nil {
		return fmt.Errorf("update donor: %w", err)
	}

	funding := graph.NewRegisteredFunding(b.store, FundingSummary(rec))
	if err := funding.Create(ctx); err != nil {
		return fmt.Errorf("create funding: %w", err)
	}
	if err := funding.Update(ctx, map[string]any{
		"recipient":     rec.Recipient,
		"donor_name":    rec.DonorName,
		"amount":        extract.ConvertToNumber(rec.Value),
		"ec_reference":  rec.ECReference,
		"nature":        rec.Nature,
		"purpose":       rec.Purpose,
		"recd_by":       rec.RecdBy,
		"received_date": rec.ReceivedDate,
		"reported_date": rec.ReportedDate,
		"accepted_date": rec.AcceptedDate,
		"6212":          rec.Section6212,
	}); err != nil {
		return fmt.Errorf("update funding: %w", err)
	}

	if _, err := recipient.LinkFundingCategory(ctx, category); err != nil {
		return fmt.Errorf("link funding category: %w", err)
	}
	if _, err := category.LinkDonor(ctx, donor); err != nil {
		return fmt.Errorf("link donor: %w", err)
	}
	edge, err := category.LinkFunding(ctx, funding)
	if err != nil {
		return fmt.Errorf("link funding: %w", err)
	}
	if err := funding.SetDates(ctx, edge, rec.ReceivedDate, rec.ReportedDate, rec.AcceptedDate); err != nil {
		return fmt.Errorf("date funding: %w", err)
	}
	return nil
}
