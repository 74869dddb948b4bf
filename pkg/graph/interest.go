package graph

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/influence/pkg/store"
)

// RegisteredInterest is one distinct declared interest. Its raw record is
// an append-only log of every declaration text that mentioned it.
type RegisteredInterest struct{ *Entity }

// NewRegisteredInterest addresses an interest by its description.
func NewRegisteredInterest(s store.Store, interest string) *RegisteredInterest {
	return &RegisteredInterest{newEntity(s, LabelRegisteredInterest, "interest", interest)}
}

// UpdateRawRecord appends raw to the raw_record log. Text already in the
// log is not appended twice. The boolean reports whether the log changed.
func (r *RegisteredInterest) UpdateRawRecord(ctx context.Context, raw string) (bool, error) {
	if !r.exists {
		return false, fmt.Errorf("update raw record of %s: %w", r.key, ErrMissing)
	}
	return r.store.AppendLog(ctx, r.handle, "raw_record", raw, RawRecordSeparator)
}

// RawRecord returns the current raw record log.
func (r *RegisteredInterest) RawRecord(ctx context.Context) (string, error) {
	props, err := r.Properties(ctx)
	if err != nil {
		return "", err
	}
	raw, _ := props["raw_record"].(string)
	return raw, nil
}

// LinkPayment links a remuneration received through the interest.
func (r *RegisteredInterest) LinkPayment(ctx context.Context, payment *Remuneration) (store.EdgeID, error) {
	return r.Link(ctx, payment.Entity, EdgeRemuneration)
}

// SetRegisteredDate dates the last linked edge as REGISTERED.
func (r *RegisteredInterest) SetRegisteredDate(ctx context.Context, date string) error {
	return r.SetDate(ctx, date, DateRegistered)
}

// Remuneration is a payment summary. It is merge-safe: creating it twice
// yields the same vertex.
type Remuneration struct{ *Entity }

// NewRemuneration addresses a payment by its summary line.
func NewRemuneration(s store.Store, summary string) *Remuneration {
	e := newEntity(s, LabelRemuneration, "summary", summary)
	e.mergeSafe = true
	return &Remuneration{e}
}

// SetRegisteredDate dates edge as REGISTERED.
func (r *Remuneration) SetRegisteredDate(ctx context.Context, edge store.EdgeID, date string) error {
	return r.SetEdgeDate(ctx, edge, date, DateRegistered)
}

// SetReceivedDate dates edge as RECEIVED.
func (r *Remuneration) SetReceivedDate(ctx context.Context, edge store.EdgeID, date string) error {
	return r.SetEdgeDate(ctx, edge, date, DateReceived)
}

// RegisteredFunding is a reported donation summary. It is merge-safe.
type RegisteredFunding struct{ *Entity }

// NewRegisteredFunding addresses a donation by its summary line.
func NewRegisteredFunding(s store.Store, summary string) *RegisteredFunding {
	e := newEntity(s, LabelRegisteredFunding, "summary", summary)
	e.mergeSafe = true
	return &RegisteredFunding{e}
}

// SetDates tags edge with the received, reported and accepted dates.
func (f *RegisteredFunding) SetDates(ctx context.Context, edge store.EdgeID, received, reported, accepted string) error {
	if err := f.SetEdgeDate(ctx, edge, received, DateReceived); err != nil {
		return err
	}
	if err := f.SetEdgeDate(ctx, edge, reported, DateReported); err != nil {
		return err
	}
	return f.SetEdgeDate(ctx, edge, accepted, DateAccepted)
}
