package extract

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/influence/pkg/common"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/logger/console"
	"github.com/OFFIS-RIT/influence/pkg/ner"
)

type failingExtractor struct{}

func (failingExtractor) GetEntities(context.Context, string) ([]string, error) {
	return nil, errors.New("ner unavailable")
}

func newTestExtractor(entities ner.Static) *Extractor {
	return NewExtractor(NewExtractorParams{Entities: entities})
}

func TestFindCompany(t *testing.T) {
	ctx := context.Background()
	e := newTestExtractor(ner.Static{
		"Director, Acme Holdings Limited, London": {"UK", "Sole", "London", "Acme Holdings Limited"},
		"Partner in a firm in London":             {"Sole", "London"},
	})

	tests := []struct {
		name string
		line string
		want string
	}{
		{"alias", "Columnist for Mirror Group Newspapers; fees paid", "Mirror Group Newspapers"},
		{"two clauses", "Acme Ltd.; consultancy (unpaid)", "Acme Ltd"},
		{"aside in name", "Beta plc (a) ; shares", "Beta plc"},
		{"three clauses", "Acme Ltd; Beta plc; Gamma Ltd", ""},
		{"prefers company suffix", "Director, Acme Holdings Limited, London", "Acme Holdings Limited"},
		{"first usable candidate", "Partner in a firm in London", "London"},
		{"no candidates", "Unpaid", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.FindCompany(ctx, tc.line); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFindCompany_EntityErrorIsNoCandidate(t *testing.T) {
	e := NewExtractor(NewExtractorParams{Entities: failingExtractor{}})
	if got := e.FindCompany(context.Background(), "Director of Acme Ltd"); got != "" {
		t.Fatalf("expected no company, got %q", got)
	}
}

func TestExtract_UnknownCategory(t *testing.T) {
	e := newTestExtractor(nil)
	facts, ok := e.Extract(context.Background(), "Hobbies", []string{"Gardening"})
	if ok || facts != nil {
		t.Fatalf("expected unknown category to be skipped, got %v, %v", facts, ok)
	}

	facts, ok = e.ExtractCategory(context.Background(), common.Category{Name: "Directorships"})
	if !ok || len(facts) != 0 {
		t.Fatalf("expected empty category to yield no facts, got %v, %v", facts, ok)
	}
}

func TestExtract_ListRecord(t *testing.T) {
	first := "Acme Ltd, 1 High Street, London. Non-executive director."
	e := newTestExtractor(ner.Static{first: {"Acme Ltd", "London"}})

	record := []string{
		first,
		"Payment of £1,000.00 received on 3 March 2015. Hours: 5 hrs. (Registered 10 March 2015)",
		"Payment of £500.00. Hours: 2 hrs.",
		"Unpaid from 1 June 2015.",
	}
	facts, ok := e.Extract(context.Background(), "Remunerated directorships", record)
	if !ok || len(facts) != 1 {
		t.Fatalf("expected one fact, got %v", facts)
	}

	f := facts[0]
	if f.Interest != "Acme Ltd" || f.Category != "Remunerated directorships" {
		t.Fatalf("unexpected fact: %+v", f)
	}
	want := []common.Payment{
		{Amount: "1,000.00", Currency: "£", Received: "3 March 2015", Registered: "10 March 2015"},
		{Amount: "500.00", Currency: "£", Received: common.UnknownDate, Registered: common.UnknownDate},
	}
	if !reflect.DeepEqual(f.Payments, want) {
		t.Fatalf("expected payments %v, got %v", want, f.Payments)
	}
	if f.RawRecord != record[0]+"\n"+record[1]+"\n"+record[2]+"\n"+record[3] {
		t.Fatalf("unexpected raw record %q", f.RawRecord)
	}
}

func TestExtract_ListRecordContinuation(t *testing.T) {
	e := newTestExtractor(nil)
	facts, _ := e.Extract(context.Background(), "Directorships", []string{
		"(of 1 High Street)",
		"Acme Ltd; property management",
	})
	if len(facts) != 1 || facts[0].Interest != "Acme Ltd" {
		t.Fatalf("expected Acme Ltd, got %v", facts)
	}
	if !facts[0].Payments[0].IsPlaceholder() {
		t.Fatalf("expected placeholder payment, got %v", facts[0].Payments)
	}
}

func TestExtract_ListRecordUnresolved(t *testing.T) {
	e := newTestExtractor(nil)
	facts, ok := e.Extract(context.Background(), "Directorships", []string{"Something unnamed"})
	if !ok || len(facts) != 0 {
		t.Fatalf("expected fact to be omitted, got %v", facts)
	}
}

func TestExtract_Unstructured(t *testing.T) {
	e := newTestExtractor(nil)
	facts, _ := e.Extract(context.Background(), "Shareholdings", []string{
		"Acme Ltd; software (Registered 3 March 2015)",
		"(of 1 High Street)",
		"Nothing to see",
		"Beta plc; farming",
	})
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %v", facts)
	}
	if facts[0].Interest != "Acme Ltd" || !reflect.DeepEqual(facts[0].Registered, []string{"3 March 2015"}) {
		t.Fatalf("unexpected first fact %+v", facts[0])
	}
	if facts[1].Interest != "Beta plc" || facts[1].Registered != nil {
		t.Fatalf("unexpected second fact %+v", facts[1])
	}
}

func TestExtract_Clients(t *testing.T) {
	e := newTestExtractor(nil)
	ctx := context.Background()

	facts, _ := e.Extract(ctx, "Clients", []string{
		"Acme Ltd; consultancy",
		"Payment of £100.00 received on 1 May 2015; registered 2 May 2015",
		"Hours: 3 hrs.",
	})
	if len(facts) != 1 || len(facts[0].Payments) != 1 {
		t.Fatalf("expected list parse, got %v", facts)
	}
	if facts[0].Payments[0].Received != "1 May 2015" || facts[0].Payments[0].Registered != "2 May 2015" {
		t.Fatalf("unexpected payment %+v", facts[0].Payments[0])
	}

	facts, _ = e.Extract(ctx, "Clients", []string{
		"Acme Ltd; consultancy",
		"Beta plc; advice",
	})
	if len(facts) != 2 {
		t.Fatalf("expected unstructured parse with 2 facts, got %v", facts)
	}
}

func TestExtract_Land(t *testing.T) {
	line := "Flat in London, from which rental income is received. (Registered 3 March 2015)"
	e := newTestExtractor(ner.Static{line: {"London"}})
	facts, _ := e.Extract(context.Background(), "Land and Property", []string{line, "Farmland"})
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %v", facts)
	}
	if !reflect.DeepEqual(facts[0].Locations, []string{"London"}) ||
		!reflect.DeepEqual(facts[0].Registered, []string{"3 March 2015"}) {
		t.Fatalf("unexpected fact %+v", facts[0])
	}
}

func TestExtract_Miscellaneous(t *testing.T) {
	e := newTestExtractor(nil)
	facts, _ := e.Extract(context.Background(), "Miscellaneous", []string{
		"Trustee of Acme Trust; a charity. (Registered 1 June 2015)",
		"Unpaid",
	})
	if len(facts) != 1 || facts[0].Interest != "Trustee of Acme Trust" {
		t.Fatalf("unexpected facts %v", facts)
	}
}

func TestExtract_MiscellaneousUnresolvedIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Format: "logfmt", Output: &buf}))
	defer logger.Init()

	e := newTestExtractor(nil)
	facts, ok := e.Extract(context.Background(), "Miscellaneous", []string{"Nothing resolvable here"})
	if !ok {
		t.Fatal("expected Miscellaneous to be a known category")
	}
	if len(facts) != 0 {
		t.Fatalf("expected no facts, got %v", facts)
	}

	out := buf.String()
	if !strings.Contains(out, "Could not resolve organization name") {
		t.Fatalf("expected unresolved warning, got %q", out)
	}
	if !strings.Contains(out, "strategy=miscellaneous") || !strings.Contains(out, "Nothing resolvable here") {
		t.Fatalf("expected strategy and raw line in warning, got %q", out)
	}
}

func visitEntities() ner.Static {
	return ner.Static{
		"Name of donor: Acme Ltd":                  {"Acme Ltd"},
		"Destination of visit: Washington DC, USA": {"Washington DC", "USA"},
	}
}

func TestExtract_OverseasVisitFixedAndFallback(t *testing.T) {
	e := newTestExtractor(visitEntities())
	ctx := context.Background()

	fixed := []string{
		"Name of donor: Acme Ltd",
		"Address of donor: 1 High Street, London",
		"Amount of donation or nature and value if donation in kind: £2,500.00 for flights and accommodation",
		"Destination of visit: Washington DC, USA",
		"Date of visit: 1-5 March 2015",
		"Purpose of visit: Trade delegation",
		"(Registered 12 March 2015)",
	}
	loose := []string{
		"Name of donor: Acme Ltd",
		"Address of donor: 1 High Street, London",
		"",
		"Amount of donation or nature and value if donation in kind: £2,500.00 for flights and accommodation",
		"Destination of visit: Washington DC, USA",
		"Date of visit: 1-5 March 2015",
		"Purpose of visit: Trade delegation",
		"Additional notes: none",
		"(Registered 12 March 2015)",
	}

	a, _ := e.Extract(ctx, "Overseas visits", fixed)
	b, _ := e.Extract(ctx, "Overseas visits", loose)
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one fact each, got %v and %v", a, b)
	}

	fa, fb := a[0], b[0]
	if fa.Interest != "Acme Ltd" || fa.Purpose != "Trade delegation" || fa.VisitDates != "1-5 March 2015" {
		t.Fatalf("unexpected fixed parse %+v", fa)
	}
	if !reflect.DeepEqual(fa.Amounts, []string{"£2,500.00"}) ||
		!reflect.DeepEqual(fa.Destinations, []string{"Washington DC", "USA"}) ||
		!reflect.DeepEqual(fa.Registered, []string{"12 March 2015"}) {
		t.Fatalf("unexpected fixed parse %+v", fa)
	}

	fa.RawRecord, fb.RawRecord = "", ""
	if !reflect.DeepEqual(fa, fb) {
		t.Fatalf("fallback differs from fixed parse:\n%+v\n%+v", fa, fb)
	}
}

func TestExtract_OverseasVisitDonorFromColon(t *testing.T) {
	e := newTestExtractor(nil)
	facts, _ := e.Extract(context.Background(), "Overseas visits", []string{
		"Name of donor: Friends of Somewhere",
		"Address of donor: private",
		"Amount of donation: £800.00",
		"Destination of visit: Somewhere",
		"Date of visit: 2 May 2015",
		"Purpose of visit: fact finding",
		"(Registered 3 June 2015)",
	})
	if len(facts) != 1 || facts[0].Interest != "Friends of Somewhere" {
		t.Fatalf("expected donor from colon, got %v", facts)
	}
}

func TestExtract_Gift(t *testing.T) {
	e := newTestExtractor(ner.Static{"Name of donor: Acme Ltd": {"Acme Ltd"}})
	record := []string{
		"Name of donor: Acme Ltd",
		"Address of donor: 1 High Street, London",
		"Amount of donation or nature and value if donation in kind: £450.00, two tickets to Wimbledon",
		"Date of receipt of donation: 1 July 2015",
		"Date of acceptance of donation: 1 July 2015",
		"Donor status: company, registration 123456",
		"(Registered 20 July 2015)",
	}
	facts, _ := e.Extract(context.Background(), "Gifts, benefits and hospitality (UK)", record)
	if len(facts) != 1 {
		t.Fatalf("expected one fact, got %v", facts)
	}
	f := facts[0]
	if f.Interest != "Acme Ltd" {
		t.Fatalf("unexpected interest %q", f.Interest)
	}
	if f.Nature != "£450.00, two tickets to Wimbledon" || f.DonorStatus != "company, registration 123456" {
		t.Fatalf("unexpected fact %+v", f)
	}
	want := []common.Payment{{Amount: "450.00", Currency: "£", Received: "1 July 2015", Registered: "20 July 2015"}}
	if !reflect.DeepEqual(f.Payments, want) {
		t.Fatalf("expected %v, got %v", want, f.Payments)
	}

	if facts, ok := e.Extract(context.Background(), "Overseas benefits and gifts", []string{"Name of donor: Acme Ltd"}); !ok || facts != nil {
		t.Fatalf("expected one line record to be skipped, got %v", facts)
	}
}

func TestExtract_Sponsorship(t *testing.T) {
	e := newTestExtractor(ner.Static{"Name of donor: Acme Ltd": {"Acme Ltd"}})
	ctx := context.Background()

	fixed := []string{
		"Name of donor: Acme Ltd",
		"Address of donor: 1 High Street, London",
		"Amount of donation or nature and value if donation in kind: £5,000.00 towards running my constituency office",
		"Donor status: company, registration 123456",
		"(Registered 4 February 2015)",
	}
	facts, _ := e.Extract(ctx, "Sponsorships", fixed)
	if len(facts) != 1 {
		t.Fatalf("expected one fact, got %v", facts)
	}
	f := facts[0]
	if f.Interest != "Acme Ltd" || f.DonorStatus != "company, registration 123456" {
		t.Fatalf("unexpected fact %+v", f)
	}
	if len(f.Payments) != 1 || f.Payments[0].Registered != "4 February 2015" || f.Payments[0].Received != common.UnknownDate {
		t.Fatalf("unexpected payments %v", f.Payments)
	}

	loose := append([]string{"Support received:"}, fixed...)
	facts, _ = e.Extract(ctx, "Sponsorship or financial or material support", loose)
	if len(facts) != 1 || facts[0].Interest != "Acme Ltd" || facts[0].DonorStatus != f.DonorStatus {
		t.Fatalf("unexpected fallback parse %v", facts)
	}

	facts, ok := e.Extract(ctx, "Sponsorships", []string{"Name of donor: Acme Ltd"})
	if !ok || facts != nil {
		t.Fatalf("expected one line record to be skipped, got %v", facts)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("Custom", StrategyFunc(func(_ context.Context, _ *Extractor, record []string) []common.Fact {
		return []common.Fact{{Interest: record[0]}}
	}))
	e := NewExtractor(NewExtractorParams{Registry: r})

	facts, ok := e.Extract(context.Background(), "Custom", []string{"x"})
	if !ok || len(facts) != 1 || facts[0].Category != "Custom" {
		t.Fatalf("unexpected result %v %v", facts, ok)
	}
	if _, ok := e.Extract(context.Background(), "Directorships", []string{"x"}); ok {
		t.Fatal("expected default categories to be absent from custom registry")
	}
	if len(DefaultRegistry().Categories()) != 14 {
		t.Fatalf("expected 14 default categories, got %d", len(DefaultRegistry().Categories()))
	}
}
