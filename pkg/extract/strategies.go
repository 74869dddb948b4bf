package extract

import (
	"context"
	"strings"

	"github.com/OFFIS-RIT/influence/pkg/common"
)

// DefaultRegistry returns a registry with every known declaration category.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	list := StrategyFunc(ListRecord)
	for _, name := range []string{
		"Directorships",
		"Remunerated directorships",
		"Remunerated employment, office, profession etc",
		"Remunerated employment, office, profession, etc_",
	} {
		r.Register(name, list)
	}

	r.Register("Clients", StrategyFunc(Clients))
	r.Register("Land and Property", StrategyFunc(LandAndProperty))
	r.Register("Shareholdings", StrategyFunc(UnstructuredRecord))
	r.Register("Registrable shareholdings", StrategyFunc(UnstructuredRecord))
	r.Register("Sponsorships", StrategyFunc(Sponsorship))
	r.Register("Sponsorship or financial or material support", StrategyFunc(Sponsorship))
	r.Register("Overseas visits", StrategyFunc(OverseasVisit))
	r.Register("Gifts, benefits and hospitality (UK)", StrategyFunc(Gift))
	r.Register("Overseas benefits and gifts", StrategyFunc(Gift))
	r.Register("Miscellaneous", StrategyFunc(Miscellaneous))

	return r
}

// ListRecord parses a record whose first line names the organization and
// whose remaining lines list payments with their dates.
func ListRecord(ctx context.Context, e *Extractor, record []string) []common.Fact {
	first := record[0]
	if isContinuation(first, true) && len(record) > 1 {
		first = record[1]
	}

	company := e.FindCompany(ctx, first)
	if company == "" {
		unresolved("list", record)
		return nil
	}

	money := make([][]Money, len(record))
	dates := make([][]string, len(record))
	for i, line := range record {
		money[i] = FindMoney(line)
		dates[i] = FindDates(line)
	}

	return []common.Fact{{
		Interest:  company,
		RawRecord: strings.Join(record, "\n"),
		Payments:  CleanupRemuneration(money, dates),
	}}
}

// UnstructuredRecord treats every line of the record as a declaration of its own.
func UnstructuredRecord(ctx context.Context, e *Extractor, record []string) []common.Fact {
	var facts []common.Fact
	for _, line := range record {
		if isContinuation(line, false) {
			continue
		}
		company := e.FindCompany(ctx, line)
		if company == "" {
			unresolved("unstructured", []string{line})
			continue
		}
		facts = append(facts, common.Fact{
			Interest:   company,
			RawRecord:  line,
			Registered: FindDates(line),
		})
	}
	return facts
}

// Clients parses client lists. Records whose second to last line mentions a
// payment are list records, everything else is unstructured.
func Clients(ctx context.Context, e *Extractor, record []string) []common.Fact {
	if len(record) == 1 {
		return UnstructuredRecord(ctx, e, record)
	}
	check := strings.ToLower(record[len(record)-2])
	if strings.Contains(check, "payment of") ||
		strings.Contains(check, "fees of") ||
		strings.Contains(check, "received") {
		return ListRecord(ctx, e, record)
	}
	return UnstructuredRecord(ctx, e, record)
}

// LandAndProperty yields one fact per line that mentions a location.
func LandAndProperty(ctx context.Context, e *Extractor, record []string) []common.Fact {
	var facts []common.Fact
	for _, line := range record {
		locations := e.Entities(ctx, line)
		if len(locations) == 0 {
			continue
		}
		facts = append(facts, common.Fact{
			Interest:   strings.TrimSpace(line),
			RawRecord:  line,
			Locations:  locations,
			Registered: FindDates(line),
		})
	}
	return facts
}

// Miscellaneous yields one fact per line naming an organization.
func Miscellaneous(ctx context.Context, e *Extractor, record []string) []common.Fact {
	var facts []common.Fact
	for _, line := range record {
		company := e.FindCompany(ctx, line)
		if company == "" {
			unresolved("miscellaneous", []string{line})
			continue
		}
		facts = append(facts, common.Fact{
			Interest:   company,
			RawRecord:  line,
			Registered: FindDates(line),
		})
	}
	return facts
}

// Sponsorship parses donor support declarations. The five line layout is
//
//	Name of donor / address / amount / donor status / registered
//
// other layouts are scanned for their labels.
func Sponsorship(ctx context.Context, e *Extractor, record []string) []common.Fact {
	if len(record) == 1 {
		return nil
	}

	var (
		company, status string
		money           []Money
		registered      []string
	)

	if len(record) == 5 {
		company = e.resolveDonor(ctx, record[0])
		money = FindMoney(record[2])
		status = ValueAfterColon(record[3])
		registered = FindDates(record[4])
	} else {
		for _, line := range record {
			switch {
			case strings.Contains(line, "Name of donor"):
				company = e.resolveDonor(ctx, line)
			case strings.Contains(line, "Amount of donation"):
				money = FindMoney(line)
			case strings.Contains(line, "Donor status"):
				status = ValueAfterColon(line)
			case strings.Contains(line, "Registered"):
				registered = FindDates(line)
			}
		}
	}

	if company == "" {
		unresolved("sponsorship", record)
		return nil
	}

	return []common.Fact{{
		Interest:    company,
		RawRecord:   strings.Join(record, "\n"),
		Amounts:     amounts(money),
		DonorStatus: status,
		Registered:  registered,
		Payments:    paymentsFor(money, nil, registered),
	}}
}

// OverseasVisit parses visit declarations. The seven line layout is
//
//	Name of donor / address / amount / destination / dates / purpose / registered
//
// other layouts are scanned for their labels.
func OverseasVisit(ctx context.Context, e *Extractor, record []string) []common.Fact {
	var (
		company, visitDates, purpose string
		money                        []Money
		destinations, registered     []string
	)

	if len(record) == 7 {
		company = e.resolveDonor(ctx, record[0])
		money = FindMoney(record[2])
		destinations = e.Entities(ctx, record[3])
		visitDates = ValueAfterColon(record[4])
		purpose = ValueAfterColon(record[5])
		registered = FindDates(record[6])
	} else {
		for _, line := range record {
			switch {
			case strings.Contains(line, "Name of donor"):
				company = e.resolveDonor(ctx, line)
			case strings.Contains(line, "Amount of donation"):
				money = FindMoney(line)
			case strings.Contains(line, "Destination of visit"):
				destinations = e.Entities(ctx, line)
			case strings.Contains(line, "Date of visit"):
				visitDates = ValueAfterColon(line)
			case strings.Contains(line, "Purpose of visit"):
				purpose = ValueAfterColon(line)
			case strings.Contains(line, "Registered"):
				registered = FindDates(line)
			}
		}
	}

	if company == "" {
		unresolved("overseas visit", record)
		return nil
	}

	return []common.Fact{{
		Interest:     company,
		RawRecord:    strings.Join(record, "\n"),
		Amounts:      amounts(money),
		Destinations: destinations,
		VisitDates:   visitDates,
		Purpose:      purpose,
		Registered:   registered,
		Payments:     paymentsFor(money, nil, registered),
	}}
}

// Gift parses gift and hospitality declarations. The seven line layout is
//
//	Name of donor / address / amount and nature / receipt / acceptance / donor status / registered
//
// other layouts are scanned for their labels.
func Gift(ctx context.Context, e *Extractor, record []string) []common.Fact {
	if len(record) == 1 {
		return nil
	}

	var (
		company, nature, status        string
		money                          []Money
		received, accepted, registered []string
	)

	if len(record) == 7 {
		company = e.resolveDonor(ctx, record[0])
		money = FindMoney(record[2])
		nature = ValueAfterColon(record[2])
		received = FindDates(record[3])
		accepted = FindDates(record[4])
		status = ValueAfterColon(record[5])
		registered = FindDates(record[6])
	} else {
		for _, line := range record {
			switch {
			case strings.Contains(line, "Name of donor"):
				company = e.resolveDonor(ctx, line)
			case strings.Contains(line, "Amount of donation"):
				money = FindMoney(line)
				nature = ValueAfterColon(line)
			case strings.Contains(line, "Date of receipt"):
				received = FindDates(line)
			case strings.Contains(line, "Date of acceptance"):
				accepted = FindDates(line)
			case strings.Contains(line, "Donor status"):
				status = ValueAfterColon(line)
			case strings.Contains(line, "Registered"):
				registered = FindDates(line)
			}
		}
	}

	if company == "" {
		unresolved("gift", record)
		return nil
	}

	return []common.Fact{{
		Interest:    company,
		RawRecord:   strings.Join(record, "\n"),
		Amounts:     amounts(money),
		Nature:      nature,
		DonorStatus: status,
		Received:    received,
		Accepted:    accepted,
		Registered:  registered,
		Payments:    paymentsFor(money, received, registered),
	}}
}
