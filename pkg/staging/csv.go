package staging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/influence/pkg/common"
)

// ErrNoHeader is returned for exports without a recognizable header row.
var ErrNoHeader = errors.New("csv export has no recognizable header")

// fundingColumns maps normalized header names onto record fields. Both the
// Electoral Commission export headers and the staged field names are known.
var fundingColumns = map[string]func(*common.FundingRecord, string){
	"regulatedentityname":       func(r *common.FundingRecord, v string) { r.Recipient = v },
	"recipient":                 func(r *common.FundingRecord, v string) { r.Recipient = v },
	"regulatedentitytype":       func(r *common.FundingRecord, v string) { r.RecipientType = v },
	"recipienttype":             func(r *common.FundingRecord, v string) { r.RecipientType = v },
	"regulateddoneetype":        func(r *common.FundingRecord, v string) { r.DoneeType = v },
	"doneetype":                 func(r *common.FundingRecord, v string) { r.DoneeType = v },
	"donorname":                 func(r *common.FundingRecord, v string) { r.DonorName = v },
	"donorstatus":               func(r *common.FundingRecord, v string) { r.DonorType = v },
	"donortype":                 func(r *common.FundingRecord, v string) { r.DonorType = v },
	"companyregistrationnumber": func(r *common.FundingRecord, v string) { r.CompanyReg = v },
	"companyreg":                func(r *common.FundingRecord, v string) { r.CompanyReg = v },
	"value":                     func(r *common.FundingRecord, v string) { r.Value = v },
	"ecref":                     func(r *common.FundingRecord, v string) { r.ECReference = v },
	"ecreference":               func(r *common.FundingRecord, v string) { r.ECReference = v },
	"natureofdonation":          func(r *common.FundingRecord, v string) { r.Nature = v },
	"natureprovision":           func(r *common.FundingRecord, v string) { r.Nature = v },
	"purposeofvisit":            func(r *common.FundingRecord, v string) { r.Purpose = v },
	"purpose":                   func(r *common.FundingRecord, v string) { r.Purpose = v },
	"accountingunitname":        func(r *common.FundingRecord, v string) { r.RecdBy = v },
	"recdby":                    func(r *common.FundingRecord, v string) { r.RecdBy = v },
	"receiveddate":              func(r *common.FundingRecord, v string) { r.ReceivedDate = v },
	"datereceived":              func(r *common.FundingRecord, v string) { r.ReceivedDate = v },
	"reporteddate":              func(r *common.FundingRecord, v string) { r.ReportedDate = v },
	"datereported":              func(r *common.FundingRecord, v string) { r.ReportedDate = v },
	"accepteddate":              func(r *common.FundingRecord, v string) { r.AcceptedDate = v },
	"6212":                      func(r *common.FundingRecord, v string) { r.Section6212 = v },
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeFundingCSV reads an Electoral Commission donations export. Unknown
// columns are ignored; rows without recipient and donor are dropped.
func DecodeFundingCSV(r io.Reader) ([]common.FundingRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	setters := make([]func(*common.FundingRecord, string), len(header))
	known := 0
	for i, h := range header {
		if set, ok := fundingColumns[normalizeHeader(h)]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, ErrNoHeader
	}

	var records []common.FundingRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		var rec common.FundingRecord
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, strings.TrimSpace(v))
			}
		}
		if rec.Recipient == "" && rec.DonorName == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
