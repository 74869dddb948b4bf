package common

// InterestsDocument is one staged register file as scraped from the
// Register of Members' Financial Interests. It groups the declarations of
// every member listed in that file.
type InterestsDocument struct {
	FileName string           `json:"file_name" bson:"file_name"`
	Contents []MemberInterest `json:"contents" bson:"contents"`
}

// MemberInterest holds all declaration categories of a single member.
type MemberInterest struct {
	MP        string     `json:"mp" bson:"mp"`
	Interests []Category `json:"interests" bson:"interests"`
}

// Category is one declaration category of a member. Records are ordered and
// every record is the ordered list of raw text lines of one declaration entry.
type Category struct {
	Name    string     `json:"category_name" bson:"category_name"`
	Records [][]string `json:"records" bson:"records"`
}

const (
	// UnknownDate marks a payment date that could not be extracted.
	UnknownDate = "Unknown"
	// NoData is the amount of the placeholder payment of a record that
	// declared no amount at all.
	NoData = "No data"
)

// Payment is a single monetary amount found in a declaration together with
// the dates it was received and registered. Unknown dates are "Unknown".
type Payment struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Received   string `json:"received"`
	Registered string `json:"registered"`
}

// IsPlaceholder reports whether p only marks a record without amounts.
func (p Payment) IsPlaceholder() bool {
	return p.Amount == NoData
}

// Fact is the structured result of parsing one declaration record. Only
// Interest and RawRecord are always set, the remaining fields depend on the
// category the record was declared in.
type Fact struct {
	Category   string    `json:"category"`
	Interest   string    `json:"interest"`
	RawRecord  string    `json:"raw_record"`
	Payments   []Payment `json:"payments,omitempty"`
	Registered []string  `json:"registered,omitempty"`

	Amounts      []string `json:"amounts,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	VisitDates   string   `json:"visit_dates,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	DonorStatus  string   `json:"donor_status,omitempty"`
	Nature       string   `json:"nature,omitempty"`
	Received     []string `json:"received,omitempty"`
	Accepted     []string `json:"accepted,omitempty"`
}

// RegisteredDate returns the first registration date of the fact or the
// empty string if none was found.
func (f Fact) RegisteredDate() string {
	if len(f.Registered) == 0 {
		return ""
	}
	return f.Registered[0]
}

// FundingRecord is one donation row of the Electoral Commission register,
// after it has been staged by the donation ETL.
type FundingRecord struct {
	Recipient     string `json:"recipient" bson:"recipient"`
	RecipientType string `json:"recipient_type" bson:"recipient_type"`
	DoneeType     string `json:"donee_type" bson:"donee_type"`
	DonorName     string `json:"donor_name" bson:"donor_name"`
	DonorType     string `json:"donor_type" bson:"donor_type"`
	CompanyReg    string `json:"company_reg" bson:"company_reg"`
	Value         string `json:"value" bson:"value"`
	ECReference   string `json:"ec_reference" bson:"ec_reference"`
	Nature        string `json:"nature_provision" bson:"nature_provision"`
	Purpose       string `json:"purpose" bson:"purpose"`
	RecdBy        string `json:"recd_by" bson:"recd_by"`
	ReceivedDate  string `json:"received_date" bson:"received_date"`
	ReportedDate  string `json:"reported_date" bson:"reported_date"`
	AcceptedDate  string `json:"accepted_date" bson:"accepted_date"`
	Section6212   string `json:"6212" bson:"6212"`
}
