package extract

import (
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/influence/pkg/common"

	"github.com/dustin/go-humanize"
)

// CleanupRemuneration pairs the amounts found on each line of a record with
// the dates found on the same line. The first date is the received date and
// the second the registered date; with fewer than two dates both are
// common.UnknownDate. Lines without an amount are dropped. If nothing is
// left a single common.NoData placeholder is returned.
func CleanupRemuneration(money [][]Money, dates [][]string) []common.Payment {
	var payments []common.Payment
	for i, m := range money {
		if len(m) == 0 {
			continue
		}
		received, registered := common.UnknownDate, common.UnknownDate
		if i < len(dates) && len(dates[i]) > 1 {
			received = dates[i][0]
			registered = dates[i][1]
		}
		payments = append(payments, common.Payment{
			Amount:     m[0].Amount,
			Currency:   m[0].Currency,
			Received:   received,
			Registered: registered,
		})
	}
	if len(payments) == 0 {
		return []common.Payment{{Amount: common.NoData}}
	}
	return payments
}

// paymentsFor turns amounts declared once per record (gifts, visits,
// sponsorships) into payments sharing the record's dates.
func paymentsFor(money []Money, received, registered []string) []common.Payment {
	if len(money) == 0 {
		return nil
	}
	rec, reg := common.UnknownDate, common.UnknownDate
	if len(received) > 0 {
		rec = received[0]
	}
	if len(registered) > 0 {
		reg = registered[0]
	}
	out := make([]common.Payment, 0, len(money))
	for _, m := range money {
		out = append(out, common.Payment{
			Amount:     m.Amount,
			Currency:   m.Currency,
			Received:   rec,
			Registered: reg,
		})
	}
	return out
}

// ConvertToNumber normalizes a declared amount like "£12,345.00" into whole
// pounds. The fractional part is truncated. A single trailing ",00" is
// dropped as a comma-written zero decimal; any other comma, including
// ",50", is read as a thousands separator. Anything that is not a plain
// number afterwards yields 0.
func ConvertToNumber(amount string) int64 {
	amount = strings.TrimSpace(strings.ReplaceAll(amount, "£", ""))
	amount = strings.TrimSuffix(amount, ",00")
	amount = strings.ReplaceAll(amount, ",", "")
	amount, _, _ = strings.Cut(amount, ".")
	if amount == "" {
		return 0
	}
	for _, r := range amount {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatCurrency renders whole pounds for display, e.g. 12345 as "£12,345.00".
func FormatCurrency(amount int64) string {
	return "£" + humanize.FormatFloat("#,###.##", float64(amount))
}
