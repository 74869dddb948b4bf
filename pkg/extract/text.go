package extract

import (
	"regexp"
	"strings"
)

var (
	moneyPattern = regexp.MustCompile(`([£$€])(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)
	datePattern  = regexp.MustCompile(`(\d{1,2}\s(?:January|February|March|April|May|June|July|August|September|October|November|December)\s\d{4})`)
	asidePattern = regexp.MustCompile(`\(.+?\)\s*`)
)

// Money is one currency-prefixed amount found in a line.
type Money struct {
	Currency string
	Amount   string
}

// FindMoney returns every currency-prefixed amount in line, in order.
func FindMoney(line string) []Money {
	matches := moneyPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Money, 0, len(matches))
	for _, m := range matches {
		out = append(out, Money{Currency: m[1], Amount: m[2]})
	}
	return out
}

// FindDates returns every "day Month year" date in line or nil.
func FindDates(line string) []string {
	return datePattern.FindAllString(line, -1)
}

// ValueAfterColon returns the trimmed text following the first colon of
// line, or the empty string if line has no colon.
func ValueAfterColon(line string) string {
	_, value, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// StripAsides removes parenthesised asides such as "(a)" or "(unpaid)".
func StripAsides(line string) string {
	return asidePattern.ReplaceAllString(line, "")
}

// isContinuation reports whether line continues the entry of a previous line,
// e.g. "(of Acme Ltd)" or "of 1 High Street".
func isContinuation(line string, indented bool) bool {
	l := strings.ToLower(line)
	if strings.HasPrefix(l, "(of ") || strings.HasPrefix(l, "of ") {
		return true
	}
	return indented && strings.HasPrefix(l, "  of ")
}

func amounts(money []Money) []string {
	if len(money) == 0 {
		return nil
	}
	out := make([]string, 0, len(money))
	for _, m := range money {
		out = append(out, m.Currency+m.Amount)
	}
	return out
}
