package service

import (
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// maxRangeDays upper bound of a requested range
const maxRangeDays = 400

// DateRange inclusive calendar range in YYYY-MM-DD form
type DateRange struct {
	From string `json:"date_from"`
	To   string `json:"date_to"`
}

// ParseDay validates a YYYY-MM-DD day.
func ParseDay(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidf("%s is required", field)
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, invalidf("%s must be YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}

// NewDateRange validates both bounds. from > to is accepted and yields an empty range.
func NewDateRange(from, to string) (DateRange, error) {
	f, err := ParseDay("date_from", from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDay("date_to", to)
	if err != nil {
		return DateRange{}, err
	}
	if days := int(t.Sub(f).Hours()/24) + 1; days > maxRangeDays {
		return DateRange{}, invalidf("range spans %d days, at most %d allowed", days, maxRangeDays)
	}
	return DateRange{From: f.Format(dayLayout), To: t.Format(dayLayout)}, nil
}

// Empty reports whether the range contains no day.
func (r DateRange) Empty() bool {
	return r.From > r.To
}

// Days every calendar day of the inclusive range; nil when From > To.
func (r DateRange) Days() []string {
	return EnumerateDays(r.From, r.To)
}

// EnumerateDays lists each day in [from, to]. Invalid bounds or from > to yield nil.
func EnumerateDays(from, to string) []string {
	f, err := time.Parse(dayLayout, from)
	if err != nil {
		return nil
	}
	t, err := time.Parse(dayLayout, to)
	if err != nil || f.After(t) {
		return nil
	}
	var days []string
	for d := f; !d.After(t); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

// PreviousPeriod range of equal length ending the day before r.From.
func (r DateRange) PreviousPeriod() DateRange {
	f, errF := time.Parse(dayLayout, r.From)
	t, errT := time.Parse(dayLayout, r.To)
	if errF != nil || errT != nil || f.After(t) {
		return DateRange{}
	}
	n := len(EnumerateDays(r.From, r.To))
	prevTo := f.AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -(n - 1))
	return DateRange{From: prevFrom.Format(dayLayout), To: prevTo.Format(dayLayout)}
}

// LookbackRange the n days ending yesterday relative to now (UTC).
func LookbackRange(now time.Time, n int) DateRange {
	if n <= 0 {
		n = 1
	}
	to := now.UTC().AddDate(0, 0, -1)
	from := to.AddDate(0, 0, -(n - 1))
	return DateRange{From: from.Format(dayLayout), To: to.Format(dayLayout)}
}
