package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
)

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dayFirstDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// ParseDate parses a calendar date in ISO (YYYY-MM-DD) or day-first
// (DD/MM/YYYY) form. The form is chosen by separator and group layout only,
// so "03/04/2025" is always the 3rd of April.
func ParseDate(raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)

	var y, m, d string
	if g := isoDatePattern.FindStringSubmatch(s); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else if g := dayFirstDatePattern.FindStringSubmatch(s); g != nil {
		d, m, y = g[1], g[2], g[3]
	} else {
		return civil.Date{}, fmt.Errorf("%w: %q want YYYY-MM-DD or DD/MM/YYYY", domain.ErrInvalidDate, raw)
	}

	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)

	date := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !date.IsValid() {
		return civil.Date{}, fmt.Errorf("%w: %q is out of range", domain.ErrInvalidDate, raw)
	}
	return date, nil
}

// FormatDate renders a date in canonical ISO form.
func FormatDate(d civil.Date) string {
	return d.String()
}

// CompareDates returns -1, 0 or +1 as a is before, equal to, or after b.
func CompareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
