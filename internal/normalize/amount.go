package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var cleanAmountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAmount parses a locale formatted amount such as "3.000.000" or
// "1.234,50". Dots are thousands separators and the comma is the decimal
// separator. A leading currency symbol and blanks are ignored. The result is
// never negative.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '.':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)

	if !cleanAmountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", domain.ErrInvalidAmount, raw, err)
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount for contexts that require a strictly
// positive value.
func ParsePositiveAmount(raw string) (decimal.Decimal, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be greater than zero", domain.ErrInvalidAmount, raw)
	}
	return d, nil
}

// FormatAmount renders d with "." thousands separators and a "," decimal
// separator. ParseAmount(FormatAmount(d)) equals d for any non-negative d.
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().String()

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// NormalizeCurrency upper-cases an ISO 4217 code and checks it is known.
// An empty input yields fallback.
func NormalizeCurrency(raw, fallback string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(fallback))
	}
	if money.GetCurrency(code) == nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, raw)
	}
	return code, nil
}
