package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
)

// AllCategories disables the category filter.
const AllCategories = "all"

type predicate func(tx *domain.Transaction) bool

// categoryPredicate resolves a free-text category filter. A label the
// normalizer recognizes matches that category only; anything else matches
// every canonical category whose name contains it.
func categoryPredicate(label string) predicate {
	folded := normalize.Fold(label)
	if folded == "" || folded == AllCategories {
		return nil
	}
	if c, ok := normalize.LookupCategory(label); ok {
		return func(tx *domain.Transaction) bool { return tx.Category == c }
	}
	return func(tx *domain.Transaction) bool {
		return strings.Contains(normalize.Fold(string(tx.Category)), folded)
	}
}

// periodPredicate filters by year and optionally month.
func periodPredicate(year, month *int) (predicate, error) {
	if month != nil && year == nil {
		return nil, fmt.Errorf("%w: month %d given without a year", domain.ErrAmbiguousPeriod, *month)
	}
	if year == nil {
		return nil, nil
	}
	if *year < 1 || *year > 9999 {
		return nil, fmt.Errorf("%w: year %d", domain.ErrInvalidFilter, *year)
	}
	y := *year
	if month == nil {
		return func(tx *domain.Transaction) bool { return tx.Date.Year == y }, nil
	}
	if *month < 1 || *month > 12 {
		return nil, fmt.Errorf("%w: month %d", domain.ErrInvalidFilter, *month)
	}
	m := *month
	return func(tx *domain.Transaction) bool {
		return tx.Date.Year == y && int(tx.Date.Month) == m
	}, nil
}

// rangePredicate filters by an inclusive date range; either end may be open.
func rangePredicate(start, end *civil.Date) (predicate, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", domain.ErrInvalidFilter, start, end)
	}
	return func(tx *domain.Transaction) bool {
		if start != nil && tx.Date.Before(*start) {
			return false
		}
		if end != nil && tx.Date.After(*end) {
			return false
		}
		return true
	}, nil
}

func all(preds ...predicate) predicate {
	var active []predicate
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	return func(tx *domain.Transaction) bool {
		for _, p := range active {
			if !p(tx) {
				return false
			}
		}
		return true
	}
}
