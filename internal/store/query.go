package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
)

// DefaultLocale is used for string ordering when none is configured.
var DefaultLocale = language.English

// Querier filters and orders items using the collation rules of a locale.
// Collators and casers are not safe for concurrent use, so they are built
// per call.
type Querier struct {
	locale language.Tag
}

// NewQuerier creates a Querier for locale.
func NewQuerier(locale language.Tag) *Querier {
	return &Querier{locale: locale}
}

// Locale returns the collation locale.
func (q *Querier) Locale() language.Tag {
	return q.locale
}

// Apply returns a new slice holding the items that pass filter, stably
// ordered by sortCfg. The input slice is not modified. A zero sortCfg
// means DefaultSort.
func (q *Querier) Apply(items []model.Item, filter model.Filter, sortCfg model.SortConfig) ([]model.Item, error) {
	if sortCfg == (model.SortConfig{}) {
		sortCfg = model.DefaultSort()
	}

	compare, err := q.comparator(sortCfg)
	if err != nil {
		return nil, err
	}

	result := q.filter(items, filter)
	slices.SortStableFunc(result, compare)

	return result, nil
}

// SortStrings returns values ordered by the locale collation.
func (q *Querier) SortStrings(values []string) []string {
	sorted := slices.Clone(values)
	col := collate.New(q.locale)
	slices.SortStableFunc(sorted, col.CompareString)
	return sorted
}

// filter keeps the items whose name contains the search term without
// regard to case and whose category equals the category filter.
func (q *Querier) filter(items []model.Item, filter model.Filter) []model.Item {
	fold := cases.Fold()
	term := fold.String(filter.SearchTerm)

	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if term != "" && !strings.Contains(fold.String(item.Name), term) {
			continue
		}
		result = append(result, item)
	}

	return result
}

// comparator builds the ordering function for sortCfg.
func (q *Querier) comparator(sortCfg model.SortConfig) (func(a, b model.Item) int, error) {
	field, err := model.ParseSortField(string(sortCfg.Field))
	if err != nil {
		return nil, err
	}

	direction, err := model.ParseSortDirection(string(sortCfg.Direction))
	if err != nil {
		return nil, err
	}

	var compare func(a, b model.Item) int
	switch field {
	case model.SortByName:
		col := collate.New(q.locale)
		compare = func(a, b model.Item) int { return col.CompareString(a.Name, b.Name) }
	case model.SortByCategory:
		col := collate.New(q.locale)
		compare = func(a, b model.Item) int { return col.CompareString(a.Category, b.Category) }
	case model.SortByQuantity:
		compare = func(a, b model.Item) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case model.SortByPrice:
		compare = func(a, b model.Item) int { return cmp.Compare(a.Price, b.Price) }
	case model.SortByLastUpdated:
		compare = func(a, b model.Item) int { return a.LastUpdated.Compare(b.LastUpdated) }
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidSortField, field)
	}

	if direction == model.SortDesc {
		return func(a, b model.Item) int { return -compare(a, b) }, nil
	}
	return compare, nil
}
