package model

import (
	"errors"
	"fmt"
)

// Query errors.
var (
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidSortDirection = errors.New("invalid sort direction")
)

// SortField names an Item attribute the collection can be ordered by.
type SortField string

// Sortable fields.
const (
	SortByName        SortField = "name"
	SortByCategory    SortField = "category"
	SortByQuantity    SortField = "quantity"
	SortByPrice       SortField = "price"
	SortByLastUpdated SortField = "lastUpdated"
)

// SortDirection is either ascending or descending.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortField converts s into a SortField.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortByName, SortByCategory, SortByQuantity, SortByPrice, SortByLastUpdated:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortField, s)
	}
}

// ParseSortDirection converts s into a SortDirection.
func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(s); d {
	case SortAsc, SortDesc:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortDirection, s)
	}
}

// Filter selects the items shown in a view.
type Filter struct {
	// SearchTerm is matched case-insensitively against item names.
	SearchTerm string `json:"searchTerm"`
	// Category must equal the item category exactly. Empty matches all.
	Category string `json:"category"`
}

// SortConfig orders a view by a single field.
type SortConfig struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort is the ordering of a fresh view.
func DefaultSort() SortConfig {
	return SortConfig{Field: SortByName, Direction: SortAsc}
}

// Toggle returns the configuration after the user asks to sort by field:
// the same field flips the direction, a different field starts ascending.
func (c SortConfig) Toggle(field SortField) SortConfig {
	if c.Field == field && c.Direction == SortAsc {
		return SortConfig{Field: field, Direction: SortDesc}
	}
	return SortConfig{Field: field, Direction: SortAsc}
}
