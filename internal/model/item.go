// Package model defines data structures used throughout the application.
package model

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation limits for Draft fields.
const (
	MaxNameLength     = 255
	MaxCategoryLength = 100
	MaxQuantity       = 1_000_000_000
	MaxPrice          = 1_000_000_000
	MaxPriceDecimals  = 2
)

// LowStockThreshold is the quantity below which an item counts as low stock.
const LowStockThreshold = 10

// Item represents one stock-keeping unit held by the inventory.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// IsLowStock reports whether the item quantity is under LowStockThreshold.
func (i Item) IsLowStock() bool {
	return i.Quantity < LowStockThreshold
}

// Draft returns the caller-editable fields of the item.
func (i Item) Draft() Draft {
	return Draft{
		Name:     i.Name,
		Category: i.Category,
		Quantity: i.Quantity,
		Price:    i.Price,
	}
}

// Draft is the mutable field subset supplied for create and update.
// The store trusts drafts as given; callers must run Validate first.
type Draft struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// FieldError describes a single invalid Draft field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failing field of a Draft.
type ValidationErrors []FieldError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid item: " + strings.Join(parts, "; ")
}

// Validate checks the draft and returns ValidationErrors listing each
// failing field, or nil if the draft is acceptable.
func (d *Draft) Validate() error {
	var errs ValidationErrors

	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	case utf8.RuneCountInString(d.Name) > MaxNameLength:
		errs = append(errs, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxNameLength),
		})
	}

	category := strings.TrimSpace(d.Category)
	switch {
	case category == "":
		errs = append(errs, FieldError{Field: "category", Message: "is required"})
	case utf8.RuneCountInString(d.Category) > MaxCategoryLength:
		errs = append(errs, FieldError{
			Field:   "category",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxCategoryLength),
		})
	}

	switch {
	case d.Quantity < 0:
		errs = append(errs, FieldError{Field: "quantity", Message: "cannot be negative"})
	case d.Quantity > MaxQuantity:
		errs = append(errs, FieldError{
			Field:   "quantity",
			Message: fmt.Sprintf("cannot exceed %d", MaxQuantity),
		})
	}

	switch {
	case math.IsNaN(d.Price) || math.IsInf(d.Price, 0):
		errs = append(errs, FieldError{Field: "price", Message: "must be a finite number"})
	case d.Price < 0:
		errs = append(errs, FieldError{Field: "price", Message: "cannot be negative"})
	case d.Price > MaxPrice:
		errs = append(errs, FieldError{
			Field:   "price",
			Message: fmt.Sprintf("cannot exceed %d", MaxPrice),
		})
	case priceDecimals(d.Price) > MaxPriceDecimals:
		errs = append(errs, FieldError{
			Field:   "price",
			Message: fmt.Sprintf("cannot have more than %d decimal places", MaxPriceDecimals),
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Summary holds the dashboard statistics derived from the collection.
type Summary struct {
	TotalItems    int     `json:"totalItems"`
	LowStockCount int     `json:"lowStockCount"`
	TotalValue    float64 `json:"totalValue"`
}

// priceDecimals counts the digits after the decimal point in the shortest
// representation of price.
func priceDecimals(price float64) int {
	text := strconv.FormatFloat(price, 'f', -1, 64)
	if _, frac, ok := strings.Cut(text, "."); ok {
		return len(frac)
	}
	return 0
}

// Summarize computes the summary of items. Prices are whole cents, which
// Draft.Validate enforces, and the total is accumulated as an arbitrary
// precision integer so it cannot overflow. TotalValue is the float64
// nearest to the exact sum.
func Summarize(items []Item) Summary {
	total := new(big.Int)
	line := new(big.Int)
	s := Summary{TotalItems: len(items)}

	for _, item := range items {
		if item.IsLowStock() {
			s.LowStockCount++
		}
		priceCents, _ := big.NewFloat(math.Round(item.Price * 100)).Int(nil)
		line.Mul(priceCents, big.NewInt(int64(item.Quantity)))
		total.Add(total, line)
	}

	s.TotalValue, _ = new(big.Rat).SetFrac(total, big.NewInt(100)).Float64()
	return s
}
