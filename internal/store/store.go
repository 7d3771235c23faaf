// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
)

// Store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidID   = errors.New("invalid item ID")
	ErrDuplicateID = errors.New("item ID already exists")
	ErrIDExhausted = errors.New("could not generate a unique item ID")
)

// Store defines the inventory operations. Drafts are expected to be
// validated by the caller; the store does not re-check them.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.Item, error)

	// Add creates a new item from draft with a fresh ID.
	Add(ctx context.Context, draft model.Draft) (*model.Item, error)

	// Edit replaces the draft fields of an existing item.
	Edit(ctx context.Context, id string, draft model.Draft) (*model.Item, error)

	// Delete removes an item. A nil error means the item was removed.
	Delete(ctx context.Context, id string) error

	// Categories returns the distinct categories in first-seen order.
	Categories(ctx context.Context) ([]string, error)

	// Summary computes the statistics of the current collection.
	Summary(ctx context.Context) (model.Summary, error)

	// Query returns the items matching filter, ordered by sortCfg.
	Query(ctx context.Context, filter model.Filter, sortCfg model.SortConfig) ([]model.Item, error)

	// Subscribe registers for change events. The returned function
	// cancels the subscription and closes the channel.
	Subscribe() (<-chan model.ChangeEvent, func())
}
