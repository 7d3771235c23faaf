// Package dashboard holds the view state of one dashboard client and turns
// its intents into rendered views of the inventory.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
)

// ErrUnknownIntent is returned for a client message type the session does
// not understand.
var ErrUnknownIntent = errors.New("unknown intent")

// Source is the part of the store a session reads from.
type Source interface {
	Query(ctx context.Context, filter model.Filter, sortCfg model.SortConfig) ([]model.Item, error)
	Categories(ctx context.Context) ([]string, error)
	Summary(ctx context.Context) (model.Summary, error)
}

// CategorySorter orders categories for display.
type CategorySorter interface {
	SortStrings(values []string) []string
}

// Session is the search term, category filter and sort toggle of a single
// dashboard client. It is not safe for concurrent use.
type Session struct {
	filter model.Filter
	sort   model.SortConfig
}

// NewSession creates a session showing every item sorted by name.
func NewSession() *Session {
	return &Session{sort: model.DefaultSort()}
}

// Filter returns the current filter.
func (s *Session) Filter() model.Filter {
	return s.filter
}

// Sort returns the current sort configuration.
func (s *Session) Sort() model.SortConfig {
	return s.sort
}

// Apply updates the view state from a client intent. On error the state is
// unchanged.
func (s *Session) Apply(msg model.ClientMessage) error {
	switch msg.Type {
	case model.WSMessageTypeSearch:
		s.filter.SearchTerm = msg.Term
	case model.WSMessageTypeFilter:
		s.filter.Category = msg.Category
	case model.WSMessageTypeSort:
		field, err := model.ParseSortField(msg.Field)
		if err != nil {
			return err
		}
		s.sort = s.sort.Toggle(field)
	case model.WSMessageTypeReset:
		s.filter = model.Filter{}
		s.sort = model.DefaultSort()
	case model.WSMessageTypeRefresh:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, msg.Type)
	}

	return nil
}

// Render builds the view for the current state from src. Categories are
// ordered with sorter when it is not nil.
func (s *Session) Render(ctx context.Context, src Source, sorter CategorySorter) (model.View, error) {
	items, err := src.Query(ctx, s.filter, s.sort)
	if err != nil {
		return model.View{}, fmt.Errorf("render view: %w", err)
	}

	categories, err := src.Categories(ctx)
	if err != nil {
		return model.View{}, fmt.Errorf("render view: %w", err)
	}
	if sorter != nil {
		categories = sorter.SortStrings(categories)
	}

	summary, err := src.Summary(ctx)
	if err != nil {
		return model.View{}, fmt.Errorf("render view: %w", err)
	}

	return model.View{
		Items:      items,
		Categories: categories,
		Summary:    summary,
		Filter:     s.filter,
		Sort:       s.sort,
	}, nil
}
