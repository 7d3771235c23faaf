package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
)

// Defaults for MemoryStore.
const (
	DefaultSubscriberBuffer = 16
	maxIDAttempts           = 16
)

// MemoryStore implements Store with an insertion-ordered in-memory slice.
type MemoryStore struct {
	mu      sync.RWMutex
	items   []model.Item
	index   map[string]int
	ids     IDGenerator
	now     func() time.Time
	querier *Querier

	subMu       sync.Mutex
	subscribers map[int]chan model.ChangeEvent
	nextSubID   int
	subBuffer   int
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithIDGenerator sets the ID generator. The default issues UUIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *MemoryStore) {
		s.ids = g
	}
}

// WithClock sets the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithLocale sets the collation locale used by Query.
func WithLocale(tag language.Tag) Option {
	return func(s *MemoryStore) {
		s.querier = NewQuerier(tag)
	}
}

// WithSubscriberBuffer sets the channel capacity of each subscription.
func WithSubscriberBuffer(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.subBuffer = n
		}
	}
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		index:       make(map[string]int),
		ids:         UUIDGenerator{},
		now:         time.Now,
		querier:     NewQuerier(DefaultLocale),
		subscribers: make(map[int]chan model.ChangeEvent),
		subBuffer:   DefaultSubscriberBuffer,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Querier returns the querier used by Query.
func (s *MemoryStore) Querier() *Querier {
	return s.querier
}

// List returns all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	if err := checkContext(ctx, "list items"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.items), nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Item, error) {
	if err := checkContext(ctx, "get item"); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.index[id]
	if !exists {
		return nil, ErrNotFound
	}

	item := s.items[idx]
	return &item, nil
}

// Add appends a new item built from draft and returns it.
func (s *MemoryStore) Add(ctx context.Context, draft model.Draft) (*model.Item, error) {
	if err := checkContext(ctx, "add item"); err != nil {
		return nil, err
	}

	s.mu.Lock()

	id, err := s.uniqueID()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("add item: %w", err)
	}

	item := model.Item{
		ID:          id,
		Name:        draft.Name,
		Category:    draft.Category,
		Quantity:    draft.Quantity,
		Price:       draft.Price,
		LastUpdated: s.now().UTC(),
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, item)

	s.mu.Unlock()

	s.publish(model.ChangeEvent{Kind: model.ChangeCreated, ItemID: id})
	return &item, nil
}

// Edit replaces name, category, quantity and price of the item and
// advances LastUpdated. The ID never changes.
func (s *MemoryStore) Edit(ctx context.Context, id string, draft model.Draft) (*model.Item, error) {
	if err := checkContext(ctx, "edit item"); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()

	idx, exists := s.index[id]
	if !exists {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	existing := s.items[idx]
	updated := model.Item{
		ID:          id,
		Name:        draft.Name,
		Category:    draft.Category,
		Quantity:    draft.Quantity,
		Price:       draft.Price,
		LastUpdated: s.advance(existing.LastUpdated),
	}
	s.items[idx] = updated

	s.mu.Unlock()

	s.publish(model.ChangeEvent{Kind: model.ChangeUpdated, ItemID: id})
	return &updated, nil
}

// Delete removes an item from the store by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx, "delete item"); err != nil {
		return err
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()

	idx, exists := s.index[id]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}

	s.items = slices.Delete(s.items, idx, idx+1)
	delete(s.index, id)
	for i := idx; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}

	s.mu.Unlock()

	s.publish(model.ChangeEvent{Kind: model.ChangeDeleted, ItemID: id})
	return nil
}

// Seed inserts items with preset IDs. It fails without inserting anything
// if an ID is empty or already taken. A zero LastUpdated is set to now.
func (s *MemoryStore) Seed(ctx context.Context, items ...model.Item) error {
	if err := checkContext(ctx, "seed items"); err != nil {
		return err
	}

	s.mu.Lock()

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" {
			s.mu.Unlock()
			return fmt.Errorf("seed items: %w", ErrInvalidID)
		}
		if _, exists := s.index[item.ID]; exists || seen[item.ID] {
			s.mu.Unlock()
			return fmt.Errorf("seed item %s: %w", item.ID, ErrDuplicateID)
		}
		seen[item.ID] = true
	}

	now := s.now().UTC()
	for _, item := range items {
		if item.LastUpdated.IsZero() {
			item.LastUpdated = now
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}

	s.mu.Unlock()

	for _, item := range items {
		s.publish(model.ChangeEvent{Kind: model.ChangeCreated, ItemID: item.ID})
	}
	return nil
}

// Categories returns the distinct categories in first-seen order.
func (s *MemoryStore) Categories(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx, "list categories"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, item := range s.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}

	return categories, nil
}

// Summary computes the statistics of the current collection.
func (s *MemoryStore) Summary(ctx context.Context) (model.Summary, error) {
	if err := checkContext(ctx, "summarize items"); err != nil {
		return model.Summary{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Summarize(s.items), nil
}

// Query returns the items that pass filter, ordered by sortCfg.
func (s *MemoryStore) Query(
	ctx context.Context,
	filter model.Filter,
	sortCfg model.SortConfig,
) ([]model.Item, error) {
	if err := checkContext(ctx, "query items"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.querier.Apply(s.items, filter, sortCfg)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	return items, nil
}

// Subscribe registers for change events. Events are dropped for a
// subscriber whose buffer is full.
func (s *MemoryStore) Subscribe() (<-chan model.ChangeEvent, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan model.ChangeEvent, s.subBuffer)
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}

	return ch, cancel
}

// publish delivers event to every subscriber without blocking.
func (s *MemoryStore) publish(event model.ChangeEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// uniqueID asks the generator for an ID not yet in use. Caller holds mu.
func (s *MemoryStore) uniqueID() (string, error) {
	for range maxIDAttempts {
		id := s.ids.NextID()
		if id == "" {
			continue
		}
		if _, exists := s.index[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// advance returns the current time, or a nanosecond past prev when the
// clock has not moved beyond it.
func (s *MemoryStore) advance(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// checkContext returns the context error for op if ctx is already done.
func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}
