package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// failingStore wraps a MemoryStore and fails every call once err is set.
type failingStore struct {
	*store.MemoryStore
	err error
}

func (f *failingStore) List(ctx context.Context) ([]model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.List(ctx)
}

func (f *failingStore) Get(ctx context.Context, id string) (*model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Get(ctx, id)
}

func (f *failingStore) Add(ctx context.Context, draft model.Draft) (*model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Add(ctx, draft)
}

func (f *failingStore) Edit(ctx context.Context, id string, draft model.Draft) (*model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Edit(ctx, id, draft)
}

func (f *failingStore) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryStore.Delete(ctx, id)
}

func (f *failingStore) Categories(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Categories(ctx)
}

func (f *failingStore) Summary(ctx context.Context) (model.Summary, error) {
	if f.err != nil {
		return model.Summary{}, f.err
	}
	return f.MemoryStore.Summary(ctx)
}

func (f *failingStore) Query(ctx context.Context, filter model.Filter, sortCfg model.SortConfig) ([]model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Query(ctx, filter, sortCfg)
}

// newTestStore returns a store holding the demo inventory.
func newTestStore(t *testing.T) *failingStore {
	t.Helper()

	s := store.NewMemoryStore(store.WithIDGenerator(store.NewSequenceGenerator(100)))
	if err := s.Seed(context.Background(), store.DemoItems()...); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return &failingStore{MemoryStore: s}
}

func newTestRouter(t *testing.T, s *failingStore) *mux.Router {
	t.Helper()

	router := mux.NewRouter()
	NewRESTHandler(s, s.Querier(), zap.NewNop()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return data
}

func itemNames(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewRESTHandler(t *testing.T) {
	// Arrange
	s := newTestStore(t)
	logger := zap.NewNop()

	// Act
	handler := NewRESTHandler(s, nil, logger)

	// Assert
	if handler == nil {
		t.Fatal("NewRESTHandler() returned nil")
	}
	if handler.store == nil {
		t.Error("store should not be nil")
	}
	if handler.logger == nil {
		t.Error("logger should not be nil")
	}
}

func TestRESTHandler_HealthCheck(t *testing.T) {
	// Arrange
	router := newTestRouter(t, newTestStore(t))

	// Act
	rr := serve(router, http.MethodGet, "/health", nil)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("HealthCheck() status = %d, want %d", rr.Code, http.StatusOK)
	}

	var response model.APIResponse[HealthResponse]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("HealthCheck() response.Success = false, want true")
	}
	if response.Data.Status != "healthy" {
		t.Errorf("HealthCheck() status = %s, want healthy", response.Data.Status)
	}
	if response.Data.Version != Version {
		t.Errorf("HealthCheck() version = %s, want %s", response.Data.Version, Version)
	}
}

func TestRESTHandler_ReadyCheck(t *testing.T) {
	// Arrange
	router := newTestRouter(t, newTestStore(t))

	// Act
	rr := serve(router, http.MethodGet, "/ready", nil)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("ReadyCheck() status = %d, want %d", rr.Code, http.StatusOK)
	}

	var response model.APIResponse[ReadyResponse]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.Status != "ready" {
		t.Errorf("ReadyCheck() status = %s, want ready", response.Data.Status)
	}
}

func TestRESTHandler_ListItems(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		failWith   error
		wantStatus int
		wantNames  []string
	}{
		{
			name:       "default order is name ascending",
			target:     "/api/v1/items",
			wantStatus: http.StatusOK,
			wantNames:  []string{"Coffee Maker", "Desk Chair", "Laptop"},
		},
		{
			name:       "search term",
			target:     "/api/v1/items?search=co",
			wantStatus: http.StatusOK,
			wantNames:  []string{"Coffee Maker"},
		},
		{
			name:       "category filter",
			target:     "/api/v1/items?category=Furniture",
			wantStatus: http.StatusOK,
			wantNames:  []string{"Desk Chair"},
		},
		{
			name:       "sort by price descending",
			target:     "/api/v1/items?sort=price&dir=desc",
			wantStatus: http.StatusOK,
			wantNames:  []string{"Laptop", "Desk Chair", "Coffee Maker"},
		},
		{
			name:       "direction alone keeps name",
			target:     "/api/v1/items?dir=desc",
			wantStatus: http.StatusOK,
			wantNames:  []string{"Laptop", "Desk Chair", "Coffee Maker"},
		},
		{
			name:       "no match",
			target:     "/api/v1/items?search=zzz",
			wantStatus: http.StatusOK,
			wantNames:  []string{},
		},
		{
			name:       "invalid sort field",
			target:     "/api/v1/items?sort=id",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid direction",
			target:     "/api/v1/items?dir=up",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store error",
			target:     "/api/v1/items",
			failWith:   errors.New("database error"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			s.err = tt.failWith
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodGet, tt.target, nil)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("ListItems() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				var errResp model.ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
					t.Fatalf("Failed to decode error response: %v", err)
				}
				if errResp.Code != tt.wantStatus {
					t.Errorf("error code = %d, want %d", errResp.Code, tt.wantStatus)
				}
				return
			}

			var response model.APIResponse[[]model.Item]
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got := itemNames(response.Data); !equalStrings(got, tt.wantNames) {
				t.Errorf("ListItems() names = %v, want %v", got, tt.wantNames)
			}
		})
	}
}

func TestRESTHandler_GetItem(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		failWith   error
		wantStatus int
	}{
		{name: "existing item", id: "1", wantStatus: http.StatusOK},
		{name: "missing item", id: "404", wantStatus: http.StatusNotFound},
		{name: "store error", id: "1", failWith: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			s.err = tt.failWith
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodGet, "/api/v1/items/"+tt.id, nil)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("GetItem() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response model.APIResponse[model.Item]
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Data.Name != "Laptop" {
				t.Errorf("GetItem() name = %s, want Laptop", response.Data.Name)
			}
		})
	}
}

func TestRESTHandler_CreateItem(t *testing.T) {
	// Arrange
	s := newTestStore(t)
	router := newTestRouter(t, s)
	draft := model.Draft{Name: "Monitor", Category: "Electronics", Quantity: 4, Price: 249.5}

	// Act
	rr := serve(router, http.MethodPost, "/api/v1/items", mustJSON(t, draft))

	// Assert
	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateItem() status = %d, want %d", rr.Code, http.StatusCreated)
	}

	var response model.APIResponse[model.Item]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.ID != "101" {
		t.Errorf("CreateItem() id = %s, want 101", response.Data.ID)
	}
	if response.Data.LastUpdated.IsZero() {
		t.Error("CreateItem() lastUpdated should be set")
	}

	stored, err := s.Get(context.Background(), response.Data.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Draft() != draft {
		t.Errorf("stored draft = %+v, want %+v", stored.Draft(), draft)
	}
}

func TestRESTHandler_CreateItem_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		failWith   error
		wantStatus int
		wantFields []string
	}{
		{
			name:       "malformed body",
			body:       []byte("{invalid"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "every failing field is reported",
			body:       []byte(`{"name":"","category":" ","quantity":-1,"price":-5}`),
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"name", "category", "quantity", "price"},
		},
		{
			name:       "single failing field",
			body:       []byte(`{"name":"Lamp","category":"Lighting","quantity":1,"price":-0.01}`),
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"price"},
		},
		{
			name:       "sub-cent price",
			body:       []byte(`{"name":"Screw","category":"Hardware","quantity":1000,"price":0.004}`),
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"price"},
		},
		{
			name:       "store error",
			body:       []byte(`{"name":"Lamp","category":"Lighting","quantity":1,"price":10}`),
			failWith:   errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			s.err = tt.failWith
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodPost, "/api/v1/items", tt.body)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("CreateItem() status = %d, want %d", rr.Code, tt.wantStatus)
			}

			var errResp model.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			gotFields := make([]string, 0, len(errResp.Fields))
			for _, fe := range errResp.Fields {
				gotFields = append(gotFields, fe.Field)
			}
			if tt.wantFields != nil && !equalStrings(gotFields, tt.wantFields) {
				t.Errorf("fields = %v, want %v", gotFields, tt.wantFields)
			}
		})
	}
}

func TestRESTHandler_CreateItem_RejectedDraftIsNotStored(t *testing.T) {
	// Arrange
	s := newTestStore(t)
	router := newTestRouter(t, s)

	// Act
	serve(router, http.MethodPost, "/api/v1/items", []byte(`{"name":"","category":"X","quantity":1,"price":1}`))

	// Assert
	items, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("List() length = %d, want 3", len(items))
	}
}

func TestRESTHandler_UpdateItem(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       []byte
		wantStatus int
	}{
		{
			name:       "existing item",
			id:         "3",
			body:       []byte(`{"name":"Espresso Maker","category":"Appliances","quantity":5,"price":129.99}`),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing item",
			id:         "404",
			body:       []byte(`{"name":"Ghost","category":"None","quantity":1,"price":1}`),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid draft",
			id:         "3",
			body:       []byte(`{"name":"Espresso Maker","category":"","quantity":5,"price":129.99}`),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			id:         "3",
			body:       []byte("not json"),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodPut, "/api/v1/items/"+tt.id, tt.body)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("UpdateItem() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response model.APIResponse[model.Item]
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Data.ID != tt.id {
				t.Errorf("UpdateItem() id = %s, want %s", response.Data.ID, tt.id)
			}
			if response.Data.Name != "Espresso Maker" {
				t.Errorf("UpdateItem() name = %s, want Espresso Maker", response.Data.Name)
			}
		})
	}
}

func TestRESTHandler_DeleteItem(t *testing.T) {
	// Arrange
	s := newTestStore(t)
	router := newTestRouter(t, s)

	// Act
	rr := serve(router, http.MethodDelete, "/api/v1/items/2", nil)

	// Assert
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DeleteItem() status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("DeleteItem() body = %q, want empty", rr.Body.String())
	}

	rr = serve(router, http.MethodDelete, "/api/v1/items/2", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second DeleteItem() status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = serve(router, http.MethodGet, "/api/v1/categories", nil)
	var response model.APIResponse[[]string]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	for _, category := range response.Data {
		if category == "Furniture" {
			t.Error("Furniture should be gone after deleting its only item")
		}
	}
}

func TestRESTHandler_ValidateItem(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		wantStatus int
	}{
		{
			name:       "valid draft",
			body:       []byte(`{"name":"Lamp","category":"Lighting","quantity":0,"price":0}`),
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid draft",
			body:       []byte(`{"name":"Lamp","category":"Lighting","quantity":-3,"price":0}`),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			body:       []byte("["),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodPost, "/api/v1/items/validate", tt.body)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Fatalf("ValidateItem() status = %d, want %d", rr.Code, tt.wantStatus)
			}

			items, err := s.List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(items) != 3 {
				t.Errorf("ValidateItem() must not store anything, have %d items", len(items))
			}

			if tt.wantStatus == http.StatusOK {
				var response model.APIResponse[model.ValidationResult]
				if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if !response.Data.Valid {
					t.Error("ValidateItem() valid = false, want true")
				}
			}
		})
	}
}

func TestRESTHandler_ListCategories(t *testing.T) {
	tests := []struct {
		name   string
		sorted bool
		want   []string
	}{
		{name: "sorted for display", sorted: true, want: []string{"Appliances", "Electronics", "Furniture"}},
		{name: "first-seen order without sorter", sorted: false, want: []string{"Electronics", "Furniture", "Appliances"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			handler := NewRESTHandler(s, nil, zap.NewNop())
			if tt.sorted {
				handler.sorter = s.Querier()
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ListCategories(rr, req)

			// Assert
			if rr.Code != http.StatusOK {
				t.Fatalf("ListCategories() status = %d, want %d", rr.Code, http.StatusOK)
			}
			var response model.APIResponse[[]string]
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if !equalStrings(response.Data, tt.want) {
				t.Errorf("ListCategories() = %v, want %v", response.Data, tt.want)
			}
		})
	}
}

func TestRESTHandler_GetSummary(t *testing.T) {
	// Arrange
	router := newTestRouter(t, newTestStore(t))

	// Act
	rr := serve(router, http.MethodGet, "/api/v1/summary", nil)

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("GetSummary() status = %d, want %d", rr.Code, http.StatusOK)
	}

	var response model.APIResponse[model.Summary]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := model.Summary{TotalItems: 3, LowStockCount: 1, TotalValue: 17559.65}
	if response.Data != want {
		t.Errorf("GetSummary() = %+v, want %+v", response.Data, want)
	}
}

func TestRESTHandler_DerivedEndpointErrors(t *testing.T) {
	for _, target := range []string{"/api/v1/categories", "/api/v1/summary"} {
		t.Run(target, func(t *testing.T) {
			// Arrange
			s := newTestStore(t)
			s.err = errors.New("boom")
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodGet, target, nil)

			// Assert
			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
			}
		})
	}
}

func TestRESTHandler_EmptyResultsKeepData(t *testing.T) {
	tests := []struct {
		name   string
		seeded bool
		target string
	}{
		{"search without match", true, "/api/v1/items?search=zzz"},
		{"category without match", true, "/api/v1/items?category=Toys"},
		{"empty inventory", false, "/api/v1/items"},
		{"no categories", false, "/api/v1/categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := &failingStore{MemoryStore: store.NewMemoryStore()}
			if tt.seeded {
				s = newTestStore(t)
			}
			router := newTestRouter(t, s)

			// Act
			rr := serve(router, http.MethodGet, tt.target, nil)

			// Assert
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != `{"success":true,"data":[]}` {
				t.Errorf("body = %s, want an empty data list", got)
			}
		})
	}
}

func TestRESTHandler_MethodNotAllowed(t *testing.T) {
	// Arrange
	router := newTestRouter(t, newTestStore(t))

	// Act
	rr := serve(router, http.MethodPatch, "/api/v1/items/1", nil)

	// Assert
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestRESTHandler_WriteJSON(t *testing.T) {
	// Arrange
	handler := NewRESTHandler(newTestStore(t), nil, zap.NewNop())
	rr := httptest.NewRecorder()

	// Act
	handler.writeJSON(rr, http.StatusTeapot, map[string]string{"hello": "world"})

	// Assert
	if rr.Code != http.StatusTeapot {
		t.Errorf("writeJSON() status = %d, want %d", rr.Code, http.StatusTeapot)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
}
