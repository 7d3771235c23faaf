package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-dashboard/internal/dashboard"
	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// Query parameters accepted by ListItems.
const (
	queryParamSearch    = "search"
	queryParamCategory  = "category"
	queryParamSort      = "sort"
	queryParamDirection = "dir"
)

// Names of the routes that change the inventory. Metrics label item
// mutations with them.
const (
	RouteCreateItem = "create_item"
	RouteUpdateItem = "update_item"
	RouteDeleteItem = "delete_item"
)

// RESTHandler handles REST API requests for the inventory.
type RESTHandler struct {
	store  store.Store
	sorter dashboard.CategorySorter
	logger *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. sorter orders the
// category list and may be nil to keep first-seen order.
func NewRESTHandler(s store.Store, sorter dashboard.CategorySorter, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		store:  s,
		sorter: sorter,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost).Name(RouteCreateItem)
	router.HandleFunc("/api/v1/items/validate", h.ValidateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.UpdateItem).Methods(http.MethodPut).Name(RouteUpdateItem)
	router.HandleFunc("/api/v1/items/{id}", h.DeleteItem).Methods(http.MethodDelete).Name(RouteDeleteItem)
	router.HandleFunc("/api/v1/categories", h.ListCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/summary", h.GetSummary).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListItems handles GET /api/v1/items requests. The result is filtered by
// the search and category parameters and ordered by sort and dir.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, sortCfg, err := parseQuery(r)
	if err != nil {
		h.logger.Warn("invalid query parameters", zap.Error(err))
		h.writeErrorDetails(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	items, err := h.store.Query(ctx, filter, sortCfg)
	if err != nil {
		h.handleStoreError(w, err, "list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	item, err := h.store.Add(ctx, draft)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.logger.Info("item created", zap.String("id", item.ID))
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /api/v1/items/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	item, err := h.store.Edit(ctx, id, draft)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	h.logger.Info("item updated", zap.String("id", item.ID))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(ctx, id); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.logger.Info("item deleted", zap.String("id", id))
	h.writeJSON(w, http.StatusNoContent, nil)
}

// ValidateItem handles POST /api/v1/items/validate requests. It checks a
// draft without storing it.
func (h *RESTHandler) ValidateItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.decodeDraft(w, r); !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.ValidationResult{Valid: true}))
}

// ListCategories handles GET /api/v1/categories requests.
func (h *RESTHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list categories")
		return
	}

	if h.sorter != nil {
		categories = h.sorter.SortStrings(categories)
	}
	if categories == nil {
		categories = []string{}
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(categories))
}

// GetSummary handles GET /api/v1/summary requests.
func (h *RESTHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "get summary")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(summary))
}

// decodeDraft reads and validates a draft from the request body. On failure
// it writes the error response and returns false.
func (h *RESTHandler) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Draft{}, false
	}

	if err := draft.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeValidationError(w, err)
		return model.Draft{}, false
	}

	return draft, true
}

// parseQuery extracts the filter and sort configuration of a list request.
func parseQuery(r *http.Request) (model.Filter, model.SortConfig, error) {
	q := r.URL.Query()
	filter := model.Filter{
		SearchTerm: q.Get(queryParamSearch),
		Category:   q.Get(queryParamCategory),
	}

	sortCfg := model.DefaultSort()
	if v := q.Get(queryParamSort); v != "" {
		field, err := model.ParseSortField(v)
		if err != nil {
			return model.Filter{}, model.SortConfig{}, err
		}
		sortCfg.Field = field
	}
	if v := q.Get(queryParamDirection); v != "" {
		direction, err := model.ParseSortDirection(v)
		if err != nil {
			return model.Filter{}, model.SortConfig{}, err
		}
		sortCfg.Direction = direction
	}

	return filter, sortCfg, nil
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeErrorDetails(w, status, message, "")
}

func (h *RESTHandler) writeErrorDetails(w http.ResponseWriter, status int, message, details string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
		Details: details,
	}
	h.writeJSON(w, status, response)
}

// writeValidationError answers 422 and lists every failing field.
func (h *RESTHandler) writeValidationError(w http.ResponseWriter, err error) {
	response := model.ErrorResponse{
		Code:    http.StatusUnprocessableEntity,
		Message: "validation failed",
		Details: err.Error(),
	}

	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		response.Fields = verrs
	}

	h.writeJSON(w, http.StatusUnprocessableEntity, response)
}
