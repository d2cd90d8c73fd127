// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/fscatalog/internal/errors"
	"github.com/abgdnv/fscatalog/internal/service"
	"github.com/abgdnv/fscatalog/internal/store"
	"github.com/abgdnv/fscatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds a product request body.
const maxBodyBytes = 1 << 20

type Handler struct {
	service service.ProductService
	logger  *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product catalog.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)
		r.Get("/lookup", h.Lookup)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Remove)
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadyCheck)
}

// FindAll returns the whole collection.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, nonNil(list))
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Lookup returns the first product matching every query parameter, e.g. /lookup?code=AB-1.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	predicate := make(store.Predicate, len(query))
	for key, values := range query {
		if len(values) > 1 {
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Parameter %s given more than once", key))
			return
		}
		predicate[key] = values[0]
	}

	mLogger.DebugContext(r.Context(), "Received product lookup", "predicate", predicate)
	found, err := h.service.FindBy(r.Context(), predicate)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to look up product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create handles the creation of a new product and responds with the updated collection.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	fields, ok := h.decodeFields(w, r, mLogger)
	if !ok {
		return
	}

	list, err := h.service.Create(r.Context(), fields)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	created := list[len(list)-1]
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Code", created.Code)
	web.RespondJSON(w, mLogger, http.StatusCreated, list)
}

// Update merges the request body over an existing product and responds with the updated collection.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	fields, ok := h.decodeFields(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	list, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Remove deletes a product by its ID.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadyCheck reports 503 while the collection cannot be read.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		mLogger := h.loggerWithReqID(r)
		mLogger.WarnContext(r.Context(), "Store is not ready", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodeFields reads a JSON object body. Numbers are kept as json.Number so integers stay exact.
func (h *Handler) decodeFields(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (store.Fields, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var fields store.Fields
	if err := dec.Decode(&fields); err != nil || fields == nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if dec.More() {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return fields, true
}

// respondServiceError maps store errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, fallback string) {
	var (
		validationErr *perrors.ValidationError
		conflictErr   *perrors.ConflictError
		notFoundErr   *perrors.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		mLogger.WarnContext(r.Context(), "Validation error", "fields", validationErr.Fields, "error", validationErr)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{
			"error":  validationErr.Error(),
			"fields": validationErr.Fields,
		})
	case errors.As(err, &conflictErr):
		mLogger.WarnContext(r.Context(), "Product code conflict", "code", conflictErr.Code, "existing_id", conflictErr.ExistingID)
		web.RespondError(w, mLogger, http.StatusConflict, conflictErr.Error())
	case errors.As(err, &notFoundErr):
		mLogger.WarnContext(r.Context(), "Product not found", "key", notFoundErr.Key)
		web.RespondError(w, mLogger, http.StatusNotFound, notFoundErr.Error())
	default:
		mLogger.ErrorContext(r.Context(), fallback, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fallback)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// nonNil keeps an empty collection encoded as [] instead of null.
func nonNil(c store.Collection) store.Collection {
	if c == nil {
		return store.Collection{}
	}
	return c
}
