package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"orders-api/internal/auth"
)

const maxJSONBodyBytes = 1 << 20

// Store abstracts order persistence for the handlers.
type Store interface {
	ListByAccount(ctx context.Context, accountID string) ([]Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	Create(ctx context.Context, accountID string, input Input) (Order, error)
	Update(ctx context.Context, id string, input Input) (Order, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// All order routes sit behind the authentication middleware plus the
// RequireAuthenticated guard, so an identity is always present here.

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	orders, err := h.store.ListByAccount(r.Context(), identity.AccountID)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	input, ok := parseInput(w, r)
	if !ok {
		return
	}
	if input.Status == "" {
		input.Status = StatusCreated
	}
	if !input.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status is invalid")
		return
	}

	o, err := h.store.Create(r.Context(), identity.AccountID, input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}
	if !input.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status is invalid")
		return
	}

	o, err := h.store.Update(r.Context(), existing.ID, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), existing.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadOwned resolves the {id} path value and enforces ownership: a caller may
// touch only their own orders unless they hold an admin role.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (Order, bool) {
	identity, _ := auth.IdentityFrom(r.Context())

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return Order{}, false
	}

	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return Order{}, false
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return Order{}, false
	}

	if o.AccountID != identity.AccountID && !identity.Role.Admin() {
		writeError(w, http.StatusForbidden, "order belongs to another account")
		return Order{}, false
	}

	return o, true
}

func parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input Input
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return Input{}, false
	}

	if input.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be >= 0")
		return Input{}, false
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
