package order_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-api/internal/account"
	"orders-api/internal/auth"
	"orders-api/internal/order"
)

type fakeStore struct {
	byID map[string]order.Order
}

func newFakeStore(orders ...order.Order) *fakeStore {
	store := &fakeStore{byID: make(map[string]order.Order)}
	for _, o := range orders {
		store.byID[o.ID] = o
	}
	return store
}

func (s *fakeStore) ListByAccount(_ context.Context, accountID string) ([]order.Order, error) {
	result := make([]order.Order, 0)
	for _, o := range s.byID {
		if o.AccountID == accountID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return order.Order{}, sql.ErrNoRows
	}
	return o, nil
}

func (s *fakeStore) Create(_ context.Context, accountID string, input order.Input) (order.Order, error) {
	o := order.Order{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    input.Amount,
		Status:    input.Status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.byID[o.ID] = o
	return o, nil
}

func (s *fakeStore) Update(_ context.Context, id string, input order.Input) (order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return order.Order{}, sql.ErrNoRows
	}
	o.Amount = input.Amount
	o.Status = input.Status
	o.UpdatedAt = time.Now().UTC()
	s.byID[id] = o
	return o, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

func asIdentity(req *http.Request, identity auth.Identity) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

var (
	owner    = auth.Identity{AccountID: "acc-owner", Subject: "owner@example.com", Role: account.RoleUser}
	stranger = auth.Identity{AccountID: "acc-other", Subject: "other@example.com", Role: account.RoleUser}
	admin    = auth.Identity{AccountID: "acc-admin", Subject: "admin@admin.com", Role: account.RoleAdmin}
)

func TestCreateAndListOrders(t *testing.T) {
	store := newFakeStore()
	handler := order.NewHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"amount":49.90}`))
	rec := httptest.NewRecorder()
	handler.CreateOrder(rec, asIdentity(req, owner))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, owner.AccountID, created.AccountID)
	assert.Equal(t, order.StatusCreated, created.Status)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec = httptest.NewRecorder()
	handler.ListOrders(rec, asIdentity(req, owner))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	// Another caller sees an empty list, not the owner's orders.
	rec = httptest.NewRecorder()
	handler.ListOrders(rec, asIdentity(req, stranger))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestCreateOrderValidation(t *testing.T) {
	handler := order.NewHandler(newFakeStore())

	cases := map[string]string{
		"negative amount": `{"amount":-1}`,
		"bad status":      `{"amount":5,"status":"teleported"}`,
		"bad json":        `{"amount":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.CreateOrder(rec, asIdentity(req, owner))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetOrderOwnership(t *testing.T) {
	existing := order.Order{ID: uuid.NewString(), AccountID: owner.AccountID, Amount: 10, Status: order.StatusPaid}
	handler := order.NewHandler(newFakeStore(existing))

	get := func(identity auth.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+existing.ID, nil)
		req.SetPathValue("id", existing.ID)
		rec := httptest.NewRecorder()
		handler.GetOrder(rec, asIdentity(req, identity))
		return rec
	}

	assert.Equal(t, http.StatusOK, get(owner).Code)
	assert.Equal(t, http.StatusForbidden, get(stranger).Code)
	// Admin roles may inspect any order.
	assert.Equal(t, http.StatusOK, get(admin).Code)
}

func TestUpdateAndDeleteOrder(t *testing.T) {
	existing := order.Order{ID: uuid.NewString(), AccountID: owner.AccountID, Amount: 10, Status: order.StatusCreated}
	store := newFakeStore(existing)
	handler := order.NewHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/orders/"+existing.ID, strings.NewReader(`{"amount":12.5,"status":"paid"}`))
	req.SetPathValue("id", existing.ID)
	rec := httptest.NewRecorder()
	handler.UpdateOrder(rec, asIdentity(req, owner))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, order.StatusPaid, updated.Status)
	assert.Equal(t, 12.5, updated.Amount)

	req = httptest.NewRequest(http.MethodDelete, "/orders/"+existing.ID, nil)
	req.SetPathValue("id", existing.ID)
	rec = httptest.NewRecorder()
	handler.DeleteOrder(rec, asIdentity(req, owner))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/orders/"+existing.ID, nil)
	req.SetPathValue("id", existing.ID)
	rec = httptest.NewRecorder()
	handler.DeleteOrder(rec, asIdentity(req, owner))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderInvalidID(t *testing.T) {
	handler := order.NewHandler(newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	handler.GetOrder(rec, asIdentity(req, owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
