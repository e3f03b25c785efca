package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orders-api/internal/account"
	"orders-api/internal/admin"
)

type fakeStore struct {
	byID map[string]account.Account
}

func newFakeStore(accounts ...account.Account) *fakeStore {
	store := &fakeStore{byID: make(map[string]account.Account)}
	for _, acc := range accounts {
		store.byID[acc.ID] = acc
	}
	return store
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (account.Account, error) {
	for _, acc := range s.byID {
		if acc.Email == email {
			return acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (s *fakeStore) FindByID(_ context.Context, id string) (account.Account, error) {
	acc, ok := s.byID[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func (s *fakeStore) Save(_ context.Context, acc account.Account) (account.Account, error) {
	if _, ok := s.byID[acc.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	s.byID[acc.ID] = acc
	return acc, nil
}

func (s *fakeStore) Create(_ context.Context, acc account.Account) (account.Account, error) {
	acc.ID = uuid.NewString()
	s.byID[acc.ID] = acc
	return acc, nil
}

func TestUnlockClearsLockState(t *testing.T) {
	lockedAt := time.Now().UTC().Add(-5 * time.Minute)
	target := account.Account{
		ID:             uuid.NewString(),
		Name:           "user",
		Email:          "u@example.com",
		Role:           account.RoleUser,
		Locked:         true,
		FailedAttempts: 5,
		LockedAt:       &lockedAt,
	}
	store := newFakeStore(target)
	handler := admin.NewHandler(store, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+target.ID+"/unlock", nil)
	req.SetPathValue("id", target.ID)
	rec := httptest.NewRecorder()
	handler.UnlockAccount(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := store.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.False(t, saved.Locked)
	assert.Zero(t, saved.FailedAttempts)
	assert.Nil(t, saved.LockedAt)
}

func TestUnlockUnknownAccount(t *testing.T) {
	handler := admin.NewHandler(newFakeStore(), zap.NewNop())

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+id+"/unlock", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	handler.UnlockAccount(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/accounts/not-a-uuid/unlock", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec = httptest.NewRecorder()
	handler.UnlockAccount(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAccountHashesPlaintext(t *testing.T) {
	store := newFakeStore()
	handler := admin.NewHandler(store, zap.NewNop())

	body := `{"name":"new user","email":"new@example.com","password":"plain-secret-value","role":"user"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/accounts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateAccount(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	created, err := store.FindByID(context.Background(), resp["id"].(string))
	require.NoError(t, err)
	assert.True(t, account.IsHashed(created.PasswordHash))
	assert.True(t, account.VerifySecret("plain-secret-value", created.PasswordHash))
}

func TestCreateAccountKeepsPreHashedSecret(t *testing.T) {
	store := newFakeStore()
	handler := admin.NewHandler(store, zap.NewNop())

	hash, err := account.HashSecret("original-secret")
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]string{
		"name": "imported", "email": "imported@example.com", "password": hash,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	handler.CreateAccount(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	created, err := store.FindByID(context.Background(), resp["id"].(string))
	require.NoError(t, err)
	// The hash is stored verbatim, not re-hashed into garbage.
	assert.Equal(t, hash, created.PasswordHash)
	assert.True(t, account.VerifySecret("original-secret", created.PasswordHash))
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	existing := account.Account{ID: uuid.NewString(), Email: "u@example.com", Role: account.RoleUser}
	handler := admin.NewHandler(newFakeStore(existing), zap.NewNop())

	body := `{"name":"user","email":"u@example.com","password":"whatever-secret"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/accounts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateAccount(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAccountSecretPolicy(t *testing.T) {
	oldHash, err := account.HashSecret("old-secret")
	require.NoError(t, err)
	target := account.Account{
		ID: uuid.NewString(), Name: "user", Email: "u@example.com",
		PasswordHash: oldHash, Role: account.RoleUser,
	}
	store := newFakeStore(target)
	handler := admin.NewHandler(store, zap.NewNop())

	body := `{"email":"u@example.com","password":"brand-new-secret","role":"admin"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/accounts/"+target.ID, strings.NewReader(body))
	req.SetPathValue("id", target.ID)
	rec := httptest.NewRecorder()
	handler.UpdateAccount(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := store.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, saved.Role)
	assert.True(t, account.VerifySecret("brand-new-secret", saved.PasswordHash))
	assert.False(t, account.VerifySecret("old-secret", saved.PasswordHash))
}
