package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"orders-api/internal/account"
)

const maxJSONBodyBytes = 1 << 20

// AccountStore is the slice of account persistence the admin surface needs.
type AccountStore interface {
	account.Store
	Create(ctx context.Context, acc account.Account) (account.Account, error)
}

type Handler struct {
	store  AccountStore
	logger *zap.Logger
}

func NewHandler(store AccountStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type accountRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type accountResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Locked         bool   `json:"locked"`
	FailedAttempts int    `json:"failed_attempts"`
}

// CreateAccount provisions a new account. The incoming secret goes through the
// single hashed-secret policy, so a caller submitting an exported bcrypt hash
// gets it stored verbatim while plaintext is hashed.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	body, ok := parseAccountRequest(w, r)
	if !ok {
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	role := account.Role(body.Role)
	if body.Role == "" {
		role = account.RoleUser
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "role is invalid")
		return
	}

	hash, err := account.EnsureHashed(body.Password)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if _, err := h.store.FindByEmail(r.Context(), body.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, account.ErrNotFound) {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	created, err := h.store.Create(r.Context(), account.Account{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.logger.Info("account_created", zap.String("account_id", created.ID), zap.String("role", string(created.Role)))
	writeJSON(w, http.StatusCreated, toResponse(created))
}

// UpdateAccount changes name, role or secret of an existing account. Secrets
// follow the same hashed-secret policy as creation.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body accountRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	acc, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	if name := strings.TrimSpace(body.Name); name != "" {
		acc.Name = name
	}
	if body.Role != "" {
		role := account.Role(body.Role)
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "role is invalid")
			return
		}
		acc.Role = role
	}
	if body.Password != "" {
		hash, err := account.EnsureHashed(strings.TrimSpace(body.Password))
		if err != nil {
			sentry.CaptureException(err)
			writeError(w, http.StatusInternalServerError, "failed to update account")
			return
		}
		acc.PasswordHash = hash
	}

	updated, err := h.store.Save(r.Context(), acc)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

// UnlockAccount clears the lock state for a target account. This is a plain
// store mutation performed by a privileged caller, outside the token protocol.
func (h *Handler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acc, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to unlock account")
		return
	}

	acc.Locked = false
	acc.FailedAttempts = 0
	acc.LockedAt = nil

	updated, err := h.store.Save(r.Context(), acc)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to unlock account")
		return
	}

	h.logger.Info("account_unlocked", zap.String("account_id", updated.ID))
	writeJSON(w, http.StatusOK, toResponse(updated))
}

func parseAccountRequest(w http.ResponseWriter, r *http.Request) (accountRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body accountRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return accountRequest{}, false
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if _, err := mail.ParseAddress(body.Email); err != nil {
		writeError(w, http.StatusBadRequest, "email format is invalid")
		return accountRequest{}, false
	}

	return body, true
}

func toResponse(acc account.Account) accountResponse {
	return accountResponse{
		ID:             acc.ID,
		Name:           acc.Name,
		Email:          acc.Email,
		Role:           string(acc.Role),
		Locked:         acc.Locked,
		FailedAttempts: acc.FailedAttempts,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
