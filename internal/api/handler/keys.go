package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/fuelhaul/internal/api/middleware"
	"github.com/kiranshivaraju/fuelhaul/internal/api/response"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// rawKeyPrefix marks fuelhaul API keys so they are recognisable in configs and logs.
const rawKeyPrefix = "fh_"

var knownScopes = map[string]bool{
	models.ScopeDriver:   true,
	models.ScopeDispatch: true,
	models.ScopeAdmin:    true,
}

// KeyStore is the subset of store.Store the admin key handlers need.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, depotID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, depotID uuid.UUID) error
}

// Keys serves the admin API key endpoints.
type Keys struct {
	store KeyStore
	cost  int
}

// NewKeys creates the key handlers. Keys are hashed with bcrypt.DefaultCost.
func NewKeys(s KeyStore) *Keys {
	return &Keys{store: s, cost: bcrypt.DefaultCost}
}

// Create handles POST /api/v1/admin/keys. The raw key is only ever returned here.
func (h *Keys) Create(w http.ResponseWriter, r *http.Request) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return
	}

	var req struct {
		Name   string   `json:"name"`
		Scopes []string `json:"scopes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
		return
	}
	if len(req.Scopes) == 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "at least one scope is required", nil)
		return
	}
	for _, s := range req.Scopes {
		if !knownScopes[s] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown scope "+s, nil)
			return
		}
	}

	rawKey := rawKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	key, err := h.newKey(depotID, req.Name, rawKey, req.Scopes)
	if err != nil {
		slog.Error("hash api key", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "API key with this name already exists", nil)
			return
		}
		slog.Error("create api key", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	slog.Info("api key created", "key_id", key.ID, "name", key.Name, "scopes", key.Scopes)
	response.Created(w, map[string]any{
		"id":         key.ID,
		"name":       key.Name,
		"key":        rawKey,
		"key_prefix": key.KeyPrefix,
		"scopes":     key.Scopes,
		"created_at": key.CreatedAt,
	})
}

// BootstrapKeyName is the name given to the admin key installed at startup.
const BootstrapKeyName = "bootstrap-admin"

// Bootstrap installs rawKey as an admin key for the depot unless the depot already
// has a live admin key. It reports whether a key was created. An empty rawKey is a no-op.
func (h *Keys) Bootstrap(ctx context.Context, depotID uuid.UUID, rawKey string) (bool, error) {
	if rawKey == "" {
		return false, nil
	}
	if len(rawKey) < mw.KeyPrefixLen {
		return false, fmt.Errorf("bootstrap key shorter than %d characters", mw.KeyPrefixLen)
	}

	existing, err := h.store.ListAPIKeys(ctx, depotID)
	if err != nil {
		return false, fmt.Errorf("list api keys: %w", err)
	}
	for _, k := range existing {
		if k.DeletedAt == nil && slices.Contains(k.Scopes, models.ScopeAdmin) {
			return false, nil
		}
	}

	key, err := h.newKey(depotID, BootstrapKeyName, rawKey, []string{models.ScopeAdmin})
	if err != nil {
		return false, fmt.Errorf("hash bootstrap key: %w", err)
	}
	if err := h.store.CreateAPIKey(ctx, key); err != nil {
		return false, fmt.Errorf("create bootstrap key: %w", err)
	}

	slog.Info("bootstrap admin key created", "key_id", key.ID, "depot_id", depotID, "key_prefix", key.KeyPrefix)
	return true, nil
}

func (h *Keys) newKey(depotID uuid.UUID, name, rawKey string, scopes []string) (*models.APIKey, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), h.cost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		DepotID:   depotID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:mw.KeyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List handles GET /api/v1/admin/keys. Hashes never leave the store.
func (h *Keys) List(w http.ResponseWriter, r *http.Request) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return
	}

	keys, err := h.store.ListAPIKeys(r.Context(), depotID)
	if err != nil {
		slog.Error("list api keys", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list keys", nil)
		return
	}
	if keys == nil {
		keys = []*models.APIKey{}
	}
	response.JSON(w, keys)
}

// Revoke handles DELETE /api/v1/admin/keys/{keyID}.
func (h *Keys) Revoke(w http.ResponseWriter, r *http.Request) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_KEY_ID", "Invalid key ID", nil)
		return
	}

	if err := h.store.RevokeAPIKey(r.Context(), keyID, depotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found", nil)
			return
		}
		slog.Error("revoke api key", "key_id", keyID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke key", nil)
		return
	}

	slog.Info("api key revoked", "key_id", keyID)
	response.NoContent(w)
}
