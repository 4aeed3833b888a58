package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const bootstrapRawKey = "fh_0123456789abcdef0123456789abcdef"

type fakeKeyStore struct {
	keys      []*models.APIKey
	listErr   error
	createErr error
}

func (f *fakeKeyStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeKeyStore) ListAPIKeys(_ context.Context, depotID uuid.UUID) ([]*models.APIKey, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.APIKey
	for _, k := range f.keys {
		if k.DepotID == depotID && k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKeyStore) RevokeAPIKey(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func newTestKeys(s KeyStore) *Keys {
	return &Keys{store: s, cost: bcrypt.MinCost}
}

func TestBootstrap_CreatesAdminKey(t *testing.T) {
	depotID := uuid.New()
	fs := &fakeKeyStore{}

	created, err := newTestKeys(fs).Bootstrap(context.Background(), depotID, bootstrapRawKey)
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, fs.keys, 1)
	key := fs.keys[0]
	assert.Equal(t, depotID, key.DepotID)
	assert.Equal(t, BootstrapKeyName, key.Name)
	assert.Equal(t, []string{models.ScopeAdmin}, key.Scopes)
	assert.Equal(t, "fh_01234", key.KeyPrefix)
	assert.NotEqual(t, bootstrapRawKey, key.KeyHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(bootstrapRawKey)))
}

func TestBootstrap_EmptyKeyIsNoop(t *testing.T) {
	fs := &fakeKeyStore{}

	created, err := newTestKeys(fs).Bootstrap(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, fs.keys)
}

func TestBootstrap_SkipsWhenAdminKeyExists(t *testing.T) {
	depotID := uuid.New()
	fs := &fakeKeyStore{keys: []*models.APIKey{
		{ID: uuid.New(), DepotID: depotID, Name: "ops", Scopes: []string{models.ScopeAdmin}},
	}}

	created, err := newTestKeys(fs).Bootstrap(context.Background(), depotID, bootstrapRawKey)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, fs.keys, 1)
}

func TestBootstrap_IgnoresNonAdminAndRevokedKeys(t *testing.T) {
	depotID := uuid.New()
	revokedAt := time.Now().UTC()
	fs := &fakeKeyStore{keys: []*models.APIKey{
		{ID: uuid.New(), DepotID: depotID, Name: "truck-07", Scopes: []string{models.ScopeDriver}},
		{ID: uuid.New(), DepotID: depotID, Name: "old-ops", Scopes: []string{models.ScopeAdmin}, DeletedAt: &revokedAt},
		{ID: uuid.New(), DepotID: uuid.New(), Name: "other-depot", Scopes: []string{models.ScopeAdmin}},
	}}

	created, err := newTestKeys(fs).Bootstrap(context.Background(), depotID, bootstrapRawKey)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, fs.keys, 4)
}

func TestBootstrap_StoreErrors(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		fs := &fakeKeyStore{listErr: errors.New("connection refused")}

		_, err := newTestKeys(fs).Bootstrap(context.Background(), uuid.New(), bootstrapRawKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list api keys")
	})

	t.Run("create", func(t *testing.T) {
		fs := &fakeKeyStore{createErr: errors.New("connection reset")}

		_, err := newTestKeys(fs).Bootstrap(context.Background(), uuid.New(), bootstrapRawKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create bootstrap key")
	})
}

func TestBootstrap_RejectsShortKey(t *testing.T) {
	fs := &fakeKeyStore{}

	_, err := newTestKeys(fs).Bootstrap(context.Background(), uuid.New(), "fh_1")
	require.Error(t, err)
	assert.Empty(t, fs.keys)
}
