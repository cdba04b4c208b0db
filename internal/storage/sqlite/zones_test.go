package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/internal/zones"
	"github.com/yegors/driverops/internal/zones/zonestest"
	"github.com/yegors/driverops/pkg/logger"
)

func newTestStorage(t *testing.T, path string) *ZoneStorage {
	t.Helper()
	db, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewZoneStorage(db, zones.SeedZones(), logger.NewNop())
	require.NoError(t, err)
	return store
}

func TestZoneStorageContract(t *testing.T) {
	zonestest.RunStoreContract(t, func(t *testing.T) zones.Store {
		return newTestStorage(t, ":memory:")
	})
}

func TestZoneStoragePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.db")
	ctx := context.Background()

	db, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	store, err := NewZoneStorage(db, zones.SeedZones(), logger.NewNop())
	require.NoError(t, err)

	created, err := store.Create(ctx, zones.ZoneInput{ZoneName: "Tampines Hub", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not reseed over existing rows
	reopened := newTestStorage(t, path)
	all, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all.Data, 5)

	got, err := reopened.Get(ctx, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tampines Hub", got.Data.ZoneName)
}
