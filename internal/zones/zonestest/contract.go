// Package zonestest holds the behaviour every zones.Store must share.
package zonestest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/internal/zones"
)

// RunStoreContract exercises a store created by newStore, which must be
// seeded with zones.SeedZones().
func RunStoreContract(t *testing.T, newStore func(t *testing.T) zones.Store) {
	ctx := context.Background()

	t.Run("ListSeeded", func(t *testing.T) {
		store := newStore(t)
		env, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, zones.MsgListed, env.Message)
		require.NotNil(t, env.Count)
		assert.Equal(t, 4, *env.Count)
		require.Len(t, env.Data, 4)
		assert.Equal(t, "Marina Bay", env.Data[0].ZoneName)
		assert.Equal(t, "Changi Airport", env.Data[3].ZoneName)
	})

	t.Run("ListActive", func(t *testing.T) {
		store := newStore(t)
		env, err := store.ListActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, zones.MsgActive, env.Message)
		require.NotNil(t, env.Count)
		assert.Equal(t, 3, *env.Count)
		for _, z := range env.Data {
			assert.True(t, z.IsActive)
			assert.NotEqual(t, "Sentosa", z.ZoneName)
		}
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(ctx, zones.ZoneInput{
			ZoneName:    "Jurong East",
			IsActive:    true,
			Coordinates: zones.Coordinates{Lat: 1.333, Lng: 103.742},
		})
		require.NoError(t, err)
		assert.Equal(t, zones.MsgCreated, created.Message)
		assert.NotEmpty(t, created.Data.ID)
		assert.NotEmpty(t, created.Data.CreatedAt)
		assert.Equal(t, created.Data.CreatedAt, created.Data.UpdatedAt)

		got, err := store.Get(ctx, created.Data.ID)
		require.NoError(t, err)
		assert.Equal(t, zones.MsgRetrieved, got.Message)
		assert.Equal(t, created.Data, got.Data)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all.Data, 5)
		assert.Equal(t, "Jurong East", all.Data[4].ZoneName)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		store := newStore(t)
		inactive := false
		env, err := store.Update(ctx, "6541abc123def456789", zones.ZonePatch{IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, zones.MsgUpdated, env.Message)
		assert.Equal(t, "Marina Bay", env.Data.ZoneName)
		assert.False(t, env.Data.IsActive)
		assert.InDelta(t, 1.28, env.Data.Coordinates.Lat, 1e-9)
		assert.Equal(t, "2025-10-27T10:00:00.000Z", env.Data.CreatedAt)

		got, err := store.Get(ctx, "6541abc123def456789")
		require.NoError(t, err)
		assert.False(t, got.Data.IsActive)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		env, err := store.Delete(ctx, "6541abc123def456791")
		require.NoError(t, err)
		assert.Equal(t, zones.MsgDeleted, env.Message)
		assert.Equal(t, "Sentosa", env.Data.ZoneName)

		_, err = store.Get(ctx, "6541abc123def456791")
		assertNotFound(t, err)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all.Data, 3)
	})

	t.Run("UnknownID", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assertNotFound(t, err)

		name := "x"
		_, err = store.Update(ctx, "missing", zones.ZonePatch{ZoneName: &name})
		assertNotFound(t, err)

		_, err = store.Delete(ctx, "missing")
		assertNotFound(t, err)
	})
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, zones.ErrNotFound))

	var apiErr *zones.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Zone not found", apiErr.Message)
}
