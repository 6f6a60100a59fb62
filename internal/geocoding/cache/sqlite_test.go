package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/hermes/internal/geocoding/cache"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteCache(t *testing.T) {
	defer filet.CleanUp(t)

	ctx := t.Context()
	path := filepath.Join(filet.TmpDir(t, ""), "geocode.db")

	store, err := cache.Open(ctx, path)
	require.NoError(t, err)

	t.Run("miss on empty cache", func(t *testing.T) {
		_, found, err := store.Get(ctx, "paris")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "paris", models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}))

		coords, found, err := store.Get(ctx, "paris")
		require.NoError(t, err)
		require.True(t, found)
		assert.InEpsilon(t, 48.8566, coords.Latitude, 1e-9)
		assert.InEpsilon(t, 2.3522, coords.Longitude, 1e-9)
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "paris", models.Coordinates{Latitude: 1, Longitude: 2}))

		coords, found, err := store.Get(ctx, "paris")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, models.Coordinates{Latitude: 1, Longitude: 2}, coords)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, _, err := store.Get(ctx, " ")
		require.ErrorIs(t, err, cache.ErrEmptyKey)
		require.ErrorIs(t, store.Put(ctx, "", models.Coordinates{}), cache.ErrEmptyKey)
	})

	require.NoError(t, store.Close())

	t.Run("entries survive reopen", func(t *testing.T) {
		reopened, err := cache.Open(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		_, found, err := reopened.Get(ctx, "paris")
		require.NoError(t, err)
		assert.True(t, found)
	})
}
