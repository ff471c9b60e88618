// Package storetest holds the behavior every types.Storage backend shares,
// as a reusable test suite.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// Factory returns a fresh, detached backend and the config to attach it with.
type Factory func(t *testing.T) (types.Storage, types.Config)

// Run exercises the Storage contract against backends built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("attach twice", func(t *testing.T) {
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		defer s.Detach()
		assert.ErrorIs(t, s.Attach(cfg), types.ErrAlreadyAttached)
	})

	t.Run("detach is idempotent", func(t *testing.T) {
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		require.NoError(t, s.Detach())
		assert.NoError(t, s.Detach())
	})

	t.Run("operations after detach", func(t *testing.T) {
		ctx := context.Background()
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		require.NoError(t, s.Detach())

		_, err := s.GetItem(ctx, "k")
		assert.ErrorIs(t, err, types.ErrStorageDetached)
		assert.ErrorIs(t, s.SetItem(ctx, "k", []byte("v")), types.ErrStorageDetached)
		assert.ErrorIs(t, s.RemoveItem(ctx, "k"), types.ErrStorageDetached)
	})

	t.Run("missing key", func(t *testing.T) {
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		defer s.Detach()

		_, err := s.GetItem(context.Background(), "absent")
		assert.ErrorIs(t, err, types.ErrKeyNotFound)
	})

	t.Run("set get replace remove", func(t *testing.T) {
		ctx := context.Background()
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		defer s.Detach()

		require.NoError(t, s.SetItem(ctx, types.KeyTokenCustomizations, []byte(`[]`)))
		got, err := s.GetItem(ctx, types.KeyTokenCustomizations)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))

		value := []byte(`[{"id":"f1","tokenType":"folder","parentId":"root","tokenOptions":{}}]`)
		require.NoError(t, s.SetItem(ctx, types.KeyTokenCustomizations, value))
		got, err = s.GetItem(ctx, types.KeyTokenCustomizations)
		require.NoError(t, err)
		assert.JSONEq(t, string(value), string(got))

		require.NoError(t, s.RemoveItem(ctx, types.KeyTokenCustomizations))
		_, err = s.GetItem(ctx, types.KeyTokenCustomizations)
		assert.ErrorIs(t, err, types.ErrKeyNotFound)

		assert.NoError(t, s.RemoveItem(ctx, types.KeyTokenCustomizations))
	})

	t.Run("keys are independent", func(t *testing.T) {
		ctx := context.Background()
		s, cfg := newStorage(t)
		require.NoError(t, s.Attach(cfg))
		defer s.Detach()

		require.NoError(t, s.SetItem(ctx, "MyTokens", []byte(`[1]`)))
		require.NoError(t, s.SetItem(ctx, "MyTokensFolders", []byte(`[2]`)))

		a, err := s.GetItem(ctx, "MyTokens")
		require.NoError(t, err)
		b, err := s.GetItem(ctx, "MyTokensFolders")
		require.NoError(t, err)
		assert.Equal(t, `[1]`, string(a))
		assert.Equal(t, `[2]`, string(b))
	})
}
