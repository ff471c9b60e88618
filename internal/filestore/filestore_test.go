package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tokenshelf/internal/storetest"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

func TestStoreStorage(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (types.Storage, types.Config) {
		return New(), types.Config{Backend: types.BackendFile, DataDir: t.TempDir()}
	})
}

func TestStoreFileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendFile, DataDir: dir}))
	defer s.Detach()

	require.NoError(t, s.SetItem(ctx, types.KeyTokenCustomizations, []byte(`[]`)))
	data, err := os.ReadFile(filepath.Join(dir, "TokenCustomizations.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, s.SetItem(ctx, "a/b", []byte(`1`)))
	_, err = os.Stat(filepath.Join(dir, "a%2Fb.json"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}
