package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tokenshelf/internal/memstore"
	"github.com/mesh-intelligence/tokenshelf/internal/monsters"
	"github.com/mesh-intelligence/tokenshelf/internal/shelf"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// flakyStorage fails writes to the keys listed in failKeys.
type flakyStorage struct {
	*memstore.Store
	failKeys map[string]bool
}

func (f *flakyStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if f.failKeys[key] {
		return fmt.Errorf("write to %s refused", key)
	}
	return f.Store.SetItem(ctx, key, value)
}

func newStorage(t *testing.T, legacy map[string]string) *flakyStorage {
	t.Helper()
	ms := memstore.New()
	require.NoError(t, ms.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { ms.Detach() })
	for k, v := range legacy {
		require.NoError(t, ms.SetItem(context.Background(), k, []byte(v)))
	}
	return &flakyStorage{Store: ms, failKeys: map[string]bool{}}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func readKey(t *testing.T, s types.Storage, key string) string {
	t.Helper()
	data, err := s.GetItem(context.Background(), key)
	require.NoError(t, err)
	return string(data)
}

type failingSource struct{}

func (failingSource) FetchMonsters(context.Context, []string) ([]monsters.Monster, error) {
	return nil, errors.New("monster service unavailable")
}

type countingNotifier struct{ n int }

func (c *countingNotifier) TokensChanged(context.Context) { c.n++ }

func TestRunMigratesPlayerImages(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
	})
	store := shelf.New(storage)
	n := &countingNotifier{}
	m := New(store, storage, WithNotifier(n))

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, StateCompleted, m.State())
	assert.Equal(t, 1, n.n)

	all := store.All()
	require.Len(t, all, 1)
	pc := all[0]
	assert.Equal(t, "p1", pc.ID())
	assert.True(t, pc.IsPC())
	assert.Equal(t, []string{"a.png"}, pc.AlternativeImages())
	_, hasImages := pc.Option("images")
	assert.False(t, hasImages)

	assert.JSONEq(t, `{"p1":{"images":["a.png"],"didMigrate":true}}`, readKey(t, storage, KeyPlayerTokenCustomizations))
	assert.JSONEq(t, `{"didMigrate":true}`, readKey(t, storage, KeyCustomTokenImageMap))
}

func TestRunSkipsAlreadyMigratedPlayers(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"didMigrate":true,"imageSize":2},"p2":{"imageSize":3},"":{"imageSize":4}}`,
	})
	store := shelf.New(storage)
	require.NoError(t, New(store, storage).Run(ctx))

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "p2", all[0].ID())
	v, _ := all[0].Option("imageSize")
	assert.Equal(t, int64(3), v)
	_, hasFlag := all[0].Option("didMigrate")
	assert.False(t, hasFlag)
}

func TestRunMigratesMonstersWithNames(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyCustomTokenImageMap: `{"17":["https://x/gob.png"],"42":[],"99":"not-a-list","didMigrate":false}`,
	})
	store := shelf.New(storage)
	m := New(store, storage, WithMonsterSource(monsters.StaticSource{"17": "Goblin"}))

	require.NoError(t, m.Run(ctx))

	all := store.All()
	require.Len(t, all, 1)
	mon := all[0]
	assert.True(t, mon.IsMonster())
	assert.Equal(t, "17", mon.ID())
	assert.Equal(t, types.RootFolderMonsters.ID, mon.ParentID())
	assert.Equal(t, []string{"https://x/gob.png"}, mon.AlternativeImages())
	name, _ := mon.Option(types.OptionName)
	assert.Equal(t, "Goblin", name)

	var images map[string]any
	require.NoError(t, json.Unmarshal([]byte(readKey(t, storage, KeyCustomTokenImageMap)), &images))
	assert.Equal(t, true, images["didMigrate"])
	assert.Equal(t, []any{"https://x/gob.png"}, images["17"])
}

func TestRunMigratesMyTokens(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyMyTokensFolders: `[
			{"name":"Goblins","folderPath":"/","collapsed":true},
			{"name":"Archers","folderPath":"/Goblins"}
		]`,
		KeyMyTokens: `[
			{"name":"Gob","folderPath":"/Goblins/Archers","image":"https://x/gob.png","alternativeImages":["https://x/gob.png"],"imageSize":2,"didMigrateToMyToken":true,"oldFolderKey":"k"},
			{"name":"Loose","folderPath":"/"},
			{"name":"Deep","folderpath":"/Undead/Skeletons"}
		]`,
	})
	store := shelf.New(storage)
	m := New(store, storage, WithIDGenerator(sequentialIDs()))
	require.NoError(t, m.Run(ctx))

	byName := map[string]*types.Customization{}
	for _, c := range store.All() {
		byName[store.Name(c)] = c
	}
	require.Contains(t, byName, "Goblins")
	require.Contains(t, byName, "Archers")
	require.Contains(t, byName, "Undead")
	require.Contains(t, byName, "Skeletons")

	assert.Equal(t, types.RootFolderMyTokens.ID, byName["Goblins"].ParentID())
	assert.Equal(t, byName["Goblins"].ID(), byName["Archers"].ParentID())
	assert.Equal(t, byName["Undead"].ID(), byName["Skeletons"].ParentID())

	gob := byName["Gob"]
	require.NotNil(t, gob)
	assert.True(t, gob.IsMyToken())
	assert.Equal(t, byName["Archers"].ID(), gob.ParentID())
	assert.Equal(t, types.Options{
		types.OptionName:              "Gob",
		types.OptionAlternativeImages: []string{"https://x/gob.png"},
		"imageSize":                   int64(2),
	}, gob.Options())

	path, err := store.FullPath(gob)
	require.NoError(t, err)
	assert.Equal(t, "/My Tokens/Goblins/Archers/Gob", path)

	assert.Equal(t, types.RootFolderMyTokens.ID, byName["Loose"].ParentID())
	assert.Equal(t, byName["Skeletons"].ID(), byName["Deep"].ParentID())
}

func TestRunSkipsWhenAlreadyCompleted(t *testing.T) {
	ctx := context.Background()
	legacy := map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
		KeyCustomTokenImageMap:       `{"didMigrate":true}`,
	}
	storage := newStorage(t, legacy)
	store := shelf.New(storage)
	m := New(store, storage)

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, StateSkipped, m.State())
	assert.Equal(t, 0, store.Len())

	_, err := storage.GetItem(ctx, types.KeyTokenCustomizations)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
	assert.Equal(t, legacy[KeyPlayerTokenCustomizations], readKey(t, storage, KeyPlayerTokenCustomizations))
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
	})
	store := shelf.New(storage)

	require.NoError(t, New(store, storage).Run(ctx))
	second := New(store, storage)
	require.NoError(t, second.Run(ctx))
	assert.Equal(t, StateSkipped, second.State())
	assert.Equal(t, 1, store.Len())
}

func TestRunRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	legacy := map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
		KeyCustomTokenImageMap:       `{"17":["https://x/gob.png"]}`,
	}
	storage := newStorage(t, legacy)
	storage.failKeys[types.KeyTokenCustomizations] = true
	store := shelf.New(storage)
	n := &countingNotifier{}
	m := New(store, storage, WithNotifier(n))

	err := m.Run(ctx)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorIs(t, err, types.ErrPersistenceFailure)
	assert.Equal(t, StateRolledBack, m.State())
	assert.Equal(t, 0, n.n)

	assert.Equal(t, legacy[KeyPlayerTokenCustomizations], readKey(t, storage, KeyPlayerTokenCustomizations))
	assert.Equal(t, legacy[KeyCustomTokenImageMap], readKey(t, storage, KeyCustomTokenImageMap))
	_, err = storage.GetItem(ctx, types.KeyTokenCustomizations)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestRunRollsBackOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	legacy := map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
		KeyCustomTokenImageMap:       `{"17":["https://x/gob.png"]}`,
	}
	storage := newStorage(t, legacy)
	store := shelf.New(storage)
	m := New(store, storage, WithMonsterSource(failingSource{}))

	err := m.Run(ctx)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.Equal(t, StateRolledBack, m.State())

	assert.Equal(t, legacy[KeyPlayerTokenCustomizations], readKey(t, storage, KeyPlayerTokenCustomizations))
	assert.Equal(t, legacy[KeyCustomTokenImageMap], readKey(t, storage, KeyCustomTokenImageMap))
	assert.Equal(t, `[]`, readKey(t, storage, types.KeyTokenCustomizations))
}

func TestRunRollsBackWhenFlagWriteFails(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyPlayerTokenCustomizations: `{"p1":{"images":["a.png"]}}`,
	})
	storage.failKeys[KeyCustomTokenImageMap] = true
	store := shelf.New(storage)
	m := New(store, storage)

	err := m.Run(ctx)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.Equal(t, StateRolledBack, m.State())

	assert.JSONEq(t, `{"p1":{"images":["a.png"],"didMigrate":false}}`, readKey(t, storage, KeyPlayerTokenCustomizations))
	assert.Equal(t, `[]`, readKey(t, storage, types.KeyTokenCustomizations))
	assert.Equal(t, 0, store.Len())
}

func TestRunUnreadableGuard(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t, map[string]string{
		KeyCustomTokenImageMap:       `{broken`,
		types.KeyTokenCustomizations: `[{"id":"f1","tokenType":"folder","parentId":"root","tokenOptions":{}}]`,
	})
	store := shelf.New(storage)
	m := New(store, storage)

	err := m.Run(ctx)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.Equal(t, StateNotStarted, m.State())
	assert.Contains(t, readKey(t, storage, types.KeyTokenCustomizations), `"f1"`)
}
