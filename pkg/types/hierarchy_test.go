package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver resolves parents from a folder map and creates root folder
// customizations on demand.
type fakeResolver struct {
	folders map[string]*Customization
	players StaticRoster
	ensured []string
	failing bool
}

func newFakeResolver(items ...*Customization) *fakeResolver {
	r := &fakeResolver{folders: map[string]*Customization{}}
	for _, c := range items {
		r.folders[c.ID()] = c
	}
	return r
}

func (r *fakeResolver) FindParent(parentID string) (*Customization, bool) {
	c, ok := r.folders[parentID]
	return c, ok
}

func (r *fakeResolver) PlayerName(playerID string) (string, bool) {
	return r.players.PlayerName(playerID)
}

func (r *fakeResolver) EnsureRootFolder(root RootFolder) (*Customization, error) {
	r.ensured = append(r.ensured, root.ID)
	if r.failing {
		return nil, errors.New("storage down")
	}
	if c, ok := r.folders[root.ID]; ok {
		return c, nil
	}
	c, err := NewFolder(root.ID, RootFolderRoot.ID, Options{OptionName: root.Name})
	if err != nil {
		return nil, err
	}
	r.folders[root.ID] = c
	return c, nil
}

func mustFolder(t *testing.T, id, parent string, opts Options) *Customization {
	t.Helper()
	c, err := NewFolder(id, parent, opts)
	require.NoError(t, err)
	return c
}

func TestFindAncestors(t *testing.T) {
	f1 := mustFolder(t, "f1", RootFolderMyTokens.ID, Options{OptionName: "Goblins"})
	f2 := mustFolder(t, "f2", "f1", Options{OptionName: "Archers"})
	tok, err := NewMyToken("t1", "f2", Options{OptionName: "Gob"})
	require.NoError(t, err)

	r := newFakeResolver(f1, f2)
	ancestors, err := tok.FindAncestors(r)
	require.NoError(t, err)

	ids := make([]string, len(ancestors))
	for i, a := range ancestors {
		ids[i] = a.ID()
	}
	assert.Equal(t, []string{"t1", "f2", "f1", RootFolderMyTokens.ID}, ids)
	assert.Equal(t, []string{RootFolderMyTokens.ID}, r.ensured)

	// the synthesized root is reused on the next walk
	_, err = tok.FindAncestors(r)
	require.NoError(t, err)
	assert.Len(t, r.ensured, 1)
}

func TestFindAncestorsHTMLIDParent(t *testing.T) {
	tok, err := NewMyToken("t1", HTMLID(RootFolderMyTokens.Path), nil)
	require.NoError(t, err)

	r := newFakeResolver()
	ancestors, err := tok.FindAncestors(r)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, RootFolderMyTokens.ID, ancestors[1].ID())
}

func TestFindAncestorsStopsAtUnknownParent(t *testing.T) {
	tok, err := NewMyToken("t1", "deleted-folder", nil)
	require.NoError(t, err)

	r := newFakeResolver()
	ancestors, err := tok.FindAncestors(r)
	require.NoError(t, err)
	assert.Len(t, ancestors, 1)
	assert.Empty(t, r.ensured)
}

func TestFindAncestorsRootFailure(t *testing.T) {
	tok, err := NewMyToken("t1", RootFolderMyTokens.ID, nil)
	require.NoError(t, err)

	r := newFakeResolver()
	r.failing = true
	ancestors, err := tok.FindAncestors(r)
	require.NoError(t, err)
	assert.Len(t, ancestors, 1)
}

func TestFindAncestorsCycle(t *testing.T) {
	a := mustFolder(t, "a", "b", nil)
	b := mustFolder(t, "b", "a", nil)
	r := newFakeResolver(a, b)

	_, err := a.FindAncestors(r)
	assert.ErrorIs(t, err, ErrCyclicHierarchy)

	_, err = a.FolderPath(r)
	assert.ErrorIs(t, err, ErrCyclicHierarchy)

	_, err = a.AllCombinedOptions(r)
	assert.ErrorIs(t, err, ErrCyclicHierarchy)
}

func TestFolderPath(t *testing.T) {
	f1 := mustFolder(t, "f1", RootFolderMyTokens.ID, Options{OptionName: "Goblins"})
	f2 := mustFolder(t, "f2", "f1", Options{OptionName: "Archers"})

	tests := []struct {
		name     string
		parentID string
		want     string
	}{
		{name: "nested folders", parentID: "f2", want: "/My Tokens/Goblins/Archers"},
		{name: "root folder parent", parentID: RootFolderMyTokens.ID, want: "/My Tokens"},
		{name: "root of everything", parentID: RootFolderRoot.ID, want: "/"},
		{name: "unresolvable parent", parentID: "gone", want: "/My Tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewMyToken("t1", tt.parentID, Options{OptionName: "Gob"})
			require.NoError(t, err)
			r := newFakeResolver(f1, f2)
			got, err := tok.FolderPath(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFullPath(t *testing.T) {
	f1 := mustFolder(t, "f1", RootFolderMyTokens.ID, Options{OptionName: "Goblins"})
	tok, err := NewMyToken("t1", "f1", Options{OptionName: "Gob"})
	require.NoError(t, err)

	got, err := tok.FullPath(newFakeResolver(f1))
	require.NoError(t, err)
	assert.Equal(t, "/My Tokens/Goblins/Gob", got)
}

func TestName(t *testing.T) {
	r := newFakeResolver()
	r.players = StaticRoster{{ID: "p1", Name: "Alice"}}

	pc, err := NewPC("p1", Options{OptionName: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", pc.Name(r))

	unknownPC, err := NewPC("p2", nil)
	require.NoError(t, err)
	name, ok := unknownPC.ResolveName(r)
	assert.False(t, ok)
	assert.Equal(t, "undefined", name)

	root := mustFolder(t, RootFolderAboveVTT.ID, RootFolderRoot.ID, nil)
	assert.Equal(t, "AboveVTT Tokens", root.Name(r))

	named := mustFolder(t, "f1", RootFolderMyTokens.ID, Options{OptionName: "Goblins"})
	assert.Equal(t, "Goblins", named.Name(r))

	unnamed := mustFolder(t, "f2", RootFolderMyTokens.ID, nil)
	assert.Equal(t, "undefined", unnamed.Name(r))
}

func TestAllCombinedOptions(t *testing.T) {
	f1 := mustFolder(t, "f1", RootFolderMyTokens.ID, Options{OptionName: "Goblins", "imageSize": int64(2), "hidden": true})
	tok, err := NewMyToken("t1", "f1", Options{OptionName: "Gob", "imageSize": int64(3)})
	require.NoError(t, err)

	r := newFakeResolver(f1)
	combined, err := tok.AllCombinedOptions(r)
	require.NoError(t, err)
	assert.Equal(t, Options{
		OptionName:  "Gob",
		"imageSize": int64(3),
		"hidden":    true,
	}, combined)

	combined["hidden"] = false
	v, _ := f1.Option("hidden")
	assert.Equal(t, true, v)
}
