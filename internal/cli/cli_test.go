package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/internal/memstore"
	"github.com/mesh-intelligence/tokenshelf/internal/notify"
	"github.com/mesh-intelligence/tokenshelf/internal/shelf"
	"github.com/mesh-intelligence/tokenshelf/internal/sqlite"
	"github.com/mesh-intelligence/tokenshelf/pkg/storage"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	t.Setenv("TOKENSHELF_BACKEND", "")
	t.Setenv("TOKENSHELF_DM", "")
	return env{
		configDir: filepath.Join(t.TempDir(), "config"),
		dataDir:   filepath.Join(t.TempDir(), "data"),
	}
}

// run executes the root command with the env's directories and returns
// stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "tokenshelf %v", args)
	return out
}

type viewJSON struct {
	Customization struct {
		ID           string         `json:"id"`
		TokenType    string         `json:"tokenType"`
		ParentID     string         `json:"parentId"`
		TokenOptions map[string]any `json:"tokenOptions"`
	} `json:"customization"`
	Name string `json:"name"`
	Path string `json:"path"`
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitSuccess},
		{name: "user", err: userError("bad %s", "input"), want: exitUserError},
		{name: "system", err: sysError("disk: %w", os.ErrPermission), want: exitSysError},
		{name: "plain", err: errors.New("unknown flag"), want: exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}

	wrapped := sysError("disk: %w", os.ErrPermission)
	assert.ErrorIs(t, wrapped, os.ErrPermission)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	assert.Contains(t, out, "tokenshelf v"+Version)
	assert.Contains(t, out, modulePath)
	assert.NoDirExists(t, e.configDir)
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "tokenshelf initialized")

	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, sqlite.DatabaseFile))

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")

	// Running again keeps the existing file.
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: file\n"), 0o644))
	out = e.mustRun(t, "--json", "init")
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "file", got["backend"])
}

func TestFolders(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "--json", "folders")
	var roots []types.RootFolder
	require.NoError(t, json.Unmarshal([]byte(out), &roots))
	assert.Len(t, roots, 9)

	out = e.mustRun(t, "folders")
	assert.Contains(t, out, "_My_Tokens")
}

func TestSetGet(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "set", "monster", "17", "imageSize", "2")
	e.mustRun(t, "set", "monster", "17", "name", "Goblin")
	e.mustRun(t, "set", "monster", "17", "hidden", "true")

	var got viewJSON
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "get", "monster", "17")), &got))
	assert.Equal(t, "17", got.Customization.ID)
	assert.Equal(t, "monstersFolder", got.Customization.ParentID)
	assert.Equal(t, float64(2), got.Customization.TokenOptions["imageSize"])
	assert.Equal(t, true, got.Customization.TokenOptions["hidden"])
	assert.Equal(t, "Goblin", got.Name)
	assert.Equal(t, "/Monsters/Goblin", got.Path)

	// No value removes the option.
	e.mustRun(t, "set", "monster", "17", "hidden")
	var after viewJSON
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "get", "monster", "17")), &after))
	assert.NotContains(t, after.Customization.TokenOptions, "hidden")
	assert.Contains(t, after.Customization.TokenOptions, "imageSize")
}

func TestGetErrors(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "get", "monster", "404")
	assert.Equal(t, exitUserError, ExitCode(err))

	_, err = e.run(t, "get", "dragon", "1")
	assert.Equal(t, exitUserError, ExitCode(err))

	_, err = e.run(t, "get", "monster")
	assert.Equal(t, exitUserError, ExitCode(err))
}

func TestListFilters(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "set", "monster", "17", "name", "Goblin")
	e.mustRun(t, "set", "monster", "18", "name", "Orc")
	e.mustRun(t, "set", "pc", "p1", "imageSize", "1")
	e.mustRun(t, "set", "folder", "f1", "name", "Custom", "--parent", "myTokensFolder")
	e.mustRun(t, "set", "myToken", "t1", "name", "Bandit", "--parent", "f1")

	list := func(args ...string) []viewJSON {
		t.Helper()
		out := e.mustRun(t, append([]string{"--json", "list"}, args...)...)
		var views []viewJSON
		require.NoError(t, json.Unmarshal([]byte(out), &views))
		return views
	}
	ids := func(views []viewJSON) []string {
		var out []string
		for _, v := range views {
			out = append(out, v.Customization.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"17", "18"}, ids(list("--where", `tokenType == "monster"`)))
	assert.ElementsMatch(t, []string{"17", "18"}, ids(list("--type", "monster")))
	assert.Equal(t, []string{"t1"}, ids(list("--parent", "f1")))
	assert.Equal(t, []string{"18"}, ids(list("--where", `name == "Orc"`)))

	bandit := list("--where", `id == "t1"`)
	require.Len(t, bandit, 1)
	assert.Equal(t, "/My Tokens/Custom/Bandit", bandit[0].Path)

	_, err := e.run(t, "list", "--where", "tokenType ==")
	assert.Equal(t, exitUserError, ExitCode(err))

	out := e.mustRun(t, "list", "--type", "pc")
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "p1")
}

func TestImageCommands(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "image", "add", "pc", "p1", "https://example.com/a.png")
	var images []string
	require.NoError(t, json.Unmarshal([]byte(out), &images))
	assert.Equal(t, []string{"https://example.com/a.png"}, images)

	e.mustRun(t, "image", "add", "pc", "p1", "https://example.com/b.png")
	out = e.mustRun(t, "image", "remove", "pc", "p1", "https://example.com/a.png")
	require.NoError(t, json.Unmarshal([]byte(out), &images))
	assert.Equal(t, []string{"https://example.com/b.png"}, images)

	_, err := e.run(t, "image", "add", "pc", "p1", "data:image/png;base64,AAAA")
	assert.Equal(t, exitUserError, ExitCode(err))

	out = e.mustRun(t, "image", "clear", "pc", "p1")
	require.NoError(t, json.Unmarshal([]byte(out), &images))
	assert.Empty(t, images)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "set", "folder", "f1", "name", "Custom", "--parent", "myTokensFolder")
	e.mustRun(t, "set", "myToken", "t1", "name", "Bandit", "--parent", "f1")
	e.mustRun(t, "set", "myToken", "t2", "name", "Thug", "--parent", "f1")

	out := e.mustRun(t, "delete", "folder", "f1", "--children")
	assert.Contains(t, out, "Deleted folder/f1")

	_, err := e.run(t, "get", "myToken", "t1")
	assert.Equal(t, exitUserError, ExitCode(err))

	_, err = e.run(t, "delete", "folder", "f1")
	assert.Equal(t, exitUserError, ExitCode(err))
}

func TestMigrate(t *testing.T) {
	e := newEnv(t)

	backend, err := storage.Open(types.Config{Backend: types.BackendSQLite, DataDir: e.dataDir})
	require.NoError(t, err)
	require.NoError(t, backend.SetItem(context.Background(), "PlayerTokenCustomizations", []byte(`{"p1":{"images":["a.png"]}}`)))
	require.NoError(t, backend.Detach())

	out := e.mustRun(t, "migrate")
	assert.Contains(t, out, "migration completed")

	var got viewJSON
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "get", "pc", "p1")), &got))
	assert.Equal(t, []any{"a.png"}, got.Customization.TokenOptions[types.OptionAlternativeImages])

	out = e.mustRun(t, "--json", "migrate")
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "skipped", result["state"])
}

func TestUnknownBackendIsUserError(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TOKENSHELF_BACKEND", "floppy")

	_, err := e.run(t, "list")
	assert.Equal(t, exitUserError, ExitCode(err))
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestNotDMSessionStartsEmpty(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "set", "monster", "17", "name", "Goblin")

	t.Setenv("TOKENSHELF_DM", "false")
	out := e.mustRun(t, "--json", "list")
	assert.JSONEq(t, `[]`, out)
}

func TestServeMuxCustomizations(t *testing.T) {
	ms := memstore.New()
	require.NoError(t, ms.Attach(types.Config{Backend: types.BackendMemory}))
	store := shelf.New(ms, shelf.WithPrivileged(true))
	c, err := types.NewMonster(17, types.Options{types.OptionName: "Goblin"})
	require.NoError(t, err)
	require.NoError(t, store.PersistOne(context.Background(), c))

	s := &session{storage: ms, store: store, logger: zap.NewNop()}
	hub := notify.NewHub(zap.NewNop())
	defer hub.Close()
	srv := httptest.NewServer(newServeMux(s, hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/customizations")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var views []viewJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.NotEmpty(t, views)
	assert.Equal(t, "17", views[0].Customization.ID)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
