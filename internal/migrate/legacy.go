package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// Legacy storage keys read by the migration.
const (
	KeyPlayerTokenCustomizations = "PlayerTokenCustomizations"
	KeyCustomTokenImageMap       = "CustomTokenImageMap"
	KeyMyTokens                  = "MyTokens"
	KeyMyTokensFolders           = "MyTokensFolders"
)

// flagDidMigrate marks legacy entries that have been migrated.
const flagDidMigrate = "didMigrate"

// legacyImagesKey is the pre-migration name of alternativeImages.
const legacyImagesKey = "images"

// strippedTokenKeys only had meaning in the legacy my-token layout.
var strippedTokenKeys = []string{
	"image",
	"folderpath",
	"folderPath",
	flagDidMigrate,
	"didMigrateToMyToken",
	"oldFolderKey",
}

// readLegacy decodes key into dst, using json.Number for numbers so values
// are written back unchanged. Reports false when the key is absent.
func readLegacy(ctx context.Context, storage types.Storage, key string, dst any) (bool, error) {
	data, err := storage.GetItem(ctx, key)
	if errors.Is(err, types.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func writeLegacy(ctx context.Context, storage types.Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := storage.SetItem(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// playerMap is the legacy per-player override map, keyed by player id.
type playerMap map[string]any

// monsterMap is the legacy monster id to image list map. It also carries
// the didMigrate flag that guards the whole migration.
type monsterMap map[string]any

func (m monsterMap) migrated() bool {
	done, _ := m[flagDidMigrate].(bool)
	return done
}

// legacyFolder is one entry of the legacy my-token folder list.
type legacyFolder struct {
	Name       string
	FolderPath string
}

func (f legacyFolder) fullPath() string {
	return types.SanitizeFolderPath(f.FolderPath + "/" + f.Name)
}

func decodeFolders(raw []map[string]any) []legacyFolder {
	out := make([]legacyFolder, 0, len(raw))
	for _, entry := range raw {
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		out = append(out, legacyFolder{Name: name, FolderPath: legacyPath(entry)})
	}
	return out
}

// legacyPath reads a folder path under either historical spelling.
func legacyPath(entry map[string]any) string {
	if p, ok := entry["folderPath"].(string); ok {
		return p
	}
	p, _ := entry["folderpath"].(string)
	return p
}

// backfillFolders appends a folder for every path segment referenced by a
// folder's parent path or a token's folder path that has no folder of its
// own. Folders with a duplicate full path are dropped.
func backfillFolders(folders []legacyFolder, tokenPaths []string) []legacyFolder {
	seen := make(map[string]bool, len(folders))
	out := make([]legacyFolder, 0, len(folders))
	for _, f := range folders {
		p := f.fullPath()
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, f)
	}

	ensure := func(path string) {
		segments := strings.Split(strings.Trim(types.SanitizeFolderPath(path), "/"), "/")
		parent := "/"
		for _, seg := range segments {
			if seg == "" {
				continue
			}
			f := legacyFolder{Name: seg, FolderPath: parent}
			p := f.fullPath()
			if !seen[p] {
				seen[p] = true
				out = append(out, f)
			}
			parent = p
		}
	}

	for _, f := range folders {
		ensure(f.FolderPath)
	}
	for _, p := range tokenPaths {
		ensure(p)
	}
	return out
}

// stringList reads a JSON array of strings, ignoring other elements.
func stringList(v any) []string {
	switch tv := v.(type) {
	case []string:
		return append([]string(nil), tv...)
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
