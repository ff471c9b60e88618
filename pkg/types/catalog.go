package types

import "strings"

// Item types. Only Folder, MyToken, PC and Monster may be customized; the
// rest identify catalog entries that are displayed but never overridden.
const (
	ItemTypeFolder       ItemType = "folder"
	ItemTypeMyToken      ItemType = "myToken"
	ItemTypePC           ItemType = "pc"
	ItemTypeMonster      ItemType = "monster"
	ItemTypeBuiltinToken ItemType = "builtinToken"
	ItemTypeDDBToken     ItemType = "ddbToken"
	ItemTypeEncounter    ItemType = "encounter"
	ItemTypeScene        ItemType = "scene"
	ItemTypeAoe          ItemType = "aoe"
)

// ItemType identifies the kind of item a customization applies to.
type ItemType string

// validCustomizationTypes is the set of types a Customization may carry.
var validCustomizationTypes = map[ItemType]bool{
	ItemTypeFolder:  true,
	ItemTypeMyToken: true,
	ItemTypePC:      true,
	ItemTypeMonster: true,
}

// CustomizationTypes lists the valid customization types in display order.
var CustomizationTypes = []ItemType{
	ItemTypeFolder,
	ItemTypeMyToken,
	ItemTypePC,
	ItemTypeMonster,
}

// IsValidCustomizationType reports whether t may be used for a Customization.
func IsValidCustomizationType(t ItemType) bool {
	return validCustomizationTypes[t]
}

// RootFolder describes one of the fixed top-level folders every hierarchy
// resolves into.
type RootFolder struct {
	Name string `json:"name"`
	Path string `json:"path"`
	ID   string `json:"id"`
}

// The fixed root folders.
var (
	RootFolderRoot       = RootFolder{Name: "", Path: "/", ID: "root"}
	RootFolderPlayers    = RootFolder{Name: "Players", Path: "/Players", ID: "playersFolder"}
	RootFolderMonsters   = RootFolder{Name: "Monsters", Path: "/Monsters", ID: "monstersFolder"}
	RootFolderMyTokens   = RootFolder{Name: "My Tokens", Path: "/My Tokens", ID: "myTokensFolder"}
	RootFolderAboveVTT   = RootFolder{Name: "AboveVTT Tokens", Path: "/AboveVTT Tokens", ID: "builtinTokensFolder"}
	RootFolderDDB        = RootFolder{Name: "D&D Beyond Tokens", Path: "/DDB", ID: "_DDB"}
	RootFolderEncounters = RootFolder{Name: "Encounters", Path: "/Encounters", ID: "encountersFolder"}
	RootFolderScenes     = RootFolder{Name: "Scenes", Path: "/Scenes", ID: "scenesFolder"}
	RootFolderAoe        = RootFolder{Name: "Area of Effects", Path: "/Area of Effects", ID: "aoeFolder"}
)

var rootFolders = []RootFolder{
	RootFolderRoot,
	RootFolderPlayers,
	RootFolderMonsters,
	RootFolderMyTokens,
	RootFolderAboveVTT,
	RootFolderEncounters,
	RootFolderScenes,
	RootFolderDDB,
	RootFolderAoe,
}

// AllRootFolders returns the nine root folders in catalog order. The
// returned slice is a copy.
func AllRootFolders() []RootFolder {
	out := make([]RootFolder, len(rootFolders))
	copy(out, rootFolders)
	return out
}

// RootFolderByID returns the root folder with the given id.
func RootFolderByID(id string) (RootFolder, bool) {
	return findRootFolder(func(f RootFolder) bool { return f.ID == id })
}

// RootFolderByName returns the root folder with the given display name.
func RootFolderByName(name string) (RootFolder, bool) {
	return findRootFolder(func(f RootFolder) bool { return f.Name == name })
}

// RootFolderByPath returns the root folder with the given path.
func RootFolderByPath(path string) (RootFolder, bool) {
	return findRootFolder(func(f RootFolder) bool { return f.Path == path })
}

// RootFolderByHTMLID returns the root folder whose path converts to id
// through HTMLID. Older list items referenced roots this way.
func RootFolderByHTMLID(id string) (RootFolder, bool) {
	return findRootFolder(func(f RootFolder) bool { return HTMLID(f.Path) == id })
}

// IsRootFolderID reports whether id names one of the root folders.
func IsRootFolderID(id string) bool {
	_, ok := RootFolderByID(id)
	return ok
}

func findRootFolder(match func(RootFolder) bool) (RootFolder, bool) {
	for _, f := range rootFolders {
		if match(f) {
			return f, true
		}
	}
	return RootFolder{}, false
}

// HTMLID converts a folder path to the identifier form used for DOM ids:
// slashes and whitespace become underscores.
func HTMLID(path string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, path)
}

// SanitizeFolderPath normalizes a slash separated folder path: repeated
// slashes collapse, the result always starts with "/" and never ends with
// one unless it is the root path.
func SanitizeFolderPath(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}
