package types

import (
	"fmt"
	"slices"
	"strings"
)

// undefinedName is shown for items whose name cannot be resolved.
const undefinedName = "undefined"

// Resolver answers the lookups a customization needs to place itself in
// the folder hierarchy. The store implements it.
type Resolver interface {
	// FindParent returns the customization referenced by a parent id.
	FindParent(parentID string) (*Customization, bool)
	// PlayerName returns the roster name of a player character.
	PlayerName(playerID string) (string, bool)
	// EnsureRootFolder returns the folder customization standing in for a
	// root folder, creating and persisting it when missing.
	EnsureRootFolder(root RootFolder) (*Customization, error)
}

// FindAncestors returns c followed by each ancestor up to and including the
// folder customization for its root folder. A parent id that names no
// customization but does name a root folder (by id or by its HTMLID form)
// is resolved through EnsureRootFolder. The walk fails with
// ErrCyclicHierarchy when an item is reached twice.
func (c *Customization) FindAncestors(r Resolver) ([]*Customization, error) {
	var found []*Customization
	seen := map[string]bool{}
	current := c
	for {
		key := current.key()
		if seen[key] {
			return found, fmt.Errorf("%w at %s", ErrCyclicHierarchy, key)
		}
		seen[key] = true
		found = append(found, current)

		if parent, ok := r.FindParent(current.parentID); ok {
			current = parent
			continue
		}

		root, ok := RootFolderByID(current.parentID)
		if !ok {
			root, ok = RootFolderByHTMLID(current.parentID)
		}
		if !ok || root.ID == RootFolderRoot.ID {
			return found, nil
		}
		// EnsureRootFolder reports its own failures; the walk ends here either way.
		rootFolder, err := r.EnsureRootFolder(root)
		if err == nil && rootFolder != nil && !seen[rootFolder.key()] {
			found = append(found, rootFolder)
		}
		return found, nil
	}
}

// FindParent returns the customization c is contained in.
func (c *Customization) FindParent(r Resolver) (*Customization, bool) {
	return r.FindParent(c.parentID)
}

// FolderPath returns the slash separated path of the folder containing c.
// When the parent is another customization the path is built from the
// parent's ancestor names; when it is a root folder the root's path is
// used; otherwise the item is placed in My Tokens.
func (c *Customization) FolderPath(r Resolver) (string, error) {
	if parent, ok := r.FindParent(c.parentID); ok {
		ancestors, err := parent.FindAncestors(r)
		if err != nil {
			return "", err
		}
		names := make([]string, 0, len(ancestors))
		for _, a := range slices.Backward(ancestors) {
			names = append(names, a.Name(r))
		}
		return SanitizeFolderPath(strings.Join(names, "/")), nil
	}
	if root, ok := RootFolderByID(c.parentID); ok {
		return root.Path, nil
	}
	return RootFolderMyTokens.Path, nil
}

// FullPath returns the folder path joined with the item's own name.
func (c *Customization) FullPath(r Resolver) (string, error) {
	folder, err := c.FolderPath(r)
	if err != nil {
		return "", err
	}
	return SanitizeFolderPath(folder + "/" + c.Name(r)), nil
}

// Name returns the display name of c, or "undefined" when it has none.
func (c *Customization) Name(r Resolver) string {
	name, _ := c.ResolveName(r)
	return name
}

// ResolveName returns the display name of c and whether one was found.
// Player characters take their name from the roster, root folders from the
// catalog, and everything else from the name option.
func (c *Customization) ResolveName(r Resolver) (string, bool) {
	if c.itemType == ItemTypePC {
		if name, ok := r.PlayerName(c.id); ok && name != "" {
			return name, true
		}
		return undefinedName, false
	}
	if root, ok := RootFolderByID(c.id); ok {
		return rootName(root)
	}
	if root, ok := RootFolderByHTMLID(c.id); ok {
		return rootName(root)
	}
	if name, ok := c.options[OptionName].(string); ok && name != "" {
		return name, true
	}
	return undefinedName, false
}

func rootName(root RootFolder) (string, bool) {
	if root.Name == "" {
		return undefinedName, false
	}
	return root.Name, true
}

// AllCombinedOptions merges the options of every ancestor, starting at the
// outermost folder, so nearer items override farther ones key by key.
// The result is independent of every entity in the chain.
func (c *Customization) AllCombinedOptions(r Resolver) (Options, error) {
	ancestors, err := c.FindAncestors(r)
	if err != nil {
		return nil, err
	}
	combined := Options{}
	for _, a := range slices.Backward(ancestors) {
		for k, v := range a.options {
			combined[k] = cloneOptionValue(v)
		}
	}
	return combined, nil
}
