package shelf

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// parentLookupOrder is the order types are tried when resolving a parent
// id. Folders are the only intended parents.
var parentLookupOrder = []types.ItemType{
	types.ItemTypeFolder,
	types.ItemTypeMyToken,
	types.ItemTypePC,
	types.ItemTypeMonster,
}

// FindParent implements types.Resolver.
func (s *Store) FindParent(parentID string) (*types.Customization, bool) {
	if parentID == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range parentLookupOrder {
		if c, ok := s.index[itemKey{t, parentID}]; ok {
			return c.Clone(), true
		}
	}
	return nil, false
}

// PlayerName implements types.Resolver.
func (s *Store) PlayerName(playerID string) (string, bool) {
	if s.roster == nil {
		return "", false
	}
	return s.roster.PlayerName(playerID)
}

// EnsureRootFolder implements types.Resolver. The folder customization for
// root is created and persisted the first time it is needed.
func (s *Store) EnsureRootFolder(root types.RootFolder) (*types.Customization, error) {
	if c, ok := s.Find(types.ItemTypeFolder, root.ID); ok {
		return c, nil
	}
	c, err := types.NewFolder(root.ID, types.RootFolderRoot.ID, nil)
	if err != nil {
		s.logger.Warn("failed to create root folder customization", zap.String("root", root.ID), zap.Error(err))
		return nil, err
	}

	ctx := context.Background()
	s.mu.Lock()
	if existing, ok := s.index[itemKey{types.ItemTypeFolder, root.ID}]; ok {
		s.mu.Unlock()
		return existing.Clone(), nil
	}
	next := append(append(make([]*types.Customization, 0, len(s.items)+1), s.items...), c)
	err = s.persistLocked(ctx, opEnsureRoot, next)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist root folder customization", zap.String("root", root.ID), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("created root folder customization", zap.String("root", root.ID))
	s.notifier.TokensChanged(ctx)
	return c.Clone(), nil
}

// FolderPath returns the folder path of c, warning when its parent cannot
// be resolved and the My Tokens fallback is used.
func (s *Store) FolderPath(c *types.Customization) (string, error) {
	if _, ok := s.FindParent(c.ParentID()); !ok && !types.IsRootFolderID(c.ParentID()) {
		s.logger.Warn("could not find the root for customization, using My Tokens",
			zap.String("type", string(c.Type())),
			zap.String("id", c.ID()),
			zap.String("parent_id", c.ParentID()))
	}
	path, err := c.FolderPath(s)
	if err != nil {
		s.logger.Error("resolving folder path", zap.String("id", c.ID()), zap.Error(err))
		return "", err
	}
	return path, nil
}

// FullPath returns the folder path of c joined with its name.
func (s *Store) FullPath(c *types.Customization) (string, error) {
	folder, err := s.FolderPath(c)
	if err != nil {
		return "", err
	}
	return types.SanitizeFolderPath(folder + "/" + s.Name(c)), nil
}

// Name returns the display name of c, warning for PCs missing from the
// roster.
func (s *Store) Name(c *types.Customization) string {
	name, ok := c.ResolveName(s)
	if !ok && c.IsPC() {
		s.logger.Warn("player not found in roster", zap.String("id", c.ID()))
	}
	return name
}

// CombinedOptions returns the options of c merged over its ancestors.
func (s *Store) CombinedOptions(c *types.Customization) (types.Options, error) {
	opts, err := c.AllCombinedOptions(s)
	if err != nil {
		s.logger.Error("combining options", zap.String("id", c.ID()), zap.Error(err))
		return nil, err
	}
	return opts, nil
}

var _ types.Resolver = (*Store)(nil)
