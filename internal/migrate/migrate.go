// Package migrate reshapes legacy token storage (per-player overrides, the
// monster image map, and the my-token lists) into customizations, once.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/internal/metrics"
	"github.com/mesh-intelligence/tokenshelf/internal/monsters"
	"github.com/mesh-intelligence/tokenshelf/internal/notify"
	"github.com/mesh-intelligence/tokenshelf/internal/shelf"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// State is the migration state machine position.
type State string

// Migration states. A run moves NotStarted -> InProgress -> Completed or
// RolledBack; Skipped means an earlier run already completed.
const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateRolledBack State = "rolled_back"
	StateSkipped    State = "skipped"
)

// DefaultFetchTimeout bounds the monster name lookup.
const DefaultFetchTimeout = 30 * time.Second

// ErrMigrationFailed wraps the cause of a rolled back migration.
var ErrMigrationFailed = errors.New("token customization migration failed")

// Migrator runs the legacy data migration against a store.
type Migrator struct {
	mu           sync.Mutex
	store        *shelf.Store
	storage      types.Storage
	monsters     monsters.Source
	notifier     notify.Notifier
	logger       *zap.Logger
	fetchTimeout time.Duration
	newID        func() string
	metrics      bool
	state        State
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithMonsterSource sets where monster names come from. Without one,
// migrated monsters keep no name.
func WithMonsterSource(src monsters.Source) Option {
	return func(m *Migrator) { m.monsters = src }
}

// WithNotifier sets who is told once the migration completes.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Migrator) { m.notifier = n }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFetchTimeout bounds the monster lookup. Zero or less keeps the default.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Migrator) {
		if d > 0 {
			m.fetchTimeout = d
		}
	}
}

// WithIDGenerator replaces the UUID v7 generator used for new folders and
// tokens.
func WithIDGenerator(gen func() string) Option {
	return func(m *Migrator) { m.newID = gen }
}

// WithMetrics enables Prometheus recording.
func WithMetrics(enabled bool) Option {
	return func(m *Migrator) { m.metrics = enabled }
}

// New creates a migrator writing into store. storage is the same backend
// the store persists to; legacy keys are read from and written to it.
func New(store *shelf.Store, storage types.Storage, opts ...Option) *Migrator {
	m := &Migrator{
		store:        store,
		storage:      storage,
		notifier:     notify.Nop{},
		logger:       zap.NewNop(),
		fetchTimeout: DefaultFetchTimeout,
		newID:        generateUUID,
		state:        StateNotStarted,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// generateUUID generates a new UUID v7 for migrated folders and tokens.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// State returns the current state.
func (m *Migrator) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Migrator) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	if m.metrics && s != StateInProgress {
		metrics.RecordMigration(string(s))
	}
}

// Run performs the migration. It is a logged no-op when an earlier run
// completed. Any failure rolls the attempt back and returns an error
// wrapping ErrMigrationFailed.
func (m *Migrator) Run(ctx context.Context) error {
	var images monsterMap
	if _, err := readLegacy(ctx, m.storage, KeyCustomTokenImageMap, &images); err != nil {
		// Nothing has been touched yet and the guard is unreadable, so there
		// is nothing to roll back.
		m.logger.Error("token customization migration could not read its guard", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	if images.migrated() {
		m.logger.Info("token customization migration has already completed")
		m.setState(StateSkipped)
		return nil
	}

	m.setState(StateInProgress)
	m.logger.Info("token customization migration starting")

	var list []*types.Customization

	players, playersFound, err := m.migratePlayers(ctx, &list)
	if err != nil {
		return m.fail(ctx, "migrating player customizations", err)
	}

	monsterIDs, err := m.migrateMonsters(images, &list)
	if err != nil {
		return m.fail(ctx, "migrating monster customizations", err)
	}

	if err := m.migrateMyTokens(ctx, &list); err != nil {
		return m.fail(ctx, "migrating my tokens", err)
	}

	if err := m.fillMonsterNames(ctx, monsterIDs, list); err != nil {
		return m.fail(ctx, "fetching monster names", err)
	}

	m.logger.Info("persisting migrated customizations", zap.Int("count", len(list)))
	if err := m.store.PersistAll(ctx, list); err != nil {
		return m.fail(ctx, "persisting migrated customizations", err)
	}

	if playersFound {
		if err := writeLegacy(ctx, m.storage, KeyPlayerTokenCustomizations, players); err != nil {
			return m.fail(ctx, "marking player customizations migrated", err)
		}
	}
	if images == nil {
		images = monsterMap{}
	}
	images[flagDidMigrate] = true
	if err := writeLegacy(ctx, m.storage, KeyCustomTokenImageMap, images); err != nil {
		return m.fail(ctx, "marking monster image map migrated", err)
	}

	m.setState(StateCompleted)
	m.logger.Info("token customization migration completed", zap.Int("count", len(list)))
	m.notifier.TokensChanged(ctx)
	return nil
}

// migratePlayers builds one PC customization per unmigrated legacy player
// entry and marks each entry migrated in the returned map.
func (m *Migrator) migratePlayers(ctx context.Context, list *[]*types.Customization) (playerMap, bool, error) {
	var players playerMap
	found, err := readLegacy(ctx, m.storage, KeyPlayerTokenCustomizations, &players)
	if err != nil {
		return nil, false, err
	}

	for _, playerID := range sortedKeys(players) {
		entry, ok := players[playerID].(map[string]any)
		if playerID == "" || !ok {
			m.logger.Debug("not migrating player entry", zap.String("player_id", playerID))
			continue
		}
		if done, _ := entry[flagDidMigrate].(bool); done {
			continue
		}

		opts := make(map[string]any, len(entry))
		for k, v := range entry {
			opts[k] = v
		}
		if imgs, ok := opts[legacyImagesKey]; ok {
			opts[types.OptionAlternativeImages] = stringList(imgs)
			delete(opts, legacyImagesKey)
		}
		delete(opts, flagDidMigrate)

		c, err := types.NewPC(playerID, types.NormalizeOptions(opts))
		if err != nil {
			return nil, false, err
		}
		*list = append(*list, c)
		entry[flagDidMigrate] = true
		m.logger.Debug("migrated player customization", zap.String("player_id", playerID))
	}
	m.logger.Info("finished migrating player customizations")
	return players, found, nil
}

// migrateMonsters builds one Monster customization per id with a
// non-empty image list and returns the ids to name.
func (m *Migrator) migrateMonsters(images monsterMap, list *[]*types.Customization) ([]string, error) {
	var ids []string
	for _, id := range sortedKeys(images) {
		if id == flagDidMigrate {
			continue
		}
		urls := stringList(images[id])
		if len(urls) == 0 {
			continue
		}
		c, err := types.NewMonster(id, types.Options{types.OptionAlternativeImages: urls})
		if err != nil {
			return nil, err
		}
		*list = append(*list, c)
		ids = append(ids, c.ID())
	}
	monsters.SortIDs(ids)
	m.logger.Info("finished migrating monster customizations", zap.Int("count", len(ids)))
	return ids, nil
}

// migrateMyTokens builds Folder and MyToken customizations from the legacy
// my-token lists. Parents resolve by path; unresolvable paths land in the
// My Tokens root.
func (m *Migrator) migrateMyTokens(ctx context.Context, list *[]*types.Customization) error {
	var rawFolders []map[string]any
	if _, err := readLegacy(ctx, m.storage, KeyMyTokensFolders, &rawFolders); err != nil {
		return err
	}
	var rawTokens []map[string]any
	if _, err := readLegacy(ctx, m.storage, KeyMyTokens, &rawTokens); err != nil {
		return err
	}

	tokenPaths := make([]string, 0, len(rawTokens))
	for _, t := range rawTokens {
		tokenPaths = append(tokenPaths, legacyPath(t))
	}
	folders := backfillFolders(decodeFolders(rawFolders), tokenPaths)

	idsByPath := make(map[string]string, len(folders))
	for _, f := range folders {
		idsByPath[f.fullPath()] = m.newID()
	}
	parentFor := func(path string) string {
		if id, ok := idsByPath[types.SanitizeFolderPath(path)]; ok {
			return id
		}
		return types.RootFolderMyTokens.ID
	}

	for _, f := range folders {
		c, err := types.NewFolder(idsByPath[f.fullPath()], parentFor(f.FolderPath), types.Options{types.OptionName: f.Name})
		if err != nil {
			return err
		}
		*list = append(*list, c)
	}
	m.logger.Info("finished migrating my token folders", zap.Int("count", len(folders)))

	for _, t := range rawTokens {
		opts := make(map[string]any, len(t))
		for k, v := range t {
			opts[k] = v
		}
		for _, k := range strippedTokenKeys {
			delete(opts, k)
		}
		c, err := types.NewMyToken(m.newID(), parentFor(legacyPath(t)), types.NormalizeOptions(opts))
		if err != nil {
			return err
		}
		*list = append(*list, c)
	}
	m.logger.Info("finished migrating my tokens", zap.Int("count", len(rawTokens)))
	return nil
}

// fillMonsterNames looks up display names for the migrated monsters.
func (m *Migrator) fillMonsterNames(ctx context.Context, ids []string, list []*types.Customization) error {
	if len(ids) == 0 {
		return nil
	}
	if m.monsters == nil {
		m.logger.Warn("no monster source configured, migrated monsters keep no name", zap.Int("count", len(ids)))
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()
	found, err := m.monsters.FetchMonsters(fetchCtx, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*types.Customization, len(ids))
	for _, c := range list {
		if c.IsMonster() {
			byID[c.ID()] = c
		}
	}
	for _, mon := range found {
		if c, ok := byID[mon.ID]; ok && mon.Name != "" {
			c.SetOption(types.OptionName, types.OptionValue{Kind: types.ValueKindText, Str: mon.Name})
		}
	}
	m.logger.Info("updated monsters with names", zap.Int("found", len(found)))
	return nil
}

// fail logs the cause, rolls back and returns the wrapped error.
func (m *Migrator) fail(ctx context.Context, step string, cause error) error {
	m.logger.Error("token customization migration failed", zap.String("step", step), zap.Error(cause))
	m.rollback(ctx)
	m.setState(StateRolledBack)
	return fmt.Errorf("%w: %s: %w", ErrMigrationFailed, step, cause)
}

// rollback clears the persisted customizations and resets every migration
// flag. Legacy keys are only rewritten when a flag actually changes.
// Failures are logged, never returned.
func (m *Migrator) rollback(ctx context.Context) {
	m.logger.Info("rolling back token customization migration")

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("rollback could not clear customizations", zap.Error(err))
	}

	var players playerMap
	if _, err := readLegacy(ctx, m.storage, KeyPlayerTokenCustomizations, &players); err != nil {
		m.logger.Error("rollback could not read player customizations", zap.Error(err))
	} else if resetPlayerFlags(players) {
		if err := writeLegacy(ctx, m.storage, KeyPlayerTokenCustomizations, players); err != nil {
			m.logger.Error("rollback could not reset player customizations", zap.Error(err))
		}
	}

	var images monsterMap
	if _, err := readLegacy(ctx, m.storage, KeyCustomTokenImageMap, &images); err != nil {
		m.logger.Error("rollback could not read monster image map", zap.Error(err))
	} else if images.migrated() {
		images[flagDidMigrate] = false
		if err := writeLegacy(ctx, m.storage, KeyCustomTokenImageMap, images); err != nil {
			m.logger.Error("rollback could not reset monster image map", zap.Error(err))
		}
	}
}

// resetPlayerFlags sets didMigrate false on entries where it is true and
// reports whether anything changed.
func resetPlayerFlags(players playerMap) bool {
	changed := false
	for _, v := range players {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if done, _ := entry[flagDidMigrate].(bool); done {
			entry[flagDidMigrate] = false
			changed = true
		}
	}
	return changed
}
