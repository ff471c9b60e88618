// Package shelf holds the customization collection: an in-memory list with
// a (type, id) index, written through to a types.Storage backend as one JSON
// array under the TokenCustomizations key.
package shelf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/internal/metrics"
	"github.com/mesh-intelligence/tokenshelf/internal/notify"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// Persist operation labels.
const (
	opPersistAll    = "persist_all"
	opPersistOne    = "persist_one"
	opDeleteParent  = "delete_by_parent"
	opDeleteOne     = "delete_by_type_and_id"
	opClear         = "clear"
	opEnsureRoot    = "ensure_root"
	defaultStoreKey = types.KeyTokenCustomizations
)

type itemKey struct {
	itemType types.ItemType
	id       string
}

// Store owns every customization. Callers receive copies; changes are
// made on a copy and written back with PersistOne.
type Store struct {
	mu         sync.RWMutex
	storage    types.Storage
	items      []*types.Customization
	index      map[itemKey]*types.Customization
	logger     *zap.Logger
	roster     types.Roster
	notifier   notify.Notifier
	privileged bool
	metrics    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRoster sets the player roster used to name PC customizations.
func WithRoster(roster types.Roster) Option {
	return func(s *Store) { s.roster = roster }
}

// WithPrivileged marks the session as the DM's, which may load the
// persisted collection.
func WithPrivileged(privileged bool) Option {
	return func(s *Store) { s.privileged = privileged }
}

// WithMetrics enables Prometheus recording.
func WithMetrics(enabled bool) Option {
	return func(s *Store) { s.metrics = enabled }
}

// WithNotifier sets who is told after each successful write.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// New creates an empty store writing to storage, which must already be
// attached.
func New(storage types.Storage, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		index:    make(map[itemKey]*types.Customization),
		logger:   zap.NewNop(),
		roster:   types.StaticRoster(nil),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Privileged reports whether the store was opened for a DM.
func (s *Store) Privileged() bool {
	return s.privileged
}

// Find returns a copy of the customization with the given type and id.
func (s *Store) Find(itemType types.ItemType, id string) (*types.Customization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.index[itemKey{itemType, id}]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// FindOrCreate returns the existing customization or a new, unpersisted
// one with empty options.
func (s *Store) FindOrCreate(itemType types.ItemType, id, parentID string) (*types.Customization, error) {
	if c, ok := s.Find(itemType, id); ok {
		return c, nil
	}
	return types.NewCustomization(id, itemType, parentID, nil)
}

// All returns copies of every customization in collection order.
func (s *Store) All() []*types.Customization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// Children returns copies of the direct children of parentID.
func (s *Store) Children(parentID string) []*types.Customization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Customization
	for _, c := range s.items {
		if c.ParentID() == parentID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Len returns the number of customizations held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// PersistAll writes list to storage and, once the write succeeds, makes it
// the in-memory collection. A failed write wraps ErrPersistenceFailure and
// leaves memory as it was. Later duplicates of a (type, id) replace earlier
// ones in place.
func (s *Store) PersistAll(ctx context.Context, list []*types.Customization) error {
	return s.commit(ctx, opPersistAll, func([]*types.Customization) []*types.Customization {
		return list
	})
}

// PersistOne validates c and upserts it into the collection.
func (s *Store) PersistOne(ctx context.Context, c *types.Customization) error {
	if err := validate(c); err != nil {
		s.logger.Warn("not persisting invalid customization", zap.Error(err))
		return err
	}

	return s.commit(ctx, opPersistOne, func(current []*types.Customization) []*types.Customization {
		next := make([]*types.Customization, 0, len(current)+1)
		replaced := false
		for _, existing := range current {
			if existing.Type() == c.Type() && existing.ID() == c.ID() {
				next = append(next, c)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, c)
		}
		return next
	})
}

// FetchAll loads the persisted collection into memory and returns a copy.
// Only privileged sessions may fetch. A missing key is an empty
// collection; entries that fail to decode are skipped with a warning.
func (s *Store) FetchAll(ctx context.Context) ([]*types.Customization, error) {
	if !s.privileged {
		return nil, types.ErrNotPrivileged
	}

	data, err := s.storage.GetItem(ctx, defaultStoreKey)
	if err != nil && !errors.Is(err, types.ErrKeyNotFound) {
		return nil, fmt.Errorf("fetching customizations: %w", err)
	}

	var parsed []*types.Customization
	if len(data) > 0 {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", defaultStoreKey, err)
		}
		for i, entry := range raw {
			c, err := types.CustomizationFromJSON(entry)
			if err != nil {
				s.logger.Warn("skipping malformed customization",
					zap.Int("index", i),
					zap.ByteString("entry", entry),
					zap.Error(err))
				continue
			}
			parsed = append(parsed, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(dedupe(parsed))
	s.logger.Debug("fetched customizations", zap.Int("count", len(s.items)))
	return cloneAll(s.items), nil
}

// DeleteByParent removes the direct children of parentID. Grandchildren
// are left in place.
func (s *Store) DeleteByParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		s.logger.Warn("delete by parent received an empty parent id")
		return fmt.Errorf("%w %q", types.ErrInvalidParentID, parentID)
	}

	return s.commit(ctx, opDeleteParent, func(current []*types.Customization) []*types.Customization {
		next := make([]*types.Customization, 0, len(current))
		for _, c := range current {
			if c.ParentID() != parentID {
				next = append(next, c)
			}
		}
		return next
	})
}

// DeleteByTypeAndID removes one customization. Deleting a missing one
// still rewrites the collection.
func (s *Store) DeleteByTypeAndID(ctx context.Context, itemType types.ItemType, id string) error {
	return s.commit(ctx, opDeleteOne, func(current []*types.Customization) []*types.Customization {
		next := make([]*types.Customization, 0, len(current))
		for _, c := range current {
			if c.Type() == itemType && c.ID() == id {
				continue
			}
			next = append(next, c)
		}
		return next
	})
}

// Clear persists an empty collection.
func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, opClear, func([]*types.Customization) []*types.Customization {
		return nil
	})
}

// commit builds the next collection from the current one and persists it
// under the lock. The notifier runs after the lock is released, so it may
// read the store.
func (s *Store) commit(ctx context.Context, op string, next func(current []*types.Customization) []*types.Customization) error {
	s.mu.Lock()
	err := s.persistLocked(ctx, op, next(s.items))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifier.TokensChanged(ctx)
	return nil
}

// persistLocked writes list and swaps it in. The caller must hold s.mu and
// notify once it is released.
func (s *Store) persistLocked(ctx context.Context, op string, list []*types.Customization) error {
	list = dedupe(list)
	data, err := encode(list)
	if err == nil {
		err = s.storage.SetItem(ctx, defaultStoreKey, data)
	}
	if s.metrics {
		metrics.RecordPersist(op, err)
	}
	if err != nil {
		s.logger.Error("persisting customizations failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %w", types.ErrPersistenceFailure, err)
	}

	s.replaceLocked(list)
	s.logger.Debug("persisted customizations", zap.String("op", op), zap.Int("count", len(list)))
	return nil
}

// replaceLocked installs copies of list as the collection and rebuilds the
// index. The caller must hold s.mu.
func (s *Store) replaceLocked(list []*types.Customization) {
	s.items = cloneAll(list)
	s.index = make(map[itemKey]*types.Customization, len(s.items))
	for _, c := range s.items {
		s.index[itemKey{c.Type(), c.ID()}] = c
	}
	if s.metrics {
		metrics.Customizations.Set(float64(len(s.items)))
	}
}

func encode(list []*types.Customization) ([]byte, error) {
	if list == nil {
		list = []*types.Customization{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encoding customizations: %w", err)
	}
	return data, nil
}

func validate(c *types.Customization) error {
	if c == nil {
		return fmt.Errorf("%w: nil", types.ErrInvalidCustomization)
	}
	if c.ID() == "" {
		return fmt.Errorf("%w: empty id", types.ErrInvalidCustomization)
	}
	if !types.IsValidCustomizationType(c.Type()) {
		return fmt.Errorf("%w: type %q", types.ErrInvalidCustomization, c.Type())
	}
	return nil
}

// dedupe keeps one entry per (type, id), at the position of the first
// occurrence, holding the last occurrence's value. Nil entries are dropped.
func dedupe(list []*types.Customization) []*types.Customization {
	pos := make(map[itemKey]int, len(list))
	out := make([]*types.Customization, 0, len(list))
	for _, c := range list {
		if c == nil {
			continue
		}
		k := itemKey{c.Type(), c.ID()}
		if i, ok := pos[k]; ok {
			out[i] = c
			continue
		}
		pos[k] = len(out)
		out = append(out, c)
	}
	return out
}

func cloneAll(list []*types.Customization) []*types.Customization {
	out := make([]*types.Customization, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
