package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/internal/logging"
	"github.com/mesh-intelligence/tokenshelf/internal/monsters"
	"github.com/mesh-intelligence/tokenshelf/internal/notify"
	"github.com/mesh-intelligence/tokenshelf/internal/shelf"
	"github.com/mesh-intelligence/tokenshelf/pkg/storage"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// session is an attached backend with the customization collection loaded.
type session struct {
	storage types.Storage
	store   *shelf.Store
	logger  *zap.Logger
}

// open attaches the configured backend and loads the collection. Extra
// notifiers are told about every write alongside the log notifier.
func (a *app) open(ctx context.Context, notifiers ...notify.Notifier) (*session, error) {
	logger, err := a.newLogger()
	if err != nil {
		return nil, err
	}

	cfg, err := a.storageConfig()
	if err != nil {
		return nil, sysError("%w", err)
	}
	backend, err := storage.Open(cfg)
	if err != nil {
		if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrMissingSetting) {
			return nil, userError("%w", err)
		}
		return nil, sysError("%w", err)
	}

	n := append(notify.Multi{notify.LogNotifier{Logger: logger}}, notifiers...)
	store := shelf.New(backend,
		shelf.WithLogger(logger),
		shelf.WithRoster(types.StaticRoster(a.settings.Players)),
		shelf.WithPrivileged(a.settings.DM),
		shelf.WithMetrics(true),
		shelf.WithNotifier(n),
	)

	s := &session{storage: backend, store: store, logger: logger}
	if _, err := store.FetchAll(ctx); err != nil {
		if !errors.Is(err, types.ErrNotPrivileged) {
			s.Close()
			return nil, sysError("load customizations: %w", err)
		}
		logger.Warn("not a DM session, starting with an empty collection")
	}
	return s, nil
}

// newLogger builds the logger from the log settings once per invocation.
func (a *app) newLogger() (*zap.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	logger, err := logging.New(a.settings.Log)
	if err != nil {
		return nil, sysError("build logger: %w", err)
	}
	a.logger = logger
	return logger, nil
}

// Close detaches the backend and flushes the logger.
func (s *session) Close() {
	if err := s.storage.Detach(); err != nil {
		s.logger.Warn("detaching storage", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// monsterSource picks the configured monster name source, or nil when
// neither an endpoint nor static names are set.
func (a *app) monsterSource() monsters.Source {
	m := a.settings.Monsters
	switch {
	case m.Endpoint != "":
		return monsters.NewHTTPSource(m.Endpoint, a.settings.Migration.FetchTimeout)
	case len(m.Names) > 0:
		return monsters.StaticSource(m.Names)
	default:
		return nil
	}
}

// parseType validates a customization type argument.
func parseType(s string) (types.ItemType, error) {
	t := types.ItemType(s)
	if !types.IsValidCustomizationType(t) {
		return "", userError("unknown type %q (valid: folder, myToken, pc, monster)", s)
	}
	return t, nil
}

// defaultParent is the parent used when --parent is not given.
func defaultParent(t types.ItemType) string {
	switch t {
	case types.ItemTypePC:
		return types.RootFolderPlayers.ID
	case types.ItemTypeMonster:
		return types.RootFolderMonsters.ID
	default:
		return types.RootFolderMyTokens.ID
	}
}

// view is the resolved form of one customization used for output.
type view struct {
	Customization *types.Customization `json:"customization"`
	Name          string               `json:"name"`
	Path          string               `json:"path"`
}

func (s *session) view(c *types.Customization) view {
	path, err := s.store.FullPath(c)
	if err != nil {
		path = fmt.Sprintf("<%s>", err)
	}
	return view{Customization: c, Name: s.store.Name(c), Path: path}
}
