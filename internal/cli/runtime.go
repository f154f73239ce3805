package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oddjob-dev/oddjob/internal/config"
	"github.com/oddjob-dev/oddjob/internal/logging"
	"github.com/oddjob-dev/oddjob/internal/store"
)

// runtime is the shared environment for commands that use the store: loaded
// config, logging pipeline with the store hook attached, and the store with
// its flush cycle running. Callers must close it so the final flush runs.
type runtime struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *store.Store
	token  string // per-invocation run token
}

// loadConfig resolves defaults plus the optional file override. A missing
// or invalid file is reported through the returned error while the
// defaults stay in effect.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		cfg.Filename = opts.Config
	}

	_, err := cfg.Load()

	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, err
}

// newRuntime builds the full environment: config, logger, store, config
// fingerprint sync, store hook, flush cycle. A store-open failure is fatal
// to the command (exit code 2); a config-load failure only logs a warning
// and the command proceeds on defaults.
func newRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, loadErr := loadConfig(opts)

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logging", err)
	}
	if loadErr != nil {
		logger.WithField("err", loadErr).Warn("config file not loaded, using defaults")
	}
	if opts.Debug {
		logger.Debug("debug mode on")
	}

	st, err := store.Open(cfg.SQLite.Path, cfg.Logging.Retention, logging.Module(logger, "store"))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}

	// From here on every log line lands in the cache as well.
	logger.AddHook(store.NewHook(st))

	if syncedAt, changed, err := cfg.Sync(ctx, st); err != nil {
		logger.WithField("err", err).Warn("config sync skipped")
	} else if changed {
		logger.WithField("at", syncedAt).Info("config file changed")
	}

	st.Start()

	token := uuid.Must(uuid.NewV7()).String()
	logger.WithField("run", token).Info("initialized")

	return &runtime{cfg: cfg, logger: logger, store: st, token: token}, nil
}

// close stops the flush cycle, flushes once more, and releases the store.
func (r *runtime) close() {
	if err := r.store.Close(); err != nil {
		r.logger.WithField("err", err).Error("error closing cache")
	}
}

// module returns the logger entry for a subsystem.
func (r *runtime) module(name string) *logrus.Entry {
	return logging.Module(r.logger, name)
}
