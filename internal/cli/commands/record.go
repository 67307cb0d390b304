package commands

import (
	"log/slog"

	"github.com/leapstack-labs/realmweave/internal/cli/config"
	"github.com/leapstack-labs/realmweave/internal/state"
	"github.com/leapstack-labs/realmweave/internal/weave"
)

// recorder writes weave runs to the history store. History is best effort:
// store failures are logged and never fail a weave.
type recorder struct {
	store  state.Store
	logger *slog.Logger
}

// openStore opens and migrates the history database at cfg.StatePath.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newRecorder returns a recorder; its store is nil when history is disabled
// or cannot be opened.
func newRecorder(cfg *config.Config, logger *slog.Logger) *recorder {
	rec := &recorder{logger: logger}
	if cfg.NoState {
		return rec
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Warn("weave history disabled", slog.String("path", cfg.StatePath), slog.Any("error", err))
		return rec
	}
	rec.store = store
	return rec
}

func (r *recorder) start(input, out string) string {
	if r.store == nil {
		return ""
	}
	run, err := r.store.CreateRun(input, out)
	if err != nil {
		r.logger.Warn("failed to record run", slog.Any("error", err))
		return ""
	}
	return run.ID
}

func (r *recorder) finish(id string, res *weave.Result, werr error) {
	if r.store == nil || id == "" {
		return
	}
	outcome := state.OutcomeFailed
	var msg string
	if werr != nil {
		msg = werr.Error()
	} else if res != nil {
		outcome = res.Outcome.String()
		if err := r.store.RecordProperties(id, wovenProperties(res.Types)); err != nil {
			r.logger.Warn("failed to record properties", slog.String("run", id), slog.Any("error", err))
		}
	}
	if err := r.store.CompleteRun(id, outcome, msg); err != nil {
		r.logger.Warn("failed to complete run", slog.String("run", id), slog.Any("error", err))
	}
}

func (r *recorder) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}
