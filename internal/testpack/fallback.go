package testpack

import (
	"context"
	"log/slog"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

// Remote fetches tests from the backend.
type Remote interface {
	GetTest(ctx context.Context, id string) (model.Test, error)
}

// FallbackLoader prefers the backend, caches what it fetches, and serves the
// local copy when the backend is unreachable.
type FallbackLoader struct {
	remote Remote
	pack   *Pack
	logger *slog.Logger
}

// NewFallbackLoader wraps remote with the pack as offline source.
func NewFallbackLoader(remote Remote, pack *Pack, logger *slog.Logger) *FallbackLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FallbackLoader{remote: remote, pack: pack, logger: logger}
}

// GetTest implements the session loader.
func (l *FallbackLoader) GetTest(ctx context.Context, id string) (model.Test, error) {
	test, err := l.remote.GetTest(ctx, id)
	if err == nil {
		if serr := l.pack.Save(test); serr != nil {
			l.logger.Warn("failed to cache test locally", "test_id", id, "error", serr)
		}
		return test, nil
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindNetwork, apperrors.KindTimeout:
	default:
		return model.Test{}, err
	}
	local, lerr := l.pack.Load(id)
	if lerr != nil {
		l.logger.Debug("no local copy for offline load", "test_id", id, "error", lerr)
		return model.Test{}, err
	}
	l.logger.Info("backend unreachable, using local test copy", "test_id", id, "error", err)
	return local, nil
}
