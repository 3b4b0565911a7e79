package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/session"
	"github.com/five82/foreman/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// sessionSource is the part of *session.Manager the heartbeat needs.
type sessionSource interface {
	Snapshot() session.Snapshot
	RefreshProfile(ctx context.Context) error
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// StartPoller launches the session heartbeat. While a session is
// authenticated it re-reads the profile and records the outcome in store.
// It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, sess sessionSource, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			refresh(ctx, store, sess, logger)
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
		}
	}()
}

// refresh runs one heartbeat. Anonymous sessions are recorded without a
// network call. A 401 marks the session expired but is not counted as the
// backend being offline.
func refresh(ctx context.Context, store *state.Store, sess sessionSource, logger *slog.Logger) {
	snap := sess.Snapshot()
	if snap.State != session.StateAuthenticated {
		store.Update(snap, false, nil)
		return
	}

	err := sess.RefreshProfile(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	expired := snap.Claims.Expired(time.Now())
	switch {
	case err == nil:
		store.Update(sess.Snapshot(), expired, nil)
	case api.StatusOf(err) == http.StatusUnauthorized:
		logger.Info("session rejected by backend", slog.Any("error", err))
		store.Update(sess.Snapshot(), true, nil)
	case isTransport(err):
		logger.Warn("heartbeat failed", slog.Any("error", err))
		store.Update(snap, expired, err)
	default:
		// The backend answered; only the profile routes are unavailable.
		logger.Debug("profile refresh failed", slog.Any("error", err))
		store.Update(sess.Snapshot(), expired, nil)
	}
}

func isTransport(err error) bool {
	var transportErr *api.TransportError
	return errors.As(err, &transportErr)
}
