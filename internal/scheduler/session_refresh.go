package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// SessionSource lists browsers whose provider token expires soon.
type SessionSource interface {
	SessionsExpiringBefore(ctx context.Context, t time.Time) ([]string, error)
}

// TokenRefresher renews the session of one browser.
type TokenRefresher interface {
	Refresh(ctx context.Context, key string) (*domain.Session, error)
}

// SessionRefresher periodically refreshes OAuth tokens close to expiry
type SessionRefresher struct {
	sessions      SessionSource
	refresher     TokenRefresher
	logger        logger.Logger
	interval      time.Duration
	window        time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSessionRefresher creates a new session refresher. Tokens expiring
// within window are refreshed every interval.
func NewSessionRefresher(
	sessions SessionSource,
	refresher TokenRefresher,
	log logger.Logger,
	interval time.Duration,
	window time.Duration,
	manualTrigger chan struct{},
) *SessionRefresher {
	return &SessionRefresher{
		sessions:      sessions,
		refresher:     refresher,
		logger:        log,
		interval:      interval,
		window:        window,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic refresh process
func (sr *SessionRefresher) Start(ctx context.Context) error {
	// Refresh immediately on start
	if _, err := sr.RefreshDue(ctx); err != nil {
		sr.logger.Warn("initial session refresh failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sr.RefreshDue(ctx); err != nil {
					sr.logger.Error("failed to refresh sessions",
						logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual session refresh triggered")
				if _, err := sr.RefreshDue(ctx); err != nil {
					sr.logger.Error("failed to refresh sessions",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the refresher
func (sr *SessionRefresher) Stop() {
	close(sr.stopCh)
}

// RefreshDue refreshes every session whose token expires within the
// window and returns how many succeeded. A failing session does not stop
// the others.
func (sr *SessionRefresher) RefreshDue(ctx context.Context) (int, error) {
	keys, err := sr.sessions.SessionsExpiringBefore(ctx, time.Now().Add(sr.window))
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring sessions: %w", err)
	}
	if len(keys) == 0 {
		sr.logger.Debug("no sessions to refresh")
		return 0, nil
	}

	refreshed := 0
	for _, key := range keys {
		if _, err := sr.refresher.Refresh(ctx, key); err != nil {
			if errors.Is(err, errs.ErrNoSession) {
				sr.logger.Debug("session ended before refresh", logger.String("browser", shortKey(key)))
				continue
			}
			sr.logger.Warn("failed to refresh session",
				logger.String("browser", shortKey(key)),
				logger.Error(err))
			continue
		}
		refreshed++
	}

	sr.logger.Info("sessions refreshed",
		logger.Int("due", len(keys)),
		logger.Int("refreshed", refreshed))
	return refreshed, nil
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
