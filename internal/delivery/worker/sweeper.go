// Package worker contains the background deliveries of the process.
package worker

import (
	"context"
	"log/slog"
	"time"

	"saaskit/config"
	"saaskit/internal/delivery"
	"saaskit/internal/domain/lifecycle"
	"saaskit/internal/usecase"

	"go.uber.org/fx"
)

// sessionSweeper periodically removes expired session rows. Expired sessions
// are already rejected at validation time, so the sweeper only reclaims
// storage; every run is idempotent.
type sessionSweeper struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions usecase.SessionUsecase
	done     chan struct{}
}

// SweeperParams holds dependencies for the session sweeper
type SweeperParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *slog.Logger
	Sessions usecase.SessionUsecase
}

// NewSessionSweeper creates the expired-session sweeper delivery
func NewSessionSweeper(params SweeperParams) (delivery.Delivery, error) {
	sweeper := &sessionSweeper{
		cfg:      params.Cfg,
		logger:   params.Logger,
		sessions: params.Sessions,
		done:     make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: sweeper.stop,
	})

	return sweeper, nil
}

// Serve runs the sweep loop until the application stops. The first sweep
// happens immediately so a restart never leaves a backlog waiting a full
// interval.
func (s *sessionSweeper) Serve(ctx context.Context) error {
	interval := s.cfg.Session.CleanupInterval
	s.logger.Info("Starting session sweeper", slog.Duration("interval", interval))

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sessionSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	count, err := s.sessions.CleanupExpiredSessions(sweepCtx)
	if err != nil {
		s.logger.Error("Session sweep failed", slog.Any("error", err))

		return
	}

	if count > 0 {
		s.logger.Info("Swept expired sessions", slog.Int64("count", count))
	}
}

// stop ends the sweep loop
func (s *sessionSweeper) stop(ctx context.Context) error {
	s.logger.Info("Shutting down session sweeper")
	close(s.done)

	return nil
}
