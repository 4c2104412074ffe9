package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tvtracker/backend/internal/auth"
	"github.com/tvtracker/backend/internal/config"
	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/groups"
	"github.com/tvtracker/backend/internal/handlers"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/stats"
	"github.com/tvtracker/backend/internal/storage"
	"github.com/tvtracker/backend/internal/tracker"
)

// sessionSweepInterval controls how often expired refresh tokens are purged.
var sessionSweepInterval = time.Hour

// expiredSessionSweeper removes refresh tokens past their expiry.
type expiredSessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup stops background work started here.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	sessionStore := repositories.NewPostgresSessionStore(pool)
	watchRepo := repositories.NewPostgresWatchRepository(pool)
	watchlistRepo := repositories.NewPostgresWatchlistRepository(pool)
	statsRepo := repositories.NewPostgresStatsRepository(pool)

	deps := handlers.Dependencies{
		CORSOrigins: cfg.CORSOrigins,
		Users:       repositories.NewPostgresUserRepository(pool),
		Sessions:    auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, auth.NewSigner(cfg.JWTSecret), sessionStore),
		Watches:     tracker.NewWatchService(watchRepo, watchlistRepo),
		Watchlist:   tracker.NewWatchlistService(watchlistRepo),
		Stats: stats.NewEngine(statsRepo, stats.Config{
			MovieMinutes:   cfg.Stats.MovieMinutes,
			EpisodeMinutes: cfg.Stats.EpisodeMinutes,
			RecentWindow:   cfg.Stats.RecentWindow,
			TimeZone:       cfg.Stats.TimeZone,
		}),
		Groups: groups.NewService(
			repositories.NewPostgresGroupRepository(pool),
			repositories.NewPostgresChatRepository(pool),
			statsRepo,
		),
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Database = pinger
	}

	if strings.TrimSpace(cfg.ObjectStore.Bucket) != "" {
		s3Store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
		}
		store := storage.NewBreakerStore(s3Store, storage.DefaultBreakerConfig())
		deps.Avatars = storage.NewAvatarUploader(store, cfg.ObjectStore.MaxAvatarBytes)
	}

	sweepCtx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweepSessions(sweepCtx, sessionStore, sessionSweepInterval)
	}()

	cleanup := func(ctx context.Context) error {
		stop()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return deps, cleanup, nil
}

// sweepSessions purges expired sessions every interval until ctx is canceled.
func sweepSessions(ctx context.Context, store expiredSessionSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				slog.Warn("expired session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired sessions removed", "count", removed)
			}
		}
	}
}
