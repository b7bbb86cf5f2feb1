package credential

import (
	"context"
	"log/slog"

	"lexcourt/internal/infra/scheduler"
)

// NewExpiryJob returns the scheduled job that expires stale sessions.
func NewExpiryJob(store *Store, logger *slog.Logger) scheduler.Job {
	return scheduler.Job{
		Name: "session-expiry",
		Run: func(ctx context.Context) error {
			n, err := store.ExpireSessions(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Expired sessions", slog.Int("count", n))
			}

			return nil
		},
	}
}
