package main

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/delivery"
	"lexcourt/internal/delivery/api"
	apimiddleware "lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/router/handler"
	"lexcourt/internal/delivery/middleware"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/infra/auth"
	"lexcourt/internal/infra/cache"
	"lexcourt/internal/infra/credential"
	logs "lexcourt/internal/infra/log"
	"lexcourt/internal/infra/metrics"
	"lexcourt/internal/infra/persistence/memory"
	"lexcourt/internal/infra/persistence/postgres"
	"lexcourt/internal/infra/pubsub"
	"lexcourt/internal/infra/qrcode"
	"lexcourt/internal/infra/sanitize"
	"lexcourt/internal/infra/scheduler"
	"lexcourt/internal/usecase"
	"lexcourt/internal/usecase/impl"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	fx.New(
		fx.Supply(cfg),
		injectInfra(cfg),
		injectRepo(cfg),
		injectService(),
		injectUsecase(),
		injectJobs(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
			// The scheduler has no dependents; invoking it registers its hooks.
			func(*scheduler.Scheduler) {},
		),
	).Run()
}

func injectInfra(cfg *config.Config) fx.Option {
	opts := []fx.Option{
		fx.Provide(
			logs.New,
			context.Background,
			metrics.NewRegistry,
			metrics.NewCollector,
			func(c *metrics.Collector) service.Metrics { return c },
			cache.NewProfileCache,
			scheduler.New,
		),
		pubsub.Module,
	}

	// Redis is optional; the profile cache falls back to memory without it.
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		opts = append(opts, fx.Provide(cache.NewRedisClient))
	}

	return fx.Options(opts...)
}

// injectRepo keeps everything in memory unless postgres is configured.
func injectRepo(cfg *config.Config) fx.Option {
	if cfg.Postgres == nil {
		return fx.Provide(
			memory.New,
			memory.NewTransactionManager,
			memory.NewIdentityRepository,
			memory.NewCredentialRepository,
			memory.NewSessionTokenRepository,
			memory.NewProfileRepository,
		)
	}

	return fx.Provide(
		postgres.New,
		postgres.NewTransactionManager,
		postgres.NewIdentityRepository,
		postgres.NewCredentialRepository,
		postgres.NewSessionTokenRepository,
		postgres.NewProfileRepository,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			credential.NewStore,
			func(s *credential.Store) service.CredentialStore { return s },
			newQRCodeService,
			sanitize.NewTextSanitizer,
		),
	)
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewProfileService,
			impl.NewProvisioningService,
			impl.NewSessionRegistry,
			impl.NewRouteGuard,
			impl.NewCaseService,
		),
	)
}

func injectJobs() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				credential.NewExpiryJob,
				fx.ResultTags(`group:"jobs"`),
			),
			fx.Annotate(
				newPruneJob,
				fx.ResultTags(`group:"jobs"`),
			),
		),
	)
}

// newPruneJob drops signed-out client contexts nobody has touched lately.
func newPruneJob(registry usecase.SessionRegistry, logger *slog.Logger) scheduler.Job {
	return scheduler.Job{
		Name: "client-prune",
		Run: func(ctx context.Context) error {
			if n := registry.Prune(ctx); n > 0 {
				logger.Info("Pruned client contexts", slog.Int("count", n))
			}

			return nil
		},
	}
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewClientMiddleware,
			apimiddleware.NewSessionMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewProfileHandler,
			handler.NewDashboardHandler,
			handler.NewCaseHandler,
			handler.NewHearingHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
