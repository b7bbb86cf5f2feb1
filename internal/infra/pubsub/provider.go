// Package pubsub publishes identity events that trigger profile provisioning.
package pubsub

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/domain/constants"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
)

var errPublisherClosed = errors.New("publisher is closed")

// noopPublisher drops events when publishing is disabled
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) PublishIdentityCreated(_ context.Context, event *entity.IdentityCreatedEvent) error {
	p.logger.Debug("[NoopPubSub] Event publishing disabled, skipping",
		slog.String("identity_id", event.IdentityID.String()),
	)

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// PublisherParams holds dependencies for EventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc           fx.Lifecycle
	Ctx          context.Context
	Config       *config.Config
	Logger       *slog.Logger
	Provisioning usecase.ProvisioningUsecase `optional:"true"`
}

// NewEventPublisher creates an EventPublisher based on configuration
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	cfg := params.Config.PubSub
	logger := params.Logger

	if cfg == nil || cfg.Provider == constants.PubSubProviderNone {
		logger.Warn("PubSub disabled, profiles will not be provisioned")

		return &noopPublisher{logger: logger}, nil
	}

	var publisher service.EventPublisher
	var err error

	switch cfg.Provider {
	case constants.PubSubProviderInProcess:
		if params.Provisioning == nil {
			return nil, errors.New("inprocess provider requires the provisioning usecase")
		}
		logger.Info("Provisioning profiles in process")

		publisher = NewInProcessPublisher(params.Provisioning, logger)

	case constants.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP publisher for Pub/Sub",
			slog.String("endpoint", cfg.LocalEndpoint),
		)

		publisher = NewLocalHTTPPublisher(cfg.LocalEndpoint, logger)

	case constants.PubSubProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}

		publisher, err = NewGooglePubSubPublisher(params.Ctx, cfg.ProjectID, cfg.TopicID, logger)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing EventPublisher")

			return publisher.Close()
		},
	})

	return publisher, nil
}

// Module provides the Pub/Sub FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewEventPublisher),
)
