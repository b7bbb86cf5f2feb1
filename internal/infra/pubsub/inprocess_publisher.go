package pubsub

import (
	"context"
	"log/slog"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/lifecycle"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/usecase"
	"lexcourt/internal/util"
)

type inProcessDelivery struct {
	requestID string
	event     *entity.IdentityCreatedEvent
}

// inProcessPublisher hands identity events to the provisioning usecase on a
// background goroutine, one at a time and in publish order.
type inProcessPublisher struct {
	mailbox *util.Mailbox[inProcessDelivery]
	logger  *slog.Logger
}

// NewInProcessPublisher provisions profiles inside the API process.
func NewInProcessPublisher(provisioning usecase.ProvisioningUsecase, logger *slog.Logger) service.EventPublisher {
	p := &inProcessPublisher{logger: logger}
	p.mailbox = util.NewMailbox(func(d inProcessDelivery) {
		ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
		defer cancel()

		reqLogger := logger
		if d.requestID != "" {
			ctx = deliverycontext.WithRequestID(ctx, d.requestID)
			reqLogger = logger.With(slog.String("request_id", d.requestID))
		}
		ctx = deliverycontext.WithLogger(ctx, reqLogger)

		if err := provisioning.ProvisionProfile(ctx, d.event); err != nil {
			reqLogger.Error("[InProcessPubSub] Provisioning failed",
				slog.String("identity_id", d.event.IdentityID.String()),
				slog.Any("error", err))
		}
	})

	return p
}

func (p *inProcessPublisher) PublishIdentityCreated(ctx context.Context, event *entity.IdentityCreatedEvent) error {
	if !p.mailbox.Post(inProcessDelivery{requestID: deliverycontext.GetRequestIDFromContext(ctx), event: event}) {
		return errPublisherClosed
	}

	return nil
}

// Close stops accepting events and waits for queued ones to be provisioned.
func (p *inProcessPublisher) Close() error {
	p.mailbox.Close()
	<-p.mailbox.Done()

	return nil
}

// sync waits for every event published so far.
func (p *inProcessPublisher) sync() {
	p.mailbox.Sync()
}
