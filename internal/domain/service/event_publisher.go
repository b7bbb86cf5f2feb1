package service

import (
	"context"

	"lexcourt/internal/domain/entity"
)

// EventPublisher publishes identity events for asynchronous processing.
type EventPublisher interface {
	// PublishIdentityCreated announces a new identity so its profile gets provisioned.
	PublishIdentityCreated(ctx context.Context, event *entity.IdentityCreatedEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
