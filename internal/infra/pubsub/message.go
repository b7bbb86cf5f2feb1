package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/errors"
)

// Message attribute keys.
const (
	AttrEventType  = "event_type"
	AttrIdentityID = "identity_id"
	AttrRequestID  = "request_id"

	EventIdentityCreated = "identity.created"
)

// PushMessage is the body Google Pub/Sub posts to push subscriptions. The
// local publisher sends the same shape.
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// identityCreatedPayload serializes event and builds the attributes used for
// filtering and tracing.
func identityCreatedPayload(ctx context.Context, event *entity.IdentityCreatedEvent) ([]byte, map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	attributes := map[string]string{
		AttrEventType:  EventIdentityCreated,
		AttrIdentityID: event.IdentityID.String(),
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		attributes[AttrRequestID] = requestID
	}

	return data, attributes, nil
}

// NewPushMessage wraps an identity event the way a push subscription delivers it.
func NewPushMessage(ctx context.Context, subscription string, event *entity.IdentityCreatedEvent) (*PushMessage, error) {
	data, attributes, err := identityCreatedPayload(ctx, event)
	if err != nil {
		return nil, err
	}

	msg := &PushMessage{Subscription: subscription}
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.Attributes = attributes
	msg.Message.MessageID = uuid.NewString()
	msg.Message.PublishTime = time.Now().UTC().Format(time.RFC3339)

	return msg, nil
}

// DecodeIdentityCreated extracts the identity event from a push message.
func (m *PushMessage) DecodeIdentityCreated() (*entity.IdentityCreatedEvent, error) {
	if eventType := m.Message.Attributes[AttrEventType]; eventType != "" && eventType != EventIdentityCreated {
		return nil, errors.Errorf("unexpected event type %q", eventType)
	}

	data, err := base64.StdEncoding.DecodeString(m.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode message data")
	}

	var event entity.IdentityCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(err, "failed to parse identity event")
	}

	return &event, nil
}
