package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/correlation"
	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// Topics published or consumed by the engine.
const (
	TickAdvancedV1  = "ctf.tick.advanced.v1"
	EventRecordedV1 = "ctf.event.recorded.v1"
	EventIngestV1   = "ctf.event.ingest.v1"

	PatchUploadedV1      = "ctf.patch.uploaded.v1"
	PatchStatusV1        = "ctf.patch.status.v1"
	AnnouncementPostedV1 = "ctf.announcement.posted.v1"
)

// Publisher publishes JSON payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Bus adapts a watermill publisher to Publisher.
type Bus struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// New wraps publisher.
func New(publisher message.Publisher, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{publisher: publisher, logger: logger}
}

// Publish marshals payload to JSON and publishes it with the context's
// correlation id in the message metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus.Publish: marshal %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := correlation.ID(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish message",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Error(err),
		)
		return fmt.Errorf("eventbus.Publish: %s: %w", topic, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (b *Bus) Close() error {
	return b.publisher.Close()
}

// Nop drops every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// NewNATS connects a watermill publisher and subscriber to NATS JetStream.
func NewNATS(url string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Name("ctf-engine"),
	}
	js := wmnats.JetStreamConfig{
		AutoProvision: true,
		DurablePrefix: "ctf-engine",
	}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         url,
		NatsOptions: options,
		Marshaler:   marshaler,
		JetStream:   js,
	}, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "ctf-engine",
		SubscribersCount: 1,
		NatsOptions:      options,
		Unmarshaler:      marshaler,
		JetStream:        js,
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	return publisher, subscriber, nil
}

// NewInMemory returns a gochannel pubsub used when NATS is not configured and
// in tests.
func NewInMemory(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
}
