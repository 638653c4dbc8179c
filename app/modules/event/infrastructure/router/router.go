package eventrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/correlation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// TimestampMetadataKey routes an ingested event through RecordAtTimestamp.
const TimestampMetadataKey = "timestamp"

// Recorder is the slice of the event service the ingest path needs.
type Recorder interface {
	Record(ctx context.Context, ev *eventdb.Event) (sharedtypes.EventID, error)
	RecordAtTimestamp(ctx context.Context, ev *eventdb.Event, ts time.Time) (sharedtypes.EventID, error)
}

// IngestRouter feeds ctf.event.ingest.v1 messages into the event log.
// Undecodable and rejected events are logged and acked. Storage failures are
// retried, then nacked so the broker redelivers them.
type IngestRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewIngestRouter builds the watermill router. A nil registry skips router
// metrics.
func NewIngestRouter(logger *slog.Logger, subscriber message.Subscriber, registry *prometheus.Registry) (*IngestRouter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create event ingest router: %w", err)
	}

	var builder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "ctf", "ingest")
		builder = &b
	}
	return &IngestRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		metricsBuilder: builder,
	}, nil
}

// Configure installs middleware and the ingest handler.
func (r *IngestRouter) Configure(recorder Recorder) {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}
	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 50 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(r.logger),
		}.Middleware,
	)

	h := &ingestHandler{recorder: recorder, logger: r.logger}
	r.Router.AddHandler(
		"event.ingest",
		eventbus.EventIngestV1,
		r.subscriber,
		"",
		nil,
		func(msg *message.Message) ([]*message.Message, error) {
			return nil, h.Handle(msg)
		},
	)
}

// Run blocks until ctx is cancelled or the router is closed.
func (r *IngestRouter) Run(ctx context.Context) error {
	return r.Router.Run(ctx)
}

func (r *IngestRouter) Close() error {
	return r.Router.Close()
}

type ingestHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

// Handle records one message. It returns an error only for failures a
// redelivery could fix.
func (h *ingestHandler) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := middleware.MessageCorrelationID(msg); id != "" {
		ctx = correlation.WithID(ctx, id)
	} else {
		ctx = correlation.Ensure(ctx)
	}

	var ev eventdb.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		h.logger.WarnContext(ctx, "Dropping undecodable event",
			attr.ExtractCorrelationID(ctx),
			attr.String("message_id", msg.UUID),
			attr.Error(err),
		)
		return nil
	}

	var (
		id  sharedtypes.EventID
		err error
	)
	if raw := msg.Metadata.Get(TimestampMetadataKey); raw != "" {
		var ts time.Time
		if ts, err = httpx.ParseTimestamp(raw); err == nil {
			id, err = h.recorder.RecordAtTimestamp(ctx, &ev, ts)
		}
	} else {
		id, err = h.recorder.Record(ctx, &ev)
	}
	if err != nil {
		if !apperrors.IsDomain(err) && !errors.Is(err, apperrors.ErrInvariantViolation) {
			h.logger.ErrorContext(ctx, "Failed to record ingested event",
				attr.ExtractCorrelationID(ctx),
				attr.String("message_id", msg.UUID),
				attr.String("event_type", string(ev.Type)),
				attr.Error(err),
			)
			return fmt.Errorf("record ingested event: %w", err)
		}
		h.logger.WarnContext(ctx, "Ingested event rejected",
			attr.ExtractCorrelationID(ctx),
			attr.String("message_id", msg.UUID),
			attr.String("event_type", string(ev.Type)),
			attr.Error(err),
		)
		return nil
	}
	h.logger.DebugContext(ctx, "Ingested event recorded",
		attr.ExtractCorrelationID(ctx),
		attr.EventID("event_id", id),
	)
	return nil
}
