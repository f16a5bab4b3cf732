// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package events publishes reconciliation results on a watermill bus.
//
// Backends:
//   - memory: watermill gochannel, in process only
//   - nats: NATS JetStream through watermill-nats, optionally served by an
//     embedded nats-server
//   - disabled: Publish is a no-op
//
// Every published message carries the event id as its watermill UUID and as
// Nats-Msg-Id, so JetStream drops duplicates inside its window.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendNATS     = "nats"
	BackendDisabled = "disabled"
)

// DefaultTopic is used when the configuration leaves the topic empty.
const DefaultTopic = "paysync.reconciliation"

// ErrClosed is returned after Close.
var ErrClosed = errors.New("event bus closed")

// Handler consumes one decoded event. Returning an error nacks the message.
type Handler = func(ctx context.Context, ev models.ReconciliationEvent) error

// Bus is the reconciliation event bus.
type Bus struct {
	backend    string
	topic      string
	publisher  message.Publisher
	subscriber message.Subscriber
	server     *EmbeddedServer
	breaker    *publishBreaker
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// Open builds the bus cfg selects.
func Open(ctx context.Context, cfg *config.EventsConfig) (*Bus, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := defaultLogger()

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryBus(topic, logger), nil
	case BackendDisabled:
		return &Bus{backend: BackendDisabled, topic: topic, logger: logger}, nil
	case BackendNATS:
		return openNATS(ctx, cfg, topic, logger)
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.Backend)
	}
}

// NewMemoryBus returns an in-process bus.
func NewMemoryBus(topic string, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = defaultLogger()
	}
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return &Bus{
		backend:    BackendMemory,
		topic:      topic,
		publisher:  ch,
		subscriber: ch,
		breaker:    newPublishBreaker(),
		logger:     logger,
	}
}

func openNATS(ctx context.Context, cfg *config.EventsConfig, topic string, logger watermill.LoggerAdapter) (*Bus, error) {
	url := cfg.NATSURL
	var srv *EmbeddedServer
	if cfg.EmbeddedServer {
		var err error
		srv, err = StartEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort, cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		url = srv.ClientURL()
	}
	if url == "" {
		return nil, errors.New("nats url is required")
	}

	fail := func(err error) (*Bus, error) {
		if srv != nil {
			_ = srv.Shutdown(context.Background()) //nolint:errcheck // already failing
		}
		return nil, err
	}

	stream := StreamName(topic)
	if err := ensureStream(ctx, url, stream, topic); err != nil {
		return fail(err)
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("paysync"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("create nats publisher: %w", err))
	}

	// Ephemeral consumers: every instance's live feed sees every event.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(stream),
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close() //nolint:errcheck // already failing
		return fail(fmt.Errorf("create nats subscriber: %w", err))
	}

	return &Bus{
		backend:    BackendNATS,
		topic:      topic,
		publisher:  pub,
		subscriber: sub,
		server:     srv,
		breaker:    newPublishBreaker(),
		logger:     logger,
	}, nil
}

// StreamName derives a JetStream stream name from the topic: the first
// subject token, upper-cased ("paysync.reconciliation" gives "PAYSYNC").
func StreamName(topic string) string {
	head, _, _ := strings.Cut(topic, ".")
	name := strings.ToUpper(strings.NewReplacer("*", "", ">", "", " ", "").Replace(head))
	if name == "" {
		return "PAYSYNC"
	}
	return name
}

func ensureStream(ctx context.Context, url, stream, topic string) error {
	nc, err := natsgo.Connect(url, natsgo.Name("paysync-provisioner"))
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       stream,
		Subjects:   []string{topic},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", stream, err)
	}
	return nil
}

// Backend names the active backend.
func (b *Bus) Backend() string { return b.backend }

// Topic returns the subject events are published on.
func (b *Bus) Topic() string { return b.topic }

// Ping reports whether the bus can still publish. Used by readiness checks.
func (b *Bus) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if b.server != nil && !b.server.Running() {
		return errors.New("embedded nats server is not running")
	}
	return nil
}

// Publish sends ev. It satisfies the reconciliation engine's publisher port.
func (b *Bus) Publish(ctx context.Context, ev models.ReconciliationEvent) error {
	if b.publisher == nil {
		return nil
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	id := ev.EventID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.Metadata.Set("order_id", ev.OrderID)
	msg.Metadata.Set("outcome", string(ev.Outcome))
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}
	msg.SetContext(ctx)

	err = b.breaker.execute(func() error { return b.publisher.Publish(b.topic, msg) })
	metrics.RecordEventPublish(err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Consumer retry policy. A handler error is retried with backoff inside the
// router before the message is nacked back to the broker.
const (
	consumerMaxRetries      = 3
	consumerInitialInterval = 100 * time.Millisecond
	consumerMaxInterval     = 2 * time.Second
	consumerCloseTimeout    = 10 * time.Second
)

// Run consumes events until ctx ends, calling h for each. Undecodable
// messages are acked and dropped.
func (b *Bus) Run(ctx context.Context, h Handler) error {
	if b.subscriber == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: consumerCloseTimeout}, b.logger)
	if err != nil {
		return fmt.Errorf("create event router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      consumerMaxRetries,
		InitialInterval: consumerInitialInterval,
		MaxInterval:     consumerMaxInterval,
		Multiplier:      2,
		Logger:          b.logger,
	}.Middleware)
	router.AddNoPublisherHandler("reconciliation-consumer", b.topic, b.subscriber, func(msg *message.Message) error {
		return b.dispatch(msg, h)
	})

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("consume %s: %w", b.topic, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrClosed
}

// dispatch decodes msg and hands it to h. The router acks on nil and nacks
// once retries are exhausted.
func (b *Bus) dispatch(msg *message.Message, h Handler) error {
	var ev models.ReconciliationEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		b.logger.Error("Dropping undecodable event", err, watermill.LogFields{"message_uuid": msg.UUID})
		return nil
	}
	ctx := msg.Context()
	if cid := msg.Metadata.Get("correlation_id"); cid != "" {
		ctx = logging.ContextWithCorrelationID(ctx, cid)
	}
	if err := h(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_id", ev.EventID).Msg("Event handler failed")
		return err
	}
	metrics.EventsConsumed.Inc()
	return nil
}

// Close releases the publisher, subscriber and embedded server.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	// gochannel uses one value for both roles.
	if b.subscriber != nil && b.backend != BackendMemory {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
