package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/logger"
	jsprovider "github.com/feral-file/staking-indexer/internal/providers/jetstream"
	"github.com/feral-file/staking-indexer/internal/processor"
)

// ErrHalted is returned by Run when an event could not be applied
var ErrHalted = errors.New("event bridge halted")

// Config holds the configuration for the event bridge
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int    // -1 keeps redelivering until the event is applied
	ConnectRetries uint64 // additional attempts for the initial connection
}

// Bridge defines the interface for the event bridge
//
//go:generate mockgen -source=bridge.go -destination=../mocks/bridge.go -package=mocks -mock_names=Bridge=MockBridge
type Bridge interface {
	// Run starts the event bridge
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	nc        adapter.NatsConn
	js        adapter.JetStream
	processor processor.Processor
	json      adapter.JSON
	config    Config
}

// NewBridge connects to NATS and creates a new event bridge
func NewBridge(
	ctx context.Context,
	cfg Config,
	natsJS adapter.NatsJetStream,
	proc processor.Processor,
	jsonAdapter adapter.JSON,
) (Bridge, error) {
	var (
		nc adapter.NatsConn
		js adapter.JetStream
	)
	connect := func() error {
		var err error
		nc, js, err = natsJS.Connect(cfg.URL, jsprovider.ConnectOptions(jsprovider.Config{
			URL:            cfg.URL,
			MaxReconnects:  cfg.MaxReconnects,
			ReconnectWait:  cfg.ReconnectWait,
			ConnectionName: cfg.ConnectionName,
		})...)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries), ctx)
	if err := backoff.Retry(connect, b); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &bridge{
		nc:        nc,
		js:        js,
		processor: proc,
		json:      jsonAdapter,
		config:    cfg,
	}, nil
}

// Run consumes staking events one at a time.
// A message is acked only after its event has been committed; the first
// event that cannot be applied stops the loop with ErrHalted.
func (b *bridge) Run(ctx context.Context) error {
	logger.Info("Starting event bridge", zap.String("stream", b.config.StreamName), zap.String("consumer", b.config.ConsumerName))

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       b.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.config.AckWaitTimeout,
		MaxDeliver:    b.config.MaxDeliver,
		MaxAckPending: 1,
		FilterSubject: jsprovider.SubjectPrefix + ".*.>",
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		select {
		case msgChan <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down event bridge")
			return ctx.Err()
		case msg := <-msgChan:
			if err := b.handleMessage(ctx, msg); err != nil {
				logger.Warn("Event bridge halted", zap.Error(err))
				return err
			}
		}
	}
}

// handleMessage processes a single NATS message.
// Any failure other than a replay leaves the message pending and halts the
// consumer so no later event is applied on top of a missing one.
func (b *bridge) handleMessage(ctx context.Context, msg adapter.Message) error {
	var deliveries uint64
	if metadata, err := msg.Metadata(); err == nil && metadata != nil {
		deliveries = metadata.NumDelivered
	}

	var event domain.Event
	if err := b.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"), zap.Uint64("deliveryCount", deliveries))
		b.release(msg)
		return fmt.Errorf("%w: undecodable payload: %v", ErrHalted, err)
	}

	fields := append(logger.EventFields(event.Meta, event.Kind), zap.Uint64("deliveryCount", deliveries))
	logger.DebugCtx(ctx, "Received event", fields...)

	err := b.processor.Process(ctx, &event)
	if !domain.IsFatal(err) {
		if err != nil {
			logger.InfoCtx(ctx, "Event already processed", fields...)
		}
		if err := msg.Ack(); err != nil {
			logger.Error(err, zap.String("message", "Failed to ACK message"))
		}
		return nil
	}

	logger.ErrorCtx(ctx, err, append(fields,
		zap.String("message", "Failed to process event"),
		zap.Bool("retryable", domain.IsRetryable(err)))...)
	b.release(msg)
	return fmt.Errorf("%w at event %s: %w", ErrHalted, event.Meta.EventKey(), err)
}

// release hands the message back to the server for redelivery once the consumer restarts
func (b *bridge) release(msg adapter.Message) {
	if err := msg.Nak(); err != nil {
		logger.Error(err, zap.String("message", "Failed to NAK message"))
	}
}

// Close closes the bridge and cleans up resources
func (b *bridge) Close() {
	if b.nc == nil {
		return
	}

	b.nc.Close()
}
