package pkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// ReservationStreamName is the JetStream stream retaining reservation events.
	ReservationStreamName = "RESERVATIONS"
	// ReservationSubjects matches every reservation topic.
	ReservationSubjects = "reservations.>"

	defaultStreamMaxAge = 7 * 24 * time.Hour
	defaultFetchBatch   = 500
)

// NATSStream publishes reservation events to JetStream so that outcomes
// are retained for consumers that were offline when they happened.
type NATSStream struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	logger   apt.Logger
}

type NATSStreamConfig struct {
	URL  string
	Name string
	// Consumer is the durable consumer name. Empty means publish only.
	Consumer string
	// MaxAge bounds retention; zero means seven days.
	MaxAge time.Duration
	Logger apt.Logger
}

// NewNATSStream connects and ensures the reservations stream exists, plus the
// durable consumer when one is configured.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig) (*NATSStream, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStreamMaxAge
	}

	conn, err := connectNATS(cfg.URL, cfg.Name)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     ReservationStreamName,
		Subjects: []string{ReservationSubjects},
		MaxAge:   maxAge,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", ReservationStreamName, err)
	}

	s := &NATSStream{conn: conn, js: js, stream: stream, logger: logger}

	if cfg.Consumer != "" {
		consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          cfg.Consumer,
			Durable:       cfg.Consumer,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverAllPolicy,
			FilterSubject: ReservationSubjects,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.Consumer, err)
		}
		s.consumer = consumer
	}

	return s, nil
}

// Publish waits for the stream to acknowledge the event.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to stream: %w", topic, err)
	}
	return nil
}

// Fetch returns up to limit retained events not yet acknowledged by the
// durable consumer.
func (s *NATSStream) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if s.consumer == nil {
		return nil, errors.New("stream has no consumer")
	}
	if limit <= 0 {
		limit = defaultFetchBatch
	}

	batch, err := s.consumer.FetchNoWait(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation events: %w", err)
	}

	var messages []events.StreamMessage
	for msg := range batch.Messages() {
		metadata, err := msg.Metadata()
		if err != nil {
			s.logger.Debug("skipping event without metadata", "subject", msg.Subject(), "error", err)
			_ = msg.Ack()
			continue
		}

		messages = append(messages, events.StreamMessage{
			Data:      msg.Data(),
			Sequence:  metadata.Sequence.Stream,
			Timestamp: metadata.Timestamp.UnixNano(),
		})
		_ = msg.Ack()
	}
	if err := batch.Error(); err != nil {
		return messages, fmt.Errorf("reservation event batch failed: %w", err)
	}

	return messages, nil
}

// SubscribeStream delivers new events to handler. A failing handler gets the
// event redelivered.
func (s *NATSStream) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	if s.consumer == nil {
		return errors.New("stream has no consumer")
	}

	_, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("Reservation event handler failed", "subject", msg.Subject(), "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	return err
}

func (s *NATSStream) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
	return nil
}
