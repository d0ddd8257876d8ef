package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig holds connection settings for the JetStream publisher.
type NATSConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns defaults for a local NATS server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		StreamName:    "CLASSROOM_ACTIVITY",
		SubjectPrefix: "classroom.activity",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes activity events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config NATSConfig
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS and ensures the activity stream.
func NewNATSPublisher(config NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js, config: config, logger: logger}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     p.config.StreamName,
		Subjects: []string{p.config.SubjectPrefix + ".>"},
	})
	return err
}

// Publish sends one event to its type-specific subject.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, event.EventType)

	envelope := map[string]any{
		"eventId":   event.ID.String(),
		"eventType": event.EventType,
		"room":      event.Room,
		"timestamp": event.CreatedAt,
		"payload":   event.Payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("published activity event",
		slog.String("subject", subject),
		slog.String("event_id", event.ID.String()))
	return nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() {
	p.nc.Close()
}

// LogPublisher logs events instead of delivering them; used when no
// NATS URL is configured and in tests.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info("activity event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("room", event.Room))
	return nil
}
