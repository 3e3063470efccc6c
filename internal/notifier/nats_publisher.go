package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the part of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher emits a JSON SlotChangeEvent for every detection on
// "<prefix>.<owner_id>".
type NATSPublisher struct {
	conn          Publisher
	closer        func()
	subjectPrefix string
	logger        zerolog.Logger
}

// NewNATSPublisher connects to the configured server.
func NewNATSPublisher(cfg config.NATSConfig, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("slotwatch"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := NewNATSPublisherWithConn(conn, cfg.SubjectPrefix, logger)
	p.closer = conn.Close
	p.logger.Info().Str("url", cfg.URL).Str("subject_prefix", cfg.SubjectPrefix).Msg("NATS publisher connected")
	return p, nil
}

// NewNATSPublisherWithConn wraps an existing connection.
func NewNATSPublisherWithConn(conn Publisher, subjectPrefix string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger.With().Str("module", "NATSPublisher").Logger(),
	}
}

// Subject returns the subject events for owner are published on.
func (p *NATSPublisher) Subject(ownerID int64) string {
	return p.subjectPrefix + "." + strconv.FormatInt(ownerID, 10)
}

// PublishSlotChange publishes event. The context is accepted for symmetry with
// other collaborators; core NATS publishes are buffered and do not block.
func (p *NATSPublisher) PublishSlotChange(_ context.Context, event models.SlotChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := p.Subject(event.OwnerID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug().Str("subject", subject).Int64("resource_id", event.ResourceID).Int("slots", len(event.Slots)).Msg("Published slot change event")
	return nil
}

// Close closes the connection if this publisher opened it.
func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}
