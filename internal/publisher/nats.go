// Package publisher turns indexer events into NATS messages.
package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/media-indexer/internal/indexer"
)

// Event subjects.
const (
	SubjectMediaIndexed   = "media.indexed"
	SubjectIndexCompleted = "index.completed"
)

// Bus publishes a JSON payload, implemented by *nats.Client.
type Bus interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements indexer.EventPublisher
type NATSPublisher struct {
	bus Bus
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(bus Bus) *NATSPublisher {
	return &NATSPublisher{bus: bus}
}

// PublishMediaIndexed publishes a stored file event
func (p *NATSPublisher) PublishMediaIndexed(ctx context.Context, event indexer.MediaIndexedEvent) error {
	return p.publish(ctx, SubjectMediaIndexed, event)
}

// PublishIndexCompleted publishes a finished run event
func (p *NATSPublisher) PublishIndexCompleted(ctx context.Context, event indexer.IndexCompletedEvent) error {
	return p.publish(ctx, SubjectIndexCompleted, event)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event any) error {
	if err := p.bus.Publish(ctx, subject, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
