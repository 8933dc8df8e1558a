// Package sink delivers harvested records to their destination. Sinks are
// fire-and-continue: a failed emit is reported by the caller and the harvest
// moves on to the next record.
package sink

import (
	"context"
	"fmt"

	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"go.uber.org/zap"
)

// Sink receives output records one at a time.
type Sink interface {
	// Emit delivers one record. An error means this record was not
	// accepted; it carries no implication for subsequent records.
	Emit(ctx context.Context, record models.Record) error

	// Close flushes and releases the sink. Emit must not be called after
	// Close.
	Close() error
}

// Envelope wraps a record with its kind discriminator for serialization.
type Envelope struct {
	Kind   string        `json:"kind"`
	ID     string        `json:"id"`
	Record models.Record `json:"record"`
}

// NewEnvelope wraps a record for the wire.
func NewEnvelope(record models.Record) Envelope {
	return Envelope{
		Kind:   record.RecordKind(),
		ID:     record.RecordID(),
		Record: record,
	}
}

// New builds the sink selected by the configuration.
func New(cfg config.SinkConfig, logger *zap.Logger) (Sink, error) {
	switch cfg.Type {
	case "file":
		return NewFileSink(cfg.Path, logger)
	case "rest":
		return NewRESTSink(cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
