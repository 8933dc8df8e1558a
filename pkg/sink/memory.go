package sink

import (
	"context"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// MemorySink collects records in order. Intended for tests.
type MemorySink struct {
	Records []models.Record

	// FailIDs lists record ids whose emission should fail.
	FailIDs map[string]error

	closed bool
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{FailIDs: make(map[string]error)}
}

// Emit stores the record, or returns the configured error for its id.
func (s *MemorySink) Emit(ctx context.Context, record models.Record) error {
	if err, ok := s.FailIDs[record.RecordID()]; ok {
		return err
	}
	s.Records = append(s.Records, record)
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySink) Closed() bool { return s.closed }

var _ Sink = (*MemorySink)(nil)
