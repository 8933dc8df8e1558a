package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"go.uber.org/zap"
)

// FileSink writes records as JSON lines, one envelope per line.
type FileSink struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	logger  *zap.Logger

	// ownsFile is false for stdout, which the sink must not close.
	ownsFile bool
}

// NewFileSink opens a JSONL sink at path; "-" writes to stdout.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	file := os.Stdout
	ownsFile := false

	if path != "-" {
		var err error
		file, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sink file %s: %w", path, err)
		}
		ownsFile = true
	}

	writer := bufio.NewWriter(file)
	return &FileSink{
		file:     file,
		writer:   writer,
		encoder:  json.NewEncoder(writer),
		logger:   logger,
		ownsFile: ownsFile,
	}, nil
}

// Emit appends one record envelope as a JSON line.
func (s *FileSink) Emit(ctx context.Context, record models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.encoder.Encode(NewEnvelope(record)); err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.RecordID(), err)
	}
	return nil
}

// Close flushes buffered lines and closes the file when owned.
func (s *FileSink) Close() error {
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush sink: %w", err)
	}
	if s.ownsFile {
		return s.file.Close()
	}
	return nil
}

var _ Sink = (*FileSink)(nil)
