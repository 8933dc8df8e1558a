package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"go.uber.org/zap"
)

// RESTSink POSTs each record envelope to an ingest endpoint.
type RESTSink struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRESTSink builds a sink targeting the given ingest URL.
func NewRESTSink(url string, logger *zap.Logger) (*RESTSink, error) {
	if url == "" {
		return nil, fmt.Errorf("rest sink requires a url")
	}
	return &RESTSink{
		url:    url,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Emit POSTs one record envelope. A non-2xx response is an error for this
// record only.
func (s *RESTSink) Emit(ctx context.Context, record models.Record) error {
	body, err := json.Marshal(NewEnvelope(record))
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.RecordID(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request for record %s: %w", record.RecordID(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver record %s: %w", record.RecordID(), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("record %s rejected with status %d", record.RecordID(), resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the REST sink holds no buffered state.
func (s *RESTSink) Close() error { return nil }

var _ Sink = (*RESTSink)(nil)
