package tableau

import (
	"go.uber.org/zap"
)

// Report accumulates the outcome of one harvest run. Failures abort the
// run; warnings and sink errors do not. All failures are surfaced here
// rather than returned from the harvest entrypoint.
type Report struct {
	// RecordsEmitted counts records acknowledged by the sink.
	RecordsEmitted int
	// Warnings and Failures are keyed by a short source tag
	// ("tableau-login", "tableau-metadata", "sink").
	Warnings map[string][]string
	Failures map[string][]string

	logger *zap.Logger
}

// NewReport returns an empty report that also mirrors entries to the logger.
func NewReport(logger *zap.Logger) *Report {
	return &Report{
		Warnings: make(map[string][]string),
		Failures: make(map[string][]string),
		logger:   logger,
	}
}

// RecordEmitted notes one acknowledged record.
func (r *Report) RecordEmitted() {
	r.RecordsEmitted++
}

// Warning notes a non-fatal problem; processing continues.
func (r *Report) Warning(key, reason string) {
	r.Warnings[key] = append(r.Warnings[key], reason)
	r.logger.Warn("Harvest warning", zap.String("key", key), zap.String("reason", reason))
}

// Failure notes a fatal problem for the given source.
func (r *Report) Failure(key, reason string) {
	r.Failures[key] = append(r.Failures[key], reason)
	r.logger.Error("Harvest failure", zap.String("key", key), zap.String("reason", reason))
}

// Failed reports whether any failure was recorded.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}
