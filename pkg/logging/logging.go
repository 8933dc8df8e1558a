package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide logger. Development environments get
// human-readable console output; everything else logs structured JSON.
func New(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case "local", "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
