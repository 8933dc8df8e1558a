package models

import (
	"time"

	"github.com/google/uuid"
)

// HarvestRun is one recorded execution of the harvester, persisted for run
// history when a database is configured.
type HarvestRun struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	RecordsEmitted int                 `json:"recordsEmitted"`
	Warnings       map[string][]string `json:"warnings,omitempty"`
	Failures       map[string][]string `json:"failures,omitempty"`
	Succeeded      bool                `json:"succeeded"`
}
