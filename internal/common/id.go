package common

import (
	"github.com/google/uuid"
)

// NewJobID mints a fresh 128-bit job identifier for the Job
// Orchestrator.
func NewJobID() string {
	return uuid.New().String()
}
