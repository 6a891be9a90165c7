// Package corrections records user-submitted translation fixes for offline
// review. Records are only ever appended.
package corrections

import (
	"context"
	"time"
)

// Record is one user-submitted correction.
type Record struct {
	ID          string    `json:"id"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	Correction  string    `json:"correction"`
	Direction   string    `json:"direction"`
	Timestamp   time.Time `json:"timestamp"`
}

// Mirror receives a copy of every appended record.
type Mirror interface {
	SaveCorrection(ctx context.Context, rec Record) error
}
