// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally-ho/internal/model"
)

// SessionFilter defines filtering options for session queries.
type SessionFilter struct {
	Since  *time.Time
	Limit  int
	Offset int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Session operations
	SaveSession(ctx context.Context, record *model.SessionRecord) error
	GetSession(ctx context.Context, id string) (*model.SessionRecord, error)
	GetLatestSession(ctx context.Context) (*model.SessionRecord, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.SessionSummary, error)
	UpdateSessionEntry(ctx context.Context, sessionID string, index int, entry model.MappingEntry) error
	MarkSessionAccepted(ctx context.Context, sessionID string, acceptedAt time.Time) error
	DeleteSession(ctx context.Context, id string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// MappingStats shows the results of a mapping run.
type MappingStats struct {
	Duration    time.Duration
	TotalLabels int
	Mapped      int
	Unmapped    int
	Refined     int
	HighTier    int
	MediumTier  int
	LowTier     int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
