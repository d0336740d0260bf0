// Package store persists draw sessions, confirmed assignments, and the
// append-only audit trail. The session row carries a version column used as
// an optimistic concurrency token: every save is a compare-and-swap against
// the version the writer last read.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")
var ErrVersionConflict = errors.New("version conflict")
var ErrSessionActive = errors.New("tournament already has an active session")

// SessionRow is the single durable document per draw session. The engine
// state travels as a JSON blob; Status and Version are broken out as columns
// so the active-session check and the CAS don't need to parse it.
type SessionRow struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	TournamentID string `gorm:"index"`
	Status       string
	Terminal     bool `gorm:"index"`
	Version      int
	StateJSON    []byte `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssignmentRecord is the immutable outcome of one confirmed pick. Exactly
// one row per confirmed candidate; removed only by undo.
type AssignmentRecord struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"index;type:uuid"`
	CandidateID string `gorm:"type:uuid"`
	Nickname    string
	GroupNo     int
	Position    int
	ConfirmedAt time.Time
}

// AuditEvent is one applied action's trace. Append-only: nothing in this
// service updates or deletes audit rows, reset included.
type AuditEvent struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"index;type:uuid"`
	Seq         int
	Type        string
	CandidateID string
	GroupNo     int
	Position    int
	At          time.Time
	CreatedAt   time.Time
}

// Store is the persistence surface the session actors write through.
type Store interface {
	// CreateSession inserts a new session row. Returns ErrSessionActive if
	// the tournament already owns a non-terminal session.
	CreateSession(ctx context.Context, row *SessionRow) error

	// SaveSession CASes the row: the update only lands if the stored version
	// equals expectedVersion, and bumps it to row.Version.
	SaveSession(ctx context.Context, row *SessionRow, expectedVersion int) error

	SessionByID(ctx context.Context, id string) (*SessionRow, error)
	ActiveSessionByTournament(ctx context.Context, tournamentID string) (*SessionRow, error)

	InsertAssignment(ctx context.Context, rec *AssignmentRecord) error
	DeleteLastAssignment(ctx context.Context, sessionID string) error
	ClearAssignments(ctx context.Context, sessionID string) error
	AssignmentsBySession(ctx context.Context, sessionID string) ([]AssignmentRecord, error)

	AppendAudit(ctx context.Context, evt *AuditEvent) error
	AuditBySession(ctx context.Context, sessionID string) ([]AuditEvent, error)
}
