package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres is the production Store, one gorm.DB behind it.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects and migrates the draw tables.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&SessionRow{}, &AssignmentRecord{}, &AuditEvent{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func NewPostgres(db *gorm.DB) *Postgres { return &Postgres{db: db} }

// DB exposes the underlying handle for collaborators that read shared
// tables, like the registration pool source.
func (p *Postgres) DB() *gorm.DB { return p.db }

func (p *Postgres) CreateSession(ctx context.Context, row *SessionRow) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&SessionRow{}).
			Where("tournament_id = ? AND terminal = false", row.TournamentID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check active session: %w", err)
		}
		if count > 0 {
			return ErrSessionActive
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
}

func (p *Postgres) SaveSession(ctx context.Context, row *SessionRow, expectedVersion int) error {
	res := p.db.WithContext(ctx).Model(&SessionRow{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]any{
			"status":     row.Status,
			"terminal":   row.Terminal,
			"version":    row.Version,
			"state_json": row.StateJSON,
		})
	if res.Error != nil {
		return fmt.Errorf("save session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or someone else moved the version.
		var count int64
		if err := p.db.WithContext(ctx).Model(&SessionRow{}).Where("id = ?", row.ID).Count(&count).Error; err == nil && count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (p *Postgres) SessionByID(ctx context.Context, id string) (*SessionRow, error) {
	var row SessionRow
	err := p.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session by id: %w", err)
	}
	return &row, nil
}

func (p *Postgres) ActiveSessionByTournament(ctx context.Context, tournamentID string) (*SessionRow, error) {
	var row SessionRow
	err := p.db.WithContext(ctx).
		Where("tournament_id = ? AND terminal = false", tournamentID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("active session: %w", err)
	}
	return &row, nil
}

func (p *Postgres) InsertAssignment(ctx context.Context, rec *AssignmentRecord) error {
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteLastAssignment(ctx context.Context, sessionID string) error {
	var rec AssignmentRecord
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("last assignment: %w", err)
	}
	if err := p.db.WithContext(ctx).Delete(&rec).Error; err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

func (p *Postgres) ClearAssignments(ctx context.Context, sessionID string) error {
	if err := p.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&AssignmentRecord{}).Error; err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	return nil
}

func (p *Postgres) AssignmentsBySession(ctx context.Context, sessionID string) ([]AssignmentRecord, error) {
	var recs []AssignmentRecord
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	return recs, nil
}

func (p *Postgres) AppendAudit(ctx context.Context, evt *AuditEvent) error {
	if err := p.db.WithContext(ctx).Create(evt).Error; err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (p *Postgres) AuditBySession(ctx context.Context, sessionID string) ([]AuditEvent, error) {
	var evts []AuditEvent
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&evts).Error
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return evts, nil
}
