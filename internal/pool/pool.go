// Package pool supplies the eligible-candidate snapshot a draw session is
// seeded with. The registration subsystem owns the data; this package only
// reads it.
package pool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwaylive/draw-backend/internal/engine"
)

// Source yields the candidates eligible for a tournament's draw at the
// moment of the call. Sessions copy the result, so later registration
// changes never reach a running draw.
type Source interface {
	Eligible(ctx context.Context, tournamentID string) ([]engine.Candidate, error)
}

// Registration mirrors the row shape the registration subsystem writes.
// Only approved registrations enter a draw.
type Registration struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	TournamentID string `gorm:"index"`
	Nickname     string
	Status       string `gorm:"index"`
}

// DB reads eligible candidates from the shared registrations table.
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB { return &DB{db: db} }

func (s *DB) Eligible(ctx context.Context, tournamentID string) ([]engine.Candidate, error) {
	var regs []Registration
	err := s.db.WithContext(ctx).
		Where("tournament_id = ? AND status = ?", tournamentID, "approved").
		Order("id ASC").
		Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("eligible registrations: %w", err)
	}
	out := make([]engine.Candidate, 0, len(regs))
	for _, r := range regs {
		out = append(out, engine.Candidate{ID: r.ID, Nickname: r.Nickname})
	}
	return out, nil
}

// Static serves a fixed candidate list, used in tests and local runs.
type Static struct {
	Candidates map[string][]engine.Candidate // keyed by tournament id
}

func (s *Static) Eligible(ctx context.Context, tournamentID string) ([]engine.Candidate, error) {
	return append([]engine.Candidate(nil), s.Candidates[tournamentID]...), nil
}

// Demo fabricates a pool of Size candidates for any tournament id, so the
// in-memory server can run draws without a registration database behind it.
type Demo struct {
	Size int
}

func (d *Demo) Eligible(ctx context.Context, tournamentID string) ([]engine.Candidate, error) {
	out := make([]engine.Candidate, 0, d.Size)
	for i := 0; i < d.Size; i++ {
		out = append(out, engine.Candidate{
			ID:       uuid.NewString(),
			Nickname: fmt.Sprintf("Player %02d", i+1),
		})
	}
	return out, nil
}
