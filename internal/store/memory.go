package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used in tests and when no DATABASE_URL is
// configured. Same contract as the Postgres store, including the CAS.
type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]*SessionRow
	assignments map[string][]AssignmentRecord
	audit       map[string][]AuditEvent
	nextID      uint
}

func NewMemory() *Memory {
	return &Memory{
		sessions:    make(map[string]*SessionRow),
		assignments: make(map[string][]AssignmentRecord),
		audit:       make(map[string][]AuditEvent),
	}
}

func (m *Memory) CreateSession(ctx context.Context, row *SessionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TournamentID == row.TournamentID && !s.Terminal {
			return ErrSessionActive
		}
	}
	now := time.Now()
	cp := *row
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.sessions[row.ID] = &cp
	return nil
}

func (m *Memory) SaveSession(ctx context.Context, row *SessionRow, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[row.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	cp := *row
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now()
	m.sessions[row.ID] = &cp
	return nil
}

func (m *Memory) SessionByID(ctx context.Context, id string) (*SessionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ActiveSessionByTournament(ctx context.Context, tournamentID string) (*SessionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.TournamentID == tournamentID && !s.Terminal {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertAssignment(ctx context.Context, rec *AssignmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *rec
	cp.ID = m.nextID
	m.assignments[rec.SessionID] = append(m.assignments[rec.SessionID], cp)
	return nil
}

func (m *Memory) DeleteLastAssignment(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.assignments[sessionID]
	if len(recs) == 0 {
		return ErrNotFound
	}
	m.assignments[sessionID] = recs[:len(recs)-1]
	return nil
}

func (m *Memory) ClearAssignments(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments, sessionID)
	return nil
}

func (m *Memory) AssignmentsBySession(ctx context.Context, sessionID string) ([]AssignmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AssignmentRecord(nil), m.assignments[sessionID]...), nil
}

func (m *Memory) AppendAudit(ctx context.Context, evt *AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *evt
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	m.audit[evt.SessionID] = append(m.audit[evt.SessionID], cp)
	return nil
}

func (m *Memory) AuditBySession(ctx context.Context, sessionID string) ([]AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AuditEvent(nil), m.audit[sessionID]...), nil
}
