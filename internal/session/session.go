// Package session runs one draw session as an actor: a single goroutine owns
// the engine state, so admin commands are totally ordered and viewers only
// ever observe committed states. This is the single-writer discipline — the
// persisted version column backs it up as an optimistic token against a
// second server instance driving the same session.
package session

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylive/draw-backend/internal/engine"
	"github.com/fairwaylive/draw-backend/internal/store"
	"github.com/fairwaylive/draw-backend/pkg/types"
)

type Msg interface{ isSessionMsg() }

// FromAdmin carries one control-surface command. Reply always receives
// exactly one Result.
type FromAdmin struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromAdmin) isSessionMsg() {}

type Result struct {
	Snapshot Snapshot
	Err      error
}

// Join registers a viewer outbox and immediately sends the current snapshot.
type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type GetView struct {
	Reply chan Snapshot
}

func (GetView) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// settleFired is the internal settle-window expiry. Gen guards against a
// stale timer firing after the step it belonged to was reset or undone.
type settleFired struct{ gen int }

func (settleFired) isSessionMsg() {}

// Snapshot is one committed, redacted state. Everything broadcast or
// returned leaves through this type, so redaction cannot be bypassed.
type Snapshot struct {
	Version int
	View    types.SessionView
}

type Session struct {
	id           string
	tournamentID string

	inbox    chan Msg
	state    engine.State
	version  int
	auditSeq int
	timerGen int
	clients  map[string]chan Snapshot

	st  store.Store
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New spawns the actor for an already-persisted session row.
func New(parent context.Context, id, tournamentID string, initial engine.State, version int, st store.Store, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:           id,
		tournamentID: tournamentID,
		inbox:        make(chan Msg, 64),
		state:        initial,
		version:      version,
		clients:      make(map[string]chan Snapshot),
		st:           st,
		log:          log.With(zap.String("session_id", id)),
		ctx:          ctx,
		cancel:       cancel,
	}
	// Continue the audit sequence where the persisted trail left off, so a
	// resumed session never repeats Seq values. Fresh sessions read an empty
	// trail and start at 1.
	seedCtx, seedCancel := context.WithTimeout(ctx, 5*time.Second)
	if trail, err := st.AuditBySession(seedCtx, id); err == nil && len(trail) > 0 {
		s.auditSeq = trail[len(trail)-1].Seq
	} else if err != nil {
		s.log.Warn("audit seq seed failed", zap.Error(err))
	}
	seedCancel()
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromAdmin:
				snap, err := s.apply(msg.Cmd)
				msg.Reply <- Result{Snapshot: snap, Err: err}

			case GetView:
				msg.Reply <- s.snapshot()

			case settleFired:
				if msg.gen != s.timerGen {
					break // stale fire from a superseded step
				}
				if _, err := s.apply(engine.Command{Type: engine.CmdSettleReveal, At: time.Now()}); err != nil {
					s.log.Warn("settle reveal failed", zap.Error(err))
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// apply runs one command end to end: engine transition, durable CAS write,
// record side effects, audit append, broadcast. In-memory state only moves
// when the store write landed.
func (s *Session) apply(cmd engine.Command) (Snapshot, error) {
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		return s.snapshot(), err
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	row, err := s.row(next, s.version+1)
	if err != nil {
		return s.snapshot(), err
	}
	if err := s.st.SaveSession(ctx, row, s.version); err != nil {
		return s.snapshot(), err
	}

	for _, evt := range events {
		s.recordEffect(ctx, evt)
		s.auditSeq++
		if err := s.st.AppendAudit(ctx, &store.AuditEvent{
			SessionID:   s.id,
			Seq:         s.auditSeq,
			Type:        string(evt.Type),
			CandidateID: evt.CandidateID,
			GroupNo:     evt.GroupNo,
			Position:    evt.Position,
			At:          evt.At,
		}); err != nil {
			s.log.Warn("audit append failed", zap.Error(err))
		}
	}

	s.state = next
	s.version++
	s.timerGen++

	if engine.ContainsEvent(events, engine.EvtWinnerLocked) {
		s.armSettleTimer()
	}

	snap := s.snapshot()
	s.broadcast(snap)
	return snap, nil
}

func (s *Session) recordEffect(ctx context.Context, evt engine.Event) {
	var err error
	switch evt.Type {
	case engine.EvtAssignConfirmed:
		err = s.st.InsertAssignment(ctx, &store.AssignmentRecord{
			SessionID:   s.id,
			CandidateID: evt.CandidateID,
			Nickname:    s.state.Pool[evt.CandidateID].Nickname,
			GroupNo:     evt.GroupNo,
			Position:    evt.Position,
			ConfirmedAt: evt.At,
		})
	case engine.EvtAssignUndone:
		err = s.st.DeleteLastAssignment(ctx, s.id)
	case engine.EvtSessionReset:
		// Working records go; the audit trail written above stays.
		err = s.st.ClearAssignments(ctx, s.id)
	}
	if err != nil {
		s.log.Warn("record effect failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}

func (s *Session) armSettleTimer() {
	gen := s.timerGen
	settle := s.state.Rules.Settle
	time.AfterFunc(settle, func() {
		select {
		case s.inbox <- settleFired{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) row(state engine.State, version int) (*store.SessionRow, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return &store.SessionRow{
		ID:           s.id,
		TournamentID: s.tournamentID,
		Status:       string(state.Status),
		Terminal:     engine.Terminal(state),
		Version:      version,
		StateJSON:    blob,
	}, nil
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, View: BuildView(s.id, s.tournamentID, s.state, s.version)}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Slow viewer: drop it, the websocket layer reconnects.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}
