// Package hub owns the running session actors. One hub per process; sessions
// are keyed by id and by tournament so the one-active-session-per-tournament
// rule is enforced at creation time, backed by the same check in the store.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fairwaylive/draw-backend/internal/engine"
	"github.com/fairwaylive/draw-backend/internal/pool"
	"github.com/fairwaylive/draw-backend/internal/session"
	"github.com/fairwaylive/draw-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

// CreateSession starts a draw for a tournament: snapshot the eligible pool,
// shuffle, persist, spawn the actor. Fails with store.ErrSessionActive if a
// non-terminal session already exists for the tournament.
type CreateSession struct {
	TournamentID string
	Rules        engine.Rules
	Reply        chan CreateReply
}

type CreateReply struct {
	Session *session.Session
	Err     error
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type GetByTournament struct {
	TournamentID string
	Reply        chan *session.Session
}

type RemoveSession struct{ ID string }

type ShutdownHub struct{}

func (CreateSession) isHubMsg()   {}
func (GetSession) isHubMsg()      {}
func (GetByTournament) isHubMsg() {}
func (RemoveSession) isHubMsg()   {}
func (ShutdownHub) isHubMsg()     {}

// Defaults are the server-side knobs merged into every new session's rules.
// The settle window and face-up bound are deployment policy, not something
// the admin request chooses per session.
type Defaults struct {
	Settle      time.Duration
	FaceUpLimit int
}

type Hub struct {
	inbox        chan HubMsg
	byID         map[string]*session.Session
	byTournament map[string]*session.Session

	st       store.Store
	src      pool.Source
	defaults Defaults
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, src pool.Source, defaults Defaults, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:        make(chan HubMsg, 64),
		byID:         make(map[string]*session.Session),
		byTournament: make(map[string]*session.Session),
		st:           st,
		src:          src,
		defaults:     defaults,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				sess, err := h.create(msg.TournamentID, msg.Rules)
				msg.Reply <- CreateReply{Session: sess, Err: err}

			case GetSession:
				sess := h.byID[msg.ID]
				if sess == nil {
					sess = h.resume(msg.ID)
				}
				msg.Reply <- sess // may be nil

			case GetByTournament:
				sess := h.byTournament[msg.TournamentID]
				if sess == nil {
					sess = h.resumeByTournament(msg.TournamentID)
				}
				msg.Reply <- sess

			case RemoveSession:
				if sess := h.byID[msg.ID]; sess != nil {
					sess.Inbox() <- session.Shutdown{}
					delete(h.byID, msg.ID)
					for tid, s := range h.byTournament {
						if s == sess {
							delete(h.byTournament, tid)
						}
					}
				}

			case ShutdownHub:
				for _, sess := range h.byID {
					sess.Inbox() <- session.Shutdown{}
				}
				clear(h.byID)
				clear(h.byTournament)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(tournamentID string, rules engine.Rules) (*session.Session, error) {
	if existing := h.byTournament[tournamentID]; existing != nil {
		reply := make(chan session.Snapshot, 1)
		existing.Inbox() <- session.GetView{Reply: reply}
		select {
		case snap := <-reply:
			if !terminalView(snap) {
				return nil, store.ErrSessionActive
			}
		case <-time.After(2 * time.Second):
			return nil, fmt.Errorf("session %s unresponsive", existing.ID())
		}
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	candidates, err := h.src.Eligible(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("eligible pool: %w", err)
	}
	if len(candidates) == 0 {
		return nil, engine.ErrNoCandidatesRemaining
	}

	if rules.Settle <= 0 {
		rules.Settle = h.defaults.Settle
	}
	if rules.FaceUpLimit <= 0 {
		rules.FaceUpLimit = h.defaults.FaceUpLimit
	}
	state := engine.NewState(candidates, rules)
	id := uuid.NewString()
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	row := &store.SessionRow{
		ID:           id,
		TournamentID: tournamentID,
		Status:       string(state.Status),
		Version:      0,
		StateJSON:    blob,
	}
	if err := h.st.CreateSession(ctx, row); err != nil {
		return nil, err
	}

	sess := session.New(h.ctx, id, tournamentID, state, 0, h.st, h.log)
	h.byID[id] = sess
	h.byTournament[tournamentID] = sess
	h.log.Info("draw session created",
		zap.String("session_id", id),
		zap.String("tournament_id", tournamentID),
		zap.Int("pool_size", len(candidates)))
	return sess, nil
}

// resume rebuilds an actor from its persisted row, so a restarted server
// picks up mid-draw sessions where they left off.
func (h *Hub) resume(id string) *session.Session {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	row, err := h.st.SessionByID(ctx, id)
	if err != nil {
		return nil
	}
	return h.resumeRow(row)
}

// resumeByTournament is the viewer-path fallback: after a restart the
// in-memory maps are empty, but a non-terminal row may still exist for the
// tournament.
func (h *Hub) resumeByTournament(tournamentID string) *session.Session {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	row, err := h.st.ActiveSessionByTournament(ctx, tournamentID)
	if err != nil {
		return nil
	}
	return h.resumeRow(row)
}

func (h *Hub) resumeRow(row *store.SessionRow) *session.Session {
	var state engine.State
	if err := json.Unmarshal(row.StateJSON, &state); err != nil {
		h.log.Error("corrupt session state", zap.String("session_id", row.ID), zap.Error(err))
		return nil
	}
	sess := session.New(h.ctx, row.ID, row.TournamentID, state, row.Version, h.st, h.log)
	h.byID[row.ID] = sess
	if !row.Terminal {
		h.byTournament[row.TournamentID] = sess
	}
	h.log.Info("draw session resumed", zap.String("session_id", row.ID), zap.Int("version", row.Version))
	return sess
}

func terminalView(snap session.Snapshot) bool {
	if !snap.View.Active {
		return true
	}
	return snap.View.Status == string(engine.StatusConfirmed) && snap.View.Deck.Remaining == 0 && snap.View.Deck.Assigned > 0
}
