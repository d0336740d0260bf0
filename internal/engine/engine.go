package engine

import (
	"errors"
	"time"
)

var ErrInvalidPhase = errors.New("invalid phase")
var ErrNoCandidatesRemaining = errors.New("no candidates remaining")
var ErrAlreadyConfirmed = errors.New("already confirmed")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrSettleNotElapsed = errors.New("settle window not elapsed")
var ErrNoOpenGroup = errors.New("no open group")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConfigured Status = "configured"
	StatusPicking    Status = "picking"
	StatusLocked     Status = "locked"
	StatusConfirmed  Status = "confirmed"
	StatusReset      Status = "reset"
)

type Phase string

const (
	PhaseNotConfigured Phase = "not_configured"
	PhaseConfigured    Phase = "configured"
	PhasePicking       Phase = "picking"
	PhaseLocked        Phase = "locked_pending_reveal"
	PhaseRevealed      Phase = "revealed"
	PhaseConfirmed     Phase = "confirmed"
)

type Mode string

const (
	ModeRoundRobin Mode = "round_robin"
	ModeTargeted   Mode = "targeted"
)

// Candidate is one eligible registrant, snapshotted at session start.
// Changes to the underlying registration after that point don't reach the deck.
type Candidate struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type Rules struct {
	Mode        Mode          `json:"mode"`
	GroupCount  int           `json:"group_count"`
	GroupSize   int           `json:"group_size"`
	Settle      time.Duration `json:"settle"`
	FaceUpLimit int           `json:"face_up_limit"`
}

// Step is the in-progress pick cycle. WinnerID is populated the moment the
// pick locks, but it must never leave the server before PhaseRevealed —
// snapshot redaction keys off Phase, not off the field being empty.
type Step struct {
	ActiveID  string        `json:"active_id,omitempty"`
	WinnerID  string        `json:"winner_id,omitempty"`
	GroupNo   int           `json:"group_no"`
	Position  int           `json:"position"`
	Phase     Phase         `json:"phase"`
	SpinFor   time.Duration `json:"spin_for"`
	LockedAt  time.Time     `json:"locked_at"`
	StartedAt time.Time     `json:"started_at"`
}

type Assignment struct {
	CandidateID string    `json:"candidate_id"`
	GroupNo     int       `json:"group_no"`
	Position    int       `json:"position"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// State is the complete draw state for one session. Invariants held by Apply:
// Remaining and the assigned candidate ids are disjoint, their union is the
// pool snapshot, and no candidate is ever assigned twice.
type State struct {
	Status      Status               `json:"status"`
	Rules       Rules                `json:"rules"`
	Pool        map[string]Candidate `json:"pool"`
	Remaining   []string             `json:"remaining"`
	Assigned    []Assignment         `json:"assigned"`
	Step        Step                 `json:"step"`
	TargetGroup int                  `json:"target_group"` // 0 = none yet
}

type CommandType string

const (
	CmdStartStep     CommandType = "StartStep"
	CmdPickResult    CommandType = "PickResult"
	CmdSettleReveal  CommandType = "SettleReveal"
	CmdAssignConfirm CommandType = "AssignConfirm"
	CmdReshuffle     CommandType = "Reshuffle"
	CmdReset         CommandType = "Reset"
	CmdUndo          CommandType = "Undo"
)

type Command struct {
	Type        CommandType
	TargetGroup int           // StartStep in targeted mode; 0 = keep current
	SpinFor     time.Duration // StartStep animation hint, relayed to viewers
	At          time.Time     // wall clock supplied by the caller
}

type EventType string

const (
	EvtStepStarted      EventType = "StepStarted"
	EvtWinnerLocked     EventType = "WinnerLocked"
	EvtWinnerRevealed   EventType = "WinnerRevealed"
	EvtAssignConfirmed  EventType = "AssignConfirmed"
	EvtDeckReshuffled   EventType = "DeckReshuffled"
	EvtSessionReset     EventType = "SessionReset"
	EvtAssignUndone     EventType = "AssignUndone"
	EvtSessionCompleted EventType = "SessionCompleted"
)

type Event struct {
	Type        EventType
	CandidateID string
	GroupNo     int
	Position    int
	At          time.Time
}

// Apply runs one command against the state and returns the emitted events plus
// the next state. State is treated as a value: the caller's copy is never
// mutated, and on error the original state comes back unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {

	case CmdStartStep:
		if s.Step.Phase != PhaseNotConfigured && s.Step.Phase != PhaseConfirmed {
			return nil, s, ErrInvalidPhase
		}
		if len(s.Remaining) == 0 {
			return nil, s, ErrNoCandidatesRemaining
		}
		group, pos, err := nextTarget(s, cmd.TargetGroup)
		if err != nil {
			return nil, s, err
		}
		next := clone(s)
		next.TargetGroup = group
		next.Step = Step{
			ActiveID:  next.Remaining[0],
			GroupNo:   group,
			Position:  pos,
			Phase:     PhaseConfigured,
			SpinFor:   cmd.SpinFor,
			StartedAt: cmd.At,
		}
		next.Status = StatusPicking
		// No CandidateID here either: the active candidate is the future winner,
		// and audit rows are viewer-readable.
		return []Event{{Type: EvtStepStarted, GroupNo: group, Position: pos, At: cmd.At}}, next, nil

	case CmdPickResult:
		if s.Step.Phase != PhaseConfigured {
			return nil, s, ErrInvalidPhase
		}
		next := clone(s)
		next.Step.WinnerID = next.Step.ActiveID
		next.Step.Phase = PhaseLocked
		next.Step.LockedAt = cmd.At
		next.Status = StatusLocked
		// No CandidateID on the event: audit rows are viewer-readable and the
		// winner stays hidden until reveal.
		return []Event{{Type: EvtWinnerLocked, GroupNo: next.Step.GroupNo, Position: next.Step.Position, At: cmd.At}}, next, nil

	case CmdSettleReveal:
		if s.Step.Phase != PhaseLocked {
			return nil, s, ErrInvalidPhase
		}
		if cmd.At.Sub(s.Step.LockedAt) < s.Rules.Settle {
			return nil, s, ErrSettleNotElapsed
		}
		next := clone(s)
		next.Step.Phase = PhaseRevealed
		return []Event{{Type: EvtWinnerRevealed, CandidateID: next.Step.WinnerID, GroupNo: next.Step.GroupNo, Position: next.Step.Position, At: cmd.At}}, next, nil

	case CmdAssignConfirm:
		if s.Step.Phase == PhaseConfirmed {
			return nil, s, ErrAlreadyConfirmed
		}
		if s.Step.Phase != PhaseRevealed {
			return nil, s, ErrInvalidPhase
		}
		next := clone(s)
		winner := next.Step.WinnerID
		next.Remaining = remove(next.Remaining, winner)
		a := Assignment{
			CandidateID: winner,
			GroupNo:     next.Step.GroupNo,
			Position:    next.Step.Position,
			ConfirmedAt: cmd.At,
		}
		next.Assigned = append(next.Assigned, a)
		next.Step.Phase = PhaseConfirmed
		next.Step.ActiveID = ""
		next.Status = StatusConfirmed
		events := []Event{{Type: EvtAssignConfirmed, CandidateID: winner, GroupNo: a.GroupNo, Position: a.Position, At: cmd.At}}
		if len(next.Remaining) == 0 {
			events = append(events, Event{Type: EvtSessionCompleted, At: cmd.At})
		}
		return events, next, nil

	case CmdReshuffle:
		// Once a winner is locked the deck order is part of the committed
		// result; reshuffling then would break the hidden-result invariant.
		if s.Step.Phase != PhaseNotConfigured && s.Step.Phase != PhaseConfigured && s.Step.Phase != PhaseConfirmed {
			return nil, s, ErrInvalidPhase
		}
		next := clone(s)
		next.Remaining = Shuffle(next.Remaining)
		if next.Step.Phase == PhaseConfigured {
			// The old active pointer is meaningless under the new order.
			next.Step.ActiveID = next.Remaining[0]
		}
		return []Event{{Type: EvtDeckReshuffled, At: cmd.At}}, next, nil

	case CmdReset:
		next := clone(s)
		next.Status = StatusReset
		next.Remaining = nil
		next.Assigned = nil
		next.Pool = map[string]Candidate{}
		next.Step = Step{Phase: PhaseNotConfigured}
		next.TargetGroup = 0
		return []Event{{Type: EvtSessionReset, At: cmd.At}}, next, nil

	case CmdUndo:
		// Undo reverses the last confirm, never an in-flight pick: while a
		// subsequent step is configured, locked, or revealed, it is refused.
		if s.Step.Phase != PhaseNotConfigured && s.Step.Phase != PhaseConfirmed {
			return nil, s, ErrInvalidPhase
		}
		if len(s.Assigned) == 0 {
			return nil, s, ErrNothingToUndo
		}
		next := clone(s)
		last := next.Assigned[len(next.Assigned)-1]
		next.Assigned = next.Assigned[:len(next.Assigned)-1]
		// Re-admit at a random position so the next pick isn't forced to land
		// on the undone candidate.
		next.Remaining = insertRandom(next.Remaining, last.CandidateID)
		next.Step = Step{Phase: PhaseNotConfigured}
		next.TargetGroup = 0
		next.Status = StatusConfigured
		return []Event{{Type: EvtAssignUndone, CandidateID: last.CandidateID, GroupNo: last.GroupNo, Position: last.Position, At: cmd.At}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Terminal reports whether no further steps are possible for this session:
// either it was fully reset, or every candidate has been confirmed into a slot.
// A terminal session no longer counts against the one-active-session-per-
// tournament rule; a fresh session may be started alongside it.
func Terminal(s State) bool {
	if s.Status == StatusReset {
		return true
	}
	return len(s.Pool) > 0 && len(s.Remaining) == 0 && s.Step.Phase == PhaseConfirmed
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
