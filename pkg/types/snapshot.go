package types

import "time"

// CandidateView is a single deck entry as viewers may see it. Nickname is
// populated only while the candidate is face-up; everyone else is anonymous.
type CandidateView struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname,omitempty"`
	FaceUp   bool   `json:"face_up"`
}

// AssignmentView is one confirmed placement. Confirmed assignments are
// public record, so the nickname is always present here.
type AssignmentView struct {
	CandidateID string    `json:"candidate_id"`
	Nickname    string    `json:"nickname"`
	GroupNo     int       `json:"group_no"`
	Position    int       `json:"position"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// DeckSummary gives viewers enough to render progress without identities.
type DeckSummary struct {
	Remaining int         `json:"remaining"`
	Assigned  int         `json:"assigned"`
	GroupFill map[int]int `json:"group_fill"`
}

// SessionView is the full read-surface payload. The same shape serves the
// admin console and both public viewer form factors; form-factor trimming is
// a presentation concern, identity hiding is not.
type SessionView struct {
	Active bool `json:"active"` // false = "no active draw"

	SessionID    string `json:"session_id,omitempty"`
	TournamentID string `json:"tournament_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Mode         string `json:"mode,omitempty"`
	TargetGroup  int    `json:"target_group,omitempty"`
	Version      int    `json:"version,omitempty"`

	// SpinMs is the animation duration the admin requested for the current
	// step; every viewer animates against the same value.
	SpinMs int `json:"spin_ms,omitempty"`

	ActiveCandidateID string `json:"active_candidate_id,omitempty"`
	// WinnerCandidateID is empty until the settle window has elapsed and the
	// phase is revealed or confirmed.
	WinnerCandidateID string `json:"winner_candidate_id,omitempty"`
	WinnerNickname    string `json:"winner_nickname,omitempty"`

	Deck        DeckSummary      `json:"deck"`
	Candidates  []CandidateView  `json:"candidates,omitempty"`
	Assignments []AssignmentView `json:"assignments,omitempty"`
}
