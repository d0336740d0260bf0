// Package types holds the wire contract shared by the admin console and the
// public viewers. Everything here is already redacted: a value that never
// appears in these structs never leaves the server.
package types

// ErrorCode is the machine-readable taxonomy surfaced on the control surface.
type ErrorCode string

const (
	CodeNotFound              ErrorCode = "not_found"
	CodeInvalidPhase          ErrorCode = "invalid_phase"
	CodeNoCandidatesRemaining ErrorCode = "no_candidates_remaining"
	CodeAlreadyConfirmed      ErrorCode = "already_confirmed"
	CodeNothingToUndo         ErrorCode = "nothing_to_undo"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeBadRequest            ErrorCode = "bad_request"
	CodeInternal              ErrorCode = "internal"
)

// CreateSessionRequest starts a new draw session for a tournament.
type CreateSessionRequest struct {
	TournamentID string `json:"tournament_id" validate:"required"`
	Mode         string `json:"mode" validate:"required,oneof=round_robin targeted"`
	GroupCount   int    `json:"group_count" validate:"required,min=1,max=64"`
	GroupSize    int    `json:"group_size" validate:"required,min=1,max=16"`
}

// ActionRequest is one admin command against an existing session.
type ActionRequest struct {
	Action      string `json:"action" validate:"required,oneof=start_step pick_result assign_confirm reshuffle reset undo"`
	TargetGroup int    `json:"target_group,omitempty" validate:"min=0,max=64"`
	// DurationMs is the spin animation length for start_step. It is relayed
	// to viewers untouched; the settle window is server policy and separate.
	DurationMs int `json:"duration_ms,omitempty" validate:"min=0,max=60000"`
}

// ErrorResponse is the typed failure shape of the control surface.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// AuditEntry is one applied action in a session's append-only trail. Entries
// for locked picks carry no candidate id; the reveal entry does.
type AuditEntry struct {
	Seq         int    `json:"seq"`
	Type        string `json:"type"`
	CandidateID string `json:"candidate_id,omitempty"`
	GroupNo     int    `json:"group_no,omitempty"`
	Position    int    `json:"position,omitempty"`
	At          string `json:"at"`
}

// ServerMessage is the websocket frame sent to viewers.
type ServerMessage struct {
	Type    string       `json:"type"` // "snapshot" | "error"
	Version int          `json:"version,omitempty"`
	View    *SessionView `json:"view,omitempty"`
	Error   string       `json:"error,omitempty"`
}
