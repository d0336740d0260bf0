package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fairwaylive/draw-backend/internal/engine"
	"github.com/fairwaylive/draw-backend/internal/export"
	"github.com/fairwaylive/draw-backend/internal/hub"
	"github.com/fairwaylive/draw-backend/internal/session"
	"github.com/fairwaylive/draw-backend/internal/store"
	"github.com/fairwaylive/draw-backend/pkg/types"
)

var validate = validator.New()

// CreateSession is the session_start action: snapshot the pool, shuffle,
// persist, and return the initial state view.
func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, "invalid json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, err.Error())
			return
		}

		reply := make(chan hub.CreateReply, 1)
		h.Inbox() <- hub.CreateSession{
			TournamentID: req.TournamentID,
			Rules: engine.Rules{
				Mode:       engine.Mode(req.Mode),
				GroupCount: req.GroupCount,
				GroupSize:  req.GroupSize,
			},
			Reply: reply,
		}
		res := <-reply
		if res.Err != nil {
			writeActionError(w, res.Err)
			return
		}

		view := make(chan session.Snapshot, 1)
		res.Session.Inbox() <- session.GetView{Reply: view}
		writeJSON(w, http.StatusCreated, (<-view).View)
	}
}

// DispatchAction validates and applies one admin command against a session.
// Failures come back typed; nothing is retried here.
func DispatchAction(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := lookup(h, chi.URLParam(r, "sessionID"))
		if sess == nil {
			writeError(w, http.StatusNotFound, types.CodeNotFound, "session not found")
			return
		}

		var req types.ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, "invalid json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, err.Error())
			return
		}

		cmd, ok := toCommand(req)
		if !ok {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, fmt.Sprintf("unknown action %q", req.Action))
			return
		}

		reply := make(chan session.Result, 1)
		sess.Inbox() <- session.FromAdmin{Cmd: cmd, Reply: reply}
		res := <-reply
		if res.Err != nil {
			log.Info("action rejected",
				zap.String("session_id", sess.ID()),
				zap.String("action", req.Action),
				zap.Error(res.Err))
			writeActionError(w, res.Err)
			return
		}
		writeJSON(w, http.StatusOK, res.Snapshot.View)
	}
}

// GetSession serves the redacted state for one session id.
func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := lookup(h, chi.URLParam(r, "sessionID"))
		if sess == nil {
			writeError(w, http.StatusNotFound, types.CodeNotFound, "session not found")
			return
		}
		reply := make(chan session.Snapshot, 1)
		sess.Inbox() <- session.GetView{Reply: reply}
		writeJSON(w, http.StatusOK, (<-reply).View)
	}
}

// GetTournamentDraw is the viewer polling endpoint. An absent session is a
// normal "no active draw" payload, never an error.
func GetTournamentDraw(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetByTournament{TournamentID: chi.URLParam(r, "tournamentID"), Reply: reply}
		sess := <-reply
		if sess == nil {
			writeJSON(w, http.StatusOK, types.SessionView{Active: false})
			return
		}
		view := make(chan session.Snapshot, 1)
		sess.Inbox() <- session.GetView{Reply: view}
		writeJSON(w, http.StatusOK, (<-view).View)
	}
}

// ExportAssignments streams the confirmed assignments workbook.
func ExportAssignments(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		recs, err := st.AssignmentsBySession(r.Context(), sessionID)
		if err != nil {
			log.Error("export read failed", zap.String("session_id", sessionID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, types.CodeInternal, "export failed")
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="assignments.xlsx"`)
		if err := export.WriteAssignments(w, recs); err != nil {
			log.Error("export write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// GetAudit serves a session's audit trail in applied order. The trail
// survives reset, so it stays readable after the session itself reads as
// inactive.
func GetAudit(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		events, err := st.AuditBySession(r.Context(), sessionID)
		if err != nil {
			log.Error("audit read failed", zap.String("session_id", sessionID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, types.CodeInternal, "audit read failed")
			return
		}
		out := make([]types.AuditEntry, 0, len(events))
		for _, evt := range events {
			out = append(out, types.AuditEntry{
				Seq:         evt.Seq,
				Type:        evt.Type,
				CandidateID: evt.CandidateID,
				GroupNo:     evt.GroupNo,
				Position:    evt.Position,
				At:          evt.At.UTC().Format(time.RFC3339Nano),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func lookup(h *hub.Hub, id string) *session.Session {
	if id == "" {
		return nil
	}
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{ID: id, Reply: reply}
	return <-reply
}

func toCommand(req types.ActionRequest) (engine.Command, bool) {
	now := time.Now()
	switch req.Action {
	case "start_step":
		return engine.Command{
			Type:        engine.CmdStartStep,
			TargetGroup: req.TargetGroup,
			SpinFor:     time.Duration(req.DurationMs) * time.Millisecond,
			At:          now,
		}, true
	case "pick_result":
		return engine.Command{Type: engine.CmdPickResult, At: now}, true
	case "assign_confirm":
		return engine.Command{Type: engine.CmdAssignConfirm, At: now}, true
	case "reshuffle":
		return engine.Command{Type: engine.CmdReshuffle, At: now}, true
	case "reset":
		return engine.Command{Type: engine.CmdReset, At: now}, true
	case "undo":
		return engine.Command{Type: engine.CmdUndo, At: now}, true
	default:
		return engine.Command{}, false
	}
}

func writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, types.CodeNotFound, err.Error())
	case errors.Is(err, engine.ErrNoCandidatesRemaining):
		writeError(w, http.StatusConflict, types.CodeNoCandidatesRemaining, err.Error())
	case errors.Is(err, engine.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, types.CodeAlreadyConfirmed, err.Error())
	case errors.Is(err, engine.ErrNothingToUndo):
		writeError(w, http.StatusConflict, types.CodeNothingToUndo, err.Error())
	case errors.Is(err, engine.ErrInvalidPhase),
		errors.Is(err, engine.ErrNoOpenGroup),
		errors.Is(err, engine.ErrSettleNotElapsed),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrSessionActive):
		writeError(w, http.StatusConflict, types.CodeInvalidPhase, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, types.CodeInternal, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code types.ErrorCode, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: code})
}
