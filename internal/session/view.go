package session

import (
	"sort"
	"time"

	"github.com/fairwaylive/draw-backend/internal/engine"
	"github.com/fairwaylive/draw-backend/pkg/types"
)

// BuildView converts engine state into the redacted wire view. This is the
// privacy boundary: the winner identity appears only once the phase is
// revealed or confirmed, deck entries are listed in id order (never draw
// order, which would telegraph upcoming picks), and at most
// Rules.FaceUpLimit deck entries carry a nickname at once.
func BuildView(id, tournamentID string, s engine.State, version int) types.SessionView {
	v := types.SessionView{
		Active:       s.Status != engine.StatusReset,
		SessionID:    id,
		TournamentID: tournamentID,
		Status:       string(s.Status),
		Phase:        string(s.Step.Phase),
		Mode:         string(s.Rules.Mode),
		TargetGroup:  s.TargetGroup,
		Version:      version,
		SpinMs:       int(s.Step.SpinFor / time.Millisecond),
	}

	v.ActiveCandidateID = s.Step.ActiveID
	revealed := s.Step.Phase == engine.PhaseRevealed || s.Step.Phase == engine.PhaseConfirmed
	if revealed && s.Step.WinnerID != "" {
		v.WinnerCandidateID = s.Step.WinnerID
		v.WinnerNickname = s.Pool[s.Step.WinnerID].Nickname
	}

	v.Deck = types.DeckSummary{
		Remaining: len(s.Remaining),
		Assigned:  len(s.Assigned),
		GroupFill: make(map[int]int, s.Rules.GroupCount),
	}
	for _, a := range s.Assigned {
		v.Deck.GroupFill[a.GroupNo]++
	}

	faceUp := 0
	ids := append([]string(nil), s.Remaining...)
	sort.Strings(ids)
	for _, cid := range ids {
		cv := types.CandidateView{ID: cid}
		if cid == v.WinnerCandidateID && faceUp < s.Rules.FaceUpLimit {
			cv.FaceUp = true
			cv.Nickname = s.Pool[cid].Nickname
			faceUp++
		}
		v.Candidates = append(v.Candidates, cv)
	}

	for _, a := range s.Assigned {
		v.Assignments = append(v.Assignments, types.AssignmentView{
			CandidateID: a.CandidateID,
			Nickname:    s.Pool[a.CandidateID].Nickname,
			GroupNo:     a.GroupNo,
			Position:    a.Position,
			ConfirmedAt: a.ConfirmedAt,
		})
	}

	return v
}
