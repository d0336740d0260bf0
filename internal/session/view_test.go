package session

import (
	"testing"
	"time"

	"github.com/fairwaylive/draw-backend/internal/engine"
)

func lockedState(t *testing.T) engine.State {
	t.Helper()
	s := engine.NewState(testCandidates(6), engine.Rules{
		Mode: engine.ModeRoundRobin, GroupCount: 2, GroupSize: 3,
		Settle: time.Second, FaceUpLimit: 2,
	})
	now := time.Now()
	_, s, err := engine.Apply(s, engine.Command{Type: engine.CmdStartStep, At: now})
	if err != nil {
		t.Fatalf("start_step: %v", err)
	}
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdPickResult, At: now})
	if err != nil {
		t.Fatalf("pick_result: %v", err)
	}
	return s
}

func TestBuildView_HidesWinnerWhileLocked(t *testing.T) {
	s := lockedState(t)
	if s.Step.WinnerID == "" {
		t.Fatalf("engine should hold a winner internally")
	}

	v := BuildView("sess-1", "tour-1", s, 3)
	if v.WinnerCandidateID != "" || v.WinnerNickname != "" {
		t.Fatalf("locked view exposes winner: %+v", v)
	}
	if v.ActiveCandidateID == "" {
		t.Fatalf("active pointer missing from view")
	}
	for _, c := range v.Candidates {
		if c.Nickname != "" || c.FaceUp {
			t.Fatalf("deck entry %s face-up while locked", c.ID)
		}
	}
}

func TestBuildView_RevealsWinnerAfterSettle(t *testing.T) {
	s := lockedState(t)
	_, s, err := engine.Apply(s, engine.Command{Type: engine.CmdSettleReveal, At: s.Step.LockedAt.Add(s.Rules.Settle)})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	v := BuildView("sess-1", "tour-1", s, 4)
	if v.WinnerCandidateID != s.Step.WinnerID {
		t.Fatalf("revealed view missing winner")
	}
	if v.WinnerNickname == "" {
		t.Fatalf("revealed winner has no nickname")
	}

	faceUp := 0
	for _, c := range v.Candidates {
		if c.FaceUp {
			faceUp++
			if c.ID != v.WinnerCandidateID {
				t.Fatalf("non-winner %s face-up", c.ID)
			}
		}
	}
	if faceUp != 1 {
		t.Fatalf("want exactly the winner face-up, got %d", faceUp)
	}
}

func TestBuildView_DeckListedInIDOrderNotDrawOrder(t *testing.T) {
	s := engine.NewState(testCandidates(10), engine.Rules{
		Mode: engine.ModeRoundRobin, GroupCount: 2, GroupSize: 5,
		Settle: time.Second, FaceUpLimit: 2,
	})
	v := BuildView("sess-1", "tour-1", s, 0)

	for i := 1; i < len(v.Candidates); i++ {
		if v.Candidates[i-1].ID > v.Candidates[i].ID {
			t.Fatalf("candidates not sorted by id; deck order would leak upcoming picks")
		}
	}
}

func TestBuildView_ResetReadsAsNoActiveDraw(t *testing.T) {
	s := lockedState(t)
	_, s, err := engine.Apply(s, engine.Command{Type: engine.CmdReset, At: time.Now()})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	v := BuildView("sess-1", "tour-1", s, 5)
	if v.Active {
		t.Fatalf("reset session should read as no active draw")
	}
}
