package engine

import (
	"errors"
	"testing"
	"time"
)

func testCandidates(n int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Candidate{ID: string(rune('a' + i%26)) + string(rune('0'+i/26)), Nickname: "player"})
	}
	return out
}

func testRules() Rules {
	return Rules{Mode: ModeRoundRobin, GroupCount: 10, GroupSize: 4, Settle: 10 * time.Millisecond, FaceUpLimit: 2}
}

// runs one full step: start -> pick -> settle -> confirm
func confirmOne(t *testing.T, s State, at time.Time) State {
	t.Helper()
	_, s, err := Apply(s, Command{Type: CmdStartStep, At: at})
	if err != nil {
		t.Fatalf("start_step: %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdPickResult, At: at})
	if err != nil {
		t.Fatalf("pick_result: %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdSettleReveal, At: at.Add(s.Rules.Settle)})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdAssignConfirm, At: at.Add(s.Rules.Settle)})
	if err != nil {
		t.Fatalf("assign_confirm: %v", err)
	}
	return s
}

func TestPhaseGuards(t *testing.T) {
	now := time.Now()
	base := NewState(testCandidates(8), testRules())

	cases := []struct {
		name    string
		phase   Phase
		cmd     CommandType
		wantErr error
	}{
		{"pick before start", PhaseNotConfigured, CmdPickResult, ErrInvalidPhase},
		{"confirm before reveal", PhaseConfigured, CmdAssignConfirm, ErrInvalidPhase},
		{"confirm while locked", PhaseLocked, CmdAssignConfirm, ErrInvalidPhase},
		{"settle without lock", PhaseConfigured, CmdSettleReveal, ErrInvalidPhase},
		{"start mid lock", PhaseLocked, CmdStartStep, ErrInvalidPhase},
		{"reshuffle while locked", PhaseLocked, CmdReshuffle, ErrInvalidPhase},
		{"reshuffle after reveal", PhaseRevealed, CmdReshuffle, ErrInvalidPhase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := clone(base)
			s.Step.Phase = tc.phase
			if tc.phase == PhaseLocked || tc.phase == PhaseRevealed {
				s.Step.WinnerID = s.Remaining[0]
				s.Step.LockedAt = now
			}
			_, _, err := Apply(s, Command{Type: tc.cmd, At: now})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartStep_PointsAtFrontOfDeck(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())

	events, next, err := Apply(s, Command{Type: CmdStartStep, At: now})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Step.Phase != PhaseConfigured {
		t.Fatalf("want phase configured, got %s", next.Step.Phase)
	}
	if next.Step.ActiveID != next.Remaining[0] {
		t.Fatalf("active pointer should be deck front: active=%s front=%s", next.Step.ActiveID, next.Remaining[0])
	}
	if !ContainsEvent(events, EvtStepStarted) {
		t.Fatalf("expected EvtStepStarted")
	}
}

func TestPickResult_WinnerHiddenUntilSettle(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())
	_, s, _ = Apply(s, Command{Type: CmdStartStep, At: now})

	events, s, err := Apply(s, Command{Type: CmdPickResult, At: now})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Step.Phase != PhaseLocked {
		t.Fatalf("want locked_pending_reveal, got %s", s.Step.Phase)
	}
	// The lock event must not carry the winner identity.
	for _, e := range events {
		if e.Type == EvtWinnerLocked && e.CandidateID != "" {
			t.Fatalf("WinnerLocked event leaks candidate %q", e.CandidateID)
		}
	}

	// Settle before the window elapses is refused.
	_, _, err = Apply(s, Command{Type: CmdSettleReveal, At: now.Add(s.Rules.Settle / 2)})
	if !errors.Is(err, ErrSettleNotElapsed) {
		t.Fatalf("want ErrSettleNotElapsed, got %v", err)
	}

	// After the window the winner is revealed and equals the locked pick.
	events, next, err := Apply(s, Command{Type: CmdSettleReveal, At: now.Add(s.Rules.Settle)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Step.Phase != PhaseRevealed {
		t.Fatalf("want revealed, got %s", next.Step.Phase)
	}
	if !ContainsEvent(events, EvtWinnerRevealed) {
		t.Fatalf("expected EvtWinnerRevealed")
	}
	if next.Step.WinnerID != s.Step.WinnerID {
		t.Fatalf("winner changed across reveal")
	}
}

func TestConfirm_IsIdempotent(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())
	s = confirmOne(t, s, now)

	if len(s.Assigned) != 1 {
		t.Fatalf("want 1 assignment, got %d", len(s.Assigned))
	}

	_, next, err := Apply(s, Command{Type: CmdAssignConfirm, At: now})
	if !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("want ErrAlreadyConfirmed, got %v", err)
	}
	if len(next.Assigned) != 1 {
		t.Fatalf("double confirm wrote a second record")
	}
}

func TestDeckInvariant_HeldAcrossFullDraw(t *testing.T) {
	now := time.Now()
	rules := testRules()
	s := NewState(testCandidates(40), rules)

	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		s = confirmOne(t, s, now.Add(time.Duration(i)*time.Second))

		if got := len(s.Remaining) + len(s.Assigned); got != 40 {
			t.Fatalf("step %d: remaining+assigned = %d, want 40", i, got)
		}
		inRemaining := map[string]bool{}
		for _, id := range s.Remaining {
			inRemaining[id] = true
		}
		for _, a := range s.Assigned {
			if inRemaining[a.CandidateID] {
				t.Fatalf("step %d: candidate %s in both sets", i, a.CandidateID)
			}
		}
	}

	if len(s.Remaining) != 0 || len(s.Assigned) != 40 {
		t.Fatalf("after full draw: remaining=%d assigned=%d", len(s.Remaining), len(s.Assigned))
	}
	for _, a := range s.Assigned {
		if seen[a.CandidateID] {
			t.Fatalf("candidate %s assigned twice", a.CandidateID)
		}
		seen[a.CandidateID] = true
	}
	if !Terminal(s) {
		t.Fatalf("expected terminal session after full draw")
	}

	// 40 candidates into 10 groups of 4: every group exactly full.
	fill := groupFill(s)
	for g := 1; g <= 10; g++ {
		if fill[g] != 4 {
			t.Fatalf("group %d has %d members, want 4", g, fill[g])
		}
	}
}

func TestRoundRobin_CyclesGroups(t *testing.T) {
	now := time.Now()
	rules := testRules()
	rules.GroupCount = 3
	rules.GroupSize = 2
	s := NewState(testCandidates(6), rules)

	var order []int
	for i := 0; i < 6; i++ {
		s = confirmOne(t, s, now)
		order = append(order, s.Assigned[len(s.Assigned)-1].GroupNo)
	}
	want := []int{1, 2, 3, 1, 2, 3}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("round robin order %v, want %v", order, want)
		}
	}
}

func TestTargeted_FillsGroupThenFailsOver(t *testing.T) {
	now := time.Now()
	rules := testRules()
	rules.Mode = ModeTargeted
	rules.GroupCount = 3
	rules.GroupSize = 2
	s := NewState(testCandidates(4), rules)

	// Two confirms into group 2, then the group is full and the next step
	// fails over to the lowest open group.
	for i := 0; i < 2; i++ {
		_, next, err := Apply(s, Command{Type: CmdStartStep, TargetGroup: 2, At: now})
		if err != nil {
			t.Fatalf("start_step: %v", err)
		}
		if next.Step.GroupNo != 2 {
			t.Fatalf("want group 2, got %d", next.Step.GroupNo)
		}
		_, next, _ = Apply(next, Command{Type: CmdPickResult, At: now})
		_, next, _ = Apply(next, Command{Type: CmdSettleReveal, At: now.Add(rules.Settle)})
		_, next, err = Apply(next, Command{Type: CmdAssignConfirm, At: now})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		s = next
	}

	_, next, err := Apply(s, Command{Type: CmdStartStep, TargetGroup: 2, At: now})
	if err != nil {
		t.Fatalf("start_step after full group: %v", err)
	}
	if next.Step.GroupNo != 1 {
		t.Fatalf("expected failover to group 1, got %d", next.Step.GroupNo)
	}
}

func TestStartStep_ExhaustedDeck(t *testing.T) {
	now := time.Now()
	rules := testRules()
	rules.GroupCount = 1
	rules.GroupSize = 1
	s := NewState(testCandidates(1), rules)
	s = confirmOne(t, s, now)

	_, _, err := Apply(s, Command{Type: CmdStartStep, At: now})
	if !errors.Is(err, ErrNoCandidatesRemaining) {
		t.Fatalf("want ErrNoCandidatesRemaining, got %v", err)
	}
}

func TestUndo_ReadmitsCandidate(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())
	s = confirmOne(t, s, now)
	undone := s.Assigned[0].CandidateID

	events, s, err := Apply(s, Command{Type: CmdUndo, At: now})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !ContainsEvent(events, EvtAssignUndone) {
		t.Fatalf("expected EvtAssignUndone")
	}
	if len(s.Assigned) != 0 {
		t.Fatalf("assignment not removed")
	}
	found := false
	for _, id := range s.Remaining {
		if id == undone {
			found = true
		}
	}
	if !found {
		t.Fatalf("undone candidate %s not back in deck", undone)
	}
	if len(s.Remaining) != 8 {
		t.Fatalf("deck size %d after undo, want 8", len(s.Remaining))
	}

	// A fresh cycle may draw the same candidate again.
	s = confirmOne(t, s, now)
	if len(s.Assigned) != 1 {
		t.Fatalf("re-draw after undo failed")
	}
}

func TestUndo_NothingToUndo(t *testing.T) {
	s := NewState(testCandidates(4), testRules())
	_, _, err := Apply(s, Command{Type: CmdUndo, At: time.Now()})
	if !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("want ErrNothingToUndo, got %v", err)
	}
}

func TestUndo_RefusedWhileNextStepInFlight(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())
	s = confirmOne(t, s, now)

	// A subsequent step is underway; undoing the earlier confirm would
	// silently discard the in-flight pick.
	_, s, err := Apply(s, Command{Type: CmdStartStep, At: now})
	if err != nil {
		t.Fatalf("start_step: %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdUndo, At: now}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("undo during configured step: want ErrInvalidPhase, got %v", err)
	}

	_, s, err = Apply(s, Command{Type: CmdPickResult, At: now})
	if err != nil {
		t.Fatalf("pick_result: %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdUndo, At: now}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("undo while locked: want ErrInvalidPhase, got %v", err)
	}

	_, s, err = Apply(s, Command{Type: CmdSettleReveal, At: s.Step.LockedAt.Add(s.Rules.Settle)})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdUndo, At: now}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("undo while revealed: want ErrInvalidPhase, got %v", err)
	}
}

func TestReset_AlwaysSucceeds(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(8), testRules())
	_, s, _ = Apply(s, Command{Type: CmdStartStep, At: now})
	_, s, _ = Apply(s, Command{Type: CmdPickResult, At: now})

	events, s, err := Apply(s, Command{Type: CmdReset, At: now})
	if err != nil {
		t.Fatalf("reset mid-pick: %v", err)
	}
	if !ContainsEvent(events, EvtSessionReset) {
		t.Fatalf("expected EvtSessionReset")
	}
	if len(s.Remaining) != 0 || len(s.Assigned) != 0 {
		t.Fatalf("reset left working state behind")
	}
	if !Terminal(s) {
		t.Fatalf("reset session should be terminal")
	}
}

func TestReshuffle_RepointsActive(t *testing.T) {
	now := time.Now()
	s := NewState(testCandidates(30), testRules())
	_, s, _ = Apply(s, Command{Type: CmdStartStep, At: now})

	_, next, err := Apply(s, Command{Type: CmdReshuffle, At: now})
	if err != nil {
		t.Fatalf("reshuffle: %v", err)
	}
	if next.Step.ActiveID != next.Remaining[0] {
		t.Fatalf("active pointer not repointed at new deck front")
	}
	if len(next.Remaining) != len(s.Remaining) {
		t.Fatalf("reshuffle changed deck size")
	}
}
