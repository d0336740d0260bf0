package engine

import "time"

// NewState builds the initial session state: the candidate pool is
// snapshotted and the deck gets its first shuffle immediately.
func NewState(candidates []Candidate, rules Rules) State {
	if rules.FaceUpLimit <= 0 {
		rules.FaceUpLimit = 2
	}
	if rules.Settle <= 0 {
		rules.Settle = 1500 * time.Millisecond
	}
	pool := make(map[string]Candidate, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		pool[c.ID] = c
		ids = append(ids, c.ID)
	}
	return State{
		Status:    StatusConfigured,
		Rules:     rules,
		Pool:      pool,
		Remaining: Shuffle(ids),
		Assigned:  []Assignment{},
		Step:      Step{Phase: PhaseNotConfigured},
	}
}

// clone deep-copies the mutable parts of a state so Apply can build the next
// state without aliasing the caller's slices and maps.
func clone(s State) State {
	next := s
	next.Remaining = append([]string(nil), s.Remaining...)
	next.Assigned = append([]Assignment(nil), s.Assigned...)
	next.Pool = make(map[string]Candidate, len(s.Pool))
	for k, v := range s.Pool {
		next.Pool[k] = v
	}
	return next
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
