package engine

// groupFill returns confirmed occupancy per group number.
func groupFill(s State) map[int]int {
	fill := make(map[int]int, s.Rules.GroupCount)
	for _, a := range s.Assigned {
		fill[a.GroupNo]++
	}
	return fill
}

// nextTarget picks the group and position the next step assigns into.
//
// Round-robin cycles to the next group that still has an open slot, starting
// after the current target. Targeted stays on the requested (or current)
// group until it fills, then fails over to the lowest-numbered open group.
func nextTarget(s State, requested int) (group, position int, err error) {
	fill := groupFill(s)
	open := func(g int) bool { return fill[g] < s.Rules.GroupSize }

	switch s.Rules.Mode {
	case ModeTargeted:
		g := requested
		if g == 0 {
			g = s.TargetGroup
		}
		if g == 0 {
			g = 1
		}
		if !open(g) {
			g = 0
			for i := 1; i <= s.Rules.GroupCount; i++ {
				if open(i) {
					g = i
					break
				}
			}
			if g == 0 {
				return 0, 0, ErrNoOpenGroup
			}
		}
		return g, fill[g] + 1, nil

	default: // round robin
		start := s.TargetGroup // 0 before the first step, so we begin at group 1
		for i := 1; i <= s.Rules.GroupCount; i++ {
			g := (start+i-1)%s.Rules.GroupCount + 1
			if open(g) {
				return g, fill[g] + 1, nil
			}
		}
		return 0, 0, ErrNoOpenGroup
	}
}
