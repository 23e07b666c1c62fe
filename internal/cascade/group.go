package cascade

// GroupByMode folds the link slice into one ModeGroup per distinct mode,
// order-preserving by first appearance of each mode id. An effect or cause
// joins a group's list only the first time its id is seen for that mode;
// later links referencing the same pair are absorbed without creating a
// duplicate row source. Meaningless links are dropped and counted in the
// second return value.
func GroupByMode(links []ResolvedLink) ([]ModeGroup, int) {
	var order []string
	index := make(map[string]int)
	seenEffect := make(map[string]map[string]bool)
	seenCause := make(map[string]map[string]bool)
	groups := make(map[string]*ModeGroup)
	dropped := 0

	for _, l := range links {
		if l.meaningless() {
			dropped++
			continue
		}
		g, ok := groups[l.Mode.ID]
		if !ok {
			g = &ModeGroup{Mode: l.Mode}
			groups[l.Mode.ID] = g
			index[l.Mode.ID] = len(order)
			order = append(order, l.Mode.ID)
			seenEffect[l.Mode.ID] = make(map[string]bool)
			seenCause[l.Mode.ID] = make(map[string]bool)
		}
		g.Links = append(g.Links, l)
		if l.Effect != nil && !seenEffect[l.Mode.ID][l.Effect.ID] {
			seenEffect[l.Mode.ID][l.Effect.ID] = true
			g.Effects = append(g.Effects, *l.Effect)
		}
		if l.Cause != nil && !seenCause[l.Mode.ID][l.Cause.ID] {
			seenCause[l.Mode.ID][l.Cause.ID] = true
			g.Causes = append(g.Causes, *l.Cause)
		}
	}

	out := make([]ModeGroup, len(order))
	for _, id := range order {
		out[index[id]] = *groups[id]
	}
	return out, dropped
}
