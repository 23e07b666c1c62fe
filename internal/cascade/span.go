package cascade

// SpanRow is the per-row merge metadata for one row of a ModeGroup, before
// structural columns are attached. An index of -1 means the row renders an
// empty placeholder cell rather than a real entity.
type SpanRow struct {
	ShowMode    bool
	ModeRowSpan int

	EffectIndex   int
	ShowEffect    bool
	EffectRowSpan int

	CauseIndex   int
	ShowCause    bool
	CauseRowSpan int
}

// ComputeSpans derives the merge layout for a group with effectCount effects
// and causeCount causes. The group occupies max(effectCount, causeCount, 1)
// rows; the mode cell spans them all. Whichever side has fewer items has its
// final item's cell stretched down to absorb the rows contributed by the
// longer side (the tail merge), so no row is left with a structural gap in
// the shorter column. A side with zero items renders an independent empty
// placeholder on every row instead: there is nothing to stretch.
func ComputeSpans(effectCount, causeCount int) []SpanRow {
	total := effectCount
	if causeCount > total {
		total = causeCount
	}
	if total < 1 {
		total = 1
	}

	rows := make([]SpanRow, total)
	for i := range rows {
		r := &rows[i]
		if i == 0 {
			r.ShowMode = true
			r.ModeRowSpan = total
		}
		r.EffectIndex, r.ShowEffect, r.EffectRowSpan = sideSpan(i, effectCount, total)
		r.CauseIndex, r.ShowCause, r.CauseRowSpan = sideSpan(i, causeCount, total)
	}
	return rows
}

// sideSpan computes one column's cell ownership for row i.
func sideSpan(i, count, total int) (index int, show bool, span int) {
	switch {
	case count == 0:
		// empty placeholder on every row, no merge
		return -1, true, 1
	case i < count-1:
		return i, true, 1
	case i == count-1:
		// last real item absorbs the tail contributed by the longer side
		return i, true, total - count + 1
	default:
		return -1, false, 0
	}
}
