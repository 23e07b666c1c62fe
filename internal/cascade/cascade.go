package cascade

// Stats are aggregate counts over the flattened output. Entity counts are
// over distinct ordinal-coded entities, not raw rows, so a mode whose cell
// spans several rows is counted once.
type Stats struct {
	ModeCount            int `json:"modeCount"`
	EffectCount          int `json:"effectCount"`
	CauseCount           int `json:"causeCount"`
	ProcessCount         int `json:"processCount"`
	RowsWithRisk         int `json:"rowsWithRisk"`
	RowsWithOptimization int `json:"rowsWithOptimization"`
	UnplacedModeCount    int `json:"unplacedModeCount"`
	MalformedLinkCount   int `json:"malformedLinkCount"`
}

// Result is the full engine output for one worksheet read.
type Result struct {
	Rows  []Row `json:"rows"`
	Stats Stats `json:"stats"`
}

// Build runs the whole pipeline over a reconstructed snapshot: ordinal
// assignment, grouping, flattening, stats. It is deterministic and
// idempotent; calling it twice on the same snapshot yields identical
// output regardless of which strategy produced the snapshot.
func Build(snap *Snapshot) Result {
	codes := AssignOrdinals(snap.Links)
	groups, malformed := GroupByMode(snap.Links)
	rows, unplacedModes := Flatten(snap.Structure, groups, codes)

	stats := Stats{
		ModeCount:          len(codes.Modes),
		EffectCount:        len(codes.Effects),
		CauseCount:         len(codes.Causes),
		ProcessCount:       len(snap.Structure.Processes),
		UnplacedModeCount:  unplacedModes,
		MalformedLinkCount: malformed,
	}
	for _, r := range rows {
		if r.Risk != nil {
			stats.RowsWithRisk++
		}
		if r.Optimization != nil {
			stats.RowsWithOptimization++
		}
	}
	return Result{Rows: rows, Stats: stats}
}
