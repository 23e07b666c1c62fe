package cascade

import (
	"strconv"
)

// Ordinals maps entity ids to their short display codes: S# for effects,
// M# for modes, C# for causes. Codes are derived from traversal order at
// read time and are never persisted; recomputing over the same link slice
// yields the same codes, which is what lets both storage representations
// agree.
type Ordinals struct {
	Effects map[string]string
	Modes   map[string]string
	Causes  map[string]string
}

// EffectCode returns the code for an effect id, empty if unknown.
func (o Ordinals) EffectCode(id string) string { return o.Effects[id] }

// ModeCode returns the code for a mode id, empty if unknown.
func (o Ordinals) ModeCode(id string) string { return o.Modes[id] }

// CauseCode returns the code for a cause id, empty if unknown.
func (o Ordinals) CauseCode(id string) string { return o.Causes[id] }

// AssignOrdinals labels every entity reachable from the link slice by first
// appearance, iterating links in persisted order. Each kind has its own
// 1-based counter. Meaningless links (no effect, no cause) are skipped so
// that a mode appearing only on dropped links cannot shift the numbering.
func AssignOrdinals(links []ResolvedLink) Ordinals {
	o := Ordinals{
		Effects: make(map[string]string),
		Modes:   make(map[string]string),
		Causes:  make(map[string]string),
	}
	var nextEffect, nextMode, nextCause int
	for _, l := range links {
		if l.meaningless() {
			continue
		}
		if _, seen := o.Modes[l.Mode.ID]; !seen {
			nextMode++
			o.Modes[l.Mode.ID] = "M" + strconv.Itoa(nextMode)
		}
		if l.Effect != nil {
			if _, seen := o.Effects[l.Effect.ID]; !seen {
				nextEffect++
				o.Effects[l.Effect.ID] = "S" + strconv.Itoa(nextEffect)
			}
		}
		if l.Cause != nil {
			if _, seen := o.Causes[l.Cause.ID]; !seen {
				nextCause++
				o.Causes[l.Cause.ID] = "C" + strconv.Itoa(nextCause)
			}
		}
	}
	return o
}
