// Package cascade implements the flattening and row-merge engine that turns
// a worksheet's structure tree and failure network into the linearized row
// sequence a grid renderer consumes. Every function in this package is a
// pure transformation over its inputs: no I/O, no shared state, safe to call
// concurrently, and byte-identical output on repeated calls.
package cascade

import (
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// ResolvedLink is one failure link with both sides resolved to entities.
// It is the common intermediate both reconstruction strategies produce:
// Strategy A reads it straight out of the denormalized table, Strategy B
// synthesizes it by joining the atomic entities. A dangling effect or cause
// reference resolves to nil, never to an error.
// EffectRef and CauseRef keep the raw persisted references: a link whose
// reference dangles has a non-nil ref and a nil entity, which distinguishes
// an orphaned side (kept, rendered empty) from a malformed link with no
// references at all (dropped).
type ResolvedLink struct {
	LinkID       string                     `json:"link_id"`
	Order        int                        `json:"order"`
	Mode         models.FailureMode         `json:"mode"`
	EffectRef    *string                    `json:"effect_ref,omitempty"`
	CauseRef     *string                    `json:"cause_ref,omitempty"`
	Effect       *models.FailureEffect      `json:"effect,omitempty"`
	Cause        *models.FailureCause       `json:"cause,omitempty"`
	Risk         *models.RiskAssessment     `json:"risk,omitempty"`
	Optimization *models.OptimizationAction `json:"optimization,omitempty"`
}

// meaningless reports whether the link references nothing on both sides.
func (l ResolvedLink) meaningless() bool {
	return l.EffectRef == nil && l.CauseRef == nil
}

// ModeGroup is the derived per-mode aggregate: the distinct effects and
// causes reachable from one mode via the link set, in first-seen order.
// Links keeps the well-formed links of the mode, also in first-seen order;
// row i of the group carries the payload of Links[i] when it exists.
type ModeGroup struct {
	Mode    models.FailureMode    `json:"mode"`
	Effects []models.FailureEffect `json:"effects"`
	Causes  []models.FailureCause  `json:"causes"`
	Links   []ResolvedLink         `json:"-"`
}
