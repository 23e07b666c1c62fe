package models

import (
	"time"
)

// FailureEffect represents a failure effect ("symptom", coded S#).
// RequirementID back-references the requirement the effect violates.
type FailureEffect struct {
	ID            string  `json:"id" db:"id"`
	WorksheetID   string  `json:"worksheet_id" db:"worksheet_id"`
	Text          string  `json:"text" db:"text"`
	Severity      int     `json:"severity" db:"severity"`
	RequirementID *string `json:"requirement_id,omitempty" db:"requirement_id"`
}

// FailureMode represents a failure mode (coded M#). ProcessID back-references
// the process the mode occurs in; nil means the mode is structurally unplaced.
type FailureMode struct {
	ID          string  `json:"id" db:"id"`
	WorksheetID string  `json:"worksheet_id" db:"worksheet_id"`
	Text        string  `json:"text" db:"text"`
	ProcessID   *string `json:"process_id,omitempty" db:"process_id"`
}

// FailureCause represents a failure cause (coded C#). WorkElementID
// back-references the work element the cause originates from.
type FailureCause struct {
	ID            string  `json:"id" db:"id"`
	WorksheetID   string  `json:"worksheet_id" db:"worksheet_id"`
	Text          string  `json:"text" db:"text"`
	Occurrence    *int    `json:"occurrence,omitempty" db:"occurrence"`
	WorkElementID *string `json:"work_element_id,omitempty" db:"work_element_id"`
}

// FailureLink is the join record of the failure network: exactly one mode,
// zero-or-one effect, zero-or-one cause. Multiple links sharing a mode id
// express one-to-many fan-out in either direction.
type FailureLink struct {
	ID          string    `json:"id" db:"id"`
	WorksheetID string    `json:"worksheet_id" db:"worksheet_id"`
	ModeID      string    `json:"mode_id" db:"mode_id"`
	EffectID    *string   `json:"effect_id" db:"effect_id"`
	CauseID     *string   `json:"cause_id" db:"cause_id"`
	Order       int       `json:"order" db:"link_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Meaningless reports whether the link connects its mode to nothing at all.
// Such links are rejected at the authoring boundary and dropped defensively
// by the read path.
func (l FailureLink) Meaningless() bool {
	return l.EffectID == nil && l.CauseID == nil
}

// RiskAssessment attaches 1:1 to a failure link. The numeric fields are
// authored elsewhere and carried through the flattening untouched.
type RiskAssessment struct {
	LinkID         string  `json:"link_id" db:"link_id"`
	Severity       *int    `json:"severity,omitempty" db:"severity"`
	Occurrence     *int    `json:"occurrence,omitempty" db:"occurrence"`
	Detection      *int    `json:"detection,omitempty" db:"detection"`
	ActionPriority *string `json:"action_priority,omitempty" db:"action_priority"`
	Notes          *string `json:"notes,omitempty" db:"notes"`
}

// OptimizationAction attaches 1:1 to a failure link, opaque to the engine.
type OptimizationAction struct {
	LinkID      string     `json:"link_id" db:"link_id"`
	Description string     `json:"description" db:"description"`
	Responsible *string    `json:"responsible,omitempty" db:"responsible"`
	TargetDate  *time.Time `json:"target_date,omitempty" db:"target_date"`
	Status      *string    `json:"status,omitempty" db:"status"`
}

// FailureNetwork is the atomic read snapshot of one worksheet's failure
// analysis: the raw entities plus the link set, exactly as persisted.
// Risks and Optimizations are keyed by link id.
type FailureNetwork struct {
	Effects       []FailureEffect               `json:"effects"`
	Modes         []FailureMode                 `json:"modes"`
	Causes        []FailureCause                `json:"causes"`
	Links         []FailureLink                 `json:"links"`
	Risks         map[string]RiskAssessment     `json:"risks,omitempty"`
	Optimizations map[string]OptimizationAction `json:"optimizations,omitempty"`
}
