package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// link builds a resolved link fixture; empty effect/cause ids mean absent.
func link(id string, mode models.FailureMode, effect *models.FailureEffect, cause *models.FailureCause, order int) ResolvedLink {
	l := ResolvedLink{LinkID: id, Order: order, Mode: mode}
	if effect != nil {
		l.Effect = effect
		l.EffectRef = strPtr(effect.ID)
	}
	if cause != nil {
		l.Cause = cause
		l.CauseRef = strPtr(cause.ID)
	}
	return l
}

var (
	testModeA = models.FailureMode{ID: "m-a", Text: "mode a"}
	testModeB = models.FailureMode{ID: "m-b", Text: "mode b"}

	testEffect1 = models.FailureEffect{ID: "e-1", Text: "effect 1", Severity: 7}
	testEffect2 = models.FailureEffect{ID: "e-2", Text: "effect 2", Severity: 4}

	testCause1 = models.FailureCause{ID: "c-1", Text: "cause 1"}
	testCause2 = models.FailureCause{ID: "c-2", Text: "cause 2"}
)

func TestAssignOrdinals_FirstAppearanceOrder(t *testing.T) {
	links := []ResolvedLink{
		link("l1", testModeB, &testEffect2, nil, 1),
		link("l2", testModeA, &testEffect1, &testCause1, 2),
		link("l3", testModeB, nil, &testCause2, 3),
	}
	codes := AssignOrdinals(links)

	assert.Equal(t, "M1", codes.ModeCode("m-b"))
	assert.Equal(t, "M2", codes.ModeCode("m-a"))
	assert.Equal(t, "S1", codes.EffectCode("e-2"))
	assert.Equal(t, "S2", codes.EffectCode("e-1"))
	assert.Equal(t, "C1", codes.CauseCode("c-1"))
	assert.Equal(t, "C2", codes.CauseCode("c-2"))
}

func TestAssignOrdinals_DuplicatesDoNotAdvanceCounters(t *testing.T) {
	links := []ResolvedLink{
		link("l1", testModeA, &testEffect1, nil, 1),
		link("l2", testModeA, &testEffect1, &testCause1, 2),
		link("l3", testModeA, &testEffect2, &testCause1, 3),
	}
	codes := AssignOrdinals(links)

	require.Len(t, codes.Modes, 1)
	require.Len(t, codes.Effects, 2)
	require.Len(t, codes.Causes, 1)
	assert.Equal(t, "S2", codes.EffectCode("e-2"))
}

func TestAssignOrdinals_Uniqueness(t *testing.T) {
	links := []ResolvedLink{
		link("l1", testModeA, &testEffect1, &testCause1, 1),
		link("l2", testModeB, &testEffect2, &testCause2, 2),
	}
	codes := AssignOrdinals(links)

	seen := make(map[string]bool)
	for _, m := range []map[string]string{codes.Effects, codes.Modes, codes.Causes} {
		perKind := make(map[string]bool)
		for _, code := range m {
			assert.False(t, perKind[code], "duplicate code %s", code)
			perKind[code] = true
			seen[code] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestAssignOrdinals_Idempotent(t *testing.T) {
	links := []ResolvedLink{
		link("l1", testModeA, &testEffect1, &testCause1, 1),
		link("l2", testModeB, nil, &testCause2, 2),
	}
	first := AssignOrdinals(links)
	second := AssignOrdinals(links)
	assert.Equal(t, first, second)
}

func TestAssignOrdinals_SkipsMeaninglessLinks(t *testing.T) {
	ghost := models.FailureMode{ID: "m-ghost", Text: "only on a malformed link"}
	links := []ResolvedLink{
		{LinkID: "l1", Order: 1, Mode: ghost}, // no refs on either side
		link("l2", testModeA, &testEffect1, nil, 2),
	}
	codes := AssignOrdinals(links)

	assert.Empty(t, codes.ModeCode("m-ghost"))
	assert.Equal(t, "M1", codes.ModeCode("m-a"))
}
