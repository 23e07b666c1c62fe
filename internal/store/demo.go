package store

import (
	"time"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// SeedDemo loads a small but representative worksheet into the store and
// returns its id: two processes with work elements, a mode with asymmetric
// effect/cause fan-out, a mode with nothing attached yet, an unplaced mode,
// and one process without any failure analysis.
func SeedDemo(m *Memory) string {
	const id = "DEMO-PFMEA-001"
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	product := models.StructureNode{ID: "prod-1", WorksheetID: id, Kind: models.NodeKindProduct, Name: "Shaft Assembly", Order: 1, CreatedAt: now, UpdatedAt: now}
	press := models.StructureNode{ID: "proc-1", WorksheetID: id, Kind: models.NodeKindProcess, Name: "Press Bearing", Order: 1, ParentID: strPtr("prod-1"), CreatedAt: now, UpdatedAt: now}
	weld := models.StructureNode{ID: "proc-2", WorksheetID: id, Kind: models.NodeKindProcess, Name: "Weld Flange", Order: 2, ParentID: strPtr("prod-1"), CreatedAt: now, UpdatedAt: now}
	inspect := models.StructureNode{ID: "proc-3", WorksheetID: id, Kind: models.NodeKindProcess, Name: "Final Inspection", Order: 3, ParentID: strPtr("prod-1"), CreatedAt: now, UpdatedAt: now}

	pressOp := models.StructureNode{ID: "we-1", WorksheetID: id, Kind: models.NodeKindWorkElement, Name: "Press Operator", Order: 1, ParentID: strPtr("proc-1"), CreatedAt: now, UpdatedAt: now}
	pressTool := models.StructureNode{ID: "we-2", WorksheetID: id, Kind: models.NodeKindWorkElement, Name: "Press Tooling", Order: 2, ParentID: strPtr("proc-1"), CreatedAt: now, UpdatedAt: now}
	weldRobot := models.StructureNode{ID: "we-3", WorksheetID: id, Kind: models.NodeKindWorkElement, Name: "Weld Robot", Order: 1, ParentID: strPtr("proc-2"), CreatedAt: now, UpdatedAt: now}

	tree := models.StructureTree{
		WorksheetID: id,
		Product:     product,
		Processes: []models.ProcessSubtree{
			{Node: press, WorkElements: []models.StructureNode{pressOp, pressTool}},
			{Node: weld, WorkElements: []models.StructureNode{weldRobot}},
			{Node: inspect},
		},
	}

	network := models.FailureNetwork{
		Effects: []models.FailureEffect{
			{ID: "fe-1", WorksheetID: id, Text: "Bearing seizes in service", Severity: 9},
			{ID: "fe-2", WorksheetID: id, Text: "Audible noise at speed", Severity: 5},
			{ID: "fe-3", WorksheetID: id, Text: "Flange leaks under pressure", Severity: 8},
		},
		Modes: []models.FailureMode{
			{ID: "fm-1", WorksheetID: id, Text: "Bearing pressed off-axis", ProcessID: strPtr("proc-1")},
			{ID: "fm-2", WorksheetID: id, Text: "Incomplete weld seam", ProcessID: strPtr("proc-2")},
			{ID: "fm-3", WorksheetID: id, Text: "Wrong bearing variant fitted", ProcessID: strPtr("proc-9")},
		},
		Causes: []models.FailureCause{
			{ID: "fc-1", WorksheetID: id, Text: "Press force not calibrated", Occurrence: intPtr(4), WorkElementID: strPtr("we-2")},
			{ID: "fc-2", WorksheetID: id, Text: "Part seated without fixture", Occurrence: intPtr(3), WorkElementID: strPtr("we-1")},
			{ID: "fc-3", WorksheetID: id, Text: "Torch contamination", Occurrence: intPtr(2), WorkElementID: strPtr("we-3")},
		},
		Links: []models.FailureLink{
			{ID: "fl-1", WorksheetID: id, ModeID: "fm-1", EffectID: strPtr("fe-1"), CauseID: strPtr("fc-1"), Order: 1, CreatedAt: now},
			{ID: "fl-2", WorksheetID: id, ModeID: "fm-1", EffectID: strPtr("fe-2"), Order: 2, CreatedAt: now},
			{ID: "fl-3", WorksheetID: id, ModeID: "fm-1", CauseID: strPtr("fc-2"), Order: 3, CreatedAt: now},
			{ID: "fl-4", WorksheetID: id, ModeID: "fm-2", EffectID: strPtr("fe-3"), CauseID: strPtr("fc-3"), Order: 4, CreatedAt: now},
			{ID: "fl-5", WorksheetID: id, ModeID: "fm-3", EffectID: strPtr("fe-1"), Order: 5, CreatedAt: now},
		},
		Risks: map[string]models.RiskAssessment{
			"fl-1": {LinkID: "fl-1", Severity: intPtr(9), Occurrence: intPtr(4), Detection: intPtr(3), ActionPriority: strPtr("H")},
			"fl-4": {LinkID: "fl-4", Severity: intPtr(8), Occurrence: intPtr(2), Detection: intPtr(5), ActionPriority: strPtr("M")},
		},
		Optimizations: map[string]models.OptimizationAction{
			"fl-1": {LinkID: "fl-1", Description: "Add force monitoring to press cycle", Responsible: strPtr("Process Eng"), Status: strPtr("open")},
		},
	}

	m.SeedWorksheet(models.Worksheet{ID: id, Name: "Shaft Assembly PFMEA", CreatedAt: now, UpdatedAt: now}, tree, network)
	return id
}
