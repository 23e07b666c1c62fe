package cascade

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// testTree builds a worksheet structure with three processes: two carrying
// work elements and one left without failure analysis.
func testTree() models.StructureTree {
	return models.StructureTree{
		WorksheetID: "WS-1",
		Product:     models.StructureNode{ID: "prod", Kind: models.NodeKindProduct, Name: "Gearbox", Order: 1},
		Processes: []models.ProcessSubtree{
			{
				Node: models.StructureNode{ID: "p1", Kind: models.NodeKindProcess, Name: "Machining", Order: 1, ParentID: strPtr("prod")},
				WorkElements: []models.StructureNode{
					{ID: "w1", Kind: models.NodeKindWorkElement, Name: "Lathe", Order: 1, ParentID: strPtr("p1")},
					{ID: "w2", Kind: models.NodeKindWorkElement, Name: "Operator", Order: 2, ParentID: strPtr("p1")},
				},
			},
			{
				Node: models.StructureNode{ID: "p2", Kind: models.NodeKindProcess, Name: "Assembly", Order: 2, ParentID: strPtr("prod")},
				WorkElements: []models.StructureNode{
					{ID: "w3", Kind: models.NodeKindWorkElement, Name: "Press", Order: 1, ParentID: strPtr("p2")},
				},
			},
			{
				Node: models.StructureNode{ID: "p3", Kind: models.NodeKindProcess, Name: "Packaging", Order: 3, ParentID: strPtr("prod")},
			},
		},
	}
}

func placedMode(id, text, processID string) models.FailureMode {
	return models.FailureMode{ID: id, Text: text, ProcessID: strPtr(processID)}
}

func TestFlatten_EmptyProcessEmitsPlaceholder(t *testing.T) {
	tree := testTree()
	rows, unplaced := Flatten(tree, nil, AssignOrdinals(nil))

	assert.Zero(t, unplaced)
	require.Len(t, rows, 3) // one placeholder per process
	for _, r := range rows {
		assert.Equal(t, RowKindPlaceholder, r.Kind)
		assert.True(t, r.Mode.Show)
		assert.Empty(t, r.Mode.ID)
		assert.True(t, r.Effect.Show)
		assert.Empty(t, r.Effect.Text)
	}
	assert.GreaterOrEqual(t, len(rows), len(tree.Processes))
}

func TestFlatten_StructuralSpans(t *testing.T) {
	tree := testTree()
	mode := placedMode("m1", "undersized bore", "p1")
	cause := models.FailureCause{ID: "c1", Text: "tool wear", Occurrence: intPtr(3), WorkElementID: strPtr("w1")}
	links := []ResolvedLink{
		link("l1", mode, &testEffect1, &cause, 1),
		link("l2", mode, &testEffect2, nil, 2),
	}
	groups, _ := GroupByMode(links)
	rows, _ := Flatten(tree, groups, AssignOrdinals(links))

	// m1 occupies two rows under p1, then placeholders for p2 and p3
	require.Len(t, rows, 4)

	// product spans every row, shown only on the first
	assert.True(t, rows[0].Product.Show)
	assert.Equal(t, 4, rows[0].Product.RowSpan)
	assert.Equal(t, "Gearbox", rows[0].Product.Text)
	for _, r := range rows[1:] {
		assert.False(t, r.Product.Show)
	}

	// process cell spans exactly the rows its groups produced
	assert.True(t, rows[0].Process.Show)
	assert.Equal(t, 2, rows[0].Process.RowSpan)
	assert.Equal(t, "Machining", rows[0].Process.Text)
	assert.False(t, rows[1].Process.Show)
	assert.Equal(t, 1, rows[2].Process.RowSpan)
	assert.Equal(t, "Assembly", rows[2].Process.Text)
	assert.Equal(t, "Packaging", rows[3].Process.Text)

	// mode cell spans the whole group with its ordinal code
	assert.Equal(t, 2, rows[0].Mode.RowSpan)
	assert.Equal(t, "M1", rows[0].Mode.Code)
	assert.False(t, rows[1].Mode.Show)
}

func TestFlatten_WorkElementMirrorsCause(t *testing.T) {
	tree := testTree()
	mode := placedMode("m1", "seized shaft", "p1")
	cause := models.FailureCause{ID: "c1", Text: "no lubricant", WorkElementID: strPtr("w2")}
	links := []ResolvedLink{
		link("l1", mode, &testEffect1, &cause, 1),
		link("l2", mode, &testEffect2, nil, 2),
	}
	groups, _ := GroupByMode(links)
	rows, _ := Flatten(tree, groups, AssignOrdinals(links))

	// one cause stretched over two effect rows: the work element cell
	// stretches with it
	assert.True(t, rows[0].Cause.Show)
	assert.Equal(t, 2, rows[0].Cause.RowSpan)
	assert.True(t, rows[0].WorkElement.Show)
	assert.Equal(t, 2, rows[0].WorkElement.RowSpan)
	assert.Equal(t, "Operator", rows[0].WorkElement.Text)

	// no new cause cell on row 1, so no work element claim either
	assert.False(t, rows[1].Cause.Show)
	assert.False(t, rows[1].WorkElement.Show)
}

func TestFlatten_SeverityAndOccurrenceOnOwningRows(t *testing.T) {
	tree := testTree()
	mode := placedMode("m1", "leak", "p2")
	cause := models.FailureCause{ID: "c1", Text: "bad seal", Occurrence: intPtr(4), WorkElementID: strPtr("w3")}
	links := []ResolvedLink{link("l1", mode, &testEffect1, &cause, 1)}
	groups, _ := GroupByMode(links)
	rows, _ := Flatten(tree, groups, AssignOrdinals(links))

	var failure Row
	for _, r := range rows {
		if r.Kind == RowKindFailure {
			failure = r
			break
		}
	}
	require.NotNil(t, failure.Severity)
	assert.Equal(t, testEffect1.Severity, *failure.Severity)
	require.NotNil(t, failure.Occurrence)
	assert.Equal(t, 4, *failure.Occurrence)
}

func TestFlatten_UnplacedModesTrailingSection(t *testing.T) {
	tree := testTree()
	floating := models.FailureMode{ID: "m9", Text: "wrong part"} // no process
	ghost := placedMode("m8", "mislabel", "p-gone")              // process deleted
	links := []ResolvedLink{
		link("l1", floating, &testEffect1, nil, 1),
		link("l2", ghost, nil, &testCause1, 2),
	}
	groups, _ := GroupByMode(links)
	rows, unplaced := Flatten(tree, groups, AssignOrdinals(links))

	assert.Equal(t, 2, unplaced)
	require.Len(t, rows, 5) // 3 placeholders + 2 unplaced rows

	tail := rows[3:]
	for _, r := range tail {
		assert.True(t, r.Unplaced)
		assert.Empty(t, r.Process.Text)
	}
	// product still spans every row including the trailing section
	assert.Equal(t, 5, rows[0].Product.RowSpan)
}

func TestFlatten_RiskPayloadCarriedByLinkOrder(t *testing.T) {
	tree := testTree()
	mode := placedMode("m1", "crack", "p1")
	l1 := link("l1", mode, &testEffect1, nil, 1)
	l1.Risk = &models.RiskAssessment{LinkID: "l1", Severity: intPtr(9)}
	l2 := link("l2", mode, &testEffect2, nil, 2)
	l2.Optimization = &models.OptimizationAction{LinkID: "l2", Description: "add probe"}

	groups, _ := GroupByMode([]ResolvedLink{l1, l2})
	rows, _ := Flatten(tree, groups, AssignOrdinals([]ResolvedLink{l1, l2}))

	require.NotNil(t, rows[0].Risk)
	assert.Nil(t, rows[0].Optimization)
	require.NotNil(t, rows[1].Optimization)
	assert.Nil(t, rows[1].Risk)
}

func TestFlatten_Idempotent(t *testing.T) {
	tree := testTree()
	mode := placedMode("m1", "burr", "p1")
	links := []ResolvedLink{
		link("l1", mode, &testEffect1, &testCause1, 1),
		link("l2", mode, &testEffect2, &testCause2, 2),
		link("l3", placedMode("m2", "dent", "p2"), &testEffect1, nil, 3),
	}
	groups, _ := GroupByMode(links)
	codes := AssignOrdinals(links)

	first, _ := Flatten(tree, groups, codes)
	second, _ := Flatten(tree, groups, codes)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("flatten is not idempotent (-first +second):\n%s", diff)
	}
}

func TestFlatten_ProcessOrderIsExplicit(t *testing.T) {
	tree := testTree()
	// scramble authoring order; node_order must win
	tree.Processes[0], tree.Processes[2] = tree.Processes[2], tree.Processes[0]

	rows, _ := Flatten(tree, nil, AssignOrdinals(nil))
	require.Len(t, rows, 3)
	assert.Equal(t, "Machining", rows[0].Process.Text)
	assert.Equal(t, "Assembly", rows[1].Process.Text)
	assert.Equal(t, "Packaging", rows[2].Process.Text)
}
