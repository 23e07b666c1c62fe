package cascade

import (
	"sort"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// RowKind discriminates the two row shapes the flattener emits.
type RowKind string

const (
	// RowKindFailure is a row produced by a ModeGroup's span layout.
	RowKindFailure RowKind = "failure"
	// RowKindPlaceholder is the single row emitted for a process that has
	// no failure analysis yet, keeping the structural hierarchy visible.
	RowKindPlaceholder RowKind = "placeholder"
)

// Cell is one renderable grid cell with its merge metadata. Show is true
// only on the row that owns the merged cell; a renderer must skip emitting
// a cell when Show is false. An owned cell with empty ID/Text is a real,
// intentionally empty placeholder.
type Cell struct {
	Show    bool   `json:"show"`
	RowSpan int    `json:"row_span"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code,omitempty"`
	Text    string `json:"text,omitempty"`
}

// ownedCell builds a cell that owns its rows.
func ownedCell(span int, id, code, text string) Cell {
	return Cell{Show: true, RowSpan: span, ID: id, Code: code, Text: text}
}

// Row is one flattened output row. Severity belongs to the effect shown on
// the row and Occurrence to the cause; both are nil on rows that do not own
// the respective cell. Risk and Optimization are opaque link payloads.
type Row struct {
	Kind     RowKind `json:"kind"`
	Unplaced bool    `json:"unplaced,omitempty"`

	Product     Cell `json:"product"`
	Process     Cell `json:"process"`
	WorkElement Cell `json:"work_element"`
	Mode        Cell `json:"mode"`
	Effect      Cell `json:"effect"`
	Cause       Cell `json:"cause"`

	Severity   *int `json:"severity,omitempty"`
	Occurrence *int `json:"occurrence,omitempty"`

	Risk         *models.RiskAssessment     `json:"risk,omitempty"`
	Optimization *models.OptimizationAction `json:"optimization,omitempty"`
}

// Flatten walks the structure tree and the mode groups in the fixed
// traversal order and emits the final row sequence with merge metadata:
// Product (spans every row) -> Process by node order -> the process's
// ModeGroups by first appearance in the link list -> the group's span rows
// in index order. Groups whose mode has no resolvable process form an
// unplaced trailing section; the count of such modes is the second return
// value. A process with no groups still emits exactly one placeholder row,
// so len(rows) >= len(tree.Processes).
func Flatten(tree models.StructureTree, groups []ModeGroup, codes Ordinals) ([]Row, int) {
	processes := make([]models.ProcessSubtree, len(tree.Processes))
	copy(processes, tree.Processes)
	sort.SliceStable(processes, func(i, j int) bool {
		if processes[i].Node.Order != processes[j].Node.Order {
			return processes[i].Node.Order < processes[j].Node.Order
		}
		return processes[i].Node.ID < processes[j].Node.ID
	})

	placed := make(map[string][]ModeGroup)
	var unplaced []ModeGroup
	for _, g := range groups {
		if g.Mode.ProcessID != nil {
			if _, ok := tree.Process(*g.Mode.ProcessID); ok {
				placed[*g.Mode.ProcessID] = append(placed[*g.Mode.ProcessID], g)
				continue
			}
		}
		unplaced = append(unplaced, g)
	}

	var rows []Row
	for _, p := range processes {
		start := len(rows)
		pg := placed[p.Node.ID]
		if len(pg) == 0 {
			rows = append(rows, placeholderRow())
		} else {
			for _, g := range pg {
				rows = append(rows, groupRows(tree, g, codes, false)...)
			}
		}
		// the process cell spans exactly the rows its groups produced
		rows[start].Process = ownedCell(len(rows)-start, p.Node.ID, "", p.Node.Name)
	}

	for _, g := range unplaced {
		start := len(rows)
		rows = append(rows, groupRows(tree, g, codes, true)...)
		rows[start].Process = ownedCell(len(rows)-start, "", "", "")
	}

	if len(rows) > 0 {
		rows[0].Product = ownedCell(len(rows), tree.Product.ID, "", tree.Product.Name)
	}
	return rows, len(unplaced)
}

// groupRows expands one ModeGroup into its merged rows.
func groupRows(tree models.StructureTree, g ModeGroup, codes Ordinals, unplaced bool) []Row {
	spans := ComputeSpans(len(g.Effects), len(g.Causes))
	rows := make([]Row, len(spans))
	for i, s := range spans {
		r := Row{Kind: RowKindFailure, Unplaced: unplaced}

		if s.ShowMode {
			r.Mode = ownedCell(s.ModeRowSpan, g.Mode.ID, codes.ModeCode(g.Mode.ID), g.Mode.Text)
		}

		if s.ShowEffect {
			if s.EffectIndex >= 0 {
				e := g.Effects[s.EffectIndex]
				r.Effect = ownedCell(s.EffectRowSpan, e.ID, codes.EffectCode(e.ID), e.Text)
				sev := e.Severity
				r.Severity = &sev
			} else {
				r.Effect = ownedCell(s.EffectRowSpan, "", "", "")
			}
		}

		if s.ShowCause {
			if s.CauseIndex >= 0 {
				c := g.Causes[s.CauseIndex]
				r.Cause = ownedCell(s.CauseRowSpan, c.ID, codes.CauseCode(c.ID), c.Text)
				r.Occurrence = c.Occurrence
				// the work element cell mirrors the cause cell: no cause,
				// no work element claim
				r.WorkElement = ownedCell(s.CauseRowSpan, "", "", "")
				if c.WorkElementID != nil {
					if we, ok := tree.WorkElement(*c.WorkElementID); ok {
						r.WorkElement = ownedCell(s.CauseRowSpan, we.ID, "", we.Name)
					}
				}
			} else {
				r.Cause = ownedCell(s.CauseRowSpan, "", "", "")
				r.WorkElement = ownedCell(s.CauseRowSpan, "", "", "")
			}
		}

		if i < len(g.Links) {
			r.Risk = g.Links[i].Risk
			r.Optimization = g.Links[i].Optimization
		}

		rows[i] = r
	}
	return rows
}

// placeholderRow is the single row a process without failure analysis emits:
// every failure-network column holds an independent empty cell.
func placeholderRow() Row {
	return Row{
		Kind:        RowKindPlaceholder,
		WorkElement: ownedCell(1, "", "", ""),
		Mode:        ownedCell(1, "", "", ""),
		Effect:      ownedCell(1, "", "", ""),
		Cause:       ownedCell(1, "", "", ""),
	}
}
