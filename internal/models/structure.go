package models

import (
	"time"
)

// NodeKind represents the level of a structure node in the containment hierarchy
type NodeKind string

const (
	NodeKindProduct     NodeKind = "Product"
	NodeKindProcess     NodeKind = "Process"
	NodeKindWorkElement NodeKind = "WorkElement"
)

// IsValid checks if the node kind is valid
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindProduct, NodeKindProcess, NodeKindWorkElement:
		return true
	default:
		return false
	}
}

// ParentKind returns the kind a parent node must have, and false for the root kind
func (k NodeKind) ParentKind() (NodeKind, bool) {
	switch k {
	case NodeKindProcess:
		return NodeKindProduct, true
	case NodeKindWorkElement:
		return NodeKindProcess, true
	default:
		return "", false
	}
}

// StructureNode represents one node of the Product -> Process -> WorkElement tree
type StructureNode struct {
	ID          string    `json:"id" db:"id"`
	WorksheetID string    `json:"worksheet_id" db:"worksheet_id"`
	Kind        NodeKind  `json:"kind" db:"kind"`
	Name        string    `json:"name" db:"name"`
	Order       int       `json:"order" db:"node_order"`
	ParentID    *string   `json:"parent_id" db:"parent_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RequirementCategory tags a product-level requirement with where it is experienced
type RequirementCategory string

const (
	RequirementCategoryOwnPlant    RequirementCategory = "OwnPlant"
	RequirementCategoryShipToPlant RequirementCategory = "ShipToPlant"
	RequirementCategoryUser        RequirementCategory = "User"
)

// IsValid checks if the requirement category is valid
func (c RequirementCategory) IsValid() bool {
	switch c {
	case RequirementCategoryOwnPlant, RequirementCategoryShipToPlant, RequirementCategoryUser:
		return true
	default:
		return false
	}
}

// Function represents a function attached to exactly one structure node
type Function struct {
	ID     string `json:"id" db:"id"`
	NodeID string `json:"node_id" db:"node_id"`
	Name   string `json:"name" db:"name"`
	Order  int    `json:"order" db:"function_order"`
}

// Characteristic represents a product/process characteristic under a function
// (product characteristic at Process level, process characteristic at WorkElement level)
type Characteristic struct {
	ID         string `json:"id" db:"id"`
	FunctionID string `json:"function_id" db:"function_id"`
	Name       string `json:"name" db:"name"`
	Order      int    `json:"order" db:"characteristic_order"`
}

// Requirement is the product-level attachment under a function
type Requirement struct {
	ID         string              `json:"id" db:"id"`
	FunctionID string              `json:"function_id" db:"function_id"`
	Name       string              `json:"name" db:"name"`
	Category   RequirementCategory `json:"category" db:"category"`
	Order      int                 `json:"order" db:"requirement_order"`
}

// ProcessSubtree is one Process node together with its ordered WorkElements
type ProcessSubtree struct {
	Node         StructureNode   `json:"node"`
	WorkElements []StructureNode `json:"work_elements"`
}

// StructureTree is the assembled containment hierarchy for one worksheet.
// Processes and WorkElements are ordered by node_order ascending (id as
// tiebreak); the ordering is part of the flattening contract, not a
// presentation detail.
type StructureTree struct {
	WorksheetID string           `json:"worksheet_id"`
	Product     StructureNode    `json:"product"`
	Processes   []ProcessSubtree `json:"processes"`
}

// Process returns the process subtree with the given node id
func (t *StructureTree) Process(id string) (ProcessSubtree, bool) {
	for _, p := range t.Processes {
		if p.Node.ID == id {
			return p, true
		}
	}
	return ProcessSubtree{}, false
}

// WorkElement returns the work element node with the given id
func (t *StructureTree) WorkElement(id string) (StructureNode, bool) {
	for _, p := range t.Processes {
		for _, we := range p.WorkElements {
			if we.ID == id {
				return we, true
			}
		}
	}
	return StructureNode{}, false
}

// Worksheet represents one PFMEA worksheet. IDs are stored uppercase.
type Worksheet struct {
	ID                    string     `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	NetworkConfirmed      bool       `json:"network_confirmed" db:"network_confirmed"`
	CascadeMaterializedAt *time.Time `json:"cascade_materialized_at,omitempty" db:"cascade_materialized_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}
