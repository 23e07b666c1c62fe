package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/cascade"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// GetWorksheet fetches one worksheet by its (uppercase) id.
func (db *Database) GetWorksheet(ctx context.Context, worksheetID string) (models.Worksheet, error) {
	var ws models.Worksheet
	query := `
        SELECT id, name, network_confirmed, cascade_materialized_at, created_at, updated_at
        FROM worksheets
        WHERE id = $1
    `
	err := db.Pool.QueryRow(ctx, query, worksheetID).Scan(
		&ws.ID,
		&ws.Name,
		&ws.NetworkConfirmed,
		&ws.CascadeMaterializedAt,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Worksheet{}, cascade.ErrWorksheetNotFound
		}
		return models.Worksheet{}, fmt.Errorf("failed to query worksheet: %w", err)
	}
	return ws, nil
}

// CreateWorksheet inserts a new worksheet. The id is normalized to uppercase.
func (db *Database) CreateWorksheet(ctx context.Context, id, name string) (models.Worksheet, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	query := `
        INSERT INTO worksheets (id, name)
        VALUES ($1, $2)
        RETURNING id, name, network_confirmed, cascade_materialized_at, created_at, updated_at
    `
	var ws models.Worksheet
	err := db.Pool.QueryRow(ctx, query, id, name).Scan(
		&ws.ID,
		&ws.Name,
		&ws.NetworkConfirmed,
		&ws.CascadeMaterializedAt,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		return models.Worksheet{}, fmt.Errorf("failed to insert worksheet: %w", err)
	}
	return ws, nil
}

// ListWorksheets returns all worksheets ordered by id.
func (db *Database) ListWorksheets(ctx context.Context) ([]models.Worksheet, error) {
	query := `
        SELECT id, name, network_confirmed, cascade_materialized_at, created_at, updated_at
        FROM worksheets
        ORDER BY id
    `
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query worksheets: %w", err)
	}
	defer rows.Close()

	var sheets []models.Worksheet
	for rows.Next() {
		var ws models.Worksheet
		err := rows.Scan(&ws.ID, &ws.Name, &ws.NetworkConfirmed, &ws.CascadeMaterializedAt, &ws.CreatedAt, &ws.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worksheet: %w", err)
		}
		sheets = append(sheets, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worksheets: %w", err)
	}
	return sheets, nil
}

// LoadStructure assembles the Product -> Process -> WorkElement tree for a
// worksheet. Sibling order follows node_order ascending with id as tiebreak,
// which is the traversal order the flattener depends on. A worksheet whose
// structure has not been authored yet yields an empty tree, not an error.
func (db *Database) LoadStructure(ctx context.Context, worksheetID string) (models.StructureTree, error) {
	query := `
        SELECT id, worksheet_id, kind, name, node_order, parent_id, created_at, updated_at
        FROM structure_nodes
        WHERE worksheet_id = $1
        ORDER BY node_order, id
    `
	rows, err := db.Pool.Query(ctx, query, worksheetID)
	if err != nil {
		return models.StructureTree{}, fmt.Errorf("failed to query structure nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.StructureNode
	for rows.Next() {
		var n models.StructureNode
		err := rows.Scan(&n.ID, &n.WorksheetID, &n.Kind, &n.Name, &n.Order, &n.ParentID, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return models.StructureTree{}, fmt.Errorf("failed to scan structure node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return models.StructureTree{}, fmt.Errorf("error iterating structure nodes: %w", err)
	}

	return assembleTree(worksheetID, nodes), nil
}

// assembleTree builds the tree from an order-sorted node slice.
func assembleTree(worksheetID string, nodes []models.StructureNode) models.StructureTree {
	tree := models.StructureTree{WorksheetID: worksheetID}
	processIndex := make(map[string]int)

	for _, n := range nodes {
		switch n.Kind {
		case models.NodeKindProduct:
			tree.Product = n
		case models.NodeKindProcess:
			processIndex[n.ID] = len(tree.Processes)
			tree.Processes = append(tree.Processes, models.ProcessSubtree{Node: n})
		}
	}
	for _, n := range nodes {
		if n.Kind != models.NodeKindWorkElement || n.ParentID == nil {
			continue
		}
		if i, ok := processIndex[*n.ParentID]; ok {
			tree.Processes[i].WorkElements = append(tree.Processes[i].WorkElements, n)
		}
	}
	return tree
}

// CreateStructureNode inserts a structure node after validating the
// kind/parent pairing: exactly one Product root per worksheet, every
// Process under the Product, every WorkElement under a Process.
func (db *Database) CreateStructureNode(ctx context.Context, node models.StructureNode) (string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if node.Kind == models.NodeKindProduct {
		var count int
		err = tx.QueryRow(ctx,
			"SELECT COUNT(1) FROM structure_nodes WHERE worksheet_id = $1 AND kind = $2",
			node.WorksheetID, models.NodeKindProduct,
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("failed to check product root: %w", err)
		}
		if count > 0 {
			return "", fmt.Errorf("worksheet %s already has a product root", node.WorksheetID)
		}
	} else {
		wantParent, _ := node.Kind.ParentKind()
		if node.ParentID == nil {
			return "", fmt.Errorf("%s node requires a %s parent", node.Kind, wantParent)
		}
		var parentKind models.NodeKind
		err = tx.QueryRow(ctx,
			"SELECT kind FROM structure_nodes WHERE id = $1 AND worksheet_id = $2",
			*node.ParentID, node.WorksheetID,
		).Scan(&parentKind)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", fmt.Errorf("parent node %s not found", *node.ParentID)
			}
			return "", fmt.Errorf("failed to check parent node: %w", err)
		}
		if parentKind != wantParent {
			return "", fmt.Errorf("%s node requires a %s parent, got %s", node.Kind, wantParent, parentKind)
		}
	}

	nodeID := uuid.NewString()
	query := `
        INSERT INTO structure_nodes (id, worksheet_id, kind, name, node_order, parent_id)
        VALUES ($1, $2, $3, $4, (
            SELECT COALESCE(MAX(node_order), 0) + 1
            FROM structure_nodes
            WHERE worksheet_id = $2 AND kind = $3
        ), $5)
    `
	_, err = tx.Exec(ctx, query, nodeID, node.WorksheetID, node.Kind, node.Name, node.ParentID)
	if err != nil {
		return "", fmt.Errorf("failed to insert structure node: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nodeID, nil
}

// DeleteStructureNode removes a node and its entire subtree, together with
// the function/characteristic/requirement attachments of every removed
// node. Failure entities referencing removed nodes keep their dangling
// references; the read path treats those as absent.
func (db *Database) DeleteStructureNode(ctx context.Context, worksheetID, nodeID string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	subtree := `
        WITH RECURSIVE subtree AS (
            SELECT id FROM structure_nodes WHERE id = $1 AND worksheet_id = $2
            UNION ALL
            SELECT n.id FROM structure_nodes n JOIN subtree s ON n.parent_id = s.id
        )
        SELECT id FROM subtree
    `
	rows, err := tx.Query(ctx, subtree, nodeID, worksheetID)
	if err != nil {
		return fmt.Errorf("failed to query subtree: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan subtree node: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating subtree: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("structure node %s not found", nodeID)
	}

	_, err = tx.Exec(ctx, `
        DELETE FROM characteristics WHERE function_id IN (SELECT id FROM functions WHERE node_id = ANY($1))
    `, ids)
	if err != nil {
		return fmt.Errorf("failed to delete characteristics: %w", err)
	}
	_, err = tx.Exec(ctx, `
        DELETE FROM requirements WHERE function_id IN (SELECT id FROM functions WHERE node_id = ANY($1))
    `, ids)
	if err != nil {
		return fmt.Errorf("failed to delete requirements: %w", err)
	}
	_, err = tx.Exec(ctx, "DELETE FROM functions WHERE node_id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("failed to delete functions: %w", err)
	}
	_, err = tx.Exec(ctx, "DELETE FROM structure_nodes WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("failed to delete structure nodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
