package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// ErrNetworkLocked is returned for link writes while the network stage is confirmed.
var ErrNetworkLocked = errors.New("failure network is confirmed; unlock before editing links")

// ErrMeaninglessLink is returned for a link with neither effect nor cause.
var ErrMeaninglessLink = errors.New("failure link must reference an effect or a cause")

// LoadFailureNetwork reads the atomic failure-analysis entities of one
// worksheet: the Strategy-B input. Links come back in persisted order
// (link_order ascending, id as tiebreak).
func (db *Database) LoadFailureNetwork(ctx context.Context, worksheetID string) (models.FailureNetwork, error) {
	var network models.FailureNetwork

	rows, err := db.Pool.Query(ctx, `
        SELECT id, worksheet_id, text, severity, requirement_id
        FROM failure_effects
        WHERE worksheet_id = $1
        ORDER BY id
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query failure effects: %w", err)
	}
	for rows.Next() {
		var e models.FailureEffect
		if err := rows.Scan(&e.ID, &e.WorksheetID, &e.Text, &e.Severity, &e.RequirementID); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan failure effect: %w", err)
		}
		network.Effects = append(network.Effects, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating failure effects: %w", err)
	}

	rows, err = db.Pool.Query(ctx, `
        SELECT id, worksheet_id, text, process_id
        FROM failure_modes
        WHERE worksheet_id = $1
        ORDER BY id
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query failure modes: %w", err)
	}
	for rows.Next() {
		var m models.FailureMode
		if err := rows.Scan(&m.ID, &m.WorksheetID, &m.Text, &m.ProcessID); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan failure mode: %w", err)
		}
		network.Modes = append(network.Modes, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating failure modes: %w", err)
	}

	rows, err = db.Pool.Query(ctx, `
        SELECT id, worksheet_id, text, occurrence, work_element_id
        FROM failure_causes
        WHERE worksheet_id = $1
        ORDER BY id
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query failure causes: %w", err)
	}
	for rows.Next() {
		var c models.FailureCause
		if err := rows.Scan(&c.ID, &c.WorksheetID, &c.Text, &c.Occurrence, &c.WorkElementID); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan failure cause: %w", err)
		}
		network.Causes = append(network.Causes, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating failure causes: %w", err)
	}

	rows, err = db.Pool.Query(ctx, `
        SELECT id, worksheet_id, mode_id, effect_id, cause_id, link_order, created_at
        FROM failure_links
        WHERE worksheet_id = $1
        ORDER BY link_order, id
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query failure links: %w", err)
	}
	for rows.Next() {
		var l models.FailureLink
		if err := rows.Scan(&l.ID, &l.WorksheetID, &l.ModeID, &l.EffectID, &l.CauseID, &l.Order, &l.CreatedAt); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan failure link: %w", err)
		}
		network.Links = append(network.Links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating failure links: %w", err)
	}

	network.Risks = make(map[string]models.RiskAssessment)
	rows, err = db.Pool.Query(ctx, `
        SELECT r.link_id, r.severity, r.occurrence, r.detection, r.action_priority, r.notes
        FROM risk_assessments r
        JOIN failure_links l ON l.id = r.link_id
        WHERE l.worksheet_id = $1
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query risk assessments: %w", err)
	}
	for rows.Next() {
		var r models.RiskAssessment
		if err := rows.Scan(&r.LinkID, &r.Severity, &r.Occurrence, &r.Detection, &r.ActionPriority, &r.Notes); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan risk assessment: %w", err)
		}
		network.Risks[r.LinkID] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating risk assessments: %w", err)
	}

	network.Optimizations = make(map[string]models.OptimizationAction)
	rows, err = db.Pool.Query(ctx, `
        SELECT o.link_id, o.description, o.responsible, o.target_date, o.status
        FROM optimization_actions o
        JOIN failure_links l ON l.id = o.link_id
        WHERE l.worksheet_id = $1
    `, worksheetID)
	if err != nil {
		return network, fmt.Errorf("failed to query optimization actions: %w", err)
	}
	for rows.Next() {
		var o models.OptimizationAction
		if err := rows.Scan(&o.LinkID, &o.Description, &o.Responsible, &o.TargetDate, &o.Status); err != nil {
			rows.Close()
			return network, fmt.Errorf("failed to scan optimization action: %w", err)
		}
		network.Optimizations[o.LinkID] = o
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return network, fmt.Errorf("error iterating optimization actions: %w", err)
	}

	return network, nil
}

// CreateFailureEffect inserts a failure effect and returns its id.
func (db *Database) CreateFailureEffect(ctx context.Context, e models.FailureEffect) (string, error) {
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO failure_effects (id, worksheet_id, text, severity, requirement_id)
        VALUES ($1, $2, $3, $4, $5)
    `, id, e.WorksheetID, e.Text, e.Severity, e.RequirementID)
	if err != nil {
		return "", fmt.Errorf("failed to insert failure effect: %w", err)
	}
	return id, nil
}

// CreateFailureMode inserts a failure mode and returns its id.
func (db *Database) CreateFailureMode(ctx context.Context, m models.FailureMode) (string, error) {
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO failure_modes (id, worksheet_id, text, process_id)
        VALUES ($1, $2, $3, $4)
    `, id, m.WorksheetID, m.Text, m.ProcessID)
	if err != nil {
		return "", fmt.Errorf("failed to insert failure mode: %w", err)
	}
	return id, nil
}

// CreateFailureCause inserts a failure cause and returns its id.
func (db *Database) CreateFailureCause(ctx context.Context, c models.FailureCause) (string, error) {
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO failure_causes (id, worksheet_id, text, occurrence, work_element_id)
        VALUES ($1, $2, $3, $4, $5)
    `, id, c.WorksheetID, c.Text, c.Occurrence, c.WorkElementID)
	if err != nil {
		return "", fmt.Errorf("failed to insert failure cause: %w", err)
	}
	return id, nil
}

// CreateFailureLink inserts a link connecting a mode to an effect and/or a
// cause. Links referencing nothing on either side are rejected, and writes
// are refused while the worksheet's network stage is confirmed. The link
// order is assigned append-only within the worksheet.
func (db *Database) CreateFailureLink(ctx context.Context, link models.FailureLink) (string, error) {
	if link.Meaningless() {
		return "", ErrMeaninglessLink
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var confirmed bool
	err = tx.QueryRow(ctx,
		"SELECT network_confirmed FROM worksheets WHERE id = $1",
		link.WorksheetID,
	).Scan(&confirmed)
	if err != nil {
		return "", fmt.Errorf("failed to check network lock: %w", err)
	}
	if confirmed {
		return "", ErrNetworkLocked
	}

	id := uuid.NewString()
	query := `
        INSERT INTO failure_links (id, worksheet_id, mode_id, effect_id, cause_id, link_order)
        VALUES ($1, $2, $3, $4, $5, (
            SELECT COALESCE(MAX(link_order), 0) + 1
            FROM failure_links
            WHERE worksheet_id = $2
        ))
    `
	_, err = tx.Exec(ctx, query, id, link.WorksheetID, link.ModeID, link.EffectID, link.CauseID)
	if err != nil {
		return "", fmt.Errorf("failed to insert failure link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// SetNetworkConfirmed locks or unlocks the worksheet's link set.
func (db *Database) SetNetworkConfirmed(ctx context.Context, worksheetID string, confirmed bool) error {
	result, err := db.Pool.Exec(ctx, `
        UPDATE worksheets
        SET network_confirmed = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
    `, worksheetID, confirmed)
	if err != nil {
		return fmt.Errorf("failed to update network lock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("worksheet %s not found", worksheetID)
	}
	return nil
}
