package db

import (
	"context"
	"fmt"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/cascade"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// LoadResolvedCascade reads the denormalized resolved_cascade table for a
// worksheet: the Strategy-A input. Each row already carries the resolved
// text and structural fields per link, so the engine only needs grouping
// and flattening on top. ok is false when the cascade has never been
// materialized for this worksheet; an empty-but-materialized table returns
// ok=true with no links, which the reconstructor treats as stale.
func (db *Database) LoadResolvedCascade(ctx context.Context, worksheetID string) ([]cascade.ResolvedLink, bool, error) {
	ws, err := db.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, false, err
	}
	if ws.CascadeMaterializedAt == nil {
		return nil, false, nil
	}

	query := `
        SELECT
            rc.link_id, rc.link_order,
            rc.mode_id, rc.mode_text, rc.mode_process_id,
            rc.effect_id, rc.effect_text, rc.effect_severity, rc.effect_requirement_id,
            rc.cause_id, rc.cause_text, rc.cause_occurrence, rc.cause_work_element_id,
            r.link_id, r.severity, r.occurrence, r.detection, r.action_priority, r.notes,
            o.link_id, o.description, o.responsible, o.target_date, o.status
        FROM resolved_cascade rc
        LEFT JOIN risk_assessments r ON r.link_id = rc.link_id
        LEFT JOIN optimization_actions o ON o.link_id = rc.link_id
        WHERE rc.worksheet_id = $1
        ORDER BY rc.link_order, rc.link_id
    `
	rows, err := db.Pool.Query(ctx, query, worksheetID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query resolved cascade: %w", err)
	}
	defer rows.Close()

	links := []cascade.ResolvedLink{}
	for rows.Next() {
		var (
			l cascade.ResolvedLink

			modeText      *string
			modeProcessID *string

			effectText     *string
			effectSeverity *int
			effectReqID    *string

			causeText       *string
			causeOccurrence *int
			causeWorkElemID *string

			riskLinkID     *string
			risk           models.RiskAssessment
			optLinkID      *string
			optDescription *string
			optimization   models.OptimizationAction
		)
		err := rows.Scan(
			&l.LinkID, &l.Order,
			&l.Mode.ID, &modeText, &modeProcessID,
			&l.EffectRef, &effectText, &effectSeverity, &effectReqID,
			&l.CauseRef, &causeText, &causeOccurrence, &causeWorkElemID,
			&riskLinkID, &risk.Severity, &risk.Occurrence, &risk.Detection, &risk.ActionPriority, &risk.Notes,
			&optLinkID, &optDescription, &optimization.Responsible, &optimization.TargetDate, &optimization.Status,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan resolved cascade row: %w", err)
		}

		l.Mode.WorksheetID = worksheetID
		l.Mode.ProcessID = modeProcessID
		if modeText != nil {
			l.Mode.Text = *modeText
		}
		// a ref whose resolved text is null is a dangling reference: the
		// entity side stays nil and renders empty
		if l.EffectRef != nil && effectText != nil {
			l.Effect = &models.FailureEffect{
				ID:            *l.EffectRef,
				WorksheetID:   worksheetID,
				Text:          *effectText,
				RequirementID: effectReqID,
			}
			if effectSeverity != nil {
				l.Effect.Severity = *effectSeverity
			}
		}
		if l.CauseRef != nil && causeText != nil {
			l.Cause = &models.FailureCause{
				ID:            *l.CauseRef,
				WorksheetID:   worksheetID,
				Text:          *causeText,
				Occurrence:    causeOccurrence,
				WorkElementID: causeWorkElemID,
			}
		}
		if riskLinkID != nil {
			risk.LinkID = *riskLinkID
			l.Risk = &risk
		}
		if optLinkID != nil {
			optimization.LinkID = *optLinkID
			if optDescription != nil {
				optimization.Description = *optDescription
			}
			l.Optimization = &optimization
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating resolved cascade: %w", err)
	}
	return links, true, nil
}
