package cascade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/logging"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// ErrWorksheetNotFound is returned when the worksheet id does not resolve.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// Strategy names reported on the read response.
const (
	StrategyPrecomputed = "precomputed"
	StrategyJoin        = "join"
)

// Store is the read-snapshot contract the reconstructor consumes. The
// caller guarantees a consistent view for the duration of one call; the
// engine never writes back. LoadResolvedCascade reports ok=false when no
// denormalized table has been materialized for the worksheet, which is
// distinct from a materialized-but-empty result.
type Store interface {
	GetWorksheet(ctx context.Context, worksheetID string) (models.Worksheet, error)
	LoadStructure(ctx context.Context, worksheetID string) (models.StructureTree, error)
	LoadResolvedCascade(ctx context.Context, worksheetID string) (links []ResolvedLink, ok bool, err error)
	LoadFailureNetwork(ctx context.Context, worksheetID string) (models.FailureNetwork, error)
}

// Snapshot is the reconstructed input of one flatten call: the structure
// tree plus the resolved link slice in persisted order.
type Snapshot struct {
	WorksheetID string
	Structure   models.StructureTree
	Links       []ResolvedLink
	Strategy    string
	Warning     string
}

// Reconstruct rebuilds the flattening input for a worksheet. Worksheet ids
// are case-normalized to uppercase before lookup. Strategy A (precomputed)
// is preferred when a materialized resolved table exists; a materialized
// table that is empty while the atomic join would produce links is treated
// as not-yet-materialized, falling back to Strategy B with a soft warning.
func Reconstruct(ctx context.Context, store Store, worksheetID string) (*Snapshot, error) {
	id := strings.ToUpper(strings.TrimSpace(worksheetID))
	if id == "" {
		return nil, ErrWorksheetNotFound
	}

	if _, err := store.GetWorksheet(ctx, id); err != nil {
		if errors.Is(err, ErrWorksheetNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load worksheet %s: %w", id, err)
	}

	tree, err := store.LoadStructure(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load structure for %s: %w", id, err)
	}

	resolved, ok, err := store.LoadResolvedCascade(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolved cascade for %s: %w", id, err)
	}
	if ok && len(resolved) > 0 {
		return &Snapshot{WorksheetID: id, Structure: tree, Links: resolved, Strategy: StrategyPrecomputed}, nil
	}

	network, err := store.LoadFailureNetwork(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load failure network for %s: %w", id, err)
	}
	links := ResolveNetwork(network)

	snap := &Snapshot{WorksheetID: id, Structure: tree, Links: links, Strategy: StrategyJoin}
	if ok && len(links) > 0 {
		snap.Warning = "resolved cascade is materialized but empty; fell back to join reconstruction"
		logging.LogKV("warn", "resolved cascade empty, using join fallback", map[string]interface{}{
			"worksheet_id": id,
			"link_count":   len(links),
		})
	}
	return snap, nil
}

// ResolveNetwork performs the in-memory join of Strategy B: every link is
// resolved against the atomic entity sets, in persisted order (link_order
// ascending, id as tiebreak). A dangling effect or cause id resolves to
// nil; a dangling mode id keeps the group alive under a text-less mode so
// the affected rows render with an empty mode cell instead of vanishing.
func ResolveNetwork(network models.FailureNetwork) []ResolvedLink {
	effects := make(map[string]models.FailureEffect, len(network.Effects))
	for _, e := range network.Effects {
		effects[e.ID] = e
	}
	modes := make(map[string]models.FailureMode, len(network.Modes))
	for _, m := range network.Modes {
		modes[m.ID] = m
	}
	causes := make(map[string]models.FailureCause, len(network.Causes))
	for _, c := range network.Causes {
		causes[c.ID] = c
	}

	ordered := make([]models.FailureLink, len(network.Links))
	copy(ordered, network.Links)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	resolved := make([]ResolvedLink, 0, len(ordered))
	for _, l := range ordered {
		rl := ResolvedLink{LinkID: l.ID, Order: l.Order, EffectRef: l.EffectID, CauseRef: l.CauseID}

		if m, ok := modes[l.ModeID]; ok {
			rl.Mode = m
		} else {
			rl.Mode = models.FailureMode{ID: l.ModeID, WorksheetID: l.WorksheetID}
		}
		if l.EffectID != nil {
			if e, ok := effects[*l.EffectID]; ok {
				rl.Effect = &e
			}
		}
		if l.CauseID != nil {
			if c, ok := causes[*l.CauseID]; ok {
				rl.Cause = &c
			}
		}
		if r, ok := network.Risks[l.ID]; ok {
			rl.Risk = &r
		}
		if o, ok := network.Optimizations[l.ID]; ok {
			rl.Optimization = &o
		}
		resolved = append(resolved, rl)
	}
	return resolved
}
