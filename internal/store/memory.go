// Package store provides an in-memory implementation of the cascade read
// interface. It backs the engine tests, the cross-strategy equivalence
// checks, and the server's demo mode, which runs without a database.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/cascade"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

type worksheetState struct {
	worksheet models.Worksheet
	structure models.StructureTree
	network   models.FailureNetwork
	resolved  []cascade.ResolvedLink
	// materialized mirrors the database's cascade_materialized_at flag:
	// a worksheet can be materialized with zero resolved rows
	materialized bool
}

// Memory is a seedable in-memory cascade.Store. Reads return copies so a
// caller holding a snapshot is unaffected by later seeding, matching the
// consistent-snapshot contract the engine expects.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string]*worksheetState
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string]*worksheetState)}
}

// SeedWorksheet registers a worksheet with its structure tree and atomic
// failure network. The worksheet id is normalized to uppercase.
func (m *Memory) SeedWorksheet(ws models.Worksheet, tree models.StructureTree, network models.FailureNetwork) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws.ID = strings.ToUpper(ws.ID)
	m.sheets[ws.ID] = &worksheetState{worksheet: ws, structure: tree, network: network}
}

// SeedResolved materializes a resolved cascade for an already-seeded
// worksheet. Passing an empty slice models the materialized-but-empty
// state the reconstructor must treat as stale.
func (m *Memory) SeedResolved(worksheetID string, links []cascade.ResolvedLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sheets[strings.ToUpper(worksheetID)]; ok {
		s.resolved = links
		s.materialized = true
	}
}

// GetWorksheet implements cascade.Store.
func (m *Memory) GetWorksheet(_ context.Context, worksheetID string) (models.Worksheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[strings.ToUpper(worksheetID)]
	if !ok {
		return models.Worksheet{}, cascade.ErrWorksheetNotFound
	}
	return s.worksheet, nil
}

// LoadStructure implements cascade.Store.
func (m *Memory) LoadStructure(_ context.Context, worksheetID string) (models.StructureTree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[strings.ToUpper(worksheetID)]
	if !ok {
		return models.StructureTree{}, cascade.ErrWorksheetNotFound
	}
	tree := s.structure
	tree.Processes = make([]models.ProcessSubtree, len(s.structure.Processes))
	copy(tree.Processes, s.structure.Processes)
	return tree, nil
}

// LoadResolvedCascade implements cascade.Store.
func (m *Memory) LoadResolvedCascade(_ context.Context, worksheetID string) ([]cascade.ResolvedLink, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[strings.ToUpper(worksheetID)]
	if !ok {
		return nil, false, cascade.ErrWorksheetNotFound
	}
	if !s.materialized {
		return nil, false, nil
	}
	links := make([]cascade.ResolvedLink, len(s.resolved))
	copy(links, s.resolved)
	return links, true, nil
}

// LoadFailureNetwork implements cascade.Store.
func (m *Memory) LoadFailureNetwork(_ context.Context, worksheetID string) (models.FailureNetwork, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[strings.ToUpper(worksheetID)]
	if !ok {
		return models.FailureNetwork{}, cascade.ErrWorksheetNotFound
	}
	n := models.FailureNetwork{
		Effects:       make([]models.FailureEffect, len(s.network.Effects)),
		Modes:         make([]models.FailureMode, len(s.network.Modes)),
		Causes:        make([]models.FailureCause, len(s.network.Causes)),
		Links:         make([]models.FailureLink, len(s.network.Links)),
		Risks:         make(map[string]models.RiskAssessment, len(s.network.Risks)),
		Optimizations: make(map[string]models.OptimizationAction, len(s.network.Optimizations)),
	}
	copy(n.Effects, s.network.Effects)
	copy(n.Modes, s.network.Modes)
	copy(n.Causes, s.network.Causes)
	copy(n.Links, s.network.Links)
	for k, v := range s.network.Risks {
		n.Risks[k] = v
	}
	for k, v := range s.network.Optimizations {
		n.Optimizations[k] = v
	}
	return n, nil
}
