package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/cascade"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/db"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/models"
)

// Handler holds the database connection and provides HTTP handlers. The
// read path goes through the cascade.Store interface so it can also be
// served from the in-memory store (demo mode, tests); the write path needs
// the real database.
type Handler struct {
	db    *db.Database
	store cascade.Store
}

// NewHandler creates a handler backed by the database for reads and writes.
func NewHandler(database *db.Database) *Handler {
	h := &Handler{db: database}
	if database != nil {
		h.store = database
	}
	return h
}

// NewHandlerWithStore creates a read-only handler over an arbitrary store.
func NewHandlerWithStore(store cascade.Store) *Handler {
	return &Handler{store: store}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "none"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}

// failureCascadeResponse is the read API envelope: the flattened rows with
// merge metadata, aggregate stats, and which reconstruction strategy
// produced them.
type failureCascadeResponse struct {
	WorksheetID string        `json:"worksheet_id"`
	Rows        []cascade.Row `json:"rows"`
	Stats       cascade.Stats `json:"stats"`
	Strategy    string        `json:"strategy"`
	Warning     string        `json:"warning,omitempty"`
}

// GetFailureCascade handles GET /failure-cascade?worksheetId=ID. The id is
// case-normalized to uppercase before lookup.
func (h *Handler) GetFailureCascade(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	worksheetID := strings.TrimSpace(c.Query("worksheetId"))
	if worksheetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "worksheetId query parameter is required", "error_code": "MISSING_WORKSHEET_ID"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not available", "error_code": "STORE_UNAVAILABLE"})
		return
	}

	snap, err := cascade.Reconstruct(ctx, h.store, worksheetID)
	if err != nil {
		if errors.Is(err, cascade.ErrWorksheetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Worksheet not found", "error_code": "WORKSHEET_NOT_FOUND"})
			return
		}
		log.Printf("Failed to reconstruct cascade for %s: %v", worksheetID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load failure cascade", "error_code": "RECONSTRUCT_FAILED"})
		return
	}

	result := cascade.Build(snap)
	c.JSON(http.StatusOK, failureCascadeResponse{
		WorksheetID: snap.WorksheetID,
		Rows:        result.Rows,
		Stats:       result.Stats,
		Strategy:    snap.Strategy,
		Warning:     snap.Warning,
	})
}

// ListWorksheets handles GET /worksheets
func (h *Handler) ListWorksheets(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sheets, err := h.db.ListWorksheets(ctx)
	if err != nil {
		log.Printf("Failed to list worksheets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list worksheets"})
		return
	}
	if sheets == nil {
		sheets = []models.Worksheet{}
	}
	c.JSON(http.StatusOK, gin.H{"worksheets": sheets})
}

// createWorksheetRequest is the body of POST /worksheets
type createWorksheetRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// CreateWorksheet handles POST /worksheets
func (h *Handler) CreateWorksheet(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createWorksheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ws, err := h.db.CreateWorksheet(ctx, req.ID, req.Name)
	if err != nil {
		log.Printf("Failed to create worksheet: %v", err)
		if strings.Contains(err.Error(), "duplicate key value") {
			c.JSON(http.StatusConflict, gin.H{"error": "Worksheet id already exists", "error_code": "DUPLICATE_WORKSHEET"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create worksheet"})
		return
	}
	c.JSON(http.StatusCreated, ws)
}

// createStructureNodeRequest is the body of POST /worksheets/:id/structure
type createStructureNodeRequest struct {
	Kind     models.NodeKind `json:"kind" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	ParentID *string         `json:"parent_id"`
}

// CreateStructureNode handles POST /worksheets/:id/structure
func (h *Handler) CreateStructureNode(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createStructureNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if !req.Kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid node kind", "error_code": "INVALID_NODE_KIND"})
		return
	}

	nodeID, err := h.db.CreateStructureNode(ctx, models.StructureNode{
		WorksheetID: worksheetParam(c),
		Kind:        req.Kind,
		Name:        req.Name,
		ParentID:    req.ParentID,
	})
	if err != nil {
		log.Printf("Failed to create structure node: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": "INVALID_STRUCTURE"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"node_id": nodeID})
}

// DeleteStructureNode handles DELETE /worksheets/:id/structure/:nodeId
func (h *Handler) DeleteStructureNode(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err := h.db.DeleteStructureNode(ctx, worksheetParam(c), c.Param("nodeId"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_code": "NODE_NOT_FOUND"})
			return
		}
		log.Printf("Failed to delete structure node: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete structure node"})
		return
	}
	c.Status(http.StatusNoContent)
}

// createEffectRequest is the body of POST /worksheets/:id/effects
type createEffectRequest struct {
	Text          string  `json:"text" binding:"required"`
	Severity      int     `json:"severity" binding:"required"`
	RequirementID *string `json:"requirement_id"`
}

// CreateFailureEffect handles POST /worksheets/:id/effects
func (h *Handler) CreateFailureEffect(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createEffectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Severity < 1 || req.Severity > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be between 1 and 10", "error_code": "INVALID_SEVERITY"})
		return
	}

	id, err := h.db.CreateFailureEffect(ctx, models.FailureEffect{
		WorksheetID:   worksheetParam(c),
		Text:          req.Text,
		Severity:      req.Severity,
		RequirementID: req.RequirementID,
	})
	if err != nil {
		log.Printf("Failed to create failure effect: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create failure effect"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"effect_id": id})
}

// createModeRequest is the body of POST /worksheets/:id/modes
type createModeRequest struct {
	Text      string  `json:"text" binding:"required"`
	ProcessID *string `json:"process_id"`
}

// CreateFailureMode handles POST /worksheets/:id/modes
func (h *Handler) CreateFailureMode(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.db.CreateFailureMode(ctx, models.FailureMode{
		WorksheetID: worksheetParam(c),
		Text:        req.Text,
		ProcessID:   req.ProcessID,
	})
	if err != nil {
		log.Printf("Failed to create failure mode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create failure mode"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mode_id": id})
}

// createCauseRequest is the body of POST /worksheets/:id/causes
type createCauseRequest struct {
	Text          string  `json:"text" binding:"required"`
	Occurrence    *int    `json:"occurrence"`
	WorkElementID *string `json:"work_element_id"`
}

// CreateFailureCause handles POST /worksheets/:id/causes
func (h *Handler) CreateFailureCause(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createCauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Occurrence != nil && (*req.Occurrence < 1 || *req.Occurrence > 10) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "occurrence must be between 1 and 10", "error_code": "INVALID_OCCURRENCE"})
		return
	}

	id, err := h.db.CreateFailureCause(ctx, models.FailureCause{
		WorksheetID:   worksheetParam(c),
		Text:          req.Text,
		Occurrence:    req.Occurrence,
		WorkElementID: req.WorkElementID,
	})
	if err != nil {
		log.Printf("Failed to create failure cause: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create failure cause"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cause_id": id})
}

// createLinkRequest is the body of POST /worksheets/:id/links
type createLinkRequest struct {
	ModeID   string  `json:"mode_id" binding:"required"`
	EffectID *string `json:"effect_id"`
	CauseID  *string `json:"cause_id"`
}

// CreateFailureLink handles POST /worksheets/:id/links
func (h *Handler) CreateFailureLink(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.db.CreateFailureLink(ctx, models.FailureLink{
		WorksheetID: worksheetParam(c),
		ModeID:      req.ModeID,
		EffectID:    req.EffectID,
		CauseID:     req.CauseID,
	})
	if err != nil {
		if errors.Is(err, db.ErrMeaninglessLink) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": "MEANINGLESS_LINK"})
			return
		}
		if errors.Is(err, db.ErrNetworkLocked) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_code": "NETWORK_LOCKED"})
			return
		}
		log.Printf("Failed to create failure link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create failure link"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link_id": id})
}

// ConfirmNetwork handles POST /worksheets/:id/confirm-network
func (h *Handler) ConfirmNetwork(c *gin.Context) {
	h.setNetworkLock(c, true)
}

// UnlockNetwork handles POST /worksheets/:id/unlock-network
func (h *Handler) UnlockNetwork(c *gin.Context) {
	h.setNetworkLock(c, false)
}

func (h *Handler) setNetworkLock(c *gin.Context, confirmed bool) {
	if !h.requireDB(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.db.SetNetworkConfirmed(ctx, worksheetParam(c), confirmed); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_code": "WORKSHEET_NOT_FOUND"})
			return
		}
		log.Printf("Failed to update network lock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update network lock"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"network_confirmed": confirmed})
}

// requireDB rejects write requests when no database is configured (demo mode).
func (h *Handler) requireDB(c *gin.Context) bool {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Read-only demo mode", "error_code": "READ_ONLY"})
		return false
	}
	return true
}

// worksheetParam returns the :id path parameter normalized to uppercase.
func worksheetParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("id")))
}
