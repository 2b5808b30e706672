package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	analysissvc "github.com/hgp-lactario/milkbank/internal/service/analysis"
	"github.com/hgp-lactario/milkbank/internal/service/inventory"
)

// BatchHandler handles batch lifecycle and inventory endpoints.
type BatchHandler struct {
	analysisSvc  *analysissvc.Service
	inventorySvc *inventory.Service
	logger       *zap.Logger
}

// NewBatchHandler constructs the HTTP handler adapter.
func NewBatchHandler(analysisSvc *analysissvc.Service, inventorySvc *inventory.Service, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{analysisSvc: analysisSvc, inventorySvc: inventorySvc, logger: logger}
}

// List returns batches, optionally filtered by ?status=.
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.inventorySvc.ListBatches(c.Request.Context(), models.BatchStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batches)
}

// Get returns one batch.
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.inventorySvc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Summary returns the analysis aggregate of a batch's member jars.
func (h *BatchHandler) Summary(c *gin.Context) {
	summary, err := h.analysisSvc.BatchSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type pasteurizationRequest struct {
	TempCurve   []models.TempPoint `json:"temp_curve"`
	Responsible string             `json:"responsible" binding:"required"`
	Completed   bool               `json:"completed"`
}

// RecordPasteurization stores the Holder record, moving the batch to Quarantine.
func (h *BatchHandler) RecordPasteurization(c *gin.Context) {
	var req pasteurizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.analysisSvc.RecordPasteurization(c.Request.Context(), c.Param("id"), analysissvc.PasteurizationInput{
		TempCurve:   req.TempCurve,
		Responsible: req.Responsible,
		Completed:   req.Completed,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type microbiologyRequest struct {
	SowedAt     time.Time `json:"sowed_at"`
	Result      string    `json:"result" binding:"required"`
	Responsible string    `json:"responsible"`
}

// RecordMicrobiology stores the culture result, resolving the quarantine.
func (h *BatchHandler) RecordMicrobiology(c *gin.Context) {
	var req microbiologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.analysisSvc.RecordMicrobiology(c.Request.Context(), c.Param("id"), analysissvc.MicrobiologyInput{
		SowedAt:     req.SowedAt,
		Result:      models.MicrobiologyResult(req.Result),
		Responsible: req.Responsible,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type locationRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required"`
	Shelf       string `json:"shelf"`
	Position    string `json:"position"`
}

// AssignLocation places a batch in a cold-chain slot.
func (h *BatchHandler) AssignLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.inventorySvc.AssignLocation(c.Request.Context(), c.Param("id"), models.StorageLocation{
		EquipmentID: req.EquipmentID,
		Shelf:       req.Shelf,
		Position:    req.Position,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type discardRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Discard rejects a batch with a mandatory reason.
func (h *BatchHandler) Discard(c *gin.Context) {
	var req discardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.analysisSvc.DiscardBatch(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Inventory returns the released stock in FEFO order.
func (h *BatchHandler) Inventory(c *gin.Context) {
	stock, err := h.inventorySvc.Stock(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}
