package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/service/pooling"
)

// PoolingHandler handles PEPS selection sessions and batch commits.
type PoolingHandler struct {
	svc    *pooling.Service
	logger *zap.Logger
}

// NewPoolingHandler constructs the HTTP handler adapter.
func NewPoolingHandler(svc *pooling.Service, logger *zap.Logger) *PoolingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolingHandler{svc: svc, logger: logger}
}

type openSessionRequest struct {
	MilkType string `json:"milk_type" binding:"required"`
}

// Open starts a selection session for one milk type.
func (h *PoolingHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.svc.OpenSession(models.MilkType(req.MilkType))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// View renders the eligible pool and current selection.
func (h *PoolingHandler) View(c *gin.Context) {
	view, err := h.svc.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type selectionRequest struct {
	JarID string `json:"jar_id" binding:"required"`
}

// Select adds a jar to the session under PEPS ordering.
func (h *PoolingHandler) Select(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.Select(c.Request.Context(), c.Param("id"), req.JarID); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Deselect removes a jar from the session, newest-first.
func (h *PoolingHandler) Deselect(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.Deselect(c.Request.Context(), c.Param("id"), req.JarID); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type commitRequest struct {
	By string `json:"by"`
}

// Commit turns the selection into a batch and closes the session.
func (h *PoolingHandler) Commit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.svc.Commit(c.Request.Context(), c.Param("id"), req.By)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// Close abandons a session without creating a batch.
func (h *PoolingHandler) Close(c *gin.Context) {
	h.svc.CloseSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}
