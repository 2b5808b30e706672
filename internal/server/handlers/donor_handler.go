package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/service/intake"
)

// DonorHandler handles donor registration and screening endpoints.
type DonorHandler struct {
	svc    *intake.Service
	logger *zap.Logger
}

// NewDonorHandler constructs the HTTP handler adapter.
func NewDonorHandler(svc *intake.Service, logger *zap.Logger) *DonorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonorHandler{svc: svc, logger: logger}
}

type donorRequest struct {
	FullName       string    `json:"full_name" binding:"required"`
	BirthDate      time.Time `json:"birth_date"`
	NationalID     string    `json:"national_id"`
	Classification string    `json:"classification" binding:"required"`
	ConsentSigned  bool      `json:"consent_signed"`
}

// Create registers a donor in Pending status.
func (h *DonorHandler) Create(c *gin.Context) {
	var req donorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid donor payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	donor, err := h.svc.RegisterDonor(c.Request.Context(), intake.DonorInput{
		FullName:       req.FullName,
		BirthDate:      req.BirthDate,
		NationalID:     req.NationalID,
		Classification: models.DonorClassification(req.Classification),
		ConsentSigned:  req.ConsentSigned,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, donor)
}

// List returns donors, optionally filtered by ?status=.
func (h *DonorHandler) List(c *gin.Context) {
	donors, err := h.svc.ListDonors(c.Request.Context(), models.DonorStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, donors)
}

// Get returns one donor.
func (h *DonorHandler) Get(c *gin.Context) {
	donor, err := h.svc.GetDonor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, donor)
}

type labResultRequest struct {
	Test     string    `json:"test" binding:"required"`
	Reactive bool      `json:"reactive"`
	TakenAt  time.Time `json:"taken_at"`
}

// RecordLab attaches a serology result to the donor's panel.
func (h *DonorHandler) RecordLab(c *gin.Context) {
	var req labResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	donor, err := h.svc.RecordLabResult(c.Request.Context(), c.Param("id"), models.LabResult{
		Test:     req.Test,
		Reactive: req.Reactive,
		TakenAt:  req.TakenAt,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, donor)
}

// Activate moves a donor to Active after interview and lab review.
func (h *DonorHandler) Activate(c *gin.Context) {
	donor, err := h.svc.ActivateDonor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, donor)
}

type statusChangeRequest struct {
	Reason string `json:"reason"`
}

// SetStatus applies an administrative status change. The target status
// comes from the route so each action keeps its own audit trail.
func (h *DonorHandler) SetStatus(status models.DonorStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		donor, err := h.svc.SetDonorStatus(c.Request.Context(), c.Param("id"), status, req.Reason)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, donor)
	}
}
