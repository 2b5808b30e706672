package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	analysissvc "github.com/hgp-lactario/milkbank/internal/service/analysis"
	"github.com/hgp-lactario/milkbank/internal/service/intake"
)

// JarHandler handles jar intake, verification and analysis endpoints.
type JarHandler struct {
	intakeSvc   *intake.Service
	analysisSvc *analysissvc.Service
	logger      *zap.Logger
}

// NewJarHandler constructs the HTTP handler adapter.
func NewJarHandler(intakeSvc *intake.Service, analysisSvc *analysissvc.Service, logger *zap.Logger) *JarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JarHandler{intakeSvc: intakeSvc, analysisSvc: analysisSvc, logger: logger}
}

type jarRequest struct {
	DonorID     string    `json:"donor_id" binding:"required"`
	VolumeML    float64   `json:"volume_ml" binding:"required"`
	Type        string    `json:"type" binding:"required"`
	ExtractedAt time.Time `json:"extracted_at" binding:"required"`
	TempC       float64   `json:"temp_c"`
	Arrival     string    `json:"arrival"`
	Clean       bool      `json:"clean"`
	Sealed      bool      `json:"sealed"`
	Labeled     bool      `json:"labeled"`
	ReceivedBy  string    `json:"received_by"`
}

// Create registers a jar at reception.
func (h *JarHandler) Create(c *gin.Context) {
	var req jarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid jar payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	jar, err := h.intakeSvc.ReceiveJar(c.Request.Context(), intake.JarInput{
		DonorID:     req.DonorID,
		VolumeML:    req.VolumeML,
		Type:        models.MilkType(req.Type),
		ExtractedAt: req.ExtractedAt,
		TempC:       req.TempC,
		Arrival:     models.ArrivalState(req.Arrival),
		Clean:       req.Clean,
		Sealed:      req.Sealed,
		Labeled:     req.Labeled,
		ReceivedBy:  req.ReceivedBy,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, jar)
}

// List returns jars, optionally filtered by ?status=.
func (h *JarHandler) List(c *gin.Context) {
	jars, err := h.intakeSvc.ListJars(c.Request.Context(), models.JarStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, jars)
}

// Get returns one jar.
func (h *JarHandler) Get(c *gin.Context) {
	jar, err := h.intakeSvc.GetJar(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, jar)
}

type verifyRequest struct {
	By string `json:"by"`
}

// Verify runs the physical reception verification on a Raw jar.
func (h *JarHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	jar, err := h.intakeSvc.VerifyJar(c.Request.Context(), c.Param("id"), req.By)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, jar)
}

type physicalRequest struct {
	Color         string `json:"color" binding:"required"`
	OffFlavor     bool   `json:"off_flavor"`
	Contamination string `json:"contamination"`
	By            string `json:"by"`
}

// RecordPhysical stores the visual inspection of a jar.
func (h *JarHandler) RecordPhysical(c *gin.Context) {
	var req physicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	jar, err := h.analysisSvc.RecordPhysical(c.Request.Context(), c.Param("id"), lifecycle.PhysicalInput{
		Color:         req.Color,
		OffFlavor:     req.OffFlavor,
		Contamination: req.Contamination,
	}, req.By)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, jar)
}

type chemicalRequest struct {
	Aliquots     [3]float64 `json:"aliquots" binding:"required"`
	Creamatocrit float64    `json:"creamatocrit"`
	By           string     `json:"by"`
}

// RecordChemical stores the acidity and creamatocrit analysis of a jar.
func (h *JarHandler) RecordChemical(c *gin.Context) {
	var req chemicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	jar, err := h.analysisSvc.RecordChemical(c.Request.Context(), c.Param("id"), lifecycle.ChemicalInput{
		Aliquots:     req.Aliquots,
		Creamatocrit: req.Creamatocrit,
	}, req.By)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, jar)
}
