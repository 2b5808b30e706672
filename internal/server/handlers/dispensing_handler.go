package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/service/dispensing"
)

// DispensingHandler handles the administration ledger and receiver endpoints.
type DispensingHandler struct {
	svc    *dispensing.Service
	logger *zap.Logger
}

// NewDispensingHandler constructs the HTTP handler adapter.
func NewDispensingHandler(svc *dispensing.Service, logger *zap.Logger) *DispensingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispensingHandler{svc: svc, logger: logger}
}

type administerRequest struct {
	ReceiverID     string  `json:"receiver_id" binding:"required"`
	BatchID        string  `json:"batch_id" binding:"required"`
	PrescribedML   float64 `json:"prescribed_ml"`
	AdministeredML float64 `json:"administered_ml"`
	DiscardedML    float64 `json:"discarded_ml"`
	DiscardReason  string  `json:"discard_reason"`
	TempC          float64 `json:"temp_c"`
	Route          string  `json:"route"`
	Responsible    string  `json:"responsible" binding:"required"`
}

// Administer records one feeding event against a released batch.
func (h *DispensingHandler) Administer(c *gin.Context) {
	var req administerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := h.svc.Administer(c.Request.Context(), dispensing.AdministerInput{
		ReceiverID:     req.ReceiverID,
		BatchID:        req.BatchID,
		PrescribedML:   req.PrescribedML,
		AdministeredML: req.AdministeredML,
		DiscardedML:    req.DiscardedML,
		DiscardReason:  req.DiscardReason,
		TempC:          req.TempC,
		Route:          models.AdministrationRoute(req.Route),
		Responsible:    req.Responsible,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListAdministrations returns ledger entries, filterable by ?batch_id= and ?receiver_id=.
func (h *DispensingHandler) ListAdministrations(c *gin.Context) {
	records, err := h.svc.ListAdministrations(c.Request.Context(), c.Query("batch_id"), c.Query("receiver_id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type prescriptionRequest struct {
	TotalDailyML       float64 `json:"total_daily_ml" binding:"required"`
	FeedingsPerDay     int     `json:"feedings_per_day" binding:"required"`
	MilkTypePreference string  `json:"milk_type_preference"`
	CaloricRequirement string  `json:"caloric_requirement"`
}

func (r prescriptionRequest) toInput() dispensing.PrescriptionInput {
	return dispensing.PrescriptionInput{
		TotalDailyML:       r.TotalDailyML,
		FeedingsPerDay:     r.FeedingsPerDay,
		MilkTypePreference: models.MilkType(r.MilkTypePreference),
		CaloricRequirement: r.CaloricRequirement,
	}
}

type admitReceiverRequest struct {
	FullName     string              `json:"full_name" binding:"required"`
	RecordNumber string              `json:"record_number" binding:"required"`
	Prescription prescriptionRequest `json:"prescription" binding:"required"`
}

// AdmitReceiver registers a hospitalized receiver with its initial prescription.
func (h *DispensingHandler) AdmitReceiver(c *gin.Context) {
	var req admitReceiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receiver, err := h.svc.AdmitReceiver(c.Request.Context(), dispensing.ReceiverInput{
		FullName:     req.FullName,
		RecordNumber: req.RecordNumber,
		Prescription: req.Prescription.toInput(),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receiver)
}

// ListReceivers returns receivers; pass ?include_discharged=true for the full census.
func (h *DispensingHandler) ListReceivers(c *gin.Context) {
	receivers, err := h.svc.ListReceivers(c.Request.Context(), c.Query("include_discharged") == "true")
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, receivers)
}

// GetReceiver returns one receiver.
func (h *DispensingHandler) GetReceiver(c *gin.Context) {
	receiver, err := h.svc.GetReceiver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiver)
}

// UpdatePrescription replaces a receiver's standing feeding order.
func (h *DispensingHandler) UpdatePrescription(c *gin.Context) {
	var req prescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receiver, err := h.svc.UpdatePrescription(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiver)
}

// DischargeReceiver closes a receiver's stay; no further doses may target them.
func (h *DispensingHandler) DischargeReceiver(c *gin.Context) {
	receiver, err := h.svc.DischargeReceiver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiver)
}
