package lifecycle

import (
	"fmt"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// DoseRequest carries the volumes and conditions of one feeding event.
type DoseRequest struct {
	PrescribedML   float64
	AdministeredML float64
	DiscardedML    float64
	DiscardReason  string
	TempC          float64
}

// DoseLimits are the non-blocking warning thresholds for administration.
type DoseLimits struct {
	PerTakeML float64 // 0 disables the prescription warning
	TempMinC  float64
	TempMaxC  float64
}

// ValidateDose checks a feeding event against a batch. It returns the
// non-blocking warnings on success and a typed error on failure; the
// batch is never mutated here, callers apply the decrement after the
// record is persisted.
func ValidateDose(batch models.MilkBatch, req DoseRequest, limits DoseLimits) ([]string, error) {
	if batch.Status != models.BatchReleased {
		return nil, &TransitionError{
			Entity: "batch",
			From:   string(batch.Status),
			To:     string(models.BatchReleased),
			Reason: "only released batches can be administered",
		}
	}
	if batch.VolumeTotalML <= 0 {
		return nil, &InsufficientVolumeError{RequestedML: req.AdministeredML + req.DiscardedML, AvailableML: batch.VolumeTotalML}
	}
	if req.AdministeredML < 0 {
		return nil, &ValidationError{Field: "administered volume", Reason: "must not be negative"}
	}
	if req.DiscardedML < 0 {
		return nil, &ValidationError{Field: "discarded volume", Reason: "must not be negative"}
	}
	if req.AdministeredML+req.DiscardedML <= 0 {
		return nil, &ValidationError{Field: "volume", Reason: "administered plus discarded must be positive"}
	}
	if req.DiscardedML > 0 && req.DiscardReason == "" {
		return nil, ErrMissingReason
	}

	total := req.AdministeredML + req.DiscardedML
	if total > batch.VolumeTotalML {
		return nil, &InsufficientVolumeError{RequestedML: total, AvailableML: batch.VolumeTotalML}
	}

	var warnings []string
	if limits.PerTakeML > 0 && req.AdministeredML > limits.PerTakeML {
		warnings = append(warnings, fmt.Sprintf("volumen administrado %.1f mL excede la toma prescrita de %.1f mL", req.AdministeredML, limits.PerTakeML))
	}
	if req.TempC < limits.TempMinC || req.TempC > limits.TempMaxC {
		warnings = append(warnings, fmt.Sprintf("temperatura de administración %.1f°C fuera del rango %.0f-%.0f°C", req.TempC, limits.TempMinC, limits.TempMaxC))
	}

	return warnings, nil
}
