// Package lifecycle is the milk lifecycle engine: the jar/batch status
// machine, the PEPS (oldest-first) pooling selector, the analysis
// evaluator and the dosage validation rules. Everything here is pure:
// no storage, no clock reads, no logging. Callers fetch entities, run
// the engine, and persist the outcome.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// ErrMissingReason is returned when milk is discarded without a stated reason.
var ErrMissingReason = errors.New("discard reason is required when discarded volume is greater than zero")

// ErrJarNotInPool is returned when a selection targets a jar absent from
// the eligible pool, typically because the pool changed since it was read.
var ErrJarNotInPool = errors.New("jar is not part of the eligible pool")

// ErrEmptySelection is returned when committing a batch with no jars selected.
var ErrEmptySelection = errors.New("no jars selected")

// ValidationError flags malformed or out-of-range input. It is always
// raised before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError flags an illegal status move.
type TransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// PepsViolation flags a selection or deselection that would break the
// oldest-first ordering. Exactly one of the counters is non-zero.
type PepsViolation struct {
	// OlderUnselected is the number of older jars that must be selected first.
	OlderUnselected int
	// NewerSelected is the number of newer jars that must be deselected first.
	NewerSelected int
}

func (e *PepsViolation) Error() string {
	if e.OlderUnselected > 0 {
		return fmt.Sprintf("PEPS violation: %d older jar(s) must be selected first", e.OlderUnselected)
	}
	return fmt.Sprintf("PEPS violation: %d newer jar(s) must be deselected first", e.NewerSelected)
}

// MixedTypeError flags an attempt to mix milk types within one batch.
type MixedTypeError struct {
	Selected  models.MilkType
	Attempted models.MilkType
}

func (e *MixedTypeError) Error() string {
	return fmt.Sprintf("cannot mix milk types: batch holds %s, jar is %s", e.Selected, e.Attempted)
}

// DonorCapError flags a batch commit exceeding the unique-donor limit.
type DonorCapError struct {
	Donors int
	Cap    int
}

func (e *DonorCapError) Error() string {
	return fmt.Sprintf("batch would span %d donors, limit is %d", e.Donors, e.Cap)
}

// InsufficientVolumeError flags a dose that exceeds the batch's remaining volume.
type InsufficientVolumeError struct {
	RequestedML float64
	AvailableML float64
}

func (e *InsufficientVolumeError) Error() string {
	return fmt.Sprintf("requested %.1f mL but only %.1f mL available", e.RequestedML, e.AvailableML)
}
