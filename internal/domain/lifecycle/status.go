package lifecycle

import (
	"fmt"
	"strings"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// jarTransitions lists the legal forward moves for a jar. Discarded is
// additionally reachable from every non-terminal state via a rejection.
var jarTransitions = map[models.JarStatus][]models.JarStatus{
	models.JarRaw:      {models.JarVerified},
	models.JarVerified: {models.JarTesting},
	models.JarTesting:  {models.JarAnalyzed},
}

var batchTransitions = map[models.BatchStatus][]models.BatchStatus{
	models.BatchRaw:        {models.BatchQuarantine},
	models.BatchQuarantine: {models.BatchReleased},
}

// ValidateJarTransition reports whether a jar may move between the two
// states. Any non-terminal state may move to Discarded.
func ValidateJarTransition(from, to models.JarStatus) error {
	if to == models.JarDiscarded {
		if from == models.JarDiscarded {
			return &TransitionError{Entity: "jar", From: string(from), To: string(to), Reason: "already discarded"}
		}
		return nil
	}
	for _, next := range jarTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{Entity: "jar", From: string(from), To: string(to)}
}

// ValidateBatchTransition reports whether a batch may move between the
// two states. Any non-terminal state may move to Discarded.
func ValidateBatchTransition(from, to models.BatchStatus) error {
	if to == models.BatchDiscarded {
		if from == models.BatchDiscarded {
			return &TransitionError{Entity: "batch", From: string(from), To: string(to), Reason: "already discarded"}
		}
		return nil
	}
	for _, next := range batchTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{Entity: "batch", From: string(from), To: string(to)}
}

// ReceptionInput carries the physical verification data taken at intake.
type ReceptionInput struct {
	TempC   float64
	Arrival models.ArrivalState
	Clean   bool
	Sealed  bool
	Labeled bool
}

// ReceptionOutcome is the verdict of the reception verification.
// A rejected jar always carries a non-empty reason.
type ReceptionOutcome struct {
	Accepted bool
	Reason   string
}

// VerifyReception decides Raw -> Verified or Raw -> Discarded. The
// temperature ceiling does not apply to jars declared frozen on arrival.
func VerifyReception(in ReceptionInput, maxTempC float64) ReceptionOutcome {
	var failures []string

	if in.Arrival != models.ArrivalFrozen && in.TempC > maxTempC {
		failures = append(failures, fmt.Sprintf("temperatura de recepción %.1f°C excede %.1f°C", in.TempC, maxTempC))
	}
	if !in.Clean {
		failures = append(failures, "frasco no limpio")
	}
	if !in.Sealed {
		failures = append(failures, "frasco no sellado")
	}
	if !in.Labeled {
		failures = append(failures, "frasco sin etiqueta")
	}

	if len(failures) > 0 {
		return ReceptionOutcome{Reason: strings.Join(failures, "; ")}
	}
	return ReceptionOutcome{Accepted: true}
}

// ReleaseDecision maps a microbiology result onto the batch status it
// triggers out of quarantine. The result is a manual entry, never timed.
func ReleaseDecision(result models.MicrobiologyResult) (models.BatchStatus, error) {
	switch result {
	case models.CultureNegative:
		return models.BatchReleased, nil
	case models.CulturePositive:
		return models.BatchDiscarded, nil
	default:
		return "", &ValidationError{Field: "microbiology result", Reason: fmt.Sprintf("unknown result %q", result)}
	}
}
