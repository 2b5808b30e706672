package lifecycle

import (
	"sort"
	"time"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// PoolJar is the projection of an eligible jar the selector works on.
// Heterologous mirrors the donor's classification at pooling time.
type PoolJar struct {
	ID           string
	Folio        string
	DonorID      string
	Type         models.MilkType
	VolumeML     float64
	ExtractedAt  time.Time
	Heterologous bool
}

// Selector enforces PEPS (oldest-first) ordering over one pool snapshot.
//
// The selected set is always a contiguous prefix of the pool sorted by
// extraction time: Select only admits the oldest unselected jar and
// Deselect only releases the newest selected one. Ties on extraction
// time break by folio, then ID, so the order is stable across reads.
//
// A Selector is built from a fresh pool read; callers operating against
// shared storage must rebuild it before every call so the prefix is
// re-validated against the current pool.
type Selector struct {
	milkType models.MilkType
	pool     []PoolJar
	selected map[string]bool
}

// NewSelector builds a selector for one milk type. Pool entries of a
// different milk type are kept so that selecting one can be answered
// with MixedTypeError rather than ErrJarNotInPool.
func NewSelector(milkType models.MilkType, pool []PoolJar, selectedIDs []string) *Selector {
	sorted := make([]PoolJar, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ExtractedAt.Equal(sorted[j].ExtractedAt) {
			return sorted[i].ExtractedAt.Before(sorted[j].ExtractedAt)
		}
		if sorted[i].Folio != sorted[j].Folio {
			return sorted[i].Folio < sorted[j].Folio
		}
		return sorted[i].ID < sorted[j].ID
	})

	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	return &Selector{milkType: milkType, pool: sorted, selected: selected}
}

// Select marks a jar as chosen for the batch under construction. It
// fails with PepsViolation when any older jar of the pool is still
// unselected, and with MixedTypeError when the jar's milk type differs
// from the selector's.
func (s *Selector) Select(jarID string) error {
	target, ok := s.find(jarID)
	if !ok {
		return ErrJarNotInPool
	}
	if target.Type != s.milkType {
		return &MixedTypeError{Selected: s.milkType, Attempted: target.Type}
	}
	if s.selected[jarID] {
		return nil
	}

	olderUnselected := 0
	for _, jar := range s.ordered() {
		if jar.ID == jarID {
			break
		}
		if !s.selected[jar.ID] {
			olderUnselected++
		}
	}
	if olderUnselected > 0 {
		return &PepsViolation{OlderUnselected: olderUnselected}
	}

	s.selected[jarID] = true
	return nil
}

// Deselect releases a jar from the selection. It fails with
// PepsViolation when any newer jar is still selected, preserving the
// contiguous-prefix invariant.
func (s *Selector) Deselect(jarID string) error {
	if _, ok := s.find(jarID); !ok {
		return ErrJarNotInPool
	}
	if !s.selected[jarID] {
		return nil
	}

	newerSelected := 0
	seen := false
	for _, jar := range s.ordered() {
		if jar.ID == jarID {
			seen = true
			continue
		}
		if seen && s.selected[jar.ID] {
			newerSelected++
		}
	}
	if newerSelected > 0 {
		return &PepsViolation{NewerSelected: newerSelected}
	}

	delete(s.selected, jarID)
	return nil
}

// Selected returns the chosen jars in extraction order.
func (s *Selector) Selected() []PoolJar {
	var out []PoolJar
	for _, jar := range s.ordered() {
		if s.selected[jar.ID] {
			out = append(out, jar)
		}
	}
	return out
}

// SelectedIDs returns the chosen jar IDs in extraction order.
func (s *Selector) SelectedIDs() []string {
	jars := s.Selected()
	ids := make([]string, len(jars))
	for i, jar := range jars {
		ids[i] = jar.ID
	}
	return ids
}

// Pool returns the pool in extraction order, restricted to the
// selector's milk type.
func (s *Selector) Pool() []PoolJar {
	var out []PoolJar
	for _, jar := range s.pool {
		if jar.Type == s.milkType {
			out = append(out, jar)
		}
	}
	return out
}

// IsSelected reports whether the jar is part of the current selection.
func (s *Selector) IsSelected(jarID string) bool { return s.selected[jarID] }

// CommitPlan is the batch blueprint derived from a validated selection.
type CommitPlan struct {
	JarIDs        []string
	DonorIDs      []string
	MilkType      models.MilkType
	Type          models.BatchType
	VolumeTotalML float64
}

// Commit validates the whole selection and derives the batch plan:
// unique donors capped at maxDonors, total volume as the sum of member
// volumes, batch type heterologous when any member jar is.
func (s *Selector) Commit(maxDonors int) (CommitPlan, error) {
	jars := s.Selected()
	if len(jars) == 0 {
		return CommitPlan{}, ErrEmptySelection
	}

	// Re-check the prefix invariant over the full pool: the selection
	// must be exactly the oldest-N jars of the milk type.
	for i, jar := range s.Pool() {
		if i < len(jars) {
			if jar.ID != jars[i].ID {
				return CommitPlan{}, &PepsViolation{OlderUnselected: 1}
			}
			continue
		}
		break
	}

	plan := CommitPlan{MilkType: s.milkType, Type: models.BatchHomologous}
	donorSeen := make(map[string]bool)
	for _, jar := range jars {
		if jar.VolumeML <= 0 {
			return CommitPlan{}, &ValidationError{Field: "jar volume", Reason: "must be positive"}
		}
		plan.JarIDs = append(plan.JarIDs, jar.ID)
		if !donorSeen[jar.DonorID] {
			donorSeen[jar.DonorID] = true
			plan.DonorIDs = append(plan.DonorIDs, jar.DonorID)
		}
		plan.VolumeTotalML += jar.VolumeML
		if jar.Heterologous {
			plan.Type = models.BatchHeterologous
		}
	}

	if len(plan.DonorIDs) > maxDonors {
		return CommitPlan{}, &DonorCapError{Donors: len(plan.DonorIDs), Cap: maxDonors}
	}

	return plan, nil
}

func (s *Selector) ordered() []PoolJar { return s.Pool() }

func (s *Selector) find(jarID string) (PoolJar, bool) {
	for _, jar := range s.pool {
		if jar.ID == jarID {
			return jar, true
		}
	}
	return PoolJar{}, false
}
