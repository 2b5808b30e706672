// Package pooling builds batches out of eligible jars under PEPS
// discipline. Selection state lives in in-memory sessions; the eligible
// pool is re-read from storage before every operation so ordering is
// always validated against current data.
package pooling

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/pkg/folio"
)

// ErrSessionNotFound indicates the selection session is unknown or closed.
var ErrSessionNotFound = errors.New("pooling session not found")

// JarStore is the jar persistence required by the service.
type JarStore interface {
	ListEligible(ctx context.Context, milkType models.MilkType) ([]models.MilkJar, error)
	AssignBatch(ctx context.Context, jarIDs []string, batchID string, entry models.HistoryEntry) error
}

// BatchStore is the batch persistence required by the service.
type BatchStore interface {
	Insert(ctx context.Context, batch models.MilkBatch) error
	CountCreatedOn(ctx context.Context, day time.Time) (int64, error)
}

// DonorStore resolves donor classifications for the pool projection.
type DonorStore interface {
	Get(ctx context.Context, id string) (models.Donor, error)
}

// Session is one in-progress batch selection.
type Session struct {
	ID        string          `json:"id"`
	MilkType  models.MilkType `json:"milk_type"`
	Selected  []string        `json:"selected"`
	CreatedAt time.Time       `json:"created_at"`
}

// PoolView is the session state rendered for the caller.
type PoolView struct {
	Session Session       `json:"session"`
	Pool    []PoolJarView `json:"pool"`
}

// PoolJarView is one eligible jar with its selection flag.
type PoolJarView struct {
	ID          string          `json:"id"`
	Folio       string          `json:"folio"`
	DonorID     string          `json:"donor_id"`
	Type        models.MilkType `json:"type"`
	VolumeML    float64         `json:"volume_ml"`
	ExtractedAt time.Time       `json:"extracted_at"`
	Selected    bool            `json:"selected"`
}

// Service manages pooling sessions and batch commits.
type Service struct {
	jars              JarStore
	batches           BatchStore
	donors            DonorStore
	maxDonorsPerBatch int
	shelfLifeMonths   int
	logger            *zap.Logger
	now               func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService constructs the pooling service.
func NewService(jars JarStore, batches BatchStore, donors DonorStore, maxDonorsPerBatch, shelfLifeMonths int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jars:              jars,
		batches:           batches,
		donors:            donors,
		maxDonorsPerBatch: maxDonorsPerBatch,
		shelfLifeMonths:   shelfLifeMonths,
		logger:            logger,
		now:               time.Now,
		sessions:          make(map[string]*Session),
	}
}

// OpenSession starts a selection for one milk type.
func (s *Service) OpenSession(milkType models.MilkType) (Session, error) {
	switch milkType {
	case models.Colostrum, models.Transition, models.Mature:
	default:
		return Session{}, &lifecycle.ValidationError{Field: "milk type", Reason: "unknown value"}
	}

	session := &Session{ID: folio.NewID(), MilkType: milkType, CreatedAt: s.now().UTC()}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("pooling session opened",
		zap.String("session_id", session.ID), zap.String("milk_type", string(milkType)))
	return *session, nil
}

// View renders the current pool and selection of a session.
func (s *Service) View(ctx context.Context, sessionID string) (PoolView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return PoolView{}, ErrSessionNotFound
	}

	selector, err := s.freshSelector(ctx, session)
	if err != nil {
		return PoolView{}, err
	}

	view := PoolView{Session: *session}
	for _, jar := range selector.Pool() {
		view.Pool = append(view.Pool, PoolJarView{
			ID:          jar.ID,
			Folio:       jar.Folio,
			DonorID:     jar.DonorID,
			Type:        jar.Type,
			VolumeML:    jar.VolumeML,
			ExtractedAt: jar.ExtractedAt,
			Selected:    selector.IsSelected(jar.ID),
		})
	}
	return view, nil
}

// Select adds a jar to the session under PEPS ordering.
func (s *Service) Select(ctx context.Context, sessionID, jarID string) error {
	return s.mutate(ctx, sessionID, func(sel *lifecycle.Selector) error {
		return sel.Select(jarID)
	})
}

// Deselect removes a jar from the session, newest-first.
func (s *Service) Deselect(ctx context.Context, sessionID, jarID string) error {
	return s.mutate(ctx, sessionID, func(sel *lifecycle.Selector) error {
		return sel.Deselect(jarID)
	})
}

// Commit turns the session's selection into a batch: the selection is
// re-validated against a fresh pool read, the batch is created Raw with
// its expiry defaulted from the shelf life, and member jars are marked
// consumed. The session is closed on success.
func (s *Service) Commit(ctx context.Context, sessionID, by string) (models.MilkBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return models.MilkBatch{}, ErrSessionNotFound
	}

	selector, err := s.freshSelector(ctx, session)
	if err != nil {
		return models.MilkBatch{}, err
	}

	plan, err := selector.Commit(s.maxDonorsPerBatch)
	if err != nil {
		return models.MilkBatch{}, err
	}

	now := s.now().UTC()
	seq, err := s.batches.CountCreatedOn(ctx, now)
	if err != nil {
		return models.MilkBatch{}, err
	}

	batch := models.MilkBatch{
		ID:            folio.NewID(),
		Folio:         folio.Format(folio.PrefixBatch, now, int(seq)+1),
		DonorIDs:      plan.DonorIDs,
		JarIDs:        plan.JarIDs,
		Type:          plan.Type,
		MilkType:      plan.MilkType,
		VolumeTotalML: plan.VolumeTotalML,
		Status:        models.BatchRaw,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, s.shelfLifeMonths, 0),
		UpdatedAt:     now,
	}

	if err := s.batches.Insert(ctx, batch); err != nil {
		return models.MilkBatch{}, err
	}
	if err := s.jars.AssignBatch(ctx, plan.JarIDs, batch.ID, models.HistoryEntry{
		At: now, Action: "agrupacion", By: by, Detail: "lote " + batch.Folio,
	}); err != nil {
		return models.MilkBatch{}, err
	}

	delete(s.sessions, sessionID)

	s.logger.Info("batch committed",
		zap.String("batch_id", batch.ID), zap.String("folio", batch.Folio),
		zap.Int("jars", len(batch.JarIDs)), zap.Float64("volume_ml", batch.VolumeTotalML))
	return batch, nil
}

// CloseSession abandons a selection without creating a batch.
func (s *Service) CloseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Service) mutate(ctx context.Context, sessionID string, op func(*lifecycle.Selector) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	selector, err := s.freshSelector(ctx, session)
	if err != nil {
		return err
	}
	if err := op(selector); err != nil {
		return err
	}

	session.Selected = selector.SelectedIDs()
	return nil
}

// freshSelector re-reads the eligible pool and rebuilds the selector
// around the session's selection. Jars that left the pool since the
// last read silently drop out of the selection.
func (s *Service) freshSelector(ctx context.Context, session *Session) (*lifecycle.Selector, error) {
	jars, err := s.jars.ListEligible(ctx, session.MilkType)
	if err != nil {
		return nil, err
	}

	pool := make([]lifecycle.PoolJar, 0, len(jars))
	classifications := make(map[string]bool)
	for _, jar := range jars {
		heterologous, seen := classifications[jar.DonorID]
		if !seen {
			donor, err := s.donors.Get(ctx, jar.DonorID)
			if err != nil {
				return nil, err
			}
			heterologous = donor.Classification == models.Heterologous
			classifications[jar.DonorID] = heterologous
		}
		pool = append(pool, lifecycle.PoolJar{
			ID:           jar.ID,
			Folio:        jar.Folio,
			DonorID:      jar.DonorID,
			Type:         jar.Type,
			VolumeML:     jar.VolumeML,
			ExtractedAt:  jar.ExtractedAt,
			Heterologous: heterologous,
		})
	}

	inPool := make(map[string]bool, len(pool))
	for _, jar := range pool {
		inPool[jar.ID] = true
	}
	kept := session.Selected[:0:0]
	for _, id := range session.Selected {
		if inPool[id] {
			kept = append(kept, id)
		}
	}
	session.Selected = kept

	return lifecycle.NewSelector(session.MilkType, pool, session.Selected), nil
}
