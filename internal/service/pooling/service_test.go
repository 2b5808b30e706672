package pooling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

type fakeJarStore struct {
	eligible []models.MilkJar
	assigned map[string]string
}

func newFakeJarStore(jars ...models.MilkJar) *fakeJarStore {
	return &fakeJarStore{eligible: jars, assigned: map[string]string{}}
}

func (s *fakeJarStore) ListEligible(_ context.Context, milkType models.MilkType) ([]models.MilkJar, error) {
	var out []models.MilkJar
	for _, j := range s.eligible {
		if j.Type == milkType {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeJarStore) AssignBatch(_ context.Context, jarIDs []string, batchID string, _ models.HistoryEntry) error {
	for _, id := range jarIDs {
		s.assigned[id] = batchID
	}
	remaining := s.eligible[:0]
	for _, j := range s.eligible {
		if s.assigned[j.ID] == "" {
			remaining = append(remaining, j)
		}
	}
	s.eligible = remaining
	return nil
}

type fakeBatchStore struct {
	inserted []models.MilkBatch
}

func (s *fakeBatchStore) Insert(_ context.Context, batch models.MilkBatch) error {
	s.inserted = append(s.inserted, batch)
	return nil
}

func (s *fakeBatchStore) CountCreatedOn(_ context.Context, _ time.Time) (int64, error) {
	return int64(len(s.inserted)), nil
}

type fakeDonorStore struct {
	donors map[string]models.Donor
}

func (s *fakeDonorStore) Get(_ context.Context, id string) (models.Donor, error) {
	donor, ok := s.donors[id]
	if !ok {
		return models.Donor{}, assert.AnError
	}
	return donor, nil
}

func eligibleJar(id, folio, donorID string, extractedDay int) models.MilkJar {
	return models.MilkJar{
		ID:          id,
		Folio:       folio,
		DonorID:     donorID,
		Type:        models.Mature,
		VolumeML:    100,
		ExtractedAt: time.Date(2026, 3, extractedDay, 8, 0, 0, 0, time.UTC),
		Status:      models.JarAnalyzed,
	}
}

func homologousDonors(ids ...string) *fakeDonorStore {
	donors := map[string]models.Donor{}
	for _, id := range ids {
		donors[id] = models.Donor{ID: id, Classification: models.HomologousInternal, Status: models.DonorActive}
	}
	return &fakeDonorStore{donors: donors}
}

func newTestService(jars *fakeJarStore, batches *fakeBatchStore, donors *fakeDonorStore) *Service {
	svc := NewService(jars, batches, donors, 3, 6, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestOpenSessionRejectsUnknownMilkType(t *testing.T) {
	svc := newTestService(newFakeJarStore(), &fakeBatchStore{}, homologousDonors())
	_, err := svc.OpenSession("evaporada")
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSelectEnforcesOldestFirst(t *testing.T) {
	jars := newFakeJarStore(
		eligibleJar("j1", "LP-20260301-001", "d1", 1),
		eligibleJar("j2", "LP-20260305-001", "d2", 5),
	)
	svc := newTestService(jars, &fakeBatchStore{}, homologousDonors("d1", "d2"))

	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)

	var peps *lifecycle.PepsViolation
	err = svc.Select(context.Background(), session.ID, "j2")
	require.ErrorAs(t, err, &peps)
	assert.Equal(t, 1, peps.OlderUnselected)

	require.NoError(t, svc.Select(context.Background(), session.ID, "j1"))
	require.NoError(t, svc.Select(context.Background(), session.ID, "j2"))

	view, err := svc.View(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, view.Pool, 2)
	assert.True(t, view.Pool[0].Selected)
	assert.True(t, view.Pool[1].Selected)
}

func TestSelectionSurvivesPoolShrink(t *testing.T) {
	jars := newFakeJarStore(
		eligibleJar("j1", "LP-20260301-001", "d1", 1),
		eligibleJar("j2", "LP-20260305-001", "d2", 5),
	)
	svc := newTestService(jars, &fakeBatchStore{}, homologousDonors("d1", "d2"))

	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)
	require.NoError(t, svc.Select(context.Background(), session.ID, "j1"))
	require.NoError(t, svc.Select(context.Background(), session.ID, "j2"))

	// j1 leaves the pool between reads (discarded by the lab).
	jars.eligible = jars.eligible[1:]

	view, err := svc.View(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, view.Pool, 1)
	assert.Equal(t, "j2", view.Pool[0].ID)
	assert.True(t, view.Pool[0].Selected)
}

func TestCommitBuildsRawBatch(t *testing.T) {
	jars := newFakeJarStore(
		eligibleJar("j1", "LP-20260301-001", "d1", 1),
		eligibleJar("j2", "LP-20260303-001", "d1", 3),
		eligibleJar("j3", "LP-20260305-001", "d2", 5),
	)
	batches := &fakeBatchStore{}
	svc := newTestService(jars, batches, homologousDonors("d1", "d2"))

	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)
	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, svc.Select(context.Background(), session.ID, id))
	}

	batch, err := svc.Commit(context.Background(), session.ID, "qfb.mendez")
	require.NoError(t, err)

	assert.Equal(t, "LB-20260310-001", batch.Folio)
	assert.Equal(t, models.BatchRaw, batch.Status)
	assert.Equal(t, models.BatchHomologous, batch.Type)
	assert.Equal(t, models.Mature, batch.MilkType)
	assert.InDelta(t, 300, batch.VolumeTotalML, 0.001)
	assert.ElementsMatch(t, []string{"d1", "d2"}, batch.DonorIDs)
	assert.Equal(t, time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC), batch.ExpiresAt)

	for _, id := range []string{"j1", "j2", "j3"} {
		assert.Equal(t, batch.ID, jars.assigned[id])
	}

	// Session is gone after commit.
	_, err = svc.View(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCommitFlagsHeterologousMember(t *testing.T) {
	donors := homologousDonors("d1")
	donors.donors["d2"] = models.Donor{ID: "d2", Classification: models.Heterologous}
	jars := newFakeJarStore(
		eligibleJar("j1", "LP-20260301-001", "d1", 1),
		eligibleJar("j2", "LP-20260303-001", "d2", 3),
	)
	svc := newTestService(jars, &fakeBatchStore{}, donors)

	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)
	require.NoError(t, svc.Select(context.Background(), session.ID, "j1"))
	require.NoError(t, svc.Select(context.Background(), session.ID, "j2"))

	batch, err := svc.Commit(context.Background(), session.ID, "qfb.mendez")
	require.NoError(t, err)
	assert.Equal(t, models.BatchHeterologous, batch.Type)
}

func TestCommitRejectsTooManyDonors(t *testing.T) {
	jars := newFakeJarStore(
		eligibleJar("j1", "LP-20260301-001", "d1", 1),
		eligibleJar("j2", "LP-20260302-001", "d2", 2),
		eligibleJar("j3", "LP-20260303-001", "d3", 3),
		eligibleJar("j4", "LP-20260304-001", "d4", 4),
	)
	svc := newTestService(jars, &fakeBatchStore{}, homologousDonors("d1", "d2", "d3", "d4"))

	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)
	for _, id := range []string{"j1", "j2", "j3", "j4"} {
		require.NoError(t, svc.Select(context.Background(), session.ID, id))
	}

	_, err = svc.Commit(context.Background(), session.ID, "qfb.mendez")
	var capErr *lifecycle.DonorCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 4, capErr.Donors)
}

func TestCommitEmptySelection(t *testing.T) {
	svc := newTestService(newFakeJarStore(), &fakeBatchStore{}, homologousDonors())
	session, err := svc.OpenSession(models.Mature)
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), session.ID, "qfb.mendez")
	assert.ErrorIs(t, err, lifecycle.ErrEmptySelection)
}
