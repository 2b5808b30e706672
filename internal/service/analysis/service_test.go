package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/pkg/clients/alerts"
)

type fakeJarStore struct {
	jars map[string]models.MilkJar
}

func newFakeJarStore(jars ...models.MilkJar) *fakeJarStore {
	s := &fakeJarStore{jars: map[string]models.MilkJar{}}
	for _, j := range jars {
		s.jars[j.ID] = j
	}
	return s
}

func (s *fakeJarStore) Get(_ context.Context, id string) (models.MilkJar, error) {
	jar, ok := s.jars[id]
	if !ok {
		return models.MilkJar{}, assert.AnError
	}
	return jar, nil
}

func (s *fakeJarStore) Update(_ context.Context, jar models.MilkJar) error {
	s.jars[jar.ID] = jar
	return nil
}

func (s *fakeJarStore) ListByBatch(_ context.Context, batchID string) ([]models.MilkJar, error) {
	var out []models.MilkJar
	for _, j := range s.jars {
		if j.BatchID == batchID {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeBatchStore struct {
	batches map[string]models.MilkBatch
}

func newFakeBatchStore(batches ...models.MilkBatch) *fakeBatchStore {
	s := &fakeBatchStore{batches: map[string]models.MilkBatch{}}
	for _, b := range batches {
		s.batches[b.ID] = b
	}
	return s
}

func (s *fakeBatchStore) Get(_ context.Context, id string) (models.MilkBatch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return models.MilkBatch{}, assert.AnError
	}
	return batch, nil
}

func (s *fakeBatchStore) Update(_ context.Context, batch models.MilkBatch) error {
	s.batches[batch.ID] = batch
	return nil
}

type recordingAlerter struct {
	alerts []alerts.Alert
}

func (a *recordingAlerter) Notify(_ context.Context, alert alerts.Alert) error {
	a.alerts = append(a.alerts, alert)
	return nil
}

func testService(jars *fakeJarStore, batches *fakeBatchStore, alerter alerts.Client) *Service {
	svc := NewService(jars, batches, alerter, 8.0, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC) }
	return svc
}

func verifiedJar(id string) models.MilkJar {
	return models.MilkJar{ID: id, Folio: "LP-20260310-001", Status: models.JarVerified}
}

func TestRecordPhysicalAdvancesToTesting(t *testing.T) {
	jars := newFakeJarStore(verifiedJar("j1"))
	svc := testService(jars, newFakeBatchStore(), nil)

	jar, err := svc.RecordPhysical(context.Background(), "j1", lifecycle.PhysicalInput{Color: "Blanco"}, "qfb.mendez")
	require.NoError(t, err)
	assert.Equal(t, models.JarTesting, jar.Status)
	require.NotNil(t, jar.Physical)
}

func TestRecordPhysicalDiscardsBloodyMilk(t *testing.T) {
	jars := newFakeJarStore(verifiedJar("j1"))
	svc := testService(jars, newFakeBatchStore(), nil)

	jar, err := svc.RecordPhysical(context.Background(), "j1", lifecycle.PhysicalInput{Color: lifecycle.ColorBlood}, "qfb.mendez")
	require.NoError(t, err)
	assert.Equal(t, models.JarDiscarded, jar.Status)
	assert.Contains(t, jar.RejectionReason, "Color anormal")
}

func TestRecordChemicalReleasesAndRejects(t *testing.T) {
	jar := verifiedJar("j1")
	jar.Status = models.JarTesting
	jars := newFakeJarStore(jar)
	svc := testService(jars, newFakeBatchStore(), nil)

	out, err := svc.RecordChemical(context.Background(), "j1", lifecycle.ChemicalInput{
		Aliquots:     [3]float64{7.5, 8.0, 8.5},
		Creamatocrit: 620,
	}, "qfb.mendez")
	require.NoError(t, err)
	assert.Equal(t, models.JarAnalyzed, out.Status)
	require.NotNil(t, out.Chemical)
	assert.InDelta(t, 8.0, out.Chemical.AcidityAvg, 0.001)
	assert.Equal(t, models.Normocaloric, out.Chemical.CaloricClass)
}

func TestRecordChemicalOnDiscardedJarKeepsStatus(t *testing.T) {
	jar := verifiedJar("j1")
	jar.Status = models.JarDiscarded
	jar.RejectionReason = "Color anormal: Rojo/Sangre"
	jars := newFakeJarStore(jar)
	svc := testService(jars, newFakeBatchStore(), nil)

	out, err := svc.RecordChemical(context.Background(), "j1", lifecycle.ChemicalInput{
		Aliquots:     [3]float64{9.0, 9.0, 9.0},
		Creamatocrit: 550,
	}, "qfb.mendez")
	require.NoError(t, err)
	assert.Equal(t, models.JarDiscarded, out.Status)
	assert.Equal(t, "Color anormal: Rojo/Sangre", out.RejectionReason)
	require.NotNil(t, out.Chemical)
	assert.InDelta(t, 9.0, out.Chemical.AcidityAvg, 0.001)
}

func TestRecordPasteurizationMovesToQuarantine(t *testing.T) {
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Folio: "LB-20260310-001", Status: models.BatchRaw})
	svc := testService(newFakeJarStore(), batches, nil)

	batch, err := svc.RecordPasteurization(context.Background(), "b1", PasteurizationInput{
		TempCurve:   []models.TempPoint{{Minute: 0, TempC: 62.5}, {Minute: 30, TempC: 62.5}},
		Responsible: "qfb.mendez",
		Completed:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchQuarantine, batch.Status)
	require.NotNil(t, batch.Pasteurization)

	// A second run on the same batch is an illegal transition.
	_, err = svc.RecordPasteurization(context.Background(), "b1", PasteurizationInput{Responsible: "qfb.mendez"})
	var terr *lifecycle.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestRecordMicrobiologyNegativeReleases(t *testing.T) {
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Folio: "LB-20260310-001", Status: models.BatchQuarantine})
	alerter := &recordingAlerter{}
	svc := testService(newFakeJarStore(), batches, alerter)

	batch, err := svc.RecordMicrobiology(context.Background(), "b1", MicrobiologyInput{
		Result: models.CultureNegative, Responsible: "qfb.mendez",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchReleased, batch.Status)
	assert.Empty(t, alerter.alerts)
}

func TestRecordMicrobiologyPositiveDiscardsAndAlerts(t *testing.T) {
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Folio: "LB-20260310-001", Status: models.BatchQuarantine})
	alerter := &recordingAlerter{}
	svc := testService(newFakeJarStore(), batches, alerter)

	batch, err := svc.RecordMicrobiology(context.Background(), "b1", MicrobiologyInput{
		Result: models.CulturePositive, Responsible: "qfb.mendez",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchDiscarded, batch.Status)
	assert.Equal(t, "Cultivo microbiológico positivo", batch.RejectionReason)
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, alerts.SeverityCritical, alerter.alerts[0].Severity)
}

func TestRecordMicrobiologyRequiresQuarantine(t *testing.T) {
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Status: models.BatchRaw})
	svc := testService(newFakeJarStore(), batches, nil)

	_, err := svc.RecordMicrobiology(context.Background(), "b1", MicrobiologyInput{Result: models.CultureNegative})
	var terr *lifecycle.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestDiscardBatchNeedsReason(t *testing.T) {
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Status: models.BatchReleased})
	svc := testService(newFakeJarStore(), batches, nil)

	_, err := svc.DiscardBatch(context.Background(), "b1", "")
	assert.ErrorIs(t, err, lifecycle.ErrMissingReason)

	batch, err := svc.DiscardBatch(context.Background(), "b1", "Ruptura de cadena de frío")
	require.NoError(t, err)
	assert.Equal(t, models.BatchDiscarded, batch.Status)
	assert.Equal(t, "Ruptura de cadena de frío", batch.RejectionReason)
}

func TestBatchSummaryAggregatesMembers(t *testing.T) {
	jars := newFakeJarStore(
		models.MilkJar{ID: "j1", BatchID: "b1", Status: models.JarAnalyzed, Chemical: &models.ChemicalResult{AcidityAvg: 6.5}},
		models.MilkJar{ID: "j2", BatchID: "b1", Status: models.JarDiscarded, Chemical: &models.ChemicalResult{AcidityAvg: 8.5}},
		models.MilkJar{ID: "j3", BatchID: "otro", Status: models.JarAnalyzed, Chemical: &models.ChemicalResult{AcidityAvg: 7.0}},
	)
	batches := newFakeBatchStore(models.MilkBatch{ID: "b1", Status: models.BatchRaw})
	svc := testService(jars, batches, nil)

	summary, err := svc.BatchSummary(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Rejected)
}
