package dispensing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/repository/mongodb"
)

type fakeBatchStore struct {
	batch     models.MilkBatch
	conflicts int
}

func (s *fakeBatchStore) Get(_ context.Context, _ string) (models.MilkBatch, error) {
	return s.batch, nil
}

func (s *fakeBatchStore) ApplyConsumption(_ context.Context, _ string, version int64, volumeML float64, _ time.Time) error {
	if s.conflicts > 0 {
		s.conflicts--
		s.batch.Version++
		return mongodb.ErrVersionConflict
	}
	if version != s.batch.Version {
		return mongodb.ErrVersionConflict
	}
	if s.batch.VolumeTotalML < volumeML {
		return mongodb.ErrVersionConflict
	}
	s.batch.VolumeTotalML -= volumeML
	s.batch.Version++
	return nil
}

type fakeLedgerStore struct {
	records map[string]*models.AdministrationRecord
	order   []string
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{records: map[string]*models.AdministrationRecord{}}
}

func (s *fakeLedgerStore) Append(_ context.Context, record models.AdministrationRecord) error {
	s.records[record.ID] = &record
	s.order = append(s.order, record.ID)
	return nil
}

func (s *fakeLedgerStore) Void(_ context.Context, id, reason string) error {
	record, ok := s.records[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	record.Voided = true
	record.VoidReason = reason
	return nil
}

func (s *fakeLedgerStore) List(_ context.Context, batchID, receiverID string) ([]models.AdministrationRecord, error) {
	var out []models.AdministrationRecord
	for _, id := range s.order {
		r := s.records[id]
		if batchID != "" && r.BatchID != batchID {
			continue
		}
		if receiverID != "" && r.ReceiverID != receiverID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeLedgerStore) CountOn(_ context.Context, _ time.Time) (int64, error) {
	return int64(len(s.order)), nil
}

type fakeReceiverStore struct {
	receivers map[string]models.Receiver
}

func newFakeReceiverStore(receivers ...models.Receiver) *fakeReceiverStore {
	s := &fakeReceiverStore{receivers: map[string]models.Receiver{}}
	for _, r := range receivers {
		s.receivers[r.ID] = r
	}
	return s
}

func (s *fakeReceiverStore) Insert(_ context.Context, receiver models.Receiver) error {
	s.receivers[receiver.ID] = receiver
	return nil
}

func (s *fakeReceiverStore) Get(_ context.Context, id string) (models.Receiver, error) {
	receiver, ok := s.receivers[id]
	if !ok {
		return models.Receiver{}, mongodb.ErrNotFound
	}
	return receiver, nil
}

func (s *fakeReceiverStore) Update(_ context.Context, receiver models.Receiver) error {
	s.receivers[receiver.ID] = receiver
	return nil
}

func (s *fakeReceiverStore) List(_ context.Context, includeDischarged bool) ([]models.Receiver, error) {
	var out []models.Receiver
	for _, r := range s.receivers {
		if !includeDischarged && r.Discharged {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func admittedReceiver(id string) models.Receiver {
	return models.Receiver{
		ID:       id,
		FullName: "RN Hernández",
		Prescription: models.Prescription{
			TotalDailyML: 240, FeedingsPerDay: 8, PerTakeML: 30,
		},
	}
}

func testService(batches *fakeBatchStore, ledger *fakeLedgerStore, receivers *fakeReceiverStore) *Service {
	svc := NewService(batches, ledger, receivers, 14, 18, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC) }
	return svc
}

func releasedBatch(volume float64) models.MilkBatch {
	return models.MilkBatch{
		ID: "b1", Folio: "LB-20260310-001",
		Status: models.BatchReleased, VolumeTotalML: volume,
	}
}

func TestAdministerDecrementsBatch(t *testing.T) {
	batches := &fakeBatchStore{batch: releasedBatch(100)}
	ledger := newFakeLedgerStore()
	svc := testService(batches, ledger, newFakeReceiverStore(admittedReceiver("r1")))

	record, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1",
		PrescribedML: 25, AdministeredML: 25, TempC: 16,
		Route: models.RouteOral, Responsible: "enf.ruiz",
	})
	require.NoError(t, err)
	assert.Equal(t, "AD-20260312-001", record.Folio)
	assert.Empty(t, record.Warnings)
	assert.False(t, record.Voided)
	assert.InDelta(t, 75, batches.batch.VolumeTotalML, 0.001)
}

func TestAdministerSequenceExhaustsBatch(t *testing.T) {
	batches := &fakeBatchStore{batch: releasedBatch(100)}
	ledger := newFakeLedgerStore()
	svc := testService(batches, ledger, newFakeReceiverStore(admittedReceiver("r1")))

	_, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 25, TempC: 16, Responsible: "enf.ruiz",
	})
	require.NoError(t, err)
	_, err = svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 75, TempC: 16, Responsible: "enf.ruiz",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, batches.batch.VolumeTotalML, 0.001)

	_, err = svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 10, TempC: 16, Responsible: "enf.ruiz",
	})
	var insufficient *lifecycle.InsufficientVolumeError
	assert.ErrorAs(t, err, &insufficient)
}

func TestAdministerWarningsDoNotBlock(t *testing.T) {
	batches := &fakeBatchStore{batch: releasedBatch(100)}
	svc := testService(batches, newFakeLedgerStore(), newFakeReceiverStore(admittedReceiver("r1")))

	// 40 mL exceeds the 30 mL per-take order, and 20°C is outside
	// the serving range. Both warn, neither rejects.
	record, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 40, TempC: 20, Responsible: "enf.ruiz",
	})
	require.NoError(t, err)
	assert.Len(t, record.Warnings, 2)
	assert.InDelta(t, 60, batches.batch.VolumeTotalML, 0.001)
}

func TestAdministerRejectsDischargedReceiver(t *testing.T) {
	receiver := admittedReceiver("r1")
	receiver.Discharged = true
	svc := testService(&fakeBatchStore{batch: releasedBatch(100)}, newFakeLedgerStore(), newFakeReceiverStore(receiver))

	_, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 10, TempC: 16,
	})
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAdministerRetriesOnVersionConflict(t *testing.T) {
	batches := &fakeBatchStore{batch: releasedBatch(100), conflicts: 1}
	ledger := newFakeLedgerStore()
	svc := testService(batches, ledger, newFakeReceiverStore(admittedReceiver("r1")))

	record, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 25, TempC: 16, Responsible: "enf.ruiz",
	})
	require.NoError(t, err)
	assert.False(t, record.Voided)
	assert.InDelta(t, 75, batches.batch.VolumeTotalML, 0.001)
}

func TestAdministerVoidsRecordOnPersistentConflict(t *testing.T) {
	batches := &fakeBatchStore{batch: releasedBatch(100), conflicts: 10}
	ledger := newFakeLedgerStore()
	svc := testService(batches, ledger, newFakeReceiverStore(admittedReceiver("r1")))

	_, err := svc.Administer(context.Background(), AdministerInput{
		ReceiverID: "r1", BatchID: "b1", AdministeredML: 25, TempC: 16, Responsible: "enf.ruiz",
	})
	require.ErrorIs(t, err, mongodb.ErrVersionConflict)

	records, err := svc.ListAdministrations(context.Background(), "b1", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Voided)
	assert.NotEmpty(t, records[0].VoidReason)
}

func TestAdmitReceiverDerivesPerTake(t *testing.T) {
	svc := testService(&fakeBatchStore{}, newFakeLedgerStore(), newFakeReceiverStore())

	receiver, err := svc.AdmitReceiver(context.Background(), ReceiverInput{
		FullName:     "RN Torres",
		RecordNumber: "EXP-4412",
		Prescription: PrescriptionInput{TotalDailyML: 160, FeedingsPerDay: 8},
	})
	require.NoError(t, err)
	assert.InDelta(t, 20, receiver.Prescription.PerTakeML, 0.001)
	assert.False(t, receiver.Discharged)
}

func TestAdmitReceiverValidatesPrescription(t *testing.T) {
	svc := testService(&fakeBatchStore{}, newFakeLedgerStore(), newFakeReceiverStore())

	var verr *lifecycle.ValidationError
	_, err := svc.AdmitReceiver(context.Background(), ReceiverInput{
		FullName:     "RN Torres",
		Prescription: PrescriptionInput{TotalDailyML: 0, FeedingsPerDay: 8},
	})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.AdmitReceiver(context.Background(), ReceiverInput{
		FullName:     "RN Torres",
		Prescription: PrescriptionInput{TotalDailyML: 160, FeedingsPerDay: 0},
	})
	assert.ErrorAs(t, err, &verr)
}

func TestDischargeIsIdempotent(t *testing.T) {
	receivers := newFakeReceiverStore(admittedReceiver("r1"))
	svc := testService(&fakeBatchStore{}, newFakeLedgerStore(), receivers)

	first, err := svc.DischargeReceiver(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, first.Discharged)
	require.NotNil(t, first.DischargedAt)

	again, err := svc.DischargeReceiver(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, first.DischargedAt, again.DischargedAt)

	_, err = svc.UpdatePrescription(context.Background(), "r1", PrescriptionInput{TotalDailyML: 100, FeedingsPerDay: 4})
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}
