package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

type fakeJarStore struct {
	jars []models.MilkJar
}

func (s *fakeJarStore) ListReceivedBetween(_ context.Context, _, _ time.Time) ([]models.MilkJar, error) {
	return s.jars, nil
}

type fakeBatchStore struct {
	created []models.MilkBatch
	stock   []models.MilkBatch
}

func (s *fakeBatchStore) ListCreatedBetween(_ context.Context, _, _ time.Time) ([]models.MilkBatch, error) {
	return s.created, nil
}

func (s *fakeBatchStore) ListReleasedFEFO(_ context.Context) ([]models.MilkBatch, error) {
	return s.stock, nil
}

type fakeLedgerStore struct {
	records []models.AdministrationRecord
}

func (s *fakeLedgerStore) ListBetween(_ context.Context, _, _ time.Time) ([]models.AdministrationRecord, error) {
	return s.records, nil
}

type fakeDonorStore struct {
	active int64
}

func (s *fakeDonorStore) CountByStatus(_ context.Context, _ models.DonorStatus) (int64, error) {
	return s.active, nil
}

type fakeExporter struct {
	rows [][]interface{}
}

func (e *fakeExporter) AppendRow(_ context.Context, _ string, values []interface{}) error {
	e.rows = append(e.rows, values)
	return nil
}

func march(day int) time.Time {
	return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
}

func testStores() (*fakeJarStore, *fakeBatchStore, *fakeLedgerStore, *fakeDonorStore) {
	jars := &fakeJarStore{jars: []models.MilkJar{
		{ID: "j1", VolumeML: 120, Status: models.JarAnalyzed},
		{ID: "j2", VolumeML: 80, Status: models.JarDiscarded},
		{ID: "j3", VolumeML: 100, Status: models.JarVerified},
	}}
	batches := &fakeBatchStore{
		created: []models.MilkBatch{
			{ID: "b1", Status: models.BatchReleased},
			{ID: "b2", Status: models.BatchDiscarded},
			{ID: "b3", Status: models.BatchQuarantine},
		},
		stock: []models.MilkBatch{
			{ID: "b1", Status: models.BatchReleased, VolumeTotalML: 250},
		},
	}
	ledger := &fakeLedgerStore{records: []models.AdministrationRecord{
		{ID: "a1", AdministeredML: 30, DiscardedML: 5},
		{ID: "a2", AdministeredML: 25},
		{ID: "a3", AdministeredML: 40, Voided: true},
	}}
	donors := &fakeDonorStore{active: 7}
	return jars, batches, ledger, donors
}

func TestSummaryAggregatesPeriod(t *testing.T) {
	jars, batches, ledger, donors := testStores()
	svc := NewService(jars, batches, ledger, donors, nil, nil)
	svc.now = func() time.Time { return march(31) }

	sum, err := svc.Summary(context.Background(), march(1), march(31))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.JarsReceived)
	assert.Equal(t, 1, sum.JarsRejected)
	assert.InDelta(t, 300, sum.VolumeCollectedML, 0.001)

	assert.Equal(t, 3, sum.BatchesCreated)
	assert.Equal(t, 1, sum.BatchesReleased)
	assert.Equal(t, 1, sum.BatchesDiscarded)

	// Voided records stay out of the dispensed totals.
	assert.InDelta(t, 55, sum.VolumeDispensedML, 0.001)
	assert.InDelta(t, 5, sum.VolumeWastedML, 0.001)

	assert.Equal(t, 7, sum.ActiveDonors)
	assert.InDelta(t, 250, sum.ReleasedStockML, 0.001)
}

func TestExportMonthlyAppendsOneRow(t *testing.T) {
	jars, batches, ledger, donors := testStores()
	exporter := &fakeExporter{}
	svc := NewService(jars, batches, ledger, donors, exporter, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC) }

	sum, err := svc.ExportMonthly(context.Background(), march(15))
	require.NoError(t, err)
	assert.Equal(t, march(1), sum.From)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), sum.To)

	require.Len(t, exporter.rows, 1)
	assert.Equal(t, "2026-03", exporter.rows[0][0])
}

func TestExportMonthlySkipsWithoutExporter(t *testing.T) {
	jars, batches, ledger, donors := testStores()
	svc := NewService(jars, batches, ledger, donors, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC) }

	sum, err := svc.ExportMonthly(context.Background(), march(15))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.JarsReceived)
}
