package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

type fakeDonorStore struct {
	donors map[string]models.Donor
}

func newFakeDonorStore() *fakeDonorStore {
	return &fakeDonorStore{donors: map[string]models.Donor{}}
}

func (s *fakeDonorStore) Insert(_ context.Context, donor models.Donor) error {
	s.donors[donor.ID] = donor
	return nil
}

func (s *fakeDonorStore) Get(_ context.Context, id string) (models.Donor, error) {
	donor, ok := s.donors[id]
	if !ok {
		return models.Donor{}, assert.AnError
	}
	return donor, nil
}

func (s *fakeDonorStore) Update(_ context.Context, donor models.Donor) error {
	s.donors[donor.ID] = donor
	return nil
}

func (s *fakeDonorStore) List(_ context.Context, status models.DonorStatus) ([]models.Donor, error) {
	var out []models.Donor
	for _, d := range s.donors {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeJarStore struct {
	jars map[string]models.MilkJar
}

func newFakeJarStore() *fakeJarStore {
	return &fakeJarStore{jars: map[string]models.MilkJar{}}
}

func (s *fakeJarStore) Insert(_ context.Context, jar models.MilkJar) error {
	s.jars[jar.ID] = jar
	return nil
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

func (s *fakeJarStore) List(_ context.Context, status models.JarStatus) ([]models.MilkJar, error) {
	var out []models.MilkJar
	for _, j := range s.jars {
		if status == "" || j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeJarStore) CountReceivedOn(_ context.Context, day time.Time) (int64, error) {
	var n int64
	for _, j := range s.jars {
		if j.CreatedAt.Format("20060102") == day.Format("20060102") {
			n++
		}
	}
	return n, nil
}

func newTestService(donors *fakeDonorStore, jars *fakeJarStore) *Service {
	svc := NewService(donors, jars, 5.0, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func activeDonor(id string) models.Donor {
	return models.Donor{
		ID:             id,
		FullName:       "María García",
		Classification: models.HomologousInternal,
		Status:         models.DonorActive,
		ConsentSigned:  true,
	}
}

func TestRegisterDonorStartsPending(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)

	donor, err := svc.RegisterDonor(context.Background(), DonorInput{
		FullName:       "Ana López",
		Classification: models.Heterologous,
		ConsentSigned:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DonorPending, donor.Status)
	assert.NotEmpty(t, donor.ID)
	require.NotNil(t, donor.ConsentDate)
}

func TestRegisterDonorRejectsUnknownClassification(t *testing.T) {
	svc := newTestService(newFakeDonorStore(), newFakeJarStore())

	_, err := svc.RegisterDonor(context.Background(), DonorInput{FullName: "Ana", Classification: "exotica"})
	var verr *lifecycle.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestActivateDonorRequiresConsentAndCleanPanel(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)

	donor := activeDonor("d1")
	donor.Status = models.DonorPending
	donor.ConsentSigned = false
	require.NoError(t, donors.Insert(context.Background(), donor))

	_, err := svc.ActivateDonor(context.Background(), "d1")
	var terr *lifecycle.TransitionError
	require.ErrorAs(t, err, &terr)

	donor.ConsentSigned = true
	donor.LabResults = []models.LabResult{{Test: "VIH", Reactive: true}}
	require.NoError(t, donors.Update(context.Background(), donor))

	_, err = svc.ActivateDonor(context.Background(), "d1")
	require.ErrorAs(t, err, &terr)

	donor.LabResults = []models.LabResult{{Test: "VIH", Reactive: false}}
	require.NoError(t, donors.Update(context.Background(), donor))

	activated, err := svc.ActivateDonor(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DonorActive, activated.Status)
}

func TestReactiveResultSuspendsActiveDonor(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)
	require.NoError(t, donors.Insert(context.Background(), activeDonor("d1")))

	donor, err := svc.RecordLabResult(context.Background(), "d1", models.LabResult{Test: "VDRL", Reactive: true})
	require.NoError(t, err)
	assert.Equal(t, models.DonorSuspended, donor.Status)
	assert.Contains(t, donor.RejectReason, "VDRL")
}

func TestSetDonorStatusRejectionNeedsReason(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)
	require.NoError(t, donors.Insert(context.Background(), activeDonor("d1")))

	_, err := svc.SetDonorStatus(context.Background(), "d1", models.DonorRejected, "")
	assert.ErrorIs(t, err, lifecycle.ErrMissingReason)

	donor, err := svc.SetDonorStatus(context.Background(), "d1", models.DonorRejected, "No apta por historial")
	require.NoError(t, err)
	assert.Equal(t, models.DonorRejected, donor.Status)
}

func TestReceiveJarAssignsSequentialFolio(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)
	require.NoError(t, donors.Insert(context.Background(), activeDonor("d1")))

	in := JarInput{
		DonorID: "d1", VolumeML: 120, Type: models.Mature,
		ExtractedAt: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
		TempC:       4, Arrival: models.ArrivalRefrigerated,
		Clean: true, Sealed: true, Labeled: true, ReceivedBy: "enf.ruiz",
	}

	first, err := svc.ReceiveJar(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "LP-20260310-001", first.Folio)
	assert.Equal(t, models.JarRaw, first.Status)

	second, err := svc.ReceiveJar(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "LP-20260310-002", second.Folio)
}

func TestReceiveJarRejectsInactiveDonor(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)

	donor := activeDonor("d1")
	donor.Status = models.DonorSuspended
	require.NoError(t, donors.Insert(context.Background(), donor))

	_, err := svc.ReceiveJar(context.Background(), JarInput{
		DonorID: "d1", VolumeML: 100, Type: models.Mature,
		ExtractedAt: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrDonorNotActive)
}

func TestVerifyJarAcceptsCompliantJar(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)
	require.NoError(t, donors.Insert(context.Background(), activeDonor("d1")))

	jar, err := svc.ReceiveJar(context.Background(), JarInput{
		DonorID: "d1", VolumeML: 120, Type: models.Mature,
		ExtractedAt: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
		TempC:       4, Arrival: models.ArrivalRefrigerated,
		Clean: true, Sealed: true, Labeled: true,
	})
	require.NoError(t, err)

	verified, err := svc.VerifyJar(context.Background(), jar.ID, "enf.ruiz")
	require.NoError(t, err)
	assert.Equal(t, models.JarVerified, verified.Status)
	assert.Len(t, verified.History, 2)
}

func TestVerifyJarDiscardsWarmOpenJar(t *testing.T) {
	donors, jars := newFakeDonorStore(), newFakeJarStore()
	svc := newTestService(donors, jars)
	require.NoError(t, donors.Insert(context.Background(), activeDonor("d1")))

	jar, err := svc.ReceiveJar(context.Background(), JarInput{
		DonorID: "d1", VolumeML: 120, Type: models.Mature,
		ExtractedAt: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
		TempC:       9, Arrival: models.ArrivalRefrigerated,
		Clean: true, Sealed: false, Labeled: true,
	})
	require.NoError(t, err)

	discarded, err := svc.VerifyJar(context.Background(), jar.ID, "enf.ruiz")
	require.NoError(t, err)
	assert.Equal(t, models.JarDiscarded, discarded.Status)
	assert.NotEmpty(t, discarded.RejectionReason)

	// Verification is single-shot.
	_, err = svc.VerifyJar(context.Background(), jar.ID, "enf.ruiz")
	var terr *lifecycle.TransitionError
	assert.ErrorAs(t, err, &terr)
}
