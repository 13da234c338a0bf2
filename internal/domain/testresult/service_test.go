package testresult

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/pkg/civil"
)

type mockTypes map[uuid.UUID]*TestType

func (m mockTypes) Create(_ context.Context, t *TestType) error {
	t.ID = uuid.New()
	m[t.ID] = t
	return nil
}

func (m mockTypes) GetByID(_ context.Context, id uuid.UUID) (*TestType, error) {
	t, ok := m[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (m mockTypes) List(_ context.Context) ([]*TestType, error) {
	out := []*TestType{}
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockResults struct {
	results []*TestResult
}

func (m *mockResults) Create(_ context.Context, r *TestResult) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.results = append(m.results, r)
	return nil
}

func (m *mockResults) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*TestResult, int, error) {
	matched := []*TestResult{}
	for _, r := range m.results {
		if r.PatientID == patientID {
			matched = append(matched, r)
		}
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// mockPatients maps patient id to owning hospital.
type mockPatients map[uuid.UUID]uuid.UUID

func (m mockPatients) GetOwned(_ context.Context, hospitalID uuid.UUID, rawID string) (*patient.Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("Patient not found or not associated with this hospital")
	}
	owner, ok := m[id]
	if !ok || owner != hospitalID {
		return nil, apperr.NotFound("Patient not found or not associated with this hospital")
	}
	return &patient.Patient{ID: id, CreatedByHospitalID: owner}, nil
}

type serviceFixture struct {
	svc      *Service
	results  *mockResults
	hospital uuid.UUID
	patient  uuid.UUID
	testType uuid.UUID

	// A second tenant with its own patient.
	otherHospital uuid.UUID
	otherPatient  uuid.UUID
	// current is the patient principal used by handler tests.
	current uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	types := mockTypes{}
	tt := &TestType{Name: "Complete Blood Count"}
	require.NoError(t, types.Create(context.Background(), tt))

	hospitalID, patientID := uuid.New(), uuid.New()
	otherHospitalID, otherPatientID := uuid.New(), uuid.New()
	results := &mockResults{}
	owners := mockPatients{patientID: hospitalID, otherPatientID: otherHospitalID}
	return &serviceFixture{
		svc:           NewService(types, results, owners),
		results:       results,
		hospital:      hospitalID,
		patient:       patientID,
		testType:      tt.ID,
		otherHospital: otherHospitalID,
		otherPatient:  otherPatientID,
		current:       patientID,
	}
}

func (f *serviceFixture) request() CreateRequest {
	return CreateRequest{
		TestTypeID: f.testType.String(),
		Result:     "Normal",
		TestDate:   civil.Date{Year: 2025, Month: time.April, Day: 27},
	}
}

func TestCreate(t *testing.T) {
	f := newServiceFixture(t)

	tr, err := f.svc.Create(context.Background(), f.hospital, f.patient.String(), f.request())
	require.NoError(t, err)
	assert.Equal(t, f.patient, tr.PatientID)
	assert.Equal(t, f.hospital, tr.CreatedByHospitalID)
	assert.Equal(t, f.testType, tr.TestTypeID)
}

func TestCreate_PatientOwnership(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), f.patient.String(), f.request())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), f.hospital, "not-a-uuid", f.request())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.results.results)
}

func TestCreate_InvalidTestType(t *testing.T) {
	f := newServiceFixture(t)

	for name, typeID := range map[string]string{
		"unknown":   uuid.NewString(),
		"malformed": "cbc",
	} {
		t.Run(name, func(t *testing.T) {
			req := f.request()
			req.TestTypeID = typeID
			_, err := f.svc.Create(context.Background(), f.hospital, f.patient.String(), req)
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		})
	}
}

func TestCreate_OwnershipCheckedBeforeTestType(t *testing.T) {
	f := newServiceFixture(t)
	req := f.request()
	req.TestTypeID = uuid.NewString()

	_, err := f.svc.Create(context.Background(), uuid.New(), f.patient.String(), req)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreate_MissingFields(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), f.hospital, f.patient.String(), CreateRequest{})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Len(t, ae.Fields, 3)
}

func TestListForHospital(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Create(context.Background(), f.hospital, f.patient.String(), f.request())
	require.NoError(t, err)

	list, total, err := f.svc.ListForHospital(context.Background(), f.hospital, f.patient.String(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	_, _, err = f.svc.ListForHospital(context.Background(), uuid.New(), f.patient.String(), 10, 0)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// seedBothTenants records two results for the first patient and one for the
// patient of the other hospital.
func (f *serviceFixture) seedBothTenants(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, res := range []string{"Normal", "Elevated"} {
		req := f.request()
		req.Result = res
		_, err := f.svc.Create(ctx, f.hospital, f.patient.String(), req)
		require.NoError(t, err)
	}
	req := f.request()
	req.Result = "Low"
	_, err := f.svc.Create(ctx, f.otherHospital, f.otherPatient.String(), req)
	require.NoError(t, err)
}

func TestListForPatient(t *testing.T) {
	f := newServiceFixture(t)
	f.seedBothTenants(t)
	ctx := context.Background()

	mine, total, err := f.svc.ListForPatient(ctx, f.patient, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, f.patient, r.PatientID)
		assert.Equal(t, f.hospital, r.CreatedByHospitalID)
	}

	theirs, total, err := f.svc.ListForPatient(ctx, f.otherPatient, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Low", theirs[0].Result)

	page, total, err := f.svc.ListForPatient(ctx, f.patient, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, page, 1)

	none, total, err := f.svc.ListForPatient(ctx, uuid.New(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListForHospital_OtherTenantsPatient(t *testing.T) {
	f := newServiceFixture(t)
	f.seedBothTenants(t)

	_, _, err := f.svc.ListForHospital(context.Background(), f.hospital, f.otherPatient.String(), 0, 0)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
