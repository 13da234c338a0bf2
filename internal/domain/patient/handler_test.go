package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/records/internal/domain/hospital"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/middleware"
)

// asHospital authenticates every request as the hospital named in the
// X-Test-Hospital header.
func asHospital(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := uuid.MustParse(c.Request().Header.Get("X-Test-Hospital"))
		auth.SetPrincipal(c, auth.KindHospital, &hospital.Hospital{ID: id})
		return next(c)
	}
}

type fixture struct {
	e      *echo.Echo
	svc    *Service
	users  mockUsers
	tokens *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte("test-secret"), "HS256", 30*time.Minute)
	require.NoError(t, err)
	users := mockUsers{}
	svc := NewService(newMockRepo(), users)

	e := echo.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e, asHospital, Authenticate(tokens, svc))
	return &fixture{e: e, svc: svc, users: users, tokens: tokens}
}

func (f *fixture) do(method, path string, hospitalID uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-Hospital", hospitalID.String())
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// patientBody links the new patient to a fresh User of owner.
func (f *fixture) patientBody(owner uuid.UUID, uniqueID string) string {
	return patientBodyFor(f.users.add(owner).String(), owner, uniqueID)
}

func patientBodyFor(userID string, owner uuid.UUID, uniqueID string) string {
	return `{"user_id":"` + userID + `","unique_id":"` + uniqueID +
		`","dob":"1980-01-31","created_by_hospital_id":"` + owner.String() + `"}`
}

func TestHandler_CreateStatuses(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()

	rec := f.do(http.MethodPost, "/hospitals/patients", a, f.patientBody(a, "P1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, a, created.CreatedByHospitalID)
	assert.Equal(t, "1980-01-31", created.DOB.String())

	rec = f.do(http.MethodPost, "/hospitals/patients", a, f.patientBody(b, "P2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail":"Cannot create patient for another hospital"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/hospitals/patients", b, f.patientBody(b, "P1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Patient with this unique_id already exists"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/hospitals/patients", a, `{"unique_id":"P3"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_CreateRejectsForeignOrLinkedUser(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()

	staffOfA := f.users.add(a).String()
	rec := f.do(http.MethodPost, "/hospitals/patients", a, patientBodyFor(staffOfA, a, "A1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/hospitals/patients", b, patientBodyFor(staffOfA, b, "B1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid user_id"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/hospitals/patients", a, patientBodyFor(staffOfA, a, "A2"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"User is already linked to another patient"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/hospitals/patients", b, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_UpdateForeignIsNotFound(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()

	rec := f.do(http.MethodPost, "/hospitals/patients", a, f.patientBody(a, "P1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(http.MethodPatch, "/hospitals/patients/"+created.ID.String(), b, `{"gender":"male"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPatch, "/hospitals/patients/"+created.ID.String(), a, `{"contact_phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.ContactPhone)
	assert.Equal(t, "555-0100", *updated.ContactPhone)
}

func TestHandler_ListFiltersByCaller(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/hospitals/patients", a, f.patientBody(a, "A1")).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/hospitals/patients", b, f.patientBody(b, "B1")).Code)

	rec := f.do(http.MethodGet, "/hospitals/patients", a, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "A1", list[0].UniqueID)

	rec = f.do(http.MethodGet, "/hospitals/patients?unique_id=B1", a, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_Me(t *testing.T) {
	f := newFixture(t)
	a := uuid.New()

	rec := f.do(http.MethodPost, "/hospitals/patients", a, f.patientBody(a, "P1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	tok, _, err := f.tokens.Issue(created.ID, auth.KindPatient)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/patients/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, created.ID, me.ID)

	hospTok, _, err := f.tokens.Issue(created.ID, auth.KindHospital)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/patients/me", nil)
	req.Header.Set("Authorization", "Bearer "+hospTok)
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
