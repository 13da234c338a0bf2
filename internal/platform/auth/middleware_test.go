package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/db"
)

type testPrincipal struct {
	ID   uuid.UUID
	Name string
}

func principalLoader(known map[uuid.UUID]string) Loader[*testPrincipal] {
	return func(_ context.Context, id uuid.UUID) (*testPrincipal, error) {
		name, ok := known[id]
		if !ok {
			return nil, db.ErrNotFound
		}
		return &testPrincipal{ID: id, Name: name}, nil
	}
}

func runRequire(t *testing.T, mw echo.MiddlewareFunc, header string) (*testPrincipal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/hospitals/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *testPrincipal
	err := mw(func(c echo.Context) error {
		p, ok := Principal[*testPrincipal](c, KindHospital)
		if !ok {
			t.Fatal("principal not set on context")
		}
		got = p
		return c.NoContent(http.StatusOK)
	})(c)
	return got, err
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae), "expected *apperr.Error, got %T", err)
	assert.Equal(t, apperr.KindAuthentication, ae.Kind)
	assert.Equal(t, msgInvalidToken, ae.Message)
}

func TestRequire_Success(t *testing.T) {
	tokens := newTestTokens(t)
	id := uuid.New()
	tok, _, err := tokens.Issue(id, KindHospital)
	require.NoError(t, err)

	mw := Require(tokens, KindHospital, principalLoader(map[uuid.UUID]string{id: "General"}))
	p, err := runRequire(t, mw, "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "General", p.Name)
}

func TestRequire_CaseInsensitiveScheme(t *testing.T) {
	tokens := newTestTokens(t)
	id := uuid.New()
	tok, _, err := tokens.Issue(id, KindHospital)
	require.NoError(t, err)

	mw := Require(tokens, KindHospital, principalLoader(map[uuid.UUID]string{id: "General"}))
	_, err = runRequire(t, mw, "bearer "+tok)
	assert.NoError(t, err)
}

func TestRequire_InvalidHeader(t *testing.T) {
	tokens := newTestTokens(t)
	mw := Require(tokens, KindHospital, principalLoader(nil))
	for _, header := range []string{"", "Token abc123", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "Bearer not-a-jwt"} {
		t.Run(header, func(t *testing.T) {
			_, err := runRequire(t, mw, header)
			assertUnauthorized(t, err)
		})
	}
}

func TestRequire_KindMismatch(t *testing.T) {
	tokens := newTestTokens(t)
	id := uuid.New()
	tok, _, err := tokens.Issue(id, KindPatient)
	require.NoError(t, err)

	mw := Require(tokens, KindHospital, principalLoader(map[uuid.UUID]string{id: "General"}))
	_, err = runRequire(t, mw, "Bearer "+tok)
	assertUnauthorized(t, err)
}

func TestRequire_Expired(t *testing.T) {
	tokens := newTestTokens(t)
	id := uuid.New()
	tokens.now = func() time.Time { return time.Now().Add(-31 * time.Minute) }
	tok, _, err := tokens.Issue(id, KindHospital)
	require.NoError(t, err)
	tokens.now = time.Now

	mw := Require(tokens, KindHospital, principalLoader(map[uuid.UUID]string{id: "General"}))
	_, err = runRequire(t, mw, "Bearer "+tok)
	assertUnauthorized(t, err)
}

func TestRequire_PrincipalDeleted(t *testing.T) {
	tokens := newTestTokens(t)
	tok, _, err := tokens.Issue(uuid.New(), KindHospital)
	require.NoError(t, err)

	mw := Require(tokens, KindHospital, principalLoader(map[uuid.UUID]string{}))
	_, err = runRequire(t, mw, "Bearer "+tok)
	assertUnauthorized(t, err)
}

func TestRequire_LoaderFailureIsNotAuthError(t *testing.T) {
	tokens := newTestTokens(t)
	tok, _, err := tokens.Issue(uuid.New(), KindHospital)
	require.NoError(t, err)

	failing := func(context.Context, uuid.UUID) (*testPrincipal, error) {
		return nil, errors.New("pool closed")
	}
	_, err = runRequire(t, Require[*testPrincipal](tokens, KindHospital, failing), "Bearer "+tok)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestPrincipal_Absent(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := Principal[*testPrincipal](c, KindUser)
	assert.False(t, ok)
}
