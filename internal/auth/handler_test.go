package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(r)
	return r, f
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterThenLogin(t *testing.T) {
	router, f := newTestRouter(t)

	rr := post(router, "/register", `{"email":"ann@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = post(router, "/login", `{"email":"ann@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var body TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, f.tokens.IsValid(body.Token, "ann@example.com"))
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := post(router, "/register", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	errs := problem["errors"].(map[string]any)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestRegisterDuplicateReturnsFieldError(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, post(router, "/register", `{"email":"ann@example.com","password":"x"}`).Code)

	rr := post(router, "/register", `{"email":"ann@example.com","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, post(router, "/register", `{"email":"ann@example.com","password":"s3cret"}`).Code)

	rr := post(router, "/login", `{"email":"ann@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")
	assert.NotContains(t, rr.Body.String(), "token")
}

func TestLoginMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := post(router, "/login", `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
