package roles

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

func newTestRouter(t *testing.T, perms ...string) http.Handler {
	t.Helper()
	svc, _ := seededService(t)
	h := NewHandler(nil, svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := rbac.Identity{Principal: &rbac.Principal{ID: 1}, Authorities: perms}
			next.ServeHTTP(w, r.WithContext(rbac.WithIdentity(r.Context(), id)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestHandlerListFlatten(t *testing.T) {
	router := newTestRouter(t, shared.PermReadAll)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?flatten=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"Context":"Roles","TotalData":2,"Data":[{"id":1,"name":"Admin"},{"id":2,"name":"Guest"}]}]`, rr.Body.String())
}

func TestHandlerDetail(t *testing.T) {
	router := newTestRouter(t, shared.PermReadAll)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":2,"name":"Guest","description":"Visitor","permission":[{"id":1,"name":"read.all"}]}]`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/42", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Role with id = 42 not found.")
}

func TestHandlerCreate(t *testing.T) {
	router := newTestRouter(t, shared.PermWriteAll)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Editor","permission":[2,2]}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Viewer","permission":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Viewer","permission":[5]}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUpdate(t *testing.T) {
	router := newTestRouter(t, shared.PermWriteAll)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/1", strings.NewReader(`{"permission":[1]}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var view View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "Admin", view.Name)
	assert.Equal(t, []PermissionRef{{ID: 1, Name: "read.all"}}, view.Permission)
}

func TestHandlerRequiresPermissions(t *testing.T) {
	router := newTestRouter(t, shared.PermReadAll)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/1", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
