package address_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/address"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
)

func router(svc *address.Service, user uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), user)))
		})
	})
	r.Route("/api/v1/billings", address.NewHandler(svc, db.AddressKindBilling, nlLocale).Routes)
	r.Route("/api/v1/shippings", address.NewHandler(svc, db.AddressKindShipping, nlLocale).Routes)
	return r
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *common.Pagination `json:"pagination"`
	Error      common.ErrorBody   `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestAddressHandlers(t *testing.T) {
	e := setup(t)
	h := router(e.svc, e.user)
	nl := db.UUIDValue(e.fx.NL.ID).String()

	status, env := call(t, h, http.MethodPost, "/api/v1/billings",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","address":"Damrak 1","city":"Amsterdam","zip_code":"1012LG","country_id":"`+nl+`","company":"Acme BV","vat":"NL123456789B01"}`)
	require.Equal(t, http.StatusCreated, status)
	var created address.View
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "Acme BV", *created.Company)

	status, env = call(t, h, http.MethodPatch, "/api/v1/billings/"+created.ID.String(), `{"city":"Utrecht","phone":"+31 30 000"}`)
	require.Equal(t, http.StatusOK, status)
	var updated address.View
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.Equal(t, "Utrecht", updated.City)
	require.Equal(t, "+31 30 000", *updated.Phone)

	status, env = call(t, h, http.MethodGet, "/api/v1/billings?page=1&limit=5", "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	require.Equal(t, 1, env.Pagination.TotalItems)

	status, env = call(t, h, http.MethodGet, "/api/v1/shippings/"+created.ID.String(), "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", env.Error.Code)

	status, _ = call(t, h, http.MethodGet, "/api/v1/billings/not-a-uuid", "")
	require.Equal(t, http.StatusNotFound, status)

	status, env = call(t, h, http.MethodPost, "/api/v1/shippings", `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}
