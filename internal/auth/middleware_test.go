package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
)

func principalEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(p.UserID.String()))
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens()
	userID := uuid.Must(uuid.NewV4())
	pair, err := tokens.IssuePair(userID, false)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusNoContent},
		{name: "valid_access", header: "Bearer " + pair.Access, wantStatus: http.StatusOK, wantBody: userID.String()},
		{name: "refresh_rejected", header: "Bearer " + pair.Refresh, wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Token " + pair.Access, wantStatus: http.StatusUnauthorized},
		{name: "no_token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			tokens.Authenticate(principalEcho(t)).ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		principal  *auth.Principal
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "customer", principal: &auth.Principal{UserID: uuid.Must(uuid.NewV4())}, wantStatus: http.StatusForbidden},
		{name: "staff", principal: &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Staff: true}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(auth.WithPrincipal(req.Context(), *tt.principal))
			}
			rr := httptest.NewRecorder()

			auth.RequireStaff(ok).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	auth.RequireAuth(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: uuid.Must(uuid.NewV4())}))
	rr = httptest.NewRecorder()
	auth.RequireAuth(ok).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
