package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "quickcart", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsTokenFromAnotherIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, enums.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	token := mintTestToken(t, testJWT, enums.RoleDriver)

	var captured auth.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID == uuid.Nil {
		t.Fatal("expected user id in context")
	}
	if !captured.IsDriver() {
		t.Fatalf("expected driver role got %s", captured.Role)
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	var hasActor bool
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasActor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusOK || hasActor {
		t.Fatalf("expected anonymous pass-through, got %d actor=%v", resp.Code, hasActor)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected malformed token to be rejected, got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin)(okHandler())

	cases := []struct {
		name   string
		actor  *auth.Actor
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}, http.StatusForbidden},
		{"admin", &auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.actor != nil {
			req = req.WithContext(WithActor(req.Context(), *tc.actor))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.status, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
