package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authsvc "github.com/gearscout/backend/internal/services/auth"
)

func TestAuthMiddlewareInjectsIdentity(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	service := authsvc.NewService(jwtManager, nil, 30*24*time.Hour)

	token, _, err := jwtManager.GenerateAccessToken(42, "sid-42")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing in context")
		}
		if identity.UserID != 42 || identity.SID != "sid-42" {
			t.Fatalf("unexpected identity: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	service := authsvc.NewService(jwtManager, nil, 30*24*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/credits", nil)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	service := authsvc.NewService(jwtManager, nil, 30*24*time.Hour)

	forged := authsvc.NewJWTManager("other-secret", 15*time.Minute)
	token, _, err := forged.GenerateAccessToken(42, "sid-42")
	if err != nil {
		t.Fatalf("generate forged token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called with a forged token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, ok := extractBearerToken(""); ok {
		t.Fatalf("empty header must not parse")
	}
	if _, ok := extractBearerToken("Basic abc"); ok {
		t.Fatalf("non-bearer scheme must not parse")
	}
	token, ok := extractBearerToken("bearer abc.def.ghi")
	if !ok || token != "abc.def.ghi" {
		t.Fatalf("case-insensitive bearer parse failed: %q %v", token, ok)
	}
}
