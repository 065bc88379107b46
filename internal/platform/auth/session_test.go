package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	verifier, err := NewVerifier("test-secret", "catalog-api", WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	session := Session{
		UserID:           "user-1",
		RoleSlug:         "contentManager",
		CompanySlug:      "vintora",
		IsContentManager: true,
	}
	token, err := verifier.IssueToken(session, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	got, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != session {
		t.Fatalf("expected %+v, got %+v", session, got)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	issuer, err := NewVerifier("test-secret", "catalog-api", WithClock(fixedClock(issuedAt)))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := issuer.IssueToken(Session{UserID: "user-1"}, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	later, err := NewVerifier("test-secret", "catalog-api", WithClock(fixedClock(issuedAt.Add(2*time.Minute))))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := later.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsWrongSecretAndIssuer(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	issuer, _ := NewVerifier("secret-a", "catalog-api", WithClock(fixedClock(now)))
	token, err := issuer.IssueToken(Session{UserID: "user-1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other, _ := NewVerifier("secret-b", "catalog-api", WithClock(fixedClock(now)))
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}

	wrongIssuer, _ := NewVerifier("secret-a", "other-api", WithClock(fixedClock(now)))
	if _, err := wrongIssuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong issuer, got %v", err)
	}
}

func TestRequireSessionMiddleware(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	verifier, _ := NewVerifier("test-secret", "catalog-api", WithClock(fixedClock(now)))
	token, err := verifier.IssueToken(Session{UserID: "user-1", RoleSlug: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var captured Session
	handler := RequireSession(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/products/p1/brand", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if captured.UserID != "user-1" || captured.RoleSlug != "admin" {
		t.Fatalf("unexpected session %+v", captured)
	}

	missing := httptest.NewRequest(http.MethodPatch, "/products/p1/brand", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, missing)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
