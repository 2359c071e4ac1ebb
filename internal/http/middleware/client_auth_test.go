package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedClientToken(t *testing.T, secret, subject string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serveClientJWT(authorization string) (*httptest.ResponseRecorder, string) {
	var subject string
	handler := ClientJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = ClientFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, subject
}

func TestClientJWTRejects(t *testing.T) {
	future := time.Now().Add(time.Hour)
	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"not bearer", "Basic Zm9vOmJhcg=="},
		{"empty bearer", "Bearer  "},
		{"wrong secret", "Bearer " + signedClientToken(t, "wrong", "crm", jwt.SigningMethodHS256, future)},
		{"expired", "Bearer " + signedClientToken(t, "secret", "crm", jwt.SigningMethodHS256, time.Now().Add(-time.Minute))},
		{"no subject", "Bearer " + signedClientToken(t, "secret", "", jwt.SigningMethodHS256, future)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serveClientJWT(tt.authorization)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestClientJWTAcceptsSignedSubject(t *testing.T) {
	token := signedClientToken(t, "secret", "scheduling-service", jwt.SigningMethodHS384, time.Now().Add(time.Hour))
	rec, subject := serveClientJWT("Bearer " + token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if subject != "scheduling-service" {
		t.Fatalf("expected subject in context, got %q", subject)
	}
}
