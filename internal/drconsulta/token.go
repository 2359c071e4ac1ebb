package drconsulta

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
)

const defaultTokenLifetime = time.Hour

// tokenFromLogin builds a token from a login response. Some environments omit
// expires_in; the JWT exp claim is used then, and a one hour lifetime as a
// last resort.
func tokenFromLogin(resp loginResponse, issuedAt time.Time) (*telemedicine.Token, error) {
	lifetime := time.Duration(resp.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = lifetimeFromClaims(resp.AccessToken, issuedAt)
	}
	return telemedicine.NewToken(resp.AccessToken, issuedAt, lifetime)
}

func lifetimeFromClaims(raw string, issuedAt time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return defaultTokenLifetime
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return defaultTokenLifetime
	}
	if d := exp.Sub(issuedAt); d > 0 {
		return d
	}
	// already expired: keep it unusable so the next call logs in again
	return time.Second
}
