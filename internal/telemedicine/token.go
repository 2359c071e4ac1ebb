package telemedicine

import "time"

// TokenSafetyThreshold is subtracted from a token's nominal lifetime so a
// request never starts with a token about to expire.
const TokenSafetyThreshold = 60 * time.Second

// Token is an access token issued by an upstream authentication endpoint.
type Token struct {
	accessToken string
	issuedAt    time.Time
	expiresIn   time.Duration
}

// NewToken validates the authentication response fields.
func NewToken(accessToken string, issuedAt time.Time, expiresIn time.Duration) (*Token, error) {
	if accessToken == "" {
		return nil, NewValidationError("access_token", "the access_token attribute is required")
	}
	if expiresIn <= 0 {
		return nil, NewValidationError("expires_in", "the expires_in attribute is required")
	}
	return &Token{accessToken: accessToken, issuedAt: issuedAt, expiresIn: expiresIn}, nil
}

// AccessToken returns the raw credential.
func (t *Token) AccessToken() string { return t.accessToken }

// IssuedAt returns when the token was obtained.
func (t *Token) IssuedAt() time.Time { return t.issuedAt }

// ExpiresIn returns the declared lifetime.
func (t *Token) ExpiresIn() time.Duration { return t.expiresIn }

// ExpiresAt is issuedAt + expiresIn minus the safety threshold.
func (t *Token) ExpiresAt() time.Time {
	return t.issuedAt.Add(t.expiresIn - TokenSafetyThreshold)
}

// ValidAt reports whether the token may be used at now.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil {
		return false
	}
	return now.Before(t.ExpiresAt())
}

// Valid reports whether the token may be used right now.
func (t *Token) Valid() bool {
	return t.ValidAt(time.Now())
}
