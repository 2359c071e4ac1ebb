package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// Authenticator obtains a fresh token from the upstream.
type Authenticator func(ctx context.Context) (*telemedicine.Token, error)

// Session holds one upstream token and re-authenticates when it is missing or
// past its safety-adjusted expiry. A provider owns one Session per upstream
// service it talks to.
type Session struct {
	provider string
	name     string
	auth     Authenticator
	now      func() time.Time
	logger   *logging.Logger
	metrics  *metrics.ProviderMetrics

	mu    sync.Mutex
	token *telemedicine.Token
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSessionLogger(logger *logging.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionMetrics(m *metrics.ProviderMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession panics on a nil authenticator.
func NewSession(provider, name string, auth Authenticator, opts ...SessionOption) *Session {
	if auth == nil {
		panic("upstream: session authenticator cannot be nil")
	}
	s := &Session{
		provider: provider,
		name:     name,
		auth:     auth,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a valid token, authenticating first when needed.
func (s *Session) Token(ctx context.Context) (*telemedicine.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.ValidAt(s.now()) {
		return s.token, nil
	}
	return s.authenticateLocked(ctx)
}

// Authenticate always fetches a new token.
func (s *Session) Authenticate(ctx context.Context) (*telemedicine.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticateLocked(ctx)
}

func (s *Session) authenticateLocked(ctx context.Context) (*telemedicine.Token, error) {
	token, err := s.auth(ctx)
	s.metrics.ObserveAuthentication(s.provider, s.name, err)
	if err != nil {
		s.token = nil
		return nil, err
	}
	s.token = token
	s.logger.Debug("telemedicine session authenticated",
		"provider", s.provider,
		"session", s.name,
		"expires_at", token.ExpiresAt().UTC().Format(time.RFC3339),
	)
	return token, nil
}

// Invalidate drops the current token.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}

// Current returns the held token without validating it.
func (s *Session) Current() *telemedicine.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Now exposes the session clock so token issuance uses the same time source.
func (s *Session) Now() time.Time {
	return s.now()
}
