package dspace

import (
	"context"
	"net/http"
	"sync"
)

// Session holds the base URL and, after Login, the token and request headers.
// Login is the only operation that changes it.
type Session struct {
	mu  sync.RWMutex
	ctx ClientContext
}

func newSession(ctx ClientContext) *Session {
	return &Session{ctx: ctx}
}

// Context returns a snapshot of the session to hand to resources.
func (s *Session) Context() ClientContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// BaseURL returns the repository URL.
func (s *Session) BaseURL() string {
	return s.Context().BaseURL()
}

// APIURL returns the REST endpoint URL.
func (s *Session) APIURL() string {
	return s.Context().APIURL()
}

// Token returns the token obtained by Login. The second result is false before login.
func (s *Session) Token() (string, bool) {
	return s.Context().Token()
}

// Headers returns a copy of the authenticated request headers, nil before login.
func (s *Session) Headers() http.Header {
	return s.Context().Headers()
}

// Login exchanges email and password for a token. On failure the session is left as it
// was and the error is an *AuthError.
func (s *Session) Login(ctx context.Context, email, password string) error {
	const op = "login"
	cc := s.Context()
	t := cc.transport

	credentials := map[string]string{
		"email":    email,
		"password": password,
	}
	token, err := t.doText(ctx, op, http.MethodPost, cc.endpoint("login"), nil, credentials)
	if err != nil {
		return t.failed(ctx, op, &AuthError{Op: op, Err: err})
	}

	header := make(http.Header)
	header.Set(cc.tokenHeader, token)
	header.Set("Accept", "application/json")

	s.mu.Lock()
	s.ctx.token = token
	s.ctx.header = header
	s.mu.Unlock()

	t.hooks.executeSession(ctx, SessionLogin)
	return nil
}

// LoginStatus returns the server's view of the session; useful for debugging.
func (s *Session) LoginStatus(ctx context.Context) (*Status, error) {
	const op = "login status"
	cc := s.Context()
	t := cc.transport

	var status Status
	if err := t.doJSON(ctx, op, http.MethodGet, cc.endpoint("status"), cc.header, nil, &status); err != nil {
		return nil, t.failed(ctx, op, &AuthError{Op: op, Err: err})
	}
	return &status, nil
}

// Logout invalidates the token on the server. The local token and headers are kept, so
// requests made afterwards are sent with a token the server no longer accepts; call
// Login again before reusing the session.
func (s *Session) Logout(ctx context.Context) error {
	const op = "logout"
	cc := s.Context()
	t := cc.transport

	if err := t.doJSON(ctx, op, http.MethodPost, cc.endpoint("logout"), cc.header, nil, nil); err != nil {
		return t.failed(ctx, op, &AuthError{Op: op, Err: err})
	}

	t.hooks.executeSession(ctx, SessionLogout)
	return nil
}
